package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tonekit/tonekit/pkg/messages"
	"github.com/tonekit/tonekit/pkg/models"
)

const maxUploadMemory = 32 << 20

type loadVectorsForm struct {
	CollectionName string `validate:"required"`
	UserName       string `validate:"required"`
	Size           int    `validate:"min=0"`
}

// LoadVectorsHandler ingests the uploaded chat export's messages from user_name
// into collection_name and streams progress as server-sent events.
func LoadVectorsHandler(appState *models.AppState) http.HandlerFunc {
	loader := appState.Loader
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			renderError(w, fmt.Errorf("failed to parse form: %w", err))
			return
		}

		form := loadVectorsForm{
			CollectionName: r.FormValue("collection_name"),
			UserName:       r.FormValue("user_name"),
		}
		if size := r.FormValue("size"); size != "" {
			n, err := strconv.Atoi(size)
			if err != nil {
				renderError(w, errors.New("size must be an integer"))
				return
			}
			form.Size = n
		}
		if err := validate.Struct(form); err != nil {
			renderError(w, err)
			return
		}

		file, header, err := r.FormFile("csv_file")
		if err != nil {
			renderError(w, fmt.Errorf("csv_file is required: %w", err))
			return
		}
		defer file.Close()

		msgs, err := messages.ExtractBySender(file, header.Filename, form.UserName)
		if err != nil {
			renderError(w, err)
			return
		}
		if form.Size > 0 && len(msgs) > form.Size {
			msgs = msgs[:form.Size]
		}

		events, err := loader.LoadMessages(r.Context(), form.CollectionName, msgs)
		if err != nil {
			renderError(w, err)
			return
		}

		streamProgress(w, r, events)
	}
}

// streamProgress writes each progress event as an SSE data frame until the
// stream closes or the client goes away.
func streamProgress(w http.ResponseWriter, r *http.Request, events <-chan models.IngestionProgress) {
	flusher, _ := w.(http.Flusher)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for {
		select {
		case <-r.Context().Done():
			log.Warnf("progress stream closed by client: %v", r.Context().Err())
			return
		case p, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(p)
			if err != nil {
				log.Errorf("failed to encode progress event: %v", err)
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				log.Errorf("failed to write progress event: %v", err)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
