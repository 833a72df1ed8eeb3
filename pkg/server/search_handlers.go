package server

import (
	"net/http"

	"github.com/tonekit/tonekit/pkg/messages"
	"github.com/tonekit/tonekit/pkg/models"
)

const DefaultSearchTopK = 5

type ConvertRequest struct {
	Query           string `json:"query"            validate:"required"`
	ContextMessages string `json:"context_messages"`
}

type ConvertResponse struct {
	Status    string             `json:"status"`
	Converted models.StyleResult `json:"converted"`
}

type searchQuery struct {
	Query string `validate:"required"`
	TopK  int    `validate:"min=1,max=50"`
}

type SearchResultMessage struct {
	Content   string  `json:"content"`
	Timestamp string  `json:"timestamp"`
	Score     float64 `json:"score"`
}

type SearchResponse struct {
	Status         string                `json:"status"`
	CollectionName string                `json:"collection_name"`
	Query          string                `json:"query"`
	TopK           int                   `json:"top_k"`
	Messages       []SearchResultMessage `json:"messages"`
}

// ConvertHandler rewrites the query in the style of the loaded collection's
// most similar utterances, using the optional inline context messages.
func ConvertHandler(appState *models.AppState) http.HandlerFunc {
	index := appState.Index
	converter := appState.Converter
	topK := appState.Config.Style.ConvertTopK
	return func(w http.ResponseWriter, r *http.Request) {
		var req ConvertRequest
		if err := decodeJSON(r, &req); err != nil {
			renderError(w, err)
			return
		}
		if err := validate.Struct(req); err != nil {
			renderError(w, err)
			return
		}

		hits, err := index.Search(r.Context(), req.Query, topK)
		if err != nil {
			renderError(w, err)
			return
		}

		history, err := messages.ParseInline(req.ContextMessages)
		if err != nil {
			renderError(w, err)
			return
		}

		similar := make([]string, len(hits))
		for i, hit := range hits {
			similar[i] = hit.Message.Content
		}

		converted, err := converter.Convert(r.Context(), req.Query, similar, history)
		if err != nil {
			renderError(w, err)
			return
		}

		renderJSON(w, ConvertResponse{Status: statusSuccess, Converted: converted})
	}
}

// SearchHandler returns the loaded collection's utterances most similar to query.
func SearchHandler(appState *models.AppState) http.HandlerFunc {
	index := appState.Index
	return func(w http.ResponseWriter, r *http.Request) {
		topK, err := intFromQuery(r, "top_k", DefaultSearchTopK)
		if err != nil {
			renderError(w, err)
			return
		}
		q := searchQuery{Query: r.URL.Query().Get("query"), TopK: topK}
		if err := validate.Struct(q); err != nil {
			renderError(w, err)
			return
		}

		hits, err := index.Search(r.Context(), q.Query, q.TopK)
		if err != nil {
			renderError(w, err)
			return
		}

		collectionName, _ := index.LoadedCollection()
		results := make([]SearchResultMessage, len(hits))
		for i, hit := range hits {
			results[i] = SearchResultMessage{
				Content:   hit.Message.Content,
				Timestamp: hit.Message.FormattedTimestamp(),
				Score:     hit.Score,
			}
		}

		renderJSON(w, SearchResponse{
			Status:         statusSuccess,
			CollectionName: collectionName,
			Query:          q.Query,
			TopK:           q.TopK,
			Messages:       results,
		})
	}
}
