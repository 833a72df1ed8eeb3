package server

import (
	"net/http"

	"github.com/tonekit/tonekit/pkg/models"
)

type collectionNameQuery struct {
	Name string `validate:"required"`
}

// collectionNameFromQuery reads and validates the required name query parameter.
func collectionNameFromQuery(r *http.Request) (string, error) {
	q := collectionNameQuery{Name: r.URL.Query().Get("name")}
	if err := validate.Struct(q); err != nil {
		return "", err
	}
	return q.Name, nil
}

type CollectionListResponse struct {
	Status      string   `json:"status"`
	Collections []string `json:"collections"`
}

type LoadedCollectionResponse struct {
	Status           string  `json:"status"`
	LoadedCollection *string `json:"loaded_collection"`
}

type CollectionNameResponse struct {
	Status         string `json:"status"`
	CollectionName string `json:"collection_name"`
}

type CollectionCountResponse struct {
	Status         string `json:"status"`
	CollectionName string `json:"collection_name"`
	Count          int    `json:"count"`
}

// ListCollectionsHandler returns the names of every collection in the index.
func ListCollectionsHandler(appState *models.AppState) http.HandlerFunc {
	index := appState.Index
	return func(w http.ResponseWriter, r *http.Request) {
		renderCollectionList(w, r, index)
	}
}

// LoadedCollectionHandler returns the loaded collection name, or null.
func LoadedCollectionHandler(appState *models.AppState) http.HandlerFunc {
	index := appState.Index
	return func(w http.ResponseWriter, r *http.Request) {
		resp := LoadedCollectionResponse{Status: statusSuccess}
		if name, ok := index.LoadedCollection(); ok {
			resp.LoadedCollection = &name
		}
		renderJSON(w, resp)
	}
}

// LoadCollectionHandler makes the named collection the loaded one.
func LoadCollectionHandler(appState *models.AppState) http.HandlerFunc {
	index := appState.Index
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := collectionNameFromQuery(r)
		if err != nil {
			renderError(w, err)
			return
		}

		if err := index.LoadCollection(r.Context(), name); err != nil {
			renderError(w, err)
			return
		}

		renderJSON(w, CollectionNameResponse{Status: statusSuccess, CollectionName: name})
	}
}

// CreateCollectionHandler creates and loads a collection, then lists all collections.
func CreateCollectionHandler(appState *models.AppState) http.HandlerFunc {
	index := appState.Index
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := collectionNameFromQuery(r)
		if err != nil {
			renderError(w, err)
			return
		}

		if err := index.CreateCollection(r.Context(), name); err != nil {
			renderError(w, err)
			return
		}

		renderCollectionList(w, r, index)
	}
}

// DropCollectionHandler drops a collection, then lists the remaining ones.
func DropCollectionHandler(appState *models.AppState) http.HandlerFunc {
	index := appState.Index
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := collectionNameFromQuery(r)
		if err != nil {
			renderError(w, err)
			return
		}

		if err := index.DropCollection(r.Context(), name); err != nil {
			renderError(w, err)
			return
		}

		renderCollectionList(w, r, index)
	}
}

// CountVectorsHandler returns the number of utterances stored in a collection.
func CountVectorsHandler(appState *models.AppState) http.HandlerFunc {
	index := appState.Index
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := collectionNameFromQuery(r)
		if err != nil {
			renderError(w, err)
			return
		}

		count, err := index.Count(r.Context(), name)
		if err != nil {
			renderError(w, err)
			return
		}

		renderJSON(w, CollectionCountResponse{
			Status:         statusSuccess,
			CollectionName: name,
			Count:          count,
		})
	}
}

func renderCollectionList(w http.ResponseWriter, r *http.Request, index models.VectorIndex) {
	collections, err := index.ListCollections(r.Context())
	if err != nil {
		renderError(w, err)
		return
	}
	if collections == nil {
		collections = []string{}
	}

	renderJSON(w, CollectionListResponse{Status: statusSuccess, Collections: collections})
}
