package models

import "context"

// VectorIndex manages named collections and the single loaded collection
// that search and insert operate on.
type VectorIndex interface {
	ListCollections(ctx context.Context) ([]string, error)
	// LoadedCollection returns the name of the loaded collection, if any.
	LoadedCollection() (string, bool)
	// CreateCollection creates a collection sized for the embedder and loads it.
	CreateCollection(ctx context.Context, name string) error
	// LoadCollection releases the current collection and loads name.
	LoadCollection(ctx context.Context, name string) error
	Insert(ctx context.Context, name string, msgs []Message, embeddings [][]float32) error
	Search(ctx context.Context, query string, topK int) ([]SearchHit, error)
	Count(ctx context.Context, name string) (int, error)
	DropCollection(ctx context.Context, name string) error
	Close() error
}

type IngestLoader interface {
	LoadMessages(ctx context.Context, collection string, msgs []Message) (<-chan IngestionProgress, error)
	GetProgress() IngestionProgress
}

type StyleConverter interface {
	Convert(
		ctx context.Context,
		target string,
		similar []string,
		context []Message,
	) (StyleResult, error)
}
