package store

import (
	"context"

	"github.com/tonekit/tonekit/pkg/models"
)

const (
	IndexTypeIVFFlat = "ivfflat"
	IndexTypeHNSW    = "hnsw"
)

// Backend persists collections of embedded utterances. Implementations return
// *models.NotFoundError for unknown collections and *models.AlreadyExistsError
// when creating a collection whose name is taken.
type Backend interface {
	ListCollections(ctx context.Context) ([]models.Collection, error)
	GetCollection(ctx context.Context, name string) (models.Collection, error)
	CreateCollection(ctx context.Context, collection models.Collection) error
	DropCollection(ctx context.Context, name string) error
	// Load makes a collection ready for search. Release undoes it.
	Load(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error
	Insert(ctx context.Context, name string, msgs []models.Message, embeddings [][]float32) error
	Search(ctx context.Context, name string, vector []float32, topK int) ([]models.SearchHit, error)
	Count(ctx context.Context, name string) (int, error)
	Close() error
}
