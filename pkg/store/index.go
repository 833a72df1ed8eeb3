package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tonekit/tonekit/internal"
	"github.com/tonekit/tonekit/pkg/models"
)

var log = internal.GetLogger()

var _ models.VectorIndex = &Index{}

// Index tracks which collection is loaded and routes inserts and searches to it.
// At most one collection is loaded at a time. Load, create and drop are
// serialized against each other and against inserts and searches.
type Index struct {
	backend   Backend
	embedder  models.Embedder
	indexType string

	mu     sync.RWMutex
	loaded string
}

func NewIndex(backend Backend, embedder models.Embedder, indexType string) *Index {
	if indexType == "" {
		indexType = IndexTypeIVFFlat
	}
	return &Index{
		backend:   backend,
		embedder:  embedder,
		indexType: indexType,
	}
}

func (i *Index) ListCollections(ctx context.Context) ([]string, error) {
	collections, err := i.backend.ListCollections(ctx)
	if err != nil {
		return nil, wrapBackendError("failed to list collections", err)
	}

	names := make([]string, len(collections))
	for j, c := range collections {
		names[j] = c.Name
	}
	return names, nil
}

func (i *Index) LoadedCollection() (string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return i.loaded, i.loaded != ""
}

// CreateCollection creates a cosine collection sized to the embedder and loads it.
func (i *Index) CreateCollection(ctx context.Context, name string) error {
	if name == "" {
		return models.NewFormatError("collection name is required", nil)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	collection := models.Collection{
		Name:             name,
		Dimension:        i.embedder.Dimensions(),
		DistanceFunction: models.DistanceFunctionCosine,
		IndexType:        i.indexType,
		CreatedAt:        time.Now().UTC(),
	}
	if err := i.backend.CreateCollection(ctx, collection); err != nil {
		return wrapBackendError("failed to create collection", err)
	}
	log.Infof("Created collection %s with dimension %d", name, collection.Dimension)

	return i.loadLocked(ctx, name)
}

func (i *Index) LoadCollection(ctx context.Context, name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, err := i.backend.GetCollection(ctx, name); err != nil {
		return wrapBackendError("failed to load collection", err)
	}

	return i.loadLocked(ctx, name)
}

// loadLocked releases the loaded collection, if any, then loads name. i.mu must be held.
func (i *Index) loadLocked(ctx context.Context, name string) error {
	if i.loaded != "" && i.loaded != name {
		if err := i.backend.Release(ctx, i.loaded); err != nil {
			return wrapBackendError("failed to release collection", err)
		}
		log.Infof("Released collection %s", i.loaded)
		i.loaded = ""
	}

	if err := i.backend.Load(ctx, name); err != nil {
		return wrapBackendError("failed to load collection", err)
	}
	i.loaded = name
	log.Infof("Loaded collection %s", name)

	return nil
}

// Insert stores msgs and their embeddings in name, which must be the loaded collection.
func (i *Index) Insert(
	ctx context.Context,
	name string,
	msgs []models.Message,
	embeddings [][]float32,
) error {
	if len(msgs) != len(embeddings) {
		return models.NewFormatError(
			fmt.Sprintf("got %d messages and %d embeddings", len(msgs), len(embeddings)),
			nil,
		)
	}

	dims := i.embedder.Dimensions()
	for _, e := range embeddings {
		if len(e) != dims {
			return models.NewDimensionMismatchError(dims, len(e))
		}
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.loaded != name {
		return fmt.Errorf("collection %s: %w", name, models.ErrNoCollectionLoaded)
	}
	if len(msgs) == 0 {
		return nil
	}

	if err := i.backend.Insert(ctx, name, msgs, embeddings); err != nil {
		return wrapBackendError("failed to insert messages", err)
	}

	return nil
}

// Search embeds query and returns up to topK hits from the loaded collection,
// most similar first.
func (i *Index) Search(ctx context.Context, query string, topK int) ([]models.SearchHit, error) {
	if topK <= 0 {
		return nil, models.NewFormatError("top_k must be greater than 0", nil)
	}
	if _, ok := i.LoadedCollection(); !ok {
		return nil, models.ErrNoCollectionLoaded
	}

	vector, err := i.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	// the collection may have been dropped while the query was embedded
	if i.loaded == "" {
		return nil, models.ErrNoCollectionLoaded
	}

	hits, err := i.backend.Search(ctx, i.loaded, vector, topK)
	if err != nil {
		return nil, wrapBackendError("failed to search collection", err)
	}

	return hits, nil
}

func (i *Index) Count(ctx context.Context, name string) (int, error) {
	count, err := i.backend.Count(ctx, name)
	if err != nil {
		return 0, wrapBackendError("failed to count collection", err)
	}
	return count, nil
}

// DropCollection releases name if it is loaded, then deletes it.
func (i *Index) DropCollection(ctx context.Context, name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, err := i.backend.GetCollection(ctx, name); err != nil {
		return wrapBackendError("failed to drop collection", err)
	}

	if i.loaded == name {
		if err := i.backend.Release(ctx, name); err != nil {
			return wrapBackendError("failed to release collection", err)
		}
		i.loaded = ""
	}

	if err := i.backend.DropCollection(ctx, name); err != nil {
		return wrapBackendError("failed to drop collection", err)
	}
	log.Infof("Dropped collection %s", name)

	return nil
}

func (i *Index) Close() error {
	return i.backend.Close()
}

// wrapBackendError leaves domain errors untouched so callers can match them
func wrapBackendError(message string, err error) error {
	var notFound *models.NotFoundError
	var exists *models.AlreadyExistsError
	var mismatch *models.DimensionMismatchError
	if errors.As(err, &notFound) || errors.As(err, &exists) || errors.As(err, &mismatch) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return NewStorageError(message, err)
}
