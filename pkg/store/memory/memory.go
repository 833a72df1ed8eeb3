// Package memory is a process-local store.Backend. Contents are lost on exit.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/viterin/vek/vek32"

	"github.com/tonekit/tonekit/pkg/models"
	"github.com/tonekit/tonekit/pkg/store"
)

var _ store.Backend = &Backend{}

type row struct {
	msg       models.Message
	embedding []float32
}

type collection struct {
	meta   models.Collection
	rows   []row
	loaded bool
}

type Backend struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

func NewBackend() *Backend {
	return &Backend{collections: make(map[string]*collection)}
}

func (b *Backend) ListCollections(_ context.Context) ([]models.Collection, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.Collection, 0, len(b.collections))
	for _, c := range b.collections {
		out = append(out, c.meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *Backend) GetCollection(_ context.Context, name string) (models.Collection, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	c, ok := b.collections[name]
	if !ok {
		return models.Collection{}, models.NewNotFoundError("collection " + name)
	}
	return c.meta, nil
}

func (b *Backend) CreateCollection(_ context.Context, meta models.Collection) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.collections[meta.Name]; ok {
		return models.NewAlreadyExistsError("collection " + meta.Name)
	}
	// there is no ANN index here, searches are exact
	meta.IndexType = "flat"
	b.collections[meta.Name] = &collection{meta: meta}
	return nil
}

func (b *Backend) DropCollection(_ context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.collections[name]; !ok {
		return models.NewNotFoundError("collection " + name)
	}
	delete(b.collections, name)
	return nil
}

func (b *Backend) Load(_ context.Context, name string) error {
	return b.setLoaded(name, true)
}

func (b *Backend) Release(_ context.Context, name string) error {
	return b.setLoaded(name, false)
}

// IsLoaded reports whether name is currently loaded.
func (b *Backend) IsLoaded(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	c, ok := b.collections[name]
	return ok && c.loaded
}

func (b *Backend) setLoaded(name string, loaded bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.collections[name]
	if !ok {
		return models.NewNotFoundError("collection " + name)
	}
	c.loaded = loaded
	return nil
}

func (b *Backend) Insert(
	_ context.Context,
	name string,
	msgs []models.Message,
	embeddings [][]float32,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.collections[name]
	if !ok {
		return models.NewNotFoundError("collection " + name)
	}
	for i, e := range embeddings {
		if len(e) != c.meta.Dimension {
			return models.NewDimensionMismatchError(c.meta.Dimension, len(e))
		}
		c.rows = append(c.rows, row{
			msg:       msgs[i],
			embedding: append([]float32(nil), e...),
		})
	}
	return nil
}

func (b *Backend) Search(
	_ context.Context,
	name string,
	vector []float32,
	topK int,
) ([]models.SearchHit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	c, ok := b.collections[name]
	if !ok {
		return nil, models.NewNotFoundError("collection " + name)
	}
	if len(vector) != c.meta.Dimension {
		return nil, models.NewDimensionMismatchError(c.meta.Dimension, len(vector))
	}

	hits := make([]models.SearchHit, len(c.rows))
	for i, r := range c.rows {
		score := float64(vek32.CosineSimilarity(vector, r.embedding))
		// zero vectors have no direction
		if math.IsNaN(score) {
			score = 0
		}
		hits[i] = models.SearchHit{Message: r.msg, Score: score}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (b *Backend) Count(_ context.Context, name string) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	c, ok := b.collections[name]
	if !ok {
		return 0, models.NewNotFoundError("collection " + name)
	}
	return len(c.rows), nil
}

func (b *Backend) Close() error {
	return nil
}
