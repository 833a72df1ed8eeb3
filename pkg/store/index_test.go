package store_test

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonekit/tonekit/pkg/models"
	"github.com/tonekit/tonekit/pkg/store"
	"github.com/tonekit/tonekit/pkg/store/memory"
	"github.com/tonekit/tonekit/pkg/testutils"
)

func newTestIndex(t *testing.T) (*store.Index, *memory.Backend, *testutils.FakeEmbedder) {
	t.Helper()
	backend := memory.NewBackend()
	embedder := testutils.NewFakeEmbedder(testutils.TestDimensions)
	index := store.NewIndex(backend, embedder, store.IndexTypeIVFFlat)
	t.Cleanup(func() { _ = index.Close() })
	return index, backend, embedder
}

func embedAll(t *testing.T, e models.Embedder, msgs []models.Message) [][]float32 {
	t.Helper()
	texts := make([]string, len(msgs))
	for i, m := range msgs {
		texts[i] = m.Content
	}
	v, err := e.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)
	return v
}

func TestIndexLoadStateMachine(t *testing.T) {
	ctx := context.Background()
	index, backend, _ := newTestIndex(t)

	_, ok := index.LoadedCollection()
	assert.False(t, ok)

	require.NoError(t, index.CreateCollection(ctx, "a"))
	loaded, ok := index.LoadedCollection()
	require.True(t, ok)
	assert.Equal(t, "a", loaded)

	require.NoError(t, index.CreateCollection(ctx, "b"))
	loaded, _ = index.LoadedCollection()
	assert.Equal(t, "b", loaded)
	assert.False(t, backend.IsLoaded("a"))
	assert.True(t, backend.IsLoaded("b"))

	require.NoError(t, index.LoadCollection(ctx, "a"))
	loaded, _ = index.LoadedCollection()
	assert.Equal(t, "a", loaded)
	assert.False(t, backend.IsLoaded("b"))

	err := index.LoadCollection(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
	loaded, _ = index.LoadedCollection()
	assert.Equal(t, "a", loaded)

	names, err := index.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	require.NoError(t, index.DropCollection(ctx, "a"))
	_, ok = index.LoadedCollection()
	assert.False(t, ok)

	// dropping an unloaded collection leaves nothing loaded
	require.NoError(t, index.DropCollection(ctx, "b"))
	names, err = index.ListCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	assert.ErrorIs(t, index.DropCollection(ctx, "b"), models.ErrNotFound)
}

func TestIndexCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	index, _, _ := newTestIndex(t)

	require.NoError(t, index.CreateCollection(ctx, "a"))
	assert.ErrorIs(t, index.CreateCollection(ctx, "a"), models.ErrAlreadyExists)
	assert.ErrorIs(t, index.CreateCollection(ctx, ""), models.ErrFormat)
}

func TestIndexInsertAndCount(t *testing.T) {
	ctx := context.Background()
	index, _, embedder := newTestIndex(t)
	msgs := testutils.GenerateMessages(gofakeit.New(1), "alice", 30)
	embeddings := embedAll(t, embedder, msgs)

	err := index.Insert(ctx, "a", msgs, embeddings)
	assert.ErrorIs(t, err, models.ErrNoCollectionLoaded)

	require.NoError(t, index.CreateCollection(ctx, "a"))

	// insertion in one or several batches yields the same count
	require.NoError(t, index.Insert(ctx, "a", msgs[:10], embeddings[:10]))
	require.NoError(t, index.Insert(ctx, "a", msgs[10:], embeddings[10:]))
	count, err := index.Count(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 30, count)

	err = index.Insert(ctx, "a", msgs[:2], embeddings[:1])
	assert.ErrorIs(t, err, models.ErrFormat)

	err = index.Insert(ctx, "a", msgs[:1], [][]float32{{1, 2, 3}})
	var mismatch *models.DimensionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, testutils.TestDimensions, mismatch.Expected)
	assert.Equal(t, 3, mismatch.Got)

	require.NoError(t, index.CreateCollection(ctx, "b"))
	err = index.Insert(ctx, "a", msgs[:1], embeddings[:1])
	assert.ErrorIs(t, err, models.ErrNoCollectionLoaded)

	// count does not depend on load state
	count, err = index.Count(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 30, count)

	_, err = index.Count(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestIndexSearch(t *testing.T) {
	ctx := context.Background()
	index, _, embedder := newTestIndex(t)

	_, err := index.Search(ctx, "hello", 5)
	assert.ErrorIs(t, err, models.ErrNoCollectionLoaded)

	require.NoError(t, index.CreateCollection(ctx, "a"))
	msgs := testutils.GenerateMessages(gofakeit.New(2), "alice", 25)
	require.NoError(t, index.Insert(ctx, "a", msgs, embedAll(t, embedder, msgs)))

	hits, err := index.Search(ctx, msgs[7].Content, 5)
	require.NoError(t, err)
	require.Len(t, hits, 5)
	assert.Equal(t, msgs[7].Content, hits[0].Message.Content)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}

	hits, err = index.Search(ctx, "anything", 100)
	require.NoError(t, err)
	assert.Len(t, hits, 25)

	_, err = index.Search(ctx, "anything", 0)
	assert.ErrorIs(t, err, models.ErrFormat)
}

func TestIndexSearchEmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	index, _, embedder := newTestIndex(t)
	require.NoError(t, index.CreateCollection(ctx, "a"))

	embedder.Err = assert.AnError
	_, err := index.Search(ctx, "hello", 5)
	assert.ErrorIs(t, err, models.ErrEmbedding)
}
