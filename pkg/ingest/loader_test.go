package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viterin/vek/vek32"

	"github.com/tonekit/tonekit/pkg/models"
	"github.com/tonekit/tonekit/pkg/store"
	"github.com/tonekit/tonekit/pkg/store/memory"
	"github.com/tonekit/tonekit/pkg/testutils"
)

func newTestLoader(
	t *testing.T,
	embedder models.Embedder,
	batchSize, maxWorkers int,
) (*Loader, *store.Index) {
	t.Helper()
	index := store.NewIndex(memory.NewBackend(), embedder, store.IndexTypeIVFFlat)
	require.NoError(t, index.CreateCollection(context.Background(), "alice"))
	return NewLoader(index, embedder, batchSize, maxWorkers), index
}

func collect(t *testing.T, events <-chan models.IngestionProgress) []models.IngestionProgress {
	t.Helper()
	var out []models.IngestionProgress
	timeout := time.After(10 * time.Second)
	for {
		select {
		case p, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, p)
		case <-timeout:
			t.Fatal("timed out waiting for ingestion events")
		}
	}
}

func TestLoadMessages(t *testing.T) {
	embedder := testutils.NewFakeEmbedder(testutils.TestDimensions)
	loader, index := newTestLoader(t, embedder, 100, 4)
	msgs := testutils.GenerateMessages(gofakeit.New(11), "alice", 250)

	events, err := loader.LoadMessages(context.Background(), "alice", msgs)
	require.NoError(t, err)
	got := collect(t, events)

	require.Len(t, got, 4)
	last := 0
	for _, p := range got[:3] {
		assert.Equal(t, models.ProgressProcessing, p.Status)
		assert.Equal(t, 250, p.Total)
		assert.Greater(t, p.Processed, last)
		last = p.Processed
	}
	assert.Equal(t, models.CompletedProgress(250), got[3])
	assert.Equal(t, 100.0, got[3].Percentage)

	count, err := index.Count(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 250, count)

	assert.Equal(t, models.CompletedProgress(250), loader.GetProgress())
	assert.Equal(t, 3, embedder.Calls())
}

func TestLoadMessagesStoresNormalizedVectors(t *testing.T) {
	embedder := &scalingEmbedder{FakeEmbedder: testutils.NewFakeEmbedder(testutils.TestDimensions)}
	_, index := newTestLoader(t, embedder, 10, 2)
	spy := &recordingIndex{Index: index}
	loader := NewLoader(spy, embedder, 10, 2)
	msgs := testutils.GenerateMessages(gofakeit.New(12), "alice", 15)

	events, err := loader.LoadMessages(context.Background(), "alice", msgs)
	require.NoError(t, err)
	got := collect(t, events)
	require.Equal(t, models.ProgressCompleted, got[len(got)-1].Status)

	spy.mu.Lock()
	defer spy.mu.Unlock()
	require.Len(t, spy.embeddings, 15)
	for _, e := range spy.embeddings {
		assert.InDelta(t, 1.0, vek32.Norm(e), 1e-5)
	}
}

func TestLoadMessagesFailureStopsDispatch(t *testing.T) {
	embedder := testutils.NewFakeEmbedder(testutils.TestDimensions)
	embedder.FailAfter = 1
	loader, index := newTestLoader(t, embedder, 100, 1)
	msgs := testutils.GenerateMessages(gofakeit.New(13), "alice", 500)

	events, err := loader.LoadMessages(context.Background(), "alice", msgs)
	require.NoError(t, err)
	got := collect(t, events)

	require.Len(t, got, 2)
	assert.Equal(t, models.ProcessingProgress(100, 500), got[0])
	assert.Equal(t, models.ProgressError, got[1].Status)
	assert.NotEmpty(t, got[1].Error)
	assert.Equal(t, 2, embedder.Calls())

	count, err := index.Count(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 100, count)

	assert.Equal(t, models.ProgressError, loader.GetProgress().Status)
}

func TestLoadMessagesMissingCollection(t *testing.T) {
	embedder := testutils.NewFakeEmbedder(testutils.TestDimensions)
	loader, _ := newTestLoader(t, embedder, 100, 4)

	events, err := loader.LoadMessages(context.Background(), "bob", nil)
	require.NoError(t, err)
	got := collect(t, events)

	require.Len(t, got, 1)
	assert.Equal(t, models.ProgressError, got[0].Status)
	assert.Contains(t, got[0].Error, "not found")
}

func TestLoadMessagesCancelled(t *testing.T) {
	embedder := testutils.NewFakeEmbedder(testutils.TestDimensions)
	loader, _ := newTestLoader(t, embedder, 100, 4)
	msgs := testutils.GenerateMessages(gofakeit.New(14), "alice", 300)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events, err := loader.LoadMessages(ctx, "alice", msgs)
	require.NoError(t, err)
	got := collect(t, events)

	require.NotEmpty(t, got)
	terminal := got[len(got)-1]
	assert.Equal(t, models.ProgressError, terminal.Status)
	assert.Equal(t, context.Canceled.Error(), terminal.Error)
}

func TestLoadMessagesCancelledAfterLastBatch(t *testing.T) {
	embedder := testutils.NewFakeEmbedder(testutils.TestDimensions)
	_, index := newTestLoader(t, embedder, 100, 2)
	msgs := testutils.GenerateMessages(gofakeit.New(16), "alice", 300)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	spy := &cancelingIndex{Index: index, cancel: cancel, remaining: 3}
	loader := NewLoader(spy, embedder, 100, 2)

	events, err := loader.LoadMessages(ctx, "alice", msgs)
	require.NoError(t, err)
	got := collect(t, events)

	require.Len(t, got, 4)
	assert.Error(t, ctx.Err())
	assert.Equal(t, models.CompletedProgress(300), got[3])
}

func TestLoadMessagesOneAtATime(t *testing.T) {
	embedder := &blockingEmbedder{
		FakeEmbedder: testutils.NewFakeEmbedder(testutils.TestDimensions),
		release:      make(chan struct{}),
	}
	loader, _ := newTestLoader(t, embedder, 100, 1)
	msgs := testutils.GenerateMessages(gofakeit.New(15), "alice", 10)

	events, err := loader.LoadMessages(context.Background(), "alice", msgs)
	require.NoError(t, err)

	_, err = loader.LoadMessages(context.Background(), "alice", msgs)
	assert.ErrorIs(t, err, ErrIngestionInProgress)

	close(embedder.release)
	got := collect(t, events)
	assert.Equal(t, models.CompletedProgress(10), got[len(got)-1])

	// the loader accepts a new run once the previous one has finished
	events, err = loader.LoadMessages(context.Background(), "alice", msgs)
	require.NoError(t, err)
	collect(t, events)
}

func TestGetProgressNotStarted(t *testing.T) {
	loader := NewLoader(nil, nil, 0, 0)

	first := loader.GetProgress()
	assert.Equal(t, models.NotStartedProgress(), first)
	assert.Equal(t, first, loader.GetProgress())
	assert.Equal(t, DefaultBatchSize, loader.BatchSize)
	assert.Equal(t, DefaultMaxWorkers, loader.MaxWorkers)
}

func TestChunk(t *testing.T) {
	msgs := make([]models.Message, 250)
	batches := chunk(msgs, 100)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 100)
	assert.Len(t, batches[2], 50)
	assert.Empty(t, chunk(nil, 100))
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	normalize(v)
	assert.InDelta(t, 1.0, vek32.Norm(v), 1e-6)

	zero := []float32{0, 0}
	normalize(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}

// scalingEmbedder returns vectors that are not unit length.
type scalingEmbedder struct {
	*testutils.FakeEmbedder
}

func (s *scalingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := s.FakeEmbedder.EmbedTexts(ctx, texts)
	for _, v := range out {
		vek32.MulNumber_Inplace(v, 7)
	}
	return out, err
}

// recordingIndex keeps a copy of every inserted embedding.
type recordingIndex struct {
	*store.Index

	mu         sync.Mutex
	embeddings [][]float32
}

func (r *recordingIndex) Insert(
	ctx context.Context,
	name string,
	msgs []models.Message,
	embeddings [][]float32,
) error {
	r.mu.Lock()
	r.embeddings = append(r.embeddings, embeddings...)
	r.mu.Unlock()
	return r.Index.Insert(ctx, name, msgs, embeddings)
}

// cancelingIndex calls cancel once the last expected batch is stored.
type cancelingIndex struct {
	*store.Index
	cancel context.CancelFunc

	mu        sync.Mutex
	remaining int
}

func (c *cancelingIndex) Insert(
	ctx context.Context,
	name string,
	msgs []models.Message,
	embeddings [][]float32,
) error {
	if err := c.Index.Insert(ctx, name, msgs, embeddings); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remaining--
	if c.remaining == 0 {
		c.cancel()
	}
	return nil
}

// blockingEmbedder waits for release before embedding.
type blockingEmbedder struct {
	*testutils.FakeEmbedder
	release chan struct{}
}

func (b *blockingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	<-b.release
	return b.FakeEmbedder.EmbedTexts(ctx, texts)
}
