package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/viterin/vek/vek32"
	"golang.org/x/sync/errgroup"

	"github.com/tonekit/tonekit/internal"
	"github.com/tonekit/tonekit/pkg/models"
)

const (
	DefaultBatchSize  = 100
	DefaultMaxWorkers = 4
)

var log = internal.GetLogger()

var ErrIngestionInProgress = errors.New("an ingestion is already in progress")

var _ models.IngestLoader = &Loader{}

// Loader embeds messages in batches and inserts them into a collection,
// reporting progress as batches complete. One ingestion runs at a time.
type Loader struct {
	index      models.VectorIndex
	embedder   models.Embedder
	BatchSize  int
	MaxWorkers int

	mu       sync.Mutex
	running  bool
	progress models.IngestionProgress
}

func NewLoader(index models.VectorIndex, embedder models.Embedder, batchSize, maxWorkers int) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	return &Loader{
		index:      index,
		embedder:   embedder,
		BatchSize:  batchSize,
		MaxWorkers: maxWorkers,
		progress:   models.NotStartedProgress(),
	}
}

// GetProgress returns the latest progress snapshot.
func (l *Loader) GetProgress() models.IngestionProgress {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.progress
}

// LoadMessages loads collection, then embeds and inserts msgs in the background.
// The returned channel receives a processing event per completed batch in completion
// order and is closed after a single completed or error event. Cancelling ctx stops
// new batches from starting and ends the run with an error event.
func (l *Loader) LoadMessages(
	ctx context.Context,
	collection string,
	msgs []models.Message,
) (<-chan models.IngestionProgress, error) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil, ErrIngestionInProgress
	}
	l.running = true
	l.progress = models.ProcessingProgress(0, len(msgs))
	l.mu.Unlock()

	batches := chunk(msgs, l.BatchSize)
	// sized so that sends never block on a slow or absent reader
	events := make(chan models.IngestionProgress, len(batches)+1)

	go l.run(ctx, collection, msgs, batches, events)

	return events, nil
}

func (l *Loader) run(
	ctx context.Context,
	collection string,
	msgs []models.Message,
	batches [][]models.Message,
	events chan<- models.IngestionProgress,
) {
	defer close(events)
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	total := len(msgs)
	runLog := log.WithFields(logrus.Fields{
		"run_id":     uuid.New().String(),
		"collection": collection,
	})
	runLog.Infof("Starting ingestion of %d messages in %d batches", total, len(batches))

	if err := l.index.LoadCollection(ctx, collection); err != nil {
		runLog.Errorf("Failed to load collection: %s", err)
		l.emit(events, models.ErrorProgress(err))
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.MaxWorkers)

	done := make(chan int, len(batches))
	var waitErr error
	go func() {
		defer close(done)
		for _, batch := range batches {
			if gctx.Err() != nil {
				break
			}
			batch := batch
			g.Go(func() error {
				if err := l.processBatch(gctx, collection, batch); err != nil {
					return err
				}
				done <- len(batch)
				return nil
			})
		}
		waitErr = g.Wait()
	}()

	processed := 0
	for n := range done {
		processed += n
		runLog.Debugf("Processed %d/%d messages", processed, total)
		l.emit(events, models.ProcessingProgress(processed, total))
	}

	// done is closed after g.Wait returns, so waitErr is visible here. A cancel
	// that lands after the last batch does not fail the run.
	err := waitErr
	if err == nil && processed < total {
		err = ctx.Err()
	}
	if err != nil {
		runLog.Errorf("Ingestion failed after %d/%d messages: %s", processed, total, err)
		l.emit(events, models.ErrorProgress(err))
		return
	}

	runLog.Infof("Ingested %d messages", total)
	l.emit(events, models.CompletedProgress(total))
}

func (l *Loader) processBatch(ctx context.Context, collection string, batch []models.Message) error {
	// a failed sibling cancels ctx; do not start work for this batch
	if err := ctx.Err(); err != nil {
		return err
	}

	texts := make([]string, len(batch))
	for i, msg := range batch {
		texts[i] = msg.Content
	}

	embeddings, err := l.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}
	if len(embeddings) != len(batch) {
		return models.NewEmbeddingError(
			fmt.Sprintf("expected %d embeddings, got %d", len(batch), len(embeddings)),
			nil,
		)
	}
	for _, e := range embeddings {
		normalize(e)
	}

	return l.index.Insert(ctx, collection, batch, embeddings)
}

func (l *Loader) emit(events chan<- models.IngestionProgress, p models.IngestionProgress) {
	l.mu.Lock()
	l.progress = p
	l.mu.Unlock()

	events <- p
}

// normalize scales v to unit length in place. Zero vectors are left alone.
func normalize(v []float32) {
	if norm := vek32.Norm(v); norm > 0 {
		vek32.DivNumber_Inplace(v, norm)
	}
}

func chunk(msgs []models.Message, size int) [][]models.Message {
	batches := make([][]models.Message, 0, (len(msgs)+size-1)/size)
	for start := 0; start < len(msgs); start += size {
		end := min(start+size, len(msgs))
		batches = append(batches, msgs[start:end])
	}
	return batches
}
