package postgres

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/uptrace/bun"
)

const IndexTimeout = 1 * time.Hour

// MinRowsForIndex is the minimum number of rows required to create an ivfflat index.
// pgvector trains the lists on the rows present at build time, so an index built on
// an empty or small table leaves most lists empty.
const MinRowsForIndex = 10000

// vectorColIndex sizes and builds the deferred ivfflat index of one collection.
type vectorColIndex struct {
	collection *CollectionSchema
	RowCount   int
	ListCount  int
	ProbeCount int
}

func (vci *vectorColIndex) CountRows(ctx context.Context, db bun.IDB) error {
	count, err := db.NewSelect().
		TableExpr("?", bun.Ident(vci.collection.TableName)).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("error counting rows: %w", err)
	}

	vci.RowCount = count

	return nil
}

// CalculateListCount calculates the number of lists to use for the index.
func (vci *vectorColIndex) CalculateListCount() error {
	if vci.RowCount <= 0 {
		return fmt.Errorf("rows must be greater than 0")
	}

	switch {
	case vci.RowCount <= 1000:
		vci.ListCount = 1
	case vci.RowCount <= 1_000_000:
		vci.ListCount = vci.RowCount / 1000
	default:
		vci.ListCount = int(math.Sqrt(float64(vci.RowCount)))
	}

	return nil
}

// CalculateProbes sets the probe count to sqrt(lists).
func (vci *vectorColIndex) CalculateProbes() error {
	if vci.ListCount <= 0 {
		return fmt.Errorf("lists must be greater than 0")
	}
	vci.ProbeCount = max(int(math.Sqrt(float64(vci.ListCount))), 1)

	return nil
}

// CreateIndex builds the ivfflat index and records its sizing in the registry.
func (vci *vectorColIndex) CreateIndex(ctx context.Context, db *bun.DB) error {
	ctx, cancel := context.WithTimeout(ctx, IndexTimeout)
	defer cancel()

	idx := vectorIndexName(vci.collection.TableName, vci.collection.IndexType)

	log.Infof(
		"Starting ivfflat index creation on %s with %d lists for %d rows",
		vci.collection.Name,
		vci.ListCount,
		vci.RowCount,
	)
	_, err := db.ExecContext(
		ctx,
		"CREATE INDEX IF NOT EXISTS ? ON ? USING ivfflat (embedding vector_cosine_ops) WITH (lists = ?)",
		bun.Ident(idx),
		bun.Ident(vci.collection.TableName),
		vci.ListCount,
	)
	if err != nil {
		return fmt.Errorf("error creating ivfflat index: %w", err)
	}

	vci.collection.IsIndexed = true
	vci.collection.ListCount = vci.ListCount
	vci.collection.ProbeCount = vci.ProbeCount
	_, err = db.NewUpdate().
		Model(vci.collection).
		Column("is_indexed", "list_count", "probe_count").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("error updating collection: %w", err)
	}

	log.Infof("Index creation on %s completed successfully", vci.collection.Name)

	return nil
}

func newVectorColIndex(
	ctx context.Context,
	db bun.IDB,
	collection *CollectionSchema,
) (*vectorColIndex, error) {
	vci := &vectorColIndex{collection: collection}

	if err := vci.CountRows(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}
	if vci.RowCount == 0 {
		return vci, nil
	}

	if err := vci.CalculateListCount(); err != nil {
		return nil, fmt.Errorf("failed to calculate list count: %w", err)
	}

	if err := vci.CalculateProbes(); err != nil {
		return nil, fmt.Errorf("failed to calculate probes: %w", err)
	}

	return vci, nil
}

// indexLocks holds one mutex per collection name.
type indexLocks struct {
	m sync.Map
}

func (l *indexLocks) get(name string) *sync.Mutex {
	mu, _ := l.m.LoadOrStore(name, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// buildIVFFlatIndexIfReady creates the ivfflat index of a collection once it
// holds at least minRowsForIndex rows. Collections that are already indexed or
// use hnsw are left alone.
func (b *Backend) buildIVFFlatIndexIfReady(ctx context.Context, name string) error {
	mu := b.indexLocks.get(name)
	mu.Lock()
	defer mu.Unlock()

	// re-read under the lock, another insert may have built the index
	collection, err := b.getCollection(ctx, b.db, name)
	if err != nil {
		return err
	}
	if collection.IsIndexed {
		return nil
	}

	vci, err := newVectorColIndex(ctx, b.db, collection)
	if err != nil {
		return err
	}
	if vci.RowCount < b.minRowsForIndex {
		log.Debugf(
			"collection %s has %d of %d rows needed for an ivfflat index",
			name,
			vci.RowCount,
			b.minRowsForIndex,
		)
		return nil
	}

	return vci.CreateIndex(ctx, b.db)
}

func vectorIndexName(tableName, indexType string) string {
	return tableName + "_embedding_" + indexType + "_idx"
}
