package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/tonekit/tonekit/pkg/models"
	"github.com/tonekit/tonekit/pkg/store"
)

var _ store.Backend = &Backend{}

// Backend stores each collection in its own pgvector table, listed in tonekit_collection.
type Backend struct {
	db            *bun.DB
	hnswAvailable bool

	indexLocks      indexLocks
	minRowsForIndex int
}

// NewBackend creates the collection registry if needed and checks which ANN indexes pgvector supports.
func NewBackend(ctx context.Context, db *bun.DB) (*Backend, error) {
	if err := CreateSchema(ctx, db); err != nil {
		return nil, store.NewStorageError("failed to create schema", err)
	}

	hnsw, err := isHNSWAvailable(ctx, db)
	if err != nil {
		return nil, store.NewStorageError("failed to check pgvector version", err)
	}

	return &Backend{db: db, hnswAvailable: hnsw, minRowsForIndex: MinRowsForIndex}, nil
}

func (b *Backend) ListCollections(ctx context.Context) ([]models.Collection, error) {
	var rows []CollectionSchema
	err := b.db.NewSelect().
		Model(&rows).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection list: %w", err)
	}

	collections := make([]models.Collection, len(rows))
	for i := range rows {
		collections[i] = rows[i].toCollection()
	}
	return collections, nil
}

func (b *Backend) GetCollection(ctx context.Context, name string) (models.Collection, error) {
	row, err := b.getCollection(ctx, b.db, name)
	if err != nil {
		return models.Collection{}, err
	}
	return row.toCollection(), nil
}

func (b *Backend) getCollection(ctx context.Context, db bun.IDB, name string) (*CollectionSchema, error) {
	row := new(CollectionSchema)
	err := db.NewSelect().
		Model(row).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFoundError("collection " + name)
		}
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	return row, nil
}

func (b *Backend) CreateCollection(ctx context.Context, collection models.Collection) error {
	indexType := collection.IndexType
	if indexType == store.IndexTypeHNSW && !b.hnswAvailable {
		log.Warnf("hnsw is not available, creating collection %s with ivfflat", collection.Name)
		indexType = store.IndexTypeIVFFlat
	}

	row := &CollectionSchema{
		Name:             collection.Name,
		TableName:        generateTableName(),
		Dimension:        collection.Dimension,
		DistanceFunction: collection.DistanceFunction,
		IndexType:        indexType,
		IsIndexed:        indexType == store.IndexTypeHNSW,
	}

	err := b.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*CollectionSchema)(nil)).
			Where("name = ?", collection.Name).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check collection: %w", err)
		}
		if exists {
			return models.NewAlreadyExistsError("collection " + collection.Name)
		}

		if _, err := tx.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert collection: %w", err)
		}
		if err := createUtteranceTable(ctx, tx, row.TableName, row.Dimension); err != nil {
			return err
		}
		if row.IndexType != store.IndexTypeHNSW {
			// ivfflat is built once the table holds enough rows to train on
			return nil
		}
		return createHNSWIndex(ctx, tx, row.TableName)
	})
	if err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
			return models.NewAlreadyExistsError("collection " + collection.Name)
		}
		return err
	}

	return nil
}

func (b *Backend) DropCollection(ctx context.Context, name string) error {
	return b.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		row, err := b.getCollection(ctx, tx, name)
		if err != nil {
			return err
		}

		_, err = tx.NewDropTable().
			ModelTableExpr("?", bun.Ident(row.TableName)).
			IfExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop utterance table: %w", err)
		}

		_, err = tx.NewDelete().
			Model((*CollectionSchema)(nil)).
			Where("name = ?", name).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
		return nil
	})
}

// Load only checks that the collection exists. Postgres serves every table
// without an explicit load step.
func (b *Backend) Load(ctx context.Context, name string) error {
	if _, err := b.getCollection(ctx, b.db, name); err != nil {
		return err
	}
	log.Debugf("collection %s is served directly by postgres", name)
	return nil
}

func (b *Backend) Release(_ context.Context, name string) error {
	log.Debugf("release of collection %s is a no-op on postgres", name)
	return nil
}

func (b *Backend) Insert(
	ctx context.Context,
	name string,
	msgs []models.Message,
	embeddings [][]float32,
) error {
	collection, err := b.getCollection(ctx, b.db, name)
	if err != nil {
		return err
	}

	rows := make([]UtteranceRow, len(msgs))
	for i, msg := range msgs {
		if len(embeddings[i]) != collection.Dimension {
			return models.NewDimensionMismatchError(collection.Dimension, len(embeddings[i]))
		}
		rows[i] = UtteranceRow{
			ChatroomID: msg.ChatroomID,
			Timestamp:  msg.FormattedTimestamp(),
			Content:    msg.Content,
			Embedding:  pgvector.NewVector(embeddings[i]),
		}
	}

	_, err = b.db.NewInsert().
		Model(&rows).
		ModelTableExpr("?", bun.Ident(collection.TableName)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert utterances: %w", err)
	}

	if collection.IndexType == store.IndexTypeIVFFlat && !collection.IsIndexed {
		// search falls back to an exact scan until the index exists
		if err := b.buildIVFFlatIndexIfReady(ctx, name); err != nil {
			log.Warnf("failed to build ivfflat index for %s: %s", name, err)
		}
	}

	return nil
}

func (b *Backend) Count(ctx context.Context, name string) (int, error) {
	collection, err := b.getCollection(ctx, b.db, name)
	if err != nil {
		return 0, err
	}

	count, err := b.db.NewSelect().
		TableExpr("?", bun.Ident(collection.TableName)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("error counting rows: %w", err)
	}

	return count, nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func (c *CollectionSchema) toCollection() models.Collection {
	return models.Collection{
		Name:             c.Name,
		Dimension:        c.Dimension,
		DistanceFunction: c.DistanceFunction,
		IndexType:        c.IndexType,
		CreatedAt:        c.CreatedAt,
	}
}
