package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"

	"github.com/tonekit/tonekit/pkg/models"
	"github.com/tonekit/tonekit/pkg/store"
)

// minEFSearch is pgvector's default hnsw.ef_search
const minEFSearch = 40

type searchRow struct {
	ChatroomID int64   `bun:"chatroom_id"`
	Timestamp  string  `bun:"timestamp"`
	Content    string  `bun:"content"`
	Score      float64 `bun:"score"`
}

func (b *Backend) Search(
	ctx context.Context,
	name string,
	vector []float32,
	topK int,
) ([]models.SearchHit, error) {
	collection, err := b.getCollection(ctx, b.db, name)
	if err != nil {
		return nil, err
	}
	if len(vector) != collection.Dimension {
		return nil, models.NewDimensionMismatchError(collection.Dimension, len(vector))
	}

	var rows []searchRow
	// run in transaction to scope the search settings to this query
	err = b.db.RunInTx(ctx, &sql.TxOptions{ReadOnly: true}, func(ctx context.Context, tx bun.Tx) error {
		if err := setSearchParams(ctx, tx, collection, topK); err != nil {
			return fmt.Errorf("error setting search parameters: %w", err)
		}

		v := pgvector.NewVector(vector)
		// Cosine similarity is 1 - cosine distance
		return tx.NewSelect().
			TableExpr("? AS u", bun.Ident(collection.TableName)).
			ColumnExpr("u.chatroom_id, u.timestamp, u.content").
			ColumnExpr("1 - (u.embedding <=> ?) AS score", v).
			OrderExpr("u.embedding <=> ? ASC", v).
			Limit(topK).
			Scan(ctx, &rows)
	})
	if err != nil {
		return nil, fmt.Errorf("error searching collection: %w", err)
	}

	hits := make([]models.SearchHit, 0, len(rows))
	for _, r := range rows {
		ts, err := time.Parse(models.TimestampLayout, r.Timestamp)
		if err != nil {
			log.Warnf("stored utterance has an invalid timestamp %q: %s", r.Timestamp, err)
		}
		hits = append(hits, models.SearchHit{
			Message: models.Message{
				ChatroomID: r.ChatroomID,
				Timestamp:  ts,
				Content:    r.Content,
			},
			Score: r.Score,
		})
	}

	return hits, nil
}

// setSearchParams tunes the ANN index for one query. An ivfflat collection
// without its index is searched exactly and needs no settings.
func setSearchParams(ctx context.Context, tx bun.Tx, collection *CollectionSchema, topK int) error {
	var err error
	switch {
	case collection.IndexType == store.IndexTypeHNSW:
		_, err = tx.ExecContext(ctx, "SET LOCAL hnsw.ef_search = ?", max(topK, minEFSearch))
	case collection.IsIndexed:
		_, err = tx.ExecContext(ctx, "SET LOCAL ivfflat.probes = ?", max(collection.ProbeCount, 1))
	}
	return err
}
