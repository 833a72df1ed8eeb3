package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"

	"github.com/tonekit/tonekit/pkg/store"
)

// CollectionSchema is the registry of collections. Each collection owns one utterance table.
type CollectionSchema struct {
	bun.BaseModel `bun:"table:tonekit_collection,alias:tc"`

	UUID             uuid.UUID `bun:",pk,type:uuid,default:gen_random_uuid()"`
	CreatedAt        time.Time `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp"`
	Name             string    `bun:",notnull,unique"`
	TableName        string    `bun:",notnull,unique"`
	Dimension        int       `bun:",notnull"`
	DistanceFunction string    `bun:",notnull"`
	IndexType        string    `bun:",notnull"`
	IsIndexed        bool      `bun:",notnull,default:false"`
	ListCount        int       `bun:",notnull,default:0"`
	ProbeCount       int       `bun:",notnull,default:0"`
}

// UtteranceSchemaTemplate is the table template for a collection. The embedding
// column is added when the table is created so that it carries the collection's dimension.
type UtteranceSchemaTemplate struct {
	bun.BaseModel `bun:"table:utterance,alias:u"`

	ID         int64  `bun:",pk,autoincrement"`
	ChatroomID int64  `bun:",notnull"`
	Timestamp  string `bun:",notnull"`
	Content    string `bun:",notnull"`
}

// UtteranceRow is a row as inserted, embedding included.
type UtteranceRow struct {
	bun.BaseModel `bun:"table:utterance,alias:u"`

	ID         int64           `bun:",pk,autoincrement"`
	ChatroomID int64           `bun:",notnull"`
	Timestamp  string          `bun:",notnull"`
	Content    string          `bun:",notnull"`
	Embedding  pgvector.Vector `bun:"type:vector"`
}

func enablePgVectorExtension(ctx context.Context, db *bun.DB) error {
	_, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("error creating pgvector extension: %w", err)
	}

	_, err = db.ExecContext(ctx, "ALTER EXTENSION vector UPDATE")
	if err != nil {
		return fmt.Errorf("error updating pgvector extension: %w", err)
	}

	return nil
}

// CreateSchema enables pgvector and creates the collection registry.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	if err := enablePgVectorExtension(ctx, db); err != nil {
		return err
	}

	_, err := db.NewCreateTable().
		Model((*CollectionSchema)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("error creating collection registry: %w", err)
	}

	return nil
}

func createUtteranceTable(ctx context.Context, db bun.IDB, tableName string, dimension int) error {
	_, err := db.NewCreateTable().
		Model((*UtteranceSchemaTemplate)(nil)).
		ModelTableExpr("?", bun.Ident(tableName)).
		ColumnExpr("embedding vector(?)", dimension).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("error creating utterance table: %w", err)
	}

	return nil
}

// createHNSWIndex builds the hnsw index of a new collection.
func createHNSWIndex(ctx context.Context, db bun.IDB, tableName string) error {
	const (
		m              = 16
		efConstruction = 64
	)

	_, err := db.ExecContext(
		ctx,
		"CREATE INDEX ? ON ? USING hnsw (embedding vector_cosine_ops) WITH (M = ?, ef_construction = ?)",
		bun.Ident(vectorIndexName(tableName, store.IndexTypeHNSW)),
		bun.Ident(tableName),
		m,
		efConstruction,
	)
	if err != nil {
		return fmt.Errorf("error creating hnsw index: %w", err)
	}

	log.Infof("created hnsw index on %s", tableName)

	return nil
}

// isHNSWAvailable checks if the vector extension version is 0.5.0+.
func isHNSWAvailable(ctx context.Context, db *bun.DB) (bool, error) {
	const minVersion = "0.5.0"
	requiredVersion, err := semver.NewVersion(minVersion)
	if err != nil {
		return false, fmt.Errorf("error parsing required vector extension version: %w", err)
	}

	var version string
	err = db.NewSelect().
		Column("extversion").
		TableExpr("pg_extension").
		Where("extname = 'vector'").
		Scan(ctx, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("vector extension not installed")
			return false, nil
		}
		return false, fmt.Errorf("error checking vector extension version: %w", err)
	}

	thisVersion, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("error parsing vector extension version: %w", err)
	}

	if requiredVersion.GreaterThan(thisVersion) {
		log.Infof("vector extension version is < %s. hnsw indexing not available", minVersion)
		return false, nil
	}

	log.Infof("vector extension version is >= %s. hnsw indexing available", minVersion)

	return true, nil
}

// generateTableName returns a unique table name. Collection names are user input
// and may not be valid identifiers.
func generateTableName() string {
	return "tonekit_utt_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}
