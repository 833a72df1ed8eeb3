package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/oiime/logrusbun"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bunotel"

	"github.com/tonekit/tonekit/internal"
)

var log = internal.GetLogger()

// NewPostgresConn creates a new bun.DB connection to a postgres database using the provided DSN.
// The connection is configured to pool connections based on the number of PROCs available.
// Postgres may still be starting when we are, so the first ping is retried.
func NewPostgresConn(ctx context.Context, dsn string, debug bool) (*bun.DB, error) {
	maxOpenConns := 4 * runtime.GOMAXPROCS(0)

	// WithReadTimeout is generous as ivfflat index builds on large tables are slow
	sqldb := sql.OpenDB(
		pgdriver.NewConnector(
			pgdriver.WithDSN(dsn),
			pgdriver.WithReadTimeout(10*time.Minute),
		),
	)
	sqldb.SetMaxOpenConns(maxOpenConns)
	sqldb.SetMaxIdleConns(maxOpenConns)

	pingRetryPolicy := retrypolicy.Builder[any]().
		WithBackoff(200*time.Millisecond, 5*time.Second).
		WithMaxRetries(10).
		Build()

	err := failsafe.Run(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := sqldb.PingContext(pingCtx); err != nil {
			log.Warnf("postgres is not reachable yet: %s", err)
			return err
		}
		return nil
	}, pingRetryPolicy)
	if err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("error connecting to postgres: %w", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(bunotel.NewQueryHook(bunotel.WithDBName("tonekit")))

	if debug {
		pgDebugLogging(db)
	}

	return db, nil
}

func pgDebugLogging(db *bun.DB) {
	db.AddQueryHook(logrusbun.NewQueryHook(logrusbun.QueryHookOptions{
		LogSlow:         time.Second,
		Logger:          log,
		QueryLevel:      logrus.DebugLevel,
		ErrorLevel:      logrus.ErrorLevel,
		SlowLevel:       logrus.WarnLevel,
		MessageTemplate: "{{.Operation}}[{{.Duration}}]: {{.Query}}",
		ErrorTemplate:   "{{.Operation}}[{{.Duration}}]: {{.Query}}: {{.Error}}",
	}))
}
