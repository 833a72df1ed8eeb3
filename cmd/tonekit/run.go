package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tonekit/tonekit/config"
	"github.com/tonekit/tonekit/pkg/ingest"
	"github.com/tonekit/tonekit/pkg/llms"
	"github.com/tonekit/tonekit/pkg/models"
	"github.com/tonekit/tonekit/pkg/server"
	"github.com/tonekit/tonekit/pkg/store"
	"github.com/tonekit/tonekit/pkg/store/memory"
	"github.com/tonekit/tonekit/pkg/store/postgres"
	"github.com/tonekit/tonekit/pkg/style"
	"github.com/tonekit/tonekit/pkg/telemetry"
)

const shutdownTimeout = 10 * time.Second

// run is the entrypoint for the tonekit server
func run() {
	cfg := loadConfig()

	log.Infof("Starting tonekit server version %s", config.VersionString)

	ctx := context.Background()
	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTel)
	if err != nil {
		log.Fatal(err)
	}

	appState, err := NewAppState(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}

	srv := server.Create(appState)
	setupSignalHandler(appState, srv, shutdownTracing)

	log.Infof("Listening on: %s", srv.Addr)
	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// loadConfig loads and validates the config, applies the log level and handles CLI
// options that don't require the server to run.
func loadConfig() *config.Config {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		log.Fatalf("Error configuring tonekit: %s", err)
	}

	handleCLIOptions(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %s", err)
	}
	config.SetLogLevel(cfg)

	return cfg
}

// NewAppState creates the model clients, the similarity index and the services
// built on it from the config file / ENV.
func NewAppState(ctx context.Context, cfg *config.Config) (*models.AppState, error) {
	embedder, err := llms.NewEmbeddingsClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	generator, err := llms.NewLLMClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	index := store.NewIndex(backend, embedder, cfg.Store.Postgres.IndexType)

	converter, err := style.NewConverter(generator, cfg.Style.MaxSimilarTokens)
	if err != nil {
		return nil, err
	}

	return &models.AppState{
		Config:    cfg,
		Embedder:  embedder,
		Generator: generator,
		Index:     index,
		Loader:    ingest.NewLoader(index, embedder, cfg.Ingest.BatchSize, cfg.Ingest.MaxWorkers),
		Converter: converter,
	}, nil
}

// newBackend initializes the index backend based on the config file / ENV
func newBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.Store.Type {
	case config.StoreTypePostgres:
		db, err := postgres.NewPostgresConn(ctx, cfg.Store.Postgres.DSN, cfg.Log.Level == "debug")
		if err != nil {
			return nil, err
		}
		backend, err := postgres.NewBackend(ctx, db)
		if err != nil {
			return nil, err
		}
		log.Info("Using store: postgres")
		return backend, nil
	case config.StoreTypeMemory:
		log.Warn("Using store: memory. Collections are lost on restart")
		return memory.NewBackend(), nil
	default:
		return nil, fmt.Errorf("store.type (%s) is not supported", cfg.Store.Type)
	}
}

// handleCLIOptions handles CLI options that don't require the server to run
func handleCLIOptions(cfg *config.Config) {
	if showVersion {
		fmt.Println(config.VersionString)
		os.Exit(0)
	}
	if dumpConfig {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			log.Fatalf("Error dumping config: %s", err)
		}
		fmt.Print(string(out))
		os.Exit(0)
	}
}

// setupSignalHandler shuts the server down and closes the index on termination
func setupSignalHandler(appState *models.AppState, srv *http.Server, shutdownTracing telemetry.ShutdownFunc) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Errorf("Error shutting down server: %v", err)
		}
		if err := appState.Index.Close(); err != nil {
			log.Errorf("Error closing index: %v", err)
		}
		if err := shutdownTracing(ctx); err != nil {
			log.Errorf("Error flushing traces: %v", err)
		}
	}()
}
