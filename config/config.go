package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tonekit/tonekit/internal"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// We're bootstrapping so avoid any imports from other packages
var log = logrus.New()

var (
	ErrStoreTypeNotSet   = errors.New("store.type must be set")
	ErrPostgresDSNNotSet = errors.New("store.postgres.dsn must be set")
)

const (
	StoreTypePostgres = "postgres"
	StoreTypeMemory   = "memory"
)

// LoadConfig loads the config file and ENV variables into a Config struct
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}

	v.SetConfigType("yaml")

	v.SetEnvPrefix("TONEKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// a missing default config file is fine, everything can come from ENV
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, err
		}
		log.Warn("config.yaml not found, using defaults and environment")
	}

	// Environment variables take precedence over config file
	loadDotEnv()

	bindings := map[string]string{
		"llm.openai_api_key":        "TONEKIT_OPENAI_API_KEY",
		"llm.anthropic_api_key":     "TONEKIT_ANTHROPIC_API_KEY",
		"embeddings.openai_api_key": "TONEKIT_EMBEDDINGS_OPENAI_API_KEY",
		"store.postgres.dsn":        "TONEKIT_POSTGRES_DSN",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.service", "openai")
	v.SetDefault("llm.model", "gpt-4.1")
	v.SetDefault("embeddings.service", "local")
	v.SetDefault("embeddings.model", "BAAI/bge-m3")
	v.SetDefault("embeddings.dimensions", 1024)
	v.SetDefault("embeddings.server_url", "http://localhost:5557")
	v.SetDefault("store.type", StoreTypePostgres)
	v.SetDefault("store.postgres.index_type", "ivfflat")
	v.SetDefault("ingest.batch_size", 100)
	v.SetDefault("ingest.max_workers", 4)
	v.SetDefault("ingest.merge_gap_seconds", 10)
	v.SetDefault("style.convert_top_k", 20)
	v.SetDefault("style.max_similar_tokens", 0)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("log.level", "info")
	v.SetDefault("otel.service_name", "tonekit")
}

// Validate checks the settings that the server cannot start without
func (c *Config) Validate() error {
	switch c.Store.Type {
	case "":
		return ErrStoreTypeNotSet
	case StoreTypePostgres:
		if c.Store.Postgres.DSN == "" {
			return ErrPostgresDSNNotSet
		}
	case StoreTypeMemory:
	default:
		return fmt.Errorf("store.type (%s) is not supported", c.Store.Type)
	}

	if c.Embeddings.Dimensions <= 0 {
		return errors.New("embeddings.dimensions must be greater than 0")
	}
	if c.Ingest.BatchSize <= 0 || c.Ingest.MaxWorkers <= 0 {
		return errors.New("ingest.batch_size and ingest.max_workers must be greater than 0")
	}
	if c.Style.ConvertTopK <= 0 {
		return errors.New("style.convert_top_k must be greater than 0")
	}

	return nil
}

// loadDotEnv loads environment variables from .env file
func loadDotEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Warn(".env file not found or unable to load")
	}
}

// SetLogLevel sets the log level based on the config file. Defaults to INFO if not set or invalid
func SetLogLevel(cfg *Config) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	internal.SetLogLevel(level)
	log.Info("Log level set to: ", level)
}
