package config

import "time"

// Config holds the configuration of the application
// Use config.LoadConfig to create a new instance
type Config struct {
	LLM        LLM              `mapstructure:"llm"        yaml:"llm"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings" yaml:"embeddings"`
	Store      StoreConfig      `mapstructure:"store"      yaml:"store"`
	Ingest     IngestConfig     `mapstructure:"ingest"     yaml:"ingest"`
	Style      StyleConfig      `mapstructure:"style"      yaml:"style"`
	Server     ServerConfig     `mapstructure:"server"     yaml:"server"`
	Log        LogConfig        `mapstructure:"log"        yaml:"log"`
	OTel       OTelConfig       `mapstructure:"otel"       yaml:"otel"`
}

type LLM struct {
	Service string `mapstructure:"service" yaml:"service" jsonschema:"enum=openai,enum=anthropic"`
	Model   string `mapstructure:"model"   yaml:"model"`
	// OpenAIAPIKey is loaded from ENV not config file.
	OpenAIAPIKey string `mapstructure:"openai_api_key" yaml:"-"`
	// AnthropicAPIKey is loaded from ENV not config file.
	AnthropicAPIKey     string `mapstructure:"anthropic_api_key"     yaml:"-"`
	OpenAIEndpoint      string `mapstructure:"openai_endpoint"       yaml:"openai_endpoint"`
	OpenAIOrgID         string `mapstructure:"openai_org_id"         yaml:"openai_org_id"`
	AzureOpenAIEndpoint string `mapstructure:"azure_openai_endpoint" yaml:"azure_openai_endpoint"`
	MaxTokens           int    `mapstructure:"max_tokens"            yaml:"max_tokens"`
}

type EmbeddingsConfig struct {
	Service    string `mapstructure:"service"    yaml:"service"    jsonschema:"enum=openai,enum=local"`
	Model      string `mapstructure:"model"      yaml:"model"`
	Dimensions int    `mapstructure:"dimensions" yaml:"dimensions"`
	// ServerURL is the base URL of the local embedding server
	ServerURL string `mapstructure:"server_url" yaml:"server_url"`
	// OpenAIAPIKey is loaded from ENV not config file.
	OpenAIAPIKey        string `mapstructure:"openai_api_key"        yaml:"-"`
	OpenAIEndpoint      string `mapstructure:"openai_endpoint"       yaml:"openai_endpoint"`
	AzureOpenAIEndpoint string `mapstructure:"azure_openai_endpoint" yaml:"azure_openai_endpoint"`
}

type StoreConfig struct {
	Type     string         `mapstructure:"type"     yaml:"type" jsonschema:"enum=postgres,enum=memory"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

type PostgresConfig struct {
	DSN       string `mapstructure:"dsn"        yaml:"-"`
	IndexType string `mapstructure:"index_type" yaml:"index_type" jsonschema:"enum=ivfflat,enum=hnsw"`
}

type IngestConfig struct {
	BatchSize       int `mapstructure:"batch_size"        yaml:"batch_size"`
	MaxWorkers      int `mapstructure:"max_workers"       yaml:"max_workers"`
	MergeGapSeconds int `mapstructure:"merge_gap_seconds" yaml:"merge_gap_seconds"`
}

// MergeGap returns the merge window as a duration
func (c IngestConfig) MergeGap() time.Duration {
	return time.Duration(c.MergeGapSeconds) * time.Second
}

type StyleConfig struct {
	ConvertTopK int `mapstructure:"convert_top_k" yaml:"convert_top_k"`
	// MaxSimilarTokens caps the tokens spent on similar utterances. 0 disables the cap.
	MaxSimilarTokens int `mapstructure:"max_similar_tokens" yaml:"max_similar_tokens"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"          yaml:"host"`
	Port         int           `mapstructure:"port"          yaml:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"  yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

type OTelConfig struct {
	Enabled     bool   `mapstructure:"enabled"      yaml:"enabled"`
	Endpoint    string `mapstructure:"endpoint"     yaml:"endpoint"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
}
