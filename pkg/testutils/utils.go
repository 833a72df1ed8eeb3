package testutils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/tonekit/tonekit/config"
	"github.com/tonekit/tonekit/pkg/models"
)

// TestDimensions is the vector length produced by FakeEmbedder in tests.
const TestDimensions = 64

// NewTestConfig returns a config using the memory store and small dimensions.
func NewTestConfig() *config.Config {
	return &config.Config{
		LLM:        config.LLM{Service: "openai", Model: "gpt-4.1"},
		Embeddings: config.EmbeddingsConfig{Service: "local", Dimensions: TestDimensions},
		Store:      config.StoreConfig{Type: config.StoreTypeMemory},
		Ingest:     config.IngestConfig{BatchSize: 100, MaxWorkers: 4, MergeGapSeconds: 10},
		Style:      config.StyleConfig{ConvertTopK: 20},
		Server:     config.ServerConfig{Host: "127.0.0.1", Port: 8000},
		Log:        config.LogConfig{Level: "warn"},
	}
}

// GetDSN returns the postgres DSN for integration tests, or "" when none is configured.
func GetDSN() string {
	return os.Getenv("TONEKIT_TEST_POSTGRES_DSN")
}

// GenerateMessages returns n messages from sender, one per minute, with fake content.
func GenerateMessages(faker *gofakeit.Faker, sender string, n int) []models.Message {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	msgs := make([]models.Message, n)
	for i := range msgs {
		msgs[i] = models.Message{
			ChatroomID: 1,
			Timestamp:  start.Add(time.Duration(i) * time.Minute),
			Sender:     sender,
			Content:    fmt.Sprintf("%d %s", i, faker.Sentence(6)),
		}
	}
	return msgs
}

const charset = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateRandomString returns a lower case alphanumeric string, handy for collection names.
func GenerateRandomString(length int) string {
	b := make([]byte, length)
	for i := range b {
		bigInt, _ := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		b[i] = charset[bigInt.Int64()]
	}
	return string(b)
}
