package llms

import (
	"context"
	"fmt"

	"github.com/tonekit/tonekit/config"
	"github.com/tonekit/tonekit/pkg/models"
)

const InvalidEmbeddingsClientError = "embeddings client is not set or is invalid"

// NewEmbeddingsClient returns the Embedder configured by embeddings.service
func NewEmbeddingsClient(ctx context.Context, cfg *config.Config) (models.Embedder, error) {
	if cfg.Embeddings.Dimensions <= 0 {
		return nil, fmt.Errorf("embeddings.dimensions must be set for %s", cfg.Embeddings.Service)
	}

	switch cfg.Embeddings.Service {
	case "openai":
		return NewOpenAIEmbeddingsClient(ctx, cfg)
	case "local", "":
		return NewLocalEmbeddingsClient(cfg)
	default:
		return nil, fmt.Errorf("invalid embeddings service: %s", cfg.Embeddings.Service)
	}
}

// checkEmbeddings verifies one vector of the expected length was returned per text
func checkEmbeddings(embeddings [][]float32, texts, dimensions int) error {
	if len(embeddings) != texts {
		return models.NewEmbeddingError(
			fmt.Sprintf("expected %d embeddings, got %d", texts, len(embeddings)),
			nil,
		)
	}
	for _, e := range embeddings {
		if len(e) != dimensions {
			return models.NewEmbeddingError(
				"unexpected embedding length",
				models.NewDimensionMismatchError(dimensions, len(e)),
			)
		}
	}
	return nil
}

// embedOne embeds a single text with a batch embedder
func embedOne(ctx context.Context, e models.Embedder, text string) ([]float32, error) {
	embeddings, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}
