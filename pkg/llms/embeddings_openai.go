package llms

import (
	"context"
	"errors"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/tonekit/tonekit/config"
	"github.com/tonekit/tonekit/pkg/models"
)

const EmbeddingsOpenAIAPIKeyNotSetError = "TONEKIT_EMBEDDINGS_OPENAI_API_KEY is not set" //nolint:gosec

// openAIChatModel is passed to the client builder, which requires a chat model
// even when the client only creates embeddings.
const openAIChatModel = "gpt-4o-mini"

var _ models.Embedder = &OpenAIEmbeddingsClient{}

type OpenAIEmbeddingsClient struct {
	client     *openai.Chat
	dimensions int
}

func NewOpenAIEmbeddingsClient(_ context.Context, cfg *config.Config) (*OpenAIEmbeddingsClient, error) {
	apiKey := cfg.Embeddings.OpenAIAPIKey
	if apiKey == "" {
		return nil, errors.New(EmbeddingsOpenAIAPIKeyNotSetError)
	}

	client, err := newOpenAIClient(openAIClientConfig{
		apiKey:         apiKey,
		model:          openAIChatModel,
		embeddingModel: cfg.Embeddings.Model,
		endpoint:       cfg.Embeddings.OpenAIEndpoint,
		azureEndpoint:  cfg.Embeddings.AzureOpenAIEndpoint,
	})
	if err != nil {
		return nil, err
	}

	return &OpenAIEmbeddingsClient{client: client, dimensions: cfg.Embeddings.Dimensions}, nil
}

func (c *OpenAIEmbeddingsClient) Dimensions() int {
	return c.dimensions
}

func (c *OpenAIEmbeddingsClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, c, text)
}

func (c *OpenAIEmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if c.client == nil {
		return nil, models.NewEmbeddingError(InvalidEmbeddingsClientError, nil)
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	thisCtx, cancel := context.WithTimeout(ctx, OpenAIAPITimeout)
	defer cancel()

	embeddings, err := c.client.CreateEmbedding(thisCtx, texts)
	if err != nil {
		return nil, models.NewEmbeddingError("error while creating embedding", err)
	}

	if err := checkEmbeddings(embeddings, len(texts), c.dimensions); err != nil {
		return nil, err
	}

	return embeddings, nil
}
