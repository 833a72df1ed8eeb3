package llms

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonekit/tonekit/config"
)

func TestRetryPolicy(t *testing.T) {
	ctx := context.Background()

	retry, err := retryPolicy(ctx, &http.Response{StatusCode: http.StatusBadRequest}, nil)
	assert.False(t, retry)
	assert.NoError(t, err)

	retry, _ = retryPolicy(ctx, &http.Response{StatusCode: http.StatusTooManyRequests}, nil)
	assert.True(t, retry)

	retry, _ = retryPolicy(ctx, &http.Response{StatusCode: http.StatusInternalServerError}, nil)
	assert.True(t, retry)

	retry, _ = retryPolicy(ctx, &http.Response{StatusCode: http.StatusOK}, nil)
	assert.False(t, retry)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	retry, err = retryPolicy(cancelled, nil, errors.New("boom"))
	assert.False(t, retry)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewLLMClient(t *testing.T) {
	tests := []struct {
		name    string
		llm     config.LLM
		wantErr bool
	}{
		{
			name: "valid openai",
			llm:  config.LLM{Service: "openai", Model: "gpt-4.1", OpenAIAPIKey: "key"},
		},
		{
			name:    "invalid openai model",
			llm:     config.LLM{Service: "openai", Model: "gpt-9", OpenAIAPIKey: "key"},
			wantErr: true,
		},
		{
			name: "custom endpoint skips model validation",
			llm: config.LLM{
				Service:        "openai",
				Model:          "my-model",
				OpenAIAPIKey:   "key",
				OpenAIEndpoint: "http://localhost:8080/v1",
			},
		},
		{
			name:    "missing openai key",
			llm:     config.LLM{Service: "openai", Model: "gpt-4.1"},
			wantErr: true,
		},
		{
			name:    "anthropic model under openai",
			llm:     config.LLM{Service: "openai", Model: "claude-2", OpenAIAPIKey: "key"},
			wantErr: true,
		},
		{
			name: "valid anthropic",
			llm:  config.LLM{Service: "anthropic", Model: "claude-2", AnthropicAPIKey: "key"},
		},
		{
			name:    "missing anthropic key",
			llm:     config.LLM{Service: "anthropic", Model: "claude-2"},
			wantErr: true,
		},
		{
			name:    "unknown service",
			llm:     config.LLM{Service: "cohere", Model: "command"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator, err := NewLLMClient(context.Background(), &config.Config{LLM: tt.llm})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, generator)
		})
	}
}

func TestNewEmbeddingsClient(t *testing.T) {
	_, err := NewEmbeddingsClient(context.Background(), &config.Config{
		Embeddings: config.EmbeddingsConfig{Service: "local", ServerURL: "http://localhost"},
	})
	assert.Error(t, err)

	_, err = NewEmbeddingsClient(context.Background(), &config.Config{
		Embeddings: config.EmbeddingsConfig{Service: "bogus", Dimensions: 3},
	})
	assert.Error(t, err)

	e, err := NewEmbeddingsClient(context.Background(), &config.Config{
		Embeddings: config.EmbeddingsConfig{
			Service:    "local",
			ServerURL:  "http://localhost",
			Dimensions: 3,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, e.Dimensions())

	_, err = NewEmbeddingsClient(context.Background(), &config.Config{
		Embeddings: config.EmbeddingsConfig{Service: "openai", Dimensions: 3},
	})
	assert.Error(t, err)
}

func TestValidateModel(t *testing.T) {
	assert.NoError(t, validateModel(ValidOpenAILLMs, "gpt-4o", "openai"))

	err := validateModel(ValidOpenAILLMs, "claude-2", "openai")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check llm.service")

	err = validateModel(ValidAnthropicLLMs, "gpt-9", "anthropic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid llm model")
}

func TestValidLLMMap(t *testing.T) {
	assert.True(t, ValidLLMMap["gpt-4.1"])
	assert.True(t, ValidLLMMap["claude-2"])
	assert.False(t, ValidLLMMap["gpt-9"])
}
