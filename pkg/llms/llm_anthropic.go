package llms

import (
	"context"
	"errors"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/tonekit/tonekit/config"
	"github.com/tonekit/tonekit/pkg/models"
)

const AnthropicAPITimeout = 30 * time.Second
const AnthropicAPIKeyNotSetError = "TONEKIT_ANTHROPIC_API_KEY is not set" //nolint:gosec

var _ models.Generator = &AnthropicLLM{}

type AnthropicLLM struct {
	client    *anthropic.LLM
	maxTokens int
}

func NewAnthropicLLM(_ context.Context, cfg *config.Config) (*AnthropicLLM, error) {
	apiKey := cfg.LLM.AnthropicAPIKey
	if apiKey == "" {
		return nil, errors.New(AnthropicAPIKeyNotSetError)
	}

	client, err := anthropic.New(
		anthropic.WithModel(cfg.LLM.Model),
		anthropic.WithToken(apiKey),
	)
	if err != nil {
		return nil, err
	}

	return &AnthropicLLM{client: client, maxTokens: cfg.LLM.MaxTokens}, nil
}

func (a *AnthropicLLM) Generate(ctx context.Context, instructions, input string) (string, error) {
	// If the LLM is not initialized, return an error
	if a.client == nil {
		return "", models.NewGenerationError(InvalidLLMModelError, nil)
	}

	options := []llms.CallOption{llms.WithTemperature(DefaultTemperature)}
	if a.maxTokens > 0 {
		options = append(options, llms.WithMaxTokens(a.maxTokens))
	}

	thisCtx, cancel := context.WithTimeout(ctx, AnthropicAPITimeout)
	defer cancel()

	prompt := "\n\nHuman: " + instructions + "\n\n" + input + "\n\nAssistant:"

	completion, err := a.client.Call(thisCtx, prompt, options...)
	if err != nil {
		return "", models.NewGenerationError("anthropic completion failed", err)
	}

	return completion, nil
}
