package llms

import (
	"context"
	"errors"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/tonekit/tonekit/config"
	"github.com/tonekit/tonekit/pkg/models"
)

const OpenAIAPIKeyNotSetError = "TONEKIT_OPENAI_API_KEY is not set" //nolint:gosec

var _ models.Generator = &OpenAILLM{}

type OpenAILLM struct {
	llm       *openai.Chat
	maxTokens int
}

func NewOpenAILLM(_ context.Context, cfg *config.Config) (*OpenAILLM, error) {
	if cfg.LLM.OpenAIAPIKey == "" {
		return nil, errors.New(OpenAIAPIKeyNotSetError)
	}

	llm, err := newOpenAIClient(openAIClientConfig{
		apiKey:        cfg.LLM.OpenAIAPIKey,
		model:         cfg.LLM.Model,
		endpoint:      cfg.LLM.OpenAIEndpoint,
		azureEndpoint: cfg.LLM.AzureOpenAIEndpoint,
		orgID:         cfg.LLM.OpenAIOrgID,
	})
	if err != nil {
		return nil, err
	}

	return &OpenAILLM{llm: llm, maxTokens: cfg.LLM.MaxTokens}, nil
}

func (o *OpenAILLM) Generate(ctx context.Context, instructions, input string) (string, error) {
	// If the LLM is not initialized, return an error
	if o.llm == nil {
		return "", models.NewGenerationError(InvalidLLMModelError, nil)
	}

	options := []llms.CallOption{llms.WithTemperature(DefaultTemperature)}
	if o.maxTokens > 0 {
		options = append(options, llms.WithMaxTokens(o.maxTokens))
	}

	thisCtx, cancel := context.WithTimeout(ctx, OpenAIAPITimeout)
	defer cancel()

	messages := []schema.ChatMessage{
		schema.SystemChatMessage{Content: instructions},
		schema.HumanChatMessage{Content: input},
	}

	completion, err := o.llm.Call(thisCtx, messages, options...)
	if err != nil {
		return "", models.NewGenerationError("openai chat completion failed", err)
	}

	return completion.GetContent(), nil
}
