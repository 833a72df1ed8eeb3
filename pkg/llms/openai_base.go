package llms

import (
	"time"

	"github.com/tmc/langchaingo/llms/openai"
)

const OpenAIAPITimeout = 90 * time.Second
const MaxOpenAIAPIRequestAttempts = 5

type openAIClientConfig struct {
	apiKey         string
	model          string
	embeddingModel string
	endpoint       string
	azureEndpoint  string
	orgID          string
}

func newOpenAIClient(c openAIClientConfig) (*openai.Chat, error) {
	retryableHTTPClient := NewRetryableHTTPClient(MaxOpenAIAPIRequestAttempts, OpenAIAPITimeout)

	options := []openai.Option{
		openai.WithHTTPClient(retryableHTTPClient.StandardClient()),
		openai.WithModel(c.model),
		openai.WithToken(c.apiKey),
	}

	applyOption := func(cond bool, opts ...openai.Option) {
		if cond {
			options = append(options, opts...)
		}
	}

	// Azure takes precedence over a custom endpoint
	applyOption(c.azureEndpoint != "",
		openai.WithAPIType(openai.APITypeAzure),
		openai.WithBaseURL(c.azureEndpoint),
	)
	applyOption(c.azureEndpoint == "" && c.endpoint != "",
		openai.WithBaseURL(c.endpoint),
	)
	applyOption(c.embeddingModel != "",
		openai.WithEmbeddingModel(c.embeddingModel),
	)
	applyOption(c.orgID != "",
		openai.WithOrganization(c.orgID),
	)

	return openai.NewChat(options...)
}
