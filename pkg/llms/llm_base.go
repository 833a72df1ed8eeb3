package llms

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tonekit/tonekit/config"
	"github.com/tonekit/tonekit/internal"
	"github.com/tonekit/tonekit/pkg/models"
)

const DefaultTemperature = 0.0
const InvalidLLMModelError = "llm model is not set or is invalid"

var log = internal.GetLogger()

// NewLLMClient returns the Generator configured by llm.service
func NewLLMClient(ctx context.Context, cfg *config.Config) (models.Generator, error) {
	switch cfg.LLM.Service {
	case "openai", "":
		// Azure deployments and custom endpoints may use any model name
		if cfg.LLM.AzureOpenAIEndpoint != "" || cfg.LLM.OpenAIEndpoint != "" {
			if cfg.LLM.Model == "" {
				return nil, fmt.Errorf(
					"invalid llm deployment for %s, model or deployment name is required",
					cfg.LLM.Service,
				)
			}
			return NewOpenAILLM(ctx, cfg)
		}
		if err := validateModel(ValidOpenAILLMs, cfg.LLM.Model, "openai"); err != nil {
			return nil, err
		}
		return NewOpenAILLM(ctx, cfg)
	case "anthropic":
		if err := validateModel(ValidAnthropicLLMs, cfg.LLM.Model, "anthropic"); err != nil {
			return nil, err
		}
		return NewAnthropicLLM(ctx, cfg)
	default:
		return nil, fmt.Errorf("invalid LLM service: %s", cfg.LLM.Service)
	}
}

var ValidOpenAILLMs = map[string]bool{
	"gpt-3.5-turbo": true,
	"gpt-4":         true,
	"gpt-4-turbo":   true,
	"gpt-4o":        true,
	"gpt-4o-mini":   true,
	"gpt-4.1":       true,
	"gpt-4.1-mini":  true,
}

var ValidAnthropicLLMs = map[string]bool{
	"claude-instant-1": true,
	"claude-2":         true,
}

var ValidLLMMap = internal.MergeMaps(ValidOpenAILLMs, ValidAnthropicLLMs)

// validateModel checks model against the models of one service. A model
// that another service supports gets its own message.
func validateModel(valid map[string]bool, model, service string) error {
	if valid[model] {
		return nil
	}
	if ValidLLMMap[model] {
		return fmt.Errorf("llm model \"%s\" is not served by %s, check llm.service", model, service)
	}
	return fmt.Errorf("invalid llm model \"%s\" for %s", model, service)
}

func NewRetryableHTTPClient(retryMax int, timeout time.Duration) *retryablehttp.Client {
	retryableHTTPClient := retryablehttp.NewClient()
	retryableHTTPClient.RetryMax = retryMax
	retryableHTTPClient.HTTPClient.Timeout = timeout
	retryableHTTPClient.HTTPClient.Transport = otelhttp.NewTransport(
		retryableHTTPClient.HTTPClient.Transport,
	)
	retryableHTTPClient.Logger = internal.NewLeveledLogrus(log)
	retryableHTTPClient.Backoff = retryablehttp.DefaultBackoff
	retryableHTTPClient.CheckRetry = retryPolicy

	return retryableHTTPClient
}

// retryPolicy is a retryablehttp.CheckRetry function. It is used to determine
// whether a request should be retried or not.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	// do not retry on context.Canceled or context.DeadlineExceeded
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	// Do not retry 400 errors as they're used by OpenAI to indicate maximum
	// context length exceeded
	if resp != nil && resp.StatusCode == http.StatusBadRequest {
		return false, err
	}

	shouldRetry, _ := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	return shouldRetry, nil
}
