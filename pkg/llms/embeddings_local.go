package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/tonekit/tonekit/config"
	"github.com/tonekit/tonekit/pkg/models"
)

const LocalEmbeddingsTimeout = 30 * time.Second
const MaxLocalEmbeddingsRequestAttempts = 3

var _ models.Embedder = &LocalEmbeddingsClient{}

// LocalEmbeddingsClient calls a self-hosted sentence embedding server.
type LocalEmbeddingsClient struct {
	url        string
	model      string
	dimensions int
	client     *retryablehttp.Client
}

type localEmbeddingsRequest struct {
	Model string   `json:"model,omitempty"`
	Texts []string `json:"texts"`
}

type localEmbeddingsResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func NewLocalEmbeddingsClient(cfg *config.Config) (*LocalEmbeddingsClient, error) {
	if cfg.Embeddings.ServerURL == "" {
		return nil, fmt.Errorf("embeddings.server_url must be set for the local embeddings service")
	}

	return &LocalEmbeddingsClient{
		url:        strings.TrimRight(cfg.Embeddings.ServerURL, "/") + "/embeddings",
		model:      cfg.Embeddings.Model,
		dimensions: cfg.Embeddings.Dimensions,
		client:     NewRetryableHTTPClient(MaxLocalEmbeddingsRequestAttempts, LocalEmbeddingsTimeout),
	}, nil
}

func (c *LocalEmbeddingsClient) Dimensions() int {
	return c.dimensions
}

func (c *LocalEmbeddingsClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, c, text)
}

func (c *LocalEmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	jsonBody, err := json.Marshal(localEmbeddingsRequest{Model: c.model, Texts: texts})
	if err != nil {
		return nil, models.NewEmbeddingError("error marshaling request body", err)
	}

	req, err := retryablehttp.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.url,
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, models.NewEmbeddingError("error creating request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, models.NewEmbeddingError("error making POST request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, models.NewEmbeddingError(
			fmt.Sprintf("embedding server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			nil,
		)
	}

	var result localEmbeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, models.NewEmbeddingError("error unmarshaling response body", err)
	}

	if err := checkEmbeddings(result.Embeddings, len(texts), c.dimensions); err != nil {
		return nil, err
	}

	return result.Embeddings, nil
}
