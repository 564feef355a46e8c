// Package embedding provides text embedding generation and vector math
// for semantic memory retrieval.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hession/krishimate/internal/config"
	"github.com/hession/krishimate/internal/logger"
)

// maxInputChars caps the text sent to the embedding API. Longer
// inputs are truncated, not rejected.
const maxInputChars = 2000

// Client generates embedding vectors for text
type Client interface {
	// Embed generates a vector for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vectors for multiple texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector dimension
	Dimension() int
}

// HTTPClient calls an OpenAI-compatible /embeddings endpoint
type HTTPClient struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
	maxRetries int
}

// NewHTTPClient creates an embedding client from config
func NewHTTPClient(cfg *config.EmbeddingConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		maxRetries: cfg.MaxRetries,
	}
}

// embeddingRequest is the /embeddings request payload
type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingResponse is the /embeddings response payload
type embeddingResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed generates a vector for a single text
func (c *HTTPClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || vectors[0] == nil {
		return nil, fmt.Errorf("embedding response is empty")
	}
	return vectors[0], nil
}

// EmbedBatch generates vectors for multiple texts with retry
func (c *HTTPClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// Truncate oversized inputs
	truncated := make([]string, len(texts))
	for i, text := range texts {
		truncated[i] = Truncate(text, maxInputChars)
	}

	var lastErr error
	for retry := 0; retry <= c.maxRetries; retry++ {
		vectors, err := c.doEmbed(ctx, truncated)
		if err == nil {
			return vectors, nil
		}
		lastErr = err

		// Exponential backoff
		if retry < c.maxRetries {
			logger.Warn("Embedding request failed (attempt %d): %v", retry+1, err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(1<<retry) * time.Second):
			}
		}
	}

	return nil, fmt.Errorf("embedding request failed after %d retries: %w", c.maxRetries, lastErr)
}

// doEmbed performs a single embedding request
func (c *HTTPClient) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embeddingRequest{
		Model: c.model,
		Input: texts,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize request: %w", err)
	}

	url := c.baseURL + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// Order results by index
	vectors := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index >= 0 && data.Index < len(vectors) {
			vectors[data.Index] = data.Embedding
		}
	}

	return vectors, nil
}

// Dimension returns the vector dimension
func (c *HTTPClient) Dimension() int {
	return c.dimension
}

// Truncate cuts text to at most max characters
func Truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	return text[:max]
}

// MockClient generates deterministic vectors for testing
type MockClient struct {
	dimension int

	// Err, when set, is returned from every call
	Err error
}

// NewMockClient creates a mock embedding client
func NewMockClient(dimension int) *MockClient {
	return &MockClient{dimension: dimension}
}

// Embed generates a deterministic vector from the text hash
func (c *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	vec := make([]float32, c.dimension)
	hash := 0
	for _, ch := range text {
		hash = hash*31 + int(ch)
	}
	for i := 0; i < c.dimension; i++ {
		vec[i] = float32(hash%1000) / 1000.0
		hash = hash*31 + i + 1
	}
	return Normalize(vec), nil
}

// EmbedBatch generates deterministic vectors for multiple texts
func (c *MockClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimension returns the vector dimension
func (c *MockClient) Dimension() int {
	return c.dimension
}
