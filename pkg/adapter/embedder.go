package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	openai "github.com/sashabaranov/go-openai"
)

// EmbeddingDimensions is the vector size the trial store is built for
const EmbeddingDimensions = 384

var ErrDimensionMismatch = goerr.New("embedding dimension mismatch")

// Embedder turns free text into a fixed-length vector. Deterministic for
// identical input within one deployment.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

type EmbedderClient struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

type EmbedderOption func(*EmbedderClient)

func WithEmbeddingModel(model string) EmbedderOption {
	return func(c *EmbedderClient) {
		c.model = openai.EmbeddingModel(model)
	}
}

func WithDimensions(dims int) EmbedderOption {
	return func(c *EmbedderClient) {
		c.dimensions = dims
	}
}

// NewEmbedder creates an embedding client for an OpenAI-compatible endpoint
func NewEmbedder(apiKey, baseURL string, opts ...EmbedderOption) *EmbedderClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	c := &EmbedderClient{
		client:     openai.NewClientWithConfig(cfg),
		model:      "all-MiniLM-L6-v2",
		dimensions: EmbeddingDimensions,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *EmbedderClient) Dimensions() int {
	return c.dimensions
}

func (c *EmbedderClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          c.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		Dimensions:     c.dimensions,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create embedding", goerr.V("model", c.model))
	}

	if len(resp.Data) == 0 {
		return nil, goerr.New("empty embedding response", goerr.V("model", c.model))
	}

	vec := resp.Data[0].Embedding
	if len(vec) != c.dimensions {
		return nil, goerr.Wrap(ErrDimensionMismatch, "unexpected vector size",
			goerr.V("want", c.dimensions), goerr.V("got", len(vec)))
	}

	return vec, nil
}
