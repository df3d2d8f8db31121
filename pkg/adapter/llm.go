package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	openai "github.com/sashabaranov/go-openai"
)

// LLM is a stateless chat-completion service. Each call carries the full
// prompt; no conversation history is held on the service side.
type LLM interface {
	Complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error)
}

type LLMClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

type LLMOption func(*LLMClient)

func WithModel(model string) LLMOption {
	return func(c *LLMClient) {
		c.model = model
	}
}

func WithTemperature(t float32) LLMOption {
	return func(c *LLMClient) {
		c.temperature = t
	}
}

// NewLLM creates a chat client for an OpenAI-compatible endpoint. An empty
// baseURL keeps the library default.
func NewLLM(apiKey, baseURL string, opts ...LLMOption) *LLMClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	c := &LLMClient{
		client:      openai.NewClientWithConfig(cfg),
		model:       "kimi-k2-0905-preview",
		temperature: 0.6,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *LLMClient) Complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to create chat completion", goerr.V("model", c.model))
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
