package adapter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	openai "github.com/sashabaranov/go-openai"

	"github.com/medmatch/medmatch/pkg/adapter"
)

func TestComplete(t *testing.T) {
	var received openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		fmt.Fprint(w, `{"choices": [{"message": {"role": "assistant", "content": "1. NCT001"}}]}`)
	}))
	defer server.Close()

	llm := adapter.NewLLM("test-key", server.URL, adapter.WithModel("test-model"))
	content, err := llm.Complete(context.Background(), []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: "rank these"},
	})
	gt.NoError(t, err)
	gt.Equal(t, content, "1. NCT001")

	gt.Equal(t, received.Model, "test-model")
	gt.Equal(t, received.Temperature, float32(0.6))
	gt.A(t, received.Messages).Length(1)
}

func TestCompleteEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": []}`)
	}))
	defer server.Close()

	llm := adapter.NewLLM("test-key", server.URL)
	content, err := llm.Complete(context.Background(), []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: "rank these"},
	})
	gt.NoError(t, err)
	gt.Equal(t, content, "")
}

func TestCompleteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	llm := adapter.NewLLM("test-key", server.URL)
	_, err := llm.Complete(context.Background(), []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: "rank these"},
	})
	gt.Error(t, err)
}
