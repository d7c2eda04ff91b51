// Package llm renders pipeline results into user-facing answers through
// an OpenAI-compatible chat model.
package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/qubelab/qubecrawl/internal/pipeline"
)

// Client is the minimal chat-completion surface, so any OpenAI-compatible
// backend (or a test stub) can be plugged in.
type Client interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewOpenAIClient builds a client for baseURL with the given key.
func NewOpenAIClient(baseURL, apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// Answerer turns a FetchResult plus the user's question into an answer.
type Answerer struct {
	Client Client
	Model  string
}

const systemPrompt = "You are a helpful assistant. Answer only from the provided context and its source URL; do not make things up. Format the answer in Markdown and include the source as a clickable link. If the context explains that content could not be retrieved, say so and point the user at the source URL directly."

// Answer builds the prompt from the result's rendered content and asks
// the model for a response.
func (a *Answerer) Answer(ctx context.Context, question string, res pipeline.FetchResult) (string, error) {
	user := fmt.Sprintf("CONTEXT:\n%s\n\nSOURCE_URL: %s\n\nQUESTION: %s", res.Render(), res.ResultURL(), question)
	resp, err := a.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
