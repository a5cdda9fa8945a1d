// Package llm wraps the OpenAI API for reply generation and embeddings.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/factoryia/fincasya-new/internal/config"
	"github.com/factoryia/fincasya-new/internal/models"

	openai "github.com/sashabaranov/go-openai"
)

// ErrMissingAPIKey is returned when OPENAI_API_KEY is not configured.
var ErrMissingAPIKey = errors.New("llm: OPENAI_API_KEY must be configured")

type Client struct {
	client *openai.Client
	model  string
}

func NewClient(cfg *config.Config) *Client {
	if cfg.OpenAIKey == "" {
		return &Client{model: cfg.OpenAIModel}
	}
	return &Client{
		client: openai.NewClient(cfg.OpenAIKey),
		model:  cfg.OpenAIModel,
	}
}

// GenerateReply produces the conversational text reply given a system
// prompt and the recent message history.
func (c *Client) GenerateReply(ctx context.Context, system string, history []models.Message) (string, error) {
	if c.client == nil {
		return "", ErrMissingAPIKey
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Sender == models.SenderAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: 0.4,
		MaxTokens:   400,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: no response choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for one text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.client == nil {
		return nil, ErrMissingAPIKey
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.SmallEmbedding3,
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("llm: empty embeddings response")
	}

	return resp.Data[0].Embedding, nil
}
