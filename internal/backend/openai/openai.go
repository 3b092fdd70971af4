// Package openai adapts an OpenAI-compatible API to the embedding and
// completion backends.
package openai

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"vrtutor/internal/domain"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultTimeout = 60 * time.Second
)

// Config configures the client. The API key is read from the environment
// variable named by APIKeyEnv.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Timeout    time.Duration
	MaxRetries int
}

// Client implements domain.EmbeddingBackend and domain.CompletionBackend.
type Client struct {
	api openai.Client
}

// NewClient creates a client. It fails when the key variable is unset.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Client{api: openai.NewClient(
		option.WithBaseURL(cfg.BaseURL),
		option.WithAPIKey(key),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithRequestTimeout(cfg.Timeout),
	)}, nil
}

// Embed returns the embedding of text under model.
func (c *Client) Embed(ctx context.Context, model, text string) ([]float64, error) {
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai embeddings: %w", domain.ErrEmptyEmbedding)
	}
	return resp.Data[0].Embedding, nil
}

// Complete sends the transcript as chat messages and returns the first choice.
func (c *Client) Complete(ctx context.Context, model string, turns []domain.Turn) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case domain.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(t.Content))
		case domain.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(t.Content))
		default:
			msgs = append(msgs, openai.UserMessage(t.Content))
		}
	}
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: msgs,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
