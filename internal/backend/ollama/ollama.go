// Package ollama talks to a local Ollama server for both embeddings and chat.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vrtutor/internal/domain"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultTimeout = 120 * time.Second
)

// Client implements domain.EmbeddingBackend and domain.CompletionBackend.
type Client struct {
	baseURL string
	client  *http.Client
}

// Config configures an Ollama client. Zero values take the defaults.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a client for the server at cfg.BaseURL.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
	// older servers answer /api/embeddings with a single vector
	Embedding []float64 `json:"embedding"`
}

// Embed returns the embedding of text under model.
func (c *Client) Embed(ctx context.Context, model, text string) ([]float64, error) {
	var out embedResponse
	if err := c.post(ctx, "/api/embed", embedRequest{Model: model, Input: text}, &out); err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(out.Embeddings) > 0 && len(out.Embeddings[0]) > 0 {
		return out.Embeddings[0], nil
	}
	if len(out.Embedding) > 0 {
		return out.Embedding, nil
	}
	return nil, fmt.Errorf("ollama embed: %w", domain.ErrEmptyEmbedding)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// Complete sends the whole transcript to model and returns the reply text.
func (c *Client) Complete(ctx context.Context, model string, turns []domain.Turn) (string, error) {
	req := chatRequest{Model: model, Messages: make([]chatMessage, 0, len(turns))}
	for _, t := range turns {
		req.Messages = append(req.Messages, chatMessage{Role: string(t.Role), Content: t.Content})
	}
	var out chatResponse
	if err := c.post(ctx, "/api/chat", req, &out); err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama chat: %s", out.Error)
	}
	return out.Message.Content, nil
}

// post sends one request. Non-2xx answers are returned as errors; callers
// decide whether to try again.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return &statusError{status: resp.Status, body: payload}
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type statusError struct {
	status string
	body   []byte
}

func (e *statusError) Error() string {
	msg := strings.TrimSpace(string(e.body))
	if msg == "" {
		return e.status
	}
	return e.status + ": " + msg
}
