package domain

import (
	"context"
	"fmt"
)

// Chunk is a unit of ingested text paired with its embedding vector.
// Chunks are never modified after they are stored.
type Chunk struct {
	Text      string
	Embedding []float64
}

// RetrievalResult is a stored chunk's text scored against one query.
type RetrievalResult struct {
	Text  string
	Score float64
}

// Role tags a transcript turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole validates a role name read from a template.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleSystem, RoleUser, RoleAssistant:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Turn is one message of a conversation transcript.
type Turn struct {
	Role    Role
	Content string
}

// EmbeddingBackend turns text into a vector for the given embedding model.
// A backend must return vectors of the same length for one model.
type EmbeddingBackend interface {
	Embed(ctx context.Context, model, text string) ([]float64, error)
}

// CompletionBackend produces the next assistant reply for an ordered transcript.
type CompletionBackend interface {
	Complete(ctx context.Context, model string, turns []Turn) (string, error)
}

// Chunker splits a document into chunk texts.
type Chunker interface {
	Name() string
	Split(content string) []string
}
