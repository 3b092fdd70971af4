package memory

import (
	"fmt"

	"vrtutor/internal/domain"
)

// Storage is an append-only, in-memory chunk store. Chunks keep their
// ingestion order and are never deduplicated or removed. The first stored
// chunk fixes the dimension for the rest of the store's life.
//
// Storage is not safe for concurrent use; it belongs to a single
// conversation.
type Storage struct {
	dimension int
	chunks    []domain.Chunk
}

func NewStorage() *Storage { return &Storage{} }

// Add appends a chunk. The embedding is copied so later changes by the caller
// cannot reach stored data.
func (s *Storage) Add(text string, embedding []float64) error {
	if len(embedding) == 0 {
		return domain.ErrEmptyEmbedding
	}
	if s.dimension == 0 {
		s.dimension = len(embedding)
	} else if len(embedding) != s.dimension {
		return fmt.Errorf("%w: store has %d, got %d", domain.ErrDimensionMismatch, s.dimension, len(embedding))
	}
	vec := make([]float64, len(embedding))
	copy(vec, embedding)
	s.chunks = append(s.chunks, domain.Chunk{Text: text, Embedding: vec})
	return nil
}

// Chunks returns the stored chunks in insertion order. Callers must treat the
// returned slice and its vectors as read-only.
func (s *Storage) Chunks() []domain.Chunk { return s.chunks }

func (s *Storage) Len() int { return len(s.chunks) }

// Dimension is zero until the first chunk is added.
func (s *Storage) Dimension() int { return s.dimension }
