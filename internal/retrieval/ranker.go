// Package retrieval ranks stored chunks against a query by cosine
// similarity. Every query scans the whole store, which is fine for the small
// local corpora this runs on.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"vrtutor/internal/domain"
	"vrtutor/internal/vectorstore/memory"
)

// DefaultThreshold keeps every chunk with a positive similarity. Useful
// cut-offs differ between embedding models, so callers wanting real filtering
// must raise it themselves.
const DefaultThreshold = 0.0

// Ranker scores chunks and keeps those strictly above Threshold.
type Ranker struct {
	Threshold float64
}

func NewRanker(threshold float64) *Ranker { return &Ranker{Threshold: threshold} }

// Retrieve embeds query once and returns at most topN chunks ordered by
// descending similarity. Equal scores keep insertion order. An empty query,
// an empty store or a non-positive topN yield no results without calling the
// backend.
func (r *Ranker) Retrieve(ctx context.Context, store *memory.Storage, backend domain.EmbeddingBackend, model, query string, topN int) ([]domain.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" || store.Len() == 0 || topN <= 0 {
		return nil, nil
	}
	qvec, err := backend.Embed(ctx, model, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(qvec) == 0 {
		return nil, fmt.Errorf("embed query: %w", domain.ErrEmptyEmbedding)
	}
	if len(qvec) != store.Dimension() {
		return nil, fmt.Errorf("%w: query has %d, store has %d", domain.ErrDimensionMismatch, len(qvec), store.Dimension())
	}

	qnorm := norm(qvec)
	var results []domain.RetrievalResult
	for _, ch := range store.Chunks() {
		score := cosine(qvec, qnorm, ch.Embedding)
		if score > r.Threshold {
			results = append(results, domain.RetrievalResult{Text: ch.Text, Score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}

// CosineSimilarity returns dot(a,b)/(|a||b|), or 0 when either vector has
// zero length or norm. Vectors must have equal length.
func CosineSimilarity(a, b []float64) float64 {
	return cosine(a, norm(a), b)
}

func cosine(a []float64, anorm float64, b []float64) float64 {
	bnorm := norm(b)
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	return dot(a, b) / (anorm * bnorm)
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(v []float64) float64 {
	return math.Sqrt(dot(v, v))
}
