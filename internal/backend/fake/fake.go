// Package fake provides deterministic in-process backends. They serve the
// "offline" backend type of the CLI and stand in for a model server in tests.
package fake

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"vrtutor/internal/domain"
)

const DefaultDimension = 64

// Embedder hashes lower-cased words into a fixed number of buckets. Texts
// listed in Vectors get that vector instead. FailOn makes Embed fail for one
// exact text.
type Embedder struct {
	Dimension int
	Vectors   map[string][]float64
	FailOn    string
	Err       error

	Calls []string
}

func NewEmbedder() *Embedder { return &Embedder{Dimension: DefaultDimension} }

func (e *Embedder) Embed(_ context.Context, _ string, text string) ([]float64, error) {
	e.Calls = append(e.Calls, text)
	if e.Err != nil {
		return nil, e.Err
	}
	if e.FailOn != "" && text == e.FailOn {
		return nil, fmt.Errorf("fake embed failure for %q", text)
	}
	if v, ok := e.Vectors[text]; ok {
		return v, nil
	}
	dim := e.Dimension
	if dim <= 0 {
		dim = DefaultDimension
	}
	vec := make([]float64, dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(dim)]++
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// Completer answers with Reply, or echoes the last user turn when Reply is
// empty. Every transcript it receives is recorded.
type Completer struct {
	Reply string
	Err   error

	Models []string
	Seen   [][]domain.Turn
}

func NewCompleter() *Completer { return &Completer{} }

func (c *Completer) Complete(_ context.Context, model string, turns []domain.Turn) (string, error) {
	snapshot := make([]domain.Turn, len(turns))
	copy(snapshot, turns)
	c.Models = append(c.Models, model)
	c.Seen = append(c.Seen, snapshot)
	if c.Err != nil {
		return "", c.Err
	}
	if c.Reply != "" {
		return c.Reply, nil
	}
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == domain.RoleUser {
			return "You asked: " + turns[i].Content, nil
		}
	}
	return "", nil
}
