package chunker

import (
	"fmt"
	"strings"

	"vrtutor/internal/domain"
)

const (
	PolicyLine     = "line"
	PolicySentence = "sentence"
)

// LineChunker emits every non-blank physical line as its own chunk.
type LineChunker struct{}

func NewLineChunker() *LineChunker { return &LineChunker{} }

func (c *LineChunker) Name() string { return PolicyLine }

func (c *LineChunker) Split(content string) []string {
	lines := strings.Split(content, "\n")
	chunks := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		chunks = append(chunks, line)
	}
	return chunks
}

// ForPolicy returns the chunker registered under name. An empty name selects
// the line policy.
func ForPolicy(name string) (domain.Chunker, error) {
	switch name {
	case PolicyLine, "":
		return NewLineChunker(), nil
	case PolicySentence:
		return NewSentenceChunker(), nil
	default:
		return nil, fmt.Errorf("unknown chunking policy: %s", name)
	}
}
