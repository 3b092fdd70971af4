package chunker

import (
	"strings"
	"unicode"
)

// SentenceChunker scans a document rune by rune and emits one chunk per
// statement ending in '.', '?' or '!'. A line whose last non-blank rune is ':'
// is treated as a heading and dropped together with anything accumulated
// before it. Text after the final terminator is never emitted.
//
// Boundaries follow punctuation only, so abbreviations and decimal numbers
// ("3.5 MPa") split a sentence. Documents are expected to be well punctuated.
type SentenceChunker struct{}

func NewSentenceChunker() *SentenceChunker { return &SentenceChunker{} }

func (c *SentenceChunker) Name() string { return PolicySentence }

func (c *SentenceChunker) Split(content string) []string {
	var (
		chunks  []string
		buf     strings.Builder
		heading bool
	)
	for _, r := range content {
		if r == '\n' && heading {
			buf.Reset()
			heading = false
			continue
		}
		buf.WriteRune(r)
		switch {
		case isTerminator(r):
			if text := strings.TrimSpace(buf.String()); text != "" {
				chunks = append(chunks, text)
			}
			buf.Reset()
			heading = false
		case r == ':':
			heading = true
		case !unicode.IsSpace(r):
			heading = false
		}
	}
	return chunks
}

func isTerminator(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}
