// Package conversation owns a tutoring session: the seed transcript built
// from a chat template, the chunk store filled from the template's content
// files, and the per-turn retrieval that feeds the chat model.
package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"vrtutor/internal/chunker"
	"vrtutor/internal/config"
	"vrtutor/internal/domain"
	"vrtutor/internal/ingest"
	"vrtutor/internal/prompt"
	"vrtutor/internal/retrieval"
	"vrtutor/internal/vectorstore/memory"
)

const (
	// DefaultFetchCount is how many chunks are injected per user turn.
	DefaultFetchCount = 2
	DefaultPreamble   = "You are a helpful chat bot that gives knowledge about material science.\nKnowledge:\n"
)

// Manager is a single conversation. It is not safe for concurrent use; run
// one operation at a time.
type Manager struct {
	modelName          string
	embeddingModelName string
	contentFiles       []string

	embedder  domain.EmbeddingBackend
	completer domain.CompletionBackend
	store     *memory.Storage
	ranker    *retrieval.Ranker
	chunker   domain.Chunker

	fetchCount int
	preamble   string
	transcript []domain.Turn
	logger     *slog.Logger
}

// Option adjusts a Manager before ingestion starts. Options win over the
// matching template fields.
type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithFetchCount(n int) Option { return func(m *Manager) { m.fetchCount = n } }

func WithThreshold(t float64) Option { return func(m *Manager) { m.ranker.Threshold = t } }

func WithPreamble(p string) Option { return func(m *Manager) { m.preamble = p } }

func WithChunker(c domain.Chunker) Option { return func(m *Manager) { m.chunker = c } }

// NewFromFile loads the chat template at path and builds a Manager from it.
func NewFromFile(ctx context.Context, path string, params map[string]string, embedder domain.EmbeddingBackend, completer domain.CompletionBackend, opts ...Option) (*Manager, error) {
	tmpl, err := config.LoadTemplate(path)
	if err != nil {
		return nil, err
	}
	return New(ctx, tmpl, params, embedder, completer, opts...)
}

// New seeds the transcript with the template's messages, expanded against
// params, and ingests every content file. Unreadable content files are
// logged and skipped; a backend failure during ingestion is returned.
func New(ctx context.Context, tmpl *config.ChatTemplate, params map[string]string, embedder domain.EmbeddingBackend, completer domain.CompletionBackend, opts ...Option) (*Manager, error) {
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	ch, err := chunker.ForPolicy(tmpl.Chunking)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidTemplate, err)
	}
	m := &Manager{
		modelName:          tmpl.Model,
		embeddingModelName: tmpl.EmbedModel,
		contentFiles:       append([]string(nil), tmpl.ContentFiles...),
		embedder:           embedder,
		completer:          completer,
		store:              memory.NewStorage(),
		ranker:             retrieval.NewRanker(tmpl.SimilarityThreshold),
		chunker:            ch,
		fetchCount:         DefaultFetchCount,
		preamble:           DefaultPreamble,
		logger:             slog.Default(),
	}
	if tmpl.FetchCount > 0 {
		m.fetchCount = tmpl.FetchCount
	}
	if tmpl.KnowledgePreamble != "" {
		m.preamble = tmpl.KnowledgePreamble
	}
	for _, opt := range opts {
		opt(m)
	}

	for i, msg := range tmpl.Messages {
		role, err := domain.ParseRole(msg.Role)
		if err != nil {
			return nil, fmt.Errorf("%w: message %d: %w", domain.ErrInvalidTemplate, i, err)
		}
		if missing := prompt.Unresolved(msg.Content, params); len(missing) > 0 {
			m.logger.Debug("seed message keeps unresolved placeholders", "index", i, "keys", missing)
		}
		m.append(role, prompt.Expand(msg.Content, params))
	}

	if _, err := ingest.Files(ctx, m.store, m.embedder, m.embeddingModelName, m.contentFiles, m.chunker, m.logger); err != nil {
		return nil, fmt.Errorf("ingest content: %w", err)
	}
	m.logger.Info("content loaded", "entries", m.store.Len(), "files", len(m.contentFiles), "policy", m.chunker.Name())
	return m, nil
}

// Turn answers one user input. It retrieves context for input, appends the
// knowledge system turn and the user turn, sends the whole transcript to the
// chat model and appends the reply.
//
// A retrieval failure leaves the transcript untouched. A completion failure
// leaves the system and user turns in place; the error wraps
// domain.ErrCompletion so callers can tell the two apart.
func (m *Manager) Turn(ctx context.Context, input string) (string, error) {
	if _, err := m.InjectContext(ctx, input); err != nil {
		return "", err
	}
	m.append(domain.RoleUser, input)

	m.logger.Debug("requesting completion", "model", m.modelName, "turns", len(m.transcript))
	reply, err := m.completer.Complete(ctx, m.modelName, m.Transcript())
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrCompletion, err)
	}
	m.append(domain.RoleAssistant, reply)
	return reply, nil
}

// InjectContext retrieves the chunks most similar to query and appends a
// system turn listing them. The turn is appended even when nothing matched.
func (m *Manager) InjectContext(ctx context.Context, query string) ([]domain.RetrievalResult, error) {
	results, err := m.ranker.Retrieve(ctx, m.store, m.embedder, m.embeddingModelName, query, m.fetchCount)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	m.append(domain.RoleSystem, m.knowledge(results))
	m.logger.Debug("context injected", "chunks", len(results))
	return results, nil
}

func (m *Manager) knowledge(results []domain.RetrievalResult) string {
	var b strings.Builder
	b.WriteString(m.preamble)
	for _, r := range results {
		b.WriteString("-")
		b.WriteString(r.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Manager) append(role domain.Role, content string) {
	m.transcript = append(m.transcript, domain.Turn{Role: role, Content: content})
}

// Transcript returns a copy of every turn appended so far, in order.
func (m *Manager) Transcript() []domain.Turn {
	out := make([]domain.Turn, len(m.transcript))
	copy(out, m.transcript)
	return out
}

func (m *Manager) Len() int { return len(m.transcript) }

func (m *Manager) ModelName() string { return m.modelName }

func (m *Manager) EmbeddingModelName() string { return m.embeddingModelName }

func (m *Manager) ContentFiles() []string { return append([]string(nil), m.contentFiles...) }

// StoreSize is the number of chunks available for retrieval.
func (m *Manager) StoreSize() int { return m.store.Len() }

// WriteTranscript prints turns as one JSON object per message, separated by
// blank lines.
func WriteTranscript(w io.Writer, turns []domain.Turn) error {
	if _, err := fmt.Fprintln(w, "-----------CHAT HISTORY--------------"); err != nil {
		return err
	}
	for _, t := range turns {
		line, err := json.Marshal(struct {
			Role    domain.Role `json:"role"`
			Content string      `json:"content"`
		}{t.Role, t.Content})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\n\n", line); err != nil {
			return err
		}
	}
	return nil
}
