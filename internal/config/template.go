package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"vrtutor/internal/domain"
)

// SeedMessage is one initial transcript turn. Content may contain {{key}}
// placeholders.
type SeedMessage struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// ChatTemplate is the seed document a conversation is built from.
type ChatTemplate struct {
	Model        string        `json:"model" yaml:"model"`
	EmbedModel   string        `json:"embed_model" yaml:"embed_model"`
	ContentFiles []string      `json:"content_files" yaml:"content_files"`
	Messages     []SeedMessage `json:"messages" yaml:"messages"`

	Chunking            string  `json:"chunking,omitempty" yaml:"chunking,omitempty"`
	FetchCount          int     `json:"fetch_count,omitempty" yaml:"fetch_count,omitempty"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty" yaml:"similarity_threshold,omitempty"`
	KnowledgePreamble   string  `json:"knowledge_preamble,omitempty" yaml:"knowledge_preamble,omitempty"`
}

// LoadTemplate reads a chat template. Files ending in .json are decoded as
// JSON, everything else as YAML. Relative content file paths are resolved
// against the template's directory.
func LoadTemplate(path string) (*ChatTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chat template: %w", err)
	}
	tmpl, err := ParseTemplate(data, strings.EqualFold(filepath.Ext(path), ".json"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i, p := range tmpl.ContentFiles {
		if p != "" && !filepath.IsAbs(p) {
			tmpl.ContentFiles[i] = filepath.Join(base, p)
		}
	}
	return tmpl, nil
}

// ParseTemplate decodes and validates template bytes.
func ParseTemplate(data []byte, isJSON bool) (*ChatTemplate, error) {
	var tmpl ChatTemplate
	var err error
	if isJSON {
		err = json.Unmarshal(data, &tmpl)
	} else {
		err = yaml.Unmarshal(data, &tmpl)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidTemplate, err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// Validate checks the fields a conversation cannot start without.
func (t *ChatTemplate) Validate() error {
	if strings.TrimSpace(t.Model) == "" {
		return fmt.Errorf("%w: model is required", domain.ErrInvalidTemplate)
	}
	if strings.TrimSpace(t.EmbedModel) == "" {
		return fmt.Errorf("%w: embed_model is required", domain.ErrInvalidTemplate)
	}
	for i, m := range t.Messages {
		if _, err := domain.ParseRole(m.Role); err != nil {
			return fmt.Errorf("%w: message %d: %w", domain.ErrInvalidTemplate, i, err)
		}
	}
	if t.FetchCount < 0 {
		return fmt.Errorf("%w: fetch_count must not be negative", domain.ErrInvalidTemplate)
	}
	return nil
}
