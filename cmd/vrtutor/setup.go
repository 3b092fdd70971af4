package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"vrtutor/internal/backend/fake"
	"vrtutor/internal/backend/ollama"
	"vrtutor/internal/backend/openai"
	"vrtutor/internal/config"
	"vrtutor/internal/domain"
)

// paramFlag collects repeated --param key=value flags.
type paramFlag map[string]string

func (p paramFlag) String() string {
	pairs := make([]string, 0, len(p))
	for k, v := range p {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (p paramFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	p[k] = v
	return nil
}

// mergeParams returns base overlaid with override.
func mergeParams(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func newBackends(cfg config.BackendConfig) (domain.EmbeddingBackend, domain.CompletionBackend, error) {
	switch cfg.Type {
	case config.BackendOllama, "":
		oc := ollama.Config{}
		if cfg.Ollama != nil {
			oc.BaseURL = cfg.Ollama.BaseURL
			oc.Timeout = time.Duration(cfg.Ollama.TimeoutSecs) * time.Second
		}
		c := ollama.NewClient(oc)
		return c, c, nil
	case config.BackendOpenAI:
		if cfg.OpenAI == nil {
			return nil, nil, fmt.Errorf("openai backend config missing")
		}
		c, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case config.BackendOffline:
		return fake.NewEmbedder(), fake.NewCompleter(), nil
	default:
		return nil, nil, fmt.Errorf("unknown backend: %s", cfg.Type)
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
