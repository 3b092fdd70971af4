package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	BackendOllama  = "ollama"
	BackendOpenAI  = "openai"
	BackendOffline = "offline"
)

// OllamaConfig holds connection details for a local Ollama server.
type OllamaConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// OpenAIConfig configures an OpenAI-compatible chat and embeddings endpoint.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// BackendConfig selects the model server used for both embeddings and chat.
type BackendConfig struct {
	Type   string        `yaml:"type"`
	Ollama *OllamaConfig `yaml:"ollama,omitempty"`
	OpenAI *OpenAIConfig `yaml:"openai,omitempty"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Backend  BackendConfig     `yaml:"backend"`
	Template string            `yaml:"template"`
	Params   map[string]string `yaml:"params,omitempty"`
	Log      LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/vrtutor/config.yaml.
// If neither exists, it writes defaults to ~/.config/vrtutor/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyEnv overrides file settings with VRTUTOR_TEMPLATE, VRTUTOR_BACKEND and
// OLLAMA_URL when they are set.
func (c *AppConfig) ApplyEnv() {
	if v := os.Getenv("VRTUTOR_TEMPLATE"); v != "" {
		c.Template = v
	}
	if v := os.Getenv("VRTUTOR_BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		if c.Backend.Ollama == nil {
			c.Backend.Ollama = &OllamaConfig{}
		}
		c.Backend.Ollama.BaseURL = v
	}
	applyConfigDefaults(c)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "vrtutor", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Backend:  BackendConfig{Type: BackendOllama},
		Template: "chat_template.json",
		Log:      LogConfig{Level: "info", Format: "text"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Backend.Type == "" {
		cfg.Backend.Type = BackendOllama
	}
	if cfg.Template == "" {
		cfg.Template = "chat_template.json"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	switch cfg.Backend.Type {
	case BackendOllama:
		if cfg.Backend.Ollama == nil {
			cfg.Backend.Ollama = &OllamaConfig{}
		}
		if cfg.Backend.Ollama.BaseURL == "" {
			cfg.Backend.Ollama.BaseURL = "http://localhost:11434"
		}
	case BackendOpenAI:
		if cfg.Backend.OpenAI == nil {
			cfg.Backend.OpenAI = &OpenAIConfig{}
		}
		if cfg.Backend.OpenAI.BaseURL == "" {
			cfg.Backend.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Backend.OpenAI.APIKeyEnv == "" {
			cfg.Backend.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
}
