// Package config loads and validates mailsage configuration from TOML.
// Configuration lives at ~/.mailsage/config.toml by default.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/mailsage/internal/core/domain"
)

// Provider names accepted by the embedding and completion sections.
const (
	ProviderLocal     = "local"
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config is the full mailsage configuration.
type Config struct {
	Chunking   Chunking   `toml:"chunking"`
	Embedding  Embedding  `toml:"embedding"`
	Completion Completion `toml:"completion"`
	Agent      Agent      `toml:"agent"`
	Triage     Triage     `toml:"triage"`
	Gmail      Gmail      `toml:"gmail"`
	Index      Index      `toml:"index"`
}

// Chunking configures how message bodies split into embedding units.
type Chunking struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

// Embedding selects and configures the embedding backend.
type Embedding struct {
	Provider   string `toml:"provider"`
	Model      string `toml:"model"`
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	Dimensions int    `toml:"dimensions"`
}

// Completion selects and configures the completion backend.
type Completion struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
}

// Agent bounds the assistant's reasoning loop.
type Agent struct {
	MaxSteps      int `toml:"max_steps"`
	HistoryWindow int `toml:"history_window"`
}

// Triage tunes the urgency lexicon.
type Triage struct {
	Keywords []string `toml:"keywords"`
}

// Gmail configures the Gmail source.
type Gmail struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	Labels       []string `toml:"labels"`
	Query        string   `toml:"query"`
}

// Index configures the storage layer.
type Index struct {
	DataDir string `toml:"data_dir"`
	Workers int    `toml:"workers"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Chunking: Chunking{
			Size:    1000,
			Overlap: 200,
		},
		Embedding: Embedding{
			Provider: ProviderLocal,
		},
		Completion: Completion{
			Provider: ProviderAnthropic,
		},
		Agent: Agent{
			MaxSteps:      6,
			HistoryWindow: 10,
		},
	}
}

// DefaultDir returns the mailsage home directory.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".mailsage"), nil
}

// Load reads configuration from the given path. An empty path resolves to
// ~/.mailsage/config.toml; a missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "config.toml")
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", domain.ErrConfiguration, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot produce a working pipeline.
// Called at startup; a bad value is fatal, never silently corrected.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunking.size must be positive", domain.ErrConfiguration)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("%w: chunking.overlap must be in [0, size)", domain.ErrConfiguration)
	}

	switch c.Embedding.Provider {
	case ProviderLocal, ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrConfiguration, c.Embedding.Provider)
	}

	switch c.Completion.Provider {
	case ProviderAnthropic, ProviderOllama:
	default:
		return fmt.Errorf("%w: unknown completion provider %q", domain.ErrConfiguration, c.Completion.Provider)
	}

	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("%w: agent.max_steps must be positive", domain.ErrConfiguration)
	}
	if c.Agent.HistoryWindow <= 0 {
		return fmt.Errorf("%w: agent.history_window must be positive", domain.ErrConfiguration)
	}
	return nil
}
