// Package cli implements the mailsage command line interface.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mailsage/internal/adapters/driven/completion/anthropic"
	completionollama "github.com/custodia-labs/mailsage/internal/adapters/driven/completion/ollama"
	"github.com/custodia-labs/mailsage/internal/adapters/driven/embedding/local"
	embeddingollama "github.com/custodia-labs/mailsage/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/mailsage/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/mailsage/internal/adapters/driven/index/sqlite"
	"github.com/custodia-labs/mailsage/internal/config"
	"github.com/custodia-labs/mailsage/internal/core/domain"
	"github.com/custodia-labs/mailsage/internal/core/ports/driven"
	"github.com/custodia-labs/mailsage/internal/core/services"
	"github.com/custodia-labs/mailsage/internal/logger"
)

// Persistent flags.
var (
	flagConfig  string
	flagVerbose bool
)

// cfg is the loaded configuration, available to all commands after
// PersistentPreRunE.
var cfg *config.Config

// store is the opened index; nil until a command needs it.
var store *sqlite.Store

var rootCmd = &cobra.Command{
	Use:   "mailsage",
	Short: "Retrieval-augmented email assistant",
	Long: `mailsage indexes your email locally and answers questions about it.

It chunks and embeds message bodies into a local SQLite index, then serves
semantic search, thread reconstruction, reply triage and draft generation,
either directly or through a tool-routing assistant.

Drafts are never sent; mailsage has no transmission capability.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.SetVerbose(flagVerbose)

		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			store.Close()
			store = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.mailsage/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output on stderr")
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// openIndex opens the SQLite index lazily, reusing one handle per process.
func openIndex() (driven.MessageIndex, error) {
	if store != nil {
		return store, nil
	}

	dataDir := cfg.Index.DataDir
	if dataDir == "" {
		dir, err := config.DefaultDir()
		if err != nil {
			return nil, err
		}
		dataDir = filepath.Join(dir, "data")
	}

	s, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	store = s
	return store, nil
}

// buildEmbedder constructs the configured embedding service.
func buildEmbedder() (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case config.ProviderLocal:
		return local.NewEmbeddingService(cfg.Embedding.Dimensions), nil

	case config.ProviderOllama:
		return embeddingollama.NewEmbeddingService(embeddingollama.Config{
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		}), nil

	case config.ProviderOpenAI:
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})

	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrConfiguration, cfg.Embedding.Provider)
	}
}

// buildCompletion constructs the configured completion service.
func buildCompletion() (driven.CompletionService, error) {
	switch cfg.Completion.Provider {
	case config.ProviderAnthropic:
		return anthropic.NewCompletionService(anthropic.Config{
			APIKey:  cfg.Completion.APIKey,
			BaseURL: cfg.Completion.BaseURL,
			Model:   cfg.Completion.Model,
		})

	case config.ProviderOllama:
		return completionollama.NewCompletionService(completionollama.Config{
			BaseURL: cfg.Completion.BaseURL,
			Model:   cfg.Completion.Model,
		}), nil

	default:
		return nil, fmt.Errorf("%w: unknown completion provider %q", domain.ErrConfiguration, cfg.Completion.Provider)
	}
}

// buildRetriever wires the retrieval service.
func buildRetriever() (*services.RetrievalService, error) {
	index, err := openIndex()
	if err != nil {
		return nil, err
	}
	embedder, err := buildEmbedder()
	if err != nil {
		return nil, err
	}
	return services.NewRetrievalService(index, embedder), nil
}

// buildTriager wires the triage service.
func buildTriager() (*services.TriageService, error) {
	index, err := openIndex()
	if err != nil {
		return nil, err
	}
	return services.NewTriageService(index, cfg.Triage.Keywords), nil
}

// buildDrafter wires the draft service.
func buildDrafter() (*services.DraftService, error) {
	index, err := openIndex()
	if err != nil {
		return nil, err
	}
	completion, err := buildCompletion()
	if err != nil {
		return nil, err
	}
	return services.NewDraftService(index, completion), nil
}

// buildAssistant wires the full agent.
func buildAssistant() (*services.AgentService, error) {
	completion, err := buildCompletion()
	if err != nil {
		return nil, err
	}
	retriever, err := buildRetriever()
	if err != nil {
		return nil, err
	}
	triager, err := buildTriager()
	if err != nil {
		return nil, err
	}
	drafter, err := buildDrafter()
	if err != nil {
		return nil, err
	}

	agent := services.NewAgentService(completion, retriever, triager, drafter)
	agent.SetMaxSteps(cfg.Agent.MaxSteps)
	agent.SetHistoryWindow(cfg.Agent.HistoryWindow)
	return agent, nil
}
