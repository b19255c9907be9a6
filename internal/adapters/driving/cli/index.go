package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mailsage/internal/adapters/driven/source/file"
	"github.com/custodia-labs/mailsage/internal/adapters/driven/source/gmail"
	"github.com/custodia-labs/mailsage/internal/chunker"
	"github.com/custodia-labs/mailsage/internal/cleaner"
	"github.com/custodia-labs/mailsage/internal/core/ports/driven"
	"github.com/custodia-labs/mailsage/internal/core/ports/driving"
	"github.com/custodia-labs/mailsage/internal/core/services"
	"github.com/custodia-labs/mailsage/internal/logger"
)

var (
	indexForce  bool
	indexMax    int
	indexCorpus string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Fetch and index email",
	Long: `Fetch messages, clean and chunk their bodies, embed the chunks and
store everything in the local index.

By default messages come from Gmail (run 'mailsage auth login' first).
With --corpus, messages are read from a JSONL file instead, one message
object per line.

Re-running skips messages already indexed; --force discards and rebuilds
their records.

Examples:
  mailsage index
  mailsage index --max 500
  mailsage index --corpus ./mail.jsonl --force`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "re-index messages already present")
	indexCmd.Flags().IntVar(&indexMax, "max", 0, "maximum messages to process (0 = no cap)")
	indexCmd.Flags().StringVar(&indexCorpus, "corpus", "", "read messages from a JSONL file instead of Gmail")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	source, err := buildSource(cmd)
	if err != nil {
		return err
	}

	index, err := openIndex()
	if err != nil {
		return err
	}
	embedder, err := buildEmbedder()
	if err != nil {
		return err
	}
	ch, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return err
	}

	indexer := services.NewIndexingService(source, index, embedder, cleaner.New(), ch)
	if cfg.Index.Workers > 0 {
		indexer.SetWorkers(cfg.Index.Workers)
	}

	logger.Section("Indexing")
	logger.Info("source: %s, model: %s", source.Name(), embedder.ModelName())

	report, err := indexer.Run(ctx, driving.IndexOptions{
		Force:       indexForce,
		MaxMessages: indexMax,
	})
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	cmd.Printf("Indexed %d message(s), skipped %d, failed %d.\n",
		report.Indexed, report.Skipped, report.Failed)
	if len(report.FailedIDs) > 0 {
		cmd.Printf("Failed ids (sample): %s\n", strings.Join(report.FailedIDs, ", "))
	}
	return nil
}

// buildSource picks the message source for this run.
func buildSource(cmd *cobra.Command) (driven.MessageSource, error) {
	if indexCorpus != "" {
		return file.NewSource(indexCorpus)
	}

	ts, err := gmailTokenSource(cmd.Context())
	if err != nil {
		return nil, err
	}

	gmailCfg := gmail.DefaultConfig()
	if len(cfg.Gmail.Labels) > 0 {
		gmailCfg.LabelIDs = cfg.Gmail.Labels
	}
	gmailCfg.Query = cfg.Gmail.Query

	return gmail.NewSource(cmd.Context(), ts, gmailCfg)
}
