package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mailsage/internal/core/domain"
)

var (
	searchLimit  int
	searchSender string
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantic search over indexed email",
	Long: `Search indexed email by meaning rather than exact words.

The query is embedded with the configured embedding model and matched
against message chunks by cosine similarity. Results are distinct
messages, each scored by its best-matching chunk.

Examples:
  mailsage search "quarterly budget review"
  mailsage search "contract renewal" --sender legal@example.com
  mailsage search "standup notes" -n 10 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
	searchCmd.Flags().StringVar(&searchSender, "sender", "", "restrict to a sender address or domain")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	retriever, err := buildRetriever()
	if err != nil {
		return err
	}

	results, err := retriever.SemanticSearch(cmd.Context(), args[0], searchLimit, searchSender)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	outputSearchTable(cmd, results)
	return nil
}

type searchResultOutput struct {
	MessageID string    `json:"message_id"`
	ThreadID  string    `json:"thread_id"`
	Score     float64   `json:"score"`
	From      string    `json:"from"`
	Subject   string    `json:"subject"`
	Timestamp time.Time `json:"timestamp"`
	Excerpt   string    `json:"excerpt"`
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	out := make([]searchResultOutput, 0, len(results))
	for _, r := range results {
		out = append(out, searchResultOutput{
			MessageID: r.Message.ID,
			ThreadID:  r.Message.ThreadID,
			Score:     r.Score,
			From:      r.Message.From,
			Subject:   r.Message.Subject,
			Timestamp: r.Message.Timestamp,
			Excerpt:   excerpt(r.Chunk.Text, 160),
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Printf("Found %d result(s):\n\n", len(results))
	for i, r := range results {
		cmd.Printf("%d. [%.3f] %s\n", i+1, r.Score, r.Message.Subject)
		cmd.Printf("   From: %s  (%s)\n", r.Message.From, r.Message.Timestamp.Format("2006-01-02 15:04"))
		cmd.Printf("   ID: %s  Thread: %s\n", r.Message.ID, r.Message.ThreadID)
		if ex := excerpt(r.Chunk.Text, 160); ex != "" {
			cmd.Printf("   %s\n", ex)
		}
		cmd.Println()
	}
}

// excerpt collapses whitespace and truncates text to at most n runes.
func excerpt(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
