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
	triageDays   int
	triageSender string
	triageJSON   bool
)

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Rank recent email by urgency",
	Long: `Scan recently indexed messages and rank them by urgency.

Urgency is the number of distinct signal phrases ("urgent", "action
required", "please reply", ...) found in subject and body. Messages matching no
phrase are omitted.

Examples:
  mailsage triage
  mailsage triage --days 3
  mailsage triage --sender ops@example.com --json`,
	RunE: runTriage,
}

func init() {
	triageCmd.Flags().IntVar(&triageDays, "days", 7, "look-back window in days")
	triageCmd.Flags().StringVar(&triageSender, "sender", "", "restrict to a sender address or domain")
	triageCmd.Flags().BoolVar(&triageJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(triageCmd)
}

func runTriage(cmd *cobra.Command, _ []string) error {
	triager, err := buildTriager()
	if err != nil {
		return err
	}

	candidates, err := triager.Triage(cmd.Context(), triageDays, triageSender)
	if err != nil {
		return fmt.Errorf("triage failed: %w", err)
	}

	if triageJSON {
		return outputTriageJSON(cmd, candidates)
	}
	outputTriageTable(cmd, candidates)
	return nil
}

type triageCandidateOutput struct {
	MessageID       string    `json:"message_id"`
	ThreadID        string    `json:"thread_id"`
	UrgencyScore    int       `json:"urgency_score"`
	MatchedKeywords []string  `json:"matched_keywords"`
	From            string    `json:"from"`
	Subject         string    `json:"subject"`
	Timestamp       time.Time `json:"timestamp"`
}

func outputTriageJSON(cmd *cobra.Command, candidates []domain.TriageCandidate) error {
	out := make([]triageCandidateOutput, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, triageCandidateOutput{
			MessageID:       c.Message.ID,
			ThreadID:        c.Message.ThreadID,
			UrgencyScore:    c.UrgencyScore,
			MatchedKeywords: c.MatchedKeywords,
			From:            c.Message.From,
			Subject:         c.Message.Subject,
			Timestamp:       c.Message.Timestamp,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputTriageTable(cmd *cobra.Command, candidates []domain.TriageCandidate) {
	if len(candidates) == 0 {
		cmd.Printf("Nothing urgent in the last %d day(s).\n", triageDays)
		return
	}

	cmd.Printf("%d message(s) may need a reply:\n\n", len(candidates))
	for i, c := range candidates {
		cmd.Printf("%d. [score %d] %s\n", i+1, c.UrgencyScore, c.Message.Subject)
		cmd.Printf("   From: %s  (%s)\n", c.Message.From, c.Message.Timestamp.Format("2006-01-02 15:04"))
		cmd.Printf("   ID: %s  Thread: %s\n", c.Message.ID, c.Message.ThreadID)
		cmd.Printf("   Matched: %s\n", strings.Join(c.MatchedKeywords, ", "))
		cmd.Println()
	}
}
