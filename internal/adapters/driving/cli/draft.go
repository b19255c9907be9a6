package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var draftTone string

var draftCmd = &cobra.Command{
	Use:   "draft [thread-id]",
	Short: "Draft a reply to a thread",
	Long: `Generate a reply draft for the chronologically last message of a thread.

The draft is printed, never sent; mailsage has no ability to send mail.
Tones: professional (default), concise, friendly, formal.

Examples:
  mailsage draft thread-1842
  mailsage draft thread-1842 --tone concise`,
	Args: cobra.ExactArgs(1),
	RunE: runDraft,
}

func init() {
	draftCmd.Flags().StringVar(&draftTone, "tone", "", "draft tone (professional, concise, friendly, formal)")
	rootCmd.AddCommand(draftCmd)
}

func runDraft(cmd *cobra.Command, args []string) error {
	drafter, err := buildDrafter()
	if err != nil {
		return err
	}

	draft, err := drafter.DraftReply(cmd.Context(), args[0], draftTone)
	if err != nil {
		return fmt.Errorf("drafting failed: %w", err)
	}

	cmd.Printf("Reply to: %s (%s)\n", draft.Sender, draft.InReplyTo)
	cmd.Printf("Subject:  Re: %s\n", draft.Subject)
	cmd.Printf("Tone:     %s\n\n", draft.Tone)
	cmd.Println(draft.Text)
	return nil
}
