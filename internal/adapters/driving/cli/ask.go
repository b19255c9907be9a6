package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mailsage/internal/core/ports/driven"
	"github.com/custodia-labs/mailsage/internal/core/ports/driving"
	"github.com/custodia-labs/mailsage/internal/logger"
)

var askShowSteps bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the assistant about your email",
	Long: `Answer a question about indexed email.

The assistant decides which retrieval tools to call (search, thread
lookup, triage, drafting), grounds its answer in the results and cites
message ids in [brackets]. It never fabricates message content.

With a question argument it answers once and exits. Without one it
starts an interactive session that keeps conversation history.

Examples:
  mailsage ask "what did dana say about the offsite budget?"
  mailsage ask --steps "anything urgent from legal this week?"
  mailsage ask`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askShowSteps, "steps", false, "print the tool calls taken")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	assistant, err := buildAssistant()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		result, err := assistant.Ask(cmd.Context(), args[0], nil)
		if err != nil {
			return fmt.Errorf("ask failed: %w", err)
		}
		printTurn(cmd, result)
		return nil
	}

	return runAskSession(cmd, assistant)
}

// runAskSession loops over stdin, threading history through each turn.
func runAskSession(cmd *cobra.Command, assistant driving.Assistant) error {
	cmd.Println("Interactive session. Empty line or 'exit' to quit.")

	var history []driven.ChatMessage
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Fprint(cmd.OutOrStdout(), "> ")
		if !scanner.Scan() {
			break
		}
		utterance := strings.TrimSpace(scanner.Text())
		if utterance == "" || utterance == "exit" || utterance == "quit" {
			break
		}

		result, err := assistant.Ask(cmd.Context(), utterance, history)
		if err != nil {
			// One bad turn should not end the session.
			logger.Warn("turn failed: %v", err)
			cmd.Printf("Error: %v\n", err)
			continue
		}
		printTurn(cmd, result)

		history = append(history,
			driven.ChatMessage{Role: "user", Content: utterance},
			driven.ChatMessage{Role: "assistant", Content: result.Answer},
		)
	}

	return scanner.Err()
}

func printTurn(cmd *cobra.Command, result *driving.TurnResult) {
	if askShowSteps {
		for i, step := range result.Steps {
			status := "ok"
			if step.Failed {
				status = "failed"
			}
			cmd.Printf("[step %d] %s (%s)\n", i+1, step.Call.Name, status)
		}
		if len(result.Steps) > 0 {
			cmd.Println()
		}
	}
	cmd.Println(result.Answer)
}
