package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mailsage/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes search_emails, get_thread, triage_recent and
draft_reply over JSON-RPC. By default it communicates over stdio; use
--port to serve HTTP instead.

Examples:
  # Stdio mode (default, for Claude Desktop)
  mailsage mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  mailsage mcp serve --port 8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "mailsage": {
        "command": "/path/to/mailsage",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	retriever, err := buildRetriever()
	if err != nil {
		return err
	}
	triager, err := buildTriager()
	if err != nil {
		return err
	}
	drafter, err := buildDrafter()
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Retriever: retriever,
		Triager:   triager,
		Drafter:   drafter,
	})
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
