package cmd

import (
	"github.com/spf13/cobra"
	mcpserver "github.com/sterlingconwell/courier-react/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run MCP server for assistant integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio.

This allows any MCP client to read your inbox using the tools
get_message_count, get_messages, and get_message_lists.

Add to your MCP client config:
  {
    "mcpServers": {
      "courier-inbox": {
        "command": "courier-inbox",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Unbound clients still serve; each tool call reports the missing
		// configuration so the assistant can relay it.
		client, err := newInboxClient()
		if err != nil {
			return err
		}
		if !client.Bound() {
			logger.Warn("inbox client not configured; tools will return errors")
		}

		return mcpserver.Serve(cmd.Context(), client, mcpserver.Options{
			Tabs:     cfg.ListSpecs(),
			PageSize: cfg.Inbox.PageSize,
			Version:  Version,
		})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
