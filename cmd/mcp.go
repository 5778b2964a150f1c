package cmd

import (
	"github.com/huangsam/stimstrain/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Stimstrain MCP server",
	Long:  `Launch an MCP server that lets AI agents read day reports, trends and heart-rate correlations over stdio.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// stdout is reserved for the protocol, so nothing may be printed here.
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, storeManager)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
