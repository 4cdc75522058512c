package main

import (
	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp [graph-file]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes arbor sessions as MCP tools (start_session, send_message, get_session,
reset_session, validate_graph) so agents can hold conversations with a graph.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		debug, _ := cmd.Flags().GetBool("debug")
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")
		baseURL, _ := cmd.Flags().GetString("base-url")

		return cli.RunMCP(cli.MCPOptions{
			ConfigPath: configPath,
			GraphPath:  graphArg(args),
			Transport:  transport,
			Addr:       addr,
			BaseURL:    baseURL,
			Debug:      debug,
		})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8081", "Listen address (only for SSE)")
	mcpCmd.Flags().String("base-url", "", "Public base URL (only for SSE, defaults to http://localhost<addr>)")
}
