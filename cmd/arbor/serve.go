package main

import (
	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [graph-file]",
	Short: "Start the HTTP turn API",
	Long: `Serves POST /sessions, POST /sessions/{id}/messages, GET and DELETE /sessions/{id},
GET /sessions/{id}/events (SSE), GET /graph, GET /healthz and GET /metrics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		debug, _ := cmd.Flags().GetBool("debug")
		addr, _ := cmd.Flags().GetString("addr")

		return cli.RunServe(cli.ServeOptions{
			ConfigPath: configPath,
			GraphPath:  graphArg(args),
			Addr:       addr,
			Debug:      debug,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides server.addr)")
}
