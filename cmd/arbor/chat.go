package main

import (
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [graph-file]",
	Short: "Talk to a graph in the terminal",
	Long: `Starts (or resumes, with --session) a conversation over stdin/stdout.
Type 'exit' or 'quit' to leave; the session stays in the configured store.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		debug, _ := cmd.Flags().GetBool("debug")
		sessionID, _ := cmd.Flags().GetString("session")
		fresh, _ := cmd.Flags().GetBool("fresh")
		headless, _ := cmd.Flags().GetBool("headless")
		style, _ := cmd.Flags().GetString("style")

		return cli.RunChat(cli.ChatOptions{
			ConfigPath: configPath,
			GraphPath:  graphArg(args),
			SessionID:  sessionID,
			Fresh:      fresh,
			Headless:   headless,
			Style:      style,
			Debug:      debug,
			In:         os.Stdin,
			Out:        os.Stdout,
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("session", "s", "", "Session id to start or resume (generated when empty)")
	chatCmd.Flags().Bool("fresh", false, "Discard stored state for --session before starting")
	chatCmd.Flags().Bool("headless", false, "No banner, prompt or markdown rendering")
	chatCmd.Flags().String("style", "", "Markdown style (dark, light, notty, ...); detected from the terminal when empty")
}
