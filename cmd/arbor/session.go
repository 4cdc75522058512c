package main

import (
	"errors"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored sessions",
	Long:  `List, inspect, remove and clean up sessions in the configured store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all active sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, func(a *cli.SessionAdmin) error {
			return a.List(cmd.Context())
		})
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Inspect the state of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, func(a *cli.SessionAdmin) error {
			return a.Inspect(cmd.Context(), args[0])
		})
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all == (len(args) > 0) {
			return errors.New("pass session ids or --all")
		}
		return withAdmin(cmd, func(a *cli.SessionAdmin) error {
			if all {
				return a.RemoveAll(cmd.Context())
			}
			return a.Remove(cmd.Context(), args...)
		})
	},
}

var sessionCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge expired sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(cmd, func(a *cli.SessionAdmin) error {
			return a.Cleanup(cmd.Context())
		})
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	sessionCmd.AddCommand(sessionCleanupCmd)
	sessionRmCmd.Flags().Bool("all", false, "Remove every active session")
}

func withAdmin(cmd *cobra.Command, fn func(*cli.SessionAdmin) error) error {
	configPath, _ := cmd.Flags().GetString("config")
	admin, err := cli.OpenSessionAdmin(cmd.Context(), configPath, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer admin.Close()
	return fn(admin)
}
