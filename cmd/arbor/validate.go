package main

import (
	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <graph-file>",
	Short: "Check the graph for consistency",
	Long:  `Loads the node configuration and reports missing start nodes, missing end nodes, isolated and unreachable nodes.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return cli.Validate(args[0], cmd.OutOrStdout(), asJSON)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("json", false, "Print the report as JSON")
}
