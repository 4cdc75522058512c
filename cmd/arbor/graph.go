package main

import (
	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <graph-file>",
	Short: "Summarize the graph",
	Long:  `Prints node and edge counts, start and end nodes, the topological order (or the cyclic nodes) and nodes grouped by stage.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		policy, _ := cmd.Flags().GetString("classifier")
		return cli.PrintInfo(args[0], policy, cmd.OutOrStdout(), asJSON)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("json", false, "Print the summary as JSON")
	graphCmd.Flags().String("classifier", "declared", "Stage policy: 'declared' or 'rules'")
}
