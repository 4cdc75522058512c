package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor runs graph-driven conversations",
	Long: `Arbor drives multi-turn conversations over a directed graph of dialogue nodes
declared in a JSON or YAML file, collecting slots and persisting sessions between turns.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "arbor.yaml", "Configuration file (skipped when missing)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log lifecycle events to stderr")
}

// graphArg returns the graph file given as the first argument, if any.
func graphArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
