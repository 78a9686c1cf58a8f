// Command constellation walks a project tree bottom-up and writes a summary
// and a mermaid diagram for every directory.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &runOptions{}
	rootCmd := &cobra.Command{
		Use:   "constellation [root]",
		Short: "Summarize a project directory by directory",
		Long: `Constellation walks a project tree children-first, asks an LLM for a
summary and a mermaid diagram of every directory, and stores them in a tree
mirroring the project under the output root.

Usage modes:
  constellation              Analyze the parent of the current directory
  constellation <root>       Analyze <root>
  constellation show <id>    Print a stored document`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(cmd, opts, args)
		},
	}
	opts.bind(rootCmd)

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to "+configFileHint)
	rootCmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress progress logs")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(showCmd(opts))
	return rootCmd
}
