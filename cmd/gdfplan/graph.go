package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gdfplan/internal/gdf"
	"gdfplan/internal/progfile"
)

var graphCmd = &cobra.Command{
	Use:   "graph [flags] <file.gdf.toml>",
	Short: "Print the global data-flow graph of a program",
	Args:  cobra.ExactArgs(1),
	RunE:  runGraph,
}

func init() {
	graphCmd.Flags().Bool("strict", false, "reject loop-updated variables without a binding after the body")
	graphCmd.Flags().Bool("no-validate", false, "skip the structural checks on the built graph")
}

func runGraph(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	strict, err := cmd.Flags().GetBool("strict")
	if err != nil {
		return err
	}
	noValidate, err := cmd.Flags().GetBool("no-validate")
	if err != nil {
		return err
	}

	p, err := progfile.Load(args[0])
	if err != nil {
		return err
	}
	g, err := gdf.Build(cmd.Context(), p, gdf.Options{Strict: strict})
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	if !noValidate {
		if err := gdf.Validate(g); err != nil {
			return fmt.Errorf("%s: invalid graph: %w", args[0], err)
		}
	}
	return gdf.Dump(cmd.OutOrStdout(), g)
}
