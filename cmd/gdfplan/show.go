package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gdfplan/internal/pipeline"
)

var showCmd = &cobra.Command{
	Use:   "show <file" + pipeline.PlanExt + ">...",
	Short: "Print exported plan files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for i, path := range args {
			payload, err := pipeline.ReadPlan(path)
			if err != nil {
				return err
			}
			if i > 0 {
				fmt.Fprintln(out)
			}
			if err := payload.Dump(out); err != nil {
				return err
			}
		}
		return nil
	},
}
