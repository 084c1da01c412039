package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/nodestore/diag"
)

func init() {
	rootCmd.AddCommand(newFsckCmd())
}

func newFsckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fsck <file>",
		Short: "Run a read-only structural check over a volume file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFsck(args[0])
		},
	}
}

func runFsck(file string) error {
	report, err := diag.Check(file)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(report)
	}

	fmt.Printf("nodes checked: %d\n", report.NodeCount)
	if report.OK() {
		fmt.Println("no problems found")
		return nil
	}
	for _, p := range report.Problems {
		fmt.Println("problem:", p)
	}
	return fmt.Errorf("%d problem(s) found", len(report.Problems))
}
