package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/nodestore/store"
)

func init() {
	rootCmd.AddCommand(newOpenCmd())
}

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <file>",
		Short: "Create a volume file if it does not already exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(args[0])
		},
	}
}

func runOpen(file string) error {
	v, err := store.OpenVolume(file)
	if err != nil {
		return err
	}
	defer v.Close()
	printVerbose("opened %s\n", file)
	return nil
}
