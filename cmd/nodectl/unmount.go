package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newUnmountCmd())
}

func newUnmountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unmount <file> <prefix>",
		Short: "Remove a recorded mount",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnmount(args[0], args[1])
		},
	}
}

func runUnmount(file, prefix string) error {
	entries, err := loadManifest(file)
	if err != nil {
		return err
	}

	out := entries[:0]
	found := false
	for _, e := range entries {
		if e.Prefix == prefix {
			found = true
			continue
		}
		out = append(out, e)
	}
	if !found {
		return fmt.Errorf("prefix %q is not mounted", prefix)
	}
	return saveManifest(file, out)
}
