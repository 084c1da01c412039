package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/nodestore/store"
)

func init() {
	rootCmd.AddCommand(newMountCmd())
}

func newMountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mount <file> <prefix> <volume-file> [node-path]",
		Short: "Record an additional volume (or a node path within it) mounted at prefix",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodePath := ""
			if len(args) == 4 {
				nodePath = args[3]
			}
			return runMount(args[0], args[1], args[2], nodePath)
		},
	}
}

func runMount(file, prefix, volumePath, nodePath string) error {
	vol, err := store.OpenVolume(volumePath)
	if err != nil {
		return err
	}
	defer vol.Close()

	if _, err := vol.Root().GetNode(nodePath); err != nil {
		return fmt.Errorf("node path %q in %s: %w", nodePath, volumePath, err)
	}

	entries, err := loadManifest(file)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Prefix == prefix {
			return fmt.Errorf("prefix %q is already mounted at %s", prefix, e.Path)
		}
	}
	entries = append(entries, mountEntry{Prefix: prefix, Path: volumePath, NodePath: nodePath})
	return saveManifest(file, entries)
}
