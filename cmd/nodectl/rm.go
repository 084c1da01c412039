package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var rmProperty string

func init() {
	cmd := newRmCmd()
	cmd.Flags().StringVar(&rmProperty, "property", "", "Remove this property instead of the node at path")
	rootCmd.AddCommand(cmd)
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <file> <path>",
		Short: "Remove a node, or a property with --property",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRm(args[0], args[1])
		},
	}
}

func runRm(file, path string) error {
	s, vols, err := openStorage(file)
	if err != nil {
		return err
	}
	defer closeAll(vols)

	if rmProperty != "" {
		_, err := s.RemoveProperty(path, rmProperty)
		return err
	}

	parentPath, name := splitLast(path)
	return s.RemoveNode(parentPath, name)
}

func splitLast(path string) (parent, leaf string) {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}
