package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/nodestore/node"
)

var (
	treeDepth  int
	treeValues bool
)

func init() {
	cmd := newTreeCmd()
	cmd.Flags().IntVar(&treeDepth, "depth", 5, "Maximum depth")
	cmd.Flags().BoolVar(&treeValues, "values", false, "Show property values too")
	rootCmd.AddCommand(cmd)
}

func newTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree <file> [path]",
		Short: "Display a node subtree",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 1 {
				path = args[1]
			}
			return runTree(args[0], path)
		},
	}
}

func runTree(file, path string) error {
	s, vols, err := openStorage(file)
	if err != nil {
		return err
	}
	defer closeAll(vols)

	n, err := s.GetNode(path)
	if err != nil {
		return err
	}

	label := path
	if label == "" {
		label = "<root>"
	}
	printTree(n, label, 0)
	return nil
}

func printTree(n *node.Node, label string, level int) {
	fmt.Printf("%s%s\n", indent(level), label)
	if treeValues {
		for _, name := range n.PropertyNames() {
			v, err := n.GetProperty(name)
			if err != nil {
				continue
			}
			fmt.Printf("%s  %s = %s\n", indent(level), name, describeValue(v))
		}
	}
	if level >= treeDepth {
		return
	}
	for _, name := range n.ChildNames() {
		child, err := n.GetChild(name)
		if err != nil {
			continue
		}
		printTree(child, name, level+1)
	}
}

func indent(level int) string {
	return strings.Repeat("  ", level)
}
