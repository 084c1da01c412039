package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newGetCmd())
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <file> <path> <name>",
		Short: "Get a property value from a node",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(args[0], args[1], args[2])
		},
	}
}

func runGet(file, path, name string) error {
	s, vols, err := openStorage(file)
	if err != nil {
		return err
	}
	defer closeAll(vols)

	v, err := s.GetProperty(path, name)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(map[string]string{"name": name, "value": describeValue(v)})
	}
	fmt.Println(describeValue(v))
	return nil
}
