package main

import (
	"github.com/spf13/cobra"
)

var setType string

func init() {
	cmd := newSetCmd()
	cmd.Flags().StringVar(&setType, "type", "string",
		"Value type: int32, uint32, int64, uint64, float32, float64, string")
	rootCmd.AddCommand(cmd)
}

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <file> <path> <name> <value>",
		Short: "Set a property value on a node",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(args[0], args[1], args[2], args[3])
		},
	}
}

func runSet(file, path, name, raw string) error {
	v, err := parseValue(setType, raw)
	if err != nil {
		return err
	}

	s, vols, err := openStorage(file)
	if err != nil {
		return err
	}
	defer closeAll(vols)

	return s.SetProperty(path, name, v)
}
