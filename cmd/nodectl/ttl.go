package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newTTLCmd())
}

func newTTLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ttl <file> <path> <duration>",
		Short: "Schedule a node for deletion after duration (0 cancels)",
		Long: `The ttl command schedules the node at path for deletion after duration
(e.g. "5m", "1h30m"), or cancels any pending deletion if duration is "0".

The deletion itself only happens while a process holds the volume open and
its background worker running; nodectl is a one-shot tool, so a deadline
set here fires the next time some process (this one or another) opens the
volume and keeps it open past the deadline.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTTL(args[0], args[1], args[2])
		},
	}
}

func runTTL(file, path, durationStr string) error {
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", durationStr, err)
	}

	s, vols, err := openStorage(file)
	if err != nil {
		return err
	}
	defer closeAll(vols)

	n, err := s.GetNode(path)
	if err != nil {
		return err
	}
	return n.SetTimeToLive(d)
}
