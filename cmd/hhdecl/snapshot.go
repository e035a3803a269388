package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hhdecl/internal/driver"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot [flags] [manifest.toml|snapshot-dir]... -o dir",
		Short: "Write declarations to a msgpack snapshot directory",
		Long:  `Store every loaded class in a snapshot directory that later runs can load lazily instead of parsing manifests`,
		RunE:  runSnapshot,
	}
	cmd.Flags().StringP("output", "o", "", "snapshot directory to write")
	cmd.Flags().Bool("merge", false, "keep classes already stored in the output directory")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	s, err := startSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()
	defer s.dumpTraceOnPanic()

	dir, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	merge, err := cmd.Flags().GetBool("merge")
	if err != nil {
		return fmt.Errorf("failed to get merge flag: %w", err)
	}
	mode := driver.SnapshotReplace
	if merge {
		mode = driver.SnapshotMerge
	}
	ws, err := s.load(args)
	if err != nil {
		return err
	}
	n, err := ws.Snapshot(s.ctx, dir, mode)
	if err != nil {
		return err
	}
	if !s.quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d classes to %s\n", n, dir)
	}
	return nil
}
