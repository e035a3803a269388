package main

import (
	"github.com/spf13/cobra"
)

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump [flags] [manifest.toml|snapshot-dir]...",
		Short: "Print the typed member listing of classes",
		RunE:  runDump,
	}
	cmd.Flags().StringSlice("class", nil, "dump only these classes (repeatable)")
	return cmd
}

func runDump(cmd *cobra.Command, args []string) error {
	s, err := startSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()
	defer s.dumpTraceOnPanic()

	classes, err := classFlag(cmd)
	if err != nil {
		return err
	}
	ws, err := s.load(args)
	if err != nil {
		return err
	}
	return ws.Dump(s.ctx, cmd.OutOrStdout(), classes)
}
