package main

import (
	"fmt"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"hhdecl/internal/driver"
	"hhdecl/internal/names"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [flags] [manifest.toml|snapshot-dir]...",
		Short: "Type every member of every class",
		Long:  `Fold each declared class and resolve the type of all of its members, reporting per-class counts`,
		RunE:  runCheck,
	}
	cmd.Flags().StringSlice("class", nil, "check only these classes (repeatable)")
	cmd.Flags().String("ui", "auto", "live progress view (auto|on|off)")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
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
	mode, err := switchFlag(cmd, "ui")
	if err != nil {
		return err
	}
	useTUI := !s.quiet && mode.resolve()

	var events chan driver.Event
	if useTUI {
		events = make(chan driver.Event, 256)
		s.progress = driver.ChannelSink{Ch: events}
	}
	ws, err := s.load(args)
	if err != nil {
		return err
	}
	var reports []driver.Report
	if useTUI {
		reports, err = runCheckWithUI(s.ctx, ws, events, classes, s.jobs)
	} else {
		reports, err = ws.Check(s.ctx, classes, s.jobs)
	}
	if err != nil {
		return err
	}
	// the progress view already listed every class
	listClasses := !s.quiet && !useTUI

	out := cmd.OutOrStdout()
	width := 0
	for _, r := range reports {
		width = max(width, runewidth.StringWidth(string(r.Class)))
	}
	members := 0
	for _, r := range reports {
		members += r.Members
		if !listClasses {
			continue
		}
		fmt.Fprintf(out, "%s  %s  %d members", okColor.Sprint("ok"),
			classColor.Sprint(runewidth.FillRight(string(r.Class), width)), r.Members)
		if r.Abstract > 0 {
			fmt.Fprint(out, dimColor.Sprintf(", %d abstract", r.Abstract))
		}
		if s.timings {
			fmt.Fprint(out, dimColor.Sprintf("  %d resolver calls, %s", r.ResolverCalls, r.Duration))
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "checked %d classes, %d members\n", len(reports), members)
	return nil
}

func classFlag(cmd *cobra.Command) ([]names.TypeName, error) {
	raw, err := cmd.Flags().GetStringSlice("class")
	if err != nil {
		return nil, fmt.Errorf("failed to get class flag: %w", err)
	}
	var out []names.TypeName
	for _, c := range raw {
		out = append(out, names.Type(names.Normalize(c)))
	}
	return out, nil
}
