package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"hhdecl/internal/driver"
	"hhdecl/internal/names"
)

var errMemberNotFound = errors.New("no such member")

func newLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup [flags] [manifest.toml|snapshot-dir]...",
		Short: "Resolve the type of a single class member",
		Example: `  hhdecl lookup decls.toml --class Child --kind method --name m
  hhdecl lookup decls.toml --class Child --kind constructor`,
		RunE: runLookup,
	}
	cmd.Flags().String("class", "", "class to look in")
	cmd.Flags().String("kind", "method", "member kind (prop|static-prop|method|static-method|constructor)")
	cmd.Flags().String("name", "", "member name (ignored for constructors)")
	_ = cmd.MarkFlagRequired("class")
	return cmd
}

func runLookup(cmd *cobra.Command, args []string) error {
	s, err := startSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()
	defer s.dumpTraceOnPanic()

	classStr, err := cmd.Flags().GetString("class")
	if err != nil {
		return fmt.Errorf("failed to get class flag: %w", err)
	}
	kindStr, err := cmd.Flags().GetString("kind")
	if err != nil {
		return fmt.Errorf("failed to get kind flag: %w", err)
	}
	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return fmt.Errorf("failed to get name flag: %w", err)
	}
	kind, err := driver.ParseMemberKind(kindStr)
	if err != nil {
		return err
	}
	if name == "" && kind != driver.MemberConstructor {
		return fmt.Errorf("--name is required for %s lookups", kind)
	}

	ws, err := s.load(args)
	if err != nil {
		return err
	}
	class := names.Type(names.Normalize(classStr))
	elt, err := ws.Lookup(s.ctx, class, kind, names.Normalize(name))
	if err != nil {
		return err
	}
	if elt == nil {
		return fmt.Errorf("%w: %s %s::%s", errMemberNotFound, kind, class, name)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, elt.Ty)
	if !s.quiet {
		fmt.Fprintf(out, "%s %s, declared in %s", dimColor.Sprint("visibility:"), elt.Visibility, classColor.Sprint(elt.Origin))
		if elt.Flags != 0 {
			fmt.Fprintf(out, " [%s]", elt.Flags)
		}
		if elt.Deprecated != "" {
			fmt.Fprintf(out, ", deprecated: %s", elt.Deprecated)
		}
		fmt.Fprintln(out)
	}
	return nil
}
