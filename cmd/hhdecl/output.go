package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	okColor    = color.New(color.FgGreen, color.Bold)
	errColor   = color.New(color.FgRed, color.Bold)
	classColor = color.New(color.FgCyan)
	dimColor   = color.New(color.Faint)
)

// setupColor applies --color to the fatih/color globals.
func setupColor(cmd *cobra.Command) error {
	mode, err := switchFlag(cmd, "color")
	if err != nil {
		return err
	}
	color.NoColor = !mode.resolve()
	return nil
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", errColor.Sprint("error:"), err)
}
