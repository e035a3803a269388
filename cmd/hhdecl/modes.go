package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// switchMode is the value of an auto|on|off flag.
type switchMode uint8

const (
	modeAuto switchMode = iota
	modeOn
	modeOff
)

func parseSwitch(flag, value string) (switchMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return modeAuto, nil
	case "on":
		return modeOn, nil
	case "off":
		return modeOff, nil
	default:
		return modeAuto, fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
	}
}

// switchFlag reads an auto|on|off flag from cmd or any of its parents.
func switchFlag(cmd *cobra.Command, flag string) (switchMode, error) {
	value, err := cmd.Flags().GetString(flag)
	if err != nil {
		return modeAuto, fmt.Errorf("failed to get %s flag: %w", flag, err)
	}
	return parseSwitch(flag, value)
}

// resolve turns auto into on when stdout is an interactive terminal.
func (m switchMode) resolve() bool {
	switch m {
	case modeOn:
		return true
	case modeOff:
		return false
	default:
		return isTerminal(os.Stdout) && os.Getenv("TERM") != "dumb"
	}
}
