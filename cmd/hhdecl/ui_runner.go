package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"hhdecl/internal/driver"
	"hhdecl/internal/names"
	"hhdecl/internal/ui"
)

type checkOutcome struct {
	reports []driver.Report
	err     error
	panic   any
}

// runCheckWithUI runs ws.Check on a worker goroutine while a progress view
// renders its events. A panic in the worker is re-raised here.
func runCheckWithUI(ctx context.Context, ws *driver.Workspace, events chan driver.Event, classes []names.TypeName, jobs int) ([]driver.Report, error) {
	outcomeCh := make(chan checkOutcome, 1)
	go func() {
		var out checkOutcome
		defer func() {
			out.panic = recover()
			close(events)
			outcomeCh <- out
		}()
		out.reports, out.err = ws.Check(ctx, classes, jobs)
	}()

	model := ui.NewProgressModel("checking", ws.Select(classes), events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		// keep draining so the worker never blocks on a full channel
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if outcome.panic != nil {
		panic(outcome.panic)
	}
	if uiErr != nil {
		return outcome.reports, uiErr
	}
	return outcome.reports, outcome.err
}
