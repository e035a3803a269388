package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"hhdecl/internal/decl"
	"hhdecl/internal/names"
	"hhdecl/internal/trace"
	"hhdecl/internal/typing"
)

// Report summarizes the typing of one class.
type Report struct {
	Class         names.TypeName `json:"class"`
	Kind          decl.ClassKind `json:"kind"`
	Members       int            `json:"members"`
	Abstract      int            `json:"abstract"` // members without an implementation
	ResolverCalls int64          `json:"resolver_calls"`
	Duration      time.Duration  `json:"duration_ns"`
}

var errAborted = errors.New("check aborted")

// Check types every member of every class on up to jobs goroutines
// (0 means GOMAXPROCS). Reports are in class order.
//
// A fatal invariant violation in any worker stops the others and is
// re-raised on the calling goroutine once they have drained.
func (ws *Workspace) Check(ctx context.Context, classes []names.TypeName, jobs int) ([]Report, error) {
	classes = ws.Select(classes)
	if len(classes) == 0 {
		return nil, nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	done := ws.timer.Track("check")
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "check", trace.CurrentSpan(ctx), trace.Int("jobs", jobs))
	ctx = trace.WithSpan(ctx, span)

	// indices are unique per goroutine, no mutex needed
	reports := make([]Report, len(classes))
	var fatal atomic.Pointer[typing.MemberTypeMissing]
	for _, name := range classes {
		ws.emit(Event{Class: name, Status: StatusQueued})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(classes)))
	for i, name := range classes {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					m, ok := r.(*typing.MemberTypeMissing)
					if !ok {
						panic(r)
					}
					fatal.CompareAndSwap(nil, m)
					ws.emit(Event{Class: name, Status: StatusError, Err: errAborted})
					err = errAborted
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			ws.emit(Event{Class: name, Status: StatusWorking})
			rep, err := ws.checkClass(gctx, name)
			if err != nil {
				ws.emit(Event{Class: name, Status: StatusError, Err: err})
				return fmt.Errorf("%s: %w", name, err)
			}
			reports[i] = rep
			ws.emit(Event{Class: name, Status: StatusDone, Members: rep.Members, Elapsed: rep.Duration})
			return nil
		})
	}
	err := g.Wait()
	if m := fatal.Load(); m != nil {
		span.End("fatal: " + m.String())
		done("fatal")
		panic(m)
	}
	if err != nil {
		span.Fail(err)
		done("failed")
		return nil, err
	}
	span.End("")
	done(fmt.Sprintf("%d classes", len(classes)))
	return reports, nil
}

func (ws *Workspace) checkClass(ctx context.Context, name names.TypeName) (Report, error) {
	start := time.Now()
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeClass, "class", trace.CurrentSpan(ctx), trace.Str("class", string(name)))
	ctx = trace.WithSpan(ctx, span)

	view, err := ws.View(ctx, name)
	if err != nil {
		span.Fail(err)
		return Report{}, err
	}
	if err := view.FetchAllMembers(); err != nil {
		span.Fail(err)
		return Report{}, err
	}
	rep := Report{
		Class:         name,
		Kind:          view.Class().Kind,
		Members:       view.Cached(),
		Abstract:      view.AbstractMembers(),
		ResolverCalls: view.Stats().ResolverCalls,
		Duration:      time.Since(start),
	}
	span.With(trace.Int("members", rep.Members)).End("")
	return rep, nil
}

// Dump writes the listing of each class to w, separated by blank lines.
func (ws *Workspace) Dump(ctx context.Context, w io.Writer, classes []names.TypeName) error {
	views, err := ws.Views(ctx, classes)
	if err != nil {
		return err
	}
	done := ws.timer.Track("render")
	defer done("")
	for i, view := range views {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := view.Dump(w); err != nil {
			return fmt.Errorf("%s: %w", view.Name(), err)
		}
	}
	return nil
}

// Snapshot writes every class of the workspace into dir.
func (ws *Workspace) Snapshot(ctx context.Context, dir string, mode SnapshotMode) (int, error) {
	done := ws.timer.Track("snapshot")
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeDriver, "snapshot", trace.CurrentSpan(ctx), trace.Str("dir", dir))
	n, err := writeSnapshot(dir, ws, mode)
	if err != nil {
		span.Fail(err)
		done("failed")
		return 0, err
	}
	span.End("")
	done(fmt.Sprintf("%d classes", n))
	return n, nil
}
