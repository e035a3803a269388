package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hhdecl/internal/driver"
	"hhdecl/internal/manifest"
	"hhdecl/internal/observ"
	"hhdecl/internal/prof"
	"hhdecl/internal/trace"
	"hhdecl/internal/typing"
)

var errNoInputs = errors.New("no inputs given and no " + manifest.ProjectFileName + " found")

// session carries the per-invocation state shared by every command.
type session struct {
	cmd      *cobra.Command
	ctx      context.Context
	tracer   trace.Tracer
	timer    *observ.Timer
	jobs     int
	quiet    bool
	timings  bool
	profiler *prof.Profiler
	progress driver.ProgressSink
	cleanup  func()
}

func startSession(cmd *cobra.Command) (*session, error) {
	if err := setupColor(cmd); err != nil {
		return nil, err
	}
	flags := cmd.Root().PersistentFlags()
	quiet, err := flags.GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	timings, err := flags.GetBool("timings")
	if err != nil {
		return nil, fmt.Errorf("failed to get timings flag: %w", err)
	}
	jobs, err := flags.GetInt("jobs")
	if err != nil {
		return nil, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if jobs < 0 {
		return nil, fmt.Errorf("--jobs must not be negative")
	}

	profCfg, err := profileFlags(cmd)
	if err != nil {
		return nil, err
	}

	tracer, cleanup, err := setupTracing(cmd)
	if err != nil {
		return nil, err
	}
	profiler, err := prof.Start(profCfg)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to start profiling: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s := &session{
		cmd:      cmd,
		ctx:      trace.WithTracer(ctx, tracer),
		tracer:   tracer,
		jobs:     jobs,
		quiet:    quiet,
		timings:  timings,
		profiler: profiler,
		cleanup:  cleanup,
	}
	if timings {
		s.timer = observ.NewTimer()
	}
	return s, nil
}

// close prints timings when asked for, stops profiles and releases the tracer.
func (s *session) close() {
	if s.timings && !s.quiet {
		fmt.Fprint(s.cmd.ErrOrStderr(), s.timer.Summary())
	}
	if err := s.profiler.Stop(); err != nil {
		fmt.Fprintf(s.cmd.ErrOrStderr(), "prof: %v\n", err)
	}
	s.cleanup()
}

func profileFlags(cmd *cobra.Command) (prof.Config, error) {
	flags := cmd.Root().PersistentFlags()
	var cfg prof.Config
	var err error
	if cfg.CPU, err = flags.GetString("cpuprofile"); err != nil {
		return cfg, fmt.Errorf("failed to get cpuprofile flag: %w", err)
	}
	if cfg.Mem, err = flags.GetString("memprofile"); err != nil {
		return cfg, fmt.Errorf("failed to get memprofile flag: %w", err)
	}
	if cfg.ExecTrace, err = flags.GetString("exectrace"); err != nil {
		return cfg, fmt.Errorf("failed to get exectrace flag: %w", err)
	}
	return cfg, nil
}

// dumpTraceOnPanic writes the ring buffer to stderr before letting a fatal
// invariant violation (or any other panic) continue unwinding.
func (s *session) dumpTraceOnPanic() {
	r := recover()
	if r == nil {
		return
	}
	if ring := trace.RingOf(s.tracer); ring != nil {
		fmt.Fprintln(os.Stderr, "trace: last events before the crash:")
		_ = ring.Dump(os.Stderr, trace.FormatText)
	}
	if m, ok := r.(*typing.MemberTypeMissing); ok {
		fmt.Fprintf(os.Stderr, "%s %s\n", errColor.Sprint("fatal:"), m)
	}
	panic(r)
}

// load resolves inputs: explicit paths win, otherwise the nearest project
// file names them. A project's job count applies when --jobs is 0.
func (s *session) load(args []string) (*driver.Workspace, error) {
	paths := args
	if len(paths) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		path, ok, err := manifest.FindProject(wd)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errNoInputs
		}
		proj, err := manifest.LoadProject(path)
		if err != nil {
			return nil, err
		}
		paths = append(append(paths, proj.Snapshots...), proj.Files...)
		if s.jobs == 0 {
			s.jobs = proj.Jobs
		}
	}
	return driver.Load(s.ctx, paths, driver.Options{Timer: s.timer, Progress: s.progress})
}
