package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"hhdecl/internal/decl"
	"hhdecl/internal/manifest"
	"hhdecl/internal/names"
	"hhdecl/internal/observ"
	"hhdecl/internal/provider"
	"hhdecl/internal/snapshot"
	"hhdecl/internal/trace"
)

var (
	// ErrUnsupportedInput is returned for paths that are neither manifests nor snapshot directories.
	ErrUnsupportedInput = errors.New("unsupported input")
	// ErrUnknownClass is returned when a requested class has no declaration.
	ErrUnknownClass = errors.New("unknown class")
	// ErrNoInputs is returned when nothing was given to load.
	ErrNoInputs = errors.New("no declaration inputs")
)

// Options configure a workspace.
type Options struct {
	// Timer receives load/fold/check/render phases; nil disables timing.
	Timer *observ.Timer
	// Progress receives per-class events from Check.
	Progress ProgressSink
}

// Workspace is a loaded set of declarations ready to be typed.
type Workspace struct {
	Store *provider.Store
	// Classes lists every declared class, sorted.
	Classes []names.TypeName
	// Manifests holds the classes that came from manifests, in load order.
	Manifests []*decl.ShallowClass

	timer    *observ.Timer
	progress ProgressSink
}

// Load reads manifests (*.toml) and snapshot directories into one store.
// Snapshot classes are loaded lazily, on first use.
func Load(ctx context.Context, paths []string, opts Options) (*Workspace, error) {
	if len(paths) == 0 {
		return nil, ErrNoInputs
	}
	done := opts.Timer.Track("load")
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "load", trace.CurrentSpan(ctx))

	ws, err := load(paths, opts)
	if err != nil {
		span.Fail(err)
		done("failed")
		return nil, err
	}
	note := fmt.Sprintf("%d classes", len(ws.Classes))
	span.With(trace.Int("classes", len(ws.Classes))).End("")
	done(note)
	return ws, nil
}

func load(paths []string, opts Options) (*Workspace, error) {
	var (
		sources []provider.Source
		known   = make(map[names.TypeName]struct{})
		ws      = &Workspace{timer: opts.Timer, progress: opts.Progress}
	)
	for _, path := range paths {
		switch {
		case snapshot.IsDir(path):
			dir, err := snapshot.OpenDir(path)
			if err != nil {
				return nil, err
			}
			list, err := dir.Names()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			for _, n := range list {
				known[n] = struct{}{}
			}
			sources = append(sources, dir)
		case strings.EqualFold(filepath.Ext(path), ".toml"):
			classes, err := manifest.LoadFile(path)
			if err != nil {
				return nil, err
			}
			for _, sc := range classes {
				known[sc.Name] = struct{}{}
			}
			ws.Manifests = append(ws.Manifests, classes...)
		default:
			if _, err := os.Stat(path); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, path)
		}
	}

	store, err := provider.NewStore(provider.Chain(sources...), ws.Manifests...)
	if err != nil {
		return nil, err
	}
	ws.Store = store
	for n := range known {
		ws.Classes = append(ws.Classes, n)
	}
	slices.Sort(ws.Classes)
	return ws, nil
}

// Select returns the requested classes, or every class when none are named.
func (ws *Workspace) Select(classes []names.TypeName) []names.TypeName {
	if len(classes) == 0 {
		return ws.Classes
	}
	return classes
}
