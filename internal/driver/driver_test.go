package driver

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"hhdecl/internal/decl"
	"hhdecl/internal/names"
	"hhdecl/internal/observ"
	"hhdecl/internal/provider"
	"hhdecl/internal/trace"
	"hhdecl/internal/typing"
)

const baseManifest = `
[[class]]
name = "Base"
abstract = true

  [[class.prop]]
  name = "id"
  type = "int"

  [[class.method]]
  name = "describe"
  type = "(function(): string)"
  flags = ["abstract"]

  [class.constructor]
  type = "(function(int): void)"
`

const childManifest = `
[[class]]
name = "Child"
extends = ["Base"]

  [[class.method]]
  name = "m"
  type = "(function(int): void)"

  [[class.static_method]]
  name = "make"
  type = "(function(): Child)"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func loadSample(t *testing.T, opts Options) *Workspace {
	t.Helper()
	dir := t.TempDir()
	ws, err := Load(context.Background(), []string{
		writeFile(t, dir, "base.toml", baseManifest),
		writeFile(t, dir, "child.toml", childManifest),
	}, opts)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return ws
}

func TestLoadCollectsClasses(t *testing.T) {
	ws := loadSample(t, Options{})
	if want := []names.TypeName{"Base", "Child"}; !slices.Equal(ws.Classes, want) {
		t.Fatalf("Classes = %v, want %v", ws.Classes, want)
	}
	if len(ws.Manifests) != 2 {
		t.Fatalf("Manifests = %d, want 2", len(ws.Manifests))
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name  string
		paths []string
		want  error
	}{
		{"no inputs", nil, ErrNoInputs},
		{"plain directory", []string{dir}, ErrUnsupportedInput},
		{"other file", []string{writeFile(t, dir, "a.txt", "")}, ErrUnsupportedInput},
		{"missing file", []string{filepath.Join(dir, "nope.txt")}, os.ErrNotExist},
		{"duplicate class", []string{
			writeFile(t, dir, "one.toml", baseManifest),
			writeFile(t, dir, "two.toml", baseManifest),
		}, provider.ErrDuplicateClass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), tt.paths, Options{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("Load err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCheckReportsEveryClass(t *testing.T) {
	tm := observ.NewTimer()
	ws := loadSample(t, Options{Timer: tm})
	reports, err := ws.Check(context.Background(), nil, 2)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("reports = %d, want 2", len(reports))
	}
	// Base: id, describe, ctor. Child: inherited three plus m and make.
	want := map[names.TypeName]int{"Base": 3, "Child": 5}
	for _, r := range reports {
		if r.Members != want[r.Class] {
			t.Errorf("%s members = %d, want %d", r.Class, r.Members, want[r.Class])
		}
		if r.ResolverCalls != int64(r.Members) {
			t.Errorf("%s resolver calls = %d, want %d", r.Class, r.ResolverCalls, r.Members)
		}
		// describe stays abstract in Child, which does not override it
		if r.Abstract != 1 || r.Kind != decl.KindClass {
			t.Errorf("%s abstract = %d, kind = %s", r.Class, r.Abstract, r.Kind)
		}
	}
	phases := tm.Report().Phases
	if len(phases) != 2 || phases[0].Name != "load" || phases[1].Name != "check" {
		t.Fatalf("phases = %+v", phases)
	}
}

func TestCheckUnknownClass(t *testing.T) {
	ws := loadSample(t, Options{})
	_, err := ws.Check(context.Background(), []names.TypeName{"Base", "Ghost"}, 1)
	if !errors.Is(err, ErrUnknownClass) {
		t.Fatalf("Check err = %v, want ErrUnknownClass", err)
	}
}

func TestCheckReraisesInvariantViolation(t *testing.T) {
	broken := &decl.ShallowClass{
		Name:  "Broken",
		Props: []decl.ShallowProp{{Name: "x"}}, // no type
	}
	store, err := provider.NewStore(nil, broken)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ws := &Workspace{Store: store, Classes: []names.TypeName{"Broken"}}

	defer func() {
		r := recover()
		m, ok := r.(*typing.MemberTypeMissing)
		if !ok {
			t.Fatalf("recovered %T (%v), want *typing.MemberTypeMissing", r, r)
		}
		if !strings.Contains(m.String(), "Broken::x") {
			t.Fatalf("message = %q", m.String())
		}
	}()
	ws.Check(context.Background(), nil, 4)
	t.Fatalf("Check returned instead of panicking")
}

func TestCheckTracesClassSpans(t *testing.T) {
	ring := trace.NewRingTracer(256, trace.LevelDetail)
	ctx := trace.WithTracer(context.Background(), ring)
	ws := loadSample(t, Options{})
	if _, err := ws.Check(ctx, nil, 1); err != nil {
		t.Fatalf("Check: %v", err)
	}
	var classes []string
	for _, ev := range ring.Snapshot() {
		if ev.Scope == trace.ScopeClass && ev.Kind == trace.KindSpanEnd {
			name, _ := ev.Attr("class")
			classes = append(classes, name)
		}
	}
	slices.Sort(classes)
	if want := []string{"Base", "Child"}; !slices.Equal(classes, want) {
		t.Fatalf("class spans = %v, want %v", classes, want)
	}
}

func TestLookup(t *testing.T) {
	ws := loadSample(t, Options{})
	ctx := context.Background()
	tests := []struct {
		kind   MemberKind
		name   string
		ty     string
		origin names.TypeName
	}{
		{MemberProp, "$id", "int", "Base"},
		{MemberMethod, "m", "(function(int): void)", "Child"},
		{MemberMethod, "describe", "(function(): string)", "Base"},
		{MemberStaticMethod, "make", "(function(): Child)", "Child"},
		{MemberConstructor, "", "(function(int): void)", "Base"},
	}
	for _, tt := range tests {
		elt, err := ws.Lookup(ctx, "Child", tt.kind, tt.name)
		if err != nil || elt == nil {
			t.Fatalf("Lookup(%s %s) = %v, %v", tt.kind, tt.name, elt, err)
		}
		if elt.Ty.String() != tt.ty || elt.Origin != tt.origin {
			t.Fatalf("Lookup(%s %s) = %s from %s, want %s from %s", tt.kind, tt.name, elt.Ty, elt.Origin, tt.ty, tt.origin)
		}
	}
	elt, err := ws.Lookup(ctx, "Child", MemberStaticProp, "id")
	if elt != nil || err != nil {
		t.Fatalf("Lookup(static-prop id) = %v, %v; want nil, nil", elt, err)
	}
	if _, err := ws.Lookup(ctx, "Ghost", MemberProp, "id"); !errors.Is(err, ErrUnknownClass) {
		t.Fatalf("Lookup(Ghost) err = %v", err)
	}
}

func TestParseMemberKind(t *testing.T) {
	for k := MemberProp; k <= MemberConstructor; k++ {
		got, err := ParseMemberKind(k.String())
		if err != nil || got != k {
			t.Fatalf("ParseMemberKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseMemberKind("field"); err == nil {
		t.Fatalf("ParseMemberKind(field) should fail")
	}
}

func TestDump(t *testing.T) {
	ws := loadSample(t, Options{})
	var buf bytes.Buffer
	if err := ws.Dump(context.Background(), &buf, []names.TypeName{"Child"}); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"class Child",
		"ancestors: Base",
		"describe",
		"from Base",
		"make",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump missing %q:\n%s", want, out)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ws := loadSample(t, Options{})
	snap := filepath.Join(t.TempDir(), "snap")
	n, err := ws.Snapshot(context.Background(), snap, SnapshotReplace)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if n != 2 {
		t.Fatalf("Snapshot wrote %d classes, want 2", n)
	}

	again, err := Load(context.Background(), []string{snap}, Options{})
	if err != nil {
		t.Fatalf("Load snapshot: %v", err)
	}
	if want := []names.TypeName{"Base", "Child"}; !slices.Equal(again.Classes, want) {
		t.Fatalf("Classes = %v, want %v", again.Classes, want)
	}
	if len(again.Manifests) != 0 {
		t.Fatalf("snapshot classes should load lazily")
	}
	elt, err := again.Lookup(context.Background(), "Child", MemberProp, "id")
	if err != nil || elt == nil || elt.Ty.String() != "int" || elt.Origin != "Base" {
		t.Fatalf("Lookup through snapshot = %v, %v", elt, err)
	}
}

func TestSnapshotMixedWithManifest(t *testing.T) {
	dir := t.TempDir()
	base, err := Load(context.Background(), []string{writeFile(t, dir, "base.toml", baseManifest)}, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	snap := filepath.Join(dir, "snap")
	if _, err := base.Snapshot(context.Background(), snap, SnapshotReplace); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	ws, err := Load(context.Background(), []string{snap, writeFile(t, dir, "child.toml", childManifest)}, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	reports, err := ws.Check(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("reports = %+v", reports)
	}
}

func TestSnapshotModes(t *testing.T) {
	dir := t.TempDir()
	snap := filepath.Join(dir, "snap")
	full := loadSample(t, Options{})
	if _, err := full.Snapshot(context.Background(), snap, SnapshotReplace); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	base, err := Load(context.Background(), []string{writeFile(t, dir, "base.toml", baseManifest)}, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		mode SnapshotMode
		want []names.TypeName
	}{
		{SnapshotMerge, []names.TypeName{"Base", "Child"}},
		{SnapshotReplace, []names.TypeName{"Base"}},
	}
	for _, tt := range tests {
		if _, err := base.Snapshot(context.Background(), snap, tt.mode); err != nil {
			t.Fatalf("Snapshot(%d): %v", tt.mode, err)
		}
		again, err := Load(context.Background(), []string{snap}, Options{})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !slices.Equal(again.Classes, tt.want) {
			t.Fatalf("mode %d: Classes = %v, want %v", tt.mode, again.Classes, tt.want)
		}
	}
	if _, err := base.Lookup(context.Background(), "Child", MemberProp, "id"); !errors.Is(err, ErrUnknownClass) {
		t.Fatalf("Lookup(Child) err = %v, want ErrUnknownClass", err)
	}
}

func TestSnapshotOntoItsOwnInput(t *testing.T) {
	snap := filepath.Join(t.TempDir(), "snap")
	if _, err := loadSample(t, Options{}).Snapshot(context.Background(), snap, SnapshotReplace); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	ws, err := Load(context.Background(), []string{snap}, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n, err := ws.Snapshot(context.Background(), snap, SnapshotReplace); err != nil || n != 2 {
		t.Fatalf("Snapshot onto input = %d, %v", n, err)
	}
	reports, err := ws.Check(context.Background(), nil, 1)
	if err != nil || len(reports) != 2 {
		t.Fatalf("Check after rewrite = %+v, %v", reports, err)
	}
}

type recordSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordSink) OnEvent(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func TestCheckEmitsProgress(t *testing.T) {
	sink := &recordSink{}
	ws := loadSample(t, Options{Progress: sink})
	if _, err := ws.Check(context.Background(), nil, 2); err != nil {
		t.Fatalf("Check: %v", err)
	}
	seen := make(map[names.TypeName][]Status)
	for _, evt := range sink.events {
		seen[evt.Class] = append(seen[evt.Class], evt.Status)
	}
	want := []Status{StatusQueued, StatusWorking, StatusDone}
	for _, class := range []names.TypeName{"Base", "Child"} {
		if !slices.Equal(seen[class], want) {
			t.Fatalf("%s statuses = %v, want %v", class, seen[class], want)
		}
	}
}

func TestChannelSink(t *testing.T) {
	ch := make(chan Event, 1)
	ChannelSink{Ch: ch}.OnEvent(Event{Class: "A", Status: StatusDone})
	if got := <-ch; got.Class != "A" || got.Status != StatusDone {
		t.Fatalf("received %+v", got)
	}
	ChannelSink{}.OnEvent(Event{Class: "B"})
}
