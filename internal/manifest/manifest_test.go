package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hhdecl/internal/decl"
	"hhdecl/internal/names"
	"hhdecl/internal/types"
)

const sample = `
[[class]]
name = "\\App\\Box"
tparams = ["T"]
extends = ["Base<T>"]
implements = ["HasValue"]

  [[class.prop]]
  name = "$value"
  type = "T"
  visibility = "private"
  flags = ["readonly"]

  [[class.static_prop]]
  name = "instances"
  type = "int"

  [[class.method]]
  name = "map"
  tparams = ["U"]
  type = "(function((function(T): U)): Box<U>)"

  [[class.static_method]]
  name = "empty"
  type = "(function(): Box<nothing>)"
  deprecated = "use Box::of"

  [class.constructor]
  type = "(function(T): void)"

[[class]]
name = "HasValue"
kind = "interface"
`

func TestLoadManifest(t *testing.T) {
	classes, err := Load(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(classes) != 2 {
		t.Fatalf("got %d classes, want 2", len(classes))
	}
	box := classes[0]
	if box.Name != `App\Box` {
		t.Fatalf("name = %q", box.Name)
	}
	if len(box.Extends) != 1 || box.Extends[0].String() != "Base<T>" || box.Extends[0].Args[0].Kind != types.KindGeneric {
		t.Fatalf("extends = %v", box.Extends)
	}
	p := box.FindProp("value")
	if p == nil || p.Visibility != decl.Private || !p.Flags.Has(decl.FlagReadonly) || p.Type.Kind != types.KindGeneric {
		t.Fatalf("prop value = %+v", p)
	}
	m := box.FindMethod("map")
	if m == nil || m.Type.String() != "(function((function(T): U)): Box<U>)" {
		t.Fatalf("method map = %+v", m)
	}
	if m.Type.Ret.Args[0].Kind != types.KindGeneric {
		t.Fatalf("method-level tparams must be generics")
	}
	sm := box.FindStaticMethod("empty")
	if sm == nil || sm.Deprecated != "use Box::of" || !sm.Flags.Has(decl.FlagDeprecated) {
		t.Fatalf("static method empty = %+v", sm)
	}
	if box.Constructor == nil || box.Constructor.Name != names.ConstructorName {
		t.Fatalf("constructor = %+v", box.Constructor)
	}
	if classes[1].Kind != decl.KindInterface {
		t.Fatalf("HasValue kind = %s", classes[1].Kind)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want error
	}{
		{"no class name", "[[class]]\nkind = \"class\"\n", ErrClassNameMissing},
		{"no member name", "[[class]]\nname = \"C\"\n[[class.prop]]\ntype = \"int\"\n", ErrMemberNameMissing},
		{"no member type", "[[class]]\nname = \"C\"\n[[class.method]]\nname = \"m\"\n", ErrMemberTypeMissing},
		{"bad flag", "[[class]]\nname = \"C\"\n[[class.prop]]\nname = \"p\"\ntype = \"int\"\nflags = [\"volatile\"]\n", ErrUnknownFlag},
		{"bad type", "[[class]]\nname = \"C\"\n[[class.prop]]\nname = \"p\"\ntype = \"Vector<int\"\n", types.ErrSyntax},
		{"unknown key", "[[class]]\nname = \"C\"\ncolour = \"red\"\n", ErrUnknownKey},
		{"duplicate prop", "[[class]]\nname = \"D\"\n[[class.prop]]\nname = \"x\"\ntype = \"int\"\n[[class.prop]]\nname = \"$x\"\ntype = \"string\"\nvisibility = \"private\"\n", ErrDuplicateMember},
		{"duplicate static method", "[[class]]\nname = \"D\"\n[[class.static_method]]\nname = \"m\"\ntype = \"(function(): void)\"\n[[class.static_method]]\nname = \"m\"\ntype = \"(function(): int)\"\n", ErrDuplicateMember},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tc.src))
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestSameNameAcrossBucketsIsAllowed(t *testing.T) {
	src := "[[class]]\nname = \"D\"\n[[class.prop]]\nname = \"x\"\ntype = \"int\"\n[[class.static_prop]]\nname = \"x\"\ntype = \"string\"\n"
	classes, err := Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if classes[0].FindProp("x") == nil || classes[0].FindStaticProp("x") == nil {
		t.Fatalf("both x members must be kept: %+v", classes[0])
	}
}

func TestDuplicateMemberNamesClass(t *testing.T) {
	src := "[[class]]\nname = \"D\"\n[[class.method]]\nname = \"m\"\ntype = \"(function(): void)\"\n[[class.method]]\nname = \"m\"\ntype = \"(function(): int)\"\n"
	_, err := Load(strings.NewReader(src))
	if !errors.Is(err, ErrDuplicateMember) || !strings.Contains(err.Error(), "class D") || !strings.Contains(err.Error(), `"m"`) {
		t.Fatalf("error = %v", err)
	}
}

func TestLoadFileReportsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[[class]]\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadFile(path)
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Fatalf("error %v should mention %s", err, path)
	}
}

func TestProjectFile(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "[decls]\nfiles = [\"decls/a.toml\"]\nsnapshots = [\"cache\"]\n\n[check]\njobs = 3\n"
	if err := os.WriteFile(filepath.Join(root, ProjectFileName), []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	path, ok, err := FindProject(nested)
	if err != nil || !ok {
		t.Fatalf("FindProject = %q, %v, %v", path, ok, err)
	}
	p, err := LoadProject(path)
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if p.Jobs != 3 {
		t.Errorf("jobs = %d", p.Jobs)
	}
	if len(p.Files) != 1 || p.Files[0] != filepath.Join(filepath.Dir(path), "decls", "a.toml") {
		t.Errorf("files = %v", p.Files)
	}
	if len(p.Snapshots) != 1 || filepath.Base(p.Snapshots[0]) != "cache" {
		t.Errorf("snapshots = %v", p.Snapshots)
	}
}

func TestProjectFileRequiresDecls(t *testing.T) {
	path := filepath.Join(t.TempDir(), ProjectFileName)
	if err := os.WriteFile(path, []byte("[check]\njobs = 1\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadProject(path); !errors.Is(err, ErrDeclsSectionMissing) {
		t.Fatalf("error = %v, want ErrDeclsSectionMissing", err)
	}
}
