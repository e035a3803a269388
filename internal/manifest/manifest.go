// Package manifest reads shallow class declarations from TOML files.
//
//	[[class]]
//	name = "Box"
//	tparams = ["T"]
//	extends = ["Base"]
//
//	  [[class.prop]]
//	  name = "value"
//	  type = "T"
//	  flags = ["readonly"]
//
//	  [[class.method]]
//	  name = "get"
//	  type = "(function(): T)"
//
//	  [class.constructor]
//	  type = "(function(T): void)"
package manifest

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"hhdecl/internal/decl"
	"hhdecl/internal/names"
	"hhdecl/internal/types"
)

var (
	// ErrClassNameMissing indicates a [[class]] table without a name.
	ErrClassNameMissing = errors.New("missing class name")
	// ErrMemberNameMissing indicates a member table without a name.
	ErrMemberNameMissing = errors.New("missing member name")
	// ErrMemberTypeMissing indicates a member table without a type.
	ErrMemberTypeMissing = errors.New("missing member type")
	// ErrUnknownFlag indicates an unrecognized entry in a member's flags.
	ErrUnknownFlag = errors.New("unknown member flag")
	// ErrUnknownKey indicates a key the manifest format does not define.
	ErrUnknownKey = errors.New("unknown manifest key")
	// ErrDuplicateMember indicates a member declared twice in one bucket of a class.
	ErrDuplicateMember = errors.New("duplicate member")
)

type memberTable struct {
	Name       string   `toml:"name"`
	Type       string   `toml:"type"`
	TParams    []string `toml:"tparams"`
	Visibility string   `toml:"visibility"`
	Flags      []string `toml:"flags"`
	Deprecated string   `toml:"deprecated"`
}

type classTable struct {
	Name          string        `toml:"name"`
	Kind          string        `toml:"kind"`
	Abstract      bool          `toml:"abstract"`
	Final         bool          `toml:"final"`
	TParams       []string      `toml:"tparams"`
	Extends       []string      `toml:"extends"`
	Implements    []string      `toml:"implements"`
	Uses          []string      `toml:"uses"`
	Props         []memberTable `toml:"prop"`
	StaticProps   []memberTable `toml:"static_prop"`
	Methods       []memberTable `toml:"method"`
	StaticMethods []memberTable `toml:"static_method"`
	Constructor   *memberTable  `toml:"constructor"`
}

type file struct {
	Classes []classTable `toml:"class"`
}

var flagsByName = map[string]decl.EltFlags{
	"abstract":   decl.FlagAbstract,
	"final":      decl.FlagFinal,
	"readonly":   decl.FlagReadonly,
	"lsb":        decl.FlagLSB,
	"dynamic":    decl.FlagDynamic,
	"needs_init": decl.FlagNeedsInit,
}

// LoadFile parses the manifest at path.
func LoadFile(path string) ([]*decl.ShallowClass, error) {
	var f file
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	classes, err := convert(f, meta)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return classes, nil
}

// Load parses a manifest from r.
func Load(r io.Reader) ([]*decl.ShallowClass, error) {
	var f file
	meta, err := toml.NewDecoder(r).Decode(&f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return convert(f, meta)
}

func convert(f file, meta toml.MetaData) ([]*decl.ShallowClass, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(keys, ", "))
	}
	out := make([]*decl.ShallowClass, 0, len(f.Classes))
	for i := range f.Classes {
		sc, err := convertClass(&f.Classes[i])
		if err != nil {
			if f.Classes[i].Name != "" {
				return nil, fmt.Errorf("class %s: %w", f.Classes[i].Name, err)
			}
			return nil, fmt.Errorf("class #%d: %w", i+1, err)
		}
		out = append(out, sc)
	}
	return out, nil
}

func convertClass(ct *classTable) (*decl.ShallowClass, error) {
	name := names.Type(ct.Name)
	if name == "" {
		return nil, ErrClassNameMissing
	}
	kind, err := decl.ParseClassKind(ct.Kind)
	if err != nil {
		return nil, err
	}
	sc := &decl.ShallowClass{
		Name:     name,
		Kind:     kind,
		Abstract: ct.Abstract,
		Final:    ct.Final,
		TParams:  ct.TParams,
	}
	if sc.Extends, err = parseTypes(ct.Extends, ct.TParams); err != nil {
		return nil, fmt.Errorf("extends: %w", err)
	}
	if sc.Implements, err = parseTypes(ct.Implements, ct.TParams); err != nil {
		return nil, fmt.Errorf("implements: %w", err)
	}
	if sc.Uses, err = parseTypes(ct.Uses, ct.TParams); err != nil {
		return nil, fmt.Errorf("uses: %w", err)
	}

	seenProps := make(map[string]struct{}, len(ct.Props))
	for _, mt := range ct.Props {
		p, err := convertProp(mt, ct.TParams)
		if err != nil {
			return nil, fmt.Errorf("prop %q: %w", mt.Name, err)
		}
		if err := markSeen(seenProps, string(p.Name)); err != nil {
			return nil, fmt.Errorf("prop %q: %w", mt.Name, err)
		}
		sc.Props = append(sc.Props, p)
	}
	seenStaticProps := make(map[string]struct{}, len(ct.StaticProps))
	for _, mt := range ct.StaticProps {
		p, err := convertProp(mt, ct.TParams)
		if err != nil {
			return nil, fmt.Errorf("static_prop %q: %w", mt.Name, err)
		}
		if err := markSeen(seenStaticProps, string(p.Name)); err != nil {
			return nil, fmt.Errorf("static_prop %q: %w", mt.Name, err)
		}
		sc.StaticProps = append(sc.StaticProps, p)
	}
	seenMethods := make(map[string]struct{}, len(ct.Methods))
	for _, mt := range ct.Methods {
		m, err := convertMethod(mt, ct.TParams)
		if err != nil {
			return nil, fmt.Errorf("method %q: %w", mt.Name, err)
		}
		if err := markSeen(seenMethods, string(m.Name)); err != nil {
			return nil, fmt.Errorf("method %q: %w", mt.Name, err)
		}
		sc.Methods = append(sc.Methods, m)
	}
	seenStaticMethods := make(map[string]struct{}, len(ct.StaticMethods))
	for _, mt := range ct.StaticMethods {
		m, err := convertMethod(mt, ct.TParams)
		if err != nil {
			return nil, fmt.Errorf("static_method %q: %w", mt.Name, err)
		}
		if err := markSeen(seenStaticMethods, string(m.Name)); err != nil {
			return nil, fmt.Errorf("static_method %q: %w", mt.Name, err)
		}
		sc.StaticMethods = append(sc.StaticMethods, m)
	}
	if ct.Constructor != nil {
		if ct.Constructor.Name == "" {
			ct.Constructor.Name = string(names.ConstructorName)
		}
		m, err := convertMethod(*ct.Constructor, ct.TParams)
		if err != nil {
			return nil, fmt.Errorf("constructor: %w", err)
		}
		sc.Constructor = &m
	}
	return sc, nil
}

// markSeen records name in seen and fails if it was already there.
func markSeen(seen map[string]struct{}, name string) error {
	if _, dup := seen[name]; dup {
		return ErrDuplicateMember
	}
	seen[name] = struct{}{}
	return nil
}

func parseTypes(srcs []string, generics []string) ([]*types.Ty, error) {
	out := make([]*types.Ty, 0, len(srcs))
	for _, src := range srcs {
		ty, err := types.Parse(src, generics...)
		if err != nil {
			return nil, err
		}
		out = append(out, ty)
	}
	return out, nil
}

func convertCommon(mt memberTable, generics []string) (*types.Ty, decl.Visibility, decl.EltFlags, error) {
	if strings.TrimSpace(mt.Name) == "" {
		return nil, 0, 0, ErrMemberNameMissing
	}
	if strings.TrimSpace(mt.Type) == "" {
		return nil, 0, 0, ErrMemberTypeMissing
	}
	ty, err := types.Parse(mt.Type, slices.Concat(generics, mt.TParams)...)
	if err != nil {
		return nil, 0, 0, err
	}
	vis, err := decl.ParseVisibility(mt.Visibility)
	if err != nil {
		return nil, 0, 0, err
	}
	var flags decl.EltFlags
	for _, f := range mt.Flags {
		bit, ok := flagsByName[strings.ToLower(strings.TrimSpace(f))]
		if !ok {
			return nil, 0, 0, fmt.Errorf("%w %q", ErrUnknownFlag, f)
		}
		flags |= bit
	}
	if mt.Deprecated != "" {
		flags |= decl.FlagDeprecated
	}
	return ty, vis, flags, nil
}

func convertProp(mt memberTable, generics []string) (decl.ShallowProp, error) {
	ty, vis, flags, err := convertCommon(mt, generics)
	if err != nil {
		return decl.ShallowProp{}, err
	}
	return decl.ShallowProp{Name: names.Prop(mt.Name), Type: ty, Visibility: vis, Flags: flags}, nil
}

func convertMethod(mt memberTable, generics []string) (decl.ShallowMethod, error) {
	ty, vis, flags, err := convertCommon(mt, generics)
	if err != nil {
		return decl.ShallowMethod{}, err
	}
	return decl.ShallowMethod{Name: names.Method(mt.Name), Type: ty, Visibility: vis, Flags: flags, Deprecated: mt.Deprecated}, nil
}
