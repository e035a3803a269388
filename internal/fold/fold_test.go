package fold

import (
	"errors"
	"testing"

	"hhdecl/internal/decl"
	"hhdecl/internal/names"
	"hhdecl/internal/types"
)

func lookupIn(classes ...*decl.ShallowClass) Lookup {
	byName := make(map[names.TypeName]*decl.ShallowClass, len(classes))
	for _, c := range classes {
		byName[c.Name] = c
	}
	return func(name names.TypeName) (*decl.ShallowClass, error) {
		return byName[name], nil
	}
}

func method(name string, vis decl.Visibility) decl.ShallowMethod {
	return decl.ShallowMethod{Name: names.MethodName(name), Type: types.MakeFun(nil, types.Void), Visibility: vis}
}

func TestFoldInheritsFromParent(t *testing.T) {
	a := &decl.ShallowClass{
		Name: "A",
		Props: []decl.ShallowProp{
			{Name: "x", Type: types.Int},
			{Name: "secret", Type: types.String, Visibility: decl.Private},
		},
		Methods:     []decl.ShallowMethod{method("m", decl.Public), method("n", decl.Protected)},
		Constructor: &decl.ShallowMethod{Name: names.ConstructorName, Type: types.MakeFun([]*types.Ty{types.Int}, types.Void)},
	}
	b := &decl.ShallowClass{
		Name:    "B",
		Extends: []*types.Ty{types.MakeClass("A")},
		Methods: []decl.ShallowMethod{method("m", decl.Public)},
	}
	fc, err := Fold("B", lookupIn(a, b))
	if err != nil {
		t.Fatalf("Fold: %v", err)
	}
	if got := fc.Props["x"]; got == nil || got.Origin != "A" {
		t.Fatalf("x should be inherited from A, got %+v", got)
	}
	if _, ok := fc.Props["secret"]; ok {
		t.Fatalf("private parent props must not be inherited")
	}
	if got := fc.Methods["m"].Origin; got != "B" {
		t.Errorf("m origin = %s, want B", got)
	}
	if got := fc.Methods["n"].Origin; got != "A" {
		t.Errorf("n origin = %s, want A", got)
	}
	if fc.Constructor == nil || fc.Constructor.Origin != "A" {
		t.Errorf("constructor should come from A, got %+v", fc.Constructor)
	}
	if !fc.HasAncestor("A") || len(fc.Ancestors) != 1 {
		t.Errorf("ancestors = %v", fc.Ancestors)
	}
}

func TestFoldTraitsAndInterfaces(t *testing.T) {
	tr := &decl.ShallowClass{
		Name:    "T",
		Kind:    decl.KindTrait,
		Methods: []decl.ShallowMethod{method("helper", decl.Private), method("shared", decl.Public)},
	}
	iface := &decl.ShallowClass{
		Name:          "I",
		Kind:          decl.KindInterface,
		Methods:       []decl.ShallowMethod{method("shared", decl.Public), method("abstractOnly", decl.Public)},
		StaticMethods: []decl.ShallowMethod{method("make", decl.Public)},
	}
	c := &decl.ShallowClass{
		Name:       "C",
		Uses:       []*types.Ty{types.MakeClass("T")},
		Implements: []*types.Ty{types.MakeClass("I")},
	}
	fc, err := Fold("C", lookupIn(tr, iface, c))
	if err != nil {
		t.Fatalf("Fold: %v", err)
	}
	want := map[names.MethodName]names.TypeName{"helper": "T", "shared": "T", "abstractOnly": "I"}
	for name, origin := range want {
		elt, ok := fc.Methods[name]
		if !ok {
			t.Fatalf("missing method %s", name)
		}
		if elt.Origin != origin {
			t.Errorf("%s origin = %s, want %s", name, elt.Origin, origin)
		}
	}
	if fc.StaticMethods["make"] == nil {
		t.Errorf("static interface method should be present")
	}
}

func TestFoldSharesParentElts(t *testing.T) {
	a := &decl.ShallowClass{Name: "A", Methods: []decl.ShallowMethod{method("m", decl.Public)}}
	b := &decl.ShallowClass{Name: "B", Extends: []*types.Ty{types.MakeClass("A")}}
	c := &decl.ShallowClass{Name: "C", Extends: []*types.Ty{types.MakeClass("B")}}
	fc, err := Fold("C", lookupIn(a, b, c))
	if err != nil {
		t.Fatalf("Fold: %v", err)
	}
	if fc.Methods["m"].Origin != "A" {
		t.Fatalf("origin must survive two levels, got %s", fc.Methods["m"].Origin)
	}
	if len(fc.Ancestors) != 2 || fc.Ancestors[0] != "B" || fc.Ancestors[1] != "A" {
		t.Fatalf("ancestors = %v, want [B A]", fc.Ancestors)
	}
}

func TestFoldErrors(t *testing.T) {
	cases := []struct {
		name    string
		classes []*decl.ShallowClass
		target  names.TypeName
		want    error
	}{
		{
			name:   "unknown",
			target: "Nope",
			want:   ErrUnknownClass,
		},
		{
			name:    "unknown parent",
			classes: []*decl.ShallowClass{{Name: "B", Extends: []*types.Ty{types.MakeClass("A")}}},
			target:  "B",
			want:    ErrUnknownClass,
		},
		{
			name: "cycle",
			classes: []*decl.ShallowClass{
				{Name: "A", Extends: []*types.Ty{types.MakeClass("B")}},
				{Name: "B", Extends: []*types.Ty{types.MakeClass("A")}},
			},
			target: "A",
			want:   ErrCycle,
		},
		{
			name: "uses a class",
			classes: []*decl.ShallowClass{
				{Name: "A"},
				{Name: "B", Uses: []*types.Ty{types.MakeClass("A")}},
			},
			target: "B",
			want:   ErrInvalidParent,
		},
		{
			name: "class extends interface",
			classes: []*decl.ShallowClass{
				{Name: "I", Kind: decl.KindInterface},
				{Name: "B", Extends: []*types.Ty{types.MakeClass("I")}},
			},
			target: "B",
			want:   ErrInvalidParent,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Fold(tc.target, lookupIn(tc.classes...))
			if !errors.Is(err, tc.want) {
				t.Fatalf("Fold error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestFoldPropagatesLookupErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	_, err := Fold("A", func(names.TypeName) (*decl.ShallowClass, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Fold error = %v, want %v", err, boom)
	}
}
