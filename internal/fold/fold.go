// Package fold flattens shallow class declarations into folded ones.
//
// Members arrive in precedence order: members of the parent class, then
// members of used traits, then the class's own members, each layer replacing
// what came before. Interface members are added last and only where nothing
// else provides them. Private members of a parent class are not inherited;
// private members of traits are.
package fold

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"hhdecl/internal/decl"
	"hhdecl/internal/names"
	"hhdecl/internal/types"
)

var (
	// ErrUnknownClass is returned when a class or one of its ancestors has no declaration.
	ErrUnknownClass = errors.New("unknown class")
	// ErrCycle is returned when a class transitively inherits from itself.
	ErrCycle = errors.New("inheritance cycle")
	// ErrInvalidParent is returned when a parent has the wrong kind for its position.
	ErrInvalidParent = errors.New("invalid parent")
)

// Lookup returns the shallow declaration of name, or nil when it does not exist.
type Lookup func(name names.TypeName) (*decl.ShallowClass, error)

// Fold computes the folded declaration of name.
func Fold(name names.TypeName, lookup Lookup) (*decl.FoldedClass, error) {
	f := folder{lookup: lookup}
	return f.fold(name)
}

type folder struct {
	lookup Lookup
	stack  []names.TypeName
}

func (f *folder) fold(name names.TypeName) (*decl.FoldedClass, error) {
	if slices.Contains(f.stack, name) {
		return nil, fmt.Errorf("%w: %s", ErrCycle, cyclePath(append(f.stack, name)))
	}
	sc, err := f.lookup(name)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		if len(f.stack) > 0 {
			return nil, fmt.Errorf("%w %s (ancestor of %s)", ErrUnknownClass, name, f.stack[len(f.stack)-1])
		}
		return nil, fmt.Errorf("%w %s", ErrUnknownClass, name)
	}

	f.stack = append(f.stack, name)
	defer func() { f.stack = f.stack[:len(f.stack)-1] }()

	fc := decl.NewFoldedClass(sc.Name, sc.Kind)
	fc.Abstract = sc.Abstract
	fc.Final = sc.Final
	fc.TParams = slices.Clone(sc.TParams)

	for _, ext := range sc.Extends {
		parent, err := f.parent(ext, sc)
		if err != nil {
			return nil, err
		}
		if sc.Kind == decl.KindClass && parent.Kind != decl.KindClass {
			return nil, fmt.Errorf("%w: class %s cannot extend %s %s", ErrInvalidParent, sc.Name, parent.Kind, parent.Name)
		}
		inherit(fc, parent, false)
	}
	for _, use := range sc.Uses {
		trait, err := f.parent(use, sc)
		if err != nil {
			return nil, err
		}
		if trait.Kind != decl.KindTrait {
			return nil, fmt.Errorf("%w: %s uses %s %s, which is not a trait", ErrInvalidParent, sc.Name, trait.Kind, trait.Name)
		}
		inherit(fc, trait, true)
	}

	declareOwn(fc, sc)

	for _, impl := range sc.Implements {
		iface, err := f.parent(impl, sc)
		if err != nil {
			return nil, err
		}
		if iface.Kind != decl.KindInterface {
			return nil, fmt.Errorf("%w: %s implements %s %s, which is not an interface", ErrInvalidParent, sc.Name, iface.Kind, iface.Name)
		}
		fillMissing(fc, iface)
	}
	return fc, nil
}

func (f *folder) parent(ty *types.Ty, child *decl.ShallowClass) (*decl.FoldedClass, error) {
	if ty == nil || ty.Kind != types.KindClass {
		return nil, fmt.Errorf("%w: %s names %v, which is not a class type", ErrInvalidParent, child.Name, ty)
	}
	// Type arguments are dropped here: inherited members keep the types declared
	// on their origin and callers substitute.
	return f.fold(ty.Name)
}

func inherit(fc, parent *decl.FoldedClass, includePrivate bool) {
	addAncestor(fc, parent)
	copyBucket(fc.Props, parent.Props, includePrivate, true)
	copyBucket(fc.StaticProps, parent.StaticProps, includePrivate, true)
	copyBucket(fc.Methods, parent.Methods, includePrivate, true)
	copyBucket(fc.StaticMethods, parent.StaticMethods, includePrivate, true)
	if parent.Constructor != nil && (includePrivate || parent.Constructor.Visibility != decl.Private) {
		fc.Constructor = parent.Constructor
	}
}

func fillMissing(fc, iface *decl.FoldedClass) {
	addAncestor(fc, iface)
	copyBucket(fc.Methods, iface.Methods, false, false)
	copyBucket(fc.StaticMethods, iface.StaticMethods, false, false)
}

func addAncestor(fc, parent *decl.FoldedClass) {
	for _, a := range append([]names.TypeName{parent.Name}, parent.Ancestors...) {
		if !slices.Contains(fc.Ancestors, a) {
			fc.Ancestors = append(fc.Ancestors, a)
		}
	}
}

func copyBucket[K comparable](dst, src map[K]*decl.FoldedElt, includePrivate, replace bool) {
	for name, elt := range src {
		if elt.Visibility == decl.Private && !includePrivate {
			continue
		}
		if _, exists := dst[name]; exists && !replace {
			continue
		}
		dst[name] = elt
	}
}

func declareOwn(fc *decl.FoldedClass, sc *decl.ShallowClass) {
	for _, p := range sc.Props {
		fc.Props[p.Name] = propElt(sc.Name, p)
	}
	for _, p := range sc.StaticProps {
		fc.StaticProps[p.Name] = propElt(sc.Name, p)
	}
	for _, m := range sc.Methods {
		fc.Methods[m.Name] = methodElt(sc.Name, m)
	}
	for _, m := range sc.StaticMethods {
		fc.StaticMethods[m.Name] = methodElt(sc.Name, m)
	}
	if sc.Constructor != nil {
		fc.Constructor = methodElt(sc.Name, *sc.Constructor)
	}
}

func propElt(origin names.TypeName, p decl.ShallowProp) *decl.FoldedElt {
	return &decl.FoldedElt{Origin: origin, Visibility: p.Visibility, Flags: p.Flags}
}

func methodElt(origin names.TypeName, m decl.ShallowMethod) *decl.FoldedElt {
	return &decl.FoldedElt{Origin: origin, Visibility: m.Visibility, Flags: m.Flags, Deprecated: m.Deprecated}
}

func cyclePath(path []names.TypeName) string {
	parts := make([]string, len(path))
	for i, n := range path {
		parts[i] = string(n)
	}
	return strings.Join(parts, " -> ")
}
