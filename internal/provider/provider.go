// Package provider defines the declaration-fetching interfaces the typing
// layer depends on, and an in-memory implementation backed by shallow decls.
package provider

import (
	"errors"

	"hhdecl/internal/decl"
	"hhdecl/internal/names"
	"hhdecl/internal/types"
)

var (
	// ErrFetch wraps failures to load a declaration from its source.
	ErrFetch = errors.New("declaration fetch failed")
	// ErrDuplicateClass is returned when a class is declared twice.
	ErrDuplicateClass = errors.New("duplicate class declaration")
)

// MemberTypeProvider resolves the type of a member at the class that defines it.
//
// Contract: a nil type with a nil error means the member is unknown. That answer
// is only allowed for members that appear in no folded class the companion
// FoldedDeclProvider has produced; for any member of such a class the
// provider returns a type or a genuine error. Implementations must be safe for
// concurrent use.
type MemberTypeProvider interface {
	GetShallowPropertyType(origin names.TypeName, name names.PropName) (*types.Ty, error)
	GetShallowStaticPropertyType(origin names.TypeName, name names.PropName) (*types.Ty, error)
	GetShallowMethodType(origin names.TypeName, name names.MethodName) (*types.Ty, error)
	GetShallowStaticMethodType(origin names.TypeName, name names.MethodName) (*types.Ty, error)
	GetShallowConstructorType(origin names.TypeName) (*types.Ty, error)
}

// FoldedDeclProvider additionally produces folded classes. Every member of a
// class it returns is resolvable through the MemberTypeProvider half.
type FoldedDeclProvider interface {
	MemberTypeProvider
	// GetFoldedClass returns nil, nil for classes that do not exist.
	GetFoldedClass(name names.TypeName) (*decl.FoldedClass, error)
}

// Source lazily supplies shallow declarations the store does not hold yet.
// LoadShallowClass returns nil, nil when the class does not exist.
type Source interface {
	LoadShallowClass(name names.TypeName) (*decl.ShallowClass, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(name names.TypeName) (*decl.ShallowClass, error)

// LoadShallowClass calls f.
func (f SourceFunc) LoadShallowClass(name names.TypeName) (*decl.ShallowClass, error) {
	return f(name)
}

// Chain consults each source in order and returns the first declaration
// found. An error from any source stops the search.
func Chain(srcs ...Source) Source {
	switch len(srcs) {
	case 0:
		return nil
	case 1:
		return srcs[0]
	}
	return SourceFunc(func(name names.TypeName) (*decl.ShallowClass, error) {
		for _, src := range srcs {
			sc, err := src.LoadShallowClass(name)
			if err != nil || sc != nil {
				return sc, err
			}
		}
		return nil, nil
	})
}
