package typing

import (
	"hhdecl/internal/decl"
	"hhdecl/internal/names"
	"hhdecl/internal/types"
)

// ClassElt is a class member with its resolved type. It is immutable and
// handed out by pointer; callers must not modify it.
type ClassElt struct {
	Ty         *types.Ty
	Origin     names.TypeName
	Visibility decl.Visibility
	Flags      decl.EltFlags
	Deprecated string
}

// NewClassElt pairs folded metadata with a resolved type.
func NewClassElt(fe *decl.FoldedElt, ty *types.Ty) *ClassElt {
	return &ClassElt{
		Ty:         ty,
		Origin:     fe.Origin,
		Visibility: fe.Visibility,
		Flags:      fe.Flags,
		Deprecated: fe.Deprecated,
	}
}

func (e *ClassElt) IsAbstract() bool { return e.Flags.Has(decl.FlagAbstract) }
