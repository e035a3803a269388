package decl

import (
	"hhdecl/internal/names"
)

// FoldedElt is a member of a folded class: where it comes from and how it was
// declared, without its type.
type FoldedElt struct {
	Origin     names.TypeName
	Visibility Visibility
	Flags      EltFlags
	Deprecated string
}

// FoldedClass is the inheritance-flattened member inventory of one class.
// Buckets contain inherited members too; FoldedElt.Origin tells them apart.
type FoldedClass struct {
	Name      names.TypeName
	Kind      ClassKind
	Abstract  bool
	Final     bool
	TParams   []string
	Ancestors []names.TypeName // every ancestor, nearest first

	Props         map[names.PropName]*FoldedElt
	StaticProps   map[names.PropName]*FoldedElt
	Methods       map[names.MethodName]*FoldedElt
	StaticMethods map[names.MethodName]*FoldedElt
	Constructor   *FoldedElt
}

// NewFoldedClass returns a class with empty, non-nil buckets.
func NewFoldedClass(name names.TypeName, kind ClassKind) *FoldedClass {
	return &FoldedClass{
		Name:          name,
		Kind:          kind,
		Props:         make(map[names.PropName]*FoldedElt),
		StaticProps:   make(map[names.PropName]*FoldedElt),
		Methods:       make(map[names.MethodName]*FoldedElt),
		StaticMethods: make(map[names.MethodName]*FoldedElt),
	}
}

// MemberCount counts members of all kinds, the constructor included.
func (c *FoldedClass) MemberCount() int {
	n := len(c.Props) + len(c.StaticProps) + len(c.Methods) + len(c.StaticMethods)
	if c.Constructor != nil {
		n++
	}
	return n
}

// HasAncestor reports whether name is among the class's ancestors.
func (c *FoldedClass) HasAncestor(name names.TypeName) bool {
	for _, a := range c.Ancestors {
		if a == name {
			return true
		}
	}
	return false
}
