package typing

import (
	"fmt"

	"hhdecl/internal/names"
)

// MemberTypeMissing is the panic value raised when a provider reports no type
// for a member of a folded class it produced. It is not an error: it is never
// returned, and errors.Is/As cannot match it.
type MemberTypeMissing struct {
	Kind   string         // "property", "static property", "method", "static method" or "constructor"
	Origin names.TypeName // class the folded decl says defines the member
	Name   string
	Class  names.TypeName // class being viewed
}

func (m *MemberTypeMissing) String() string {
	return fmt.Sprintf("Could not find %s %s::%s (inherited by %s)", m.Kind, m.Origin, m.Name, m.Class)
}

// memberTypeMissing panics; see MemberTypeMissing.
func (c *ClassType) memberTypeMissing(kind string, origin names.TypeName, name string) {
	panic(&MemberTypeMissing{Kind: kind, Origin: origin, Name: name, Class: c.class.Name})
}
