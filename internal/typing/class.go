package typing

import "hhdecl/internal/names"

// Class is the typed view of a class that expression and statement checking
// work against.
//
// Every lookup returns nil, nil when the class has no such member; callers
// probe with it before reporting "unknown member" diagnostics. A non-nil
// error comes from the provider's own dependencies (a declaration that could
// not be fetched, say) and nothing is cached for that member, so the lookup
// may be retried.
type Class interface {
	Name() names.TypeName
	GetProp(name names.PropName) (*ClassElt, error)
	GetStaticProp(name names.PropName) (*ClassElt, error)
	GetMethod(name names.MethodName) (*ClassElt, error)
	GetStaticMethod(name names.MethodName) (*ClassElt, error)
	GetConstructor() (*ClassElt, error)
}
