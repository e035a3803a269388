package typing

import (
	"slices"
	"sync/atomic"

	"hhdecl/internal/decl"
	"hhdecl/internal/names"
	"hhdecl/internal/provider"
	"hhdecl/internal/trace"
	"hhdecl/internal/types"
)

const (
	kindProp         = "property"
	kindStaticProp   = "static property"
	kindMethod       = "method"
	kindStaticMethod = "static method"
	kindConstructor  = "constructor"
)

// ClassType is a typed view of one folded class: the folded decl, the
// provider that can type its members, and a cache of members typed so far.
// It is safe for concurrent use. The cache lives as long as the view; to
// observe new declarations, build a new view.
type ClassType struct {
	provider provider.MemberTypeProvider
	class    *decl.FoldedClass
	members  EagerMembers

	tracer trace.Tracer
	span   uint64

	resolverCalls atomic.Int64
	cacheHits     atomic.Int64
	lostRaces     atomic.Int64
}

var _ Class = (*ClassType)(nil)

// Option configures a ClassType.
type Option func(*ClassType)

// WithTracer emits a member-scope event for every resolver call, parented
// to span.
func WithTracer(t trace.Tracer, span uint64) Option {
	return func(c *ClassType) {
		if t != nil {
			c.tracer = t
			c.span = span
		}
	}
}

// NewClassType builds an empty view over class.
func NewClassType(p provider.MemberTypeProvider, class *decl.FoldedClass, opts ...Option) *ClassType {
	c := &ClassType{
		provider: p,
		class:    class,
		tracer:   trace.Nop,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the name of the viewed class.
func (c *ClassType) Name() names.TypeName { return c.class.Name }

// Class returns the folded declaration behind the view.
func (c *ClassType) Class() *decl.FoldedClass { return c.class }

// Stats counts what the view has done so far.
type Stats struct {
	ResolverCalls int64 // provider lookups, including ones that lost an insert race
	CacheHits     int64
	LostRaces     int64 // resolved values dropped because another goroutine inserted first
}

// Stats returns a snapshot of the view's counters.
func (c *ClassType) Stats() Stats {
	return Stats{
		ResolverCalls: c.resolverCalls.Load(),
		CacheHits:     c.cacheHits.Load(),
		LostRaces:     c.lostRaces.Load(),
	}
}

// Cached counts members resolved so far, the constructor included once it
// has been resolved.
func (c *ClassType) Cached() int {
	n := c.members.props.len() + c.members.staticProps.len() + c.members.methods.len() + c.members.staticMethods.len()
	if elt, ok := c.members.constructor.get(); ok && elt != nil {
		n++
	}
	return n
}

// AbstractMembers counts resolved members that are still abstract.
func (c *ClassType) AbstractMembers() int {
	abstract := (*ClassElt).IsAbstract
	n := c.members.props.count(abstract) + c.members.staticProps.count(abstract) +
		c.members.methods.count(abstract) + c.members.staticMethods.count(abstract)
	if elt, ok := c.members.constructor.get(); ok && elt != nil && elt.IsAbstract() {
		n++
	}
	return n
}

func (c *ClassType) GetProp(name names.PropName) (*ClassElt, error) {
	return getMember(c, kindProp, &c.members.props, c.class.Props, name, c.provider.GetShallowPropertyType)
}

func (c *ClassType) GetStaticProp(name names.PropName) (*ClassElt, error) {
	return getMember(c, kindStaticProp, &c.members.staticProps, c.class.StaticProps, name, c.provider.GetShallowStaticPropertyType)
}

func (c *ClassType) GetMethod(name names.MethodName) (*ClassElt, error) {
	return getMember(c, kindMethod, &c.members.methods, c.class.Methods, name, c.provider.GetShallowMethodType)
}

func (c *ClassType) GetStaticMethod(name names.MethodName) (*ClassElt, error) {
	return getMember(c, kindStaticMethod, &c.members.staticMethods, c.class.StaticMethods, name, c.provider.GetShallowStaticMethodType)
}

// GetConstructor returns the constructor, inherited or declared, or nil if
// the class has none. The first successful lookup fixes the result for the
// lifetime of the view.
func (c *ClassType) GetConstructor() (*ClassElt, error) {
	elt, ran, err := c.members.constructor.getOrInit(func() (*ClassElt, error) {
		fe := c.class.Constructor
		if fe == nil {
			return nil, nil
		}
		ty, err := c.resolve(kindConstructor, fe.Origin, string(names.ConstructorName), func() (*types.Ty, error) {
			return c.provider.GetShallowConstructorType(fe.Origin)
		})
		if err != nil {
			return nil, err
		}
		return NewClassElt(fe, ty), nil
	})
	if !ran {
		c.cacheHits.Add(1)
	}
	return elt, err
}

func getMember[K ~string](
	c *ClassType,
	kind string,
	cache *memberMap[K],
	bucket map[K]*decl.FoldedElt,
	name K,
	fetch func(names.TypeName, K) (*types.Ty, error),
) (*ClassElt, error) {
	if elt, ok := cache.load(name); ok {
		c.cacheHits.Add(1)
		return elt, nil
	}
	fe, ok := bucket[name]
	if !ok {
		return nil, nil
	}
	ty, err := c.resolve(kind, fe.Origin, string(name), func() (*types.Ty, error) {
		return fetch(fe.Origin, name)
	})
	if err != nil {
		return nil, err
	}
	elt, stored := cache.insert(name, NewClassElt(fe, ty))
	if !stored {
		c.lostRaces.Add(1)
		trace.Point(c.tracer, trace.ScopeMember, memberLabel(kind, fe.Origin, string(name)), "lost insert race", c.span)
	}
	return elt, nil
}

// resolve asks the provider for a member type at its origin. Provider errors
// are returned unchanged; an unknown type panics.
func (c *ClassType) resolve(kind string, origin names.TypeName, name string, fetch func() (*types.Ty, error)) (*types.Ty, error) {
	c.resolverCalls.Add(1)
	ty, err := fetch()
	if err != nil {
		trace.Point(c.tracer, trace.ScopeMember, memberLabel(kind, origin, name), "error: "+err.Error(), c.span)
		return nil, err
	}
	if ty == nil {
		c.memberTypeMissing(kind, origin, name)
	}
	// TODO: instantiate ty with the type arguments c.class passes to origin;
	// until then members inherited from generic ancestors keep origin's
	// type parameters.
	trace.Point(c.tracer, trace.ScopeMember, memberLabel(kind, origin, name), "resolved", c.span)
	return ty, nil
}

func memberLabel(kind string, origin names.TypeName, name string) string {
	return kind + ":" + string(origin) + "::" + name
}

// FetchAllMembers resolves every member of every kind, constructor
// included, in name order. It stops at the first error.
func (c *ClassType) FetchAllMembers() error {
	for _, name := range sortedKeys(c.class.Props) {
		if _, err := c.GetProp(name); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(c.class.StaticProps) {
		if _, err := c.GetStaticProp(name); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(c.class.Methods) {
		if _, err := c.GetMethod(name); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(c.class.StaticMethods) {
		if _, err := c.GetStaticMethod(name); err != nil {
			return err
		}
	}
	_, err := c.GetConstructor()
	return err
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
