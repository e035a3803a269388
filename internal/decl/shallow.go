package decl

import (
	"hhdecl/internal/names"
	"hhdecl/internal/types"
)

// ShallowProp is a property as declared in one class body.
type ShallowProp struct {
	Name       names.PropName
	Type       *types.Ty
	Visibility Visibility
	Flags      EltFlags
}

// ShallowMethod is a method as declared in one class body.
type ShallowMethod struct {
	Name       names.MethodName
	Type       *types.Ty
	Visibility Visibility
	Flags      EltFlags
	Deprecated string
}

// ShallowClass is everything one class declaration says about itself.
type ShallowClass struct {
	Name       names.TypeName
	Kind       ClassKind
	Abstract   bool
	Final      bool
	TParams    []string
	Extends    []*types.Ty // parent class (classes) or parent interfaces (interfaces)
	Implements []*types.Ty
	Uses       []*types.Ty // traits

	Props         []ShallowProp
	StaticProps   []ShallowProp
	Methods       []ShallowMethod
	StaticMethods []ShallowMethod
	Constructor   *ShallowMethod
}

// FindProp returns the declared property name, if any.
func (c *ShallowClass) FindProp(name names.PropName) *ShallowProp {
	return findProp(c.Props, name)
}

// FindStaticProp returns the declared static property name, if any.
func (c *ShallowClass) FindStaticProp(name names.PropName) *ShallowProp {
	return findProp(c.StaticProps, name)
}

// FindMethod returns the declared method name, if any.
func (c *ShallowClass) FindMethod(name names.MethodName) *ShallowMethod {
	return findMethod(c.Methods, name)
}

// FindStaticMethod returns the declared static method name, if any.
func (c *ShallowClass) FindStaticMethod(name names.MethodName) *ShallowMethod {
	return findMethod(c.StaticMethods, name)
}

func findProp(list []ShallowProp, name names.PropName) *ShallowProp {
	for i := range list {
		if list[i].Name == name {
			return &list[i]
		}
	}
	return nil
}

func findMethod(list []ShallowMethod, name names.MethodName) *ShallowMethod {
	for i := range list {
		if list[i].Name == name {
			return &list[i]
		}
	}
	return nil
}
