package types

import (
	"strings"

	"hhdecl/internal/names"
)

// Kind enumerates the shapes a decl type can take.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindPrim
	KindOption  // ?T
	KindClass   // C<T...>
	KindGeneric // type parameter T
	KindTuple   // (T, U)
	KindFun     // (function(T...): R)
)

func (k Kind) String() string {
	switch k {
	case KindPrim:
		return "prim"
	case KindOption:
		return "option"
	case KindClass:
		return "class"
	case KindGeneric:
		return "generic"
	case KindTuple:
		return "tuple"
	case KindFun:
		return "fun"
	default:
		return "invalid"
	}
}

// Prim identifies a primitive type.
type Prim uint8

const (
	PrimNone Prim = iota
	PrimInt
	PrimFloat
	PrimString
	PrimBool
	PrimNum
	PrimArraykey
	PrimVoid
	PrimMixed
	PrimNothing
	PrimNull
	PrimNoreturn
	PrimDynamic
)

var primNames = [...]string{
	PrimNone:     "",
	PrimInt:      "int",
	PrimFloat:    "float",
	PrimString:   "string",
	PrimBool:     "bool",
	PrimNum:      "num",
	PrimArraykey: "arraykey",
	PrimVoid:     "void",
	PrimMixed:    "mixed",
	PrimNothing:  "nothing",
	PrimNull:     "null",
	PrimNoreturn: "noreturn",
	PrimDynamic:  "dynamic",
}

func (p Prim) String() string {
	if int(p) < len(primNames) {
		return primNames[p]
	}
	return "?prim"
}

// LookupPrim maps a primitive keyword to its Prim.
func LookupPrim(s string) (Prim, bool) {
	for i, n := range primNames {
		if n != "" && n == s {
			return Prim(i), true
		}
	}
	return PrimNone, false
}

// Ty is a declared type as written in a shallow declaration. Values are
// immutable once built and are shared by pointer.
type Ty struct {
	Kind   Kind
	Prim   Prim
	Name   names.TypeName // class or type parameter name
	Args   []*Ty          // class type arguments, tuple elements, option inner type
	Params []*Ty          // function parameters
	Ret    *Ty            // function return type
}

var primTys = func() [len(primNames)]*Ty {
	var out [len(primNames)]*Ty
	for i := range out {
		out[i] = &Ty{Kind: KindPrim, Prim: Prim(i)}
	}
	return out
}()

// MakePrim returns the shared instance for p.
func MakePrim(p Prim) *Ty {
	if int(p) < len(primTys) && p != PrimNone {
		return primTys[p]
	}
	return &Ty{Kind: KindInvalid}
}

// Int, String, Void and friends are shorthands used all over tests.
var (
	Int    = MakePrim(PrimInt)
	Float  = MakePrim(PrimFloat)
	String = MakePrim(PrimString)
	Bool   = MakePrim(PrimBool)
	Void   = MakePrim(PrimVoid)
	Mixed  = MakePrim(PrimMixed)
)

// MakeOption builds ?inner.
func MakeOption(inner *Ty) *Ty {
	return &Ty{Kind: KindOption, Args: []*Ty{inner}}
}

// MakeClass builds name<args...>.
func MakeClass(name names.TypeName, args ...*Ty) *Ty {
	return &Ty{Kind: KindClass, Name: name, Args: args}
}

// MakeGeneric builds a reference to the type parameter name.
func MakeGeneric(name names.TypeName) *Ty {
	return &Ty{Kind: KindGeneric, Name: name}
}

// MakeTuple builds (elems...).
func MakeTuple(elems ...*Ty) *Ty {
	return &Ty{Kind: KindTuple, Args: elems}
}

// MakeFun builds (function(params...): ret).
func MakeFun(params []*Ty, ret *Ty) *Ty {
	return &Ty{Kind: KindFun, Params: params, Ret: ret}
}

// Equal reports structural equality.
func Equal(a, b *Ty) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind || a.Prim != b.Prim || a.Name != b.Name {
		return false
	}
	if !equalList(a.Args, b.Args) || !equalList(a.Params, b.Params) {
		return false
	}
	return Equal(a.Ret, b.Ret)
}

func equalList(a, b []*Ty) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// String renders t in Hack syntax.
func (t *Ty) String() string {
	var sb strings.Builder
	t.write(&sb)
	return sb.String()
}

func (t *Ty) write(sb *strings.Builder) {
	if t == nil {
		sb.WriteString("<nil>")
		return
	}
	switch t.Kind {
	case KindPrim:
		sb.WriteString(t.Prim.String())
	case KindOption:
		sb.WriteByte('?')
		if len(t.Args) == 1 {
			t.Args[0].write(sb)
		}
	case KindClass:
		sb.WriteString(string(t.Name))
		if len(t.Args) > 0 {
			sb.WriteByte('<')
			writeList(sb, t.Args)
			sb.WriteByte('>')
		}
	case KindGeneric:
		sb.WriteString(string(t.Name))
	case KindTuple:
		sb.WriteByte('(')
		writeList(sb, t.Args)
		sb.WriteByte(')')
	case KindFun:
		sb.WriteString("(function(")
		writeList(sb, t.Params)
		sb.WriteString("): ")
		t.Ret.write(sb)
		sb.WriteByte(')')
	default:
		sb.WriteString("<invalid>")
	}
}

func writeList(sb *strings.Builder, list []*Ty) {
	for i, t := range list {
		if i > 0 {
			sb.WriteString(", ")
		}
		t.write(sb)
	}
}
