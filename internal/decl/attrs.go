package decl

import (
	"fmt"
	"strings"
)

// Visibility of a class member.
type Visibility uint8

const (
	Public Visibility = iota
	Protected
	Private
	Internal
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Private:
		return "private"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// ParseVisibility accepts the keyword form; empty means public.
func ParseVisibility(s string) (Visibility, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "public":
		return Public, nil
	case "protected":
		return Protected, nil
	case "private":
		return Private, nil
	case "internal":
		return Internal, nil
	default:
		return Public, fmt.Errorf("invalid visibility %q (expected: public|protected|private|internal)", s)
	}
}

// ClassKind distinguishes classes from interfaces, traits and enums.
type ClassKind uint8

const (
	KindClass ClassKind = iota
	KindInterface
	KindTrait
	KindEnum
)

func (k ClassKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindTrait:
		return "trait"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// ParseClassKind accepts the keyword form; empty means class.
func ParseClassKind(s string) (ClassKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "class":
		return KindClass, nil
	case "interface":
		return KindInterface, nil
	case "trait":
		return KindTrait, nil
	case "enum":
		return KindEnum, nil
	default:
		return KindClass, fmt.Errorf("invalid class kind %q (expected: class|interface|trait|enum)", s)
	}
}

// EltFlags are declaration-time modifiers of a member.
type EltFlags uint16

const (
	FlagAbstract EltFlags = 1 << iota
	FlagFinal
	FlagReadonly
	FlagLSB        // <<__LSB>> static property
	FlagDynamic    // <<__DynamicallyCallable>>
	FlagNeedsInit  // property without initializer
	FlagDeprecated // carries a deprecation notice
)

// KnownFlags has every defined flag bit set.
const KnownFlags = FlagDeprecated<<1 - 1

var flagNames = []struct {
	flag EltFlags
	name string
}{
	{FlagAbstract, "abstract"},
	{FlagFinal, "final"},
	{FlagReadonly, "readonly"},
	{FlagLSB, "lsb"},
	{FlagDynamic, "dynamic"},
	{FlagNeedsInit, "needs_init"},
	{FlagDeprecated, "deprecated"},
}

// Has reports whether every bit of f2 is set.
func (f EltFlags) Has(f2 EltFlags) bool { return f&f2 == f2 }

func (f EltFlags) String() string {
	var parts []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, " ")
}
