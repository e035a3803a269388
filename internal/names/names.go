package names

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// TypeName is the fully qualified name of a class, interface, trait or enum.
type TypeName string

// PropName names an instance or static property (without the leading '$').
type PropName string

// MethodName names an instance or static method.
type MethodName string

// ConstructorName is the method name under which a constructor is declared.
const ConstructorName MethodName = "__construct"

func (n TypeName) String() string   { return string(n) }
func (n PropName) String() string   { return string(n) }
func (n MethodName) String() string { return string(n) }

// Normalize trims surrounding space and brings s into NFC so that names typed in
// manifests compare equal to names produced by other tools.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}

// Type normalizes s and strips a single leading namespace separator.
func Type(s string) TypeName {
	return TypeName(strings.TrimPrefix(Normalize(s), `\`))
}

// Prop normalizes s and strips a leading '$'.
func Prop(s string) PropName {
	return PropName(strings.TrimPrefix(Normalize(s), "$"))
}

// Method normalizes s.
func Method(s string) MethodName {
	return MethodName(Normalize(s))
}
