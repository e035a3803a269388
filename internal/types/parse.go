package types

import (
	"errors"
	"fmt"
	"slices"

	"hhdecl/internal/names"
)

// ErrSyntax is wrapped by every error Parse returns.
var ErrSyntax = errors.New("type syntax error")

// Parse reads a type written in Hack syntax. Identifiers listed in generics
// are treated as type parameters; other non-primitive identifiers name classes.
func Parse(src string, generics ...string) (*Ty, error) {
	p := &parser{src: src, generics: generics}
	p.next()
	t, err := p.parseTy()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected %s after type", p.tok)
	}
	return t, nil
}

// MustParse is Parse for literals in tests and fixtures.
func MustParse(src string, generics ...string) *Ty {
	t, err := Parse(src, generics...)
	if err != nil {
		panic(err)
	}
	return t
}

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokIdent
	tokPunct
	tokBad
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokBad:
		return fmt.Sprintf("invalid character %q", t.text)
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

type parser struct {
	src      string
	off      int
	tok      token
	generics []string
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d in %q: %s", ErrSyntax, p.tok.pos, p.src, fmt.Sprintf(format, args...))
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '\\' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (p *parser) next() {
	for p.off < len(p.src) && (p.src[p.off] == ' ' || p.src[p.off] == '\t' || p.src[p.off] == '\n') {
		p.off++
	}
	start := p.off
	if p.off >= len(p.src) {
		p.tok = token{kind: tokEOF, pos: start}
		return
	}
	c := p.src[p.off]
	switch {
	case isIdentStart(c):
		for p.off < len(p.src) && isIdentPart(p.src[p.off]) {
			p.off++
		}
		p.tok = token{kind: tokIdent, text: p.src[start:p.off], pos: start}
	case c == '?' || c == '(' || c == ')' || c == '<' || c == '>' || c == ',' || c == ':':
		p.off++
		p.tok = token{kind: tokPunct, text: p.src[start:p.off], pos: start}
	default:
		p.off++
		p.tok = token{kind: tokBad, text: p.src[start:p.off], pos: start}
	}
}

func (p *parser) accept(punct string) bool {
	if p.tok.kind == tokPunct && p.tok.text == punct {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(punct string) error {
	if !p.accept(punct) {
		return p.errorf("expected %q, found %s", punct, p.tok)
	}
	return nil
}

func (p *parser) parseTy() (*Ty, error) {
	switch {
	case p.accept("?"):
		inner, err := p.parseTy()
		if err != nil {
			return nil, err
		}
		return MakeOption(inner), nil
	case p.accept("("):
		if p.tok.kind == tokIdent && p.tok.text == "function" {
			p.next()
			fn, err := p.parseFunTail()
			if err != nil {
				return nil, err
			}
			return fn, p.expect(")")
		}
		elems, err := p.parseList(")")
		if err != nil {
			return nil, err
		}
		if len(elems) == 1 {
			// (T) is just T
			return elems[0], nil
		}
		return MakeTuple(elems...), nil
	case p.tok.kind == tokIdent:
		return p.parseNamed()
	default:
		return nil, p.errorf("expected type, found %s", p.tok)
	}
}

// parseFunTail parses "(params): ret" after the function keyword.
func (p *parser) parseFunTail() (*Ty, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var params []*Ty
	if !p.accept(")") {
		var err error
		params, err = p.parseList(")")
		if err != nil {
			return nil, err
		}
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	ret, err := p.parseTy()
	if err != nil {
		return nil, err
	}
	return MakeFun(params, ret), nil
}

func (p *parser) parseNamed() (*Ty, error) {
	name := p.tok.text
	p.next()
	if name == "function" {
		return p.parseFunTail()
	}
	if prim, ok := LookupPrim(name); ok {
		return MakePrim(prim), nil
	}
	if slices.Contains(p.generics, name) {
		return MakeGeneric(names.TypeName(name)), nil
	}
	cls := names.Type(name)
	if cls == "" {
		return nil, p.errorf("expected class name, found %q", name)
	}
	var args []*Ty
	if p.accept("<") {
		var err error
		args, err = p.parseList(">")
		if err != nil {
			return nil, err
		}
	}
	return MakeClass(cls, args...), nil
}

// parseList parses "T, U, ...close" with at least one element.
func (p *parser) parseList(closing string) ([]*Ty, error) {
	var out []*Ty
	for {
		t, err := p.parseTy()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if p.accept(",") {
			continue
		}
		if err := p.expect(closing); err != nil {
			return nil, err
		}
		return out, nil
	}
}
