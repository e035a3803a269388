// Package snapshot stores shallow declarations in msgpack form so that later
// runs can skip parsing manifests.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"hhdecl/internal/decl"
	"hhdecl/internal/names"
	"hhdecl/internal/types"
)

// Current schema version; bump when the payload layout changes.
const schemaVersion uint16 = 1

var (
	// ErrSchemaMismatch indicates a payload written by another schema version.
	ErrSchemaMismatch = errors.New("snapshot schema mismatch")
	// ErrCorrupt indicates a payload whose internal references do not resolve.
	ErrCorrupt = errors.New("corrupt snapshot")
)

// payload is the on-disk layout. Strings and types are stored once in
// tables and referenced by index; index 0 of each table means "none".
type payload struct {
	Schema  uint16      `msgpack:"schema"`
	Strings []string    `msgpack:"strings"`
	Types   []wireTy    `msgpack:"types"`
	Classes []wireClass `msgpack:"classes"`
}

type wireTy struct {
	Kind   uint8    `msgpack:"k"`
	Prim   uint8    `msgpack:"p,omitempty"`
	Name   uint32   `msgpack:"n,omitempty"`
	Args   []uint32 `msgpack:"a,omitempty"`
	Params []uint32 `msgpack:"ps,omitempty"`
	Ret    uint32   `msgpack:"r,omitempty"`
}

type wireMember struct {
	Name       uint32 `msgpack:"n"`
	Type       uint32 `msgpack:"t"`
	Visibility uint8  `msgpack:"v,omitempty"`
	Flags      uint16 `msgpack:"f,omitempty"`
	Deprecated uint32 `msgpack:"d,omitempty"`
}

type wireClass struct {
	Name          uint32       `msgpack:"n"`
	Kind          uint8        `msgpack:"k,omitempty"`
	Abstract      bool         `msgpack:"abs,omitempty"`
	Final         bool         `msgpack:"fin,omitempty"`
	TParams       []uint32     `msgpack:"tp,omitempty"`
	Extends       []uint32     `msgpack:"ext,omitempty"`
	Implements    []uint32     `msgpack:"impl,omitempty"`
	Uses          []uint32     `msgpack:"uses,omitempty"`
	Props         []wireMember `msgpack:"props,omitempty"`
	StaticProps   []wireMember `msgpack:"sprops,omitempty"`
	Methods       []wireMember `msgpack:"methods,omitempty"`
	StaticMethods []wireMember `msgpack:"smethods,omitempty"`
	Constructor   *wireMember  `msgpack:"ctor,omitempty"`
}

// Encode writes classes to w.
func Encode(w io.Writer, classes []*decl.ShallowClass) error {
	e := newEncoder()
	for _, sc := range classes {
		wc, err := e.class(sc)
		if err != nil {
			return fmt.Errorf("encode %s: %w", sc.Name, err)
		}
		e.p.Classes = append(e.p.Classes, wc)
	}
	e.p.Strings = e.strs.Table()
	return msgpack.NewEncoder(w).Encode(&e.p)
}

// Decode reads classes written by Encode.
func Decode(r io.Reader) ([]*decl.ShallowClass, error) {
	var p payload
	if err := msgpack.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if p.Schema != schemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchemaMismatch, p.Schema, schemaVersion)
	}
	d, err := newDecoder(&p)
	if err != nil {
		return nil, err
	}
	out := make([]*decl.ShallowClass, 0, len(p.Classes))
	for i := range p.Classes {
		sc, err := d.class(&p.Classes[i])
		if err != nil {
			return nil, fmt.Errorf("%w: class #%d: %w", ErrCorrupt, i, err)
		}
		out = append(out, sc)
	}
	return out, nil
}

type encoder struct {
	p     payload
	strs  *names.Interner
	tyIDs map[*types.Ty]uint32
}

func newEncoder() *encoder {
	return &encoder{
		p: payload{
			Schema: schemaVersion,
			Types:  []wireTy{{}}, // reserve 0 as "none"
		},
		strs:  names.NewInterner(),
		tyIDs: make(map[*types.Ty]uint32),
	}
}

func (e *encoder) str(s string) uint32 {
	return uint32(e.strs.Intern(s))
}

func (e *encoder) strList(list []string) []uint32 {
	if len(list) == 0 {
		return nil
	}
	out := make([]uint32, len(list))
	for i, s := range list {
		out[i] = e.str(s)
	}
	return out
}

func (e *encoder) ty(t *types.Ty) (uint32, error) {
	if t == nil {
		return 0, nil
	}
	if id, ok := e.tyIDs[t]; ok {
		return id, nil
	}
	wt := wireTy{Kind: uint8(t.Kind), Prim: uint8(t.Prim), Name: e.str(string(t.Name))}
	var err error
	if wt.Args, err = e.tyList(t.Args); err != nil {
		return 0, err
	}
	if wt.Params, err = e.tyList(t.Params); err != nil {
		return 0, err
	}
	if wt.Ret, err = e.ty(t.Ret); err != nil {
		return 0, err
	}
	id, err := safecast.Conv[uint32](len(e.p.Types))
	if err != nil {
		return 0, fmt.Errorf("type table overflow: %w", err)
	}
	e.p.Types = append(e.p.Types, wt)
	e.tyIDs[t] = id
	return id, nil
}

func (e *encoder) tyList(list []*types.Ty) ([]uint32, error) {
	if len(list) == 0 {
		return nil, nil
	}
	out := make([]uint32, len(list))
	for i, t := range list {
		id, err := e.ty(t)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

func (e *encoder) member(name string, t *types.Ty, vis decl.Visibility, flags decl.EltFlags, deprecated string) (wireMember, error) {
	id, err := e.ty(t)
	if err != nil {
		return wireMember{}, err
	}
	return wireMember{
		Name:       e.str(name),
		Type:       id,
		Visibility: uint8(vis),
		Flags:      uint16(flags),
		Deprecated: e.str(deprecated),
	}, nil
}

func (e *encoder) props(list []decl.ShallowProp) ([]wireMember, error) {
	var out []wireMember
	for _, p := range list {
		wm, err := e.member(string(p.Name), p.Type, p.Visibility, p.Flags, "")
		if err != nil {
			return nil, err
		}
		out = append(out, wm)
	}
	return out, nil
}

func (e *encoder) methods(list []decl.ShallowMethod) ([]wireMember, error) {
	var out []wireMember
	for _, m := range list {
		wm, err := e.member(string(m.Name), m.Type, m.Visibility, m.Flags, m.Deprecated)
		if err != nil {
			return nil, err
		}
		out = append(out, wm)
	}
	return out, nil
}

func (e *encoder) class(sc *decl.ShallowClass) (wireClass, error) {
	wc := wireClass{
		Name:     e.str(string(sc.Name)),
		Kind:     uint8(sc.Kind),
		Abstract: sc.Abstract,
		Final:    sc.Final,
		TParams:  e.strList(sc.TParams),
	}
	var err error
	if wc.Extends, err = e.tyList(sc.Extends); err != nil {
		return wc, err
	}
	if wc.Implements, err = e.tyList(sc.Implements); err != nil {
		return wc, err
	}
	if wc.Uses, err = e.tyList(sc.Uses); err != nil {
		return wc, err
	}
	if wc.Props, err = e.props(sc.Props); err != nil {
		return wc, err
	}
	if wc.StaticProps, err = e.props(sc.StaticProps); err != nil {
		return wc, err
	}
	if wc.Methods, err = e.methods(sc.Methods); err != nil {
		return wc, err
	}
	if wc.StaticMethods, err = e.methods(sc.StaticMethods); err != nil {
		return wc, err
	}
	if c := sc.Constructor; c != nil {
		wm, err := e.member(string(c.Name), c.Type, c.Visibility, c.Flags, c.Deprecated)
		if err != nil {
			return wc, err
		}
		wc.Constructor = &wm
	}
	return wc, nil
}

type decoder struct {
	p    *payload
	strs *names.Interner
	tys  []*types.Ty // decoded types by index, nil until built
}

func newDecoder(p *payload) (*decoder, error) {
	strs, err := names.FromTable(p.Strings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if len(p.Types) == 0 {
		return nil, fmt.Errorf("%w: empty type table", ErrCorrupt)
	}
	return &decoder{p: p, strs: strs, tys: make([]*types.Ty, len(p.Types))}, nil
}

func (d *decoder) str(id uint32) (string, error) {
	s, ok := d.strs.Lookup(names.ID(id))
	if !ok {
		return "", fmt.Errorf("string index %d out of range", id)
	}
	return s, nil
}

func (d *decoder) strList(ids []uint32) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		s, err := d.str(id)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// ty rebuilds type id. Types only reference types encoded before them, which
// rules out cycles.
func (d *decoder) ty(id uint32) (*types.Ty, error) {
	if id == 0 {
		return nil, nil
	}
	if int(id) >= len(d.tys) {
		return nil, fmt.Errorf("type index %d out of range", id)
	}
	if t := d.tys[id]; t != nil {
		return t, nil
	}
	wt := d.p.Types[id]
	if k := types.Kind(wt.Kind); k == types.KindInvalid || k > types.KindFun {
		return nil, fmt.Errorf("type %d has invalid kind %d", id, wt.Kind)
	}
	for _, ref := range slices.Concat(wt.Args, wt.Params, []uint32{wt.Ret}) {
		if ref >= id {
			return nil, fmt.Errorf("type %d references later type %d", id, ref)
		}
	}
	var t *types.Ty
	if types.Kind(wt.Kind) == types.KindPrim {
		t = types.MakePrim(types.Prim(wt.Prim))
	} else {
		name, err := d.str(wt.Name)
		if err != nil {
			return nil, err
		}
		t = &types.Ty{Kind: types.Kind(wt.Kind), Name: names.TypeName(name)}
		if t.Args, err = d.tyList(wt.Args); err != nil {
			return nil, err
		}
		if t.Params, err = d.tyList(wt.Params); err != nil {
			return nil, err
		}
		if t.Ret, err = d.ty(wt.Ret); err != nil {
			return nil, err
		}
	}
	if t.Kind == types.KindInvalid {
		return nil, fmt.Errorf("type %d has invalid prim %d", id, wt.Prim)
	}
	d.tys[id] = t
	return t, nil
}

func (d *decoder) tyList(ids []uint32) ([]*types.Ty, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]*types.Ty, len(ids))
	for i, id := range ids {
		t, err := d.ty(id)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func (d *decoder) member(wm wireMember) (string, *types.Ty, string, error) {
	name, err := d.str(wm.Name)
	if err != nil {
		return "", nil, "", err
	}
	t, err := d.ty(wm.Type)
	if err != nil {
		return "", nil, "", err
	}
	if t == nil {
		return "", nil, "", fmt.Errorf("member %s has no type", name)
	}
	if decl.Visibility(wm.Visibility) > decl.Internal {
		return "", nil, "", fmt.Errorf("member %s has invalid visibility %d", name, wm.Visibility)
	}
	if unknown := decl.EltFlags(wm.Flags) &^ decl.KnownFlags; unknown != 0 {
		return "", nil, "", fmt.Errorf("member %s has unknown flags %#x", name, uint16(unknown))
	}
	dep, err := d.str(wm.Deprecated)
	if err != nil {
		return "", nil, "", err
	}
	return name, t, dep, nil
}

func (d *decoder) props(list []wireMember) ([]decl.ShallowProp, error) {
	var out []decl.ShallowProp
	for _, wm := range list {
		name, t, _, err := d.member(wm)
		if err != nil {
			return nil, err
		}
		if slices.ContainsFunc(out, func(p decl.ShallowProp) bool { return string(p.Name) == name }) {
			return nil, fmt.Errorf("member %s declared twice", name)
		}
		out = append(out, decl.ShallowProp{
			Name:       names.PropName(name),
			Type:       t,
			Visibility: decl.Visibility(wm.Visibility),
			Flags:      decl.EltFlags(wm.Flags),
		})
	}
	return out, nil
}

func (d *decoder) methods(list []wireMember) ([]decl.ShallowMethod, error) {
	var out []decl.ShallowMethod
	for _, wm := range list {
		m, err := d.method(wm)
		if err != nil {
			return nil, err
		}
		if slices.ContainsFunc(out, func(o decl.ShallowMethod) bool { return o.Name == m.Name }) {
			return nil, fmt.Errorf("member %s declared twice", m.Name)
		}
		out = append(out, m)
	}
	return out, nil
}

func (d *decoder) method(wm wireMember) (decl.ShallowMethod, error) {
	name, t, dep, err := d.member(wm)
	if err != nil {
		return decl.ShallowMethod{}, err
	}
	return decl.ShallowMethod{
		Name:       names.MethodName(name),
		Type:       t,
		Visibility: decl.Visibility(wm.Visibility),
		Flags:      decl.EltFlags(wm.Flags),
		Deprecated: dep,
	}, nil
}

func (d *decoder) class(wc *wireClass) (*decl.ShallowClass, error) {
	name, err := d.str(wc.Name)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.New("class without a name")
	}
	if decl.ClassKind(wc.Kind) > decl.KindEnum {
		return nil, fmt.Errorf("class %s has invalid kind %d", name, wc.Kind)
	}
	sc := &decl.ShallowClass{
		Name:     names.TypeName(name),
		Kind:     decl.ClassKind(wc.Kind),
		Abstract: wc.Abstract,
		Final:    wc.Final,
	}
	if sc.TParams, err = d.strList(wc.TParams); err != nil {
		return nil, err
	}
	if sc.Extends, err = d.tyList(wc.Extends); err != nil {
		return nil, err
	}
	if sc.Implements, err = d.tyList(wc.Implements); err != nil {
		return nil, err
	}
	if sc.Uses, err = d.tyList(wc.Uses); err != nil {
		return nil, err
	}
	if sc.Props, err = d.props(wc.Props); err != nil {
		return nil, err
	}
	if sc.StaticProps, err = d.props(wc.StaticProps); err != nil {
		return nil, err
	}
	if sc.Methods, err = d.methods(wc.Methods); err != nil {
		return nil, err
	}
	if sc.StaticMethods, err = d.methods(wc.StaticMethods); err != nil {
		return nil, err
	}
	if wc.Constructor != nil {
		m, err := d.method(*wc.Constructor)
		if err != nil {
			return nil, err
		}
		sc.Constructor = &m
	}
	return sc, nil
}
