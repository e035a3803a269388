package typing

import (
	"sync"
	"sync/atomic"

	"hhdecl/internal/names"
)

// EagerMembers caches the typed members of one class view. Each kind has its
// own map, so resolving "foo" as a property never waits on "foo" as a method.
// Entries are only ever added.
type EagerMembers struct {
	props         memberMap[names.PropName]
	staticProps   memberMap[names.PropName]
	methods       memberMap[names.MethodName]
	staticMethods memberMap[names.MethodName]
	constructor   ctorSlot
}

// memberMap is a concurrent name -> *ClassElt map with insert-if-absent as
// its only write.
type memberMap[K ~string] struct {
	m sync.Map
}

func (mm *memberMap[K]) load(name K) (*ClassElt, bool) {
	v, ok := mm.m.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*ClassElt), true
}

// insert stores elt unless name is already present. It returns the value the
// map holds afterwards and whether that value is elt.
func (mm *memberMap[K]) insert(name K, elt *ClassElt) (*ClassElt, bool) {
	actual, loaded := mm.m.LoadOrStore(name, elt)
	return actual.(*ClassElt), !loaded
}

func (mm *memberMap[K]) count(keep func(*ClassElt) bool) int {
	n := 0
	mm.m.Range(func(_, v any) bool {
		if keep(v.(*ClassElt)) {
			n++
		}
		return true
	})
	return n
}

func (mm *memberMap[K]) len() int {
	n := 0
	mm.m.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

// ctorValue boxes the constructor so that "no constructor" can be cached too.
type ctorValue struct {
	elt *ClassElt
}

// ctorSlot is a single-initialization cell. The first initializer to return
// without error publishes its value; callers arriving while it runs wait for
// it, and callers arriving afterwards read the published value without
// locking. A failed or panicking initializer publishes nothing.
type ctorSlot struct {
	v  atomic.Pointer[ctorValue]
	mu sync.Mutex
}

func (s *ctorSlot) get() (*ClassElt, bool) {
	if v := s.v.Load(); v != nil {
		return v.elt, true
	}
	return nil, false
}

// getOrInit returns the published value, running init first if there is
// none yet. ran reports whether this call ran init.
func (s *ctorSlot) getOrInit(init func() (*ClassElt, error)) (elt *ClassElt, ran bool, err error) {
	if elt, ok := s.get(); ok {
		return elt, false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if elt, ok := s.get(); ok {
		return elt, false, nil
	}
	elt, err = init()
	if err != nil {
		return nil, true, err
	}
	s.v.Store(&ctorValue{elt: elt})
	return elt, true, nil
}
