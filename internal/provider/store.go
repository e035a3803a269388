package provider

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"hhdecl/internal/decl"
	"hhdecl/internal/fold"
	"hhdecl/internal/names"
	"hhdecl/internal/types"
)

// Store holds shallow declarations and folds them on demand.
// It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	shallow map[names.TypeName]*decl.ShallowClass
	src     Source
	loads   singleflight.Group // coalesces concurrent source loads of one class

	folded sync.Map // names.TypeName -> *decl.FoldedClass
}

var _ FoldedDeclProvider = (*Store)(nil)

// NewStore creates a store over src (which may be nil) preloaded with classes.
func NewStore(src Source, classes ...*decl.ShallowClass) (*Store, error) {
	s := &Store{
		shallow: make(map[names.TypeName]*decl.ShallowClass, len(classes)),
		src:     src,
	}
	if err := s.Add(classes...); err != nil {
		return nil, err
	}
	return s, nil
}

// Add registers more shallow declarations. Folded classes computed earlier
// are dropped so that later folds see the new declarations.
func (s *Store) Add(classes ...*decl.ShallowClass) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range classes {
		if c == nil {
			continue
		}
		if _, dup := s.shallow[c.Name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateClass, c.Name)
		}
		s.shallow[c.Name] = c
	}
	if len(classes) > 0 {
		s.folded.Clear()
	}
	return nil
}

// Names lists the classes currently held in memory, sorted.
func (s *Store) Names() []names.TypeName {
	s.mu.RLock()
	out := make([]names.TypeName, 0, len(s.shallow))
	for n := range s.shallow {
		out = append(out, n)
	}
	s.mu.RUnlock()
	slices.Sort(out)
	return out
}

// ShallowClass returns the shallow declaration of name, consulting the
// source on a miss. It returns nil, nil when no declaration exists.
func (s *Store) ShallowClass(name names.TypeName) (*decl.ShallowClass, error) {
	s.mu.RLock()
	sc, ok := s.shallow[name]
	s.mu.RUnlock()
	if ok || s.src == nil {
		return sc, nil
	}

	v, err, _ := s.loads.Do(string(name), func() (any, error) {
		return s.load(name)
	})
	if err != nil {
		return nil, err
	}
	return v.(*decl.ShallowClass), nil
}

func (s *Store) load(name names.TypeName) (*decl.ShallowClass, error) {
	loaded, err := s.src.LoadShallowClass(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, name, err)
	}
	if loaded == nil {
		return nil, nil
	}
	if loaded.Name != name {
		return nil, fmt.Errorf("%w: source returned %s when asked for %s", ErrFetch, loaded.Name, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.shallow[name]; ok {
		return existing, nil
	}
	s.shallow[name] = loaded
	return loaded, nil
}

// GetFoldedClass folds name, memoizing the result.
func (s *Store) GetFoldedClass(name names.TypeName) (*decl.FoldedClass, error) {
	if fc, ok := s.folded.Load(name); ok {
		return fc.(*decl.FoldedClass), nil
	}
	fc, err := fold.Fold(name, s.ShallowClass)
	if err != nil {
		if errors.Is(err, fold.ErrUnknownClass) && !s.has(name) {
			return nil, nil
		}
		return nil, err
	}
	actual, _ := s.folded.LoadOrStore(name, fc)
	return actual.(*decl.FoldedClass), nil
}

func (s *Store) has(name names.TypeName) bool {
	sc, err := s.ShallowClass(name)
	return err == nil && sc != nil
}

func (s *Store) GetShallowPropertyType(origin names.TypeName, name names.PropName) (*types.Ty, error) {
	sc, err := s.ShallowClass(origin)
	if err != nil || sc == nil {
		return nil, err
	}
	if p := sc.FindProp(name); p != nil {
		return p.Type, nil
	}
	return nil, nil
}

func (s *Store) GetShallowStaticPropertyType(origin names.TypeName, name names.PropName) (*types.Ty, error) {
	sc, err := s.ShallowClass(origin)
	if err != nil || sc == nil {
		return nil, err
	}
	if p := sc.FindStaticProp(name); p != nil {
		return p.Type, nil
	}
	return nil, nil
}

func (s *Store) GetShallowMethodType(origin names.TypeName, name names.MethodName) (*types.Ty, error) {
	sc, err := s.ShallowClass(origin)
	if err != nil || sc == nil {
		return nil, err
	}
	if m := sc.FindMethod(name); m != nil {
		return m.Type, nil
	}
	return nil, nil
}

func (s *Store) GetShallowStaticMethodType(origin names.TypeName, name names.MethodName) (*types.Ty, error) {
	sc, err := s.ShallowClass(origin)
	if err != nil || sc == nil {
		return nil, err
	}
	if m := sc.FindStaticMethod(name); m != nil {
		return m.Type, nil
	}
	return nil, nil
}

func (s *Store) GetShallowConstructorType(origin names.TypeName) (*types.Ty, error) {
	sc, err := s.ShallowClass(origin)
	if err != nil || sc == nil {
		return nil, err
	}
	if sc.Constructor != nil {
		return sc.Constructor.Type, nil
	}
	return nil, nil
}
