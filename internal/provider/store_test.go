package provider

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hhdecl/internal/decl"
	"hhdecl/internal/names"
	"hhdecl/internal/types"
)

func sampleClasses() []*decl.ShallowClass {
	base := &decl.ShallowClass{
		Name:        "Base",
		Props:       []decl.ShallowProp{{Name: "id", Type: types.Int}},
		StaticProps: []decl.ShallowProp{{Name: "count", Type: types.Int}},
		Methods: []decl.ShallowMethod{
			{Name: "name", Type: types.MustParse("(function(): string)")},
		},
		StaticMethods: []decl.ShallowMethod{
			{Name: "make", Type: types.MustParse("(function(): Base)")},
		},
		Constructor: &decl.ShallowMethod{Name: names.ConstructorName, Type: types.MustParse("(function(int): void)")},
	}
	child := &decl.ShallowClass{
		Name:    "Child",
		Extends: []*types.Ty{types.MakeClass("Base")},
	}
	return []*decl.ShallowClass{base, child}
}

func TestStoreMemberTypes(t *testing.T) {
	s, err := NewStore(nil, sampleClasses()...)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	check := func(what string, got *types.Ty, err error, want string) {
		t.Helper()
		if err != nil {
			t.Fatalf("%s: %v", what, err)
		}
		if want == "" {
			if got != nil {
				t.Fatalf("%s = %s, want unknown", what, got)
			}
			return
		}
		if got == nil || got.String() != want {
			t.Fatalf("%s = %v, want %s", what, got, want)
		}
	}

	ty, err := s.GetShallowPropertyType("Base", "id")
	check("prop", ty, err, "int")
	ty, err = s.GetShallowStaticPropertyType("Base", "count")
	check("static prop", ty, err, "int")
	ty, err = s.GetShallowMethodType("Base", "name")
	check("method", ty, err, "(function(): string)")
	ty, err = s.GetShallowStaticMethodType("Base", "make")
	check("static method", ty, err, "(function(): Base)")
	ty, err = s.GetShallowConstructorType("Base")
	check("constructor", ty, err, "(function(int): void)")

	// Members are only known at their origin.
	ty, err = s.GetShallowPropertyType("Child", "id")
	check("inherited prop at child", ty, err, "")
	ty, err = s.GetShallowMethodType("Nope", "name")
	check("unknown class", ty, err, "")
	ty, err = s.GetShallowConstructorType("Child")
	check("child constructor", ty, err, "")
}

func TestStoreFoldsOnceAndClearsOnAdd(t *testing.T) {
	s, err := NewStore(nil, sampleClasses()...)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	fc1, err := s.GetFoldedClass("Child")
	if err != nil || fc1 == nil {
		t.Fatalf("GetFoldedClass: %v, %v", fc1, err)
	}
	if fc1.Props["id"].Origin != "Base" {
		t.Fatalf("id origin = %s", fc1.Props["id"].Origin)
	}
	fc2, _ := s.GetFoldedClass("Child")
	if fc1 != fc2 {
		t.Fatalf("folded classes must be memoized")
	}

	if err := s.Add(&decl.ShallowClass{Name: "Other"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	fc3, _ := s.GetFoldedClass("Child")
	if fc3 == fc1 {
		t.Fatalf("Add must drop memoized folds")
	}

	if err := s.Add(&decl.ShallowClass{Name: "Base"}); !errors.Is(err, ErrDuplicateClass) {
		t.Fatalf("Add duplicate error = %v", err)
	}
	if got := s.Names(); len(got) != 3 || got[0] != "Base" || got[2] != "Other" {
		t.Fatalf("Names = %v", got)
	}
}

func TestStoreUnknownFoldedClass(t *testing.T) {
	s, _ := NewStore(nil, sampleClasses()...)
	fc, err := s.GetFoldedClass("Missing")
	if err != nil || fc != nil {
		t.Fatalf("GetFoldedClass(Missing) = %v, %v; want nil, nil", fc, err)
	}

	orphan, _ := NewStore(nil, &decl.ShallowClass{Name: "Orphan", Extends: []*types.Ty{types.MakeClass("Gone")}})
	if _, err := orphan.GetFoldedClass("Orphan"); err == nil {
		t.Fatalf("missing ancestor must be an error")
	}
}

func TestStoreLazySource(t *testing.T) {
	var loads atomic.Int32
	boom := errors.New("corrupt file")
	fail := true
	src := SourceFunc(func(name names.TypeName) (*decl.ShallowClass, error) {
		loads.Add(1)
		switch name {
		case "Lazy":
			if fail {
				return nil, boom
			}
			return &decl.ShallowClass{Name: "Lazy", Props: []decl.ShallowProp{{Name: "v", Type: types.Bool}}}, nil
		case "Liar":
			return &decl.ShallowClass{Name: "NotLiar"}, nil
		}
		return nil, nil
	})
	s, _ := NewStore(src)

	_, err := s.GetShallowPropertyType("Lazy", "v")
	if !errors.Is(err, ErrFetch) || !errors.Is(err, boom) {
		t.Fatalf("error = %v, want ErrFetch wrapping %v", err, boom)
	}

	fail = false
	ty, err := s.GetShallowPropertyType("Lazy", "v")
	if err != nil || ty != types.Bool {
		t.Fatalf("retry = %v, %v", ty, err)
	}
	before := loads.Load()
	if _, err := s.GetShallowPropertyType("Lazy", "v"); err != nil {
		t.Fatalf("cached lookup: %v", err)
	}
	if loads.Load() != before {
		t.Fatalf("loaded classes must be kept in memory")
	}

	if _, err := s.ShallowClass("Liar"); !errors.Is(err, ErrFetch) {
		t.Fatalf("mismatched name error = %v", err)
	}
	if sc, err := s.ShallowClass("Nobody"); sc != nil || err != nil {
		t.Fatalf("absent class = %v, %v", sc, err)
	}
}

func TestStoreCoalescesConcurrentLoads(t *testing.T) {
	var loads atomic.Int32
	src := SourceFunc(func(name names.TypeName) (*decl.ShallowClass, error) {
		loads.Add(1)
		time.Sleep(10 * time.Millisecond)
		return &decl.ShallowClass{Name: name}, nil
	})
	s, _ := NewStore(src)

	const workers = 16
	got := make([]*decl.ShallowClass, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sc, err := s.ShallowClass("Slow")
			if err != nil {
				t.Errorf("ShallowClass: %v", err)
			}
			got[i] = sc
		}(i)
	}
	wg.Wait()

	if n := loads.Load(); n != 1 {
		t.Fatalf("source loaded %d times, want 1", n)
	}
	for i := range got {
		if got[i] == nil || got[i] != got[0] {
			t.Fatalf("worker %d got a different declaration", i)
		}
	}
}

func TestChainSources(t *testing.T) {
	classes := sampleClasses()
	boom := errors.New("boom")
	var calls []string
	src := func(label string, sc *decl.ShallowClass, err error) Source {
		return SourceFunc(func(name names.TypeName) (*decl.ShallowClass, error) {
			calls = append(calls, label+":"+string(name))
			if sc != nil && sc.Name == name {
				return sc, nil
			}
			return nil, err
		})
	}

	if Chain() != nil {
		t.Fatalf("Chain() should be nil")
	}

	chain := Chain(src("a", classes[0], nil), src("b", classes[1], nil))
	got, err := chain.LoadShallowClass("Child")
	if err != nil || got != classes[1] {
		t.Fatalf("Chain load Child = %v, %v", got, err)
	}
	if want := []string{"a:Child", "b:Child"}; len(calls) != 2 || calls[0] != want[0] || calls[1] != want[1] {
		t.Fatalf("calls = %v, want %v", calls, want)
	}

	calls = nil
	chain = Chain(src("a", nil, boom), src("b", classes[1], nil))
	if _, err := chain.LoadShallowClass("Child"); !errors.Is(err, boom) {
		t.Fatalf("Chain err = %v, want boom", err)
	}
	if len(calls) != 1 {
		t.Fatalf("search continued after error: %v", calls)
	}

	got, err = Chain(src("a", nil, nil), src("b", nil, nil)).LoadShallowClass("Nope")
	if got != nil || err != nil {
		t.Fatalf("Chain load Nope = %v, %v; want nil, nil", got, err)
	}
}
