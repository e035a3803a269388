package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"hhdecl/internal/decl"
	"hhdecl/internal/names"
)

// Dir keeps one snapshot file per class under a directory. It satisfies
// provider.Source so a store can load classes on demand.
// Thread-safe for concurrent access.
type Dir struct {
	mu  sync.RWMutex
	dir string
}

// OpenDir opens (creating if needed) a snapshot directory.
func OpenDir(dir string) (*Dir, error) {
	if err := os.MkdirAll(filepath.Join(dir, "classes"), 0o755); err != nil {
		return nil, err
	}
	return &Dir{dir: dir}, nil
}

// IsDir reports whether path looks like a snapshot directory.
func IsDir(path string) bool {
	st, err := os.Stat(filepath.Join(path, "classes"))
	return err == nil && st.IsDir()
}

// Path returns the root of d.
func (d *Dir) Path() string { return d.dir }

func (d *Dir) pathFor(name names.TypeName) string {
	sum := sha256.Sum256([]byte(name))
	return filepath.Join(d.dir, "classes", hex.EncodeToString(sum[:])+".mp")
}

// indexFile lists the classes of a Dir so that Names does not have to decode
// every class file. It lives next to them, so DropAll removes it too.
const indexFile = "names.idx"

type index struct {
	Schema  uint16   `msgpack:"schema"`
	Classes []string `msgpack:"classes"`
}

// Put writes sc, replacing any earlier snapshot of the same class.
func (d *Dir) Put(sc *decl.ShallowClass) error {
	return d.PutAll([]*decl.ShallowClass{sc})
}

// PutAll writes every class, stopping at the first failure. Classes already
// in d are kept.
func (d *Dir) PutAll(classes []*decl.ShallowClass) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	known, err := d.namesLocked()
	if err != nil {
		return err
	}
	return d.putLocked(known, classes)
}

// Replace makes classes the only content of d.
func (d *Dir) Replace(classes []*decl.ShallowClass) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.dropLocked(); err != nil {
		return err
	}
	return d.putLocked(nil, classes)
}

func (d *Dir) putLocked(known []names.TypeName, classes []*decl.ShallowClass) error {
	for _, sc := range classes {
		var buf bytes.Buffer
		if err := Encode(&buf, []*decl.ShallowClass{sc}); err != nil {
			return fmt.Errorf("snapshot %s: %w", sc.Name, err)
		}
		if err := writeAtomic(d.pathFor(sc.Name), buf.Bytes()); err != nil {
			return fmt.Errorf("snapshot %s: %w", sc.Name, err)
		}
		known = append(known, sc.Name)
	}
	slices.Sort(known)
	return d.writeIndexLocked(slices.Compact(known))
}

func (d *Dir) writeIndexLocked(list []names.TypeName) error {
	idx := index{Schema: schemaVersion, Classes: make([]string, len(list))}
	for i, n := range list {
		idx.Classes[i] = string(n)
	}
	data, err := msgpack.Marshal(&idx)
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(d.dir, "classes", indexFile), data)
}

// writeAtomic replaces p with data through a temp file in the same directory.
func writeAtomic(p string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	if err := os.Rename(f.Name(), p); err != nil {
		os.Remove(f.Name())
		return err
	}
	return nil
}

// LoadShallowClass reads one class. A class without a snapshot yields nil, nil.
func (d *Dir) LoadShallowClass(name names.TypeName) (*decl.ShallowClass, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p := d.pathFor(name)
	classes, err := readFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if len(classes) != 1 || classes[0].Name != name {
		return nil, fmt.Errorf("%w: %s does not hold class %s", ErrCorrupt, filepath.Base(p), name)
	}
	return classes[0], nil
}

// Names lists the classes stored in d, sorted. It reads the index; a
// directory without one is scanned instead.
func (d *Dir) Names() ([]names.TypeName, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.namesLocked()
}

func (d *Dir) namesLocked() ([]names.TypeName, error) {
	data, err := os.ReadFile(filepath.Join(d.dir, "classes", indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return d.scanLocked()
	}
	if err != nil {
		return nil, err
	}
	var idx index
	if err := msgpack.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", indexFile, ErrCorrupt, err)
	}
	if idx.Schema != schemaVersion {
		return nil, fmt.Errorf("%s: %w: got %d, want %d", indexFile, ErrSchemaMismatch, idx.Schema, schemaVersion)
	}
	out := make([]names.TypeName, len(idx.Classes))
	for i, n := range idx.Classes {
		out[i] = names.TypeName(n)
	}
	slices.Sort(out)
	return out, nil
}

// scanLocked decodes every class file.
func (d *Dir) scanLocked() ([]names.TypeName, error) {
	entries, err := os.ReadDir(filepath.Join(d.dir, "classes"))
	if err != nil {
		return nil, err
	}
	var out []names.TypeName
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".mp") {
			continue
		}
		classes, err := readFile(filepath.Join(d.dir, "classes", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		for _, sc := range classes {
			out = append(out, sc.Name)
		}
	}
	slices.Sort(out)
	return out, nil
}

// DropAll removes every snapshot in d, leaving an empty directory behind.
func (d *Dir) DropAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropLocked()
}

func (d *Dir) dropLocked() error {
	classes := filepath.Join(d.dir, "classes")
	old := classes + ".old-" + time.Now().Format("20060102150405.000000000")
	if err := os.Rename(classes, old); err != nil {
		return err
	}
	if err := os.MkdirAll(classes, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

func readFile(path string) ([]*decl.ShallowClass, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
