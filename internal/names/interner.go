package names

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// ID is a dense index into an Interner.
type ID uint32

// NoID is reserved for the empty string.
const NoID ID = 0

// Interner maps strings to stable dense IDs. It is not safe for concurrent use;
// snapshot encoding owns one per payload.
type Interner struct {
	byID  []string      // ID -> string (byID[0] = "" for NoID)
	index map[string]ID // string -> ID
}

// NewInterner returns an interner holding only the empty string.
func NewInterner() *Interner {
	return &Interner{
		byID:  []string{""},
		index: map[string]ID{"": NoID},
	}
}

// FromTable rebuilds an interner from a previously snapshotted table.
// The first entry must be the empty string.
func FromTable(table []string) (*Interner, error) {
	if len(table) == 0 || table[0] != "" {
		return nil, fmt.Errorf("string table must start with the empty string")
	}
	in := &Interner{
		byID:  slices.Clone(table),
		index: make(map[string]ID, len(table)),
	}
	for i, s := range in.byID {
		id, err := safecast.Conv[uint32](i)
		if err != nil {
			return nil, fmt.Errorf("string table too large: %w", err)
		}
		if _, dup := in.index[s]; dup {
			return nil, fmt.Errorf("duplicate string table entry %q", s)
		}
		in.index[s] = ID(id)
	}
	return in, nil
}

// Intern returns the ID of s, adding it if needed.
func (in *Interner) Intern(s string) ID {
	if id, ok := in.index[s]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(in.byID))
	if err != nil {
		panic(fmt.Errorf("len(byID) overflow: %w", err))
	}
	id := ID(n)
	in.byID = append(in.byID, s)
	in.index[s] = id
	return id
}

// Lookup returns the string for id.
func (in *Interner) Lookup(id ID) (string, bool) {
	if int(id) >= len(in.byID) {
		return "", false
	}
	return in.byID[id], true
}

// Len counts interned strings including the empty one.
func (in *Interner) Len() int {
	return len(in.byID)
}

// Table returns a copy of all strings in ID order.
func (in *Interner) Table() []string {
	return slices.Clone(in.byID)
}
