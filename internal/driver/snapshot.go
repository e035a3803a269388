package driver

import (
	"fmt"

	"hhdecl/internal/decl"
	"hhdecl/internal/snapshot"
)

// SnapshotMode says what happens to classes already stored in the target.
type SnapshotMode uint8

const (
	SnapshotReplace SnapshotMode = iota // target ends up holding exactly the workspace
	SnapshotMerge                       // earlier classes not in the workspace are kept
)

// writeSnapshot stores every known shallow class, including ones that were
// only reachable through other snapshot directories. Classes are read before
// the target is touched, so path may also be one of the inputs.
func writeSnapshot(path string, ws *Workspace, mode SnapshotMode) (int, error) {
	dir, err := snapshot.OpenDir(path)
	if err != nil {
		return 0, err
	}
	classes := make([]*decl.ShallowClass, 0, len(ws.Classes))
	for _, name := range ws.Classes {
		sc, err := ws.Store.ShallowClass(name)
		if err != nil {
			return 0, err
		}
		if sc == nil {
			return 0, fmt.Errorf("%w: %s", ErrUnknownClass, name)
		}
		classes = append(classes, sc)
	}
	write := dir.Replace
	if mode == SnapshotMerge {
		write = dir.PutAll
	}
	if err := write(classes); err != nil {
		return 0, fmt.Errorf("%s: %w", dir.Path(), err)
	}
	return len(classes), nil
}
