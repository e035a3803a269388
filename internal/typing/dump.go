package typing

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"hhdecl/internal/decl"
	"hhdecl/internal/names"
)

// Dump resolves every member and writes a listing of the view to w.
// Errors and invariant failures surface exactly as from the individual
// lookups.
func (c *ClassType) Dump(w io.Writer) error {
	if err := c.FetchAllMembers(); err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", c.class.Kind, c.class.Name)
	if len(c.class.TParams) > 0 {
		fmt.Fprintf(&sb, "<%s>", strings.Join(c.class.TParams, ", "))
	}
	var mods []string
	if c.class.Abstract {
		mods = append(mods, "abstract")
	}
	if c.class.Final {
		mods = append(mods, "final")
	}
	if len(mods) > 0 {
		fmt.Fprintf(&sb, " [%s]", strings.Join(mods, " "))
	}
	sb.WriteByte('\n')
	if len(c.class.Ancestors) > 0 {
		parts := make([]string, len(c.class.Ancestors))
		for i, a := range c.class.Ancestors {
			parts[i] = string(a)
		}
		fmt.Fprintf(&sb, "  ancestors: %s\n", strings.Join(parts, ", "))
	}

	writeSection(&sb, "props", c.class.Name, collect(&c.members.props, c.class.Props))
	writeSection(&sb, "static props", c.class.Name, collect(&c.members.staticProps, c.class.StaticProps))
	writeSection(&sb, "methods", c.class.Name, collect(&c.members.methods, c.class.Methods))
	writeSection(&sb, "static methods", c.class.Name, collect(&c.members.staticMethods, c.class.StaticMethods))

	if ctor, _ := c.members.constructor.get(); ctor != nil {
		writeSection(&sb, "constructor", c.class.Name, []dumpRow{{name: string(names.ConstructorName), elt: ctor}})
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

type dumpRow struct {
	name string
	elt  *ClassElt
}

func collect[K ~string](cache *memberMap[K], bucket map[K]*decl.FoldedElt) []dumpRow {
	rows := make([]dumpRow, 0, len(bucket))
	for _, name := range sortedKeys(bucket) {
		if elt, ok := cache.load(name); ok {
			rows = append(rows, dumpRow{name: string(name), elt: elt})
		}
	}
	return rows
}

func writeSection(sb *strings.Builder, title string, viewed names.TypeName, rows []dumpRow) {
	if len(rows) == 0 {
		return
	}
	width := 0
	for _, r := range rows {
		width = max(width, runewidth.StringWidth(r.name))
	}
	fmt.Fprintf(sb, "  %s:\n", title)
	for _, r := range rows {
		fmt.Fprintf(sb, "    %-9s %s  %s", r.elt.Visibility, runewidth.FillRight(r.name, width), r.elt.Ty)
		if r.elt.Flags != 0 {
			fmt.Fprintf(sb, "  [%s]", r.elt.Flags)
		}
		if r.elt.Origin != viewed {
			fmt.Fprintf(sb, "  from %s", r.elt.Origin)
		}
		if r.elt.Deprecated != "" {
			fmt.Fprintf(sb, "  deprecated: %s", r.elt.Deprecated)
		}
		sb.WriteByte('\n')
	}
}
