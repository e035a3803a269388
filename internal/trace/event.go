package trace

import (
	"strconv"
	"time"
)

// Kind represents the type of trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1 // span start
	KindSpanEnd                   // span end
	KindPoint                     // instant event
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity of the event.
// Lower numeric values are coarser.
type Scope uint8

const (
	ScopeDriver Scope = iota + 1 // load, fold, check, render phases
	ScopeClass                   // one class view
	ScopeMember                  // one member resolution
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeDriver:
		return "driver"
	case ScopeClass:
		return "class"
	case ScopeMember:
		return "member"
	default:
		return "unknown"
	}
}

// Attr is one key=value annotation of an event. Attrs keep the order in
// which they were attached.
type Attr struct {
	Key   string
	Value string
}

func Str(key, value string) Attr { return Attr{Key: key, Value: value} }
func Int(key string, n int) Attr { return Attr{Key: key, Value: strconv.Itoa(n)} }

// Event represents a single trace event.
type Event struct {
	Time     time.Time // wall-clock timestamp
	Seq      uint64    // assigned by the tracer that stores the event
	Kind     Kind
	Scope    Scope
	SpanID   uint64 // 0 for points
	ParentID uint64 // 0 if root
	GID      uint64 // goroutine ID
	Name     string // e.g. "check", "class", "method:C::m"
	Detail   string
	Attrs    []Attr
}

// Attr returns the value of the last attr named key.
func (ev *Event) Attr(key string) (string, bool) {
	for i := len(ev.Attrs) - 1; i >= 0; i-- {
		if ev.Attrs[i].Key == key {
			return ev.Attrs[i].Value, true
		}
	}
	return "", false
}
