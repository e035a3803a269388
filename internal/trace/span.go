package trace

import (
	"bytes"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

var (
	seq     atomic.Uint64
	spanIDs atomic.Uint64
)

// NextSeq returns a monotonically increasing sequence number.
func NextSeq() uint64 { return seq.Add(1) }

// NextSpanID returns a unique span ID.
func NextSpanID() uint64 { return spanIDs.Add(1) }

var goroutinePrefix = []byte("goroutine ")

// goroutineID reads the current goroutine ID from the runtime.Stack header,
// which starts with "goroutine 123 [running]:". It returns 0 if the header
// cannot be parsed.
func goroutineID() uint64 {
	var buf [64]byte
	hdr := buf[:runtime.Stack(buf[:], false)]
	hdr, ok := bytes.CutPrefix(hdr, goroutinePrefix)
	if !ok {
		return 0
	}
	num, _, ok := bytes.Cut(hdr, []byte{' '})
	if !ok {
		return 0
	}
	gid, err := strconv.ParseUint(string(num), 10, 64)
	if err != nil {
		return 0
	}
	return gid
}

// Span tracks one logical operation from Begin to End. Attrs given to Begin
// appear on both events, attrs added with With only on the end event.
// A disabled span ignores every call.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	gid     uint64
	scope   Scope
	name    string
	started time.Time
	attrs   []Attr
}

// Begin starts a span under parent (0 for a root span) and emits its begin
// event.
func Begin(t Tracer, scope Scope, name string, parent uint64, attrs ...Attr) *Span {
	if t == nil || !t.Enabled() {
		return &Span{}
	}
	s := &Span{
		tracer:  t,
		id:      NextSpanID(),
		parent:  parent,
		gid:     goroutineID(),
		scope:   scope,
		name:    name,
		started: time.Now(),
		attrs:   attrs,
	}
	s.emit(KindSpanBegin, s.started, "")
	return s
}

func (s *Span) emit(kind Kind, at time.Time, detail string) {
	s.tracer.Emit(&Event{
		Time:     at,
		Kind:     kind,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		GID:      s.gid,
		Name:     s.name,
		Detail:   detail,
		Attrs:    s.attrs[:len(s.attrs):len(s.attrs)],
	})
}

func (s *Span) live() bool { return s != nil && s.tracer != nil }

// With attaches attrs to the end event.
func (s *Span) With(attrs ...Attr) *Span {
	if s.live() {
		s.attrs = append(s.attrs, attrs...)
	}
	return s
}

// End emits the end event and returns the span's duration.
func (s *Span) End(detail string) time.Duration {
	if !s.live() {
		return 0
	}
	now := time.Now()
	s.emit(KindSpanEnd, now, detail)
	return now.Sub(s.started)
}

// Fail ends the span with err as its detail.
func (s *Span) Fail(err error) time.Duration {
	return s.End("error: " + err.Error())
}

// ID returns the span ID, or 0 for a disabled span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point emits an instant event under parent.
func Point(t Tracer, scope Scope, name, detail string, parent uint64, attrs ...Attr) {
	if t == nil || !t.Enabled() {
		return
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: parent,
		GID:      goroutineID(),
		Name:     name,
		Detail:   detail,
		Attrs:    attrs,
	})
}
