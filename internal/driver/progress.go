package driver

import (
	"time"

	"hhdecl/internal/names"
)

// Status captures the progress state of one class during Check.
type Status string

const (
	// StatusQueued indicates the class is waiting for a worker.
	StatusQueued Status = "queued"
	// StatusWorking indicates a worker is typing the class.
	StatusWorking Status = "checking"
	// StatusDone indicates every member was typed.
	StatusDone Status = "done"
	// StatusError indicates the class failed to fold or type.
	StatusError Status = "error"
)

// Event reports progress for one class.
type Event struct {
	Class   names.TypeName
	Status  Status
	Members int
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Check calls OnEvent from its
// worker goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func (ws *Workspace) emit(evt Event) {
	if ws.progress != nil {
		ws.progress.OnEvent(evt)
	}
}
