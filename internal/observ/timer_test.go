package observ

import (
	"strings"
	"testing"
	"time"
)

// fakeClock advances by step on every reading.
func fakeClock(step time.Duration) func() time.Time {
	cur := time.Unix(0, 0)
	return func() time.Time {
		cur = cur.Add(step)
		return cur
	}
}

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	tm.now = fakeClock(2 * time.Millisecond)

	load := tm.Begin("load")
	tm.End(load, "3 classes")
	done := tm.Track("check")
	done("")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("phases = %d, want 2", len(r.Phases))
	}
	if r.Phases[0].Name != "load" || r.Phases[0].Note != "3 classes" {
		t.Fatalf("phase 0 = %+v", r.Phases[0])
	}
	if r.Phases[0].DurationMS != 2 || r.Phases[1].DurationMS != 2 {
		t.Fatalf("durations = %v, %v; want 2ms each", r.Phases[0].DurationMS, r.Phases[1].DurationMS)
	}
	if r.TotalMS != 4 {
		t.Fatalf("total = %v, want 4", r.TotalMS)
	}
}

func TestTimerSummary(t *testing.T) {
	tm := NewTimer()
	tm.now = fakeClock(time.Millisecond)
	tm.End(tm.Begin("fold"), "memoized")

	s := tm.Summary()
	for _, want := range []string{"timings:", "fold", "1.00 ms", "// memoized", "total"} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary missing %q:\n%s", want, s)
		}
	}
}

func TestTimerIgnoresBadIndexAndNil(t *testing.T) {
	tm := NewTimer()
	tm.End(5, "x")
	tm.End(-1, "x")
	if r := tm.Report(); len(r.Phases) != 0 {
		t.Fatalf("phases = %v, want none", r.Phases)
	}

	var nilTimer *Timer
	nilTimer.Track("x")("")
	if r := nilTimer.Report(); len(r.Phases) != 0 {
		t.Fatalf("nil timer report = %+v", r)
	}
}
