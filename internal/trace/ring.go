package trace

import (
	"io"
	"sync"
)

// RingTracer keeps the last capacity events in memory. Dump writes them out,
// typically after a failed compile.
type RingTracer struct {
	mu       sync.Mutex
	events   []Event
	capacity int
	head     int
	full     bool
	level    Level
}

// NewRingTracer allocates a ring of capacity events; a non-positive
// capacity means 4096.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingTracer{
		events:   make([]Event, capacity),
		capacity: capacity,
		level:    level,
	}
}

// Emit stores a copy of ev, overwriting the oldest event once the ring is full.
func (t *RingTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	stored := *ev
	stored.Seq = NextSeq()
	t.events[t.head] = stored
	t.head = (t.head + 1) % t.capacity
	if t.head == 0 {
		t.full = true
	}
}

// Snapshot returns the stored events oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.full {
		out := make([]Event, t.head)
		copy(out, t.events[:t.head])
		return out
	}
	out := make([]Event, 0, t.capacity)
	out = append(out, t.events[t.head:]...)
	return append(out, t.events[:t.head]...)
}

// Dump writes the stored events to w, oldest first.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	events := t.Snapshot()
	for i := range events {
		if _, err := w.Write(FormatEvent(&events[i], format)); err != nil {
			return err
		}
	}
	return nil
}

// Flush and Close are no-ops; events stay in memory until Dump.
func (t *RingTracer) Flush() error  { return nil }
func (t *RingTracer) Close() error  { return nil }
// Level returns the level events are filtered at.
func (t *RingTracer) Level() Level  { return t.level }
// Enabled reports whether the ring records anything.
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
