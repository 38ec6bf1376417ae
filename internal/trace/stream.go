package trace

import (
	"io"
	"sync"
)

// StreamTracer writes each event to w as soon as it is emitted.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
}

// NewStreamTracer writes events of level to w in format.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{w: w, level: level, format: format}
}

// Emit stamps ev with the next sequence number and writes it. Write errors
// are dropped.
func (t *StreamTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	ev.Seq = NextSeq()
	// trace output is best effort, a broken pipe must not fail the compile
	_, _ = t.w.Write(FormatEvent(ev, t.format))
}

// Flush flushes w when it buffers.
func (t *StreamTracer) Flush() error {
	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close flushes and closes the writer when it is an io.Closer other than
// a standard stream.
func (t *StreamTracer) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	if c, ok := t.w.(io.Closer); ok && !isStdStream(t.w) {
		return c.Close()
	}
	return nil
}

// Level returns the level events are filtered at.
func (t *StreamTracer) Level() Level  { return t.level }
// Enabled reports whether the stream records anything.
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
