package trace

import "errors"

// MultiTracer forwards every event to all of its tracers.
type MultiTracer struct {
	tracers []Tracer
	level   Level
}

// NewMultiTracer fans events out to tracers. level is reported by Level;
// each tracer still filters by its own level.
func NewMultiTracer(level Level, tracers ...Tracer) *MultiTracer {
	return &MultiTracer{tracers: tracers, level: level}
}

// Emit hands every tracer its own copy of ev.
func (t *MultiTracer) Emit(ev *Event) {
	for _, tr := range t.tracers {
		// each tracer stamps its own Seq
		cp := *ev
		tr.Emit(&cp)
	}
}

// Flush flushes all tracers and joins their errors.
func (t *MultiTracer) Flush() error {
	var errs []error
	for _, tr := range t.tracers {
		errs = append(errs, tr.Flush())
	}
	return errors.Join(errs...)
}

// Close closes all tracers and joins their errors.
func (t *MultiTracer) Close() error {
	var errs []error
	for _, tr := range t.tracers {
		errs = append(errs, tr.Close())
	}
	return errors.Join(errs...)
}

// Ring returns the first RingTracer among the tracers, if any.
func (t *MultiTracer) Ring() *RingTracer {
	for _, tr := range t.tracers {
		if r, ok := tr.(*RingTracer); ok {
			return r
		}
	}
	return nil
}

// Level returns the level given to NewMultiTracer.
func (t *MultiTracer) Level() Level  { return t.level }
// Enabled reports whether the level records anything.
func (t *MultiTracer) Enabled() bool { return t.level > LevelOff }
