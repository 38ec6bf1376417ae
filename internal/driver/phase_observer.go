package driver

import "time"

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	PhaseStart PhaseStatus = iota
	PhaseEnd
)

// PhaseEvent describes a compile phase boundary.
type PhaseEvent struct {
	Name    string
	Status  PhaseStatus
	Elapsed time.Duration // set on PhaseEnd
	Err     error         // set on PhaseEnd when the phase failed
}

// PhaseObserver receives phase events emitted during Compile. It is called
// on the compiling goroutine.
type PhaseObserver func(PhaseEvent)
