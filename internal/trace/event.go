package trace

import "time"

// Kind tells span boundaries apart from instant events.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
)

// String returns the name used in both output formats.
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

// Scope is the granularity of an event. Lower values are coarser.
type Scope uint8

const (
	ScopeDriver Scope = iota + 1 // one compile request
	ScopePass                    // graph build, lowering, cost estimation
	ScopeBlock                   // one program block
	ScopeNode                    // one graph node or operator
)

// String returns the lower-case scope name.
func (s Scope) String() string {
	switch s {
	case ScopeDriver:
		return "driver"
	case ScopePass:
		return "pass"
	case ScopeBlock:
		return "block"
	case ScopeNode:
		return "node"
	default:
		return "unknown"
	}
}

// Event is one recorded trace entry. Seq is stamped by the tracer that
// stores or writes the event.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for root spans
	Name     string // "gdf-build", "block:while#3"
	Detail   string
	Extra    map[string]string
}
