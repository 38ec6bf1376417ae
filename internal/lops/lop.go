// Package lops lowers computation nodes into backend operators.
//
// A Lop is one operator bound to a backend. Operators placed in a batch job
// carry JobProps describing which job templates they can be packed into and
// how they constrain the job boundaries around them; everything else runs in
// the control program and carries no job metadata. The per-type metadata
// lives in rules.go.
package lops

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"gdfplan/internal/hop"
)

var (
	ErrInvalidExecType = errors.New("invalid execution type")
	ErrNoCache         = errors.New("distributed cache not supported")
)

// ID identifies a lowered operator within one plan. A Planner numbers
// operators from 1 in the order it records them; zero means unrecorded.
type ID int64

// CacheInputs is a set of 1-based input slots held resident by every worker
// instead of being streamed.
type CacheInputs uint8

const (
	CacheLeft  CacheInputs = 1 << 0 // slot 1
	CacheRight CacheInputs = 1 << 1 // slot 2
	CacheU     CacheInputs = 1 << 1 // slot 2 of a weighted sigmoid (X, U, V)
	CacheV     CacheInputs = 1 << 2 // slot 3
)

// Slots returns the cached input slots in increasing order, or nil.
func (c CacheInputs) Slots() []int {
	var out []int
	for i := 0; i < 8; i++ {
		if c&(1<<i) != 0 {
			out = append(out, i+1)
		}
	}
	return out
}

// JobProps is the batch-job metadata of an operator lowered to ExecMR.
type JobProps struct {
	Compat               JobSet
	BreaksAlignment      bool
	Aligner              bool
	DefinesJob           bool
	ProducesIntermediate bool
}

type Props struct {
	Exec     ExecType
	Location ExecLocation
	Job      *JobProps // nil unless Exec is ExecMR
	Cache    CacheInputs
}

type Lop struct {
	ID        ID
	Type      Type
	DataType  hop.DataType
	ValueType hop.ValueType
	Name      string    // variable or function name
	Hop       *hop.Node // source node, nil for auxiliaries

	Inputs  []*Lop
	Outputs []*Lop // consumers, in link order

	Props Props
}

// New creates an operator of type typ on exec and links it as a consumer of
// each input. MR operators get the job metadata of their type; others run in
// the control program.
func New(typ Type, dt hop.DataType, vt hop.ValueType, exec ExecType, inputs ...*Lop) (*Lop, error) {
	if typ >= typeCount {
		return nil, fmt.Errorf("unknown operator type %d", typ)
	}
	if exec > ExecSpark {
		return nil, fmt.Errorf("%w: %s", ErrInvalidExecType, exec)
	}
	if want, ok := pinned[typ]; ok && exec != want {
		return nil, fmt.Errorf("%w for %s: %s (runs on %s only)", ErrInvalidExecType, typ, exec, want)
	}
	for i, in := range inputs {
		if in == nil {
			return nil, fmt.Errorf("%s: input %d is nil", typ, i)
		}
	}

	props := Props{Exec: exec, Location: LocControlProgram}
	if exec == ExecMR {
		jp, loc, ok := Rule(typ)
		if !ok {
			return nil, fmt.Errorf("%w for %s: %s", ErrInvalidExecType, typ, exec)
		}
		props.Location = loc
		props.Job = &jp
	}

	l := &Lop{
		Type:      typ,
		DataType:  dt,
		ValueType: vt,
		Props:     props,
	}
	for _, in := range inputs {
		l.Inputs = append(l.Inputs, in)
		in.Outputs = append(in.Outputs, l)
	}
	return l, nil
}

// SetCache selects the inputs l holds in the distributed cache. Only batch
// operators of cache-capable types accept a non-empty set.
func (l *Lop) SetCache(c CacheInputs) error {
	if c == 0 {
		l.Props.Cache = 0
		return nil
	}
	r, ok := cacheRules[l.Type]
	if !ok {
		return fmt.Errorf("%w by %s", ErrNoCache, l.Type)
	}
	if l.Props.Exec != ExecMR {
		return fmt.Errorf("%w on %s", ErrNoCache, l.Props.Exec)
	}
	if c&^r.slots != 0 {
		return fmt.Errorf("%s cannot cache slots %v", l.Type, c.Slots())
	}
	if r.exclusive && bits.OnesCount8(uint8(c)) > 1 {
		return fmt.Errorf("%s caches at most one input, got slots %v", l.Type, c.Slots())
	}
	for _, s := range c.Slots() {
		if s > len(l.Inputs) {
			return fmt.Errorf("%s has no input slot %d", l.Type, s)
		}
	}
	l.Props.Cache = c
	return nil
}

// UsesDistributedCache reports whether any input is cache resident.
func (l *Lop) UsesDistributedCache() bool { return l.Props.Cache != 0 }

// CacheSlots returns the 1-based cache-resident input slots.
func (l *Lop) CacheSlots() []int { return l.Props.Cache.Slots() }

// Compat returns the job types l can be packed into; empty outside MR.
func (l *Lop) Compat() JobSet {
	if l.Props.Job == nil {
		return 0
	}
	return l.Props.Job.Compat
}

func (l *Lop) BreaksAlignment() bool { return l.Props.Job != nil && l.Props.Job.BreaksAlignment }

func (l *Lop) DefinesJob() bool { return l.Props.Job != nil && l.Props.Job.DefinesJob }

// String renders "cpmm#12 MR/MapAndReduce [MMCJ]".
func (l *Lop) String() string {
	if l == nil {
		return "<nil>"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s#%d %s/%s", l.Type, l.ID, l.Props.Exec, l.Props.Location)
	if l.Name != "" {
		fmt.Fprintf(&sb, " %s", l.Name)
	}
	if l.Props.Job != nil {
		fmt.Fprintf(&sb, " [%s]", l.Props.Job.Compat)
	}
	if l.UsesDistributedCache() {
		fmt.Fprintf(&sb, " cache%v", l.CacheSlots())
	}
	return sb.String()
}
