package lops

import (
	"errors"
	"fmt"

	"gdfplan/internal/hop"
)

// Placement decides the backend of one computation node.
type Placement func(h *hop.Node) ExecType

// Fixed places every node on exec.
func Fixed(exec ExecType) Placement {
	return func(*hop.Node) ExecType { return exec }
}

type Options struct {
	// CacheBudget is the largest input, in bytes, a batch operator may hold
	// in the distributed cache. Zero disables caching.
	CacheBudget int64
}

// Planner lowers computation nodes, each node once. Operators are recorded
// in creation order, which puts every operator after its inputs.
// A Planner is not safe for concurrent use.
type Planner struct {
	place Placement
	opts  Options
	memo  map[*hop.Node]*Lop
	dedup *Dedup
	order []*Lop
	seen  map[*Lop]bool
}

func NewPlanner(place Placement, opts Options) *Planner {
	if place == nil {
		place = Fixed(ExecCP)
	}
	return &Planner{
		place: place,
		opts:  opts,
		memo:  make(map[*hop.Node]*Lop),
		dedup: NewDedup(),
		seen:  make(map[*Lop]bool),
	}
}

// Lower returns the operator for h, lowering its inputs first.
func (p *Planner) Lower(h *hop.Node) (*Lop, error) {
	if h == nil {
		return nil, errors.New("lower: nil node")
	}
	if l, ok := p.memo[h]; ok {
		if l == nil {
			return nil, fmt.Errorf("lower %s: operator depends on itself", hop.Explain(h))
		}
		return l, nil
	}
	p.memo[h] = nil // in progress

	inputs := make([]*Lop, 0, len(h.Inputs))
	for _, in := range h.Inputs {
		l, err := p.Lower(in)
		if err != nil {
			delete(p.memo, h)
			return nil, err
		}
		inputs = append(inputs, l)
	}

	l, err := p.lower(h, p.exec(h), inputs)
	if err != nil {
		delete(p.memo, h)
		return nil, fmt.Errorf("lower %s: %w", hop.Explain(h), err)
	}
	l.Hop = h
	l.Name = h.Name
	p.memo[h] = l
	p.record(l)
	return l, nil
}

func (p *Planner) exec(h *hop.Node) ExecType {
	// print always executes in the control program
	if h.Op == hop.OpPrint {
		return ExecCP
	}
	return p.place(h)
}

func (p *Planner) lower(h *hop.Node, exec ExecType, inputs []*Lop) (*Lop, error) {
	if exec == ExecSpark {
		if err := p.checkpointShared(h, inputs); err != nil {
			return nil, err
		}
	}

	dt, vt := h.DataType, h.ValueType
	switch h.Op {
	case hop.OpTransientRead, hop.OpTransientWrite, hop.OpPersistentRead, hop.OpPersistentWrite,
		hop.OpLiteral, hop.OpPrint:
		return New(TypeData, dt, vt, exec, inputs...)
	case hop.OpUnary:
		return New(TypeUnary, dt, vt, exec, inputs...)
	case hop.OpBinary:
		return New(TypeBinary, dt, vt, exec, inputs...)
	case hop.OpTernary:
		return New(TypeTernary, dt, vt, exec, inputs...)
	case hop.OpAggUnary:
		return New(TypeAggregate, dt, vt, exec, inputs...)
	case hop.OpReorg:
		return New(TypeTransform, dt, vt, exec, inputs...)
	case hop.OpIndexing:
		return New(TypeRightIndex, dt, vt, exec, inputs...)
	case hop.OpDataGen:
		return New(TypeDataGen, dt, vt, exec, inputs...)
	case hop.OpGroupedAgg:
		return New(TypeGroupedAgg, dt, vt, exec, inputs...)
	case hop.OpSort:
		return p.lowerSort(h, exec, inputs)
	case hop.OpMatMult:
		return p.lowerMatMult(h, exec, inputs)
	case hop.OpWSigmoid:
		return p.lowerWSigmoid(h, exec, inputs)
	case hop.OpFunctionCall:
		l, err := New(TypeFunctionCall, dt, vt, exec, inputs...)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", h.Name, err)
		}
		return l, nil
	default:
		return nil, fmt.Errorf("no lowering for operator %s", h.Op)
	}
}

// lowerSort routes a batch sort through the combine step of its input, shared
// by every sort over the same producer.
func (p *Planner) lowerSort(h *hop.Node, exec ExecType, inputs []*Lop) (*Lop, error) {
	if exec == ExecMR && len(inputs) > 0 {
		comb, err := p.aux(inputs[0], TypeCombineUnary)
		if err != nil {
			return nil, err
		}
		inputs = append([]*Lop{comb}, inputs[1:]...)
	}
	return New(TypeSortKeys, h.DataType, h.ValueType, exec, inputs...)
}

// lowerMatMult broadcasts a side that fits the cache budget and falls back to
// a cross-product join otherwise.
func (p *Planner) lowerMatMult(h *hop.Node, exec ExecType, inputs []*Lop) (*Lop, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("matrix multiply needs 2 inputs, got %d", len(inputs))
	}
	switch exec {
	case ExecMR:
		var cache CacheInputs
		switch {
		case p.fits(h.Inputs[1]):
			cache = CacheRight
		case p.fits(h.Inputs[0]):
			cache = CacheLeft
		default:
			return New(TypeMMCJ, h.DataType, h.ValueType, exec, inputs...)
		}
		l, err := New(TypeMapMult, h.DataType, h.ValueType, exec, inputs...)
		if err != nil {
			return nil, err
		}
		return l, l.SetCache(cache)
	case ExecSpark:
		return New(TypeMMCJ, h.DataType, h.ValueType, exec, inputs...)
	default:
		return New(TypeBinary, h.DataType, h.ValueType, exec, inputs...)
	}
}

// lowerWSigmoid lowers sigmoid(X * (U %*% t(V))) over (X, U, V); U and V are
// each cached when they fit the budget.
func (p *Planner) lowerWSigmoid(h *hop.Node, exec ExecType, inputs []*Lop) (*Lop, error) {
	if len(inputs) != 3 {
		return nil, fmt.Errorf("weighted sigmoid needs 3 inputs, got %d", len(inputs))
	}
	l, err := New(TypeWeightedSigmoid, h.DataType, h.ValueType, exec, inputs...)
	if err != nil || exec != ExecMR {
		return l, err
	}
	var cache CacheInputs
	if p.fits(h.Inputs[1]) {
		cache |= CacheU
	}
	if p.fits(h.Inputs[2]) {
		cache |= CacheV
	}
	return l, l.SetCache(cache)
}

// checkpointShared persists in-memory inputs read by more than one consumer.
func (p *Planner) checkpointShared(h *hop.Node, inputs []*Lop) error {
	for i, in := range inputs {
		if in.Props.Exec != ExecSpark || len(h.Inputs[i].Outputs) < 2 {
			continue
		}
		chk, err := p.aux(in, TypeCheckpoint)
		if err != nil {
			return err
		}
		inputs[i] = chk
	}
	return nil
}

func (p *Planner) aux(producer *Lop, typ Type) (*Lop, error) {
	l, err := p.dedup.Aux(producer, typ)
	if err != nil {
		return nil, err
	}
	p.record(l)
	return l, nil
}

func (p *Planner) record(l *Lop) {
	if p.seen[l] {
		return
	}
	p.seen[l] = true
	p.order = append(p.order, l)
	if l.ID == 0 {
		l.ID = ID(len(p.order))
	}
}

const cellBytes = 8

// fits reports whether h is small enough to broadcast. Unknown sizes never fit.
func (p *Planner) fits(h *hop.Node) bool {
	cells := h.Cells()
	return p.opts.CacheBudget > 0 && cells >= 0 && cells <= p.opts.CacheBudget/cellBytes
}

// Plan summarizes everything lowered so far.
func (p *Planner) Plan() *Plan {
	return newPlan(p.order, p.dedup.Len())
}
