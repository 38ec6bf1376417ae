package lops

import (
	"fmt"
	"io"
	"strings"
)

// Plan is the lowered form of a program: its operators after their inputs
// plus counts used by reports and cost estimates.
type Plan struct {
	Lops   []*Lop
	Jobs   int // estimated batch jobs
	ByExec map[ExecType]int
	Aux    int // deduplicated auxiliaries
}

func newPlan(lops []*Lop, aux int) *Plan {
	p := &Plan{
		Lops:   lops,
		ByExec: make(map[ExecType]int, 3),
		Aux:    aux,
	}
	packed := false
	for _, l := range lops {
		p.ByExec[l.Props.Exec]++
		switch {
		case l.DefinesJob():
			p.Jobs++
		case l.Props.Job != nil && l.Props.Location != LocData:
			packed = true
		}
	}
	// everything that does not define its own job shares one generic job
	if packed {
		p.Jobs++
	}
	return p
}

// Entry is the flat, serializable record of one operator.
type Entry struct {
	ID       int64
	Type     string
	Exec     string
	Location string
	Name     string
	Inputs   []int64
	Compat   string
	Breaks   bool
	Defines  bool
	Cache    []int
}

func (p *Plan) Entries() []Entry {
	out := make([]Entry, 0, len(p.Lops))
	for _, l := range p.Lops {
		e := Entry{
			ID:       int64(l.ID),
			Type:     l.Type.String(),
			Exec:     l.Props.Exec.String(),
			Location: l.Props.Location.String(),
			Name:     l.Name,
			Compat:   l.Compat().String(),
			Breaks:   l.BreaksAlignment(),
			Defines:  l.DefinesJob(),
			Cache:    l.CacheSlots(),
		}
		for _, in := range l.Inputs {
			e.Inputs = append(e.Inputs, int64(in.ID))
		}
		out = append(out, e)
	}
	return out
}

// Dump writes one operator per line.
func (p *Plan) Dump(w io.Writer) error {
	fmt.Fprintf(w, "plan: %d operators, %d jobs (CP %d, MR %d, SPARK %d, aux %d)\n",
		len(p.Lops), p.Jobs, p.ByExec[ExecCP], p.ByExec[ExecMR], p.ByExec[ExecSpark], p.Aux)
	for _, l := range p.Lops {
		ids := make([]string, len(l.Inputs))
		for i, in := range l.Inputs {
			ids[i] = fmt.Sprintf("#%d", in.ID)
		}
		if _, err := fmt.Fprintf(w, "  %s <- %s\n", l, strings.Join(ids, ", ")); err != nil {
			return err
		}
	}
	return nil
}
