package lops

import "fmt"

type auxKey struct {
	producer *Lop
	typ      Type
}

// Dedup hands out auxiliary operators, at most one per producer and type.
// All requesters for the same producer share the same instance.
// A Dedup is not safe for concurrent use.
type Dedup struct {
	aux map[auxKey]*Lop
}

func NewDedup() *Dedup {
	return &Dedup{aux: make(map[auxKey]*Lop)}
}

// Aux returns the auxiliary operator of type typ over producer, creating it
// on first request. An auxiliary already linked as a consumer of producer,
// for instance by another Dedup, is adopted instead of duplicated.
func (d *Dedup) Aux(producer *Lop, typ Type) (*Lop, error) {
	if producer == nil {
		return nil, fmt.Errorf("%s: nil producer", typ)
	}
	if !auxiliary[typ] {
		return nil, fmt.Errorf("%s is not an auxiliary operator", typ)
	}
	k := auxKey{producer: producer, typ: typ}
	if l, ok := d.aux[k]; ok {
		return l, nil
	}
	for _, c := range producer.Outputs {
		if c.Type == typ {
			d.aux[k] = c
			return c, nil
		}
	}
	l, err := New(typ, producer.DataType, producer.ValueType, pinned[typ], producer)
	if err != nil {
		return nil, err
	}
	d.aux[k] = l
	return l, nil
}

// Len returns the number of distinct auxiliaries handed out.
func (d *Dedup) Len() int { return len(d.aux) }
