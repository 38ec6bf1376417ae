package progfile

import (
	"fmt"
	"strings"

	"gdfplan/internal/hop"
)

// hops builds one operator list. Nodes are created inputs-first whatever the
// declaration order; the result is in declaration order.
func (d *decoder) hops(specs []hopSpec, path string) ([]*hop.Node, error) {
	byID := make(map[string]*hopSpec, len(specs))
	for i := range specs {
		s := &specs[i]
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			return nil, invalid(path, "", "operator %d has no id", i)
		}
		if _, dup := byID[s.ID]; dup {
			return nil, invalid(path, s.ID, "duplicate id")
		}
		byID[s.ID] = s
	}

	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]uint8, len(specs))
	built := make(map[string]*hop.Node, len(specs))

	var build func(s *hopSpec) error
	build = func(s *hopSpec) error {
		switch state[s.ID] {
		case done:
			return nil
		case visiting:
			return invalid(path, s.ID, "operator depends on itself")
		}
		state[s.ID] = visiting
		inputs := make([]*hop.Node, 0, len(s.Inputs))
		for _, ref := range s.Inputs {
			ref = strings.TrimSpace(ref)
			in, ok := byID[ref]
			if !ok {
				return invalid(path, s.ID, "input %q is not defined in this list", ref)
			}
			if err := build(in); err != nil {
				return err
			}
			inputs = append(inputs, built[ref])
		}
		n, err := d.node(s, inputs, path)
		if err != nil {
			return err
		}
		built[s.ID] = n
		state[s.ID] = done
		return nil
	}

	out := make([]*hop.Node, 0, len(specs))
	for i := range specs {
		if err := build(&specs[i]); err != nil {
			return nil, err
		}
		out = append(out, built[specs[i].ID])
	}
	return out, nil
}

// value builds an expression list and returns its last operator, or nil for
// an empty list.
func (d *decoder) value(specs []hopSpec, path string) (*hop.Node, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	nodes, err := d.hops(specs, path)
	if err != nil {
		return nil, err
	}
	return nodes[len(nodes)-1], nil
}

func (d *decoder) node(s *hopSpec, inputs []*hop.Node, path string) (*hop.Node, error) {
	op, err := hop.ParseOp(strings.TrimSpace(s.Op))
	if err != nil {
		return nil, invalid(path, s.ID, "%v", err)
	}

	name := ident(s.Name)
	if op == hop.OpLiteral {
		if s.Value != "" {
			name = strings.TrimSpace(s.Value)
		}
		if name == "" {
			return nil, invalid(path, s.ID, "literal without value")
		}
	} else if s.Value != "" {
		return nil, invalid(path, s.ID, "only literals carry a value")
	}
	if op.IsData() && name == "" {
		return nil, invalid(path, s.ID, "%s needs a variable name", op)
	}
	if msg := checkArity(op, len(inputs)); msg != "" {
		return nil, invalid(path, s.ID, "%s %s", op, msg)
	}

	dt, err := dataType(s.Type, op, inputs)
	if err != nil {
		return nil, invalid(path, s.ID, "%v", err)
	}
	vt, err := valueType(s.VType)
	if err != nil {
		return nil, invalid(path, s.ID, "%v", err)
	}

	n := d.b.New(op, name, dt, vt, inputs...)
	n.Line = s.Line
	for _, dim := range []struct {
		src *int64
		dst *int64
		key string
	}{{s.Rows, &n.Rows, "rows"}, {s.Cols, &n.Cols, "cols"}, {s.NNZ, &n.NNZ, "nnz"}} {
		if dim.src == nil {
			continue
		}
		if *dim.src < 0 {
			return nil, invalid(path, s.ID, "negative %s", dim.key)
		}
		*dim.dst = *dim.src
	}
	if op == hop.OpMatMult && len(inputs) == 2 && s.Rows == nil && s.Cols == nil &&
		inputs[0].DimsKnown() && inputs[1].DimsKnown() {
		n.Rows, n.Cols = inputs[0].Rows, inputs[1].Cols
	}
	return n, nil
}

// checkArity returns a description of the problem, or "".
func checkArity(op hop.Op, n int) string {
	var lo, hi int
	switch op {
	case hop.OpTransientRead, hop.OpPersistentRead, hop.OpLiteral:
		lo, hi = 0, 0
	case hop.OpTransientWrite, hop.OpPersistentWrite, hop.OpUnary, hop.OpAggUnary, hop.OpReorg, hop.OpSort, hop.OpPrint:
		lo, hi = 1, 1
	case hop.OpBinary, hop.OpMatMult:
		lo, hi = 2, 2
	case hop.OpTernary, hop.OpWSigmoid:
		lo, hi = 3, 3
	default:
		return ""
	}
	switch {
	case n < lo:
		return "needs more inputs"
	case n > hi:
		return "has too many inputs"
	}
	return ""
}

func dataType(s string, op hop.Op, inputs []*hop.Node) (hop.DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "matrix":
		return hop.DataMatrix, nil
	case "scalar":
		return hop.DataScalar, nil
	case "frame":
		return hop.DataFrame, nil
	case "":
	default:
		return hop.DataUnknown, fmt.Errorf("unknown data type %q", s)
	}

	switch op {
	case hop.OpLiteral, hop.OpPrint:
		return hop.DataScalar, nil
	case hop.OpTransientWrite, hop.OpPersistentWrite, hop.OpUnary:
		if len(inputs) > 0 {
			return inputs[0].DataType, nil
		}
	case hop.OpBinary, hop.OpTernary:
		for _, in := range inputs {
			if in.DataType == hop.DataMatrix {
				return hop.DataMatrix, nil
			}
		}
		return hop.DataScalar, nil
	}
	return hop.DataMatrix, nil
}

func valueType(s string) (hop.ValueType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "double":
		return hop.ValueDouble, nil
	case "int":
		return hop.ValueInt, nil
	case "bool", "boolean":
		return hop.ValueBool, nil
	case "string":
		return hop.ValueString, nil
	default:
		return hop.ValueUnknown, fmt.Errorf("unknown value type %q", s)
	}
}
