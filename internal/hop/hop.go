// Package hop models the per-block operator DAG handed to the planner by the
// front-end.
//
// A Node is one operator instance of a straight-line block. Nodes are created
// through a Builder, which assigns identities and keeps consumer edges in sync
// with input edges. The planner never mutates a DAG it receives.
package hop

import (
	"fmt"
	"math"
	"math/bits"
	"strings"

	"fortio.org/safecast"
)

// ID identifies a node within one Builder.
type ID int64

// NoID marks a missing node.
const NoID ID = -1

// Op is the operator kind of a node.
type Op uint8

const (
	OpInvalid Op = iota
	OpTransientRead
	OpTransientWrite
	OpPersistentRead
	OpPersistentWrite
	OpLiteral
	OpUnary
	OpBinary
	OpTernary
	OpAggUnary
	OpMatMult
	OpReorg
	OpIndexing
	OpDataGen
	OpSort
	OpGroupedAgg
	OpWSigmoid
	OpFunctionCall
	OpPrint

	opCount
)

var opNames = [...]string{
	OpInvalid:         "invalid",
	OpTransientRead:   "tread",
	OpTransientWrite:  "twrite",
	OpPersistentRead:  "pread",
	OpPersistentWrite: "pwrite",
	OpLiteral:         "lit",
	OpUnary:           "u",
	OpBinary:          "b",
	OpTernary:         "t",
	OpAggUnary:        "ua",
	OpMatMult:         "ba+*",
	OpReorg:           "r",
	OpIndexing:        "rix",
	OpDataGen:         "dg",
	OpSort:            "sort",
	OpGroupedAgg:      "groupedagg",
	OpWSigmoid:        "wsigmoid",
	OpFunctionCall:    "extfunct",
	OpPrint:           "print",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", o)
}

// ParseOp resolves the short operator name used in dumps and program files.
func ParseOp(s string) (Op, error) {
	for i := OpInvalid + 1; i < opCount; i++ {
		if opNames[i] == s {
			return i, nil
		}
	}
	return OpInvalid, fmt.Errorf("unknown operator %q", s)
}

// Ops returns every valid operator kind.
func Ops() []Op {
	out := make([]Op, 0, opCount-1)
	for i := OpInvalid + 1; i < opCount; i++ {
		out = append(out, i)
	}
	return out
}

// IsData reports whether o reads or writes a named variable.
func (o Op) IsData() bool {
	switch o {
	case OpTransientRead, OpTransientWrite, OpPersistentRead, OpPersistentWrite:
		return true
	}
	return false
}

type DataType uint8

const (
	DataUnknown DataType = iota
	DataMatrix
	DataScalar
	DataFrame
)

func (d DataType) String() string {
	switch d {
	case DataMatrix:
		return "MATRIX"
	case DataScalar:
		return "SCALAR"
	case DataFrame:
		return "FRAME"
	default:
		return "UNKNOWN"
	}
}

type ValueType uint8

const (
	ValueUnknown ValueType = iota
	ValueDouble
	ValueInt
	ValueBool
	ValueString
)

func (v ValueType) String() string {
	switch v {
	case ValueDouble:
		return "DOUBLE"
	case ValueInt:
		return "INT"
	case ValueBool:
		return "BOOLEAN"
	case ValueString:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// Node is one operator of a block-local DAG.
type Node struct {
	ID        ID
	Op        Op
	Name      string // variable name for data ops, function name for calls
	DataType  DataType
	ValueType ValueType

	Inputs  []*Node
	Outputs []*Node // consumers, in link order

	// Size information; -1 means unknown.
	Rows int64
	Cols int64
	NNZ  int64

	Line int
}

// DimsKnown reports whether both dimensions are known.
func (n *Node) DimsKnown() bool {
	return n != nil && n.Rows >= 0 && n.Cols >= 0
}

// Cells returns rows*cols, or -1 when either dimension is unknown. A product
// that does not fit in an int64 saturates at math.MaxInt64.
func (n *Node) Cells() int64 {
	if !n.DimsKnown() {
		return -1
	}
	hi, lo := bits.Mul64(uint64(n.Rows), uint64(n.Cols))
	cells, err := safecast.Conv[int64](lo)
	if hi != 0 || err != nil {
		return math.MaxInt64
	}
	return cells
}

// Explain renders a one-line identity of n for diagnostics.
func Explain(n *Node) string {
	if n == nil {
		return "<nil>"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "(%d) %s", n.ID, n.Op)
	if n.Name != "" {
		fmt.Fprintf(&sb, " %s", n.Name)
	}
	if len(n.Inputs) > 0 {
		sb.WriteString(" (")
		for i, in := range n.Inputs {
			if i > 0 {
				sb.WriteByte(',')
			}
			if in == nil {
				sb.WriteString("nil")
				continue
			}
			fmt.Fprintf(&sb, "%d", in.ID)
		}
		sb.WriteByte(')')
	}
	fmt.Fprintf(&sb, " [%s,%s]", n.DataType, n.ValueType)
	if n.Line > 0 {
		fmt.Fprintf(&sb, " line %d", n.Line)
	}
	return sb.String()
}

// Roots returns the nodes of nodes that have no consumers, in the given order.
func Roots(nodes []*Node) []*Node {
	var out []*Node
	for _, n := range nodes {
		if n != nil && len(n.Outputs) == 0 {
			out = append(out, n)
		}
	}
	return out
}
