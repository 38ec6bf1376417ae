package hop

// Builder allocates nodes with unique IDs and links consumer edges.
// A Builder is not safe for concurrent use.
type Builder struct {
	next ID
}

// NewBuilder returns a Builder whose first node gets ID 1.
func NewBuilder() *Builder {
	return &Builder{next: 1}
}

// New creates a node of kind op over inputs and registers it as a consumer of
// every input.
func (b *Builder) New(op Op, name string, dt DataType, vt ValueType, inputs ...*Node) *Node {
	n := &Node{
		ID:        b.next,
		Op:        op,
		Name:      name,
		DataType:  dt,
		ValueType: vt,
		Rows:      -1,
		Cols:      -1,
		NNZ:       -1,
	}
	b.next++
	for _, in := range inputs {
		Link(in, n)
	}
	return n
}

// Link appends in to n.Inputs and n to in.Outputs.
func Link(in, n *Node) {
	n.Inputs = append(n.Inputs, in)
	if in != nil {
		in.Outputs = append(in.Outputs, n)
	}
}

// Read references a variable bound by an earlier block.
func (b *Builder) Read(name string) *Node {
	return b.New(OpTransientRead, name, DataMatrix, ValueDouble)
}

// ReadScalar references a scalar variable bound by an earlier block.
func (b *Builder) ReadScalar(name string) *Node {
	return b.New(OpTransientRead, name, DataScalar, ValueDouble)
}

// Write binds in to a variable visible to later blocks.
func (b *Builder) Write(name string, in *Node) *Node {
	return b.New(OpTransientWrite, name, in.DataType, in.ValueType, in)
}

// PRead reads a persistent input.
func (b *Builder) PRead(name string) *Node {
	return b.New(OpPersistentRead, name, DataMatrix, ValueDouble)
}

// PWrite writes in to persistent storage.
func (b *Builder) PWrite(name string, in *Node) *Node {
	return b.New(OpPersistentWrite, name, in.DataType, in.ValueType, in)
}

// Literal creates a scalar constant; name carries its textual value.
func (b *Builder) Literal(value string) *Node {
	return b.New(OpLiteral, value, DataScalar, ValueDouble)
}

// Unary applies a unary operator.
func (b *Builder) Unary(name string, in *Node) *Node {
	return b.New(OpUnary, name, in.DataType, in.ValueType, in)
}

// Binary applies a binary operator; the result is a matrix when either side is.
func (b *Builder) Binary(name string, left, right *Node) *Node {
	dt := DataScalar
	if left.DataType == DataMatrix || right.DataType == DataMatrix {
		dt = DataMatrix
	}
	return b.New(OpBinary, name, dt, ValueDouble, left, right)
}

// MatMult multiplies two matrices.
func (b *Builder) MatMult(left, right *Node) *Node {
	n := b.New(OpMatMult, "", DataMatrix, ValueDouble, left, right)
	if left.DimsKnown() && right.DimsKnown() {
		n.Rows, n.Cols = left.Rows, right.Cols
	}
	return n
}

// Print is a sink that emits in.
func (b *Builder) Print(in *Node) *Node {
	return b.New(OpPrint, "", DataScalar, ValueString, in)
}
