package ir

// Expression is the common interface for all expression nodes.
type Expression interface {
	exprNode()
}

// Reference refers to (an element of) an object. DataType normally equals
// Target.Type; it differs when referring to the implicit measurement bit of
// a qubit.
type Reference struct {
	Target   *Object
	DataType *DataType
	Indices  []Expression
}

func (*Reference) exprNode() {}

// Clone returns a copy of the reference that shares the target and indices
// but not the index slice.
func (r *Reference) Clone() *Reference {
	c := *r
	c.Indices = append([]Expression(nil), r.Indices...)
	return &c
}

// IntLiteral is a constant integer.
type IntLiteral struct {
	Value int64
}

func (*IntLiteral) exprNode() {}

// BitLiteral is a constant boolean.
type BitLiteral struct {
	Value bool
}

func (*BitLiteral) exprNode() {}

// FunctionCall applies a function or operator to operands. The access modes
// of the operands are declared by Function.Operands.
type FunctionCall struct {
	Function *FunctionType
	Operands []Expression
}

func (*FunctionCall) exprNode() {}

// NewReference makes a reference to obj with constant indices.
func NewReference(obj *Object, indices ...int64) *Reference {
	r := &Reference{Target: obj, DataType: obj.Type}
	for _, i := range indices {
		r.Indices = append(r.Indices, &IntLiteral{Value: i})
	}
	return r
}
