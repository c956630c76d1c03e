// Package irtest provides a small platform and statement constructors for
// tests.
package irtest

import (
	"fmt"

	"github.com/gyaneshwarpardhi/qsched/internal/ir"
)

// Gates lists the instruction types NewPlatform registers.
var Gates = []string{"x", "y", "h", "rz", "cz", "cnot", "measure", "prepz", "barrier"}

// NewPlatform returns a platform with numQubits qubits, an int register
// "r" of four elements and an int scalar "i", and the instructions in Gates.
//
// Durations in cycles: single-qubit gates 1, two-qubit gates 2, measure 5,
// prepz 3, barrier 0.
func NewPlatform(numQubits int) *ir.Platform {
	p := ir.NewPlatform("test", 20, numQubits)
	q := p.QubitType
	one := func(m ir.OperandMode) []ir.OperandType { return []ir.OperandType{{Mode: m, DataType: q}} }
	two := func(a, b ir.OperandMode) []ir.OperandType {
		return []ir.OperandType{{Mode: a, DataType: q}, {Mode: b, DataType: q}}
	}
	types := []*ir.InstructionType{
		{Name: "x", Duration: 1, Operands: one(ir.ModeWrite), Kind: "mw"},
		{Name: "y", Duration: 1, Operands: one(ir.ModeWrite), Kind: "mw"},
		{Name: "h", Duration: 1, Operands: one(ir.ModeWrite), Kind: "mw"},
		{Name: "rz", Duration: 1, Operands: one(ir.ModeCommuteZ), Kind: "mw"},
		{Name: "cz", Duration: 2, Operands: two(ir.ModeCommuteZ, ir.ModeCommuteZ), Kind: "flux"},
		{Name: "cnot", Duration: 2, Operands: two(ir.ModeCommuteZ, ir.ModeCommuteX), Kind: "flux"},
		{Name: "measure", Duration: 5, Operands: one(ir.ModeMeasure), Kind: "readout"},
		{Name: "prepz", Duration: 3, Operands: one(ir.ModeWrite)},
		{Name: "barrier", Duration: 0, Barrier: true},
	}
	for _, it := range types {
		if err := p.AddInstructionType(it); err != nil {
			panic(err)
		}
	}
	must(p.AddObject(&ir.Object{Name: "r", Type: p.IntType, Shape: []int{4}}))
	must(p.AddObject(&ir.Object{Name: "i", Type: p.IntType}))
	return p
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Qubit returns a reference to qubit i.
func Qubit(p *ir.Platform, i int) *ir.Reference {
	return ir.NewReference(p.Qubits, int64(i))
}

// Bit returns a reference to the implicit measurement bit of qubit i.
func Bit(p *ir.Platform, i int) *ir.Reference {
	r := Qubit(p, i)
	r.DataType = p.ImplicitBitType
	return r
}

// Var returns a reference to a named classical object of the platform.
func Var(p *ir.Platform, name string, indices ...int64) *ir.Reference {
	obj, ok := p.Object(name)
	if !ok {
		panic(fmt.Sprintf("irtest: no object %q", name))
	}
	return ir.NewReference(obj, indices...)
}

// Gate returns an unconditional custom instruction on the given qubits.
func Gate(p *ir.Platform, name string, qubits ...int) *ir.CustomInstruction {
	it, ok := p.InstructionType(name)
	if !ok {
		panic(fmt.Sprintf("irtest: no instruction %q", name))
	}
	ci := &ir.CustomInstruction{Type: it}
	for _, q := range qubits {
		ci.Operands = append(ci.Operands, Qubit(p, q))
	}
	return ci
}

// Block wraps statements in a sub-block.
func Block(stmts ...ir.Statement) *ir.SubBlock {
	return &ir.SubBlock{Statements: stmts}
}
