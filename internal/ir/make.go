package ir

import "fmt"

// MakeIntLit returns an integer literal.
func MakeIntLit(v int64) *IntLiteral { return &IntLiteral{Value: v} }

// MakeBitLit returns a bit literal.
func MakeBitLit(v bool) *BitLiteral { return &BitLiteral{Value: v} }

// MakeFunctionCall builds a call to a function or operator registered on the
// platform.
func MakeFunctionCall(p *Platform, name string, operands ...Expression) (*FunctionCall, error) {
	ft, ok := p.FunctionType(name)
	if !ok {
		return nil, fmt.Errorf("unknown function %q", name)
	}
	if len(ft.Operands) != len(operands) {
		return nil, fmt.Errorf("function %q takes %d operands, got %d", name, len(ft.Operands), len(operands))
	}
	return &FunctionCall{Function: ft, Operands: operands}, nil
}

// MustFunctionCall is MakeFunctionCall for built-in operators that every
// platform defines.
func MustFunctionCall(p *Platform, name string, operands ...Expression) *FunctionCall {
	fc, err := MakeFunctionCall(p, name, operands...)
	if err != nil {
		panic(err)
	}
	return fc
}

// MakeSetInstruction returns an unconditional assignment.
func MakeSetInstruction(lhs *Reference, rhs Expression) *SetInstruction {
	return &SetInstruction{LHS: lhs, RHS: rhs}
}

// MakeGoto returns a goto to target under cond. A nil cond is unconditional.
func MakeGoto(target *Block, cond Expression) *GotoInstruction {
	return &GotoInstruction{Condition: cond, Target: target}
}

// ConstIndex returns the value of e if it is an integer literal.
func ConstIndex(e Expression) (int64, bool) {
	if lit, ok := e.(*IntLiteral); ok {
		return lit.Value, true
	}
	return 0, false
}

// QubitOperands returns the constant qubit indices addressed by a custom
// instruction, in operand order. Non-constant qubit references are skipped.
func QubitOperands(s Statement) []int {
	ci, ok := s.(*CustomInstruction)
	if !ok {
		return nil
	}
	var qs []int
	for _, op := range ci.Operands {
		ref, ok := op.(*Reference)
		if !ok || !ref.DataType.IsQubit() || len(ref.Indices) != 1 {
			continue
		}
		if idx, ok := ConstIndex(ref.Indices[0]); ok {
			qs = append(qs, int(idx))
		}
	}
	return qs
}
