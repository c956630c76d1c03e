package syntax

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/qsched/internal/ir"
)

// ErrDivisionByZero is returned when folding divides a constant by zero.
var ErrDivisionByZero = errors.New("division by zero")

// kindOf returns the type kind an expression evaluates to.
func kindOf(e ir.Expression) ir.TypeKind {
	switch ex := e.(type) {
	case *ir.Reference:
		return ex.DataType.Kind
	case *ir.IntLiteral:
		return ir.KindInt
	case *ir.BitLiteral:
		return ir.KindBit
	case *ir.FunctionCall:
		return ex.Function.ReturnType.Kind
	}
	return ir.KindInt
}

// Fold replaces operator applications whose operands are all literals by
// their value. Anything else is returned as is, with foldable operands
// folded.
func Fold(e ir.Expression) (ir.Expression, error) {
	fc, ok := e.(*ir.FunctionCall)
	if !ok {
		return e, nil
	}
	ops := make([]ir.Expression, len(fc.Operands))
	constant := true
	for i, o := range fc.Operands {
		f, err := Fold(o)
		if err != nil {
			return nil, err
		}
		ops[i] = f
		switch f.(type) {
		case *ir.IntLiteral, *ir.BitLiteral:
		default:
			constant = false
		}
	}
	folded := &ir.FunctionCall{Function: fc.Function, Operands: ops}
	op, isOp := strings.CutPrefix(fc.Function.Name, "operator")
	if !constant || !isOp {
		return folded, nil
	}
	return evalOperator(op, ops)
}

func evalOperator(op string, ops []ir.Expression) (ir.Expression, error) {
	if len(ops) == 1 {
		switch op {
		case "!":
			return ir.MakeBitLit(!ops[0].(*ir.BitLiteral).Value), nil
		case "-u":
			return ir.MakeIntLit(-ops[0].(*ir.IntLiteral).Value), nil
		}
		return nil, fmt.Errorf("unknown unary operator %q", op)
	}
	if a, ok := ops[0].(*ir.BitLiteral); ok {
		b := ops[1].(*ir.BitLiteral)
		switch op {
		case "&&":
			return ir.MakeBitLit(a.Value && b.Value), nil
		case "||":
			return ir.MakeBitLit(a.Value || b.Value), nil
		case "^^":
			return ir.MakeBitLit(a.Value != b.Value), nil
		}
		return nil, fmt.Errorf("unknown bit operator %q", op)
	}
	a := ops[0].(*ir.IntLiteral).Value
	b := ops[1].(*ir.IntLiteral).Value
	switch op {
	case "+":
		return ir.MakeIntLit(a + b), nil
	case "-":
		return ir.MakeIntLit(a - b), nil
	case "*":
		return ir.MakeIntLit(a * b), nil
	case "/", "%":
		if b == 0 {
			return nil, ErrDivisionByZero
		}
		if op == "/" {
			return ir.MakeIntLit(a / b), nil
		}
		return ir.MakeIntLit(a % b), nil
	case "==":
		return ir.MakeBitLit(a == b), nil
	case "!=":
		return ir.MakeBitLit(a != b), nil
	case "<":
		return ir.MakeBitLit(a < b), nil
	case ">":
		return ir.MakeBitLit(a > b), nil
	case "<=":
		return ir.MakeBitLit(a <= b), nil
	case ">=":
		return ir.MakeBitLit(a >= b), nil
	}
	return nil, fmt.Errorf("unknown int operator %q", op)
}

// EvalInt folds e and returns its value if it is a constant integer.
func EvalInt(e ir.Expression) (int64, error) {
	f, err := Fold(e)
	if err != nil {
		return 0, err
	}
	v, ok := ir.ConstIndex(f)
	if !ok {
		return 0, fmt.Errorf("%s is not a constant integer", ir.Describe(e))
	}
	return v, nil
}
