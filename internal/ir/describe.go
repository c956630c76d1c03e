package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Describe renders a statement or expression on a single line.
func Describe(node any) string {
	var sb strings.Builder
	switch n := node.(type) {
	case Statement:
		describeStatement(&sb, n)
	case Expression:
		describeExpression(&sb, n)
	case *Block:
		sb.WriteString(n.Name)
	case nil:
		sb.WriteString("<nil>")
	default:
		fmt.Fprintf(&sb, "%v", n)
	}
	return sb.String()
}

func describeCondition(sb *strings.Builder, cond Expression) {
	if cond == nil {
		return
	}
	if b, ok := cond.(*BitLiteral); ok && b.Value {
		return
	}
	sb.WriteString("cond (")
	describeExpression(sb, cond)
	sb.WriteString(") ")
}

func describeList[T Expression](sb *strings.Builder, exprs []T) {
	for i, e := range exprs {
		if i > 0 {
			sb.WriteString(", ")
		}
		describeExpression(sb, e)
	}
}

func describeBody(sb *strings.Builder, body *SubBlock) {
	if body == nil || len(body.Statements) == 0 {
		sb.WriteString("{}")
		return
	}
	sb.WriteString("{ ")
	for i, s := range body.Statements {
		if i > 0 {
			sb.WriteString("; ")
		}
		describeStatement(sb, s)
	}
	sb.WriteString(" }")
}

func describeStatement(sb *strings.Builder, s Statement) {
	switch st := s.(type) {
	case *CustomInstruction:
		describeCondition(sb, st.Condition)
		sb.WriteString(st.Type.Name)
		if len(st.Operands) > 0 {
			sb.WriteByte(' ')
			describeList(sb, st.Operands)
		}
	case *SetInstruction:
		describeCondition(sb, st.Condition)
		sb.WriteString("set ")
		describeExpression(sb, st.LHS)
		sb.WriteString(" = ")
		describeExpression(sb, st.RHS)
	case *GotoInstruction:
		describeCondition(sb, st.Condition)
		sb.WriteString("goto ")
		if st.Target != nil {
			sb.WriteString(st.Target.Name)
		} else {
			sb.WriteString("<nil>")
		}
	case *WaitInstruction:
		if st.Duration == 0 && len(st.Objects) > 0 {
			sb.WriteString("barrier ")
			describeList(sb, st.Objects)
			return
		}
		sb.WriteString("wait ")
		sb.WriteString(strconv.Itoa(st.Duration))
		if len(st.Objects) > 0 {
			sb.WriteString(", ")
			describeList(sb, st.Objects)
		}
	case *IfElse:
		for i, br := range st.Branches {
			if i > 0 {
				sb.WriteString(" else ")
			}
			sb.WriteString("if (")
			describeExpression(sb, br.Condition)
			sb.WriteString(") ")
			describeBody(sb, br.Body)
		}
		if st.Otherwise != nil {
			sb.WriteString(" else ")
			describeBody(sb, st.Otherwise)
		}
	case *StaticLoop:
		sb.WriteString("for (")
		describeExpression(sb, st.LHS)
		fmt.Fprintf(sb, " = %d .. %d) ", st.From.Value, st.To.Value)
		describeBody(sb, st.Body)
	case *ForLoop:
		if st.Initialize == nil && st.Update == nil {
			sb.WriteString("while (")
			describeExpression(sb, st.Condition)
			sb.WriteString(") ")
		} else {
			sb.WriteString("for (")
			if st.Initialize != nil {
				describeStatement(sb, st.Initialize)
			}
			sb.WriteString("; ")
			describeExpression(sb, st.Condition)
			sb.WriteString("; ")
			if st.Update != nil {
				describeStatement(sb, st.Update)
			}
			sb.WriteString(") ")
		}
		describeBody(sb, st.Body)
	case *RepeatUntilLoop:
		sb.WriteString("repeat ")
		describeBody(sb, st.Body)
		sb.WriteString(" until (")
		describeExpression(sb, st.Condition)
		sb.WriteString(")")
	case *BreakStatement:
		sb.WriteString("break")
	case *ContinueStatement:
		sb.WriteString("continue")
	case *SentinelStatement:
		sb.WriteString("<")
		sb.WriteString(st.Name)
		sb.WriteString(">")
	default:
		fmt.Fprintf(sb, "<unknown statement %T>", s)
	}
}

func describeExpression(sb *strings.Builder, e Expression) {
	switch ex := e.(type) {
	case *Reference:
		implicit := ex.Target != nil && ex.DataType != ex.Target.Type
		if implicit {
			sb.WriteString(ex.DataType.Name)
			sb.WriteByte('(')
		}
		if ex.Target == nil {
			sb.WriteString("<global>")
		} else {
			sb.WriteString(ex.Target.Name)
		}
		if len(ex.Indices) > 0 {
			sb.WriteByte('[')
			describeList(sb, ex.Indices)
			sb.WriteByte(']')
		}
		if implicit {
			sb.WriteByte(')')
		}
	case *IntLiteral:
		sb.WriteString(strconv.FormatInt(ex.Value, 10))
	case *BitLiteral:
		sb.WriteString(strconv.FormatBool(ex.Value))
	case *FunctionCall:
		name := ex.Function.Name
		op, isOp := strings.CutPrefix(name, "operator")
		switch {
		case isOp && len(ex.Operands) == 1:
			op = strings.TrimSuffix(op, "u")
			sb.WriteString(op)
			describeOperand(sb, ex.Operands[0])
		case isOp && len(ex.Operands) == 2:
			describeOperand(sb, ex.Operands[0])
			sb.WriteString(" " + op + " ")
			describeOperand(sb, ex.Operands[1])
		default:
			sb.WriteString(name)
			sb.WriteByte('(')
			describeList(sb, ex.Operands)
			sb.WriteByte(')')
		}
	case nil:
		sb.WriteString("<nil>")
	default:
		fmt.Fprintf(sb, "<unknown expression %T>", e)
	}
}

// describeOperand parenthesizes nested operator applications.
func describeOperand(sb *strings.Builder, e Expression) {
	if fc, ok := e.(*FunctionCall); ok && strings.HasPrefix(fc.Function.Name, "operator") {
		sb.WriteByte('(')
		describeExpression(sb, e)
		sb.WriteByte(')')
		return
	}
	describeExpression(sb, e)
}
