package ddg

import (
	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
)

// EventGatherer collects the deduplicated object accesses of statements and
// expressions. Events are kept in the order their reference was first seen.
type EventGatherer struct {
	platform *ir.Platform

	// DisableSingleQubitCommutation treats COMMUTE_* operands of instructions
	// with exactly one qubit operand as updates.
	DisableSingleQubitCommutation bool
	// DisableMultiQubitCommutation does the same for instructions with more
	// than one qubit operand.
	DisableMultiQubitCommutation bool

	events []Event
	index  map[refKey]int
}

// NewEventGatherer returns an empty gatherer for statements of the given
// platform.
func NewEventGatherer(p *ir.Platform) *EventGatherer {
	return &EventGatherer{platform: p, index: make(map[refKey]int)}
}

// Events returns the gathered events.
func (g *EventGatherer) Events() []Event { return g.events }

// Reset clears the gathered events so the gatherer can be reused.
func (g *EventGatherer) Reset() {
	g.events = g.events[:0]
	clear(g.index)
}

// AddReference records an access of ref in the given operand mode. A nil ref
// is the global state. Accesses of an already-seen reference are combined.
func (g *EventGatherer) AddReference(mode ir.OperandMode, ref *ir.Reference) {
	switch mode {
	case ir.ModeBarrier, ir.ModeWrite, ir.ModeUpdate:
		mode = ir.ModeWrite
	case ir.ModeRead, ir.ModeLiteral:
		mode = ir.ModeRead
	case ir.ModeCommuteX, ir.ModeCommuteY, ir.ModeCommuteZ:
	case ir.ModeMeasure:
		errs.Assert(ref != nil && ref.DataType.IsQubit(), "measure operand must be a qubit")
		bit := ref.Clone()
		bit.DataType = g.platform.ImplicitBitType
		g.AddReference(ir.ModeWrite, bit)
		mode = ir.ModeWrite
	case ir.ModeIgnore:
		return
	default:
		errs.ICE("unknown operand mode %d", int(mode))
	}
	amode := accessModeOf(mode)
	sref := NewReference(ref)
	k := sref.key()
	if i, ok := g.index[k]; ok {
		g.events[i].Mode = g.events[i].Mode.CombineWith(amode)
		return
	}
	g.index[k] = len(g.events)
	g.events = append(g.events, Event{Reference: sref, Mode: amode})
}

// AddExpression records the accesses of a complete expression. Function
// calls recurse into their operands using the function's prototype.
func (g *EventGatherer) AddExpression(mode ir.OperandMode, expr ir.Expression) {
	switch e := expr.(type) {
	case *ir.Reference:
		g.AddReference(mode, e)
	case *ir.FunctionCall:
		g.AddOperands(e.Function.Operands, e.Operands)
	case *ir.IntLiteral, *ir.BitLiteral, nil:
	default:
		errs.ICE("unhandled expression %T", expr)
	}
}

// AddOperands records the accesses of operands against a prototype.
func (g *EventGatherer) AddOperands(prototype []ir.OperandType, operands []ir.Expression) {
	errs.Assert(len(prototype) == len(operands), "operand count matches prototype")
	numQubits := 0
	for _, ot := range prototype {
		if ot.DataType.IsQubit() {
			numQubits++
		}
	}
	disable := (numQubits == 1 && g.DisableSingleQubitCommutation) ||
		(numQubits > 1 && g.DisableMultiQubitCommutation)
	for i, ot := range prototype {
		mode := ot.Mode
		if disable {
			switch mode {
			case ir.ModeCommuteX, ir.ModeCommuteY, ir.ModeCommuteZ:
				mode = ir.ModeUpdate
			}
		}
		g.AddExpression(mode, operands[i])
	}
}

// AddStatement records the accesses of a statement, recursing into the
// bodies of structured statements.
func (g *EventGatherer) AddStatement(s ir.Statement) {
	barrier := false
	switch st := s.(type) {
	case *ir.CustomInstruction:
		g.AddExpression(ir.ModeRead, st.Condition)
		g.AddOperands(st.Type.Operands, st.Operands)
		barrier = st.Type.Barrier
	case *ir.SetInstruction:
		g.AddExpression(ir.ModeRead, st.Condition)
		g.AddExpression(ir.ModeWrite, st.LHS)
		g.AddExpression(ir.ModeRead, st.RHS)
	case *ir.GotoInstruction:
		g.AddExpression(ir.ModeRead, st.Condition)
		barrier = true
	case *ir.WaitInstruction:
		if len(st.Objects) == 0 {
			barrier = true
		}
		for _, ref := range st.Objects {
			g.AddExpression(ir.ModeBarrier, ref)
		}
	case *ir.IfElse:
		for _, br := range st.Branches {
			g.AddExpression(ir.ModeRead, br.Condition)
			g.AddBlock(br.Body)
		}
		if st.Otherwise != nil {
			g.AddBlock(st.Otherwise)
		}
	case *ir.StaticLoop:
		g.AddBlock(st.Body)
		g.AddExpression(ir.ModeWrite, st.LHS)
	case *ir.ForLoop:
		g.AddBlock(st.Body)
		g.AddExpression(ir.ModeRead, st.Condition)
		if st.Initialize != nil {
			g.AddStatement(st.Initialize)
		}
		if st.Update != nil {
			g.AddStatement(st.Update)
		}
	case *ir.RepeatUntilLoop:
		g.AddBlock(st.Body)
		g.AddExpression(ir.ModeRead, st.Condition)
	case *ir.BreakStatement, *ir.ContinueStatement, *ir.SentinelStatement:
		barrier = true
	default:
		errs.ICE("unhandled statement kind %T", s)
	}

	// Barrier-like statements operate on everything, including state we
	// don't know about.
	if barrier {
		g.AddReference(ir.ModeBarrier, nil)
	}
}

// AddBlock records the accesses of every statement in sb.
func (g *EventGatherer) AddBlock(sb *ir.SubBlock) {
	if sb == nil {
		return
	}
	for _, s := range sb.Statements {
		g.AddStatement(s)
	}
}
