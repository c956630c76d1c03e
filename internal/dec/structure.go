// Package dec lowers structured control flow (if/else, loops, break and
// continue) into basic-block form: blocks that contain only instructions,
// where only the last instruction may be a goto.
//
// The decomposer tries to preserve an existing schedule. Cycle numbers of
// instructions are shifted so that they stay relative to the start of the
// block they end up in. This is only exact when classical instructions take
// no time and use no scheduling resources.
package dec

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
)

// ErrLoopControl is returned for break or continue outside of a loop.
var ErrLoopControl = errors.New("loop control statement outside of a loop")

type decomposer struct {
	prog       *ir.Program
	blocks     []*ir.Block
	entryPoint *ir.Block

	breakTo    []*ir.Block
	continueTo []*ir.Block

	// remap maps the incoming top-level blocks to their replacements.
	remap     map[*ir.Block]*ir.Block
	usedNames map[string]bool
	nameStack []string

	cycleOffset   int
	previousCycle int
}

// Decompose returns a new program in basic-block form. The incoming program
// is not modified; instructions are copied.
func Decompose(prog *ir.Program) (*ir.Program, error) {
	d := &decomposer{
		prog:      prog,
		remap:     make(map[*ir.Block]*ir.Block),
		usedNames: make(map[string]bool),
	}
	for _, b := range prog.Blocks {
		if err := d.processBlock(b); err != nil {
			return nil, err
		}
	}
	for _, b := range d.blocks {
		b.Next = d.updateReference(b.Next)
		for _, s := range b.Statements {
			if gi, ok := s.(*ir.GotoInstruction); ok {
				gi.Target = d.updateReference(gi.Target)
			}
		}
	}
	out := *prog
	out.Blocks = d.blocks
	out.EntryPoint = d.entryPoint
	if err := CheckBasicBlockForm(&out); err != nil {
		return nil, errs.Internalf("structure decomposition produced invalid output: %v", err)
	}
	return &out, nil
}

func (d *decomposer) pushName(suffix string) {
	if len(d.nameStack) == 0 {
		d.nameStack = append(d.nameStack, suffix)
		return
	}
	d.nameStack = append(d.nameStack, d.nameStack[len(d.nameStack)-1]+"_"+suffix)
}

func (d *decomposer) popName() {
	d.nameStack = d.nameStack[:len(d.nameStack)-1]
}

func (d *decomposer) last() *ir.Block { return d.blocks[len(d.blocks)-1] }

// newBlock makes a block with a unique name derived from the current name
// prefix. With add set, the block is appended, the previous block falls
// through to it unless it already has a successor, and the cycle offset is
// reset.
func (d *decomposer) newBlock(add bool) *ir.Block {
	name := "unknown"
	if len(d.nameStack) > 0 {
		name = d.nameStack[len(d.nameStack)-1]
	}
	unique := name
	for i := 1; d.usedNames[unique]; i++ {
		unique = name + "_" + strconv.Itoa(i)
	}
	d.usedNames[unique] = true
	b := &ir.Block{Name: unique}
	if !add {
		return b
	}
	if len(d.blocks) > 0 && d.last().Next == nil {
		d.last().Next = b
	}
	d.cycleOffset = -d.previousCycle
	d.blocks = append(d.blocks, b)
	return b
}

// loopBody tracks one loop being lowered: the block after the loop, the
// loop condition block, and the body blocks in between.
type loopBody struct {
	d                    *decomposer
	cycleOffsetAfterLoop int
}

func (d *decomposer) beginLoop(suffix string) *loopBody {
	after := d.newBlock(false)
	lb := &loopBody{d: d, cycleOffsetAfterLoop: -d.previousCycle}
	d.pushName(suffix)
	cond := d.newBlock(false)
	d.newBlock(true)
	d.continueTo = append(d.continueTo, cond)
	d.breakTo = append(d.breakTo, after)
	return lb
}

// startCondition switches from the loop body to the condition block.
func (lb *loopBody) startCondition() {
	d := lb.d
	cond := d.continueTo[len(d.continueTo)-1]
	d.last().Next = cond
	d.blocks = append(d.blocks, cond)
	lb.cycleOffsetAfterLoop = -d.previousCycle
}

// end continues in the block after the loop.
func (lb *loopBody) end() {
	d := lb.d
	d.blocks = append(d.blocks, d.breakTo[len(d.breakTo)-1])
	d.cycleOffset = lb.cycleOffsetAfterLoop
	d.breakTo = d.breakTo[:len(d.breakTo)-1]
	d.continueTo = d.continueTo[:len(d.continueTo)-1]
	d.popName()
}

func (d *decomposer) processInstruction(insn ir.Statement) {
	if b := d.last(); len(b.Statements) > 0 {
		if _, isGoto := b.Statements[len(b.Statements)-1].(*ir.GotoInstruction); isGoto {
			d.newBlock(true)
		}
	}
	insn.SetCycle(insn.Cycle() + d.cycleOffset)
	d.last().Add(insn)
}

// processNewInstruction appends a synthesized instruction at the end of the
// current block.
func (d *decomposer) processNewInstruction(insn ir.Statement) {
	d.cycleOffset = ir.BlockDuration(&d.last().SubBlock)
	insn.SetCycle(0)
	_ = d.processStatement(insn)
}

func (d *decomposer) processSubBlock(sb *ir.SubBlock) error {
	d.cycleOffset = ir.BlockDuration(&d.last().SubBlock)
	if sb == nil {
		return nil
	}
	for _, s := range sb.Statements {
		if err := d.processStatement(s); err != nil {
			return err
		}
	}
	return nil
}

func (d *decomposer) processStatement(s ir.Statement) error {
	incomingCycle := s.Cycle()
	p := d.prog.Platform
	switch st := s.(type) {
	case *ir.CustomInstruction, *ir.SetInstruction, *ir.GotoInstruction, *ir.WaitInstruction:
		d.processInstruction(ir.CloneInstruction(st))

	case *ir.IfElse:
		d.pushName("if")
		gotos := make([]*ir.GotoInstruction, len(st.Branches))
		for i, br := range st.Branches {
			gotos[i] = ir.MakeGoto(nil, br.Condition)
			d.processNewInstruction(gotos[i])
		}
		if err := d.processSubBlock(st.Otherwise); err != nil {
			return err
		}
		bodies := []*ir.Block{d.last()}
		for i, br := range st.Branches {
			gotos[i].Target = d.newBlock(true)
			if err := d.processSubBlock(br.Body); err != nil {
				return err
			}
			bodies = append(bodies, d.last())
		}
		join := d.newBlock(true)
		for _, b := range bodies {
			b.Next = join
		}
		d.popName()

	case *ir.StaticLoop:
		d.processNewInstruction(ir.MakeSetInstruction(st.LHS.Clone(), st.From))
		before := d.last()
		lb := d.beginLoop("foreach")
		start := d.last()
		op := "operator-"
		if st.To.Value > st.From.Value {
			op = "operator+"
		}
		d.processNewInstruction(ir.MakeSetInstruction(
			st.LHS.Clone(),
			ir.MustFunctionCall(p, op, st.LHS, ir.MakeIntLit(1)),
		))
		before.Next = d.newBlock(true)
		if err := d.processSubBlock(st.Body); err != nil {
			return err
		}
		lb.startCondition()
		d.processNewInstruction(ir.MakeGoto(start, ir.MustFunctionCall(p, "operator!=", st.LHS.Clone(), st.To)))
		d.last().Next = d.breakTo[len(d.breakTo)-1]
		lb.end()

	case *ir.ForLoop:
		if st.Initialize != nil {
			d.processNewInstruction(ir.CloneInstruction(st.Initialize))
		}
		skip := ir.MakeGoto(nil, ir.MustFunctionCall(p, "operator!", st.Condition))
		d.processNewInstruction(skip)
		before := d.last()
		suffix := "for"
		if st.Initialize == nil && st.Update == nil {
			suffix = "while"
		}
		lb := d.beginLoop(suffix)
		start := d.last()
		skip.Target = d.breakTo[len(d.breakTo)-1]
		if st.Update != nil {
			d.processNewInstruction(ir.CloneInstruction(st.Update))
			d.newBlock(true)
		}
		before.Next = d.last()
		if err := d.processSubBlock(st.Body); err != nil {
			return err
		}
		lb.startCondition()
		d.processNewInstruction(ir.MakeGoto(start, st.Condition))
		d.last().Next = d.breakTo[len(d.breakTo)-1]
		lb.end()

	case *ir.RepeatUntilLoop:
		lb := d.beginLoop("repeat_until")
		start := d.last()
		if err := d.processSubBlock(st.Body); err != nil {
			return err
		}
		lb.startCondition()
		d.processNewInstruction(ir.MakeGoto(start, ir.MustFunctionCall(p, "operator!", st.Condition)))
		d.last().Next = d.breakTo[len(d.breakTo)-1]
		lb.end()

	case *ir.BreakStatement:
		if len(d.breakTo) == 0 {
			return fmt.Errorf("%w: %w: encountered break statement", errs.ErrUser, ErrLoopControl)
		}
		d.last().Next = d.breakTo[len(d.breakTo)-1]
		d.newBlock(true)

	case *ir.ContinueStatement:
		if len(d.continueTo) == 0 {
			return fmt.Errorf("%w: %w: encountered continue statement", errs.ErrUser, ErrLoopControl)
		}
		d.last().Next = d.continueTo[len(d.continueTo)-1]
		d.newBlock(true)

	default:
		errs.ICE("unexpected %s in structure decomposer", s.Kind())
	}
	d.previousCycle = incomingCycle
	return nil
}

func (d *decomposer) processBlock(b *ir.Block) error {
	errs.Assert(len(d.nameStack) == 0, "name stack empty between blocks")
	errs.Assert(len(d.breakTo) == 0 && len(d.continueTo) == 0, "loop stacks empty between blocks")
	d.nameStack = append(d.nameStack, b.Name)
	start := d.newBlock(true)
	d.remap[b] = start
	if d.prog.EntryPoint == b {
		d.entryPoint = start
	}
	if err := d.processSubBlock(&b.SubBlock); err != nil {
		return err
	}
	d.last().Next = b.Next
	d.nameStack = d.nameStack[:0]
	return nil
}

func (d *decomposer) updateReference(b *ir.Block) *ir.Block {
	if b == nil {
		return nil
	}
	if r, ok := d.remap[b]; ok {
		return r
	}
	return b
}

func basicBlockFormViolation(prog *ir.Program) string {
	for _, b := range prog.Blocks {
		for i, s := range b.Statements {
			if !ir.IsInstruction(s) {
				return fmt.Sprintf("in block %s: found non-instruction: %s", b.Name, ir.Describe(s))
			}
			if _, isGoto := s.(*ir.GotoInstruction); isGoto && i < len(b.Statements)-1 {
				return fmt.Sprintf("in block %s: found goto statement not at the end of the block: %s", b.Name, ir.Describe(s))
			}
		}
	}
	return ""
}

// IsInBasicBlockForm reports whether every block contains only instructions
// and at most a trailing goto.
func IsInBasicBlockForm(prog *ir.Program) bool {
	return basicBlockFormViolation(prog) == ""
}

// CheckBasicBlockForm returns a user error describing the first violation of
// basic-block form.
func CheckBasicBlockForm(prog *ir.Program) error {
	if v := basicBlockFormViolation(prog); v != "" {
		return errs.Userf("%s", v)
	}
	return nil
}
