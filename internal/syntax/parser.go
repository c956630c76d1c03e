package syntax

import (
	"fmt"
	"strconv"

	"github.com/gyaneshwarpardhi/qsched/internal/ir"
)

type parser struct {
	platform *ir.Platform
	src      string
	tokens   []token
	pos      int
}

func newParser(p *ir.Platform, src string) (*parser, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	return &parser{platform: p, src: src, tokens: tokens}, nil
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) consume() token {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &Error{Source: p.src, Pos: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) describe(t token) string {
	if t.kind == tokEOF {
		return "end of input"
	}
	return strconv.Quote(t.val)
}

func (p *parser) expect(kind tokenKind, val string) error {
	t := p.peek()
	if t.kind != kind || (val != "" && t.val != val) {
		return p.errorf(t, "expected %q but got %s", val, p.describe(t))
	}
	p.consume()
	return nil
}

func (p *parser) isOp(val string) bool {
	t := p.peek()
	return t.kind == tokOp && t.val == val
}

func (p *parser) isWord(val string) bool {
	t := p.peek()
	return t.kind == tokWord && t.val == val
}

func (p *parser) end() error {
	if t := p.peek(); t.kind != tokEOF {
		return p.errorf(t, "unexpected %s after end", p.describe(t))
	}
	return nil
}

// ParseExpression parses a classical expression.
func ParseExpression(p *ir.Platform, src string) (ir.Expression, error) {
	ps, err := newParser(p, src)
	if err != nil {
		return nil, err
	}
	e, err := ps.parseExpression()
	if err != nil {
		return nil, err
	}
	return e, ps.end()
}

// ParseCondition parses an expression that must have bit type.
func ParseCondition(p *ir.Platform, src string) (ir.Expression, error) {
	ps, err := newParser(p, src)
	if err != nil {
		return nil, err
	}
	start := ps.peek()
	e, err := ps.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := ps.end(); err != nil {
		return nil, err
	}
	if k := kindOf(e); k != ir.KindBit {
		return nil, ps.errorf(start, "condition must be a bit, got %s", k)
	}
	return e, nil
}

// ParseReference parses a reference to an object, e.g. "r[1]" or
// "bit(q[0])".
func ParseReference(p *ir.Platform, src string) (*ir.Reference, error) {
	ps, err := newParser(p, src)
	if err != nil {
		return nil, err
	}
	ref, err := ps.parseReference()
	if err != nil {
		return nil, err
	}
	return ref, ps.end()
}

// ParseStatement parses one instruction line. Recognized forms are
//
//	[cond (<expr>)] <instruction> [<operand>, ...]
//	[cond (<expr>)] set <reference> = <expr>
//	wait <cycles>[, <reference>, ...]
//	barrier [<reference>, ...]
//	break
//	continue
//
// A platform instruction named "barrier" takes precedence over the barrier
// keyword when no operands are given.
func ParseStatement(p *ir.Platform, src string) (ir.Statement, error) {
	ps, err := newParser(p, src)
	if err != nil {
		return nil, err
	}
	s, err := ps.parseStatement()
	if err != nil {
		return nil, err
	}
	return s, ps.end()
}

func (p *parser) parseStatement() (ir.Statement, error) {
	var cond ir.Expression
	if p.isWord("cond") {
		p.consume()
		if err := p.expect(tokLParen, "("); err != nil {
			return nil, err
		}
		start := p.peek()
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if k := kindOf(e); k != ir.KindBit {
			return nil, p.errorf(start, "condition must be a bit, got %s", k)
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		cond = e
	}

	t := p.peek()
	if t.kind != tokWord {
		return nil, p.errorf(t, "expected instruction, got %s", p.describe(t))
	}
	switch t.val {
	case "set":
		p.consume()
		return p.parseSet(cond)
	case "wait", "barrier", "break", "continue":
		if cond != nil {
			return nil, p.errorf(t, "%s cannot be conditional", t.val)
		}
	}
	switch t.val {
	case "wait":
		p.consume()
		return p.parseWait()
	case "barrier":
		if _, ok := p.platform.InstructionType("barrier"); !ok || p.tokens[p.pos+1].kind != tokEOF {
			p.consume()
			objs, err := p.parseReferenceList()
			if err != nil {
				return nil, err
			}
			return &ir.WaitInstruction{Objects: objs}, nil
		}
	case "break":
		p.consume()
		return &ir.BreakStatement{}, nil
	case "continue":
		p.consume()
		return &ir.ContinueStatement{}, nil
	}
	return p.parseCustom(cond)
}

func (p *parser) parseSet(cond ir.Expression) (ir.Statement, error) {
	start := p.peek()
	lhs, err := p.parseReference()
	if err != nil {
		return nil, err
	}
	if lhs.DataType.IsQubit() {
		return nil, p.errorf(start, "cannot assign to qubit %s", ir.Describe(lhs))
	}
	if err := p.expect(tokOp, "="); err != nil {
		return nil, err
	}
	rstart := p.peek()
	rhs, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if kindOf(rhs) != lhs.DataType.Kind {
		return nil, p.errorf(rstart, "cannot assign %s to %s of type %s", kindOf(rhs), ir.Describe(lhs), lhs.DataType.Kind)
	}
	return &ir.SetInstruction{Condition: cond, LHS: lhs, RHS: rhs}, nil
}

func (p *parser) parseWait() (ir.Statement, error) {
	t := p.peek()
	if t.kind != tokNumber {
		return nil, p.errorf(t, "expected wait duration, got %s", p.describe(t))
	}
	p.consume()
	n, err := strconv.Atoi(t.val)
	if err != nil {
		return nil, p.errorf(t, "invalid wait duration %q", t.val)
	}
	w := &ir.WaitInstruction{Duration: n}
	if p.peek().kind == tokComma {
		p.consume()
		if w.Objects, err = p.parseReferenceList(); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (p *parser) parseReferenceList() ([]*ir.Reference, error) {
	var refs []*ir.Reference
	if p.peek().kind == tokEOF {
		return nil, nil
	}
	for {
		ref, err := p.parseReference()
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
		if p.peek().kind != tokComma {
			return refs, nil
		}
		p.consume()
	}
}

func (p *parser) parseCustom(cond ir.Expression) (ir.Statement, error) {
	t := p.consume()
	it, ok := p.platform.InstructionType(t.val)
	if !ok {
		return nil, p.errorf(t, "unknown instruction %q", t.val)
	}
	ci := &ir.CustomInstruction{Condition: cond, Type: it}
	for p.peek().kind != tokEOF {
		if len(ci.Operands) > 0 {
			if err := p.expect(tokComma, ","); err != nil {
				return nil, err
			}
		}
		start := p.peek()
		op, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if i := len(ci.Operands); i < len(it.Operands) {
			if want := it.Operands[i].DataType.Kind; kindOf(op) != want {
				return nil, p.errorf(start, "operand %d of %s must be of type %s, got %s", i+1, it.Name, want, kindOf(op))
			}
		}
		ci.Operands = append(ci.Operands, op)
	}
	if len(ci.Operands) != len(it.Operands) {
		return nil, p.errorf(t, "instruction %s takes %d operands, got %d", it.Name, len(it.Operands), len(ci.Operands))
	}
	return ci, nil
}

// binaryLevels lists binary operators from loosest to tightest binding.
var binaryLevels = [][]string{
	{"||"},
	{"^^"},
	{"&&"},
	{"==", "!="},
	{"<", ">", "<=", ">="},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *parser) parseExpression() (ir.Expression, error) {
	return p.parseBinary(0)
}

func (p *parser) parseBinary(level int) (ir.Expression, error) {
	if level == len(binaryLevels) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || !contains(binaryLevels[level], t.val) {
			return left, nil
		}
		p.consume()
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		if left, err = p.call(t, "operator"+t.val, left, right); err != nil {
			return nil, err
		}
	}
}

func contains(ops []string, op string) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

func (p *parser) parseUnary() (ir.Expression, error) {
	t := p.peek()
	switch {
	case p.isOp("!"):
		p.consume()
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return p.call(t, "operator!", e)
	case p.isOp("-"):
		p.consume()
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if lit, ok := e.(*ir.IntLiteral); ok {
			return ir.MakeIntLit(-lit.Value), nil
		}
		return p.call(t, "operator-u", e)
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (ir.Expression, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.consume()
		n, err := strconv.ParseInt(t.val, 10, 64)
		if err != nil {
			return nil, p.errorf(t, "invalid integer %q", t.val)
		}
		return ir.MakeIntLit(n), nil
	case tokBool:
		p.consume()
		return ir.MakeBitLit(t.val == "true"), nil
	case tokLParen:
		p.consume()
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return e, nil
	case tokWord:
		return p.parseReference()
	}
	return nil, p.errorf(t, "expected expression, got %s", p.describe(t))
}

// parseReference parses name[indices] or bit(qubit reference).
func (p *parser) parseReference() (*ir.Reference, error) {
	t := p.peek()
	if t.kind != tokWord {
		return nil, p.errorf(t, "expected reference, got %s", p.describe(t))
	}
	if t.val == "bit" && p.tokens[p.pos+1].kind == tokLParen {
		p.consume()
		p.consume()
		inner, err := p.parseReference()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		if !inner.DataType.IsQubit() {
			return nil, p.errorf(t, "implicit bit of non-qubit %s", ir.Describe(inner))
		}
		inner.DataType = p.platform.ImplicitBitType
		return inner, nil
	}
	p.consume()
	obj, ok := p.platform.Object(t.val)
	if !ok {
		return nil, p.errorf(t, "unknown object %q", t.val)
	}
	ref := &ir.Reference{Target: obj, DataType: obj.Type}
	if p.peek().kind != tokLBracket {
		return ref, nil
	}
	p.consume()
	for {
		start := p.peek()
		idx, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if kindOf(idx) != ir.KindInt {
			return nil, p.errorf(start, "index must be an int, got %s", kindOf(idx))
		}
		if idx, err = Fold(idx); err != nil {
			return nil, p.errorf(start, "%v", err)
		}
		dim := len(ref.Indices)
		if dim >= len(obj.Shape) {
			return nil, p.errorf(start, "too many indices for %s", obj.Name)
		}
		if v, ok := ir.ConstIndex(idx); ok && (v < 0 || v >= int64(obj.Shape[dim])) {
			return nil, p.errorf(start, "index %d out of range for %s of size %d", v, obj.Name, obj.Shape[dim])
		}
		ref.Indices = append(ref.Indices, idx)
		if p.peek().kind != tokComma {
			break
		}
		p.consume()
	}
	if err := p.expect(tokRBracket, "]"); err != nil {
		return nil, err
	}
	return ref, nil
}

// call builds an operator application and checks its operand types.
func (p *parser) call(at token, name string, operands ...ir.Expression) (ir.Expression, error) {
	fc, err := ir.MakeFunctionCall(p.platform, name, operands...)
	if err != nil {
		return nil, p.errorf(at, "%v", err)
	}
	for i, op := range operands {
		if want, got := fc.Function.Operands[i].DataType.Kind, kindOf(op); want != got {
			return nil, p.errorf(at, "%s expects %s operands, got %s", name, want, got)
		}
	}
	return fc, nil
}
