package frontend

import (
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/qsched/internal/config"
	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
	"github.com/gyaneshwarpardhi/qsched/internal/syntax"
)

type builder struct {
	p    *ir.Platform
	prog *ir.Program
}

// Build lowers a program definition into an IR program for plat. The
// program gets its own copy of the platform, so its variables do not leak
// into other programs compiled against plat. Blocks fall through to the
// next block in the list unless they name a successor; the first block is
// the entry point.
func Build(plat *Platform, def *config.ProgramDef) (*ir.Program, error) {
	if len(def.Blocks) == 0 {
		return nil, errs.Userf("program %s has no blocks", def.Name)
	}
	b := &builder{p: plat.IR.Clone()}
	b.prog = &ir.Program{Name: def.Name, Platform: b.p}

	for _, v := range def.Variables {
		if err := b.declare(v); err != nil {
			return nil, err
		}
	}

	byName := make(map[string]*ir.Block, len(def.Blocks))
	for _, bd := range def.Blocks {
		if _, dup := byName[bd.Name]; dup {
			return nil, errs.Userf("duplicate block %q", bd.Name)
		}
		blk := &ir.Block{Name: bd.Name}
		byName[bd.Name] = blk
		b.prog.Blocks = append(b.prog.Blocks, blk)
	}
	b.prog.EntryPoint = b.prog.Blocks[0]

	for i, bd := range def.Blocks {
		blk := b.prog.Blocks[i]
		switch {
		case bd.Next != "":
			next, ok := byName[bd.Next]
			if !ok {
				return nil, errs.Userf("block %s: next block %q does not exist", bd.Name, bd.Next)
			}
			blk.Next = next
		case i+1 < len(b.prog.Blocks):
			blk.Next = b.prog.Blocks[i+1]
		}
		if err := b.statements(&blk.SubBlock, bd.Statements); err != nil {
			return nil, fmt.Errorf("block %s: %w", bd.Name, err)
		}
	}
	return b.prog, nil
}

func (b *builder) declare(r config.RegisterDef) error {
	obj, err := newObject(b.p, r)
	if err != nil {
		return err
	}
	if err := b.p.AddObject(obj); err != nil {
		return errs.Userf("program %s: %v", b.prog.Name, err)
	}
	b.prog.Variables = append(b.prog.Variables, obj)
	return nil
}

func (b *builder) statements(sb *ir.SubBlock, defs []config.StatementDef) error {
	for i := range defs {
		s, err := b.statement(&defs[i])
		if err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
		sb.Add(s)
	}
	return nil
}

func (b *builder) body(defs []config.StatementDef, loc string) (*ir.SubBlock, error) {
	sb := &ir.SubBlock{}
	if err := b.statements(sb, defs); err != nil {
		return nil, fmt.Errorf("%s: %w", loc, err)
	}
	return sb, nil
}

func (b *builder) statement(d *config.StatementDef) (ir.Statement, error) {
	switch form := d.Form(); form {
	case "instruction":
		return syntax.ParseStatement(b.p, d.Line)

	case "if":
		st := &ir.IfElse{}
		if err := b.branch(st, *d.If, d.Then, "then"); err != nil {
			return nil, err
		}
		for j, br := range d.Elif {
			if err := b.branch(st, br.Cond, br.Then, fmt.Sprintf("elif %d", j+1)); err != nil {
				return nil, err
			}
		}
		if d.Else != nil {
			body, err := b.body(d.Else, "else")
			if err != nil {
				return nil, err
			}
			st.Otherwise = body
		}
		return st, nil

	case "foreach":
		lhs, err := b.loopVariable(d.Foreach.Var)
		if err != nil {
			return nil, err
		}
		body, err := b.body(d.Body, "body")
		if err != nil {
			return nil, err
		}
		return &ir.StaticLoop{
			Body: body,
			LHS:  lhs,
			From: ir.MakeIntLit(d.Foreach.From),
			To:   ir.MakeIntLit(d.Foreach.To),
		}, nil

	case "for":
		st := &ir.ForLoop{}
		var err error
		if st.Initialize, err = b.assignment(d.For.Init); err != nil {
			return nil, err
		}
		if st.Condition, err = syntax.ParseCondition(b.p, d.For.Cond); err != nil {
			return nil, err
		}
		if st.Update, err = b.assignment(d.For.Update); err != nil {
			return nil, err
		}
		if st.Body, err = b.body(d.Body, "body"); err != nil {
			return nil, err
		}
		return st, nil

	case "while":
		cond, err := syntax.ParseCondition(b.p, *d.While)
		if err != nil {
			return nil, err
		}
		body, err := b.body(d.Body, "body")
		if err != nil {
			return nil, err
		}
		return &ir.ForLoop{Body: body, Condition: cond}, nil

	case "repeat":
		if d.Until == nil {
			return nil, errs.Userf("repeat needs an until condition")
		}
		body, err := b.body(d.Repeat, "repeat")
		if err != nil {
			return nil, err
		}
		cond, err := syntax.ParseCondition(b.p, *d.Until)
		if err != nil {
			return nil, err
		}
		return &ir.RepeatUntilLoop{Body: body, Condition: cond}, nil

	case "":
		return nil, errs.Userf("empty statement")
	default:
		return nil, errs.Userf("statement mixes %s", form)
	}
}

func (b *builder) branch(st *ir.IfElse, cond string, then []config.StatementDef, loc string) error {
	c, err := syntax.ParseCondition(b.p, cond)
	if err != nil {
		return err
	}
	body, err := b.body(then, loc)
	if err != nil {
		return err
	}
	st.Branches = append(st.Branches, &ir.IfElseBranch{Condition: c, Body: body})
	return nil
}

// loopVariable resolves a foreach variable, a scalar name or a register
// element. Unknown plain names are declared as program-local int scalars.
func (b *builder) loopVariable(name string) (*ir.Reference, error) {
	if _, ok := b.p.Object(name); !ok && !strings.ContainsAny(name, "[(") {
		if err := b.declare(config.RegisterDef{Name: name, Type: "int"}); err != nil {
			return nil, err
		}
	}
	ref, err := syntax.ParseReference(b.p, name)
	if err != nil {
		return nil, err
	}
	if ref.DataType.Kind != ir.KindInt || len(ref.Target.Shape) != len(ref.Indices) {
		return nil, errs.Userf("loop variable %s must be an int scalar or register element", name)
	}
	return ref, nil
}

// assignment parses a for-loop init or update clause. The "set" keyword is
// optional for unconditional clauses; an empty clause yields nil.
func (b *builder) assignment(src string) (*ir.SetInstruction, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, nil
	}
	if !strings.HasPrefix(src, "set ") && !strings.HasPrefix(src, "cond") {
		src = "set " + src
	}
	s, err := syntax.ParseStatement(b.p, src)
	if err != nil {
		return nil, err
	}
	set, ok := s.(*ir.SetInstruction)
	if !ok || set.Condition != nil {
		return nil, errs.Userf("%q must be an unconditional assignment", src)
	}
	return set, nil
}
