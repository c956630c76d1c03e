package config

import (
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/qsched/internal/ir"
	"github.com/gyaneshwarpardhi/qsched/internal/sched"
)

var dataTypes = map[string]bool{"qubit": true, "bit": true, "int": true}

// Validate checks the platform config for:
//   - Required fields and positive sizes
//   - Duplicate register, instruction and instrument names
//   - Unknown operand modes and types
//   - Instrument qubits outside the qubit register
//   - Unknown scheduler settings and pass types
//
// knownPass reports whether a pass type exists; nil skips that check.
func Validate(cfg *PlatformConfig, knownPass func(string) bool) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string
	add := func(format string, args ...any) { errs = append(errs, fmt.Sprintf(format, args...)) }

	if cfg.Name == "" {
		add("name is required")
	}
	if cfg.Qubits <= 0 {
		add("qubits must be positive, got %d", cfg.Qubits)
	}
	if cfg.CycleTime <= 0 {
		add("cycle_time must be positive, got %d", cfg.CycleTime)
	}

	objects := map[string]bool{"q": true}
	validateRegisters(cfg.Registers, "registers", objects, add)

	names := make(map[string]bool)
	for i, in := range cfg.Instructions {
		loc := fmt.Sprintf("instructions[%d]", i)
		if in.Name == "" {
			add("%s: name is required", loc)
			continue
		}
		loc = fmt.Sprintf("instruction %s", in.Name)
		if names[in.Name] {
			add("duplicate instruction %q", in.Name)
		}
		names[in.Name] = true
		if in.Duration < 0 {
			add("%s: duration must not be negative", loc)
		}
		for j, op := range in.Operands {
			if _, err := ir.ParseOperandMode(op.Mode); err != nil {
				add("%s: operand %d: %v", loc, j, err)
			}
			if !dataTypes[op.Type] {
				add("%s: operand %d: unknown type %q", loc, j, op.Type)
			}
		}
	}

	instruments := make(map[string]bool)
	for i, inst := range cfg.Resources.Instruments {
		if inst.Name == "" {
			add("resources.instruments[%d]: name is required", i)
			continue
		}
		if instruments[inst.Name] {
			add("duplicate instrument %q", inst.Name)
		}
		instruments[inst.Name] = true
		if inst.Kind == "" {
			add("instrument %s: kind is required", inst.Name)
		}
		for _, q := range inst.Qubits {
			if q < 0 || q >= cfg.Qubits {
				add("instrument %s: qubit %d out of range", inst.Name, q)
			}
		}
	}

	s := cfg.Scheduler
	if _, err := sched.ParseTarget(s.Target); err != nil {
		add("scheduler: %v", err)
	}
	if _, err := sched.ParseHeuristic(s.Heuristic); err != nil {
		add("scheduler: %v", err)
	}
	if s.MaxResourceBlockCycles != nil && *s.MaxResourceBlockCycles < 0 {
		add("scheduler: max_resource_block_cycles must not be negative")
	}

	passNames := make(map[string]bool)
	for i, p := range cfg.Passes {
		if p.Type == "" {
			add("passes[%d]: type is required", i)
			continue
		}
		if knownPass != nil && !knownPass(p.Type) {
			add("passes[%d]: unknown pass type %q", i, p.Type)
		}
		if p.Name != "" {
			if passNames[p.Name] {
				add("duplicate pass name %q", p.Name)
			}
			passNames[p.Name] = true
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateRegisters(regs []RegisterDef, where string, objects map[string]bool, add func(string, ...any)) {
	for i, r := range regs {
		if r.Name == "" {
			add("%s[%d]: name is required", where, i)
			continue
		}
		if objects[r.Name] {
			add("duplicate object %q", r.Name)
		}
		objects[r.Name] = true
		if r.Type != "int" && r.Type != "bit" {
			add("register %s: type must be int or bit, got %q", r.Name, r.Type)
		}
		if r.Size < 0 {
			add("register %s: size must not be negative", r.Name)
		}
	}
}

// ValidateProgram checks the structure of a program definition. Statement
// text is checked when the program is built against a platform.
func ValidateProgram(def *ProgramDef) error {
	var errs []string
	add := func(format string, args ...any) { errs = append(errs, fmt.Sprintf(format, args...)) }

	if def.Name == "" {
		add("program name is required")
	}
	if len(def.Blocks) == 0 {
		add("program must have at least one block")
	}
	validateRegisters(def.Variables, "variables", map[string]bool{"q": true}, add)

	blocks := make(map[string]bool)
	for i, b := range def.Blocks {
		if b.Name == "" {
			add("blocks[%d]: name is required", i)
			continue
		}
		if blocks[b.Name] {
			add("duplicate block %q", b.Name)
		}
		blocks[b.Name] = true
	}
	for _, b := range def.Blocks {
		if b.Next != "" && !blocks[b.Next] {
			add("block %s: next block %q does not exist", b.Name, b.Next)
		}
		validateStatements(b.Statements, "block "+b.Name, add)
	}

	if len(errs) > 0 {
		return fmt.Errorf("program validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateStatements(stmts []StatementDef, parent string, add func(string, ...any)) {
	for i := range stmts {
		s := &stmts[i]
		loc := fmt.Sprintf("%s.statements[%d]", parent, i)
		form := s.Form()
		switch form {
		case "":
			add("%s: empty statement", loc)
			continue
		case "instruction":
		case "if":
			if strings.TrimSpace(*s.If) == "" {
				add("%s: if condition is required", loc)
			}
			for j, br := range s.Elif {
				if strings.TrimSpace(br.Cond) == "" {
					add("%s.elif[%d]: cond is required", loc, j)
				}
				validateStatements(br.Then, fmt.Sprintf("%s.elif[%d]", loc, j), add)
			}
			validateStatements(s.Then, loc+".then", add)
			validateStatements(s.Else, loc+".else", add)
		case "foreach":
			if s.Foreach.Var == "" {
				add("%s: foreach var is required", loc)
			}
		case "for":
			if s.For.Cond == "" {
				add("%s: for cond is required", loc)
			}
		case "while":
			if strings.TrimSpace(*s.While) == "" {
				add("%s: while condition is required", loc)
			}
		case "repeat":
			if s.Until == nil || strings.TrimSpace(*s.Until) == "" {
				add("%s: repeat needs an until condition", loc)
			}
			validateStatements(s.Repeat, loc+".repeat", add)
		default:
			add("%s: statement mixes %s", loc, form)
			continue
		}
		if form != "if" && (s.Then != nil || s.Elif != nil || s.Else != nil) {
			add("%s: then/elif/else only belong to if", loc)
		}
		loop := form == "foreach" || form == "for" || form == "while"
		if loop {
			validateStatements(s.Body, loc+".body", add)
		} else if s.Body != nil {
			add("%s: body only belongs to foreach, for and while", loc)
		}
	}
}
