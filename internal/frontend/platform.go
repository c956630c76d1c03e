// Package frontend lowers validated platform and program definitions into
// the IR the compiler passes work on.
package frontend

import (
	"fmt"

	"github.com/gyaneshwarpardhi/qsched/internal/config"
	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
	"github.com/gyaneshwarpardhi/qsched/internal/rmgr"
)

// Platform is a loaded platform: its configuration, the IR platform built
// from it and the resource manager for its resources section.
type Platform struct {
	Config    *config.PlatformConfig
	IR        *ir.Platform
	Resources *rmgr.Manager
}

// NewPlatform builds the IR platform and resource manager for cfg. The
// config must have passed config.Validate.
func NewPlatform(cfg *config.PlatformConfig) (*Platform, error) {
	p := ir.NewPlatform(cfg.Name, cfg.CycleTime, cfg.Qubits)

	for _, r := range cfg.Registers {
		obj, err := newObject(p, r)
		if err != nil {
			return nil, err
		}
		if err := p.AddObject(obj); err != nil {
			return nil, errs.Userf("platform %s: %v", cfg.Name, err)
		}
	}

	for _, in := range cfg.Instructions {
		it := &ir.InstructionType{
			Name:     in.Name,
			Duration: p.DurationToCycles(in.Duration),
			Kind:     in.Kind,
			Barrier:  in.Barrier,
		}
		for i, od := range in.Operands {
			op, err := operandType(p, od)
			if err != nil {
				return nil, errs.Userf("instruction %s: operand %d: %v", in.Name, i, err)
			}
			it.Operands = append(it.Operands, op)
		}
		if err := p.AddInstructionType(it); err != nil {
			return nil, errs.Userf("platform %s: %v", cfg.Name, err)
		}
	}

	rc := rmgr.Config{Qubits: cfg.Resources.Qubits}
	for _, inst := range cfg.Resources.Instruments {
		rc.Instruments = append(rc.Instruments, rmgr.Instrument{Name: inst.Name, Kind: inst.Kind, Qubits: inst.Qubits})
	}
	mgr, err := rmgr.NewManager(p, rc)
	if err != nil {
		return nil, err
	}
	return &Platform{Config: cfg, IR: p, Resources: mgr}, nil
}

func dataType(p *ir.Platform, name string) (*ir.DataType, error) {
	switch name {
	case "qubit":
		return p.QubitType, nil
	case "bit":
		return p.BitType, nil
	case "int":
		return p.IntType, nil
	}
	return nil, fmt.Errorf("unknown data type %q", name)
}

func operandType(p *ir.Platform, od config.OperandDef) (ir.OperandType, error) {
	mode, err := ir.ParseOperandMode(od.Mode)
	if err != nil {
		return ir.OperandType{}, err
	}
	dt, err := dataType(p, od.Type)
	if err != nil {
		return ir.OperandType{}, err
	}
	return ir.OperandType{Mode: mode, DataType: dt}, nil
}

func newObject(p *ir.Platform, r config.RegisterDef) (*ir.Object, error) {
	dt, err := dataType(p, r.Type)
	if err != nil || dt.IsQubit() {
		return nil, errs.Userf("object %s: type must be int or bit, got %q", r.Name, r.Type)
	}
	obj := &ir.Object{Name: r.Name, Type: dt}
	if r.Size > 0 {
		obj.Shape = []int{r.Size}
	}
	return obj, nil
}
