// Package structure is the "dec.structure" pass: it lowers structured
// control flow into basic-block form.
package structure

import (
	"context"
	"fmt"

	"github.com/gyaneshwarpardhi/qsched/internal/dec"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
	"github.com/gyaneshwarpardhi/qsched/internal/pass"
)

// Type is the registry key of the pass.
const Type = "dec.structure"

// Decompose is the structure decomposition pass.
type Decompose struct{}

func New() *Decompose { return &Decompose{} }

func (d *Decompose) Type() string { return Type }

func (d *Decompose) Validate(params map[string]any) error {
	if len(params) > 0 {
		return fmt.Errorf("%s takes no parameters", Type)
	}
	return nil
}

func (d *Decompose) Run(_ context.Context, prog *ir.Program, _ map[string]any, pc *pass.Context) (*ir.Program, *pass.Result, error) {
	out, err := dec.Decompose(prog)
	if err != nil {
		return nil, nil, err
	}
	if pc.Logger != nil {
		pc.Logger.Debug("decomposed program", "program", prog.Name, "blocks_in", len(prog.Blocks), "blocks_out", len(out.Blocks))
	}
	return out, &pass.Result{
		Message: fmt.Sprintf("decomposed %d blocks into %d basic blocks", len(prog.Blocks), len(out.Blocks)),
	}, nil
}
