package rmgr

import (
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
)

// Instrument describes a control instrument shared by a group of qubits for
// one instruction kind.
type Instrument struct {
	Name   string
	Kind   string
	Qubits []int
}

// Config selects the resources a Manager builds.
type Config struct {
	// Qubits enables the one-instruction-per-qubit resource.
	Qubits      bool
	Instruments []Instrument
}

// Manager is the resource Oracle of a platform.
type Manager struct {
	numQubits int
	cfg       Config
}

// NewManager validates cfg against the platform.
func NewManager(p *ir.Platform, cfg Config) (*Manager, error) {
	n := p.NumQubits()
	var problems []string
	seen := make(map[string]bool)
	for i, inst := range cfg.Instruments {
		if inst.Name == "" {
			problems = append(problems, fmt.Sprintf("instrument %d has no name", i))
		} else if seen[inst.Name] {
			problems = append(problems, fmt.Sprintf("duplicate instrument %q", inst.Name))
		}
		seen[inst.Name] = true
		if inst.Kind == "" {
			problems = append(problems, fmt.Sprintf("instrument %q has no instruction kind", inst.Name))
		}
		for _, q := range inst.Qubits {
			if q < 0 || q >= n {
				problems = append(problems, fmt.Sprintf("instrument %q refers to qubit %d, platform has %d", inst.Name, q, n))
			}
		}
	}
	if len(problems) > 0 {
		return nil, errs.Userf("invalid resource configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return &Manager{numQubits: n, cfg: cfg}, nil
}

// Build returns a fresh state with nothing reserved.
func (m *Manager) Build(dir Direction) State {
	s := &state{}
	if m.cfg.Qubits {
		s.resources = append(s.resources, newQubitResource(m.numQubits, dir))
	}
	for _, inst := range m.cfg.Instruments {
		s.resources = append(s.resources, newInstrumentResource(inst, dir))
	}
	return s
}

// Len returns the number of resources each state carries.
func (m *Manager) Len() int {
	n := len(m.cfg.Instruments)
	if m.cfg.Qubits {
		n++
	}
	return n
}
