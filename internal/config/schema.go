package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// PlatformConfig is the top-level platform YAML structure.
type PlatformConfig struct {
	Version string `yaml:"version"`
	Name    string `yaml:"name"`
	// CycleTime is the duration of one cycle in nanoseconds.
	CycleTime    int              `yaml:"cycle_time"`
	Qubits       int              `yaml:"qubits"`
	Registers    []RegisterDef    `yaml:"registers"`
	Instructions []InstructionDef `yaml:"instructions"`
	Resources    ResourcesConf    `yaml:"resources"`
	Scheduler    SchedulerConf    `yaml:"scheduler"`
	Passes       []PassDef        `yaml:"passes"`
	Engine       EngineConf       `yaml:"engine"`
}

// RegisterDef declares a classical register or scalar variable.
type RegisterDef struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // "int" | "bit"
	Size int    `yaml:"size"` // 0 = scalar
}

// InstructionDef declares a custom instruction.
type InstructionDef struct {
	Name string `yaml:"name"`
	// Duration is in nanoseconds and rounded up to whole cycles.
	Duration int          `yaml:"duration"`
	Operands []OperandDef `yaml:"operands"`
	Kind     string       `yaml:"kind"`
	Barrier  bool         `yaml:"barrier"`
}

// OperandDef is one operand prototype. In YAML it is either a mapping with
// mode and type or the short form "<mode> <type>", e.g. "commute_z qubit".
type OperandDef struct {
	Mode string `yaml:"mode"`
	Type string `yaml:"type"`
}

func (o *OperandDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		fields := strings.Fields(node.Value)
		if len(fields) != 2 {
			return fmt.Errorf("line %d: operand %q must be \"<mode> <type>\"", node.Line, node.Value)
		}
		o.Mode, o.Type = fields[0], fields[1]
		return nil
	}
	type plain OperandDef
	return node.Decode((*plain)(o))
}

// ResourcesConf selects the scheduling resources.
type ResourcesConf struct {
	Qubits      bool            `yaml:"qubits"`
	Instruments []InstrumentDef `yaml:"instruments"`
}

// InstrumentDef is a control instrument shared by a group of qubits.
type InstrumentDef struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	Qubits []int  `yaml:"qubits"`
}

// SchedulerConf holds the platform-wide scheduler defaults. Pointer fields
// distinguish "unset" from an explicit zero value.
type SchedulerConf struct {
	ResourceConstraints    *bool  `yaml:"resource_constraints"`
	Target                 string `yaml:"target"`
	Heuristic              string `yaml:"heuristic"`
	CommuteMultiQubit      bool   `yaml:"commute_multi_qubit"`
	CommuteSingleQubit     bool   `yaml:"commute_single_qubit"`
	MaxResourceBlockCycles *int   `yaml:"max_resource_block_cycles"`
	WriteDotGraphs         bool   `yaml:"write_dot_graphs"`
	DotPrefix              string `yaml:"dot_prefix"`
}

// PassDef is one step of the compiler pipeline.
type PassDef struct {
	Type   string         `yaml:"type"`
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

// EngineConf holds tunable concurrency settings.
type EngineConf struct {
	Workers      int `yaml:"workers"`
	QueueDepth   int `yaml:"queue_depth"`
	JobTimeoutMs int `yaml:"job_timeout_ms"`
}

// ProgramDef is a program to compile.
type ProgramDef struct {
	Name string `yaml:"name"`
	// Variables are classical objects local to the program.
	Variables []RegisterDef `yaml:"variables"`
	// Blocks execute in order unless a block names its successor; the first
	// block is the entry point.
	Blocks []BlockDef `yaml:"blocks"`
}

// BlockDef is a named list of statements.
type BlockDef struct {
	Name       string         `yaml:"name"`
	Next       string         `yaml:"next"`
	Statements []StatementDef `yaml:"statements"`
}

// StatementDef is either a one-line instruction or a structured statement.
type StatementDef struct {
	Line string `yaml:"-"`

	If   *string        `yaml:"if"`
	Then []StatementDef `yaml:"then"`
	Elif []BranchDef    `yaml:"elif"`
	Else []StatementDef `yaml:"else"`

	Foreach *ForeachDef    `yaml:"foreach"`
	For     *ForDef        `yaml:"for"`
	While   *string        `yaml:"while"`
	Body    []StatementDef `yaml:"body"`

	Repeat []StatementDef `yaml:"repeat"`
	Until  *string        `yaml:"until"`
}

func (s *StatementDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Line = node.Value
		return nil
	}
	type plain StatementDef
	return node.Decode((*plain)(s))
}

// BranchDef is an else-if branch.
type BranchDef struct {
	Cond string         `yaml:"cond"`
	Then []StatementDef `yaml:"then"`
}

// ForeachDef iterates var from From to To inclusive.
type ForeachDef struct {
	Var  string `yaml:"var"`
	From int64  `yaml:"from"`
	To   int64  `yaml:"to"`
}

// ForDef is a C-style loop header.
type ForDef struct {
	Init   string `yaml:"init"`
	Cond   string `yaml:"cond"`
	Update string `yaml:"update"`
}

// Form names the statement form that is set, or "" if none is.
func (s *StatementDef) Form() string {
	var forms []string
	if s.Line != "" {
		forms = append(forms, "instruction")
	}
	if s.If != nil {
		forms = append(forms, "if")
	}
	if s.Foreach != nil {
		forms = append(forms, "foreach")
	}
	if s.For != nil {
		forms = append(forms, "for")
	}
	if s.While != nil {
		forms = append(forms, "while")
	}
	if s.Repeat != nil || s.Until != nil {
		forms = append(forms, "repeat")
	}
	return strings.Join(forms, "+")
}
