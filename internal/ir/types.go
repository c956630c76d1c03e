// Package ir holds the statement-level intermediate representation consumed by
// the scheduler: data types, objects, references, expressions, statements,
// blocks and programs, plus the platform they are compiled for.
//
// Statements form a closed sum type. Every pass that switches over them must
// handle each Kind; an unhandled kind is an internal error.
package ir

import (
	"fmt"
	"strings"
)

// OperandMode declares how an instruction or function accesses an operand.
type OperandMode int

const (
	// ModeBarrier is used for wait/barrier operands; it behaves like a write.
	ModeBarrier OperandMode = iota
	ModeWrite
	ModeUpdate
	ModeRead
	ModeLiteral
	ModeCommuteX
	ModeCommuteY
	ModeCommuteZ
	ModeMeasure
	ModeIgnore
)

var operandModeNames = [...]string{
	ModeBarrier:  "barrier",
	ModeWrite:    "write",
	ModeUpdate:   "update",
	ModeRead:     "read",
	ModeLiteral:  "literal",
	ModeCommuteX: "commute_x",
	ModeCommuteY: "commute_y",
	ModeCommuteZ: "commute_z",
	ModeMeasure:  "measure",
	ModeIgnore:   "ignore",
}

func (m OperandMode) String() string {
	if int(m) >= 0 && int(m) < len(operandModeNames) {
		return operandModeNames[m]
	}
	return fmt.Sprintf("OperandMode(%d)", int(m))
}

// ParseOperandMode converts the configuration spelling of a mode.
func ParseOperandMode(s string) (OperandMode, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, name := range operandModeNames {
		if name == key {
			return OperandMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown operand mode %q", s)
}

// TypeKind discriminates data types.
type TypeKind int

const (
	KindQubit TypeKind = iota
	KindBit
	KindInt
)

func (k TypeKind) String() string {
	switch k {
	case KindQubit:
		return "qubit"
	case KindBit:
		return "bit"
	case KindInt:
		return "int"
	}
	return fmt.Sprintf("TypeKind(%d)", int(k))
}

// DataType is a named data type. Data types are compared by identity.
type DataType struct {
	Name string
	Kind TypeKind
}

func (t *DataType) IsQubit() bool { return t != nil && t.Kind == KindQubit }

// Object is an addressable storage location: a qubit register, a bit
// register, a classical integer register or a scalar variable.
type Object struct {
	Name  string
	Type  *DataType
	Shape []int
}

// OperandType is one entry of an instruction or function prototype.
type OperandType struct {
	Mode     OperandMode
	DataType *DataType
}

// InstructionType describes a custom (gate-like) instruction.
type InstructionType struct {
	Name     string
	Duration int // in cycles
	Operands []OperandType
	// Kind is the resource class the instruction uses, e.g. "mw", "flux" or
	// "readout". Empty means no instrument is needed.
	Kind string
	// Barrier marks instructions that must not be reordered with anything.
	Barrier bool
}

// QubitOperands returns the number of qubit-typed operands in the prototype.
func (it *InstructionType) QubitOperands() int {
	return countQubits(it.Operands)
}

// FunctionType describes a classical function or operator.
type FunctionType struct {
	Name       string
	Operands   []OperandType
	ReturnType *DataType
}

func countQubits(ops []OperandType) int {
	n := 0
	for _, o := range ops {
		if o.DataType.IsQubit() {
			n++
		}
	}
	return n
}

// Platform is the target description statements are compiled against.
type Platform struct {
	Name      string
	CycleTime int // ns per cycle

	QubitType *DataType
	BitType   *DataType
	IntType   *DataType
	// ImplicitBitType is the type of the bit implicitly associated with each
	// qubit, written by measurements.
	ImplicitBitType *DataType

	Qubits *Object

	objects          []*Object
	objectsByName    map[string]*Object
	instructionTypes map[string]*InstructionType
	functionTypes    map[string]*FunctionType
}

// NewPlatform creates a platform with numQubits qubits in register "q" and
// the built-in classical operators.
func NewPlatform(name string, cycleTime, numQubits int) *Platform {
	p := &Platform{
		Name:             name,
		CycleTime:        cycleTime,
		QubitType:        &DataType{Name: "qubit", Kind: KindQubit},
		BitType:          &DataType{Name: "bit", Kind: KindBit},
		IntType:          &DataType{Name: "int", Kind: KindInt},
		ImplicitBitType:  &DataType{Name: "bit", Kind: KindBit},
		objectsByName:    make(map[string]*Object),
		instructionTypes: make(map[string]*InstructionType),
		functionTypes:    make(map[string]*FunctionType),
	}
	p.Qubits = &Object{Name: "q", Type: p.QubitType, Shape: []int{numQubits}}
	p.objects = append(p.objects, p.Qubits)
	p.objectsByName["q"] = p.Qubits
	p.addBuiltinFunctions()
	return p
}

func (p *Platform) addBuiltinFunctions() {
	bit1 := []OperandType{{ModeRead, p.BitType}}
	bit2 := []OperandType{{ModeRead, p.BitType}, {ModeRead, p.BitType}}
	int2 := []OperandType{{ModeRead, p.IntType}, {ModeRead, p.IntType}}
	p.functionTypes["operator!"] = &FunctionType{Name: "operator!", Operands: bit1, ReturnType: p.BitType}
	for _, op := range []string{"&&", "||", "^^"} {
		name := "operator" + op
		p.functionTypes[name] = &FunctionType{Name: name, Operands: bit2, ReturnType: p.BitType}
	}
	for _, op := range []string{"==", "!=", "<", ">", "<=", ">="} {
		name := "operator" + op
		p.functionTypes[name] = &FunctionType{Name: name, Operands: int2, ReturnType: p.BitType}
	}
	for _, op := range []string{"+", "-", "*", "/", "%"} {
		name := "operator" + op
		p.functionTypes[name] = &FunctionType{Name: name, Operands: int2, ReturnType: p.IntType}
	}
	p.functionTypes["operator-u"] = &FunctionType{
		Name:       "operator-u",
		Operands:   []OperandType{{ModeRead, p.IntType}},
		ReturnType: p.IntType,
	}
}

// Clone returns a platform sharing all types and objects with p, to which
// further objects can be added without affecting p.
func (p *Platform) Clone() *Platform {
	c := *p
	c.objects = append([]*Object(nil), p.objects...)
	c.objectsByName = make(map[string]*Object, len(p.objectsByName))
	for k, v := range p.objectsByName {
		c.objectsByName[k] = v
	}
	return &c
}

// AddObject registers a classical register or variable. Names must be unique.
func (p *Platform) AddObject(obj *Object) error {
	if _, dup := p.objectsByName[obj.Name]; dup {
		return fmt.Errorf("duplicate object %q", obj.Name)
	}
	p.objects = append(p.objects, obj)
	p.objectsByName[obj.Name] = obj
	return nil
}

// Object looks up an object by name.
func (p *Platform) Object(name string) (*Object, bool) {
	o, ok := p.objectsByName[name]
	return o, ok
}

// Objects returns all registered objects in registration order.
func (p *Platform) Objects() []*Object { return p.objects }

// AddInstructionType registers an instruction type. Names must be unique.
func (p *Platform) AddInstructionType(it *InstructionType) error {
	if _, dup := p.instructionTypes[it.Name]; dup {
		return fmt.Errorf("duplicate instruction %q", it.Name)
	}
	p.instructionTypes[it.Name] = it
	return nil
}

// InstructionType looks up an instruction type by name.
func (p *Platform) InstructionType(name string) (*InstructionType, bool) {
	it, ok := p.instructionTypes[name]
	return it, ok
}

// FunctionType looks up a function or operator type by name, e.g.
// "operator+".
func (p *Platform) FunctionType(name string) (*FunctionType, bool) {
	ft, ok := p.functionTypes[name]
	return ft, ok
}

// NumQubits returns the size of the main qubit register.
func (p *Platform) NumQubits() int { return p.Qubits.Shape[0] }

// DurationToCycles converts nanoseconds to cycles, rounding up.
func (p *Platform) DurationToCycles(ns int) int {
	if p.CycleTime <= 0 {
		return ns
	}
	return (ns + p.CycleTime - 1) / p.CycleTime
}
