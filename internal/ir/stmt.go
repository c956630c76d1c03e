package ir

import "fmt"

// StmtKind discriminates the statement variants.
type StmtKind int

const (
	KindCustomInstruction StmtKind = iota
	KindSetInstruction
	KindGotoInstruction
	KindWaitInstruction
	KindIfElse
	KindStaticLoop
	KindForLoop
	KindRepeatUntilLoop
	KindBreak
	KindContinue
	KindSentinel
)

var stmtKindNames = [...]string{
	KindCustomInstruction: "custom instruction",
	KindSetInstruction:    "set instruction",
	KindGotoInstruction:   "goto instruction",
	KindWaitInstruction:   "wait instruction",
	KindIfElse:            "if-else",
	KindStaticLoop:        "static loop",
	KindForLoop:           "for loop",
	KindRepeatUntilLoop:   "repeat-until loop",
	KindBreak:             "break",
	KindContinue:          "continue",
	KindSentinel:          "sentinel",
}

func (k StmtKind) String() string {
	if int(k) >= 0 && int(k) < len(stmtKindNames) {
		return stmtKindNames[k]
	}
	return fmt.Sprintf("StmtKind(%d)", int(k))
}

// Statement is implemented by every statement variant. Statements are
// compared by identity.
type Statement interface {
	Kind() StmtKind
	Cycle() int
	SetCycle(c int)
	stmtNode()
}

type stmtBase struct {
	cycle int
}

func (s *stmtBase) Cycle() int     { return s.cycle }
func (s *stmtBase) SetCycle(c int) { s.cycle = c }
func (*stmtBase) stmtNode()        {}

// CustomInstruction is a gate or other platform-defined instruction.
// A nil Condition means unconditional.
type CustomInstruction struct {
	stmtBase
	Condition Expression
	Type      *InstructionType
	Operands  []Expression
}

func (*CustomInstruction) Kind() StmtKind { return KindCustomInstruction }

// SetInstruction assigns a classical value.
type SetInstruction struct {
	stmtBase
	Condition Expression
	LHS       *Reference
	RHS       Expression
}

func (*SetInstruction) Kind() StmtKind { return KindSetInstruction }

// GotoInstruction transfers control to Target when Condition holds.
type GotoInstruction struct {
	stmtBase
	Condition Expression
	Target    *Block
}

func (*GotoInstruction) Kind() StmtKind { return KindGotoInstruction }

// WaitInstruction waits Duration cycles for the named objects, or for
// everything when Objects is empty. A zero-duration wait is a barrier.
type WaitInstruction struct {
	stmtBase
	Duration int
	Objects  []*Reference
}

func (*WaitInstruction) Kind() StmtKind { return KindWaitInstruction }

// IfElseBranch is one condition/body pair of an IfElse.
type IfElseBranch struct {
	Condition Expression
	Body      *SubBlock
}

// IfElse is an if/elif/else chain. Otherwise may be nil.
type IfElse struct {
	stmtBase
	Branches  []*IfElseBranch
	Otherwise *SubBlock
}

func (*IfElse) Kind() StmtKind { return KindIfElse }

// StaticLoop iterates LHS from From to To (inclusive) with a compile-time
// known iteration count.
type StaticLoop struct {
	stmtBase
	Body *SubBlock
	LHS  *Reference
	From *IntLiteral
	To   *IntLiteral
}

func (*StaticLoop) Kind() StmtKind { return KindStaticLoop }

// ForLoop is a dynamic loop. A while loop is a ForLoop without Initialize and
// Update.
type ForLoop struct {
	stmtBase
	Body       *SubBlock
	Condition  Expression
	Initialize *SetInstruction
	Update     *SetInstruction
}

func (*ForLoop) Kind() StmtKind { return KindForLoop }

// RepeatUntilLoop runs Body until Condition holds.
type RepeatUntilLoop struct {
	stmtBase
	Body      *SubBlock
	Condition Expression
}

func (*RepeatUntilLoop) Kind() StmtKind { return KindRepeatUntilLoop }

// BreakStatement leaves the innermost loop.
type BreakStatement struct{ stmtBase }

func (*BreakStatement) Kind() StmtKind { return KindBreak }

// ContinueStatement jumps to the condition of the innermost loop.
type ContinueStatement struct{ stmtBase }

func (*ContinueStatement) Kind() StmtKind { return KindContinue }

// SentinelStatement is a synthetic statement bracketing a block in the data
// dependency graph.
type SentinelStatement struct {
	stmtBase
	Name string
}

func (*SentinelStatement) Kind() StmtKind { return KindSentinel }

// IsInstruction reports whether s is an atomic instruction.
func IsInstruction(s Statement) bool {
	switch s.Kind() {
	case KindCustomInstruction, KindSetInstruction, KindGotoInstruction, KindWaitInstruction:
		return true
	}
	return false
}

// IsStructured reports whether s only exists before structure decomposition.
func IsStructured(s Statement) bool {
	switch s.Kind() {
	case KindIfElse, KindStaticLoop, KindForLoop, KindRepeatUntilLoop, KindBreak, KindContinue:
		return true
	}
	return false
}

// IsLoop reports whether s is any kind of loop.
func IsLoop(s Statement) bool {
	switch s.Kind() {
	case KindStaticLoop, KindForLoop, KindRepeatUntilLoop:
		return true
	}
	return false
}

// LoopBody returns the body of a loop statement, or nil.
func LoopBody(s Statement) *SubBlock {
	switch l := s.(type) {
	case *StaticLoop:
		return l.Body
	case *ForLoop:
		return l.Body
	case *RepeatUntilLoop:
		return l.Body
	}
	return nil
}

// ConditionOf returns the condition of a conditional instruction, or nil.
func ConditionOf(s Statement) Expression {
	switch i := s.(type) {
	case *CustomInstruction:
		return i.Condition
	case *SetInstruction:
		return i.Condition
	case *GotoInstruction:
		return i.Condition
	}
	return nil
}

// CloneInstruction returns a shallow copy of an instruction, so its cycle
// number and goto target can be changed without touching the original.
func CloneInstruction(s Statement) Statement {
	switch i := s.(type) {
	case *CustomInstruction:
		c := *i
		return &c
	case *SetInstruction:
		c := *i
		return &c
	case *GotoInstruction:
		c := *i
		return &c
	case *WaitInstruction:
		c := *i
		return &c
	}
	panic(fmt.Sprintf("ir: cannot clone %s as an instruction", s.Kind()))
}
