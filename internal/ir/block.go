package ir

// SubBlock is an ordered list of statements. It is the body of blocks,
// branches and loops.
type SubBlock struct {
	Statements []Statement
}

// Add appends statements to the sub-block.
func (sb *SubBlock) Add(stmts ...Statement) {
	sb.Statements = append(sb.Statements, stmts...)
}

// Block is a named top-level block. Control falls through to Next when the
// block ends without a taken goto; a nil Next ends the program.
type Block struct {
	SubBlock
	Name string
	Next *Block
}

// Program is a compilation unit: a platform plus its blocks.
type Program struct {
	Name       string
	Platform   *Platform
	Blocks     []*Block
	EntryPoint *Block
	// Variables are program-local classical objects, e.g. loop counters.
	Variables []*Object
}

// Walk calls fn for every statement in sb, descending into the bodies of
// structured statements. It stops early when fn returns false.
func Walk(sb *SubBlock, fn func(Statement) bool) bool {
	if sb == nil {
		return true
	}
	for _, s := range sb.Statements {
		if !fn(s) {
			return false
		}
		switch st := s.(type) {
		case *IfElse:
			for _, br := range st.Branches {
				if !Walk(br.Body, fn) {
					return false
				}
			}
			if !Walk(st.Otherwise, fn) {
				return false
			}
		case *StaticLoop:
			if !Walk(st.Body, fn) {
				return false
			}
		case *ForLoop:
			if !Walk(st.Body, fn) {
				return false
			}
		case *RepeatUntilLoop:
			if !Walk(st.Body, fn) {
				return false
			}
		}
	}
	return true
}

// Duration returns the number of cycles a statement occupies. Only custom
// instructions and waits take time.
func Duration(s Statement) int {
	switch st := s.(type) {
	case *CustomInstruction:
		return st.Type.Duration
	case *WaitInstruction:
		return st.Duration
	}
	return 0
}

// BlockDuration returns the cycle count of a scheduled sub-block: the
// maximum of cycle plus duration over its statements.
func BlockDuration(sb *SubBlock) int {
	end := 0
	for _, s := range sb.Statements {
		if e := s.Cycle() + Duration(s); e > end {
			end = e
		}
	}
	return end
}
