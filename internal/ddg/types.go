// Package ddg builds and manipulates the data dependency graph of a block.
//
// The graph has one node per statement plus a source and a sink sentinel.
// An edge from A to B means A must start at least |weight| cycles before B
// (after reversal: after). Edges carry the causes that created them, for
// diagnostics only.
package ddg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/ir"
)

// AccessMode is the normalized way a statement accesses an object.
type AccessMode int

const (
	// Write does not commute with anything.
	Write AccessMode = iota
	// Read commutes with other reads.
	Read
	CommuteX
	CommuteY
	CommuteZ
)

func accessModeOf(m ir.OperandMode) AccessMode {
	switch m {
	case ir.ModeWrite:
		return Write
	case ir.ModeRead:
		return Read
	case ir.ModeCommuteX:
		return CommuteX
	case ir.ModeCommuteY:
		return CommuteY
	case ir.ModeCommuteZ:
		return CommuteZ
	}
	errs.ICE("cannot use operand mode %s in DDG", m)
	return Write
}

func (m AccessMode) String() string {
	switch m {
	case Write:
		return "write"
	case Read:
		return "read"
	case CommuteX:
		return "commute-x"
	case CommuteY:
		return "commute-y"
	case CommuteZ:
		return "commute-z"
	}
	return "<UNKNOWN>"
}

// Letter returns the single-letter form used in dependency names (RAW, WAR).
func (m AccessMode) Letter() byte {
	switch m {
	case Write:
		return 'W'
	case Read:
		return 'R'
	case CommuteX:
		return 'X'
	case CommuteY:
		return 'Y'
	case CommuteZ:
		return 'Z'
	}
	return '?'
}

// CommutesWith reports whether two accesses of the same object may be
// reordered. All modes except Write commute with themselves.
func (m AccessMode) CommutesWith(o AccessMode) bool {
	return m == o && m != Write
}

// CombineWith merges two accesses of one object by the same statement. The
// result does not commute with anything either input does not commute with.
func (m AccessMode) CombineWith(o AccessMode) AccessMode {
	if m.CommutesWith(o) {
		return m
	}
	return Write
}

// Reference is a static reference to an object or a prefix of its elements.
// Only the leading literal indices of an IR reference are retained. The zero
// value is the global reference, which overlaps everything.
type Reference struct {
	Target   *ir.Object
	DataType *ir.DataType
	Indices  []int64
}

// GlobalReference returns the reference that overlaps every object.
func GlobalReference() Reference { return Reference{} }

// NewReference converts an IR reference. A nil reference is global.
func NewReference(ref *ir.Reference) Reference {
	if ref == nil {
		return Reference{}
	}
	r := Reference{Target: ref.Target, DataType: ref.DataType}
	for _, idx := range ref.Indices {
		v, ok := ir.ConstIndex(idx)
		if !ok {
			break
		}
		r.Indices = append(r.Indices, v)
	}
	return r
}

// IsGlobal reports whether r refers to all state.
func (r Reference) IsGlobal() bool { return r.Target == nil }

// Equal reports value equality.
func (r Reference) Equal(o Reference) bool {
	if r.Target != o.Target || r.DataType != o.DataType || len(r.Indices) != len(o.Indices) {
		return false
	}
	for i := range r.Indices {
		if r.Indices[i] != o.Indices[i] {
			return false
		}
	}
	return true
}

// ProvablyDistinctFrom reports whether r and o statically refer to different
// storage.
func (r Reference) ProvablyDistinctFrom(o Reference) bool {
	if r.IsGlobal() || o.IsGlobal() {
		return false
	}
	if r.Target != o.Target {
		return true
	}
	// A differing data type is only used for the implicit measurement bit of
	// a qubit, which is separate storage.
	if r.DataType != o.DataType {
		return true
	}
	known := min(len(r.Indices), len(o.Indices))
	for i := 0; i < known; i++ {
		if r.Indices[i] != o.Indices[i] {
			return true
		}
	}
	return false
}

// ShadowedBy reports whether o refers to a superset of what r refers to.
func (r Reference) ShadowedBy(o Reference) bool {
	if o.IsGlobal() {
		return true
	}
	if r.IsGlobal() {
		return false
	}
	if r.Target != o.Target || r.DataType != o.DataType {
		return false
	}
	if len(o.Indices) > len(r.Indices) {
		return false
	}
	for i := range o.Indices {
		if r.Indices[i] != o.Indices[i] {
			return false
		}
	}
	return true
}

// Union returns the most specific reference covering both r and o.
func (r Reference) Union(o Reference) Reference {
	if r.IsGlobal() || o.IsGlobal() || r.Target != o.Target || r.DataType != o.DataType {
		return Reference{}
	}
	res := Reference{Target: r.Target, DataType: r.DataType}
	known := min(len(r.Indices), len(o.Indices))
	for i := 0; i < known; i++ {
		if r.Indices[i] != o.Indices[i] {
			break
		}
		res.Indices = append(res.Indices, r.Indices[i])
	}
	return res
}

// Intersect returns the most specific reference covering the overlap of r
// and o.
func (r Reference) Intersect(o Reference) Reference {
	if r.IsGlobal() {
		return o
	}
	if o.IsGlobal() {
		return r
	}
	if r.Target != o.Target || r.DataType != o.DataType {
		return Reference{}
	}
	res := Reference{Target: r.Target, DataType: r.DataType}
	known := min(len(r.Indices), len(o.Indices))
	for i := 0; i < known; i++ {
		if r.Indices[i] != o.Indices[i] {
			return res
		}
		res.Indices = append(res.Indices, r.Indices[i])
	}
	if len(r.Indices) > len(o.Indices) {
		return r
	}
	return o
}

func (r Reference) String() string {
	if r.IsGlobal() {
		return "<global>"
	}
	var sb strings.Builder
	implicit := r.DataType != r.Target.Type
	if implicit {
		sb.WriteString(r.DataType.Name)
		sb.WriteByte('(')
	}
	if r.Target.Name == "" {
		sb.WriteString("<anonymous>")
	} else {
		sb.WriteString(r.Target.Name)
	}
	if len(r.Target.Shape) > 0 {
		sb.WriteByte('[')
		for dim := range r.Target.Shape {
			if dim > 0 {
				sb.WriteString(", ")
			}
			if dim < len(r.Indices) {
				sb.WriteString(strconv.FormatInt(r.Indices[dim], 10))
			} else {
				sb.WriteByte('*')
			}
		}
		sb.WriteByte(']')
	}
	if implicit {
		sb.WriteByte(')')
	}
	return sb.String()
}

type refKey struct {
	target   *ir.Object
	dataType *ir.DataType
	indices  string
}

func (r Reference) key() refKey {
	var sb strings.Builder
	for _, i := range r.Indices {
		sb.WriteString(strconv.FormatInt(i, 10))
		sb.WriteByte(',')
	}
	return refKey{target: r.Target, dataType: r.DataType, indices: sb.String()}
}

// Event is one object access of a statement.
type Event struct {
	Reference Reference
	Mode      AccessMode
}

// CommutesWith reports whether e and o may be reordered: either their modes
// commute or their references are provably distinct.
func (e Event) CommutesWith(o Event) bool {
	return e.Mode.CommutesWith(o.Mode) || e.Reference.ProvablyDistinctFrom(o.Reference)
}

// ShadowedBy reports whether o fully shadows e: the modes do not commute and
// o refers to a superset of e's objects.
func (e Event) ShadowedBy(o Event) bool {
	return !e.Mode.CommutesWith(o.Mode) && e.Reference.ShadowedBy(o.Reference)
}

func (e Event) String() string {
	return fmt.Sprintf("%c:%s", e.Mode.Letter(), e.Reference)
}

// DependencyType is the pair of access modes that forced an edge.
type DependencyType struct {
	First  AccessMode
	Second AccessMode
}

// String returns the conventional name, e.g. RAW for a read after a write.
func (d DependencyType) String() string {
	return string([]byte{d.Second.Letter(), 'A', d.First.Letter()})
}

// Cause records why an edge exists.
type Cause struct {
	Reference Reference
	Type      DependencyType
}

func (c Cause) String() string {
	return c.Type.String() + ":" + c.Reference.String()
}
