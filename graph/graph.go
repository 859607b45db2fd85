// Package graph resolves raw exchange records against a schema registry into
// a fully linked instance graph and serializes graphs back to exchange text.
//
// Graphs own their instances by id in the graph container, references between
// instances are direct pointers. Cycles are fine, back references for inverse
// attributes are lookup relations computed after resolution.
package graph

import (
	"fmt"
	"strings"

	"github.com/mb0/step/p21"
	"github.com/mb0/step/schema"
)

// Value is one resolved, typed attribute value.
type Value interface{ isValue() }

type (
	// Int is an integer value.
	Int int64
	// Real is a real value.
	Real float64
	// Str is a string value.
	Str string
	// Bin is a binary value holding raw hex text.
	Bin string
	// ListVal is a resolved aggregate.
	ListVal []Value
	// Unset marks an optional attribute without a value, written $.
	Unset struct{}
	// Omit marks an attribute slot not redefined in a partial complex
	// record, written *.
	Omit struct{}
)

// Logic is a boolean or logical value. Logical attributes allow Unknown,
// boolean ones do not.
type Logic int

const (
	False Logic = iota
	True
	Unknown
)

func (l Logic) String() string {
	switch l {
	case False:
		return "F"
	case True:
		return "T"
	case Unknown:
		return "U"
	}
	return fmt.Sprintf("Logic(%d)", int(l))
}

// EnumVal is a value of a declared enumeration type.
type EnumVal struct {
	Type  *schema.TypeDef
	Label string
}

// RefVal is a direct edge to another instance of the same graph.
type RefVal struct {
	To *Instance
}

// SelectVal records which member of a select type a value resolved to.
type SelectVal struct {
	Type   *schema.TypeDef
	Member schema.Ref
	Value  Value
}

func (Int) isValue()       {}
func (Real) isValue()      {}
func (Str) isValue()       {}
func (Bin) isValue()       {}
func (Logic) isValue()     {}
func (ListVal) isValue()   {}
func (Unset) isValue()     {}
func (Omit) isValue()      {}
func (EnumVal) isValue()   {}
func (RefVal) isValue()    {}
func (SelectVal) isValue() {}

// Slot is one merged attribute with its resolved value.
type Slot struct {
	Attr *schema.AttrDef
	Val  Value
}

// Instance is one resolved record. Tags lists the entity tags in canonical
// alphabetical order, Defs the matching definitions. Slots holds the merged
// attributes in supertype-first order. Sub is carried from records written in
// the parenthesized complex form so the writer re-emits them the same way.
type Instance struct {
	ID    int64
	Tags  []string
	Defs  []*schema.EntityDef
	Slots []*Slot
	Sub   bool
	Line  int

	slots map[string]*Slot
	backs map[string][]*Instance
}

// Complex reports whether the instance was written in the complex record form.
func (in *Instance) Complex() bool { return in.Sub || len(in.Tags) > 1 }

// Attr returns the value of the named attribute.
func (in *Instance) Attr(name string) (Value, bool) {
	s := in.slots[strings.ToLower(name)]
	if s == nil {
		return nil, false
	}
	return s.Val, true
}

// Is reports whether the instance instantiates the named entity, directly or
// through a supertype.
func (in *Instance) Is(name string) bool {
	for _, d := range in.Defs {
		if d.HasSuper(name) {
			return true
		}
	}
	return false
}

// Leaf returns the most derived tagged definition, the one whose closure
// covers every tag, or nil for diverging partial complex instances.
func (in *Instance) Leaf() *schema.EntityDef {
	for _, cand := range in.Defs {
		all := true
		for _, d := range in.Defs {
			if !cand.HasSuper(d.Name) {
				all = false
				break
			}
		}
		if all {
			return cand
		}
	}
	return nil
}

// Backrefs returns the instances referring to this one through the named
// inverse attribute, in document order.
func (in *Instance) Backrefs(name string) []*Instance {
	return in.backs[strings.ToLower(name)]
}

// Graph is a resolved instance graph indexed by original instance id.
type Graph struct {
	Reg    *schema.Registry
	Header p21.Header
	List   []*Instance

	byID map[int64]*Instance
}

// Instance returns the instance with the given original id or nil.
func (g *Graph) Instance(id int64) *Instance {
	return g.byID[id]
}

// ErrKind classifies resolution errors.
type ErrKind int

const (
	UnknownEntity ErrKind = iota + 1
	ArityMismatch
	TypeMismatch
	DanglingReference
	InvalidEnumerationTag
	SelectTypeMismatch
)

func (k ErrKind) String() string {
	switch k {
	case UnknownEntity:
		return "unknown entity"
	case ArityMismatch:
		return "arity mismatch"
	case TypeMismatch:
		return "type mismatch"
	case DanglingReference:
		return "dangling reference"
	case InvalidEnumerationTag:
		return "invalid enumeration tag"
	case SelectTypeMismatch:
		return "select type mismatch"
	}
	return fmt.Sprintf("ErrKind(%d)", int(k))
}

// ResolutionError is one schema-vs-instance diagnostic, attached to the
// offending instance and attribute.
type ResolutionError struct {
	Kind ErrKind
	ID   int64
	Attr string
	Msg  string
}

func (e *ResolutionError) Error() string {
	if e.Attr != "" {
		return fmt.Sprintf("instance #%d attribute %s: %s", e.ID, e.Attr, e.Msg)
	}
	return fmt.Sprintf("instance #%d: %s", e.ID, e.Msg)
}

// WriteError reports a graph that cannot be serialized, which does not occur
// on cleanly resolved graphs.
type WriteError struct {
	ID  int64
	Msg string
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write instance #%d: %s", e.ID, e.Msg)
}
