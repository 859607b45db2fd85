// Package p21 reads and writes ISO 10303-21 exchange structures as raw,
// schema-untyped records. Typed resolution against a schema registry lives in
// package graph.
package p21

import (
	"fmt"
	"strings"
)

// Parameter is one node of the untyped parameter tree.
type Parameter interface{ isParam() }

type (
	// Int is an integer literal parameter.
	Int int64
	// Real is a real literal parameter.
	Real float64
	// Str is a string parameter with quote doubling already decoded.
	Str string
	// Bin is a binary parameter holding the raw text between double quotes.
	Bin string
	// Enum is an enumeration tag without the surrounding dots, as written.
	Enum string
	// Ref is an instance reference parameter #id.
	Ref int64
	// List is an aggregate literal.
	List []Parameter
	// Typed wraps a parameter in an explicit type tag, as in LENGTH(2.0).
	Typed struct {
		Tag string
		Arg Parameter
	}
	// Unset is the $ marker for an omitted value.
	Unset struct{}
	// Omit is the * marker for an attribute not provided in this record,
	// distinct from Unset.
	Omit struct{}
)

func (Int) isParam()   {}
func (Real) isParam()  {}
func (Str) isParam()   {}
func (Bin) isParam()   {}
func (Enum) isParam()  {}
func (Ref) isParam()   {}
func (List) isParam()  {}
func (Typed) isParam() {}
func (Unset) isParam() {}
func (Omit) isParam()  {}

// Rec is one entity tag with its parameter list. A simple record has one Rec,
// a complex record lists one Rec per entity type.
type Rec struct {
	Tag    string
	Params []Parameter
}

// EntityInstance is one data section record. Sub is set for records written
// in the parenthesized complex form, which may list a single tag group.
type EntityInstance struct {
	ID   int64
	Recs []Rec
	Sub  bool
	Line int
}

// Complex reports whether the instance was written in the complex form, where
// each tag group carries only the entity's own attributes.
func (e *EntityInstance) Complex() bool { return e.Sub || len(e.Recs) > 1 }

// Tags returns the entity tags of the instance.
func (e *EntityInstance) Tags() []string {
	res := make([]string, 0, len(e.Recs))
	for _, r := range e.Recs {
		res = append(res, r.Tag)
	}
	return res
}

// DataSection holds the records of one DATA section in document order.
type DataSection struct {
	Meta      []Parameter
	Instances []*EntityInstance

	byID map[int64]*EntityInstance
}

// Instance returns the first record with the given id or nil.
func (d *DataSection) Instance(id int64) *EntityInstance {
	return d.byID[id]
}

func (d *DataSection) index() {
	d.byID = make(map[int64]*EntityInstance, len(d.Instances))
	for _, in := range d.Instances {
		if d.byID[in.ID] == nil {
			d.byID[in.ID] = in
		}
	}
}

// Header holds the well-known header records. Unknown records are kept in
// Extra as written.
type Header struct {
	Description    []string
	Implementation string
	Name           string
	Time           string
	Author         []string
	Organization   []string
	Preprocessor   string
	Originating    string
	Authorization  string
	Schemas        []string
	Extra          []Rec
}

// Exchange is one exchange structure document.
type Exchange struct {
	Header Header
	Data   []*DataSection
}

// Section returns the first data section, which is the only one in common
// documents, or nil.
func (x *Exchange) Section() *DataSection {
	if len(x.Data) == 0 {
		return nil
	}
	return x.Data[0]
}

// ErrKind classifies reader diagnostics.
type ErrKind int

const (
	SyntaxErr ErrKind = iota + 1
	DuplicateInstanceID
)

func (k ErrKind) String() string {
	switch k {
	case SyntaxErr:
		return "syntax"
	case DuplicateInstanceID:
		return "duplicate instance id"
	}
	return fmt.Sprintf("ErrKind(%d)", int(k))
}

// ParseError is one reader diagnostic with document position context.
type ParseError struct {
	Kind ErrKind
	Name string
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Name, e.Line, e.Col, e.Msg)
}

// ParamString renders one parameter in exchange text form, used for
// diagnostics and by the writer.
func ParamString(p Parameter) string {
	var b strings.Builder
	writeParam(&b, p)
	return b.String()
}
