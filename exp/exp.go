// Package exp implements the front end for the EXPRESS schema language (ISO 10303-11).
//
// It tokenizes and parses EXPRESS source into an abstract syntax tree of schemas,
// entities and type declarations. No name resolution happens here: references to
// undeclared types parse fine and are checked later by package schema.
package exp

import "fmt"

// Pos locates a token in an EXPRESS source unit.
type Pos struct {
	Off  int // byte offset
	Line int
	Col  int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// File is one parsed source unit containing one or more schema declarations.
type File struct {
	Name    string
	Schemas []*Schema
}

// Schema is a single unresolved schema declaration.
type Schema struct {
	Pos      Pos
	Name     string
	Version  string // optional schema version id
	Uses     []Interface
	Refs     []Interface
	Types    []*TypeDecl
	Entities []*Entity
	Consts   []RawDecl // CONSTANT blocks, kept as text
	Algos    []RawDecl // FUNCTION, PROCEDURE and RULE bodies, kept as text
}

// Interface is one USE FROM or REFERENCE FROM clause.
type Interface struct {
	Pos    Pos
	Schema string
	Names  []RefName // empty means the whole schema
}

// RefName is an imported declaration name with an optional local alias.
type RefName struct {
	Name  string
	Alias string
}

// RawDecl is an unevaluated declaration body kept only as source text.
type RawDecl struct {
	Pos  Pos
	Kind string // constant, function, procedure or rule
	Name string
	Body string
}

// TypeDecl declares a named type over an underlying type.
type TypeDecl struct {
	Pos        Pos
	Name       string
	Underlying Type
	Where      []Rule
}

// Entity declares an entity with attributes and supertype relations.
type Entity struct {
	Pos      Pos
	Name     string
	Abstract bool
	SuperOf  []string // names listed in a SUPERTYPE OF clause, informational
	Subtype  []string // direct supertypes from the SUBTYPE OF clause
	Attrs    []*Attr
	Derived  []*Derived
	Inverse  []*Inverse
	Unique   []Rule
	Where    []Rule
}

// Attr is one explicit attribute declaration. Comma groups are split by the
// parser, so each Attr carries exactly one name.
type Attr struct {
	Pos      Pos
	Name     string
	Type     Type
	Optional bool
}

// Derived is a derived attribute with its unevaluated expression. Of holds the
// supertype qualifier for redeclarations written as SELF\entity.name.
type Derived struct {
	Pos  Pos
	Name string
	Of   string
	Type Type
	Expr string
}

// Inverse is an inverse attribute declaration mirroring an explicit attribute
// For on the referencing Entity. Agg is AggNone, AggSet or AggBag.
type Inverse struct {
	Pos    Pos
	Name   string
	Agg    AggKind
	Bound  *Bound
	Entity string
	For    string
}

// Rule is a labeled, unevaluated WHERE or UNIQUE clause.
type Rule struct {
	Pos   Pos
	Label string
	Expr  string
}

// Type is a type expression. The variant set is closed: Simple, Named, Aggregate,
// EnumType and SelectType. The latter two occur only as the underlying type of a
// TypeDecl.
type Type interface{ isType() }

// SimpleKind enumerates the EXPRESS built-in simple types.
type SimpleKind int

const (
	Number SimpleKind = iota + 1
	Real
	Integer
	Logical
	Boolean
	String
	Binary
)

var simpleNames = [...]string{"", "NUMBER", "REAL", "INTEGER", "LOGICAL", "BOOLEAN", "STRING", "BINARY"}

func (k SimpleKind) String() string {
	if k <= 0 || int(k) >= len(simpleNames) {
		return fmt.Sprintf("SimpleKind(%d)", int(k))
	}
	return simpleNames[k]
}

// Simple is a built-in simple type, with an optional width spec for STRING and
// BINARY. A Width of zero means unspecified.
type Simple struct {
	Kind  SimpleKind
	Width int
	Fixed bool
}

// Named is an unresolved reference to a declared type or entity.
type Named struct {
	Pos  Pos
	Name string
}

// AggKind enumerates the EXPRESS aggregation kinds.
type AggKind int

const (
	AggNone AggKind = iota
	AggArray
	AggList
	AggSet
	AggBag
)

var aggNames = [...]string{"", "ARRAY", "LIST", "SET", "BAG"}

func (k AggKind) String() string {
	if k <= 0 || int(k) >= len(aggNames) {
		return fmt.Sprintf("AggKind(%d)", int(k))
	}
	return aggNames[k]
}

// Aggregate is an ARRAY, LIST, SET or BAG type. Bound is required for ARRAY and
// optional otherwise. Optional and Unique are ARRAY and ARRAY/LIST modifiers.
type Aggregate struct {
	Kind     AggKind
	Bound    *Bound
	Optional bool
	Unique   bool
	Elem     Type
}

// Bound is an aggregate bound spec. Upper is ignored when Unbounded is set,
// written as `?` in source.
type Bound struct {
	Lower     int
	Upper     int
	Unbounded bool
}

// EnumType is an ENUMERATION OF underlying type with ordered labels.
type EnumType struct {
	Extensible bool
	Labels     []string
}

// SelectType is a SELECT underlying type naming its member types.
type SelectType struct {
	Extensible    bool
	GenericEntity bool
	Members       []string
}

func (Simple) isType()     {}
func (Named) isType()      {}
func (Aggregate) isType()  {}
func (EnumType) isType()   {}
func (SelectType) isType() {}

// TypeString renders a type expression the way it is written in source, used in
// error messages and the schema dump.
func TypeString(t Type) string {
	switch t := t.(type) {
	case Simple:
		if t.Width > 0 {
			if t.Fixed {
				return fmt.Sprintf("%s(%d) FIXED", t.Kind, t.Width)
			}
			return fmt.Sprintf("%s(%d)", t.Kind, t.Width)
		}
		return t.Kind.String()
	case Named:
		return t.Name
	case Aggregate:
		res := t.Kind.String()
		if t.Bound != nil {
			if t.Bound.Unbounded {
				res += fmt.Sprintf("[%d:?]", t.Bound.Lower)
			} else {
				res += fmt.Sprintf("[%d:%d]", t.Bound.Lower, t.Bound.Upper)
			}
		}
		res += " OF "
		if t.Optional {
			res += "OPTIONAL "
		}
		if t.Unique {
			res += "UNIQUE "
		}
		return res + TypeString(t.Elem)
	case EnumType:
		return "ENUMERATION"
	case SelectType:
		return "SELECT"
	}
	return fmt.Sprintf("%T", t)
}

// SyntaxError reports a lexing or parsing failure with position and, where
// known, the expected token context.
type SyntaxError struct {
	Name string
	Pos  Pos
	Msg  string
	Want []string
}

func (e *SyntaxError) Error() string {
	if len(e.Want) > 0 {
		return fmt.Sprintf("%s:%s: %s, want %s", e.Name, e.Pos, e.Msg, joinWant(e.Want))
	}
	return fmt.Sprintf("%s:%s: %s", e.Name, e.Pos, e.Msg)
}

func joinWant(want []string) string {
	res := ""
	for i, w := range want {
		if i > 0 {
			res += " or "
		}
		res += w
	}
	return res
}
