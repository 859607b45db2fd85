// Package schema analyzes parsed schema source units and provides a registry
// of resolved entity and type definitions for exchange processing.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mb0/step/exp"
)

// Registry holds the analyzed schemas of one source unit with all named
// references resolved.
type Registry struct {
	Schemas []*SchemaDef
	schemas map[string]*SchemaDef
}

// Schema returns the named schema or nil. Matching is case-insensitive.
func (r *Registry) Schema(name string) *SchemaDef {
	return r.schemas[strings.ToLower(name)]
}

// Entity returns the entity definition for name or nil. Schemas are searched
// in declaration order, the first match wins.
func (r *Registry) Entity(name string) *EntityDef {
	key := strings.ToLower(name)
	for _, s := range r.Schemas {
		if e, ok := s.decls[key].(*EntityDef); ok {
			return e
		}
	}
	return nil
}

// Type returns the defined type for name or nil.
func (r *Registry) Type(name string) *TypeDef {
	key := strings.ToLower(name)
	for _, s := range r.Schemas {
		if t, ok := s.decls[key].(*TypeDef); ok {
			return t
		}
	}
	return nil
}

// Names returns the sorted names of all declared entities and types.
func (r *Registry) Names() []string {
	var res []string
	for _, s := range r.Schemas {
		for name := range s.decls {
			res = append(res, name)
		}
	}
	sort.Strings(res)
	return res
}

// Decl is either an entity or a defined type declaration.
type Decl interface {
	DeclName() string
}

// SchemaDef is one analyzed schema declaration.
type SchemaDef struct {
	Name     string
	Version  string
	Src      *exp.Schema
	Entities []*EntityDef
	Types    []*TypeDef

	decls   map[string]Decl
	imports map[string]Decl
}

// Entity returns the entity declared or imported under name, or nil.
func (s *SchemaDef) Entity(name string) *EntityDef {
	e, _ := s.Decl(name).(*EntityDef)
	return e
}

// Type returns the defined type declared or imported under name, or nil.
func (s *SchemaDef) Type(name string) *TypeDef {
	t, _ := s.Decl(name).(*TypeDef)
	return t
}

// Decl returns the declaration visible under name in this schema, considering
// local declarations first and interfaced names second.
func (s *SchemaDef) Decl(name string) Decl {
	key := strings.ToLower(name)
	if d, ok := s.decls[key]; ok {
		return d
	}
	return s.imports[key]
}

// EntityDef is a resolved entity declaration.
type EntityDef struct {
	Name     string
	Schema   *SchemaDef
	Src      *exp.Entity
	Abstract bool

	// Supers and Subs are the direct inheritance edges.
	Supers []*EntityDef
	Subs   []*EntityDef

	// Closure lists the supertype closure from root to leaf, ending with the
	// entity itself.
	Closure []*EntityDef

	// Attrs are the explicit attributes declared on this entity, AllAttrs
	// prepends all inherited attributes in closure order. AllAttrs is the
	// exchange parameter list of a simple record.
	Attrs    []*AttrDef
	AllAttrs []*AttrDef

	Inverses []*InvDef

	attrs map[string]*AttrDef
}

func (e *EntityDef) DeclName() string { return e.Name }

// Attr returns the explicit attribute with the given name, inherited
// attributes included, or nil.
func (e *EntityDef) Attr(name string) *AttrDef {
	return e.attrs[strings.ToLower(name)]
}

// HasSuper reports whether name refers to this entity or one of its
// supertypes.
func (e *EntityDef) HasSuper(name string) bool {
	key := strings.ToLower(name)
	for _, c := range e.Closure {
		if c.Name == key {
			return true
		}
	}
	return false
}

// AttrDef is one explicit entity attribute.
type AttrDef struct {
	Name     string
	Owner    *EntityDef
	Type     Ref
	Optional bool
}

// InvDef is a resolved inverse attribute. Attr is the forward attribute on
// Target that refers back to the owner.
type InvDef struct {
	Name   string
	Owner  *EntityDef
	Target *EntityDef
	Attr   *AttrDef
	Agg    exp.AggKind
}

// TypeKind enumerates the declared type forms.
type TypeKind int

const (
	Defined TypeKind = iota + 1
	Enum
	Select
)

func (k TypeKind) String() string {
	switch k {
	case Defined:
		return "defined"
	case Enum:
		return "enum"
	case Select:
		return "select"
	}
	return fmt.Sprintf("TypeKind(%d)", int(k))
}

// TypeDef is a resolved TYPE declaration.
type TypeDef struct {
	Name       string
	Schema     *SchemaDef
	Src        *exp.TypeDecl
	Kind       TypeKind
	Extensible bool

	// Underlying is the resolved underlying type of Defined kinds.
	Underlying Ref

	// Labels are the enumeration labels of Enum kinds, lower case and in
	// declaration order.
	Labels []string

	members []Ref
}

func (t *TypeDef) DeclName() string { return t.Name }

// Members returns the resolved member types of Select kinds.
func (t *TypeDef) Members() []Ref { return t.members }

// HasLabel reports whether the enumeration declares the given label.
func (t *TypeDef) HasLabel(label string) bool {
	key := strings.ToLower(label)
	for _, l := range t.Labels {
		if l == key {
			return true
		}
	}
	return false
}

// Ref is a resolved type reference.
type Ref interface{ isRef() }

// BaseRef is a built-in simple type.
type BaseRef struct {
	exp.Simple
}

// EntityRef refers to an entity definition.
type EntityRef struct {
	Entity *EntityDef
}

// TypeRef refers to a defined type declaration.
type TypeRef struct {
	Type *TypeDef
}

// AggRef is an aggregate with a resolved element type.
type AggRef struct {
	Kind     exp.AggKind
	Bound    *exp.Bound
	Optional bool
	Unique   bool
	Elem     Ref
}

func (BaseRef) isRef()   {}
func (EntityRef) isRef() {}
func (TypeRef) isRef()   {}
func (AggRef) isRef()    {}

// Deref strips defined type wrappers until it reaches a base, entity,
// aggregate, enum or select reference.
func Deref(r Ref) Ref {
	for {
		tr, ok := r.(TypeRef)
		if !ok || tr.Type.Kind != Defined {
			return r
		}
		r = tr.Type.Underlying
	}
}

// RefString renders a resolved reference for diagnostics.
func RefString(r Ref) string {
	switch r := r.(type) {
	case BaseRef:
		return exp.TypeString(r.Simple)
	case EntityRef:
		return r.Entity.Name
	case TypeRef:
		return r.Type.Name
	case AggRef:
		res := r.Kind.String()
		if r.Bound != nil {
			if r.Bound.Unbounded {
				res += fmt.Sprintf("[%d:?]", r.Bound.Lower)
			} else {
				res += fmt.Sprintf("[%d:%d]", r.Bound.Lower, r.Bound.Upper)
			}
		}
		return res + " OF " + RefString(r.Elem)
	}
	return fmt.Sprintf("%T", r)
}
