package schema

import (
	"fmt"
	"io"
	"io/ioutil"

	"github.com/mb0/step/exp"
)

// ErrKind classifies semantic analysis errors.
type ErrKind int

const (
	UndefinedType ErrKind = iota + 1
	CyclicInheritance
	DuplicateAttribute
	DuplicateEntity
	UnboundInverse
	DuplicateSchema
	UndefinedSchema
)

func (k ErrKind) String() string {
	switch k {
	case UndefinedType:
		return "undefined type"
	case CyclicInheritance:
		return "cyclic inheritance"
	case DuplicateAttribute:
		return "duplicate attribute"
	case DuplicateEntity:
		return "duplicate declaration"
	case UnboundInverse:
		return "unbound inverse"
	case DuplicateSchema:
		return "duplicate schema"
	case UndefinedSchema:
		return "undefined schema"
	}
	return fmt.Sprintf("ErrKind(%d)", int(k))
}

// SemanticError reports the first problem found during analysis.
type SemanticError struct {
	Kind   ErrKind
	Schema string
	Pos    exp.Pos
	Msg    string
}

func (e *SemanticError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("schema %s %s: %s", e.Schema, e.Pos, e.Msg)
	}
	return fmt.Sprintf("schema %s: %s", e.Schema, e.Msg)
}

func serr(kind ErrKind, schema string, pos exp.Pos, format string, args ...interface{}) *SemanticError {
	return &SemanticError{Kind: kind, Schema: schema, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Analyze resolves a parsed source unit into a registry. It fails fast, the
// returned error is the first *SemanticError encountered.
func Analyze(file *exp.File) (*Registry, error) {
	reg := &Registry{schemas: make(map[string]*SchemaDef)}
	for _, src := range file.Schemas {
		if reg.schemas[src.Name] != nil {
			return nil, serr(DuplicateSchema, src.Name, src.Pos, "schema %s redeclared", src.Name)
		}
		s := &SchemaDef{Name: src.Name, Version: src.Version, Src: src,
			decls: make(map[string]Decl), imports: make(map[string]Decl)}
		for _, t := range src.Types {
			if s.decls[t.Name] != nil {
				return nil, serr(DuplicateEntity, s.Name, t.Pos, "%s redeclared", t.Name)
			}
			d := &TypeDef{Name: t.Name, Schema: s, Src: t}
			s.decls[t.Name] = d
			s.Types = append(s.Types, d)
		}
		for _, e := range src.Entities {
			if s.decls[e.Name] != nil {
				return nil, serr(DuplicateEntity, s.Name, e.Pos, "%s redeclared", e.Name)
			}
			d := &EntityDef{Name: e.Name, Schema: s, Src: e, Abstract: e.Abstract,
				attrs: make(map[string]*AttrDef)}
			s.decls[e.Name] = d
			s.Entities = append(s.Entities, d)
		}
		reg.schemas[s.Name] = s
		reg.Schemas = append(reg.Schemas, s)
	}
	for _, s := range reg.Schemas {
		if err := interfaces(reg, s, s.Src.Uses); err != nil {
			return nil, err
		}
		if err := interfaces(reg, s, s.Src.Refs); err != nil {
			return nil, err
		}
	}
	for _, s := range reg.Schemas {
		for _, t := range s.Types {
			if err := resolveTypeDecl(s, t); err != nil {
				return nil, err
			}
		}
		for _, e := range s.Entities {
			if err := resolveAttrs(s, e); err != nil {
				return nil, err
			}
		}
	}
	if err := inherit(reg); err != nil {
		return nil, err
	}
	return reg, inverses(reg)
}

// AnalyzeString parses and analyzes schema source in one step.
func AnalyzeString(name, src string) (*Registry, error) {
	f, err := exp.ParseString(name, src)
	if err != nil {
		return nil, err
	}
	return Analyze(f)
}

// Read parses and analyzes a schema source unit from r.
func Read(r io.Reader, name string) (*Registry, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f, err := exp.Parse(name, b)
	if err != nil {
		return nil, err
	}
	return Analyze(f)
}

// interfaces binds USE FROM and REFERENCE FROM names into the schema
// namespace. Without a name list all declarations of the interfaced schema
// become visible. Local declarations always shadow interfaced ones.
func interfaces(reg *Registry, s *SchemaDef, ins []exp.Interface) error {
	for _, in := range ins {
		target := reg.Schema(in.Schema)
		if target == nil {
			return serr(UndefinedSchema, s.Name, in.Pos, "interfaced schema %s not found", in.Schema)
		}
		if len(in.Names) == 0 {
			for name, d := range target.decls {
				if s.imports[name] == nil {
					s.imports[name] = d
				}
			}
			continue
		}
		for _, rn := range in.Names {
			d := target.decls[rn.Name]
			if d == nil {
				return serr(UndefinedType, s.Name, in.Pos,
					"%s not declared in schema %s", rn.Name, in.Schema)
			}
			local := rn.Name
			if rn.Alias != "" {
				local = rn.Alias
			}
			if s.decls[local] != nil {
				return serr(DuplicateEntity, s.Name, in.Pos,
					"interfaced name %s collides with local declaration", local)
			}
			if prev := s.imports[local]; prev != nil && prev != d {
				return serr(DuplicateEntity, s.Name, in.Pos,
					"interfaced name %s already bound", local)
			}
			s.imports[local] = d
		}
	}
	return nil
}

func resolveTypeDecl(s *SchemaDef, t *TypeDef) error {
	switch u := t.Src.Underlying.(type) {
	case exp.EnumType:
		t.Kind = Enum
		t.Extensible = u.Extensible
		t.Labels = u.Labels
	case exp.SelectType:
		t.Kind = Select
		t.Extensible = u.Extensible
		for _, name := range u.Members {
			d := s.Decl(name)
			if d == nil {
				return serr(UndefinedType, s.Name, t.Src.Pos,
					"select member %s undefined", name)
			}
			switch d := d.(type) {
			case *EntityDef:
				t.members = append(t.members, EntityRef{d})
			case *TypeDef:
				t.members = append(t.members, TypeRef{d})
			}
		}
	default:
		t.Kind = Defined
		r, err := resolveType(s, u, t.Src.Pos)
		if err != nil {
			return err
		}
		t.Underlying = r
	}
	return nil
}

func resolveType(s *SchemaDef, t exp.Type, pos exp.Pos) (Ref, error) {
	switch t := t.(type) {
	case exp.Simple:
		return BaseRef{t}, nil
	case exp.Named:
		d := s.Decl(t.Name)
		if d == nil {
			return nil, serr(UndefinedType, s.Name, t.Pos, "type %s undefined", t.Name)
		}
		switch d := d.(type) {
		case *EntityDef:
			return EntityRef{d}, nil
		case *TypeDef:
			return TypeRef{d}, nil
		}
	case exp.Aggregate:
		elem, err := resolveType(s, t.Elem, pos)
		if err != nil {
			return nil, err
		}
		return AggRef{Kind: t.Kind, Bound: t.Bound, Optional: t.Optional,
			Unique: t.Unique, Elem: elem}, nil
	}
	return nil, serr(UndefinedType, s.Name, pos, "unsupported type %T", t)
}

func resolveAttrs(s *SchemaDef, e *EntityDef) error {
	for _, a := range e.Src.Attrs {
		r, err := resolveType(s, a.Type, a.Pos)
		if err != nil {
			return err
		}
		e.Attrs = append(e.Attrs, &AttrDef{Name: a.Name, Owner: e, Type: r, Optional: a.Optional})
	}
	// derived attribute types must resolve even though they never become
	// exchange parameters
	for _, d := range e.Src.Derived {
		if _, err := resolveType(s, d.Type, d.Pos); err != nil {
			return err
		}
	}
	return nil
}

const (
	unvisited = iota
	visiting
	visited
)

func inherit(reg *Registry) error {
	for _, s := range reg.Schemas {
		for _, e := range s.Entities {
			for _, name := range e.Src.Subtype {
				d := s.Decl(name)
				if d == nil {
					return serr(UndefinedType, s.Name, e.Src.Pos,
						"supertype %s undefined", name)
				}
				sup, ok := d.(*EntityDef)
				if !ok {
					return serr(UndefinedType, s.Name, e.Src.Pos,
						"supertype %s is not an entity", name)
				}
				e.Supers = append(e.Supers, sup)
				sup.Subs = append(sup.Subs, e)
			}
			for _, name := range e.Src.SuperOf {
				if _, ok := s.Decl(name).(*EntityDef); !ok {
					return serr(UndefinedType, s.Name, e.Src.Pos,
						"subtype %s undefined", name)
				}
			}
		}
	}
	marks := make(map[*EntityDef]int)
	for _, s := range reg.Schemas {
		for _, e := range s.Entities {
			if err := closure(e, marks); err != nil {
				return err
			}
		}
	}
	return nil
}

// closure linearizes the supertype graph depth-first into Closure and
// flattens the inherited attributes into AllAttrs. Diamond supertypes are
// kept once, at their first position.
func closure(e *EntityDef, marks map[*EntityDef]int) error {
	switch marks[e] {
	case visiting:
		return serr(CyclicInheritance, e.Schema.Name, e.Src.Pos,
			"cyclic inheritance at entity %s", e.Name)
	case visited:
		return nil
	}
	marks[e] = visiting
	seen := make(map[*EntityDef]bool)
	for _, sup := range e.Supers {
		if err := closure(sup, marks); err != nil {
			return err
		}
		for _, c := range sup.Closure {
			if !seen[c] {
				seen[c] = true
				e.Closure = append(e.Closure, c)
			}
		}
	}
	e.Closure = append(e.Closure, e)
	for _, c := range e.Closure {
		for _, a := range c.Attrs {
			if prev := e.attrs[a.Name]; prev != nil {
				return serr(DuplicateAttribute, e.Schema.Name, e.Src.Pos,
					"attribute %s declared by both %s and %s",
					a.Name, prev.Owner.Name, c.Name)
			}
			e.attrs[a.Name] = a
			e.AllAttrs = append(e.AllAttrs, a)
		}
	}
	marks[e] = visited
	return nil
}

func inverses(reg *Registry) error {
	for _, s := range reg.Schemas {
		for _, e := range s.Entities {
			for _, iv := range e.Src.Inverse {
				target := s.Entity(iv.Entity)
				if target == nil {
					return serr(UndefinedType, s.Name, iv.Pos,
						"inverse entity %s undefined", iv.Entity)
				}
				attr := target.Attr(iv.For)
				if attr == nil {
					return serr(UnboundInverse, s.Name, iv.Pos,
						"inverse attribute %s.%s undefined", iv.Entity, iv.For)
				}
				if !refersTo(attr.Type, e, nil) {
					return serr(UnboundInverse, s.Name, iv.Pos,
						"attribute %s.%s does not refer back to %s",
						iv.Entity, iv.For, e.Name)
				}
				e.Inverses = append(e.Inverses, &InvDef{Name: iv.Name, Owner: e,
					Target: target, Attr: attr, Agg: iv.Agg})
			}
		}
	}
	return nil
}

// refersTo reports whether r can hold a reference to e or one of its
// supertypes.
func refersTo(r Ref, e *EntityDef, seen map[*TypeDef]bool) bool {
	switch r := r.(type) {
	case EntityRef:
		for _, c := range e.Closure {
			if c == r.Entity {
				return true
			}
		}
	case AggRef:
		return refersTo(r.Elem, e, seen)
	case TypeRef:
		if seen[r.Type] {
			return false
		}
		if seen == nil {
			seen = make(map[*TypeDef]bool)
		}
		seen[r.Type] = true
		switch r.Type.Kind {
		case Defined:
			return refersTo(r.Type.Underlying, e, seen)
		case Select:
			for _, m := range r.Type.members {
				if refersTo(m, e, seen) {
					return true
				}
			}
		}
	}
	return false
}
