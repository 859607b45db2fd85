package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/mb0/step/exp"
	"github.com/mb0/step/p21"
	"github.com/mb0/step/schema"
)

// Resolve links the raw records of an exchange document against reg into an
// instance graph. Resolution is total: every record is attempted and all
// diagnostics are collected into the returned error, while the successfully
// resolved subgraph is still returned for tolerant callers.
func Resolve(reg *schema.Registry, x *p21.Exchange) (*Graph, error) {
	return resolve(reg, x, false)
}

// ResolveStrict is Resolve stopping at the first diagnostic.
func ResolveStrict(reg *schema.Registry, x *p21.Exchange) (*Graph, error) {
	return resolve(reg, x, true)
}

func resolve(reg *schema.Registry, x *p21.Exchange, strict bool) (*Graph, error) {
	r := &resolver{reg: reg, strict: strict,
		g:    &Graph{Reg: reg, Header: x.Header, byID: make(map[int64]*Instance)},
		raw:  make(map[int64]*p21.EntityInstance),
		refs: make(map[*Instance][]edge),
	}
	// pass 1: index records by id and create instance shells so references
	// can link forward
	for _, d := range x.Data {
		for _, raw := range d.Instances {
			if r.raw[raw.ID] != nil {
				// the reader already flagged the duplicate, first wins
				continue
			}
			in := &Instance{ID: raw.ID, Line: raw.Line, Sub: raw.Sub,
				slots: make(map[string]*Slot), backs: make(map[string][]*Instance)}
			r.raw[raw.ID] = raw
			r.g.byID[raw.ID] = in
			r.g.List = append(r.g.List, in)
		}
	}
	// pass 2: typed conversion and reference edges
	for _, in := range r.g.List {
		r.instance(in, r.raw[in.ID])
		if strict && len(r.errs) > 0 {
			break
		}
	}
	// pass 3: inverse back references
	if !strict || len(r.errs) == 0 {
		r.backrefs()
	}
	var res *multierror.Error
	res = multierror.Append(res, r.errs...)
	return r.g, res.ErrorOrNil()
}

type edge struct {
	from *Instance
	attr *schema.AttrDef
}

type resolver struct {
	reg    *schema.Registry
	g      *Graph
	raw    map[int64]*p21.EntityInstance
	refs   map[*Instance][]edge
	errs   []error
	strict bool
}

func (r *resolver) errf(kind ErrKind, id int64, attr, format string, args ...interface{}) {
	r.errs = append(r.errs, &ResolutionError{Kind: kind, ID: id, Attr: attr,
		Msg: fmt.Sprintf(format, args...)})
}

type group struct {
	def    *schema.EntityDef
	params []p21.Parameter
}

func (r *resolver) instance(in *Instance, raw *p21.EntityInstance) {
	var groups []group
	ok := true
	for _, rec := range raw.Recs {
		def := r.reg.Entity(rec.Tag)
		if def == nil {
			r.errf(UnknownEntity, in.ID, "", "unknown entity %s", strings.ToLower(rec.Tag))
			ok = false
			continue
		}
		groups = append(groups, group{def, rec.Params})
	}
	if !ok || len(groups) == 0 {
		return
	}
	if !raw.Complex() {
		r.simple(in, groups[0].def, groups[0].params)
		return
	}
	r.complex(in, groups)
}

// simple resolves a single tag record whose parameters cover the full
// inherited attribute list in closure order.
func (r *resolver) simple(in *Instance, def *schema.EntityDef, params []p21.Parameter) {
	if def.Abstract {
		r.errf(TypeMismatch, in.ID, "", "abstract entity %s instantiated", def.Name)
		return
	}
	in.Tags = []string{def.Name}
	in.Defs = []*schema.EntityDef{def}
	if len(params) != len(def.AllAttrs) {
		r.errf(ArityMismatch, in.ID, "", "entity %s wants %d attributes got %d",
			def.Name, len(def.AllAttrs), len(params))
		return
	}
	for i, a := range def.AllAttrs {
		v, ok := r.value(in, a, a.Type, params[i], a.Optional, false)
		if !ok {
			v = Unset{}
		}
		slot := &Slot{Attr: a, Val: v}
		in.Slots = append(in.Slots, slot)
		in.slots[a.Name] = slot
	}
}

// complex resolves a multi-tag record. The instance type is the set union of
// the tags, each tag group carries the parameters for that entity's own
// attributes only. Tag order is canonicalized alphabetically.
func (r *resolver) complex(in *Instance, groups []group) {
	sort.Slice(groups, func(i, j int) bool { return groups[i].def.Name < groups[j].def.Name })
	tagged := make(map[*schema.EntityDef]group, len(groups))
	concrete := false
	for _, g := range groups {
		if _, dup := tagged[g.def]; dup {
			r.errf(TypeMismatch, in.ID, "", "duplicate tag %s", g.def.Name)
			return
		}
		tagged[g.def] = g
		if !g.def.Abstract {
			concrete = true
		}
	}
	if !concrete {
		r.errf(TypeMismatch, in.ID, "", "only abstract entities tagged")
		return
	}
	var union []*schema.EntityDef
	seen := make(map[*schema.EntityDef]bool)
	for _, g := range groups {
		for _, c := range g.def.Closure {
			if !seen[c] {
				seen[c] = true
				union = append(union, c)
			}
		}
	}
	// supertypes carrying explicit attributes must be present in the tag set
	ok := true
	for _, c := range union {
		if _, is := tagged[c]; !is && len(c.Attrs) > 0 {
			r.errf(TypeMismatch, in.ID, "", "complex record missing entity %s", c.Name)
			ok = false
		}
	}
	if !ok {
		return
	}
	for _, g := range groups {
		in.Tags = append(in.Tags, g.def.Name)
		in.Defs = append(in.Defs, g.def)
	}
	for _, c := range union {
		g, is := tagged[c]
		if !is {
			continue
		}
		if len(g.params) != len(c.Attrs) {
			r.errf(ArityMismatch, in.ID, "", "entity %s wants %d own attributes got %d",
				c.Name, len(c.Attrs), len(g.params))
			continue
		}
		for i, a := range c.Attrs {
			v, ok := r.value(in, a, a.Type, g.params[i], a.Optional, true)
			if !ok {
				v = Unset{}
			}
			if in.slots[a.Name] != nil {
				r.errf(TypeMismatch, in.ID, a.Name,
					"conflicting values for attribute %s", a.Name)
				continue
			}
			slot := &Slot{Attr: a, Val: v}
			in.Slots = append(in.Slots, slot)
			in.slots[a.Name] = slot
		}
	}
}

// value converts one parameter against a resolved type reference. opt allows
// the $ marker, partial allows the * marker in complex tag groups. Both stop
// applying below the top level of a slot.
func (r *resolver) value(in *Instance, a *schema.AttrDef, ref schema.Ref, p p21.Parameter, opt, partial bool) (Value, bool) {
	switch p.(type) {
	case p21.Unset:
		if !opt {
			r.errf(TypeMismatch, in.ID, a.Name, "$ for mandatory attribute")
			return nil, false
		}
		return Unset{}, true
	case p21.Omit:
		if !partial {
			r.errf(TypeMismatch, in.ID, a.Name, "* outside a partial complex record")
			return nil, false
		}
		return Omit{}, true
	}
	switch t := ref.(type) {
	case schema.BaseRef:
		return r.base(in, a, t, p)
	case schema.EntityRef:
		return r.entity(in, a, t.Entity, p)
	case schema.TypeRef:
		switch t.Type.Kind {
		case schema.Defined:
			if w, ok := p.(p21.Typed); ok && strings.EqualFold(w.Tag, t.Type.Name) {
				p = w.Arg
			}
			return r.value(in, a, t.Type.Underlying, p, opt, false)
		case schema.Enum:
			return r.enum(in, a, t.Type, p)
		case schema.Select:
			return r.sel(in, a, t.Type, p)
		}
	case schema.AggRef:
		return r.agg(in, a, t, p)
	}
	r.errf(TypeMismatch, in.ID, a.Name, "unresolvable attribute type")
	return nil, false
}

// base converts built-in simple types. Integer and real are strict in both
// directions, NUMBER accepts either and keeps the written form.
func (r *resolver) base(in *Instance, a *schema.AttrDef, t schema.BaseRef, p p21.Parameter) (Value, bool) {
	switch t.Kind {
	case exp.Number:
		switch p := p.(type) {
		case p21.Int:
			return Int(p), true
		case p21.Real:
			return Real(p), true
		}
	case exp.Integer:
		if p, ok := p.(p21.Int); ok {
			return Int(p), true
		}
	case exp.Real:
		if p, ok := p.(p21.Real); ok {
			return Real(p), true
		}
	case exp.String:
		if p, ok := p.(p21.Str); ok {
			return Str(p), true
		}
	case exp.Binary:
		if p, ok := p.(p21.Bin); ok {
			return Bin(p), true
		}
	case exp.Boolean:
		if e, ok := p.(p21.Enum); ok {
			switch strings.ToUpper(string(e)) {
			case "T", "TRUE":
				return True, true
			case "F", "FALSE":
				return False, true
			}
		}
	case exp.Logical:
		if e, ok := p.(p21.Enum); ok {
			switch strings.ToUpper(string(e)) {
			case "T", "TRUE":
				return True, true
			case "F", "FALSE":
				return False, true
			case "U", "UNKNOWN":
				return Unknown, true
			}
		}
	}
	r.errf(TypeMismatch, in.ID, a.Name, "want %s got %s",
		t.Kind.String(), p21.ParamString(p))
	return nil, false
}

func (r *resolver) entity(in *Instance, a *schema.AttrDef, def *schema.EntityDef, p p21.Parameter) (Value, bool) {
	ref, ok := p.(p21.Ref)
	if !ok {
		r.errf(TypeMismatch, in.ID, a.Name, "want reference to %s got %s",
			def.Name, p21.ParamString(p))
		return nil, false
	}
	target := r.g.byID[int64(ref)]
	if target == nil {
		r.errf(DanglingReference, in.ID, a.Name, "reference #%d undefined", int64(ref))
		return nil, false
	}
	if !r.rawIs(int64(ref), def.Name) {
		r.errf(TypeMismatch, in.ID, a.Name, "instance #%d is not a %s", int64(ref), def.Name)
		return nil, false
	}
	r.refs[target] = append(r.refs[target], edge{from: in, attr: a})
	return RefVal{To: target}, true
}

// rawIs checks an instance type against the raw record tags, usable before
// the target record itself got resolved.
func (r *resolver) rawIs(id int64, entity string) bool {
	raw := r.raw[id]
	if raw == nil {
		return false
	}
	for _, rec := range raw.Recs {
		if def := r.reg.Entity(rec.Tag); def != nil && def.HasSuper(entity) {
			return true
		}
	}
	return false
}

func (r *resolver) enum(in *Instance, a *schema.AttrDef, t *schema.TypeDef, p p21.Parameter) (Value, bool) {
	if w, ok := p.(p21.Typed); ok && strings.EqualFold(w.Tag, t.Name) {
		p = w.Arg
	}
	e, ok := p.(p21.Enum)
	if !ok {
		r.errf(TypeMismatch, in.ID, a.Name, "want %s label got %s",
			t.Name, p21.ParamString(p))
		return nil, false
	}
	if !t.HasLabel(string(e)) {
		r.errf(InvalidEnumerationTag, in.ID, a.Name, "label %s not declared by %s",
			strings.ToUpper(string(e)), t.Name)
		return nil, false
	}
	return EnumVal{Type: t, Label: strings.ToLower(string(e))}, true
}

// sel resolves a select typed parameter to exactly one member. References
// infer the member from the target's entity type, typed parameters name the
// member, anything else infers structurally over the member shapes.
func (r *resolver) sel(in *Instance, a *schema.AttrDef, t *schema.TypeDef, p p21.Parameter) (Value, bool) {
	switch p := p.(type) {
	case p21.Ref:
		var match schema.Ref
		n := 0
		for _, m := range t.Members() {
			if em, ok := m.(schema.EntityRef); ok && r.rawIs(int64(p), em.Entity.Name) {
				match = m
				n++
			}
		}
		if n != 1 {
			r.errf(SelectTypeMismatch, in.ID, a.Name,
				"%d members of %s match instance #%d", n, t.Name, int64(p))
			return nil, false
		}
		inner, ok := r.entity(in, a, match.(schema.EntityRef).Entity, p)
		if !ok {
			return nil, false
		}
		return SelectVal{Type: t, Member: match, Value: inner}, true
	case p21.Typed:
		for _, m := range t.Members() {
			if tr, ok := m.(schema.TypeRef); ok && strings.EqualFold(p.Tag, tr.Type.Name) {
				inner, ok := r.value(in, a, m, p21.Parameter(p), false, false)
				if !ok {
					return nil, false
				}
				return SelectVal{Type: t, Member: m, Value: inner}, true
			}
		}
		r.errf(SelectTypeMismatch, in.ID, a.Name, "no member of %s named %s",
			t.Name, strings.ToLower(p.Tag))
		return nil, false
	}
	var match schema.Ref
	n := 0
	for _, m := range t.Members() {
		if accepts(m, p) {
			match = m
			n++
		}
	}
	if n != 1 {
		r.errf(SelectTypeMismatch, in.ID, a.Name, "%d members of %s accept %s",
			n, t.Name, p21.ParamString(p))
		return nil, false
	}
	inner, ok := r.value(in, a, match, p, false, false)
	if !ok {
		return nil, false
	}
	return SelectVal{Type: t, Member: match, Value: inner}, true
}

// accepts is the structural shape probe for select member inference.
func accepts(m schema.Ref, p p21.Parameter) bool {
	switch t := schema.Deref(m).(type) {
	case schema.BaseRef:
		switch t.Kind {
		case exp.Number:
			if _, ok := p.(p21.Int); ok {
				return true
			}
			_, ok := p.(p21.Real)
			return ok
		case exp.Integer:
			_, ok := p.(p21.Int)
			return ok
		case exp.Real:
			_, ok := p.(p21.Real)
			return ok
		case exp.String:
			_, ok := p.(p21.Str)
			return ok
		case exp.Binary:
			_, ok := p.(p21.Bin)
			return ok
		case exp.Boolean, exp.Logical:
			_, ok := p.(p21.Enum)
			return ok
		}
	case schema.EntityRef:
		_, ok := p.(p21.Ref)
		return ok
	case schema.AggRef:
		_, ok := p.(p21.List)
		return ok
	case schema.TypeRef:
		if t.Type.Kind == schema.Enum {
			e, ok := p.(p21.Enum)
			return ok && t.Type.HasLabel(string(e))
		}
	}
	return false
}

func (r *resolver) agg(in *Instance, a *schema.AttrDef, t schema.AggRef, p p21.Parameter) (Value, bool) {
	list, ok := p.(p21.List)
	if !ok {
		r.errf(TypeMismatch, in.ID, a.Name, "want aggregate got %s", p21.ParamString(p))
		return nil, false
	}
	if b := t.Bound; b != nil {
		if n := len(list); n < b.Lower || !b.Unbounded && n > b.Upper {
			r.errf(ArityMismatch, in.ID, a.Name, "aggregate size %d outside declared bound", n)
			return nil, false
		}
	}
	res := make(ListVal, 0, len(list))
	clean := true
	for _, e := range list {
		v, ok := r.value(in, a, t.Elem, e, t.Optional, false)
		if !ok {
			clean = false
			continue
		}
		res = append(res, v)
	}
	return res, clean
}

// backrefs fills the read-only inverse lookup relations after all explicit
// attributes are resolved. Order follows document order of the referencing
// instances.
func (r *resolver) backrefs() {
	for _, in := range r.g.List {
		bound := make(map[string]bool)
		for _, def := range in.Defs {
			for _, c := range def.Closure {
				for _, iv := range c.Inverses {
					if bound[iv.Name] {
						continue
					}
					bound[iv.Name] = true
					var res []*Instance
					seen := make(map[*Instance]bool)
					for _, e := range r.refs[in] {
						if e.attr != iv.Attr || seen[e.from] || !e.from.Is(iv.Target.Name) {
							continue
						}
						seen[e.from] = true
						res = append(res, e.from)
					}
					if res != nil {
						in.backs[iv.Name] = res
					}
				}
			}
		}
	}
}
