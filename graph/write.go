package graph

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mb0/step/p21"
	"github.com/mb0/step/schema"
)

// Exchange builds the raw exchange document for a graph. Instances are
// ordered ascending by original id, complex records keep the canonical tag
// order of the instance. The result round trips: resolving it again yields an
// equivalent graph.
func Exchange(g *Graph) (*p21.Exchange, error) {
	x := &p21.Exchange{Header: g.Header}
	d := &p21.DataSection{}
	x.Data = []*p21.DataSection{d}
	list := make([]*Instance, len(g.List))
	copy(list, g.List)
	sort.SliceStable(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	for _, in := range list {
		raw, err := rawInstance(g, in)
		if err != nil {
			return nil, err
		}
		d.Instances = append(d.Instances, raw)
	}
	return x, nil
}

// Write renders the graph as canonical exchange text.
func Write(w io.Writer, g *Graph) error {
	x, err := Exchange(g)
	if err != nil {
		return err
	}
	return p21.Write(w, x)
}

// String renders the graph as canonical exchange text.
func String(g *Graph) (string, error) {
	var b strings.Builder
	if err := Write(&b, g); err != nil {
		return "", err
	}
	return b.String(), nil
}

func rawInstance(g *Graph, in *Instance) (*p21.EntityInstance, error) {
	if len(in.Defs) == 0 {
		return nil, &WriteError{ID: in.ID, Msg: "unresolved instance"}
	}
	raw := &p21.EntityInstance{ID: in.ID, Line: in.Line, Sub: in.Sub}
	if !in.Complex() {
		def := in.Defs[0]
		params, err := record(g, in, def.AllAttrs)
		if err != nil {
			return nil, err
		}
		raw.Recs = []p21.Rec{{Tag: def.Name, Params: params}}
		return raw, nil
	}
	for _, def := range in.Defs {
		params, err := record(g, in, def.Attrs)
		if err != nil {
			return nil, err
		}
		raw.Recs = append(raw.Recs, p21.Rec{Tag: def.Name, Params: params})
	}
	return raw, nil
}

func record(g *Graph, in *Instance, attrs []*schema.AttrDef) ([]p21.Parameter, error) {
	res := make([]p21.Parameter, 0, len(attrs))
	for _, a := range attrs {
		v, ok := in.Attr(a.Name)
		if !ok {
			return nil, &WriteError{ID: in.ID, Msg: "missing attribute " + a.Name}
		}
		p, err := param(g, in, v)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

func param(g *Graph, in *Instance, v Value) (p21.Parameter, error) {
	switch v := v.(type) {
	case Int:
		return p21.Int(v), nil
	case Real:
		return p21.Real(v), nil
	case Str:
		return p21.Str(v), nil
	case Bin:
		return p21.Bin(v), nil
	case Logic:
		return p21.Enum(v.String()), nil
	case EnumVal:
		return p21.Enum(v.Label), nil
	case RefVal:
		if v.To == nil || g.Instance(v.To.ID) != v.To {
			return nil, &WriteError{ID: in.ID, Msg: "reference outside the graph"}
		}
		return p21.Ref(v.To.ID), nil
	case ListVal:
		list := make(p21.List, 0, len(v))
		for _, e := range v {
			p, err := param(g, in, e)
			if err != nil {
				return nil, err
			}
			list = append(list, p)
		}
		return list, nil
	case SelectVal:
		inner, err := param(g, in, v.Value)
		if err != nil {
			return nil, err
		}
		if tr, ok := v.Member.(schema.TypeRef); ok {
			return p21.Typed{Tag: tr.Type.Name, Arg: inner}, nil
		}
		return inner, nil
	case Unset:
		return p21.Unset{}, nil
	case Omit:
		return p21.Omit{}, nil
	}
	return nil, &WriteError{ID: in.ID, Msg: fmt.Sprintf("unsupported value %T", v)}
}
