package gengo

import (
	"reflect"
	"testing"

	"github.com/mb0/step/exp"
	"github.com/mb0/step/gen"
	"github.com/mb0/step/schema"
	"github.com/mb0/step/schema/schematest"
)

func TestWriteType(t *testing.T) {
	geom := schematest.Must(schematest.GeomFixture())
	unit := schematest.Must(schematest.UnitFixture())
	attr := func(f *schematest.Fixture, ent, name string) schema.Ref {
		return f.Entity(ent).Attr(name).Type
	}
	tests := []struct {
		r       schema.Ref
		want    string
		imports []string
	}{
		{attr(geom, "point", "x"), "float64", nil},
		{attr(geom, "vertex", "label"), "string", nil},
		{attr(geom, "edge", "a"), "*Point", nil},
		{attr(geom, "circle", "radius"), "Length", nil},
		{attr(geom, "mesh", "side"), "SurfaceSide", nil},
		{attr(geom, "mesh", "points"), "[]*Point", nil},
		{attr(geom, "line", "start"), "Place", nil},
		{schema.BaseRef{Simple: exp.Simple{Kind: exp.Integer}}, "int64", nil},
		{schema.BaseRef{Simple: exp.Simple{Kind: exp.Binary}}, "[]byte", nil},
		{schema.BaseRef{Simple: exp.Simple{Kind: exp.Logical}}, "graph.Logic",
			[]string{"github.com/mb0/step/graph"}},
		{attr(unit, "rack", "slots"), "[]*base.Item", []string{"path/to/base"}},
		{attr(unit, "rack", "code"), "base.Ident", []string{"path/to/base"}},
	}
	for _, test := range tests {
		c := &gen.Ctx{Pkg: "path/to/geom", Pkgs: map[string]string{
			"geom":  "path/to/geom",
			"base":  "path/to/base",
			"graph": "github.com/mb0/step/graph",
		}}
		err := WriteType(c, test.r)
		if err != nil {
			t.Errorf("test %s error: %v", test.want, err)
			continue
		}
		if got := c.String(); got != test.want {
			t.Errorf("want %s got %s", test.want, got)
		}
		if !reflect.DeepEqual(c.Imports.List, test.imports) {
			t.Errorf("test %s want imports %v got %v", test.want, test.imports, c.Imports)
		}
	}
}
