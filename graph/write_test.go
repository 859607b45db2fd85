package graph

import (
	"strings"
	"testing"

	"github.com/mb0/step/p21"
	"github.com/mb0/step/schema/schematest"
)

const geomCanon = `ISO-10303-21;
HEADER;
FILE_DESCRIPTION(('geometry fixture'),'2;1');
FILE_NAME('geom.stp','2026-08-21T10:00:00',('tester'),(''),'step','','');
FILE_SCHEMA(('GEOM'));
ENDSEC;
DATA;
#1=POINT(0.,0.,0.);
#2=POINT(1.,1.,0.);
#3=EDGE(#1,#2);
#4=VERTEX(#1,$);
#5=(CURVE('diag')LINE(#1,#4));
#6=MESH((#1,#2),.POSITIVE.);
#7=AXIS(#1,#2,1.);
#8=FRAME((#7));
ENDSEC;
END-ISO-10303-21;
`

func TestWriteGraph(t *testing.T) {
	g := geomGraph(t)
	got, err := String(g)
	if err != nil {
		t.Fatalf("write geom graph: %v", err)
	}
	if got != geomCanon {
		t.Errorf("want canonical text:\n%s\ngot:\n%s", geomCanon, got)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	fix := schematest.Must(schematest.GeomFixture())
	g := geomGraph(t)
	s1, err := String(g)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	g2 := mustResolve(t, fix.Registry, "round.stp", s1)
	s2, err := String(g2)
	if err != nil {
		t.Fatalf("write again: %v", err)
	}
	if s1 != s2 {
		t.Errorf("round trip differs:\n%s\nvs:\n%s", s1, s2)
	}
	if len(g2.List) != len(g.List) {
		t.Fatalf("want %d instances got %d", len(g.List), len(g2.List))
	}
	for _, in := range g.List {
		in2 := g2.Instance(in.ID)
		if in2 == nil || in2.Leaf() == nil || in2.Leaf().Name != in.Leaf().Name {
			t.Errorf("instance #%d changed type", in.ID)
		}
	}
	if v, _ := g2.Instance(3).Attr("b"); v.(RefVal).To != g2.Instance(2) {
		t.Errorf("want #3 b -> #2 got %v", v)
	}
	if owners := g2.Instance(7).Backrefs("owners"); len(owners) != 1 {
		t.Errorf("want #7 owners preserved got %v", owners)
	}
}

func TestWriteSubForm(t *testing.T) {
	fix := schematest.Must(schematest.GeomFixture())
	g := mustResolve(t, fix.Registry, "sub.stp", doc("#1=(POINT(0., 1., 2.));"))
	in := g.Instance(1)
	if !in.Complex() || !in.Sub || in.Leaf() == nil || in.Leaf().Name != "point" {
		t.Fatalf("want #1 as parenthesized point got %+v", in)
	}
	s1, err := String(g)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if want := "#1=(POINT(0.,1.,2.));"; !strings.Contains(s1, want) {
		t.Errorf("want %s in:\n%s", want, s1)
	}
	g2 := mustResolve(t, fix.Registry, "round.stp", s1)
	s2, err := String(g2)
	if err != nil {
		t.Fatalf("write again: %v", err)
	}
	if s1 != s2 {
		t.Errorf("round trip differs:\n%s\nvs:\n%s", s1, s2)
	}
}

func TestWriteErrs(t *testing.T) {
	fix := schematest.Must(schematest.GeomFixture())
	x, err := p21.ReadString("bad.stp", doc("#1=WIDGET(1);"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	g, err := Resolve(fix.Registry, x)
	if err == nil {
		t.Fatalf("want resolve error")
	}
	if _, err := String(g); err == nil {
		t.Errorf("want write error for unresolved instance")
	} else if _, ok := err.(*WriteError); !ok {
		t.Errorf("want write error got %T", err)
	}

	// a reference leaving the graph is refused
	g1 := geomGraph(t)
	g2 := geomGraph(t)
	v, _ := g1.Instance(3).Attr("a")
	rv := v.(RefVal)
	rv.To = g2.Instance(1)
	g1.Instance(3).Slots[0].Val = rv
	if _, err := String(g1); err == nil {
		t.Errorf("want write error for foreign reference")
	}
}
