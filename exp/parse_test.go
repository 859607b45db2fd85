package exp

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseTypes(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"REAL", "REAL"},
		{"NUMBER", "NUMBER"},
		{"STRING", "STRING"},
		{"STRING(22) FIXED", "STRING(22) FIXED"},
		{"BINARY(32)", "BINARY(32)"},
		{"point", "point"},
		{"LIST [0:?] OF point", "LIST[0:?] OF point"},
		{"LIST [1:3] OF UNIQUE label", "LIST[1:3] OF UNIQUE label"},
		{"ARRAY [1:2] OF OPTIONAL REAL", "ARRAY[1:2] OF OPTIONAL REAL"},
		{"SET OF curve", "SET OF curve"},
		{"BAG [0:?] OF INTEGER", "BAG[0:?] OF INTEGER"},
		{"SET [1:?] OF LIST [3:3] OF REAL", "SET[1:?] OF LIST[3:3] OF REAL"},
	}
	for _, test := range tests {
		raw := "SCHEMA s; TYPE t = " + test.raw + "; END_TYPE; END_SCHEMA;"
		f, err := ParseString("test", raw)
		if err != nil {
			t.Errorf("parse %q err: %v", test.raw, err)
			continue
		}
		got := TypeString(f.Schemas[0].Types[0].Underlying)
		if got != test.want {
			t.Errorf("parse %q got %s", test.raw, got)
		}
	}
}

func TestParseSchema(t *testing.T) {
	const raw = `
SCHEMA geom 'geom version 1';
USE FROM base (widget AS gadget, thing);
REFERENCE FROM other;

TYPE length = REAL;
WHERE
  positive : SELF >= 0.0;
END_TYPE;

TYPE surface_side = ENUMERATION OF (positive, negative, both);
END_TYPE;

TYPE axis_or_point = SELECT (axis, point);
END_TYPE;

ENTITY point;
  x, y : REAL;
  z : OPTIONAL REAL;
END_ENTITY;

ENTITY axis SUBTYPE OF (point);
  dir : vector;
DERIVE
  SELF\point.norm : REAL := 1.0;
INVERSE
  owners : SET [0:?] OF frame FOR axes;
UNIQUE
  ud : dir;
WHERE
  unit : dir.len = 1.0;
END_ENTITY;

ENTITY shape ABSTRACT SUPERTYPE OF (ONEOF(solid, shell) ANDOR sheet);
END_ENTITY;

CONSTANT
  origin : point := point(0.0, 0.0, 0.0);
END_CONSTANT;

FUNCTION dist(a, b : point) : REAL;
  RETURN (0.0);
END_FUNCTION;

END_SCHEMA;
`
	f, err := ParseString("test", raw)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(f.Schemas) != 1 {
		t.Fatalf("want 1 schema got %d", len(f.Schemas))
	}
	s := f.Schemas[0]
	if s.Name != "geom" || s.Version != "geom version 1" {
		t.Errorf("schema head got %s %q", s.Name, s.Version)
	}
	if len(s.Uses) != 1 || len(s.Refs) != 1 {
		t.Fatalf("want 1 use and 1 reference got %d %d", len(s.Uses), len(s.Refs))
	}
	wantUse := Interface{Pos: s.Uses[0].Pos, Schema: "base", Names: []RefName{
		{Name: "widget", Alias: "gadget"}, {Name: "thing"},
	}}
	if !reflect.DeepEqual(s.Uses[0], wantUse) {
		t.Errorf("use got %+v", s.Uses[0])
	}
	if s.Refs[0].Schema != "other" || len(s.Refs[0].Names) != 0 {
		t.Errorf("reference got %+v", s.Refs[0])
	}
	if len(s.Types) != 3 {
		t.Fatalf("want 3 types got %d", len(s.Types))
	}
	lt := s.Types[0]
	if lt.Name != "length" || TypeString(lt.Underlying) != "REAL" {
		t.Errorf("type length got %s = %s", lt.Name, TypeString(lt.Underlying))
	}
	if len(lt.Where) != 1 || lt.Where[0].Label != "positive" || lt.Where[0].Expr != "SELF >= 0.0" {
		t.Errorf("length where got %+v", lt.Where)
	}
	et, ok := s.Types[1].Underlying.(EnumType)
	if !ok || !reflect.DeepEqual(et.Labels, []string{"positive", "negative", "both"}) {
		t.Errorf("enum got %+v", s.Types[1].Underlying)
	}
	st, ok := s.Types[2].Underlying.(SelectType)
	if !ok || !reflect.DeepEqual(st.Members, []string{"axis", "point"}) {
		t.Errorf("select got %+v", s.Types[2].Underlying)
	}
	if len(s.Entities) != 3 {
		t.Fatalf("want 3 entities got %d", len(s.Entities))
	}
	pt := s.Entities[0]
	if pt.Name != "point" || len(pt.Attrs) != 3 {
		t.Fatalf("point got %s attrs %d", pt.Name, len(pt.Attrs))
	}
	for i, want := range []string{"x", "y", "z"} {
		if pt.Attrs[i].Name != want {
			t.Errorf("point attr %d got %s", i, pt.Attrs[i].Name)
		}
	}
	if pt.Attrs[0].Optional || !pt.Attrs[2].Optional {
		t.Errorf("point optional flags got %v %v", pt.Attrs[0].Optional, pt.Attrs[2].Optional)
	}
	ax := s.Entities[1]
	if !reflect.DeepEqual(ax.Subtype, []string{"point"}) {
		t.Errorf("axis subtype got %v", ax.Subtype)
	}
	if len(ax.Derived) != 1 || ax.Derived[0].Of != "point" || ax.Derived[0].Name != "norm" ||
		ax.Derived[0].Expr != "1.0" {
		t.Errorf("axis derive got %+v", ax.Derived)
	}
	if len(ax.Inverse) != 1 {
		t.Fatalf("axis inverse got %d", len(ax.Inverse))
	}
	iv := ax.Inverse[0]
	if iv.Name != "owners" || iv.Agg != AggSet || iv.Entity != "frame" || iv.For != "axes" ||
		iv.Bound == nil || iv.Bound.Lower != 0 || !iv.Bound.Unbounded {
		t.Errorf("axis inverse got %+v bound %+v", iv, iv.Bound)
	}
	if len(ax.Unique) != 1 || ax.Unique[0].Label != "ud" || ax.Unique[0].Expr != "dir" {
		t.Errorf("axis unique got %+v", ax.Unique)
	}
	if len(ax.Where) != 1 || ax.Where[0].Expr != "dir.len = 1.0" {
		t.Errorf("axis where got %+v", ax.Where)
	}
	sh := s.Entities[2]
	if !sh.Abstract || !reflect.DeepEqual(sh.SuperOf, []string{"solid", "shell", "sheet"}) {
		t.Errorf("shape head got abstract %v superof %v", sh.Abstract, sh.SuperOf)
	}
	if len(s.Consts) != 1 || !strings.Contains(s.Consts[0].Body, "origin") {
		t.Errorf("consts got %+v", s.Consts)
	}
	if len(s.Algos) != 1 || s.Algos[0].Kind != "function" || s.Algos[0].Name != "dist" ||
		!strings.Contains(s.Algos[0].Body, "RETURN (0.0)") {
		t.Errorf("algos got %+v", s.Algos)
	}
}

func TestParseCase(t *testing.T) {
	raw := "schema S; entity Point; X : real; end_entity; END_SCHEMA;"
	f, err := ParseString("test", raw)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	s := f.Schemas[0]
	if s.Name != "s" || s.Entities[0].Name != "point" || s.Entities[0].Attrs[0].Name != "x" {
		t.Errorf("names not normalized: %s %s %s",
			s.Name, s.Entities[0].Name, s.Entities[0].Attrs[0].Name)
	}
}

func TestParseErrs(t *testing.T) {
	tests := []struct {
		raw string
		msg string
	}{
		{"", "empty source unit"},
		{"SCHEMA;", "unexpected"},
		{"SCHEMA s; TYPE t = ; END_TYPE; END_SCHEMA;", "unexpected"},
		{"SCHEMA s; TYPE t = ARRAY OF REAL; END_TYPE; END_SCHEMA;", `want "["`},
		{"SCHEMA s; TYPE t = LIST [a:?] OF REAL; END_TYPE; END_SCHEMA;", "want integer"},
		{"SCHEMA s; ENTITY e; a REAL; END_ENTITY; END_SCHEMA;", "unexpected"},
		{"SCHEMA s; ENTITY e; END_ENTITY;", "want END_SCHEMA"},
		{"SCHEMA s; FUNCTION f() : REAL; RETURN (0.0);", "unterminated FUNCTION block"},
	}
	for _, test := range tests {
		_, err := ParseString("test", test.raw)
		if err == nil {
			t.Errorf("parse %q want error got none", test.raw)
			continue
		}
		serr, ok := err.(*SyntaxError)
		if !ok {
			t.Errorf("parse %q want *SyntaxError got %T", test.raw, err)
			continue
		}
		if !strings.Contains(serr.Error(), test.msg) {
			t.Errorf("parse %q got err %q want %q", test.raw, serr, test.msg)
		}
	}
}
