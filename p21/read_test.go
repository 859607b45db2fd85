package p21

import (
	"reflect"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
)

const demoRaw = `ISO-10303-21;
HEADER;
FILE_DESCRIPTION(('demo'), '2;1');
FILE_NAME('x.stp','2026-01-02T03:04:05',('me'),('org'),'pre','orig','auth');
FILE_SCHEMA(('GEOM','OTHER'));
ENDSEC;
DATA;
#1=POINT(1.0, -2.5, 3);
#2=NAMED('it''s', .STEEL., $, *);
#3=EDGE(#1, #2);
#4=(CURVE('c') LINE(#1, #3));
#5=MEASURE(LENGTH(2.0), (1, 2, 3));
ENDSEC;
END-ISO-10303-21;
`

func TestRead(t *testing.T) {
	x, err := ReadString("demo", demoRaw)
	if err != nil {
		t.Fatalf("read err: %v", err)
	}
	h := x.Header
	if !reflect.DeepEqual(h.Description, []string{"demo"}) || h.Implementation != "2;1" {
		t.Errorf("file description got %+v", h)
	}
	if h.Name != "x.stp" || h.Time != "2026-01-02T03:04:05" || h.Preprocessor != "pre" ||
		h.Originating != "orig" || h.Authorization != "auth" {
		t.Errorf("file name got %+v", h)
	}
	if !reflect.DeepEqual(h.Author, []string{"me"}) || !reflect.DeepEqual(h.Organization, []string{"org"}) {
		t.Errorf("file name lists got %+v", h)
	}
	if !reflect.DeepEqual(h.Schemas, []string{"GEOM", "OTHER"}) {
		t.Errorf("file schema got %v", h.Schemas)
	}
	d := x.Section()
	if d == nil || len(d.Instances) != 5 {
		t.Fatalf("data section got %+v", d)
	}
	ins := d.Instances
	if !reflect.DeepEqual(ins[0].Recs[0].Params, []Parameter{Real(1), Real(-2.5), Int(3)}) {
		t.Errorf("point params got %+v", ins[0].Recs[0].Params)
	}
	if !reflect.DeepEqual(ins[1].Recs[0].Params, []Parameter{Str("it's"), Enum("STEEL"), Unset{}, Omit{}}) {
		t.Errorf("named params got %+v", ins[1].Recs[0].Params)
	}
	if !reflect.DeepEqual(ins[2].Recs[0].Params, []Parameter{Ref(1), Ref(2)}) {
		t.Errorf("edge params got %+v", ins[2].Recs[0].Params)
	}
	if !ins[3].Complex() || !reflect.DeepEqual(ins[3].Tags(), []string{"CURVE", "LINE"}) {
		t.Errorf("complex tags got %v", ins[3].Tags())
	}
	if !reflect.DeepEqual(ins[4].Recs[0].Params, []Parameter{
		Typed{Tag: "LENGTH", Arg: Real(2)}, List{Int(1), Int(2), Int(3)}}) {
		t.Errorf("measure params got %+v", ins[4].Recs[0].Params)
	}
	if in := d.Instance(3); in == nil || in.ID != 3 || in.Recs[0].Tag != "EDGE" {
		t.Errorf("instance lookup got %+v", in)
	}
}

func TestReadRecover(t *testing.T) {
	raw := `ISO-10303-21;
HEADER;
ENDSEC;
DATA;
#1=POINT(1.0);
#2=POINT(1.0, , 2.0);
#3=POINT(2.0);
ENDSEC;
END-ISO-10303-21;
`
	x, err := ReadString("demo", raw)
	if err == nil {
		t.Fatal("want error got none")
	}
	merr, ok := err.(*multierror.Error)
	if !ok || len(merr.Errors) != 1 {
		t.Fatalf("want 1 collected error got %v", err)
	}
	perr, ok := merr.Errors[0].(*ParseError)
	if !ok || perr.Kind != SyntaxErr || perr.Line != 6 {
		t.Errorf("error got %+v", merr.Errors[0])
	}
	d := x.Section()
	if len(d.Instances) != 2 || d.Instances[0].ID != 1 || d.Instances[1].ID != 3 {
		t.Errorf("surviving instances got %+v", d.Instances)
	}
}

func TestReadDup(t *testing.T) {
	raw := `ISO-10303-21;
HEADER;
ENDSEC;
DATA;
#1=A(1);
#1=B(2);
ENDSEC;
END-ISO-10303-21;
`
	x, err := ReadString("demo", raw)
	if err == nil {
		t.Fatal("want duplicate diagnostic got none")
	}
	merr, ok := err.(*multierror.Error)
	if !ok || len(merr.Errors) != 1 {
		t.Fatalf("want 1 collected error got %v", err)
	}
	perr, ok := merr.Errors[0].(*ParseError)
	if !ok || perr.Kind != DuplicateInstanceID {
		t.Errorf("error got %+v", merr.Errors[0])
	}
	d := x.Section()
	if len(d.Instances) != 2 {
		t.Fatalf("want both records kept got %d", len(d.Instances))
	}
	if in := d.Instance(1); in.Recs[0].Tag != "A" {
		t.Errorf("lookup should return the first record got %s", in.Recs[0].Tag)
	}
}

func TestReadErrs(t *testing.T) {
	tests := []struct {
		raw string
		msg string
	}{
		{"garbage", "not an exchange structure"},
		{"ISO-10303-21;\nHEADER;\nENDSEC;\nDATA;\n#1=POINT('a\n", "unterminated string"},
		{"ISO-10303-21;\nHEADER;\nENDSEC;\nDATA;\n#1=();\nENDSEC;\nEND-ISO-10303-21;\n",
			"empty complex record"},
		{"ISO-10303-21;\nHEADER;\nENDSEC;\nDATA;\n#1=POINT(.BAD);\nENDSEC;\nEND-ISO-10303-21;\n",
			"malformed enumeration tag"},
	}
	for _, test := range tests {
		_, err := ReadString("demo", test.raw)
		if err == nil {
			t.Errorf("read %q want error got none", test.raw)
			continue
		}
		merr, ok := err.(*multierror.Error)
		if !ok {
			t.Errorf("read %q want *multierror.Error got %T", test.raw, err)
			continue
		}
		found := false
		for _, e := range merr.Errors {
			if pe, ok := e.(*ParseError); ok && strings.Contains(pe.Msg, test.msg) {
				found = true
			}
		}
		if !found {
			t.Errorf("read %q want %q in %v", test.raw, test.msg, merr.Errors)
		}
	}
}
