package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mb0/step/graph"
	"github.com/mb0/step/p21"
	"github.com/mb0/step/repo"
	"github.com/mb0/step/schema/schematest"
)

func geomGraph(t *testing.T) *graph.Graph {
	t.Helper()
	fix, err := schematest.GeomFixture()
	require.NoError(t, err)
	x, err := p21.ReadString("geom.stp", schematest.GeomDataRaw)
	require.NoError(t, err)
	g, err := graph.Resolve(fix.Registry, x)
	require.NoError(t, err)
	return g
}

func TestLoadModel(t *testing.T) {
	dir, err := ioutil.TempDir("", "stepcli")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	exp := filepath.Join(dir, "geom.exp")
	stp := filepath.Join(dir, "geom.step")
	require.NoError(t, ioutil.WriteFile(exp, []byte(schematest.GeomRaw), 0644))
	require.NoError(t, ioutil.WriteFile(stp, []byte(schematest.GeomDataRaw), 0644))

	r := repo.New(dir)
	require.NoError(t, r.Scan())
	g, errs := loadModel(r, stp, "")
	require.Empty(t, errs)
	require.NotNil(t, g)
	require.Len(t, g.List, 8)

	g, errs = loadModel(repo.New(), stp, exp)
	require.Empty(t, errs)
	require.Len(t, g.List, 8)

	_, errs = loadModel(repo.New(), stp, "nosuch")
	require.NotEmpty(t, errs)
}

func TestHeaderSchema(t *testing.T) {
	x, err := p21.ReadString("geom.stp", schematest.GeomDataRaw)
	require.NoError(t, err)
	require.Equal(t, "GEOM", headerSchema(x))
	x.Header.Schemas = []string{"AUTOMOTIVE_DESIGN { 1 0 10303 214 1 1 1 1 }"}
	require.Equal(t, "AUTOMOTIVE_DESIGN", headerSchema(x))
	x.Header.Schemas = nil
	require.Equal(t, "", headerSchema(x))
}

func TestValueString(t *testing.T) {
	g := geomGraph(t)
	tests := []struct {
		id   int64
		attr string
		want string
	}{
		{5, "name", "'diag'"},
		{5, "start", "#1"},
		{6, "side", ".POSITIVE."},
		{6, "points", "(#1,#2)"},
		{4, "label", "$"},
		{7, "dir", "1"},
	}
	for _, test := range tests {
		in := g.Instance(test.id)
		require.NotNil(t, in, "instance #%d", test.id)
		v, ok := in.Attr(test.attr)
		require.True(t, ok, "attr %s of #%d", test.attr, test.id)
		require.Equal(t, test.want, valueString(v), "attr %s of #%d", test.attr, test.id)
	}
}

func TestEntityRows(t *testing.T) {
	g := geomGraph(t)
	rows := entityRows(g.Reg.Entity("axis"))
	require.Equal(t, [][]string{
		{"axis < edge", "a", "point", "from edge"},
		{"", "b", "point", "from edge"},
		{"", "dir", "REAL", ""},
		{"", "owners", "frame.axes", "inv"},
	}, rows)
	rows = entityRows(g.Reg.Entity("curve"))
	require.Equal(t, [][]string{
		{"curve (abstract)", "name", "STRING", ""},
	}, rows)
	rows = entityRows(g.Reg.Entity("vertex"))
	require.Equal(t, [][]string{
		{"vertex", "at", "point", ""},
		{"", "label", "STRING", "opt"},
	}, rows)
}

func TestPrintRegistry(t *testing.T) {
	g := geomGraph(t)
	var b strings.Builder
	printRegistry(&b, g.Reg)
	out := b.String()
	require.Contains(t, out, "SCHEMA geom 'geom 1'")
	require.Contains(t, out, "(positive, negative, both)")
	require.Contains(t, out, "(point, vertex)")
	require.Contains(t, out, "surface_side")
	require.Contains(t, out, "SET[0:?] OF axis")
}

func TestReplEval(t *testing.T) {
	g := geomGraph(t)
	var b strings.Builder
	require.NoError(t, replEval(&b, g, "#5"))
	out := b.String()
	require.Contains(t, out, "#5 curve line")
	require.Contains(t, out, "name = 'diag'")
	require.Contains(t, out, "start = #1")

	b.Reset()
	require.NoError(t, replEval(&b, g, "refs #7"))
	require.Contains(t, b.String(), "owners: #8")

	b.Reset()
	require.NoError(t, replEval(&b, g, "refs #1"))
	require.Contains(t, b.String(), "no references")

	b.Reset()
	require.NoError(t, replEval(&b, g, "e vertex"))
	out = b.String()
	require.Contains(t, out, "vertex")
	require.Contains(t, out, "label")

	b.Reset()
	require.NoError(t, replEval(&b, g, "schemas"))
	require.Contains(t, b.String(), "geom: 3 types, 9 entities")

	require.Error(t, replEval(&b, g, "#99"))
	require.Error(t, replEval(&b, g, "e nosuch"))
	require.Error(t, replEval(&b, g, "e"))
	require.Error(t, replEval(&b, g, "refs 7"))
	require.Error(t, replEval(&b, g, "bogus"))
}
