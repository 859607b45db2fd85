package hub

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mb0/step/graph"
	"github.com/mb0/step/p21"
	"github.com/mb0/step/repo"
	"github.com/mb0/step/schema/schematest"
)

func testModelService(t *testing.T) (*ModelService, func()) {
	t.Helper()
	dir, err := ioutil.TempDir("", "stephub")
	require.NoError(t, err)
	err = ioutil.WriteFile(filepath.Join(dir, "geom.exp"), []byte(schematest.GeomRaw), 0644)
	require.NoError(t, err)
	r := repo.New(dir)
	require.NoError(t, r.Scan())
	f, err := r.Find("geom")
	require.NoError(t, err)
	x, err := p21.ReadString("geom.stp", schematest.GeomDataRaw)
	require.NoError(t, err)
	g, err := graph.Resolve(f.Reg, x)
	require.NoError(t, err)
	s := NewModelService(r)
	s.SetGraph("geom", g)
	return s, func() { os.RemoveAll(dir) }
}

func TestModelSchemas(t *testing.T) {
	s, done := testModelService(t)
	defer done()
	res, ok := s.schemas(&Msg{}).(SchemasRes)
	require.True(t, ok)
	require.Len(t, res.Schemas, 1)
	require.Equal(t, "geom", res.Schemas[0].Name)
	require.Equal(t, int64(1), res.Schemas[0].Vers)
	require.Equal(t, []string{"geom"}, res.Graphs)
}

func TestModelEntity(t *testing.T) {
	s, done := testModelService(t)
	defer done()
	res, ok := s.entity(&Msg{Raw: []byte("axis")}).(EntityRes)
	require.True(t, ok)
	require.Equal(t, "geom", res.Schema)
	require.Equal(t, "axis", res.Name)
	require.Equal(t, []string{"geom.edge"}, res.Supers)
	require.Equal(t, []AttrRes{
		{Name: "a", Type: "point", Of: "edge"},
		{Name: "b", Type: "point", Of: "edge"},
		{Name: "dir", Type: "REAL"},
	}, res.Attrs)
	require.Equal(t, []InvRes{
		{Name: "owners", Target: "geom.frame", Attr: "axes"},
	}, res.Inverses)

	res, ok = s.entity(&Msg{Raw: []byte("geom.vertex")}).(EntityRes)
	require.True(t, ok)
	require.Equal(t, []AttrRes{
		{Name: "at", Type: "point"},
		{Name: "label", Type: "STRING", Opt: true},
	}, res.Attrs)

	_, ok = s.entity(&Msg{Raw: []byte("nosuch")}).(ErrRes)
	require.True(t, ok)
	_, ok = s.entity(&Msg{}).(ErrRes)
	require.True(t, ok)
}

func TestModelInst(t *testing.T) {
	s, done := testModelService(t)
	defer done()
	res, ok := s.inst(&Msg{Raw: []byte("#5")}).(InstRes)
	require.True(t, ok)
	require.Equal(t, "geom", res.Graph)
	require.Equal(t, int64(5), res.ID)
	require.Equal(t, []string{"curve", "line"}, res.Tags)
	require.Equal(t, map[string]interface{}{
		"name": "diag",
		"start": map[string]interface{}{
			"member": "point",
			"value":  map[string]interface{}{"ref": int64(1)},
		},
		"stop": map[string]interface{}{
			"member": "vertex",
			"value":  map[string]interface{}{"ref": int64(4)},
		},
	}, res.Attrs)

	// the graph name can be given explicitly, unset values are null
	res, ok = s.inst(&Msg{Raw: []byte("geom #4")}).(InstRes)
	require.True(t, ok)
	require.Equal(t, map[string]interface{}{
		"at":    map[string]interface{}{"ref": int64(1)},
		"label": nil,
	}, res.Attrs)

	errs := []string{"#99", "nope", "bad #1", ""}
	for _, raw := range errs {
		_, ok := s.inst(&Msg{Raw: []byte(raw)}).(ErrRes)
		require.True(t, ok, "inst %q", raw)
	}
}

func TestModelBackrefs(t *testing.T) {
	s, done := testModelService(t)
	defer done()
	res, ok := s.backrefs(&Msg{Raw: []byte("#7")}).(BackrefsRes)
	require.True(t, ok)
	require.Equal(t, map[string][]int64{"owners": {8}}, res.Refs)
	res, ok = s.backrefs(&Msg{Raw: []byte("#1")}).(BackrefsRes)
	require.True(t, ok)
	require.Empty(t, res.Refs)
}

func TestModelFind(t *testing.T) {
	s, done := testModelService(t)
	defer done()
	tests := []struct {
		raw string
		ids []int64
	}{
		{"point", []int64{1, 2}},
		{"geom curve", []int64{5}},
		{"edge", []int64{3, 7}},
		{"frame", []int64{8}},
		{"circle", []int64{}},
	}
	for _, test := range tests {
		res, ok := s.find(&Msg{Raw: []byte(test.raw)}).(FindRes)
		require.True(t, ok, "find %q", test.raw)
		require.Equal(t, test.ids, res.IDs, "find %q", test.raw)
	}
	_, ok := s.find(&Msg{Raw: []byte("two args extra")}).(ErrRes)
	require.True(t, ok)
}

func TestModelHub(t *testing.T) {
	s, done := testModelService(t)
	defer done()
	h := NewHub()
	go h.Run(s.Services().Router(h, nil))
	res, err := Req(h, &Msg{Subj: "find", Raw: []byte("point")}, testTimeout)
	require.NoError(t, err)
	fr, ok := res.Data.(FindRes)
	require.True(t, ok)
	require.Equal(t, []int64{1, 2}, fr.IDs)
}
