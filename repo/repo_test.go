package repo

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mb0/step/schema/schematest"
)

const toolRaw = `
SCHEMA tool;
ENTITY bit;
  size : REAL;
END_ENTITY;
END_SCHEMA;
`

const toolRaw2 = `
SCHEMA tool;
ENTITY bit;
  size : REAL;
  code : STRING;
END_ENTITY;
END_SCHEMA;
`

func tmpRepo(t *testing.T, files map[string]string) (*Repo, string, func()) {
	dir, err := ioutil.TempDir("", "steprepo")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	for name, raw := range files {
		err = ioutil.WriteFile(filepath.Join(dir, name), []byte(raw), 0644)
		if err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return New(dir), dir, func() { os.RemoveAll(dir) }
}

func TestRepoScan(t *testing.T) {
	r, dir, done := tmpRepo(t, map[string]string{
		"geom.exp": schematest.GeomRaw,
		"unit.exp": schematest.UnitRaw,
		"tool.exp": toolRaw,
	})
	defer done()
	err := r.Scan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if files := r.Files(); len(files) != 3 {
		t.Fatalf("got %d files want 3", len(files))
	}
	f, err := r.Find("geom")
	if err != nil {
		t.Fatalf("find geom: %v", err)
	}
	if f.Path != filepath.Join(dir, "geom.exp") {
		t.Errorf("geom path got %s", f.Path)
	}
	// base and site share the unit file
	bf, err := r.Find("base")
	if err != nil {
		t.Fatalf("find base: %v", err)
	}
	sf, err := r.Find("SITE")
	if err != nil {
		t.Fatalf("find site: %v", err)
	}
	if bf != sf {
		t.Errorf("base and site resolve to different files")
	}
	if s := r.Schema("site"); s == nil || s.Name != "site" {
		t.Errorf("schema site got %v", s)
	}
	if _, err := r.Find("nosuch"); err == nil {
		t.Errorf("find nosuch wants an error")
	}
	mf := r.Versions()
	names := make([]string, 0, len(mf))
	for _, v := range mf {
		names = append(names, v.Name)
		if v.Vers != 1 {
			t.Errorf("version %s got %d want 1", v.Name, v.Vers)
		}
		if len(v.Hash) != 64 {
			t.Errorf("version %s hash %q", v.Name, v.Hash)
		}
		if v.Date.IsZero() {
			t.Errorf("version %s has no date", v.Name)
		}
	}
	if got := strings.Join(names, " "); got != "base geom site tool" {
		t.Errorf("manifest names got %s", got)
	}
}

func TestRepoReload(t *testing.T) {
	r, dir, done := tmpRepo(t, map[string]string{"tool.exp": toolRaw})
	defer done()
	err := r.Scan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	v1, ok := r.Versions().Get("tool")
	if !ok || v1.Vers != 1 {
		t.Fatalf("tool version got %+v", v1)
	}
	path := filepath.Join(dir, "tool.exp")
	// reloading unchanged content keeps version and date
	_, err = r.Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if v, _ := r.Versions().Get("tool"); v != v1 {
		t.Errorf("unchanged reload got %+v want %+v", v, v1)
	}
	err = ioutil.WriteFile(path, []byte(toolRaw2), 0644)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	_, err = r.Load(path)
	if err != nil {
		t.Fatalf("reload changed: %v", err)
	}
	v2, _ := r.Versions().Get("tool")
	if v2.Vers != 2 {
		t.Errorf("changed reload vers got %d want 2", v2.Vers)
	}
	if v2.Hash == v1.Hash {
		t.Errorf("changed reload kept hash %s", v1.Hash)
	}
}

func TestRepoScanErrs(t *testing.T) {
	r, _, done := tmpRepo(t, map[string]string{
		"bad.exp":  "SCHEMA ;",
		"tool.exp": toolRaw,
	})
	defer done()
	err := r.Scan()
	if err == nil {
		t.Fatalf("scan wants an error for bad.exp")
	}
	// the good file still loads
	if _, err := r.Find("tool"); err != nil {
		t.Errorf("find tool: %v", err)
	}
	if len(r.Files()) != 1 {
		t.Errorf("got %d files want 1", len(r.Files()))
	}
}

func TestManifestRoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)
	f := schematest.Must(schematest.GeomFixture())
	mf := Manifest{}.Update(now, f.Registry.Schemas...)
	if len(mf) != 1 || mf[0].Name != "geom" {
		t.Fatalf("manifest got %+v", mf)
	}
	// hashing is stable
	again := Manifest{}.Update(now.Add(time.Hour), f.Registry.Schemas...)
	if again[0].Hash != mf[0].Hash {
		t.Errorf("hash not stable: %s vs %s", again[0].Hash, mf[0].Hash)
	}
	var b strings.Builder
	_, err := mf.WriteTo(&b)
	if err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	got, err := ReadManifest(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if len(got) != 1 || got[0] != mf[0] {
		t.Errorf("round trip got %+v want %+v", got, mf)
	}
	// updating against the recorded manifest keeps the version
	next := got.Update(now.Add(time.Hour), f.Registry.Schemas...)
	if next[0] != mf[0] {
		t.Errorf("no-change update got %+v", next[0])
	}
}
