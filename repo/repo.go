// Package repo maintains a repository of express schema sources. It discovers
// schema files under configured directories, compiles them and keeps the
// analyzed registries indexed by declared schema name, with content versions.
package repo

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/mb0/step/exp"
	"github.com/mb0/step/schema"
)

// File is one compiled schema source file.
type File struct {
	Path string
	Raw  []byte
	Reg  *schema.Registry
}

// Repo indexes compiled schema files by path and by declared schema name.
type Repo struct {
	Dirs []string

	mu      sync.RWMutex
	files   map[string]*File
	schemas map[string]*File
	mf      Manifest
}

func New(dirs ...string) *Repo {
	return &Repo{Dirs: dirs,
		files:   make(map[string]*File),
		schemas: make(map[string]*File),
	}
}

// Scan loads all *.exp files under the configured directories and returns the
// collected errors. Files that fail to read or compile are skipped, the rest
// of the scan continues.
func (r *Repo) Scan() error {
	var res *multierror.Error
	for _, dir := range r.Dirs {
		paths, err := listExp(dir)
		if err != nil {
			res = multierror.Append(res, err)
			continue
		}
		for _, path := range paths {
			_, err := r.Load(path)
			if err != nil {
				res = multierror.Append(res, err)
			}
		}
	}
	return res.ErrorOrNil()
}

// Load reads, parses and analyzes the schema file at path and indexes the
// declared schemas. Loading a path again recompiles and reindexes the file
// and updates the schema versions.
func (r *Repo) Load(path string) (*File, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read schema file %s", path)
	}
	pf, err := exp.Parse(filepath.Base(path), raw)
	if err != nil {
		return nil, err
	}
	reg, err := schema.Analyze(pf)
	if err != nil {
		return nil, err
	}
	f := &File{Path: path, Raw: raw, Reg: reg}
	r.mu.Lock()
	defer r.mu.Unlock()
	if old := r.files[path]; old != nil {
		for key, of := range r.schemas {
			if of == old {
				delete(r.schemas, key)
			}
		}
	}
	r.files[path] = f
	for _, s := range reg.Schemas {
		r.schemas[strings.ToLower(s.Name)] = f
	}
	r.mf = r.mf.Update(time.Now(), reg.Schemas...)
	return f, nil
}

// Find returns the loaded file that declares the schema name.
func (r *Repo) Find(name string) (*File, error) {
	r.mu.RLock()
	f := r.schemas[strings.ToLower(name)]
	r.mu.RUnlock()
	if f == nil {
		return nil, errors.Errorf("schema %s not found", name)
	}
	return f, nil
}

// Schema returns the analyzed schema by name, or nil if it is not loaded.
func (r *Repo) Schema(name string) *schema.SchemaDef {
	f, err := r.Find(name)
	if err != nil {
		return nil
	}
	return f.Reg.Schema(name)
}

// Files returns all loaded files sorted by path.
func (r *Repo) Files() []*File {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*File, 0, len(r.files))
	for _, f := range r.files {
		res = append(res, f)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Path < res[j].Path })
	return res
}

// Versions returns the manifest with the current version of every loaded
// schema.
func (r *Repo) Versions() Manifest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append(Manifest{}, r.mf...)
}

func listExp(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read schema dir %s", dir)
	}
	defer f.Close()
	fis, err := f.Readdir(0)
	if err != nil {
		return nil, errors.Wrapf(err, "read schema dir %s", dir)
	}
	res := make([]string, 0, len(fis))
	for _, fi := range fis {
		if fi.IsDir() || !strings.HasSuffix(fi.Name(), ".exp") {
			continue
		}
		res = append(res, filepath.Join(dir, fi.Name()))
	}
	sort.Strings(res)
	return res, nil
}
