package repo

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/mb0/step/schema"
)

// Version contains essential details for a schema to derive a new version number.
//
// The name is the declared schema name and date an optional recording time. Vers
// is a positive integer for known versions or zero if unknown. The hash is a
// lowercase hex string of a sha256 hash over the schema name and the signatures
// of all its declarations.
type Version struct {
	Name string    `json:"name"`
	Vers int64     `json:"vers"`
	Date time.Time `json:"date,omitempty"`
	Hash string    `json:"hash"`
}

// ReadVersion returns a version read from r or an error.
func ReadVersion(r io.Reader) (v Version, err error) {
	err = json.NewDecoder(r).Decode(&v)
	return v, err
}

// WriteTo writes the version to w and returns the written bytes or an error.
func (v Version) WriteTo(w io.Writer) (int64, error) {
	var b bytes.Buffer
	err := json.NewEncoder(&b).Encode(v)
	if err != nil {
		return 0, err
	}
	return b.WriteTo(w)
}

// Manifest is a set of versions sorted by schema name.
type Manifest []Version

// ReadManifest returns a manifest read from r or an error.
// Manifests are read as JSON stream of version objects.
func ReadManifest(r io.Reader) (mf Manifest, err error) {
	dec := json.NewDecoder(r)
	for {
		var v Version
		err = dec.Decode(&v)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		mf = append(mf, v)
	}
	return mf.Sort(), nil
}

// WriteTo writes the manifest to w and returns the written bytes or an error.
// Manifests are written as JSON stream of version objects.
func (mf Manifest) WriteTo(w io.Writer) (nn int64, err error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, v := range mf {
		err = enc.Encode(v)
		if err != nil {
			return nn, err
		}
		n, err := buf.WriteTo(w)
		nn += n
		if err != nil {
			return nn, err
		}
	}
	return nn, nil
}

// Get returns the version for the schema name or false if no version was found.
func (mf Manifest) Get(name string) (Version, bool) {
	i := mf.idx(name)
	if i >= len(mf) || mf[i].Name != name {
		return Version{}, false
	}
	return mf[i], true
}

// Set inserts a version into the manifest and returns the result.
func (mf Manifest) Set(v Version) Manifest {
	i := mf.idx(v.Name)
	if i >= len(mf) {
		return append(mf, v)
	}
	if mf[i].Name != v.Name {
		mf = append(mf[:i+1], mf[i:]...)
	}
	mf[i] = v
	return mf
}

// Update hashes the given schemas against the manifest and returns the merged
// result. Unchanged schemas keep their recorded version and date, changed ones
// bump the version number and record now, other manifest entries are retained.
func (mf Manifest) Update(now time.Time, schemas ...*schema.SchemaDef) Manifest {
	res := append(Manifest{}, mf...)
	for _, s := range schemas {
		v := Version{Name: s.Name, Vers: 1, Date: now, Hash: schemaHash(s)}
		old, ok := mf.Get(s.Name)
		if ok {
			if old.Hash == v.Hash {
				v = old
			} else {
				v.Vers = old.Vers + 1
			}
		}
		res = res.Set(v)
	}
	return res
}

func (mf Manifest) Len() int           { return len(mf) }
func (mf Manifest) Less(i, j int) bool { return mf[i].Name < mf[j].Name }
func (mf Manifest) Swap(i, j int)      { mf[i], mf[j] = mf[j], mf[i] }
func (mf Manifest) Sort() Manifest     { sort.Sort(mf); return mf }

func (mf Manifest) idx(name string) int {
	return sort.Search(len(mf), func(i int) bool { return mf[i].Name >= name })
}

// schemaHash covers the schema's own declarations in declaration order.
// Imported declarations version under their declaring schema, only the
// qualified names they are bound to enter this hash.
func schemaHash(s *schema.SchemaDef) string {
	h := sha256.New()
	io.WriteString(h, s.Name)
	for _, t := range s.Types {
		io.WriteString(h, typeSig(t))
	}
	for _, e := range s.Entities {
		io.WriteString(h, entitySig(e))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func typeSig(t *schema.TypeDef) string {
	var b strings.Builder
	b.WriteString(";type ")
	b.WriteString(t.Name)
	switch t.Kind {
	case schema.Enum:
		b.WriteString(" enum(")
		b.WriteString(strings.Join(t.Labels, " "))
		b.WriteString(")")
	case schema.Select:
		b.WriteString(" select(")
		for i, m := range t.Members() {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(refSig(m))
		}
		b.WriteString(")")
	default:
		b.WriteByte(' ')
		b.WriteString(refSig(t.Underlying))
	}
	return b.String()
}

func entitySig(e *schema.EntityDef) string {
	var b strings.Builder
	b.WriteString(";entity ")
	b.WriteString(e.Name)
	if e.Abstract {
		b.WriteString(" abstract")
	}
	for _, s := range e.Supers {
		b.WriteString(" sub ")
		b.WriteString(s.Schema.Name)
		b.WriteByte('.')
		b.WriteString(s.Name)
	}
	for _, a := range e.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteByte(':')
		b.WriteString(refSig(a.Type))
		if a.Optional {
			b.WriteByte('?')
		}
	}
	for _, iv := range e.Inverses {
		b.WriteString(" inv ")
		b.WriteString(iv.Name)
		b.WriteByte(':')
		b.WriteString(iv.Target.Schema.Name)
		b.WriteByte('.')
		b.WriteString(iv.Target.Name)
		b.WriteByte('.')
		b.WriteString(iv.Attr.Name)
	}
	return b.String()
}

// refSig qualifies declaration references so moving a name between schemas
// changes the signature even when the local spelling stays the same.
func refSig(r schema.Ref) string {
	switch r := r.(type) {
	case schema.EntityRef:
		return r.Entity.Schema.Name + "." + r.Entity.Name
	case schema.TypeRef:
		return r.Type.Schema.Name + "." + r.Type.Name
	case schema.AggRef:
		res := strings.ToLower(r.Kind.String())
		if r.Bound != nil {
			if r.Bound.Unbounded {
				res += fmt.Sprintf("[%d:?]", r.Bound.Lower)
			} else {
				res += fmt.Sprintf("[%d:%d]", r.Bound.Lower, r.Bound.Upper)
			}
		}
		return res + " of " + refSig(r.Elem)
	}
	return strings.ToLower(schema.RefString(r))
}
