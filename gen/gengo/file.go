// Package gengo generates go bindings for compiled schemas.
package gengo

import (
	"go/format"
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"

	"github.com/mb0/step/gen"
	"github.com/mb0/step/schema"
)

func DefaultPkgs() map[string]string {
	return map[string]string{
		"graph": "github.com/mb0/step/graph",
	}
}

// NewCtx returns a generation context for one schema rendered into the go
// package at path.
func NewCtx(schemaName, path string) *gen.Ctx {
	return NewCtxPkgs(schemaName, path, DefaultPkgs())
}
func NewCtxPkgs(schemaName, path string, pkgs map[string]string) *gen.Ctx {
	pkgs[schemaName] = path
	return &gen.Ctx{
		Pkg: path, Target: "go",
		Pkgs:   pkgs,
		Header: "// generated code\n\n",
	}
}

// Import takes a qualified name of the form 'pkg.Decl', looks up a path from
// context packages map if available, otherwise the name is used as path. If
// the package path is the same as the context package it returns the 'Decl'
// part. Otherwise it adds the package path to the import list and returns a
// substring starting with the last package path segment: 'pkg.Decl'.
func Import(c *gen.Ctx, name string) string {
	ptr := name[0] == '*'
	if ptr {
		name = name[1:]
	}
	idx := strings.LastIndexByte(name, '.')
	var ns string
	if idx > -1 {
		ns = name[:idx]
	}
	if ns != "" && c != nil {
		if path, ok := c.Pkgs[ns]; ok {
			ns = path
		}
		if ns != c.Pkg {
			c.Imports.Add(ns)
		} else {
			name = name[idx+1:]
		}
	}
	if idx := strings.LastIndexByte(name, '/'); idx != -1 {
		name = name[idx+1:]
	}
	if ptr {
		name = "*" + name
	}
	return name
}

// WriteFile renders the schema bindings and writes them to fname.
func WriteFile(c *gen.Ctx, fname string, s *schema.SchemaDef) error {
	err := RenderFile(c, s)
	if err != nil {
		return errors.Wrapf(err, "render file %s", fname)
	}
	return ioutil.WriteFile(fname, c.Bytes(), 0644)
}

// RenderFile writes the schema declarations to a go file with package and
// import declarations. Types render first, entities second, each in
// declaration order.
func RenderFile(c *gen.Ctx, s *schema.SchemaDef) error {
	body := &gen.Ctx{Pkg: c.Pkg, Target: c.Target, Pkgs: c.Pkgs, Imports: c.Imports}
	for _, t := range s.Types {
		body.WriteString("\n")
		err := DeclareType(body, s, t)
		if err != nil {
			return err
		}
	}
	for _, e := range s.Entities {
		body.WriteString("\n")
		err := DeclareType(body, s, e)
		if err != nil {
			return err
		}
	}
	c.Imports = body.Imports
	c.WriteString(c.Header)
	c.WriteString("package ")
	c.WriteString(pkgName(c.Pkg))
	c.WriteString("\n")
	if len(c.Imports.List) > 0 {
		c.WriteString("\nimport (\n")
		groups := groupImports(c.Imports.List, "github")
		for i, gr := range groups {
			if i != 0 {
				c.WriteByte('\n')
			}
			for _, im := range gr {
				c.WriteString("\t\"")
				c.WriteString(im)
				c.WriteString("\"\n")
			}
		}
		c.WriteString(")\n")
	}
	res, err := format.Source(body.Bytes())
	if err != nil {
		return errors.Wrapf(err, "format schema %s", s.Name)
	}
	c.Write(res)
	return nil
}

func groupImports(list []string, pres ...string) (res [][]string) {
	other := make([]string, 0, len(list))
	rest := make([]string, 0, len(list))
Next:
	for _, im := range list {
		for _, pre := range pres {
			if strings.HasPrefix(im, pre) {
				rest = append(rest, im)
				continue Next
			}
		}
		other = append(other, im)
	}
	if len(other) > 0 {
		res = append(res, other)
	}
	if len(rest) > 0 {
		res = append(res, rest)
	}
	return res
}

// DeclareType writes a go type declaration for a schema declaration: structs
// for entities with the full inherited attribute list, named string types
// with consts for enumerations, marker interfaces for selects and named types
// for defined types.
func DeclareType(c *gen.Ctx, s *schema.SchemaDef, d schema.Decl) error {
	switch d := d.(type) {
	case *schema.TypeDef:
		name := gen.Name(d.Name)
		switch d.Kind {
		case schema.Defined:
			c.Fmt("type %s ", name)
			err := WriteType(c, d.Underlying)
			if err != nil {
				return err
			}
			c.WriteString("\n")
		case schema.Enum:
			c.Fmt("type %s string\n\n", name)
			writeEnumConsts(c, d, name)
		case schema.Select:
			c.Fmt("type %s interface {\n\tis%s()\n}\n", name, name)
			// marker methods attach only to declarations of this schema
			for _, m := range d.Members() {
				switch m := m.(type) {
				case schema.EntityRef:
					if m.Entity.Schema.Name == s.Name {
						c.Fmt("\nfunc (*%s) is%s() {}\n",
							gen.Name(m.Entity.Name), name)
					}
				case schema.TypeRef:
					if m.Type.Schema.Name == s.Name {
						c.Fmt("\nfunc (%s) is%s() {}\n",
							gen.Name(m.Type.Name), name)
					}
				}
			}
		}
	case *schema.EntityDef:
		c.Fmt("type %s struct {\n", gen.Name(d.Name))
		for _, a := range d.AllAttrs {
			c.Fmt("\t%s ", gen.Name(a.Name))
			if a.Optional && needPtr(a.Type) {
				c.WriteByte('*')
			}
			err := WriteType(c, a.Type)
			if err != nil {
				return errors.Wrapf(err, "attribute %s of %s", a.Name, d.Name)
			}
			tag := a.Name
			if a.Optional {
				tag += ",opt"
			}
			c.Fmt(" `step:%q`\n", tag)
		}
		c.WriteString("}\n")
	default:
		return errors.Errorf("declaration %T cannot be generated", d)
	}
	return nil
}

func pkgName(pkg string) string {
	if idx := strings.LastIndexByte(pkg, '/'); idx != -1 {
		pkg = pkg[idx+1:]
	}
	if idx := strings.IndexByte(pkg, '.'); idx != -1 {
		pkg = pkg[:idx]
	}
	return pkg
}

// needPtr reports whether an optional attribute of that type needs a pointer
// to represent the unset state. References, slices and select interfaces are
// already nilable.
func needPtr(r schema.Ref) bool {
	switch t := schema.Deref(r).(type) {
	case schema.BaseRef:
		return true
	case schema.TypeRef:
		return t.Type.Kind == schema.Enum
	}
	return false
}

func writeEnumConsts(c *gen.Ctx, t *schema.TypeDef, ref string) {
	c.WriteString("const (")
	for _, l := range t.Labels {
		c.Fmt("\n\t%s%s %s = %q", ref, gen.Name(l), ref, l)
	}
	c.WriteString("\n)\n")
}
