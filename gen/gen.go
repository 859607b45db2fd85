// Package gen provides code generation helpers shared by the target specific
// generators.
package gen

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// Ctx is the code generation context holding the output buffer and target
// information.
type Ctx struct {
	bytes.Buffer
	Pkg    string
	Target string
	Header string
	Pkgs   map[string]string
	Imports
}

// Fmt writes the formatted string to the buffer.
func (c *Ctx) Fmt(format string, args ...interface{}) {
	fmt.Fprintf(&c.Buffer, format, args...)
}

// Imports has a list of alphabetically sorted dependencies. A dependency can
// be any string recognized by the generator. For go imports the dependency is
// a package path.
type Imports struct {
	List []string
}

// Add inserts path into the import list if not already present.
func (i *Imports) Add(path string) {
	idx := sort.SearchStrings(i.List, path)
	if idx < len(i.List) && i.List[idx] == path {
		return
	}
	i.List = append(i.List, "")
	copy(i.List[idx+1:], i.List[idx:])
	i.List[idx] = path
}

// Name converts a schema level name to an exported Go name: lower snake case
// becomes camel case.
func Name(name string) string {
	var b strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
