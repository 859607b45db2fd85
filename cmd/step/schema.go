package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mb0/step/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema <file.exp|name>",
	Short: "compile a schema and print its declarations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := findSchema(loadRepo(), args[0])
		if err != nil {
			return err
		}
		printRegistry(os.Stdout, f.Reg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func printRegistry(w io.Writer, reg *schema.Registry) {
	for i, s := range reg.Schemas {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printSchema(w, s)
	}
}

func printSchema(w io.Writer, s *schema.SchemaDef) {
	fmt.Fprintf(w, "SCHEMA %s", s.Name)
	if s.Version != "" {
		fmt.Fprintf(w, " '%s'", s.Version)
	}
	fmt.Fprintln(w)
	if len(s.Types) > 0 {
		t := tablewriter.NewWriter(w)
		t.SetHeader([]string{"Type", "Kind", "Definition"})
		for _, td := range s.Types {
			t.Append([]string{td.Name, td.Kind.String(), typeDetail(td)})
		}
		t.Render()
	}
	if len(s.Entities) > 0 {
		t := tablewriter.NewWriter(w)
		t.SetHeader([]string{"Entity", "Attr", "Type", "Mods"})
		for _, e := range s.Entities {
			for _, row := range entityRows(e) {
				t.Append(row)
			}
		}
		t.Render()
	}
}

func typeDetail(t *schema.TypeDef) string {
	switch t.Kind {
	case schema.Enum:
		return "(" + strings.Join(t.Labels, ", ") + ")"
	case schema.Select:
		names := make([]string, 0, len(t.Members()))
		for _, m := range t.Members() {
			names = append(names, schema.RefString(m))
		}
		return "(" + strings.Join(names, ", ") + ")"
	}
	return schema.RefString(t.Underlying)
}

// entityRows returns one table row per attribute, the entity cell is left
// blank after the first row.
func entityRows(e *schema.EntityDef) [][]string {
	name := e.Name
	if e.Abstract {
		name += " (abstract)"
	}
	if len(e.Supers) > 0 {
		supers := make([]string, 0, len(e.Supers))
		for _, sup := range e.Supers {
			supers = append(supers, sup.Name)
		}
		name += " < " + strings.Join(supers, ", ")
	}
	var res [][]string
	for _, a := range e.AllAttrs {
		var mods []string
		if a.Optional {
			mods = append(mods, "opt")
		}
		if a.Owner != e {
			mods = append(mods, "from "+a.Owner.Name)
		}
		res = append(res, []string{name, a.Name, schema.RefString(a.Type),
			strings.Join(mods, ", ")})
		name = ""
	}
	for _, iv := range e.Inverses {
		res = append(res, []string{name, iv.Name,
			iv.Target.Name + "." + iv.Attr.Name, "inv"})
		name = ""
	}
	if name != "" {
		res = append(res, []string{name, "", "", ""})
	}
	return res
}
