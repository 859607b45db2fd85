package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mb0/step/graph"
	"github.com/mb0/step/schema"
)

var replSchema string

var replCmd = &cobra.Command{
	Use:   "repl <file.step>",
	Short: "inspect a resolved exchange file interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, errs := loadModel(loadRepo(), args[0], replSchema)
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "%v\n", e)
		}
		if g == nil {
			return errors.Errorf("%s does not resolve", args[0])
		}
		return repl(g)
	},
}

func init() {
	replCmd.Flags().StringVarP(&replSchema, "schema", "s", "",
		"schema name or express file, default is the file schema header")
	rootCmd.AddCommand(replCmd)
}

func repl(g *graph.Graph) error {
	lin := liner.NewLiner()
	defer lin.Close()
	lin.SetMultiLineMode(true)
	fmt.Printf("%d instances loaded. e NAME, #ID, refs #ID, types, schemas, ctrl-d quits.\n",
		len(g.List))
	var got string
	var err error
	for i := 0; ; i++ {
		if i == 0 {
			got, err = lin.PromptWithSuggestion("> ", "types", 5)
		} else {
			got, err = lin.Prompt("> ")
		}
		if err != nil {
			if err == io.EOF {
				fmt.Println()
				return nil
			}
			fmt.Fprintf(os.Stderr, "unexpected error reading prompt: %v\n", err)
			continue
		}
		got = strings.TrimSpace(got)
		if got == "" {
			continue
		}
		lin.AppendHistory(got)
		if got == "q" || got == "quit" {
			return nil
		}
		if err := replEval(os.Stdout, g, got); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func replEval(w io.Writer, g *graph.Graph, line string) error {
	cmd, rest := line, ""
	if i := strings.IndexByte(line, ' '); i >= 0 {
		cmd, rest = line[:i], strings.TrimSpace(line[i+1:])
	}
	if cmd == "" {
		return nil
	}
	switch {
	case cmd == "types":
		printRegistry(w, g.Reg)
	case cmd == "schemas":
		for _, s := range g.Reg.Schemas {
			fmt.Fprintf(w, "%s: %d types, %d entities\n",
				s.Name, len(s.Types), len(s.Entities))
		}
	case cmd == "e":
		if rest == "" {
			return errors.New("e needs an entity name")
		}
		e := g.Reg.Entity(rest)
		if e == nil {
			return errors.Errorf("entity %s not found", rest)
		}
		printEntity(w, e)
	case cmd == "refs":
		in, err := replInst(g, rest)
		if err != nil {
			return err
		}
		printBackrefs(w, in)
	case cmd[0] == '#':
		in, err := replInst(g, cmd)
		if err != nil {
			return err
		}
		printInstance(w, in)
	default:
		return errors.Errorf("unknown command %s", line)
	}
	return nil
}

func replInst(g *graph.Graph, arg string) (*graph.Instance, error) {
	if !strings.HasPrefix(arg, "#") {
		return nil, errors.Errorf("expect an instance id like #42, got %q", arg)
	}
	id, err := strconv.ParseInt(arg[1:], 10, 64)
	if err != nil {
		return nil, errors.Errorf("expect an instance id like #42, got %q", arg)
	}
	in := g.Instance(id)
	if in == nil {
		return nil, errors.Errorf("no instance %s", arg)
	}
	return in, nil
}

func printEntity(w io.Writer, e *schema.EntityDef) {
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"Entity", "Attr", "Type", "Mods"})
	for _, row := range entityRows(e) {
		t.Append(row)
	}
	t.Render()
}

func printInstance(w io.Writer, in *graph.Instance) {
	fmt.Fprintf(w, "#%d %s\n", in.ID, strings.Join(in.Tags, " "))
	leaf := in.Leaf()
	var attrs []*schema.AttrDef
	if leaf != nil {
		attrs = leaf.AllAttrs
	} else {
		for _, d := range in.Defs {
			attrs = append(attrs, d.Attrs...)
		}
	}
	for _, a := range attrs {
		v, ok := in.Attr(a.Name)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "\t%s = %s\n", a.Name, valueString(v))
	}
}

func printBackrefs(w io.Writer, in *graph.Instance) {
	n := 0
	seen := make(map[string]bool)
	for _, d := range in.Defs {
		for _, c := range d.Closure {
			for _, iv := range c.Inverses {
				if seen[iv.Name] {
					continue
				}
				seen[iv.Name] = true
				refs := in.Backrefs(iv.Name)
				if len(refs) == 0 {
					continue
				}
				ids := make([]string, 0, len(refs))
				for _, r := range refs {
					ids = append(ids, "#"+strconv.FormatInt(r.ID, 10))
				}
				fmt.Fprintf(w, "\t%s: %s\n", iv.Name, strings.Join(ids, " "))
				n += len(refs)
			}
		}
	}
	if n == 0 {
		fmt.Fprintln(w, "\tno references")
	}
}

// valueString renders a value in exchange notation for display, nested lists
// and typed select members included.
func valueString(v graph.Value) string {
	switch v := v.(type) {
	case graph.Int:
		return strconv.FormatInt(int64(v), 10)
	case graph.Real:
		return strconv.FormatFloat(float64(v), 'G', -1, 64)
	case graph.Str:
		return "'" + string(v) + "'"
	case graph.Bin:
		return `"` + string(v) + `"`
	case graph.Logic:
		return "." + v.String() + "."
	case graph.EnumVal:
		return "." + strings.ToUpper(v.Label) + "."
	case graph.RefVal:
		if v.To == nil {
			return "#?"
		}
		return "#" + strconv.FormatInt(v.To.ID, 10)
	case graph.ListVal:
		parts := make([]string, 0, len(v))
		for _, e := range v {
			parts = append(parts, valueString(e))
		}
		return "(" + strings.Join(parts, ",") + ")"
	case graph.SelectVal:
		inner := valueString(v.Value)
		if tr, ok := v.Member.(schema.TypeRef); ok {
			return strings.ToUpper(tr.Type.Name) + "(" + inner + ")"
		}
		return inner
	case graph.Unset:
		return "$"
	case graph.Omit:
		return "*"
	}
	return fmt.Sprintf("%v", v)
}
