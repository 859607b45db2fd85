package gengo

import (
	"github.com/pkg/errors"

	"github.com/mb0/step/exp"
	"github.com/mb0/step/gen"
	"github.com/mb0/step/schema"
)

// WriteType writes the native go type for a resolved type reference to c.
// Entity references render as pointers, aggregates as slices, named types
// qualified by their schema and stripped or imported against the context
// package.
func WriteType(c *gen.Ctx, r schema.Ref) error {
	switch t := r.(type) {
	case schema.BaseRef:
		var res string
		switch t.Kind {
		case exp.Number, exp.Real:
			res = "float64"
		case exp.Integer:
			res = "int64"
		case exp.Boolean:
			res = "bool"
		case exp.Logical:
			res = Import(c, "graph.Logic")
		case exp.String:
			res = "string"
		case exp.Binary:
			res = "[]byte"
		default:
			return errors.Errorf("simple type %s cannot be represented in go", t.Kind)
		}
		c.WriteString(res)
	case schema.EntityRef:
		c.WriteString(Import(c, "*"+qualified(t.Entity.Schema, t.Entity.Name)))
	case schema.TypeRef:
		c.WriteString(Import(c, qualified(t.Type.Schema, t.Type.Name)))
	case schema.AggRef:
		c.WriteString("[]")
		return WriteType(c, t.Elem)
	default:
		return errors.Errorf("type %T cannot be represented in go", r)
	}
	return nil
}

func qualified(s *schema.SchemaDef, name string) string {
	return s.Name + "." + gen.Name(name)
}
