package graphpg

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/mb0/step/exp"
	"github.com/mb0/step/graph"
	"github.com/mb0/step/schema"
)

// WriteEnum writes the create statement for the pg enum type backing an
// enumeration type definition.
func WriteEnum(b *strings.Builder, t *schema.TypeDef) {
	b.WriteString("CREATE TYPE ")
	b.WriteString(t.Schema.Name)
	b.WriteByte('.')
	b.WriteString(t.Name)
	b.WriteString(" AS ENUM (")
	for i, l := range t.Labels {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('\'')
		b.WriteString(l)
		b.WriteByte('\'')
	}
	b.WriteString(")")
}

// WriteTable writes the create statement for an entity table. The instance id
// is the primary key, every explicit attribute of the entity and its
// supertypes gets a column.
func WriteTable(b *strings.Builder, e *schema.EntityDef) {
	b.WriteString("CREATE TABLE ")
	b.WriteString(e.Schema.Name)
	b.WriteByte('.')
	b.WriteString(e.Name)
	b.WriteString(" (\n\tid int8 PRIMARY KEY")
	for _, a := range e.AllAttrs {
		b.WriteString(",\n\t")
		b.WriteString(a.Name)
		b.WriteByte(' ')
		b.WriteString(colType(a.Type))
		if a.Optional {
			b.WriteString(" NULL")
		} else {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString("\n)")
}

func colType(r schema.Ref) string {
	switch t := schema.Deref(r).(type) {
	case schema.BaseRef:
		switch t.Kind {
		case exp.Integer:
			return "int8"
		case exp.Real, exp.Number:
			return "float8"
		case exp.Boolean:
			return "bool"
		}
		// logical, string and binary values are stored as written
		return "text"
	case schema.EntityRef:
		return "int8"
	case schema.TypeRef:
		if t.Type.Kind == schema.Enum {
			return t.Type.Schema.Name + "." + t.Type.Name
		}
	}
	// selects and aggregates keep their structure
	return "jsonb"
}

func pgValue(r schema.Ref, v graph.Value) (interface{}, error) {
	switch v := v.(type) {
	case graph.Unset, graph.Omit:
		return nil, nil
	case graph.Int:
		return int64(v), nil
	case graph.Real:
		return float64(v), nil
	case graph.Str:
		return string(v), nil
	case graph.Bin:
		return string(v), nil
	case graph.Logic:
		if b, ok := schema.Deref(r).(schema.BaseRef); ok && b.Kind == exp.Boolean {
			return v == graph.True, nil
		}
		return v.String(), nil
	case graph.EnumVal:
		return v.Label, nil
	case graph.RefVal:
		return v.To.ID, nil
	case graph.ListVal, graph.SelectVal:
		res, err := json.Marshal(graph.JSON(v))
		if err != nil {
			return nil, err
		}
		return string(res), nil
	}
	return nil, errors.Errorf("value %T cannot be stored", v)
}
