package graph

import "github.com/mb0/step/schema"

// JSON returns a json encodable form of a resolved value. References encode as
// {"ref":id}, binaries as {"hex":text}, select values as
// {"member":name,"value":...} so the structure survives without the registry.
// Unset and omitted values encode as null.
func JSON(v Value) interface{} {
	switch v := v.(type) {
	case Int:
		return int64(v)
	case Real:
		return float64(v)
	case Str:
		return string(v)
	case Bin:
		return map[string]interface{}{"hex": string(v)}
	case Logic:
		return v.String()
	case EnumVal:
		return v.Label
	case RefVal:
		return map[string]interface{}{"ref": v.To.ID}
	case ListVal:
		res := make([]interface{}, 0, len(v))
		for _, e := range v {
			res = append(res, JSON(e))
		}
		return res
	case SelectVal:
		return map[string]interface{}{
			"member": memberName(v.Member),
			"value":  JSON(v.Value),
		}
	}
	return nil
}

func memberName(r schema.Ref) string {
	switch t := r.(type) {
	case schema.EntityRef:
		return t.Entity.Name
	case schema.TypeRef:
		return t.Type.Name
	}
	return ""
}
