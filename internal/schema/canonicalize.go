package schema

import "fmt"

// CanonicalizeOutputSchema re-normalizes a schema loaded from a metadata
// sidecar written by a previous format revision: positional "items" arrays
// (the draft-07 tuple-validation idiom) are rewritten into this bridge's
// valN-object convention, and a missing top-level {"result": ...} wrapper is
// added. It is idempotent: running it twice yields the same schema as running
// it once, because the intermediate form no longer contains positional
// "items" arrays or an unwrapped top level.
func CanonicalizeOutputSchema(s Schema) Schema {
	if s == nil {
		return nil
	}
	return ensureEnvelope(normalizeNode(s))
}

func ensureEnvelope(s Schema) Schema {
	if isEnvelope(s) {
		return s
	}
	return Schema{
		"type":       "object",
		"properties": Schema{"result": s},
		"required":   []string{"result"},
	}
}

func isEnvelope(s Schema) bool {
	if asString(s["type"]) != "object" {
		return false
	}
	props, ok := asSchema(s["properties"])
	if !ok {
		return false
	}
	_, hasResult := props["result"]
	return hasResult
}

func normalizeNode(node any) any {
	s, ok := asSchema(node)
	if !ok {
		return node
	}
	out := make(Schema, len(s))
	for k, v := range s {
		out[k] = v
	}

	if itemsArr, ok := out["items"].([]any); ok {
		props := Schema{}
		required := make([]string, 0, len(itemsArr))
		for i, item := range itemsArr {
			name := fmt.Sprintf("val%d", i)
			props[name] = normalizeNode(item)
			required = append(required, name)
		}
		delete(out, "items")
		out["type"] = "object"
		out["properties"] = props
		out["required"] = required
		return out
	}

	if items, ok := out["items"]; ok {
		out["items"] = normalizeNode(items)
	}
	if props, ok := asSchema(out["properties"]); ok {
		newProps := make(Schema, len(props))
		for k, v := range props {
			newProps[k] = normalizeNode(v)
		}
		out["properties"] = newProps
	}
	if alts, ok := out["oneOf"].([]any); ok {
		newAlts := make([]any, len(alts))
		for i, a := range alts {
			newAlts[i] = normalizeNode(a)
		}
		out["oneOf"] = newAlts
	}
	return out
}

// NormalizeValue re-normalizes a raw decoded JSON value against its already
// canonicalized schema: positional arrays standing in for a tuple become
// valN objects, and properties the schema marks required but that are absent
// from the value default to null.
func NormalizeValue(raw any, s Schema) any {
	if s == nil {
		return raw
	}
	if arr, ok := raw.([]any); ok {
		if props, ok := asSchema(s["properties"]); ok {
			obj := make(map[string]any, len(arr))
			for i, e := range arr {
				name := fmt.Sprintf("val%d", i)
				if fieldSchema, ok := asSchema(props[name]); ok {
					obj[name] = NormalizeValue(e, fieldSchema)
				} else {
					obj[name] = e
				}
			}
			raw = obj
		}
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return raw
	}
	props, _ := asSchema(s["properties"])
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		if fieldSchema, ok := asSchema(props[k]); ok {
			out[k] = NormalizeValue(v, fieldSchema)
		} else {
			out[k] = v
		}
	}
	for _, req := range asStringSlice(s["required"]) {
		if _, present := out[req]; !present {
			out[req] = nil
		}
	}
	return out
}

func asSchema(v any) (Schema, bool) {
	switch t := v.(type) {
	case Schema:
		return t, true
	case map[string]any:
		return Schema(t), true
	default:
		return nil, false
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
