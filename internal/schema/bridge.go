// Package schema implements the schema bridge: deterministic, lossless
// translation between wit.Type/wit.Value and JSON, and generation of the JSON
// Schema documents the tool surface advertises for each exported function.
//
// Schemas are represented as plain map[string]any ("Schema") rather than a
// bespoke struct, because the canonicalization and re-normalization
// operations (§4.1) are naturally phrased over raw JSON-shaped data: schemas
// round-trip through the metadata sidecar as JSON, and defensive
// re-normalization has to tolerate whatever an older format revision wrote.
package schema

import (
	"fmt"
	"sort"

	"github.com/wassette-project/wassette/internal/wasserr"
	"github.com/wassette-project/wassette/internal/wit"
)

// Schema is a JSON Schema document represented as its natural JSON shape.
type Schema = map[string]any

// S translates a single wit.Type into its JSON Schema representation,
// following the mapping table in §4.1.
func S(t wit.Type) Schema {
	switch t.Kind {
	case wit.KindPrimitive:
		return Schema{"type": "number"}
	case wit.KindBool:
		return Schema{"type": "boolean"}
	case wit.KindString:
		return Schema{"type": "string"}
	case wit.KindList:
		return Schema{"type": "array", "items": S(*t.Elem)}
	case wit.KindRecord:
		props := Schema{}
		var required []string
		for _, f := range t.Fields {
			props[f.Name] = S(f.Type)
			if !f.Optional {
				required = append(required, f.Name)
			}
		}
		out := Schema{"type": "object", "properties": props}
		if len(required) > 0 {
			sort.Strings(required)
			out["required"] = required
		}
		return out
	case wit.KindTuple:
		props := Schema{}
		required := make([]string, 0, len(t.Elems))
		for i, e := range t.Elems {
			name := fmt.Sprintf("val%d", i)
			props[name] = S(e)
			required = append(required, name)
		}
		return Schema{"type": "object", "properties": props, "required": required}
	case wit.KindVariant:
		var alts []any
		for _, c := range t.Cases {
			inner := Schema{"type": "null"}
			if c.Type != nil {
				inner = S(*c.Type)
			}
			alts = append(alts, Schema{
				"type":       "object",
				"properties": Schema{c.Name: inner},
				"required":   []string{c.Name},
			})
		}
		return Schema{"oneOf": alts}
	case wit.KindEnum:
		var alts []any
		for _, c := range t.Cases {
			alts = append(alts, Schema{
				"type":       "object",
				"properties": Schema{c.Name: Schema{"type": "null"}},
				"required":   []string{c.Name},
			})
		}
		return Schema{"oneOf": alts}
	case wit.KindOption:
		inner := S(*t.Elem)
		inner["nullable"] = true
		return inner
	case wit.KindResult:
		okSchema := Schema{"type": "null"}
		if t.Ok != nil {
			okSchema = S(*t.Ok)
		}
		errSchema := Schema{"type": "null"}
		if t.Err != nil {
			errSchema = S(*t.Err)
		}
		return Schema{"oneOf": []any{
			Schema{"type": "object", "properties": Schema{"ok": okSchema}, "required": []string{"ok"}},
			Schema{"type": "object", "properties": Schema{"err": errSchema}, "required": []string{"err"}},
		}}
	case wit.KindResource:
		return Schema{"type": "integer"}
	default:
		return Schema{"type": "integer"}
	}
}

// InputSchema builds the JSON Schema for a function's ordered parameter list:
// an object keyed by parameter name, all parameters required.
func InputSchema(params []wit.Param) Schema {
	props := Schema{}
	required := make([]string, 0, len(params))
	for _, p := range params {
		props[p.Name] = S(p.Type)
		required = append(required, p.Name)
	}
	out := Schema{"type": "object", "properties": props}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// OutputSchema applies the §4.1 output envelope. Functions returning nothing
// get a nil schema (omitted entirely). Multiple return values are packed into
// a tuple object (val0, val1, ...) inside "result", matching S's tuple
// convention.
func OutputSchema(results []wit.Type) Schema {
	if len(results) == 0 {
		return nil
	}
	var inner Schema
	if len(results) == 1 {
		inner = S(results[0])
	} else {
		props := Schema{}
		required := make([]string, 0, len(results))
		for i, r := range results {
			name := fmt.Sprintf("val%d", i)
			props[name] = S(r)
			required = append(required, name)
		}
		inner = Schema{"type": "object", "properties": props, "required": required}
	}
	return Schema{
		"type":       "object",
		"properties": Schema{"result": inner},
		"required":   []string{"result"},
	}
}

// InvalidArgumentsError is returned when an inbound JSON argument object does
// not match a function's input schema.
func InvalidArgumentsError(path, expected string) error {
	return wasserr.Newf(wasserr.InvalidArguments, "argument at %q: expected %s", path, expected)
}

// UnsupportedError is returned when a wit.Type kind has no JSON Schema
// mapping (should not happen for the closed Kind enum, but guards against
// future additions landing without a mapping).
func UnsupportedError(typeName string) error {
	return wasserr.Newf(wasserr.Unsupported, "unsupported type: %s", typeName)
}
