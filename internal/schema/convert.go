package schema

import (
	"fmt"

	"github.com/wassette-project/wassette/internal/wit"
)

// JSONToVals matches a JSON argument object against an ordered parameter list
// and produces the guest-value list, in parameter order.
func JSONToVals(args map[string]any, params []wit.Param) ([]wit.Value, error) {
	vals := make([]wit.Value, len(params))
	for i, p := range params {
		raw, ok := args[p.Name]
		if !ok {
			if p.Type.Kind == wit.KindOption {
				vals[i] = wit.Value{Kind: wit.KindOption, Some: nil}
				continue
			}
			return nil, InvalidArgumentsError(p.Name, describe(p.Type))
		}
		v, err := jsonToValue(raw, p.Type, p.Name)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func jsonToValue(raw any, t wit.Type, path string) (wit.Value, error) {
	switch t.Kind {
	case wit.KindPrimitive:
		n, ok := raw.(float64)
		if !ok {
			return wit.Value{}, InvalidArgumentsError(path, "number")
		}
		return wit.Value{Kind: wit.KindPrimitive, Num: n}, nil
	case wit.KindBool:
		b, ok := raw.(bool)
		if !ok {
			return wit.Value{}, InvalidArgumentsError(path, "boolean")
		}
		return wit.Value{Kind: wit.KindBool, Bool: b}, nil
	case wit.KindString:
		s, ok := raw.(string)
		if !ok {
			return wit.Value{}, InvalidArgumentsError(path, "string")
		}
		return wit.Value{Kind: wit.KindString, Str: s}, nil
	case wit.KindList:
		arr, ok := raw.([]any)
		if !ok {
			return wit.Value{}, InvalidArgumentsError(path, "array")
		}
		items := make([]wit.Value, len(arr))
		for i, e := range arr {
			v, err := jsonToValue(e, *t.Elem, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return wit.Value{}, err
			}
			items[i] = v
		}
		return wit.Value{Kind: wit.KindList, List: items}, nil
	case wit.KindRecord:
		obj, ok := raw.(map[string]any)
		if !ok {
			return wit.Value{}, InvalidArgumentsError(path, "object")
		}
		rec := make(map[string]wit.Value, len(t.Fields))
		for _, f := range t.Fields {
			fv, present := obj[f.Name]
			if !present {
				if f.Optional {
					continue
				}
				return wit.Value{}, InvalidArgumentsError(path+"."+f.Name, describe(f.Type))
			}
			v, err := jsonToValue(fv, f.Type, path+"."+f.Name)
			if err != nil {
				return wit.Value{}, err
			}
			rec[f.Name] = v
		}
		return wit.Value{Kind: wit.KindRecord, Record: rec}, nil
	case wit.KindTuple:
		obj, ok := raw.(map[string]any)
		if !ok {
			return wit.Value{}, InvalidArgumentsError(path, "tuple object")
		}
		elems := make([]wit.Value, len(t.Elems))
		for i, e := range t.Elems {
			name := fmt.Sprintf("val%d", i)
			fv, present := obj[name]
			if !present {
				return wit.Value{}, InvalidArgumentsError(path+"."+name, describe(e))
			}
			v, err := jsonToValue(fv, e, path+"."+name)
			if err != nil {
				return wit.Value{}, err
			}
			elems[i] = v
		}
		return wit.Value{Kind: wit.KindTuple, Tuple: elems}, nil
	case wit.KindVariant, wit.KindEnum:
		obj, ok := raw.(map[string]any)
		if !ok {
			return wit.Value{}, InvalidArgumentsError(path, "variant object")
		}
		for _, c := range t.Cases {
			fv, present := obj[c.Name]
			if !present {
				continue
			}
			if c.Type == nil {
				return wit.Value{Kind: t.Kind, CaseName: c.Name}, nil
			}
			v, err := jsonToValue(fv, *c.Type, path+"."+c.Name)
			if err != nil {
				return wit.Value{}, err
			}
			return wit.Value{Kind: t.Kind, CaseName: c.Name, Payload: &v}, nil
		}
		return wit.Value{}, InvalidArgumentsError(path, "one of the declared variant cases")
	case wit.KindOption:
		if raw == nil {
			return wit.Value{Kind: wit.KindOption, Some: nil}, nil
		}
		v, err := jsonToValue(raw, *t.Elem, path)
		if err != nil {
			return wit.Value{}, err
		}
		return wit.Value{Kind: wit.KindOption, Some: &v}, nil
	case wit.KindResult:
		obj, ok := raw.(map[string]any)
		if !ok {
			return wit.Value{}, InvalidArgumentsError(path, "result object")
		}
		if okRaw, present := obj["ok"]; present {
			var v wit.Value
			var err error
			if t.Ok != nil {
				v, err = jsonToValue(okRaw, *t.Ok, path+".ok")
				if err != nil {
					return wit.Value{}, err
				}
			}
			return wit.Value{Kind: wit.KindResult, OkVal: &v}, nil
		}
		if errRaw, present := obj["err"]; present {
			var v wit.Value
			var err error
			if t.Err != nil {
				v, err = jsonToValue(errRaw, *t.Err, path+".err")
				if err != nil {
					return wit.Value{}, err
				}
			}
			return wit.Value{Kind: wit.KindResult, ErrVal: &v}, nil
		}
		return wit.Value{}, InvalidArgumentsError(path, `object with "ok" or "err"`)
	case wit.KindResource:
		n, ok := raw.(float64)
		if !ok {
			return wit.Value{}, InvalidArgumentsError(path, "integer handle")
		}
		return wit.Value{Kind: wit.KindResource, Handle: uint32(n)}, nil
	default:
		return wit.Value{}, UnsupportedError(fmt.Sprintf("%v", t.Kind))
	}
}

// ValsToJSON converts function results to JSON and always applies the
// §4.1 envelope. A nil/empty vals slice yields an empty object (no "result"
// key), matching the "output schema omitted entirely" rule for void
// functions.
func ValsToJSON(vals []wit.Value) map[string]any {
	if len(vals) == 0 {
		return map[string]any{}
	}
	var inner any
	if len(vals) == 1 {
		inner = valueToJSON(vals[0])
	} else {
		obj := map[string]any{}
		for i, v := range vals {
			obj[fmt.Sprintf("val%d", i)] = valueToJSON(v)
		}
		inner = obj
	}
	return map[string]any{"result": inner}
}

func valueToJSON(v wit.Value) any {
	switch v.Kind {
	case wit.KindPrimitive:
		return v.Num
	case wit.KindBool:
		return v.Bool
	case wit.KindString:
		return v.Str
	case wit.KindList:
		arr := make([]any, len(v.List))
		for i, e := range v.List {
			arr[i] = valueToJSON(e)
		}
		return arr
	case wit.KindRecord:
		obj := make(map[string]any, len(v.Record))
		for k, e := range v.Record {
			obj[k] = valueToJSON(e)
		}
		return obj
	case wit.KindTuple:
		obj := make(map[string]any, len(v.Tuple))
		for i, e := range v.Tuple {
			obj[fmt.Sprintf("val%d", i)] = valueToJSON(e)
		}
		return obj
	case wit.KindVariant, wit.KindEnum:
		var payload any = nil
		if v.Payload != nil {
			payload = valueToJSON(*v.Payload)
		}
		return map[string]any{v.CaseName: payload}
	case wit.KindOption:
		if v.Some == nil {
			return nil
		}
		return valueToJSON(*v.Some)
	case wit.KindResult:
		if v.OkVal != nil {
			return map[string]any{"ok": valueToJSON(*v.OkVal)}
		}
		return map[string]any{"err": valueToJSON(*v.ErrVal)}
	case wit.KindResource:
		return v.Handle
	default:
		return nil
	}
}

func describe(t wit.Type) string {
	switch t.Kind {
	case wit.KindPrimitive:
		return "number"
	case wit.KindBool:
		return "boolean"
	case wit.KindString:
		return "string"
	case wit.KindList:
		return "array"
	case wit.KindRecord:
		return "object"
	case wit.KindTuple:
		return "tuple object"
	case wit.KindVariant:
		return "variant object"
	case wit.KindEnum:
		return "enum object"
	case wit.KindOption:
		return "optional " + describe(*t.Elem)
	case wit.KindResult:
		return "result object"
	case wit.KindResource:
		return "integer handle"
	default:
		return "value"
	}
}
