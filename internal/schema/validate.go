package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Validate compiles s with santhosh-tekuri/jsonschema and validates args
// against it. On failure the validator's error path is turned into an
// InvalidArguments error carrying a precise pointer into the offending
// argument.
func Validate(s Schema, args map[string]any) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decode schema: %w", err)
	}
	if err := c.AddResource("argument-schema.json", doc); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile("argument-schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	argsRaw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshal arguments: %w", err)
	}
	argsDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(argsRaw))
	if err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}

	if err := compiled.Validate(argsDoc); err != nil {
		var ve *jsonschema.ValidationError
		if ok := asValidationError(err, &ve); ok {
			loc := "/"
			if len(ve.InstanceLocation) > 0 {
				loc = "/" + joinPointer(ve.InstanceLocation)
			}
			return InvalidArgumentsError(loc, ve.Error())
		}
		return InvalidArgumentsError("/", err.Error())
	}
	return nil
}

func asValidationError(err error, out **jsonschema.ValidationError) bool {
	for err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			*out = ve
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func joinPointer(segments []string) string {
	out := ""
	for i, s := range segments {
		if i > 0 {
			out += "/"
		}
		out += s
	}
	return out
}
