package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/wassette-project/wassette/internal/wit"
)

func TestRoundTripTypes(t *testing.T) {
	cases := []struct {
		name   string
		typ    wit.Type
		params []wit.Param
		args   map[string]any
	}{
		{
			name:   "add-one",
			typ:    wit.Primitive(),
			params: []wit.Param{{Name: "x", Type: wit.Primitive()}},
			args:   map[string]any{"x": 41.0},
		},
		{
			name: "record",
			typ:  wit.Record(wit.Field{Name: "name", Type: wit.String()}, wit.Field{Name: "age", Type: wit.Primitive()}),
			params: []wit.Param{{Name: "person", Type: wit.Record(
				wit.Field{Name: "name", Type: wit.String()},
				wit.Field{Name: "age", Type: wit.Primitive()},
			)}},
			args: map[string]any{"person": map[string]any{"name": "ada", "age": 30.0}},
		},
		{
			name:   "list",
			typ:    wit.List(wit.Primitive()),
			params: []wit.Param{{Name: "xs", Type: wit.List(wit.Primitive())}},
			args:   map[string]any{"xs": []any{1.0, 2.0, 3.0}},
		},
		{
			name:   "option-present",
			typ:    wit.Option(wit.String()),
			params: []wit.Param{{Name: "maybe", Type: wit.Option(wit.String())}},
			args:   map[string]any{"maybe": "hi"},
		},
		{
			name:   "option-absent",
			typ:    wit.Option(wit.String()),
			params: []wit.Param{{Name: "maybe", Type: wit.Option(wit.String())}},
			args:   map[string]any{"maybe": nil},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vals, err := JSONToVals(tc.args, tc.params)
			require.NoError(t, err)
			out := ValsToJSON(vals)
			require.Equal(t, tc.args[tc.params[0].Name], out["result"])
		})
	}
}

func TestTupleResultEnvelope(t *testing.T) {
	span := []wit.Type{wit.Primitive(), wit.Primitive()}
	vals := []wit.Value{
		{Kind: wit.KindPrimitive, Num: 123},
		{Kind: wit.KindPrimitive, Num: 456},
	}
	out := ValsToJSON(vals)
	want := map[string]any{"result": map[string]any{"val0": 123.0, "val1": 456.0}}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("unexpected envelope (-want +got):\n%s", diff)
	}

	outSchema := OutputSchema(span)
	props := outSchema["properties"].(Schema)
	result := props["result"].(Schema)
	require.Equal(t, "object", result["type"])
}

func TestVoidFunctionOmitsOutputSchema(t *testing.T) {
	require.Nil(t, OutputSchema(nil))
	require.Equal(t, map[string]any{}, ValsToJSON(nil))
}

func TestVariantRoundTrip(t *testing.T) {
	strT := wit.String()
	v := wit.Variant(wit.Case{Name: "ok", Type: &strT}, wit.Case{Name: "empty"})

	okArgs := map[string]any{"v": map[string]any{"ok": "hello"}}
	vals, err := JSONToVals(okArgs, []wit.Param{{Name: "v", Type: v}})
	require.NoError(t, err)
	require.Equal(t, "ok", vals[0].CaseName)
	require.Equal(t, "hello", vals[0].Payload.Str)

	emptyArgs := map[string]any{"v": map[string]any{"empty": nil}}
	vals, err = JSONToVals(emptyArgs, []wit.Param{{Name: "v", Type: v}})
	require.NoError(t, err)
	require.Equal(t, "empty", vals[0].CaseName)
	require.Nil(t, vals[0].Payload)
}

func TestResultRoundTrip(t *testing.T) {
	okT := wit.Primitive()
	errT := wit.String()
	r := wit.Result(&okT, &errT)

	vals, err := JSONToVals(map[string]any{"r": map[string]any{"ok": 42.0}}, []wit.Param{{Name: "r", Type: r}})
	require.NoError(t, err)
	require.NotNil(t, vals[0].OkVal)
	require.Equal(t, 42.0, vals[0].OkVal.Num)

	out := ValsToJSON(vals)
	require.Equal(t, map[string]any{"ok": 42.0}, out["result"])
}

func TestInvalidArgumentsError(t *testing.T) {
	_, err := JSONToVals(map[string]any{"x": "not a number"}, []wit.Param{{Name: "x", Type: wit.Primitive()}})
	require.Error(t, err)
}

func TestIdempotentCanonicalization(t *testing.T) {
	schemas := []Schema{
		OutputSchema([]wit.Type{wit.Primitive()}),
		OutputSchema([]wit.Type{wit.Primitive(), wit.Primitive()}),
		{"type": "object", "properties": Schema{"val0": Schema{"type": "number"}, "val1": Schema{"type": "string"}}, "items": []any{Schema{"type": "number"}, Schema{"type": "string"}}},
		InputSchema([]wit.Param{{Name: "x", Type: wit.Primitive()}}),
	}
	for i, s := range schemas {
		once := CanonicalizeOutputSchema(s)
		twice := CanonicalizeOutputSchema(once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatalf("case %d: canonicalize not idempotent (-once +twice):\n%s", i, diff)
		}
	}
}

func TestCanonicalizeBareArrayBecomesValNObject(t *testing.T) {
	bare := Schema{
		"type":  "array",
		"items": []any{Schema{"type": "number"}, Schema{"type": "number"}},
	}
	got := CanonicalizeOutputSchema(bare)
	props := got["properties"].(Schema)["result"].(Schema)["properties"].(Schema)
	require.Contains(t, props, "val0")
	require.Contains(t, props, "val1")
}

func TestValidateRejectsWrongShape(t *testing.T) {
	s := InputSchema([]wit.Param{{Name: "x", Type: wit.Primitive()}})
	err := Validate(s, map[string]any{"x": "not a number"})
	require.Error(t, err)
}

func TestValidateAcceptsCorrectShape(t *testing.T) {
	s := InputSchema([]wit.Param{{Name: "x", Type: wit.Primitive()}})
	require.NoError(t, Validate(s, map[string]any{"x": 41.0}))
}
