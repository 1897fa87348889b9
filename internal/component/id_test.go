package component

import "testing"

func TestSanitizeID(t *testing.T) {
	cases := map[string]ID{
		"add-one":          "add-one",
		"Add One.wasm":     "add_one_wasm",
		"MY_Component--v2": "my_component--v2",
		"  leading":        "leading",
		"trailing  ":       "trailing",
	}
	for in, want := range cases {
		if got := SanitizeID(in); got != want {
			t.Errorf("SanitizeID(%q) = %q, want %q", in, got, want)
		}
	}
}
