package tools

import "testing"

func TestBuiltinDescriptorsCoverEveryBuiltinName(t *testing.T) {
	descs := BuiltinDescriptors()
	if len(descs) != len(BuiltinNames) {
		t.Fatalf("got %d descriptors, want %d (one per builtin name)", len(descs), len(BuiltinNames))
	}
	seen := map[string]bool{}
	for _, d := range descs {
		if !isBuiltin(d.Name) {
			t.Errorf("descriptor %q is not a recognized builtin name", d.Name)
		}
		if seen[d.Name] {
			t.Errorf("duplicate descriptor for %q", d.Name)
		}
		seen[d.Name] = true
		if d.InputSchema == nil {
			t.Errorf("descriptor %q has no input schema", d.Name)
		}
	}
}
