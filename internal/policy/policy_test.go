package policy

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseValidatesVersion(t *testing.T) {
	doc, err := Parse([]byte(`
version: "1.0"
description: test
permissions:
  network:
    allow:
      - host: api.example.com
`))
	require.NoError(t, err)
	require.Equal(t, "api.example.com", doc.Permissions.Network.Allow[0].Host)

	_, err = Parse([]byte(`version: "2.0"`))
	require.Error(t, err)
}

func TestParseRejectsBadAccessMode(t *testing.T) {
	_, err := Parse([]byte(`
version: "1.0"
permissions:
  storage:
    allow:
      - uri: file:///tmp/data
        access: [delete]
`))
	require.Error(t, err)
}

func TestGrantRevokeNetworkMonotonicity(t *testing.T) {
	base := New("base")
	granted := GrantNetwork(base, "api.example.com")
	revoked := RevokeNetwork(granted, "api.example.com")
	if diff := cmp.Diff(base, revoked); diff != "" {
		t.Fatalf("grant-then-revoke not identity (-base +revoked):\n%s", diff)
	}
}

func TestGrantRevokeStorageMonotonicity(t *testing.T) {
	base := New("base")
	granted := GrantStorage(base, "file:///tmp/data", []Access{AccessRead})
	revoked := RevokeStorage(granted, "file:///tmp/data")
	if diff := cmp.Diff(base, revoked); diff != "" {
		t.Fatalf("grant-then-revoke not identity (-base +revoked):\n%s", diff)
	}
}

func TestGrantStorageUnionsAccessModes(t *testing.T) {
	doc := New("")
	doc = GrantStorage(doc, "file:///tmp/data", []Access{AccessRead})
	doc = GrantStorage(doc, "file:///tmp/data", []Access{AccessWrite})
	require.ElementsMatch(t, []Access{AccessRead, AccessWrite}, doc.Permissions.Storage.Allow[0].Access)
}

func TestGrantRevokeEnvironmentMonotonicity(t *testing.T) {
	base := New("base")
	granted := GrantEnvironment(base, "OPENWEATHER_API_KEY", nil)
	revoked := RevokeEnvironment(granted, "OPENWEATHER_API_KEY")
	if diff := cmp.Diff(base, revoked); diff != "" {
		t.Fatalf("grant-then-revoke not identity (-base +revoked):\n%s", diff)
	}
}

func TestResourceLimitsLastWriterWins(t *testing.T) {
	doc := New("")
	doc, err := GrantMemoryLimit(doc, "64Mi")
	require.NoError(t, err)
	doc, err = GrantMemoryLimit(doc, "128Mi")
	require.NoError(t, err)
	require.Equal(t, "128Mi", doc.Permissions.Resources.Limits.Memory)
}

func TestGrantMemoryLimitRejectsInvalid(t *testing.T) {
	_, err := GrantMemoryLimit(New(""), "not-a-size")
	require.Error(t, err)
}

func TestParseMemory(t *testing.T) {
	cases := map[string]int64{
		"0":    0,
		"512":  512,
		"1Ki":  1024,
		"2Mi":  2 * 1024 * 1024,
		"1Gi":  1 << 30,
		"1Ti":  1 << 40,
	}
	for in, want := range cases {
		got, err := ParseMemory(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got.Value, in)
	}
	_, err := ParseMemory("abc")
	require.Error(t, err)
	_, err = ParseMemory("-5")
	require.Error(t, err)
}

func TestParseCPU(t *testing.T) {
	got, err := ParseCPU("500m")
	require.NoError(t, err)
	require.Equal(t, int64(500), got.Value)

	got, err = ParseCPU("1.5")
	require.NoError(t, err)
	require.Equal(t, int64(1500), got.Value)

	_, err = ParseCPU("nonsense")
	require.Error(t, err)
}

func TestMarshalParseRoundTrip(t *testing.T) {
	doc := New("round trip")
	doc = GrantNetwork(doc, "api.example.com")
	doc = GrantStorage(doc, "file:///tmp/data", []Access{AccessRead, AccessWrite})
	value := "abc"
	doc = GrantEnvironment(doc, "OPENWEATHER_API_KEY", &value)

	raw, err := Marshal(doc)
	require.NoError(t, err)

	parsed, err := Parse(raw)
	require.NoError(t, err)
	if diff := cmp.Diff(doc, parsed); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
