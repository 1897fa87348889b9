package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFilePlacesArtifactUnderPluginDir(t *testing.T) {
	srcDir := t.TempDir()
	pluginDir := t.TempDir()

	src := filepath.Join(srcDir, "add-one.wasm")
	require.NoError(t, os.WriteFile(src, []byte("wasm bytes"), 0o644))

	l := New(pluginDir)
	result, err := l.Load(context.Background(), "file://"+src, func(stem string) string { return stem })
	require.NoError(t, err)
	require.Equal(t, "add-one", result.Stem)
	require.Equal(t, filepath.Join(pluginDir, "add-one.wasm"), result.ArtifactPath)

	data, err := os.ReadFile(result.ArtifactPath)
	require.NoError(t, err)
	require.Equal(t, "wasm bytes", string(data))

	// source file must survive: file:// load copies-or-links, never moves.
	_, err = os.Stat(src)
	require.NoError(t, err)
}

func TestLoadBarePathWithoutScheme(t *testing.T) {
	srcDir := t.TempDir()
	pluginDir := t.TempDir()
	src := filepath.Join(srcDir, "calc.wasm")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	l := New(pluginDir)
	result, err := l.Load(context.Background(), src, func(stem string) string { return stem })
	require.NoError(t, err)
	require.Equal(t, "calc", result.Stem)
}

func TestLoadFailedLeavesNoTrace(t *testing.T) {
	pluginDir := t.TempDir()
	l := New(pluginDir)

	_, err := l.Load(context.Background(), "file:///does/not/exist.wasm", func(stem string) string { return stem })
	require.Error(t, err)

	entries, err := os.ReadDir(pluginDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestBufferedCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	require.NoError(t, bufferedCopy(src, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestStemFromRef(t *testing.T) {
	cases := map[string]string{
		"registry.example.com/components/add-one:latest":          "add-one",
		"registry.example.com/components/add-one@sha256:deadbeef": "add-one",
		"registry.example.com/components/add-one":                 "add-one",
	}
	for ref, want := range cases {
		require.Equal(t, want, stemFromRef(ref), ref)
	}
}

func TestRemoveIsNotAnErrorWhenAbsent(t *testing.T) {
	l := New(t.TempDir())
	require.NoError(t, l.Remove("nonexistent"))
}
