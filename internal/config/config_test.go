package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergePrecedenceCLIBeatsEnvBeatsFileBeatsDefault(t *testing.T) {
	def := Config{PluginDir: "/default/plugins", SecretsDir: "/default/secrets", EnvAllow: []string{"PATH"}}
	f := &file{PluginDir: "/file/plugins", SecretsDir: "/file/secrets"}
	f.Env.Allow = []string{"PATH", "HOME"}
	env := Env{PluginDir: "/env/plugins"}
	cli := CLI{PluginDir: "/cli/plugins"}

	got := Merge(cli, env, f, def)
	require.Equal(t, "/cli/plugins", got.PluginDir)
	require.Equal(t, "/file/secrets", got.SecretsDir)
	require.Equal(t, []string{"PATH", "HOME"}, got.EnvAllow)
}

func TestMergeFallsThroughToDefaultWhenNothingSet(t *testing.T) {
	def := Config{PluginDir: "/default/plugins", SecretsDir: "/default/secrets", EnvAllow: []string{"PATH"}}
	got := Merge(CLI{}, Env{}, &file{}, def)
	require.Equal(t, def, got)
}

func TestLoadFileMissingIsNotAnError(t *testing.T) {
	f, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, "", f.PluginDir)
}

func TestLoadFileParsesTOMLShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wassette.toml")
	contents := `
plugin_dir = "/var/lib/wassette/components"
secrets_dir = "/var/lib/wassette/secrets"

[environment_vars]
allow = ["PATH", "HOME", "LANG"]
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/wassette/components", f.PluginDir)
	require.Equal(t, "/var/lib/wassette/secrets", f.SecretsDir)
	require.Equal(t, []string{"PATH", "HOME", "LANG"}, f.Env.Allow)
}

func TestReadEnvReadsWassettePrefixedVars(t *testing.T) {
	t.Setenv("WASSETTE_PLUGIN_DIR", "/env/plugins")
	t.Setenv("WASSETTE_SECRETS_DIR", "/env/secrets")

	env := ReadEnv()
	require.Equal(t, "/env/plugins", env.PluginDir)
	require.Equal(t, "/env/secrets", env.SecretsDir)
}
