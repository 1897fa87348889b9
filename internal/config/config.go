// Package config resolves Wassette's runtime configuration — plugin_dir,
// secrets_dir, and the global environment-variable allow-list — from a CLI
// flag, WASSETTE_* environment variable, TOML config file, and platform
// default, in that precedence order. Layering is a pure Merge function
// rather than a command-mutates-shared-context style, since nothing else in
// this runtime needs a shared command context.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config is the fully resolved configuration a Manager is built from.
type Config struct {
	PluginDir  string   `toml:"plugin_dir"`
	SecretsDir string   `toml:"secrets_dir"`
	EnvAllow   []string `toml:"-"`
}

// file mirrors the on-disk TOML document shape.
type file struct {
	PluginDir  string `toml:"plugin_dir"`
	SecretsDir string `toml:"secrets_dir"`
	Env        struct {
		Allow []string `toml:"allow"`
	} `toml:"environment_vars"`
}

// CLI carries values the command line set explicitly; zero values mean
// "not set on the command line".
type CLI struct {
	PluginDir  string
	SecretsDir string
}

// Env carries values read from WASSETTE_* environment variables.
type Env struct {
	PluginDir  string
	SecretsDir string
}

// ReadEnv reads the WASSETTE_PLUGIN_DIR and WASSETTE_SECRETS_DIR environment
// variables.
func ReadEnv() Env {
	return Env{
		PluginDir:  os.Getenv("WASSETTE_PLUGIN_DIR"),
		SecretsDir: os.Getenv("WASSETTE_SECRETS_DIR"),
	}
}

// LoadFile parses a TOML config file at path. A missing file is not an
// error: it resolves to a zero file, equivalent to "this layer sets
// nothing".
func LoadFile(path string) (*file, error) {
	f := &file{}
	if path == "" {
		return f, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return f, nil
	}
	if _, err := toml.DecodeFile(path, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Default returns the platform default directories: the XDG data dir on
// Linux/macOS ($XDG_DATA_HOME with a ~/.local/share fallback), %APPDATA% on
// Windows.
func Default() Config {
	base := dataHome()
	return Config{
		PluginDir:  filepath.Join(base, "wassette", "components"),
		SecretsDir: filepath.Join(base, "wassette", "secrets"),
		EnvAllow:   []string{"PATH"},
	}
}

func dataHome() string {
	if runtime.GOOS == "windows" {
		if v := os.Getenv("APPDATA"); v != "" {
			return v
		}
	}
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// Merge layers cli over env over f over def, in descending precedence, and
// returns the fully resolved Config. A layer "sets" a field when it is
// non-empty (strings and EnvAllow alike); an unset field falls through to
// the next layer.
func Merge(cli CLI, env Env, f *file, def Config) Config {
	out := def

	if f.PluginDir != "" {
		out.PluginDir = f.PluginDir
	}
	if f.SecretsDir != "" {
		out.SecretsDir = f.SecretsDir
	}
	if len(f.Env.Allow) > 0 {
		out.EnvAllow = f.Env.Allow
	}

	if env.PluginDir != "" {
		out.PluginDir = env.PluginDir
	}
	if env.SecretsDir != "" {
		out.SecretsDir = env.SecretsDir
	}

	if cli.PluginDir != "" {
		out.PluginDir = cli.PluginDir
	}
	if cli.SecretsDir != "" {
		out.SecretsDir = cli.SecretsDir
	}

	return out
}
