package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

const (
	pluginDirFlag  = "plugin-dir"
	secretsDirFlag = "secrets-dir"
	configFlag     = "config"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wassette [sub-command]",
		Short: "Wassette runs sandboxed WebAssembly Components as MCP tools.",
		Long: `Wassette is a security-oriented runtime that loads WebAssembly Components,
exposes their exports as MCP tools, and enforces a default-deny capability
policy for network, filesystem, environment, and resource-limit access.`,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil)))
			return nil
		},
	}

	cmd.PersistentFlags().String(pluginDirFlag, "", "directory components, their metadata, and their policy files are persisted in")
	cmd.PersistentFlags().String(secretsDirFlag, "", "directory per-component secret files are persisted in")
	cmd.PersistentFlags().String(configFlag, "", "path to a wassette.toml configuration file")

	cmd.AddCommand(newServeCmd())
	return cmd
}
