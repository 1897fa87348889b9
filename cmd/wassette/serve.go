package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wassette-project/wassette/internal/component"
	"github.com/wassette-project/wassette/internal/config"
	"github.com/wassette-project/wassette/internal/dispatch"
	"github.com/wassette-project/wassette/internal/embedder"
	"github.com/wassette-project/wassette/internal/secret"
	"github.com/wassette-project/wassette/internal/tools"
	"github.com/wassette-project/wassette/internal/wasserr"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Wassette runtime, reading tool calls as JSON lines on stdin.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return fmt.Errorf("resolve config: %w", err)
	}

	secrets, err := secret.New(cfg.SecretsDir)
	if err != nil {
		return fmt.Errorf("open secret store: %w", err)
	}

	embd, err := embedder.NewWazero(ctx)
	if err != nil {
		return fmt.Errorf("start wazero: %w", err)
	}

	mgr := component.New(cfg.PluginDir, embd, secrets, slog.Default())
	mgr.GlobalEnvAllow = cfg.EnvAllow

	if err := mgr.RebootRecovery(ctx); err != nil {
		return fmt.Errorf("reboot recovery: %w", err)
	}

	surface := dispatch.New(mgr, func(descs []tools.Descriptor) {
		slog.Default().Info("tool list changed", slog.Int("count", len(descs)))
	})

	return serveStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), surface)
}

func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	pluginDir, _ := flags.GetString(pluginDirFlag)
	secretsDir, _ := flags.GetString(secretsDirFlag)
	configPath, _ := flags.GetString(configFlag)

	f, err := config.LoadFile(configPath)
	if err != nil {
		return config.Config{}, err
	}

	return config.Merge(
		config.CLI{PluginDir: pluginDir, SecretsDir: secretsDir},
		config.ReadEnv(),
		f,
		config.Default(),
	), nil
}

// request and response are the minimal stdio JSON-lines shapes: proof that
// the tool surface's built-ins and dynamic dispatch are reachable end to
// end. This is not an MCP transport implementation; it exists to give a
// manual tester an entry point.
type request struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

type response struct {
	Result map[string]any `json:"result,omitempty"`
	Error  *errorBody     `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func serveStdio(ctx context.Context, in io.Reader, out io.Writer, surface *dispatch.Surface) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			enc.Encode(response{Error: &errorBody{Code: string(wasserr.InvalidArguments), Message: err.Error()}})
			continue
		}

		result, err := surface.Invoke(req.Tool, req.Args)
		if err != nil {
			enc.Encode(response{Error: &errorBody{Code: string(wasserr.CodeOf(err)), Message: err.Error()}})
			continue
		}
		enc.Encode(response{Result: result})
	}
	return scanner.Err()
}
