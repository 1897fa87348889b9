package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wassette-project/wassette/internal/component"
	"github.com/wassette-project/wassette/internal/embedder"
	"github.com/wassette-project/wassette/internal/secret"
	"github.com/wassette-project/wassette/internal/wasserr"
	"github.com/wassette-project/wassette/internal/wit"
)

type stubEmbedder struct{ functions []wit.Function }

type stubCompiled struct{ funcs []wit.Function }

func (stubCompiled) Close(context.Context) error { return nil }

type stubTemplate struct{ funcs []wit.Function }

func (stubTemplate) Close(context.Context) error { return nil }

type stubInstance struct {
	funcs []wit.Function
	cfg   embedder.SandboxConfig
}

func (stubInstance) Close(context.Context) error { return nil }

func (e *stubEmbedder) Compile(ctx context.Context, wasmBytes []byte) (embedder.CompiledComponent, error) {
	return stubCompiled{funcs: e.functions}, nil
}

func (e *stubEmbedder) Template(ctx context.Context, c embedder.CompiledComponent) (embedder.Template, error) {
	return stubTemplate{funcs: c.(stubCompiled).funcs}, nil
}

func (e *stubEmbedder) ExportedFunctions(ctx context.Context, c embedder.CompiledComponent) ([]wit.Function, error) {
	return c.(stubCompiled).funcs, nil
}

func (e *stubEmbedder) Instantiate(ctx context.Context, tmpl embedder.Template, cfg embedder.SandboxConfig) (embedder.Instance, error) {
	return stubInstance{funcs: tmpl.(stubTemplate).funcs, cfg: cfg}, nil
}

func (e *stubEmbedder) Invoke(ctx context.Context, inst embedder.Instance, fn string, args []wit.Value) ([]wit.Value, error) {
	i := inst.(stubInstance)
	switch fn {
	case "add_one":
		return []wit.Value{{Kind: wit.KindPrimitive, Num: args[0].Num + 1}}, nil
	case "dial_out":
		if i.cfg.Network == nil || !i.cfg.Network.Allow("api.example.com") {
			return nil, wasserr.Newf(wasserr.PolicyViolation, "network access denied")
		}
		return nil, nil
	default:
		return nil, wasserr.Newf(wasserr.UnknownComponent, "no such export %q", fn)
	}
}

func setupSurface(t *testing.T, functions []wit.Function) (*Surface, *component.Manager) {
	t.Helper()
	pluginDir := t.TempDir()
	secretsDir := t.TempDir()

	secrets, err := secret.New(secretsDir)
	require.NoError(t, err)

	mgr := component.New(pluginDir, &stubEmbedder{functions: functions}, secrets, nil)
	return New(mgr, nil), mgr
}

func writeArtifact(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("fake wasm bytes"), 0o644))
	return path
}

func addOneFunctions() []wit.Function {
	return []wit.Function{
		{Name: "add_one", Params: []wit.Param{{Name: "n", Type: wit.Primitive()}}, Results: []wit.Type{wit.Primitive()}},
	}
}

func dialOutFunctions() []wit.Function {
	return []wit.Function{{Name: "dial_out"}}
}

func TestLoadComponentThenListComponents(t *testing.T) {
	s, _ := setupSurface(t, addOneFunctions())
	srcDir := t.TempDir()
	artifact := writeArtifact(t, srcDir, "add-one.wasm")

	out, err := s.Invoke("load-component", map[string]any{"uri": "file://" + artifact})
	require.NoError(t, err)
	require.Equal(t, "add-one", out["id"])

	out, err = s.Invoke("list-components", map[string]any{})
	require.NoError(t, err)
	components := out["components"].([]map[string]any)
	require.Len(t, components, 1)
	require.Equal(t, "add-one", components[0]["id"])
}

func TestDynamicToolDispatchRoutesToExport(t *testing.T) {
	s, _ := setupSurface(t, addOneFunctions())
	srcDir := t.TempDir()
	artifact := writeArtifact(t, srcDir, "add-one.wasm")

	_, err := s.Invoke("load-component", map[string]any{"uri": "file://" + artifact})
	require.NoError(t, err)

	out, err := s.Invoke("add-one_add_one", map[string]any{"n": 41.0})
	require.NoError(t, err)
	require.Equal(t, 42.0, out["result"])
}

func TestGrantNetworkPermissionThenInvokeSucceeds(t *testing.T) {
	s, _ := setupSurface(t, dialOutFunctions())
	srcDir := t.TempDir()
	artifact := writeArtifact(t, srcDir, "dialer.wasm")

	out, err := s.Invoke("load-component", map[string]any{"uri": "file://" + artifact})
	require.NoError(t, err)
	id := out["id"].(string)

	_, err = s.Invoke("dialer_dial_out", map[string]any{})
	require.ErrorIs(t, err, wasserr.Sentinel(wasserr.PolicyViolation))

	_, err = s.Invoke("grant-network-permission", map[string]any{"id": id, "host": "api.example.com"})
	require.NoError(t, err)

	_, err = s.Invoke("dialer_dial_out", map[string]any{})
	require.NoError(t, err)
}

func TestSecretSetListDelete(t *testing.T) {
	s, _ := setupSurface(t, addOneFunctions())
	srcDir := t.TempDir()
	artifact := writeArtifact(t, srcDir, "add-one.wasm")

	out, err := s.Invoke("load-component", map[string]any{"uri": "file://" + artifact})
	require.NoError(t, err)
	id := out["id"].(string)

	_, err = s.Invoke("secret-set", map[string]any{"id": id, "key": "API_KEY", "value": "secret"})
	require.NoError(t, err)

	out, err = s.Invoke("secret-list", map[string]any{"id": id})
	require.NoError(t, err)
	require.Equal(t, []string{"API_KEY"}, out["keys"])

	_, err = s.Invoke("secret-delete", map[string]any{"id": id, "key": "API_KEY"})
	require.NoError(t, err)

	out, err = s.Invoke("secret-list", map[string]any{"id": id})
	require.NoError(t, err)
	require.Empty(t, out["keys"])
}

func TestUnknownToolNameIsUnknownComponent(t *testing.T) {
	s, _ := setupSurface(t, addOneFunctions())
	_, err := s.Invoke("not-a-real-tool", map[string]any{})
	require.ErrorIs(t, err, wasserr.Sentinel(wasserr.UnknownComponent))
}
