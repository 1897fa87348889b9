package component

import (
	"context"

	"github.com/wassette-project/wassette/internal/embedder"
	"github.com/wassette-project/wassette/internal/wasserr"
	"github.com/wassette-project/wassette/internal/wit"
)

// fakeEmbedder is a minimal in-memory stand-in for embedder.Embedder, used
// because no pack-supplied .wasm binaries exist to compile against. It
// models the add_one, read_env, and dial_out exports the tests need and
// records the SandboxConfig each Instantiate call was given, so tests can
// assert on policy enforcement without a real guest.
type fakeEmbedder struct {
	functions []wit.Function
	lastCfg   embedder.SandboxConfig
}

type fakeCompiled struct{ funcs []wit.Function }

func (fakeCompiled) Close(context.Context) error { return nil }

type fakeTemplate struct{ funcs []wit.Function }

func (fakeTemplate) Close(context.Context) error { return nil }

type fakeInstance struct {
	funcs []wit.Function
	cfg   embedder.SandboxConfig
}

func (fakeInstance) Close(context.Context) error { return nil }

func (e *fakeEmbedder) Compile(ctx context.Context, wasmBytes []byte) (embedder.CompiledComponent, error) {
	return fakeCompiled{funcs: e.functions}, nil
}

func (e *fakeEmbedder) Template(ctx context.Context, c embedder.CompiledComponent) (embedder.Template, error) {
	return fakeTemplate{funcs: c.(fakeCompiled).funcs}, nil
}

func (e *fakeEmbedder) ExportedFunctions(ctx context.Context, c embedder.CompiledComponent) ([]wit.Function, error) {
	return c.(fakeCompiled).funcs, nil
}

func (e *fakeEmbedder) Instantiate(ctx context.Context, tmpl embedder.Template, cfg embedder.SandboxConfig) (embedder.Instance, error) {
	e.lastCfg = cfg
	return fakeInstance{funcs: tmpl.(fakeTemplate).funcs, cfg: cfg}, nil
}

func (e *fakeEmbedder) Invoke(ctx context.Context, inst embedder.Instance, fn string, args []wit.Value) ([]wit.Value, error) {
	i := inst.(fakeInstance)
	switch fn {
	case "add_one":
		if len(args) != 1 {
			return nil, wasserr.Newf(wasserr.InvalidArguments, "add_one takes exactly one argument")
		}
		return []wit.Value{{Kind: wit.KindPrimitive, Num: args[0].Num + 1}}, nil
	case "read_env":
		v, ok := i.cfg.Env["OPENWEATHER_API_KEY"]
		if !ok {
			v = ""
		}
		return []wit.Value{{Kind: wit.KindString, Str: v}}, nil
	case "dial_out":
		allowed := i.cfg.Network != nil && i.cfg.Network.Allow("api.example.com")
		if !allowed {
			return nil, wasserr.Newf(wasserr.PolicyViolation, "network access to api.example.com denied")
		}
		return nil, nil
	default:
		return nil, wasserr.Newf(wasserr.UnknownComponent, "no such export %q", fn)
	}
}

func addOneFunctions() []wit.Function {
	return []wit.Function{
		{Name: "add_one", Params: []wit.Param{{Name: "n", Type: wit.Primitive()}}, Results: []wit.Type{wit.Primitive()}},
	}
}

func readEnvFunctions() []wit.Function {
	return []wit.Function{
		{Name: "read_env", Results: []wit.Type{wit.String()}},
	}
}

func dialOutFunctions() []wit.Function {
	return []wit.Function{
		{Name: "dial_out"},
	}
}
