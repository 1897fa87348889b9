package embedder

import (
	"context"
	"fmt"
	"net"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/wassette-project/wassette/internal/wasserr"
	"github.com/wassette-project/wassette/internal/wit"
)

// Wazero is an Embedder backed by github.com/tetratelabs/wazero. No repo in
// the retrieval pack is a Component-Model-capable embedder, so this talks to
// wazero's core-module API directly: exports are introspected from wasm
// numeric function signatures and widened into wit.Primitive, the only Kind a
// core wasm function signature can produce. A real Component-Model embedder
// would additionally decode richer WIT types (records, variants, lists,
// strings) from the component's type section; ExportedFunctions rejects
// signatures it cannot widen with wasserr.Unsupported rather than pretend to
// support them.
type Wazero struct {
	runtime      wazero.Runtime
	wasiInstance api.Closer
}

// NewWazero constructs a Wazero embedder with WASI preview1 wired in and
// context-cancellation aborting in-flight calls (§5: "a cancelled call must
// not outlive its ctx"). Instantiate does not apply SandboxConfig.MemoryLimit:
// a guest's memory growth is not capped by the policy's memory limit.
func NewWazero(ctx context.Context) (*Wazero, error) {
	cfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)
	wasi, err := wasi_snapshot_preview1.Instantiate(ctx, rt)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate wasi snapshot preview1: %w", err)
	}
	return &Wazero{runtime: rt, wasiInstance: wasi}, nil
}

// Close releases the underlying wazero runtime, invalidating every compiled
// module and instance produced from it.
func (w *Wazero) Close(ctx context.Context) error {
	return w.runtime.Close(ctx)
}

type wazeroCompiled struct {
	mod wazero.CompiledModule
}

func (c *wazeroCompiled) Close(ctx context.Context) error { return c.mod.Close(ctx) }

func (w *Wazero) Compile(ctx context.Context, wasmBytes []byte) (CompiledComponent, error) {
	mod, err := w.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, wasserr.Newf(wasserr.LoadFailed, "compile wasm module: %w", err)
	}
	return &wazeroCompiled{mod: mod}, nil
}

// wazeroTemplate just retains the compiled module; wazero separates compile
// from instantiate already, so "pre-instantiation" here means "keep the
// compiled module around," and each Instantiate call is the cheap step.
type wazeroTemplate struct {
	compiled *wazeroCompiled
}

func (t *wazeroTemplate) Close(ctx context.Context) error { return nil }

func (w *Wazero) Template(ctx context.Context, compiled CompiledComponent) (Template, error) {
	c, ok := compiled.(*wazeroCompiled)
	if !ok {
		return nil, wasserr.Newf(wasserr.Internal, "compiled component not produced by this embedder")
	}
	return &wazeroTemplate{compiled: c}, nil
}

func (w *Wazero) ExportedFunctions(ctx context.Context, compiled CompiledComponent) ([]wit.Function, error) {
	c, ok := compiled.(*wazeroCompiled)
	if !ok {
		return nil, wasserr.Newf(wasserr.Internal, "compiled component not produced by this embedder")
	}

	defs := c.mod.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	funcs := make([]wit.Function, 0, len(names))
	for _, name := range names {
		def := defs[name]
		params, err := widenValueTypes(def.ParamTypes())
		if err != nil {
			return nil, wasserr.Newf(wasserr.Unsupported, "export %q: %w", name, err)
		}
		results, err := widenValueTypes(def.ResultTypes())
		if err != nil {
			return nil, wasserr.Newf(wasserr.Unsupported, "export %q: %w", name, err)
		}

		fnParams := make([]wit.Param, len(params))
		for i, t := range params {
			fnParams[i] = wit.Param{Name: fmt.Sprintf("arg%d", i), Type: t}
		}
		funcs = append(funcs, wit.Function{Name: name, Params: fnParams, Results: results})
	}
	return funcs, nil
}

// widenValueTypes maps wasm core numeric types onto wit.Primitive. The core
// module has no bit-width or signedness distinction in the Kind enum itself
// (see internal/wit's "polymorphism over WIT types" design note); encodeValue
// and decodeValue carry the wasm-level ValueType separately, from the
// function definition, whenever they need to round-trip bits precisely.
func widenValueTypes(vts []api.ValueType) ([]wit.Type, error) {
	out := make([]wit.Type, len(vts))
	for i, vt := range vts {
		switch vt {
		case api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF32, api.ValueTypeF64:
			out[i] = wit.Primitive()
		default:
			return nil, fmt.Errorf("unsupported wasm value type %v", vt)
		}
	}
	return out, nil
}

type wazeroInstance struct {
	mod api.Module
}

func (i *wazeroInstance) Close(ctx context.Context) error { return i.mod.Close(ctx) }

func (w *Wazero) Instantiate(ctx context.Context, tmpl Template, cfg SandboxConfig) (Instance, error) {
	t, ok := tmpl.(*wazeroTemplate)
	if !ok {
		return nil, wasserr.Newf(wasserr.Internal, "template not produced by this embedder")
	}

	modCfg := wazero.NewModuleConfig().WithStartFunctions("_initialize")
	if cfg.InheritStdio {
		modCfg = modCfg.WithStdout(discardWriter{}).WithStderr(discardWriter{})
	}
	for k, v := range cfg.Env {
		modCfg = modCfg.WithEnv(k, v)
	}

	fsConfig := wazero.NewFSConfig()
	for _, p := range cfg.Preopens {
		if p.ReadOnly {
			fsConfig = fsConfig.WithReadOnlyDirMount(p.HostPath, p.GuestPath)
		} else {
			fsConfig = fsConfig.WithDirMount(p.HostPath, p.GuestPath)
		}
	}
	modCfg = modCfg.WithFSConfig(fsConfig)

	guard := cfg.Network
	if guard == nil {
		guard = DenyAll
	}

	hostMod := w.runtime.NewHostModuleBuilder("wassette")
	hostMod.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, hostPtr, hostLen uint32) uint64 {
			host, ok := mod.Memory().Read(hostPtr, hostLen)
			if !ok || !guard.Allow(string(host)) {
				return 1 // denied; guest sees a nonzero status, never an open socket
			}
			conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", string(host))
			if err != nil {
				return 2
			}
			conn.Close()
			return 0
		}).
		Export("dial_check")
	if _, err := hostMod.Instantiate(ctx); err != nil {
		return nil, wasserr.Newf(wasserr.Internal, "instantiate network guard host module: %w", err)
	}

	mod, err := w.runtime.InstantiateModule(ctx, t.compiled.mod, modCfg)
	if err != nil {
		return nil, wasserr.Newf(wasserr.LoadFailed, "instantiate module: %w", err)
	}
	return &wazeroInstance{mod: mod}, nil
}

func (w *Wazero) Invoke(ctx context.Context, inst Instance, fn string, args []wit.Value) ([]wit.Value, error) {
	i, ok := inst.(*wazeroInstance)
	if !ok {
		return nil, wasserr.Newf(wasserr.Internal, "instance not produced by this embedder")
	}

	f := i.mod.ExportedFunction(fn)
	if f == nil {
		return nil, wasserr.Newf(wasserr.UnknownComponent, "no such export %q", fn)
	}

	paramTypes := f.Definition().ParamTypes()
	if len(paramTypes) != len(args) {
		return nil, wasserr.Newf(wasserr.InvalidArguments, "call %q: expected %d arguments, got %d", fn, len(paramTypes), len(args))
	}
	raw := make([]uint64, len(args))
	for idx, v := range args {
		enc, err := encodeValue(v, paramTypes[idx])
		if err != nil {
			return nil, wasserr.Newf(wasserr.Unsupported, "argument %d: %w", idx, err)
		}
		raw[idx] = enc
	}

	results, err := f.Call(ctx, raw...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, wasserr.Newf(wasserr.Cancelled, "call %q: %w", fn, ctx.Err())
		}
		return nil, wasserr.Newf(wasserr.GuestTrap, "call %q: %w", fn, err)
	}

	defs := f.Definition().ResultTypes()
	out := make([]wit.Value, len(results))
	for idx, raw := range results {
		out[idx] = decodeValue(raw, defs[idx])
	}
	return out, nil
}

func encodeValue(v wit.Value, vt api.ValueType) (uint64, error) {
	if v.Kind == wit.KindBool {
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	}
	if v.Kind != wit.KindPrimitive {
		return 0, fmt.Errorf("kind %v has no numeric encoding in the wazero core embedder", v.Kind)
	}
	switch vt {
	case api.ValueTypeI32:
		return api.EncodeI32(int32(v.Num)), nil
	case api.ValueTypeI64:
		return api.EncodeI64(int64(v.Num)), nil
	case api.ValueTypeF32:
		return api.EncodeF32(float32(v.Num)), nil
	default:
		return api.EncodeF64(v.Num), nil
	}
}

func decodeValue(raw uint64, vt api.ValueType) wit.Value {
	switch vt {
	case api.ValueTypeI32:
		return wit.Value{Kind: wit.KindPrimitive, Num: float64(api.DecodeI32(raw))}
	case api.ValueTypeI64:
		return wit.Value{Kind: wit.KindPrimitive, Num: float64(int64(raw))}
	case api.ValueTypeF32:
		return wit.Value{Kind: wit.KindPrimitive, Num: float64(api.DecodeF32(raw))}
	default:
		return wit.Value{Kind: wit.KindPrimitive, Num: api.DecodeF64(raw)}
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
