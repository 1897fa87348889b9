// Package embedder abstracts the WebAssembly runtime Wassette consumes:
// it does not implement the WebAssembly Component Model itself, it consumes
// one via an embedder. internal/component never imports a concrete Wasm
// runtime directly; it talks to the Embedder interface so swapping in a
// real Component-Model-capable runtime later touches one file.
package embedder

import (
	"context"

	"github.com/wassette-project/wassette/internal/wit"
)

// CompiledComponent is an opaque, compiled artifact handle (§3's
// "ComponentEntry ... The compiled artifact handle, opaque to this spec").
type CompiledComponent interface {
	// Close releases the compiled module. Safe to call once a Template has
	// also been closed.
	Close(ctx context.Context) error
}

// Template is a pre-instantiated handle suitable for cheap, repeated
// Instantiate calls (§4.5 step 3: "Produce a pre-instantiated template so
// subsequent calls skip compilation cost").
type Template interface {
	Close(ctx context.Context) error
}

// PreopenDir is one filesystem preopen granted to a guest instance.
type PreopenDir struct {
	HostPath  string
	GuestPath string
	ReadOnly  bool
}

// NetworkGuard decides whether an outbound connection to host is permitted.
// It is consulted before any socket is opened, so a denial touches zero
// packets on the wire (§8 scenario 3).
type NetworkGuard interface {
	Allow(host string) bool
}

// SandboxConfig is the per-call sandbox wiring the lifecycle manager computes
// from a component's policy and secret store (§4.5 step 3).
type SandboxConfig struct {
	Env          map[string]string
	Preopens     []PreopenDir
	Network      NetworkGuard
	MemoryLimit  *int64 // bytes; the wazero embedder does not apply it
	CPULimitMs   *int64 // millicores; advisory only — no embedder in use enforces cpu time directly
	InheritStdio bool
}

// Instance is a single fresh guest store, instantiated from a Template for
// exactly one call (§5: "each call gets its own store derived from the
// shared pre-instantiated template").
type Instance interface {
	Close(ctx context.Context) error
}

// Embedder compiles artifacts, introspects their exports, and runs calls
// against them inside a sandbox built from a SandboxConfig.
type Embedder interface {
	// Compile parses and validates a raw artifact.
	Compile(ctx context.Context, wasmBytes []byte) (CompiledComponent, error)

	// Template produces a cheap-to-reinstantiate handle from a compiled
	// artifact.
	Template(ctx context.Context, compiled CompiledComponent) (Template, error)

	// ExportedFunctions introspects the compiled artifact's exports.
	ExportedFunctions(ctx context.Context, compiled CompiledComponent) ([]wit.Function, error)

	// Instantiate creates a fresh Instance from tmpl wired with cfg.
	Instantiate(ctx context.Context, tmpl Template, cfg SandboxConfig) (Instance, error)

	// Invoke calls fn on inst with args already converted to wit.Value, and
	// returns the guest's results, also as wit.Value.
	Invoke(ctx context.Context, inst Instance, fn string, args []wit.Value) ([]wit.Value, error)
}
