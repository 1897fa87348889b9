// Package tools implements the tool surface (§4.6): the fixed set of
// built-in tools plus the dynamic tools derived from each loaded component's
// exports, exposed to a transport through a small Invoker/ChangeNotifier pair
// so the core never imports an MCP transport library (§1 non-goal, §4.6
// expansion).
package tools

import "github.com/wassette-project/wassette/internal/schema"

// Descriptor is one tool's advertised shape: its qualified name, JSON Schema
// input/output, and a human-readable description. Corresponds to the data
// model's ToolDescriptor.
type Descriptor struct {
	Name         string
	Description  string
	InputSchema  schema.Schema
	OutputSchema schema.Schema // nil for void-returning functions
}

// Builtin names the fixed tool surface always present regardless of which
// components are loaded (§4.6 item 1).
const (
	LoadComponent                       = "load-component"
	UnloadComponent                     = "unload-component"
	ListComponents                      = "list-components"
	SearchComponents                    = "search-components"
	GetPolicy                           = "get-policy"
	GrantStoragePermission              = "grant-storage-permission"
	RevokeStoragePermission             = "revoke-storage-permission"
	GrantNetworkPermission              = "grant-network-permission"
	RevokeNetworkPermission             = "revoke-network-permission"
	GrantEnvironmentVariablePermission  = "grant-environment-variable-permission"
	RevokeEnvironmentVariablePermission = "revoke-environment-variable-permission"
	GrantMemoryPermission               = "grant-memory-permission"
	RevokeMemoryPermission              = "revoke-memory-permission"
	GrantCPUPermission                  = "grant-cpu-permission"
	RevokeCPUPermission                 = "revoke-cpu-permission"
	ResetPermission                     = "reset-permission"
	SecretList                          = "secret-list"
	SecretSet                           = "secret-set"
	SecretDelete                        = "secret-delete"
)

// BuiltinNames lists every always-present tool name, used to enforce the
// global tool-name-uniqueness invariant (§3: a dynamic tool whose qualified
// name collides with a builtin is rejected at load time).
var BuiltinNames = []string{
	LoadComponent, UnloadComponent, ListComponents, SearchComponents, GetPolicy,
	GrantStoragePermission, RevokeStoragePermission,
	GrantNetworkPermission, RevokeNetworkPermission,
	GrantEnvironmentVariablePermission, RevokeEnvironmentVariablePermission,
	GrantMemoryPermission, RevokeMemoryPermission,
	GrantCPUPermission, RevokeCPUPermission,
	ResetPermission, SecretList, SecretSet, SecretDelete,
}

// ChangeNotifier is invoked with the full current tool list whenever the set
// of loaded components changes, so a transport can push a list-changed
// notification to clients (§4.6: "the surface notifies the transport").
type ChangeNotifier func(tools []Descriptor)

// Invoker dispatches a named tool call with JSON arguments and returns the
// JSON result envelope, decoupling the tool surface from any one transport's
// request/response shape.
type Invoker interface {
	Invoke(name string, args map[string]any) (map[string]any, error)
}

func isBuiltin(name string) bool {
	for _, b := range BuiltinNames {
		if b == name {
			return true
		}
	}
	return false
}

// CollidesWithBuiltin reports whether a dynamic tool name would shadow a
// built-in, the global uniqueness invariant §3 names.
func CollidesWithBuiltin(name string) bool { return isBuiltin(name) }
