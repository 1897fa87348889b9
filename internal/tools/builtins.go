package tools

import "github.com/wassette-project/wassette/internal/schema"

func obj(props schema.Schema, required ...string) schema.Schema {
	out := schema.Schema{"type": "object", "properties": props}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func str() schema.Schema { return schema.Schema{"type": "string"} }

func strArray() schema.Schema { return schema.Schema{"type": "array", "items": str()} }

var idAndKeyProps = schema.Schema{"id": str(), "key": str()}

// BuiltinDescriptors returns the fixed tool surface's descriptors, in the
// order BuiltinNames lists them.
func BuiltinDescriptors() []Descriptor {
	return []Descriptor{
		{
			Name:         LoadComponent,
			Description:  "Load a Wasm component from a file path, file:// URI, or oci:// URI and register its exports as tools.",
			InputSchema:  obj(schema.Schema{"uri": str()}, "uri"),
			OutputSchema: obj(schema.Schema{"id": str()}, "id"),
		},
		{
			Name:        UnloadComponent,
			Description: "Unload a registered component, removing its artifact, metadata, and policy.",
			InputSchema: obj(schema.Schema{"id": str()}, "id"),
		},
		{
			Name:         ListComponents,
			Description:  "List every currently loaded component.",
			InputSchema:  obj(schema.Schema{}),
			OutputSchema: obj(schema.Schema{"components": schema.Schema{"type": "array"}}, "components"),
		},
		{
			Name:         SearchComponents,
			Description:  "Case-insensitive substring search over component id, source URI, tool names, and tool descriptions.",
			InputSchema:  obj(schema.Schema{"query": str()}, "query"),
			OutputSchema: obj(schema.Schema{"components": schema.Schema{"type": "array"}}, "components"),
		},
		{
			Name:         GetPolicy,
			Description:  "Return a component's effective policy document.",
			InputSchema:  obj(schema.Schema{"id": str()}, "id"),
			OutputSchema: obj(schema.Schema{}),
		},
		{
			Name:        GrantStoragePermission,
			Description: "Grant filesystem access to a URI, unioning access modes with any existing grant.",
			InputSchema: obj(schema.Schema{"id": str(), "uri": str(), "access": strArray()}, "id", "uri", "access"),
		},
		{
			Name:        RevokeStoragePermission,
			Description: "Revoke all access modes for a storage URI.",
			InputSchema: obj(schema.Schema{"id": str(), "uri": str()}, "id", "uri"),
		},
		{
			Name:        GrantNetworkPermission,
			Description: "Add a host to a component's network allow-list.",
			InputSchema: obj(schema.Schema{"id": str(), "host": str()}, "id", "host"),
		},
		{
			Name:        RevokeNetworkPermission,
			Description: "Remove a host from a component's network allow-list.",
			InputSchema: obj(schema.Schema{"id": str(), "host": str()}, "id", "host"),
		},
		{
			Name:        GrantEnvironmentVariablePermission,
			Description: "Allow a component to read an environment variable, optionally pinning a literal value.",
			InputSchema: obj(schema.Schema{"id": str(), "key": str(), "value": str()}, "id", "key"),
		},
		{
			Name:        RevokeEnvironmentVariablePermission,
			Description: "Remove an environment variable from a component's allow-list.",
			InputSchema: obj(idAndKeyProps, "id", "key"),
		},
		{
			Name:        GrantMemoryPermission,
			Description: "Set a component's memory limit (k8s-style quantity, e.g. \"64Mi\").",
			InputSchema: obj(schema.Schema{"id": str(), "memory": str()}, "id", "memory"),
		},
		{
			Name:        RevokeMemoryPermission,
			Description: "Clear a component's memory limit.",
			InputSchema: obj(schema.Schema{"id": str()}, "id"),
		},
		{
			Name:        GrantCPUPermission,
			Description: "Set a component's cpu limit (k8s-style quantity, e.g. \"500m\").",
			InputSchema: obj(schema.Schema{"id": str(), "cpu": str()}, "id", "cpu"),
		},
		{
			Name:        RevokeCPUPermission,
			Description: "Clear a component's cpu limit.",
			InputSchema: obj(schema.Schema{"id": str()}, "id"),
		},
		{
			Name:        ResetPermission,
			Description: "Delete a component's policy file, returning it to deny-all.",
			InputSchema: obj(schema.Schema{"id": str()}, "id"),
		},
		{
			Name:         SecretList,
			Description:  "List the secret keys stored for a component (values are never returned).",
			InputSchema:  obj(schema.Schema{"id": str()}, "id"),
			OutputSchema: obj(schema.Schema{"keys": strArray()}, "keys"),
		},
		{
			Name:        SecretSet,
			Description: "Set a component's secret value for a key.",
			InputSchema: obj(schema.Schema{"id": str(), "key": str(), "value": str()}, "id", "key", "value"),
		},
		{
			Name:        SecretDelete,
			Description: "Delete a component's secret value for a key.",
			InputSchema: obj(idAndKeyProps, "id", "key"),
		},
	}
}
