// Package policy implements the policy model and parser: typed policy
// documents, the grant/revoke/reset algebra, and k8s-style resource-limit
// parsing. Per §4.3 the policy engine only parses and transforms policies; it
// never enforces them — enforcement happens in internal/component at
// invocation time.
package policy

// Document is the top-level policy document, persisted as YAML through
// sigs.k8s.io/yaml via these same json tags (sigs.k8s.io/yaml converts YAML
// to JSON internally before unmarshaling).
type Document struct {
	Version     string      `json:"version"`
	Description string      `json:"description,omitempty"`
	Permissions Permissions `json:"permissions"`
}

type Permissions struct {
	Network     NetworkPermissions     `json:"network,omitempty"`
	Storage     StoragePermissions     `json:"storage,omitempty"`
	Environment EnvironmentPermissions `json:"environment,omitempty"`
	Resources   ResourcePermissions    `json:"resources,omitempty"`
}

type NetworkPermissions struct {
	Allow []NetworkHost `json:"allow,omitempty"`
}

type NetworkHost struct {
	Host string `json:"host"`
}

// Access is one of "read" or "write".
type Access string

const (
	AccessRead  Access = "read"
	AccessWrite Access = "write"
)

type StoragePermissions struct {
	Allow []StorageEntry `json:"allow,omitempty"`
}

type StorageEntry struct {
	URI    string   `json:"uri"`
	Access []Access `json:"access"`
}

type EnvironmentPermissions struct {
	Allow []EnvironmentEntry `json:"allow,omitempty"`
}

type EnvironmentEntry struct {
	Key   string  `json:"key"`
	Value *string `json:"value,omitempty"`
}

type ResourcePermissions struct {
	Limits *ResourceLimits `json:"limits,omitempty"`
}

type ResourceLimits struct {
	Memory string `json:"memory,omitempty"`
	CPU    string `json:"cpu,omitempty"`
}

// CurrentVersion is the only policy document version this engine
// understands; the format is closed and fixed, not versioned/negotiated.
const CurrentVersion = "1.0"

// New returns an empty, deny-all policy document at the current version.
func New(description string) *Document {
	return &Document{Version: CurrentVersion, Description: description}
}

// Clone deep-copies a Document so grant/revoke can mutate the copy and leave
// the original untouched (the algebra is pure: every operation returns a new
// document).
func (d *Document) Clone() *Document {
	if d == nil {
		return New("")
	}
	out := &Document{Version: d.Version, Description: d.Description}
	out.Permissions.Network.Allow = append([]NetworkHost(nil), d.Permissions.Network.Allow...)
	for _, s := range d.Permissions.Storage.Allow {
		out.Permissions.Storage.Allow = append(out.Permissions.Storage.Allow, StorageEntry{
			URI:    s.URI,
			Access: append([]Access(nil), s.Access...),
		})
	}
	for _, e := range d.Permissions.Environment.Allow {
		ne := EnvironmentEntry{Key: e.Key}
		if e.Value != nil {
			v := *e.Value
			ne.Value = &v
		}
		out.Permissions.Environment.Allow = append(out.Permissions.Environment.Allow, ne)
	}
	if d.Permissions.Resources.Limits != nil {
		limits := *d.Permissions.Resources.Limits
		out.Permissions.Resources.Limits = &limits
	}
	return out
}
