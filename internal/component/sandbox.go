package component

import (
	"os"
	"strings"

	"github.com/wassette-project/wassette/internal/embedder"
	"github.com/wassette-project/wassette/internal/policy"
	"github.com/wassette-project/wassette/internal/secret"
	"github.com/wassette-project/wassette/internal/wasserr"
)

// buildSandbox computes the per-call embedder.SandboxConfig from a
// component's policy and its secret store, per §4.5 step 3. globalEnvAllow is
// the process-wide env-var allow-list from internal/config.
func buildSandbox(id ID, doc *policy.Document, secrets *secret.Store, globalEnvAllow []string) (embedder.SandboxConfig, error) {
	cfg := embedder.SandboxConfig{Env: map[string]string{}}

	secretValues, err := secrets.List(string(id))
	if err != nil {
		return cfg, err
	}

	globalAllowed := make(map[string]bool, len(globalEnvAllow))
	for _, k := range globalEnvAllow {
		globalAllowed[k] = true
	}

	for _, entry := range doc.Permissions.Environment.Allow {
		switch {
		case entry.Value != nil:
			// Precedence: policy literal beats everything.
			cfg.Env[entry.Key] = *entry.Value
		case secretExists(secretValues, entry.Key):
			cfg.Env[entry.Key] = secretValues[entry.Key]
		case globalAllowed[entry.Key]:
			if v, ok := os.LookupEnv(entry.Key); ok {
				cfg.Env[entry.Key] = v
			}
		}
	}

	for _, s := range doc.Permissions.Storage.Allow {
		hostPath, ok := storagePath(s.URI)
		if !ok {
			return cfg, wasserr.Newf(wasserr.PolicyViolation, "unsupported storage uri %q", s.URI)
		}
		cfg.Preopens = append(cfg.Preopens, embedder.PreopenDir{
			HostPath:  hostPath,
			GuestPath: hostPath,
			ReadOnly:  !hasAccess(s.Access, policy.AccessWrite),
		})
	}

	hosts := make([]string, 0, len(doc.Permissions.Network.Allow))
	for _, h := range doc.Permissions.Network.Allow {
		hosts = append(hosts, h.Host)
	}
	cfg.Network = embedder.NewAllowListGuard(hosts)

	if doc.Permissions.Resources.Limits != nil {
		if mem := doc.Permissions.Resources.Limits.Memory; mem != "" {
			parsed, err := policy.ParseMemory(mem)
			if err != nil {
				return cfg, err
			}
			cfg.MemoryLimit = &parsed.Value
		}
		if cpu := doc.Permissions.Resources.Limits.CPU; cpu != "" {
			parsed, err := policy.ParseCPU(cpu)
			if err != nil {
				return cfg, err
			}
			cfg.CPULimitMs = &parsed.Value
		}
	}

	return cfg, nil
}

func secretExists(values map[string]string, key string) bool {
	_, ok := values[key]
	return ok
}

func hasAccess(modes []policy.Access, want policy.Access) bool {
	for _, m := range modes {
		if m == want {
			return true
		}
	}
	return false
}

// storagePath extracts the host filesystem path from a file:// or fs:// URI
// (§6: "uri is a file:// or fs:// URI naming a host directory").
func storagePath(uri string) (string, bool) {
	switch {
	case strings.HasPrefix(uri, "file://"):
		return strings.TrimPrefix(uri, "file://"), true
	case strings.HasPrefix(uri, "fs://"):
		return strings.TrimPrefix(uri, "fs://"), true
	default:
		return "", false
	}
}
