// Package dispatch wires the fixed built-in tool set (§4.6) to a
// *component.Manager, implementing tools.Invoker. It exists as its own
// package, separate from internal/tools, so that internal/tools stays free
// of a dependency on internal/component: the no-transport-dependency
// boundary cuts the same way between the tool-surface types and the
// lifecycle manager, not just between the core and an eventual MCP
// transport.
package dispatch

import (
	"context"
	"encoding/json"

	"github.com/wassette-project/wassette/internal/component"
	wlog "github.com/wassette-project/wassette/internal/log"
	"github.com/wassette-project/wassette/internal/policy"
	"github.com/wassette-project/wassette/internal/tools"
	"github.com/wassette-project/wassette/internal/wasserr"
)

// Surface dispatches a qualified tool name to either a built-in handler or,
// for anything else, a loaded component's export via the Manager.
type Surface struct {
	Manager *component.Manager
}

// New constructs a Surface over mgr, wiring mgr's change notifications
// through to notify (nil is fine; Manager.OnChange already tolerates it).
func New(mgr *component.Manager, notify tools.ChangeNotifier) *Surface {
	mgr.OnChange(notify)
	return &Surface{Manager: mgr}
}

// Tools returns the full current tool list: built-ins plus every loaded
// component's dynamic exports, for a transport's initial tools/list.
func (s *Surface) Tools() []tools.Descriptor {
	return append(tools.BuiltinDescriptors(), s.Manager.AllTools()...)
}

// Invoke implements tools.Invoker.
func (s *Surface) Invoke(name string, args map[string]any) (result map[string]any, err error) {
	ctx := context.Background()
	done := wlog.Operation(ctx, "dispatch", "invoke", wlog.ToolAttr(name))
	defer func() { done(err) }()

	switch name {
	case tools.LoadComponent:
		return s.loadComponent(args)
	case tools.UnloadComponent:
		return s.unloadComponent(args)
	case tools.ListComponents:
		return s.listComponents()
	case tools.SearchComponents:
		return s.searchComponents(args)
	case tools.GetPolicy:
		return s.getPolicy(args)
	case tools.GrantStoragePermission:
		return s.grantStorage(args)
	case tools.RevokeStoragePermission:
		return s.revokeStorage(args)
	case tools.GrantNetworkPermission:
		return s.grantNetwork(args)
	case tools.RevokeNetworkPermission:
		return s.revokeNetwork(args)
	case tools.GrantEnvironmentVariablePermission:
		return s.grantEnvironment(args)
	case tools.RevokeEnvironmentVariablePermission:
		return s.revokeEnvironment(args)
	case tools.GrantMemoryPermission:
		return s.grantMemory(args)
	case tools.RevokeMemoryPermission:
		return s.revokeMemory(args)
	case tools.GrantCPUPermission:
		return s.grantCPU(args)
	case tools.RevokeCPUPermission:
		return s.revokeCPU(args)
	case tools.ResetPermission:
		return s.resetPermission(args)
	case tools.SecretList:
		return s.secretList(args)
	case tools.SecretSet:
		return s.secretSet(args)
	case tools.SecretDelete:
		return s.secretDelete(args)
	}

	id, exportName, ok := s.Manager.FindTool(name)
	if !ok {
		return nil, wasserr.Newf(wasserr.UnknownComponent, "no such tool %q", name)
	}
	return s.Manager.Invoke(ctx, id, exportName, args)
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", wasserr.Newf(wasserr.InvalidArguments, "missing argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", wasserr.Newf(wasserr.InvalidArguments, "argument %q must be a string", key)
	}
	return s, nil
}

func optionalStringArg(args map[string]any, key string) *string {
	v, ok := args[key]
	if !ok || v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

func stringSliceArg(args map[string]any, key string) ([]string, error) {
	v, ok := args[key]
	if !ok {
		return nil, wasserr.Newf(wasserr.InvalidArguments, "missing argument %q", key)
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, wasserr.Newf(wasserr.InvalidArguments, "argument %q must be an array of strings", key)
	}
	out := make([]string, 0, len(raw))
	for _, elem := range raw {
		s, ok := elem.(string)
		if !ok {
			return nil, wasserr.Newf(wasserr.InvalidArguments, "argument %q must be an array of strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}

func (s *Surface) loadComponent(args map[string]any) (map[string]any, error) {
	uri, err := stringArg(args, "uri")
	if err != nil {
		return nil, err
	}
	id, err := s.Manager.Load(context.Background(), uri)
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": string(id)}, nil
}

func (s *Surface) unloadComponent(args map[string]any) (map[string]any, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return nil, err
	}
	if err := s.Manager.Unload(component.ID(id)); err != nil {
		return nil, err
	}
	return map[string]any{}, nil
}

func (s *Surface) listComponents() (map[string]any, error) {
	return map[string]any{"components": entrySummaries(s.Manager.List())}, nil
}

func (s *Surface) searchComponents(args map[string]any) (map[string]any, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return nil, err
	}
	return map[string]any{"components": entrySummaries(s.Manager.Search(query))}, nil
}

func entrySummaries(entries []*component.Entry) []map[string]any {
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		names := make([]string, 0, len(e.Tools))
		for _, t := range e.Tools {
			names = append(names, t.Name)
		}
		out = append(out, map[string]any{
			"id":         string(e.ID),
			"source_uri": e.SourceURI,
			"tools":      names,
		})
	}
	return out
}

func (s *Surface) getPolicy(args map[string]any) (map[string]any, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return nil, err
	}
	doc, err := s.Manager.Policy(component.ID(id))
	if err != nil {
		return nil, err
	}
	return policyToJSON(doc)
}

func policyToJSON(doc *policy.Document) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, wasserr.Newf(wasserr.Internal, "marshal policy: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, wasserr.Newf(wasserr.Internal, "unmarshal policy: %w", err)
	}
	return out, nil
}

func (s *Surface) grantStorage(args map[string]any) (map[string]any, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return nil, err
	}
	uri, err := stringArg(args, "uri")
	if err != nil {
		return nil, err
	}
	rawAccess, err := stringSliceArg(args, "access")
	if err != nil {
		return nil, err
	}
	access := make([]policy.Access, 0, len(rawAccess))
	for _, a := range rawAccess {
		access = append(access, policy.Access(a))
	}
	return map[string]any{}, s.Manager.UpdatePolicy(component.ID(id), func(doc *policy.Document) (*policy.Document, error) {
		return policy.GrantStorage(doc, uri, access), nil
	})
}

func (s *Surface) revokeStorage(args map[string]any) (map[string]any, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return nil, err
	}
	uri, err := stringArg(args, "uri")
	if err != nil {
		return nil, err
	}
	return map[string]any{}, s.Manager.UpdatePolicy(component.ID(id), func(doc *policy.Document) (*policy.Document, error) {
		return policy.RevokeStorage(doc, uri), nil
	})
}

func (s *Surface) grantNetwork(args map[string]any) (map[string]any, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return nil, err
	}
	host, err := stringArg(args, "host")
	if err != nil {
		return nil, err
	}
	return map[string]any{}, s.Manager.UpdatePolicy(component.ID(id), func(doc *policy.Document) (*policy.Document, error) {
		return policy.GrantNetwork(doc, host), nil
	})
}

func (s *Surface) revokeNetwork(args map[string]any) (map[string]any, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return nil, err
	}
	host, err := stringArg(args, "host")
	if err != nil {
		return nil, err
	}
	return map[string]any{}, s.Manager.UpdatePolicy(component.ID(id), func(doc *policy.Document) (*policy.Document, error) {
		return policy.RevokeNetwork(doc, host), nil
	})
}

func (s *Surface) grantEnvironment(args map[string]any) (map[string]any, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return nil, err
	}
	key, err := stringArg(args, "key")
	if err != nil {
		return nil, err
	}
	value := optionalStringArg(args, "value")
	return map[string]any{}, s.Manager.UpdatePolicy(component.ID(id), func(doc *policy.Document) (*policy.Document, error) {
		return policy.GrantEnvironment(doc, key, value), nil
	})
}

func (s *Surface) revokeEnvironment(args map[string]any) (map[string]any, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return nil, err
	}
	key, err := stringArg(args, "key")
	if err != nil {
		return nil, err
	}
	return map[string]any{}, s.Manager.UpdatePolicy(component.ID(id), func(doc *policy.Document) (*policy.Document, error) {
		return policy.RevokeEnvironment(doc, key), nil
	})
}

func (s *Surface) grantMemory(args map[string]any) (map[string]any, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return nil, err
	}
	memory, err := stringArg(args, "memory")
	if err != nil {
		return nil, err
	}
	return map[string]any{}, s.Manager.UpdatePolicy(component.ID(id), func(doc *policy.Document) (*policy.Document, error) {
		return policy.GrantMemoryLimit(doc, memory)
	})
}

func (s *Surface) revokeMemory(args map[string]any) (map[string]any, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return nil, err
	}
	return map[string]any{}, s.Manager.UpdatePolicy(component.ID(id), func(doc *policy.Document) (*policy.Document, error) {
		return policy.RevokeMemoryLimit(doc), nil
	})
}

func (s *Surface) grantCPU(args map[string]any) (map[string]any, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return nil, err
	}
	cpu, err := stringArg(args, "cpu")
	if err != nil {
		return nil, err
	}
	return map[string]any{}, s.Manager.UpdatePolicy(component.ID(id), func(doc *policy.Document) (*policy.Document, error) {
		return policy.GrantCPULimit(doc, cpu)
	})
}

func (s *Surface) revokeCPU(args map[string]any) (map[string]any, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return nil, err
	}
	return map[string]any{}, s.Manager.UpdatePolicy(component.ID(id), func(doc *policy.Document) (*policy.Document, error) {
		return policy.RevokeCPULimit(doc), nil
	})
}

func (s *Surface) resetPermission(args map[string]any) (map[string]any, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return nil, err
	}
	return map[string]any{}, s.Manager.ResetPolicy(component.ID(id))
}

func (s *Surface) secretList(args map[string]any) (map[string]any, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return nil, err
	}
	secrets, err := s.Manager.Secrets().List(id)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(secrets))
	for k := range secrets {
		keys = append(keys, k)
	}
	return map[string]any{"keys": keys}, nil
}

func (s *Surface) secretSet(args map[string]any) (map[string]any, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return nil, err
	}
	key, err := stringArg(args, "key")
	if err != nil {
		return nil, err
	}
	value, err := stringArg(args, "value")
	if err != nil {
		return nil, err
	}
	return map[string]any{}, s.Manager.Secrets().Set(id, key, value)
}

func (s *Surface) secretDelete(args map[string]any) (map[string]any, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return nil, err
	}
	key, err := stringArg(args, "key")
	if err != nil {
		return nil, err
	}
	return map[string]any{}, s.Manager.Secrets().Delete(id, key)
}
