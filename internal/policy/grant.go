package policy

import "sort"

// GrantNetwork unions host into the network allow-list. Pure: returns a new
// Document, doc is untouched.
func GrantNetwork(doc *Document, host string) *Document {
	out := doc.Clone()
	for _, h := range out.Permissions.Network.Allow {
		if h.Host == host {
			return out
		}
	}
	out.Permissions.Network.Allow = append(out.Permissions.Network.Allow, NetworkHost{Host: host})
	sortNetwork(out)
	return out
}

// RevokeNetwork removes host from the network allow-list.
func RevokeNetwork(doc *Document, host string) *Document {
	out := doc.Clone()
	filtered := out.Permissions.Network.Allow[:0]
	for _, h := range out.Permissions.Network.Allow {
		if h.Host != host {
			filtered = append(filtered, h)
		}
	}
	if len(filtered) == 0 {
		filtered = nil
	}
	out.Permissions.Network.Allow = filtered
	return out
}

// GrantStorage unions the requested access modes into the entry for uri,
// creating the entry if absent.
func GrantStorage(doc *Document, uri string, access []Access) *Document {
	out := doc.Clone()
	for i, s := range out.Permissions.Storage.Allow {
		if s.URI == uri {
			out.Permissions.Storage.Allow[i].Access = unionAccess(s.Access, access)
			return out
		}
	}
	out.Permissions.Storage.Allow = append(out.Permissions.Storage.Allow, StorageEntry{
		URI:    uri,
		Access: unionAccess(nil, access),
	})
	sortStorage(out)
	return out
}

// RevokeStorage removes all access modes for uri, per §4.3: "storage revoke
// by URI removes all access modes for that URI" (there is no partial-mode
// revoke in v1.0).
func RevokeStorage(doc *Document, uri string) *Document {
	out := doc.Clone()
	filtered := out.Permissions.Storage.Allow[:0]
	for _, s := range out.Permissions.Storage.Allow {
		if s.URI != uri {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) == 0 {
		filtered = nil
	}
	out.Permissions.Storage.Allow = filtered
	return out
}

// GrantEnvironment adds or replaces the allow-list entry for key. A nil value
// means "inherit from host", matching §3's PolicyDocument shape.
func GrantEnvironment(doc *Document, key string, value *string) *Document {
	out := doc.Clone()
	for i, e := range out.Permissions.Environment.Allow {
		if e.Key == key {
			out.Permissions.Environment.Allow[i].Value = value
			return out
		}
	}
	out.Permissions.Environment.Allow = append(out.Permissions.Environment.Allow, EnvironmentEntry{Key: key, Value: value})
	sortEnvironment(out)
	return out
}

// RevokeEnvironment removes key from the allow-list.
func RevokeEnvironment(doc *Document, key string) *Document {
	out := doc.Clone()
	filtered := out.Permissions.Environment.Allow[:0]
	for _, e := range out.Permissions.Environment.Allow {
		if e.Key != key {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) == 0 {
		filtered = nil
	}
	out.Permissions.Environment.Allow = filtered
	return out
}

// GrantMemoryLimit sets the memory limit, last-writer-wins per §3.
func GrantMemoryLimit(doc *Document, memory string) (*Document, error) {
	if _, err := ParseMemory(memory); err != nil {
		return nil, err
	}
	out := doc.Clone()
	if out.Permissions.Resources.Limits == nil {
		out.Permissions.Resources.Limits = &ResourceLimits{}
	}
	out.Permissions.Resources.Limits.Memory = memory
	return out, nil
}

// GrantCPULimit sets the cpu limit, last-writer-wins per §3.
func GrantCPULimit(doc *Document, cpu string) (*Document, error) {
	if _, err := ParseCPU(cpu); err != nil {
		return nil, err
	}
	out := doc.Clone()
	if out.Permissions.Resources.Limits == nil {
		out.Permissions.Resources.Limits = &ResourceLimits{}
	}
	out.Permissions.Resources.Limits.CPU = cpu
	return out, nil
}

// RevokeMemoryLimit clears the memory limit.
func RevokeMemoryLimit(doc *Document) *Document {
	out := doc.Clone()
	if out.Permissions.Resources.Limits != nil {
		out.Permissions.Resources.Limits.Memory = ""
	}
	return out
}

// RevokeCPULimit clears the cpu limit.
func RevokeCPULimit(doc *Document) *Document {
	out := doc.Clone()
	if out.Permissions.Resources.Limits != nil {
		out.Permissions.Resources.Limits.CPU = ""
	}
	return out
}

func unionAccess(existing, add []Access) []Access {
	set := map[Access]struct{}{}
	for _, a := range existing {
		set[a] = struct{}{}
	}
	for _, a := range add {
		set[a] = struct{}{}
	}
	out := make([]Access, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortNetwork(doc *Document) {
	sort.Slice(doc.Permissions.Network.Allow, func(i, j int) bool {
		return doc.Permissions.Network.Allow[i].Host < doc.Permissions.Network.Allow[j].Host
	})
}

func sortStorage(doc *Document) {
	sort.Slice(doc.Permissions.Storage.Allow, func(i, j int) bool {
		return doc.Permissions.Storage.Allow[i].URI < doc.Permissions.Storage.Allow[j].URI
	})
}

func sortEnvironment(doc *Document) {
	sort.Slice(doc.Permissions.Environment.Allow, func(i, j int) bool {
		return doc.Permissions.Environment.Allow[i].Key < doc.Permissions.Environment.Allow[j].Key
	})
}
