package policy

import (
	"fmt"

	"sigs.k8s.io/yaml"

	"github.com/wassette-project/wassette/internal/wasserr"
)

// Parse parses raw YAML bytes into a Document and validates its shape: the
// version must be the one this engine understands, every storage access mode
// must be "read" or "write", and resource limits (if present) must parse.
func Parse(raw []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, wasserr.Newf(wasserr.Internal, "parse policy yaml: %w", err)
	}
	if doc.Version == "" {
		doc.Version = CurrentVersion
	}
	if doc.Version != CurrentVersion {
		return nil, wasserr.Newf(wasserr.Internal, "unsupported policy version %q", doc.Version)
	}
	for _, s := range doc.Permissions.Storage.Allow {
		for _, a := range s.Access {
			if a != AccessRead && a != AccessWrite {
				return nil, wasserr.Newf(wasserr.Internal, "storage entry %q: invalid access mode %q", s.URI, a)
			}
		}
	}
	if limits := doc.Permissions.Resources.Limits; limits != nil {
		if limits.Memory != "" {
			if _, err := ParseMemory(limits.Memory); err != nil {
				return nil, err
			}
		}
		if limits.CPU != "" {
			if _, err := ParseCPU(limits.CPU); err != nil {
				return nil, err
			}
		}
	}
	return &doc, nil
}

// Marshal serializes a Document back to YAML for persistence.
func Marshal(doc *Document) ([]byte, error) {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal policy: %w", err)
	}
	return out, nil
}
