package component

import (
	"github.com/wassette-project/wassette/internal/embedder"
	"github.com/wassette-project/wassette/internal/policy"
	"github.com/wassette-project/wassette/internal/tools"
)

// Entry is one loaded component's registry row (§3's ComponentEntry).
type Entry struct {
	ID           ID
	SourceURI    string
	ArtifactPath string
	MetadataPath string

	Compiled embedder.CompiledComponent
	Template embedder.Template

	Tools []tools.Descriptor

	// Policy is nil for a freshly loaded component with no grants yet, which
	// is equivalent to an all-empty policy.Document — both deny everything.
	Policy *policy.Document
}

// effectivePolicy returns e.Policy, or an empty deny-all document if none has
// been persisted yet.
func (e *Entry) effectivePolicy() *policy.Document {
	if e.Policy == nil {
		return policy.New("")
	}
	return e.Policy
}
