package component

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wassette-project/wassette/internal/tools"
)

// sidecar is the on-disk shape of <plugin_dir>/<id>.meta.json (§6).
type sidecar struct {
	SourceURI       string            `json:"source_uri"`
	Schemas         []tools.Descriptor `json:"schemas"`
	CanonicalizedAt string            `json:"canonicalized_at"`
}

func metadataPath(pluginDir string, id ID) string {
	return filepath.Join(pluginDir, string(id)+".meta.json")
}

// writeMetadata persists the sidecar atomically (temp file + rename), the
// same pattern internal/secret and internal/loader use for their own
// persisted state.
func writeMetadata(pluginDir string, id ID, sourceURI string, descs []tools.Descriptor, canonicalizedAt string) (string, error) {
	path := metadataPath(pluginDir, id)
	raw, err := json.MarshalIndent(sidecar{SourceURI: sourceURI, Schemas: descs, CanonicalizedAt: canonicalizedAt}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal metadata sidecar: %w", err)
	}

	tmp, err := os.CreateTemp(pluginDir, string(id)+".meta.json.tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp metadata file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write temp metadata file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close temp metadata file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename metadata file: %w", err)
	}
	return path, nil
}

// readMetadata loads a previously persisted sidecar, used by reboot recovery
// to avoid re-introspecting a component whose schemas are already known.
func readMetadata(pluginDir string, id ID) (sidecar, error) {
	raw, err := os.ReadFile(metadataPath(pluginDir, id))
	if err != nil {
		return sidecar{}, fmt.Errorf("read metadata sidecar: %w", err)
	}
	var s sidecar
	if err := json.Unmarshal(raw, &s); err != nil {
		return sidecar{}, fmt.Errorf("decode metadata sidecar: %w", err)
	}
	return s, nil
}

func removeMetadata(pluginDir string, id ID) error {
	err := os.Remove(metadataPath(pluginDir, id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
