package component

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/wassette-project/wassette/internal/policy"
)

func policyPath(pluginDir string, id ID) string {
	return filepath.Join(pluginDir, string(id)+".policy.yaml")
}

// loadPolicy reads id's policy file, returning nil (deny-all) if absent.
func loadPolicy(pluginDir string, id ID) (*policy.Document, error) {
	raw, err := os.ReadFile(policyPath(pluginDir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	doc, err := policy.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	return doc, nil
}

// savePolicy atomically persists doc as id's policy file.
func savePolicy(pluginDir string, id ID, doc *policy.Document) error {
	raw, err := policy.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}
	path := policyPath(pluginDir, id)
	tmp, err := os.CreateTemp(pluginDir, string(id)+".policy.yaml.tmp-*")
	if err != nil {
		return fmt.Errorf("create temp policy file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp policy file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp policy file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename policy file: %w", err)
	}
	return nil
}

func removePolicy(pluginDir string, id ID) error {
	err := os.Remove(policyPath(pluginDir, id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
