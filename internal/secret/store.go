// Package secret implements the per-component secret store: a YAML file per
// component id, an mtime-gated read cache, and fine-grained per-id locking so
// concurrent reads of different components never contend (§4.2, §5).
package secret

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"sigs.k8s.io/yaml"

	"github.com/wassette-project/wassette/internal/wasserr"
)

var keyPattern = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)

type cacheEntry struct {
	modTime time.Time
	values  map[string]string
}

// Store is a process-wide secret cache rooted at a directory, one YAML file
// per component id.
type Store struct {
	dir string

	mu     sync.Mutex // guards cache and locks maps
	cache  map[string]cacheEntry
	locks  map[string]*sync.Mutex
	exists func(id string) bool // injected by the lifecycle manager; nil means "always exists"
}

// New creates a Store rooted at dir. dir is created with mode 0700 if absent.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create secrets dir: %w", err)
	}
	return &Store{
		dir:   dir,
		cache: map[string]cacheEntry{},
		locks: map[string]*sync.Mutex{},
	}, nil
}

// SetExistenceCheck wires a callback the Store uses to reject Set/Delete for
// unknown component ids, per §4.2 ("set on an unknown component ID returns
// UnknownComponent — callers must verify existence through the lifecycle
// manager first"). The lifecycle manager supplies this to avoid an import
// cycle between internal/secret and internal/component.
func (s *Store) SetExistenceCheck(fn func(id string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exists = fn
}

func (s *Store) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".yaml")
}

// List returns all key/value pairs for id. A missing file is not an error;
// it returns an empty map.
func (s *Store) List(id string) (map[string]string, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	values, err := s.load(id)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out, nil
}

// Get returns the value for key, or ("", false) if absent. A missing file is
// not an error.
func (s *Store) Get(id, key string) (string, bool, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	values, err := s.load(id)
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set writes key=value for id, creating the file if absent. Returns
// UnknownComponent if an existence check is wired and reports id unknown.
func (s *Store) Set(id, key, value string) error {
	if !keyPattern.MatchString(key) {
		return wasserr.Newf(wasserr.Internal, "invalid secret key %q: must match %s", key, keyPattern.String())
	}
	if err := s.checkExists(id); err != nil {
		return err
	}

	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	values, err := s.load(id)
	if err != nil {
		return err
	}
	values[key] = value
	return s.persist(id, values)
}

// Delete removes key from id's store. Absence of the key or the file is not
// an error.
func (s *Store) Delete(id, key string) error {
	if err := s.checkExists(id); err != nil {
		return err
	}

	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	values, err := s.load(id)
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.persist(id, values)
}

// DeleteAll removes the entire secret file for id.
func (s *Store) DeleteAll(id string) error {
	if err := s.checkExists(id); err != nil {
		return err
	}

	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove secret file: %w", err)
	}
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
	return nil
}

func (s *Store) checkExists(id string) error {
	s.mu.Lock()
	fn := s.exists
	s.mu.Unlock()
	if fn != nil && !fn(id) {
		return wasserr.Sentinel(wasserr.UnknownComponent)
	}
	return nil
}

// load returns a mutable copy of id's values, reloading from disk only if the
// file's mtime has changed since the last read (or if there's no cache
// entry). Caller must hold the per-id lock.
func (s *Store) load(id string) (map[string]string, error) {
	info, err := os.Stat(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("stat secret file: %w", err)
	}

	s.mu.Lock()
	entry, cached := s.cache[id]
	s.mu.Unlock()
	if cached && entry.modTime.Equal(info.ModTime()) {
		out := make(map[string]string, len(entry.values))
		for k, v := range entry.values {
			out[k] = v
		}
		return out, nil
	}

	raw, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("read secret file: %w", err)
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse secret file %s: %w", id, err)
	}

	s.mu.Lock()
	s.cache[id] = cacheEntry{modTime: info.ModTime(), values: values}
	s.mu.Unlock()

	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out, nil
}

// persist atomically writes values to disk (temp file + rename) and updates
// the cache. Caller must hold the per-id lock.
func (s *Store) persist(id string, values map[string]string) error {
	raw, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal secret file: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, id+".yaml.tmp-*")
	if err != nil {
		return fmt.Errorf("create temp secret file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp secret file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp secret file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp secret file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(id)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename secret file: %w", err)
	}

	info, err := os.Stat(s.path(id))
	if err != nil {
		return fmt.Errorf("stat secret file after write: %w", err)
	}
	s.mu.Lock()
	s.cache[id] = cacheEntry{modTime: info.ModTime(), values: values}
	s.mu.Unlock()
	return nil
}
