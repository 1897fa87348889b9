// Package loader implements the OCI/file loader (§4.4): resolving a
// file://, bare-path, or oci:// reference into a local artifact, placed
// cross-device-safely under the plugin directory.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"

	"github.com/wassette-project/wassette/internal/wasserr"
)

// Loader resolves component references into a local artifact file.
type Loader struct {
	PluginDir string

	// newRepository is overridable in tests.
	newRepository func(ref string) (*remote.Repository, error)
}

// New returns a Loader that places artifacts under pluginDir.
func New(pluginDir string) *Loader {
	return &Loader{PluginDir: pluginDir}
}

// Result is what a successful Load produces: the final artifact path and the
// filename stem the caller should sanitize into a ComponentId.
type Result struct {
	ArtifactPath string
	Stem         string
}

// Load resolves uri and leaves exactly one artifact at
// <plugin_dir>/<id>.wasm, where id is the sanitized stem the caller computes
// from Result.Stem. Load is transactional: a failure leaves no trace in the
// plugin directory (§4.5's "failed load leaves no trace").
func (l *Loader) Load(ctx context.Context, uri string, id func(stem string) string) (Result, error) {
	switch {
	case strings.HasPrefix(uri, "oci://"):
		return l.loadOCI(ctx, strings.TrimPrefix(uri, "oci://"), id)
	case strings.HasPrefix(uri, "file://"):
		return l.loadFile(strings.TrimPrefix(uri, "file://"), id)
	default:
		return l.loadFile(uri, id)
	}
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (l *Loader) loadFile(path string, idFn func(string) string) (Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Result{}, wasserr.Newf(wasserr.LoadFailed, "resolve path %q: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return Result{}, wasserr.Newf(wasserr.LoadFailed, "stat %q: %w", abs, err)
	}

	id := idFn(stemOf(abs))
	dest := filepath.Join(l.PluginDir, id+".wasm")

	if err := placeBorrowed(abs, dest); err != nil {
		return Result{}, wasserr.Newf(wasserr.LoadFailed, "place artifact: %w", err)
	}
	return Result{ArtifactPath: dest, Stem: stemOf(abs)}, nil
}

func (l *Loader) loadOCI(ctx context.Context, ref string, idFn func(string) string) (Result, error) {
	repo, err := l.repositoryFor(ref)
	if err != nil {
		return Result{}, wasserr.Newf(wasserr.LoadFailed, "connect to registry: %w", err)
	}

	manifestDesc, err := repo.Resolve(ctx, ref)
	if err != nil {
		return Result{}, wasserr.Newf(wasserr.LoadFailed, "resolve %q: %w", ref, err)
	}
	manifestBytes, err := content.FetchAll(ctx, repo, manifestDesc)
	if err != nil {
		return Result{}, wasserr.Newf(wasserr.LoadFailed, "fetch manifest: %w", err)
	}

	var manifest ocispec.Manifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return Result{}, wasserr.Newf(wasserr.LoadFailed, "decode manifest: %w", err)
	}
	if len(manifest.Layers) == 0 {
		return Result{}, wasserr.Newf(wasserr.LoadFailed, "manifest %q has no layers", ref)
	}
	layer := manifest.Layers[0]

	blob, err := content.FetchAll(ctx, repo, layer)
	if err != nil {
		return Result{}, wasserr.Newf(wasserr.LoadFailed, "fetch artifact blob: %w", err)
	}
	if err := layer.Digest.Validate(); err == nil {
		if computed := digest.FromBytes(blob); computed != layer.Digest {
			return Result{}, wasserr.Newf(wasserr.LoadFailed, "digest mismatch: expected %s, got %s", layer.Digest, computed)
		}
	}

	stem := stemFromRef(ref)
	id := idFn(stem)
	dest := filepath.Join(l.PluginDir, id+".wasm")

	tmp, err := os.CreateTemp(l.PluginDir, id+".wasm.tmp-*")
	if err != nil {
		return Result{}, wasserr.Newf(wasserr.LoadFailed, "create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return Result{}, wasserr.Newf(wasserr.LoadFailed, "write temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return Result{}, wasserr.Newf(wasserr.LoadFailed, "close temp artifact: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return Result{}, wasserr.Newf(wasserr.LoadFailed, "finalize artifact: %w", err)
	}

	return Result{ArtifactPath: dest, Stem: stem}, nil
}

func (l *Loader) repositoryFor(ref string) (*remote.Repository, error) {
	if l.newRepository != nil {
		return l.newRepository(ref)
	}
	repo, err := remote.NewRepository(ref)
	if err != nil {
		return nil, err
	}
	store, err := credentials.NewStoreFromDocker(credentials.StoreOptions{DetectDefaultNativeStore: true})
	if err == nil {
		repo.Client = &auth.Client{
			Credential: credentials.Credential(store),
		}
	}
	return repo, nil
}

func stemFromRef(ref string) string {
	// registry/repo:tag or registry/repo@sha256:digest -> last path segment,
	// stripped of the tag/digest suffix.
	repoPart := ref
	if i := strings.LastIndex(ref, "@"); i != -1 {
		repoPart = ref[:i]
	} else if i := strings.LastIndex(ref, ":"); i != -1 && i > strings.LastIndex(ref, "/") {
		repoPart = ref[:i]
	}
	segs := strings.Split(repoPart, "/")
	return segs[len(segs)-1]
}

// placeBorrowed places src (not owned by the loader) at dest using a hard
// link when possible, falling back to a buffered copy on EXDEV or when
// linking is unsupported. The source file is never modified or removed.
func placeBorrowed(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create plugin dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp name: %w", err)
	}
	tmp := tmpFile.Name()
	tmpFile.Close()
	os.Remove(tmp)

	if err := os.Link(src, tmp); err != nil {
		if copyErr := bufferedCopy(src, tmp); copyErr != nil {
			os.Remove(tmp)
			return copyErr
		}
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

func bufferedCopy(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy bytes: %w", err)
	}
	return out.Close()
}

// Remove deletes the artifact file for id, used by unload (§4.5) and by a
// rolled-back load.
func (l *Loader) Remove(id string) error {
	err := os.Remove(filepath.Join(l.PluginDir, id+".wasm"))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Operation is a small slog start/outcome logging helper narrowed to the
// loader's own domain; it records no duration.
func Operation(ctx context.Context, logger *slog.Logger, op, ref string) func(error) {
	logger.DebugContext(ctx, "loader operation starting", slog.String("operation", op), slog.String("ref", ref))
	return func(err error) {
		if err != nil {
			logger.ErrorContext(ctx, "loader operation failed", slog.String("operation", op), slog.String("ref", ref), slog.String("error", err.Error()))
			return
		}
		logger.DebugContext(ctx, "loader operation completed", slog.String("operation", op), slog.String("ref", ref))
	}
}
