// Package component implements the lifecycle manager (§4.5): the registry of
// loaded components, the load/call/unload pipeline, and reboot recovery over
// in-process Wasm guests invoked through an embedder.Embedder.
package component

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wassette-project/wassette/internal/embedder"
	"github.com/wassette-project/wassette/internal/loader"
	wlog "github.com/wassette-project/wassette/internal/log"
	"github.com/wassette-project/wassette/internal/policy"
	"github.com/wassette-project/wassette/internal/schema"
	"github.com/wassette-project/wassette/internal/secret"
	"github.com/wassette-project/wassette/internal/tools"
	"github.com/wassette-project/wassette/internal/wasserr"
	"github.com/wassette-project/wassette/internal/wit"
)

// Manager owns the registry and mediates loading, invocation, and unloading
// of components (§4.5).
type Manager struct {
	PluginDir      string
	GlobalEnvAllow []string

	loader   *loader.Loader
	embedder embedder.Embedder
	secrets  *secret.Store
	reg      *registry
	logger   *slog.Logger

	onChange tools.ChangeNotifier
}

// New constructs a Manager. secrets has its existence check wired to the new
// registry so Set/Delete on an unregistered component returns
// wasserr.UnknownComponent without internal/secret importing internal/component.
func New(pluginDir string, embd embedder.Embedder, secrets *secret.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		PluginDir: pluginDir,
		loader:    loader.New(pluginDir),
		embedder:  embd,
		secrets:   secrets,
		reg:       newRegistry(),
		logger:    logger,
	}
	secrets.SetExistenceCheck(func(id string) bool { return m.reg.has(ID(id)) })
	return m
}

// OnChange registers the callback invoked after every successful load or
// unload, per §4.6's "notifies the transport that the tool list has changed".
func (m *Manager) OnChange(fn tools.ChangeNotifier) { m.onChange = fn }

func (m *Manager) notifyChanged() {
	if m.onChange == nil {
		return
	}
	m.onChange(m.AllTools())
}

// AllTools returns the qualified tool list across every registered
// component, used both by notifyChanged and by a transport's initial
// tools/list response.
func (m *Manager) AllTools() []tools.Descriptor {
	var out []tools.Descriptor
	for _, e := range m.reg.list() {
		out = append(out, e.Tools...)
	}
	return out
}

// Load runs the six-step pipeline from §4.5: resolve, compute ID, compile,
// introspect, persist metadata, insert. A failure at any step rolls back
// everything written so far, leaving the plugin directory untouched (the
// "load is transactional" invariant).
func (m *Manager) Load(ctx context.Context, sourceURI string) (id ID, err error) {
	done := wlog.Operation(ctx, "component", "load", slog.String("source_uri", sourceURI))
	defer func() { done(err) }()

	result, err := m.loader.Load(ctx, sourceURI, func(stem string) string { return string(SanitizeID(stem)) })
	if err != nil {
		return "", err
	}
	id = SanitizeID(result.Stem)

	if m.reg.has(id) {
		m.loader.Remove(string(id))
		return "", errAlreadyLoaded(id)
	}

	rollback := func() {
		m.loader.Remove(string(id))
		removeMetadata(m.PluginDir, id)
	}

	wasmBytes, err := os.ReadFile(result.ArtifactPath)
	if err != nil {
		rollback()
		return "", wasserr.Newf(wasserr.LoadFailed, "read artifact: %w", err)
	}

	compiled, err := m.embedder.Compile(ctx, wasmBytes)
	if err != nil {
		rollback()
		return "", err
	}
	tmpl, err := m.embedder.Template(ctx, compiled)
	if err != nil {
		compiled.Close(ctx)
		rollback()
		return "", err
	}

	funcs, err := m.embedder.ExportedFunctions(ctx, compiled)
	if err != nil {
		tmpl.Close(ctx)
		compiled.Close(ctx)
		rollback()
		return "", err
	}
	descs, err := descriptorsFromFunctions(id, funcs)
	if err != nil {
		tmpl.Close(ctx)
		compiled.Close(ctx)
		rollback()
		return "", err
	}
	for _, d := range descs {
		if tools.CollidesWithBuiltin(d.Name) {
			tmpl.Close(ctx)
			compiled.Close(ctx)
			rollback()
			return "", wasserr.Newf(wasserr.LoadFailed, "exported tool %q collides with a built-in tool name", d.Name)
		}
	}

	metaPath, err := writeMetadata(m.PluginDir, id, sourceURI, descs, canonicalizeTimestamp())
	if err != nil {
		tmpl.Close(ctx)
		compiled.Close(ctx)
		rollback()
		return "", wasserr.Newf(wasserr.LoadFailed, "persist metadata: %w", err)
	}

	doc, err := loadPolicy(m.PluginDir, id)
	if err != nil {
		tmpl.Close(ctx)
		compiled.Close(ctx)
		rollback()
		return "", wasserr.Newf(wasserr.LoadFailed, "load policy: %w", err)
	}

	entry := &Entry{
		ID:           id,
		SourceURI:    sourceURI,
		ArtifactPath: result.ArtifactPath,
		MetadataPath: metaPath,
		Compiled:     compiled,
		Template:     tmpl,
		Tools:        descs,
		Policy:       doc,
	}
	if err := m.reg.insert(id, entry); err != nil {
		tmpl.Close(ctx)
		compiled.Close(ctx)
		rollback()
		return "", err
	}

	m.notifyChanged()
	return id, nil
}

func descriptorsFromFunctions(id ID, funcs []wit.Function) ([]tools.Descriptor, error) {
	descs := make([]tools.Descriptor, 0, len(funcs))
	for _, fn := range funcs {
		out := schema.OutputSchema(fn.Results)
		if out != nil {
			out = schema.CanonicalizeOutputSchema(out)
		}
		descs = append(descs, tools.Descriptor{
			Name:         qualifiedToolName(id, fn.Name),
			Description:  fn.Doc,
			InputSchema:  schema.InputSchema(fn.Params),
			OutputSchema: out,
		})
	}
	return descs, nil
}

// qualifiedToolName builds the tool name a transport advertises for a given
// component's export, namespacing by component id so two components
// exporting a same-named function never collide (§3's global uniqueness
// invariant).
func qualifiedToolName(id ID, export string) string {
	return fmt.Sprintf("%s_%s", id, strings.TrimPrefix(export, "_"))
}

// Unload removes id from the registry and deletes its artifact, metadata,
// and policy files. The secret file is retained (§4.5: "Unload ... retains
// secret file").
func (m *Manager) Unload(id ID) (err error) {
	ctx := context.Background()
	done := wlog.Operation(ctx, "component", "unload", wlog.ComponentAttr(string(id)))
	defer func() { done(err) }()

	entry, ok := m.reg.remove(id)
	if !ok {
		return errUnknownComponent(id)
	}

	if entry.Template != nil {
		entry.Template.Close(ctx)
	}
	if entry.Compiled != nil {
		entry.Compiled.Close(ctx)
	}

	var errs error
	if err := m.loader.Remove(string(id)); err != nil {
		errs = joinErr(errs, err)
	}
	if err := removeMetadata(m.PluginDir, id); err != nil {
		errs = joinErr(errs, err)
	}
	if err := removePolicy(m.PluginDir, id); err != nil {
		errs = joinErr(errs, err)
	}

	m.notifyChanged()
	return errs
}

func joinErr(existing, next error) error {
	if existing == nil {
		return next
	}
	return fmt.Errorf("%w; %w", existing, next)
}

// Invoke runs the call pipeline from §4.5: look up, translate args, build
// sandbox, instantiate, call, canonicalize results.
func (m *Manager) Invoke(ctx context.Context, id ID, exportName string, args map[string]any) (result map[string]any, err error) {
	done := wlog.Operation(ctx, "component", "invoke", wlog.ComponentAttr(string(id)), wlog.ToolAttr(exportName))
	defer func() { done(err) }()

	entry, ok := m.reg.get(id)
	if !ok {
		return nil, errUnknownComponent(id)
	}

	params, err := m.paramsFor(ctx, entry, exportName)
	if err != nil {
		return nil, err
	}
	vals, err := schema.JSONToVals(args, params)
	if err != nil {
		return nil, err
	}

	sandboxCfg, err := buildSandbox(id, entry.effectivePolicy(), m.secrets, m.GlobalEnvAllow)
	if err != nil {
		return nil, err
	}

	inst, err := m.embedder.Instantiate(ctx, entry.Template, sandboxCfg)
	if err != nil {
		return nil, err
	}
	defer inst.Close(ctx)

	results, err := m.embedder.Invoke(ctx, inst, exportName, vals)
	if err != nil {
		return nil, err
	}

	return schema.ValsToJSON(results), nil
}

// paramsFor re-derives a function's wit.Param list by re-introspecting the
// compiled component; Entry only retains the already-rendered JSON Schema
// for advertising, not the raw wit.Function, so a call needs the embedder's
// live signature to marshal arguments precisely.
func (m *Manager) paramsFor(ctx context.Context, entry *Entry, exportName string) ([]wit.Param, error) {
	funcs, err := m.embedder.ExportedFunctions(ctx, entry.Compiled)
	if err != nil {
		return nil, err
	}
	for _, fn := range funcs {
		if fn.Name == exportName {
			return fn.Params, nil
		}
	}
	return nil, wasserr.Newf(wasserr.UnknownComponent, "no such export %q on component %q", exportName, entry.ID)
}

// canonicalizeTimestamp stamps the metadata sidecar's canonicalized_at field.
func canonicalizeTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// RebootRecovery scans pluginDir for *.wasm files and re-registers each one,
// fanning out with errgroup bounded by GOMAXPROCS (§4.5). A single
// component's failure is logged and that component is skipped, not fatal to
// the scan.
func (m *Manager) RebootRecovery(ctx context.Context) error {
	entries, err := os.ReadDir(m.PluginDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("scan plugin dir: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".wasm" {
			continue
		}
		name := e.Name()
		g.Go(func() error {
			id := SanitizeID(strings.TrimSuffix(name, filepath.Ext(name)))
			if err := m.reload(gctx, id); err != nil {
				m.logger.ErrorContext(gctx, "reboot recovery: ejecting component", slog.String("id", string(id)), slog.String("error", err.Error()))
			}
			return nil
		})
	}
	return g.Wait()
}

func (m *Manager) reload(ctx context.Context, id ID) error {
	artifactPath := filepath.Join(m.PluginDir, string(id)+".wasm")
	wasmBytes, err := os.ReadFile(artifactPath)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}

	compiled, err := m.embedder.Compile(ctx, wasmBytes)
	if err != nil {
		return fmt.Errorf("recompile: %w", err)
	}
	tmpl, err := m.embedder.Template(ctx, compiled)
	if err != nil {
		compiled.Close(ctx)
		return fmt.Errorf("template: %w", err)
	}

	var descs []tools.Descriptor
	var sourceURI string
	if meta, err := readMetadata(m.PluginDir, id); err == nil {
		descs = meta.Schemas
		sourceURI = meta.SourceURI
		for i := range descs {
			if descs[i].OutputSchema != nil {
				descs[i].OutputSchema = schema.CanonicalizeOutputSchema(descs[i].OutputSchema)
			}
		}
	} else {
		funcs, err := m.embedder.ExportedFunctions(ctx, compiled)
		if err != nil {
			tmpl.Close(ctx)
			compiled.Close(ctx)
			return fmt.Errorf("introspect: %w", err)
		}
		descs, err = descriptorsFromFunctions(id, funcs)
		if err != nil {
			tmpl.Close(ctx)
			compiled.Close(ctx)
			return fmt.Errorf("build descriptors: %w", err)
		}
	}

	doc, err := loadPolicy(m.PluginDir, id)
	if err != nil {
		tmpl.Close(ctx)
		compiled.Close(ctx)
		return fmt.Errorf("load policy: %w", err)
	}

	entry := &Entry{
		ID:           id,
		SourceURI:    sourceURI,
		ArtifactPath: artifactPath,
		MetadataPath: metadataPath(m.PluginDir, id),
		Compiled:     compiled,
		Template:     tmpl,
		Tools:        descs,
		Policy:       doc,
	}
	if err := m.reg.insert(id, entry); err != nil {
		tmpl.Close(ctx)
		compiled.Close(ctx)
		return err
	}
	return nil
}

// Policy returns id's effective policy document (a copy), for the
// get-policy built-in.
func (m *Manager) Policy(id ID) (*policy.Document, error) {
	entry, ok := m.reg.get(id)
	if !ok {
		return nil, errUnknownComponent(id)
	}
	return entry.effectivePolicy().Clone(), nil
}

// UpdatePolicy applies update to id's policy, persists it, and swaps it into
// the registry, used by every grant-*/revoke-*/reset-permission built-in.
func (m *Manager) UpdatePolicy(id ID, update func(*policy.Document) (*policy.Document, error)) error {
	entry, ok := m.reg.get(id)
	if !ok {
		return errUnknownComponent(id)
	}
	newDoc, err := update(entry.effectivePolicy())
	if err != nil {
		return err
	}
	if err := savePolicy(m.PluginDir, id, newDoc); err != nil {
		return err
	}
	return m.reg.replacePolicy(id, func(e *Entry) { e.Policy = newDoc })
}

// ResetPolicy deletes id's policy file; the component retains no grants.
func (m *Manager) ResetPolicy(id ID) error {
	if !m.reg.has(id) {
		return errUnknownComponent(id)
	}
	if err := removePolicy(m.PluginDir, id); err != nil {
		return err
	}
	return m.reg.replacePolicy(id, func(e *Entry) { e.Policy = nil })
}

// List returns every registered component's id and source URI, for the
// list-components built-in.
func (m *Manager) List() []*Entry {
	return m.reg.list()
}

// Secrets exposes the underlying secret store so a dispatch layer can wire
// the secret-list/secret-set/secret-delete built-ins without internal/tools
// importing internal/component.
func (m *Manager) Secrets() *secret.Store { return m.secrets }

// FindTool reverses qualifiedToolName: given a qualified tool name, it
// reports which component and export it was derived from. Trying every
// registered entry's own id as the prefix (rather than splitting on "_")
// handles ids that themselves contain underscores correctly.
func (m *Manager) FindTool(name string) (id ID, exportName string, ok bool) {
	for _, e := range m.reg.list() {
		prefix := string(e.ID) + "_"
		if strings.HasPrefix(name, prefix) {
			for _, t := range e.Tools {
				if t.Name == name {
					return e.ID, strings.TrimPrefix(name, prefix), true
				}
			}
		}
	}
	return "", "", false
}

// Search implements the search-components built-in: a case-insensitive
// substring match over id, source URI, tool names, and tool descriptions
// (§4.5 expansion).
func (m *Manager) Search(query string) []*Entry {
	q := strings.ToLower(query)
	var out []*Entry
	for _, e := range m.reg.list() {
		if strings.Contains(strings.ToLower(string(e.ID)), q) || strings.Contains(strings.ToLower(e.SourceURI), q) {
			out = append(out, e)
			continue
		}
		for _, t := range e.Tools {
			if strings.Contains(strings.ToLower(t.Name), q) || strings.Contains(strings.ToLower(t.Description), q) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
