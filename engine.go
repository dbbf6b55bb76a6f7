package trellis

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jward/trellis/internal/ast"
	"github.com/jward/trellis/internal/linker"
	"github.com/jward/trellis/internal/meta"
	"github.com/jward/trellis/internal/model"
	"github.com/jward/trellis/internal/scope"
	"github.com/jward/trellis/internal/stdlib"
	"github.com/jward/trellis/internal/store"
)

// Engine orchestrates the analysis pipeline: document loading, parsing,
// model building, global scope collection, implicit supertype injection,
// and linking. Query access goes through [Engine.Query].
type Engine struct {
	store     *store.Store // nil without persistence
	global    *scope.GlobalScope
	linker    *linker.Linker
	docs      map[string]*documentState
	languages map[string]bool // nil means all languages

	// dirty accumulates URIs that need rebuilding on the next Build.
	// nil means "rebuild everything" (first run).
	dirty map[string]bool

	withStdlib  bool
	useParallel bool
}

// documentState is one loaded document and everything derived from it.
type documentState struct {
	uri      string
	language string
	hash     string
	source   string
	library  bool

	doc   *model.Document
	diags []model.Diagnostic // parse and build diagnostics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages restricts which languages the Engine will process.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		e.languages = make(map[string]bool, len(languages))
		for _, lang := range languages {
			e.languages[lang] = true
		}
	}
}

// WithParallel controls parallel parsing. When true (default), Build parses
// and constructs dirty documents on a worker pool before the serial
// collect-and-link phases. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithStandardLibrary controls loading of the embedded kernel library.
// Enabled by default; disabling it also disables implicit supertype
// injection, since the injected roots live in the library.
func WithStandardLibrary(enabled bool) Option {
	return func(e *Engine) {
		e.withStdlib = enabled
	}
}

// WithStore attaches a SQLite database at dbPath for persisting the linked
// model via [Engine.Persist]. Without it the Engine is purely in-memory.
func WithStore(dbPath string) Option {
	return func(e *Engine) {
		s, err := store.NewStore(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "trellis: open store: %v\n", err)
			return
		}
		e.store = s
	}
}

// New creates an Engine. The embedded standard library is loaded unless
// disabled with WithStandardLibrary(false).
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		global:      scope.NewGlobalScope(),
		docs:        make(map[string]*documentState),
		withStdlib:  true,
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.linker = linker.New(e.global)

	if e.store != nil {
		if err := e.store.Migrate(); err != nil {
			e.store.Close()
			return nil, fmt.Errorf("trellis: migrate: %w", err)
		}
	}

	if e.withStdlib {
		for _, src := range stdlib.Sources() {
			if err := e.loadDocument(src.URI, src.Language, src.Text, true); err != nil {
				return nil, fmt.Errorf("trellis: load library %s: %w", src.URI, err)
			}
		}
	}
	return e, nil
}

// Close releases the Engine's database resources, if any.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Store returns the underlying Store for direct access. Nil when the Engine
// was created without WithStore.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a new QueryBuilder over the linked model.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{engine: e}
}

// languageExtensions maps file extensions to language names.
var languageExtensions = map[string]string{
	".kerml": "kernel",
	".sysml": "systems",
}

// LanguageForFile returns the language for a file path based on its
// extension, and whether the extension is supported.
func LanguageForFile(path string) (string, bool) {
	lang, ok := languageExtensions[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// UpsertDocument loads or replaces a document by URI. Content hashing skips
// unchanged documents. The document is parsed and rebuilt on the next Build.
func (e *Engine) UpsertDocument(uri, language, source string) {
	hash := fmt.Sprintf("%x", sha256.Sum256([]byte(source)))
	if existing, ok := e.docs[uri]; ok && existing.hash == hash {
		return
	}
	e.docs[uri] = &documentState{
		uri:      uri,
		language: language,
		hash:     hash,
		source:   source,
	}
	e.markDirty(uri)
}

// RemoveDocument drops a document from the workspace and invalidates its
// global scope entries. Other documents relink on the next Build.
func (e *Engine) RemoveDocument(uri string) {
	if _, ok := e.docs[uri]; !ok {
		return
	}
	delete(e.docs, uri)
	e.global.InvalidateDocument(uri)
	if e.dirty == nil {
		e.dirty = make(map[string]bool)
	}
}

func (e *Engine) markDirty(uri string) {
	if e.dirty == nil {
		e.dirty = make(map[string]bool)
	}
	e.dirty[uri] = true
}

// loadDocument parses, builds and collects a single document immediately.
// Used for the embedded library, which must be resolvable before any user
// document builds.
func (e *Engine) loadDocument(uri, language, source string, library bool) error {
	st := &documentState{
		uri:      uri,
		language: language,
		hash:     fmt.Sprintf("%x", sha256.Sum256([]byte(source))),
		source:   source,
		library:  library,
	}
	e.buildDocument(st)
	if len(st.diags) > 0 {
		return fmt.Errorf("%s", st.diags[0].Message)
	}
	e.docs[uri] = st
	e.global.CollectDocument(st.doc)
	e.markDirty(uri)
	return nil
}

// IndexFiles loads the given file paths into the workspace and builds.
// Unsupported extensions and filtered-out languages are skipped; read
// errors on individual files are logged and skipped.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	for _, path := range paths {
		lang, ok := LanguageForFile(path)
		if !ok {
			continue
		}
		if e.languages != nil && !e.languages[lang] {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "trellis: read %s: %v\n", path, err)
			continue
		}
		e.UpsertDocument(path, lang, string(content))
	}
	return e.Build(ctx)
}

// IndexDirectory walks root and loads all files with supported extensions.
// If root is inside a git repository, uses git ls-files to respect
// .gitignore. Falls back to a filesystem walk (skipping hidden dirs) if git
// is unavailable.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	paths, err := e.gitListFiles(root)
	if err != nil {
		// Not a git repo or git not available — fall back to walk.
		paths, err = e.walkListFiles(root)
		if err != nil {
			return err
		}
	}
	return e.IndexFiles(ctx, paths)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to supported languages.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if _, ok := LanguageForFile(absPath); ok {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a
// fallback when git is not available. Skips hidden directories.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := LanguageForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// Build rebuilds every dirty document and relinks the workspace:
//
//  1. Parse and construct the model for each dirty document (parallel
//     unless disabled).
//  2. Replace their global scope entries.
//  3. Inject implicit supertypes for freshly built documents.
//  4. Reset and relink references across the whole workspace, since any
//     export change can redirect names in unrelated documents.
func (e *Engine) Build(ctx context.Context) error {
	defer func() { e.dirty = make(map[string]bool) }()

	var rebuilt []*documentState
	if e.dirty == nil {
		for _, st := range e.docs {
			rebuilt = append(rebuilt, st)
		}
	} else {
		for uri := range e.dirty {
			if st, ok := e.docs[uri]; ok {
				rebuilt = append(rebuilt, st)
			}
		}
	}
	sort.Slice(rebuilt, func(i, j int) bool { return rebuilt[i].uri < rebuilt[j].uri })

	if e.useParallel {
		if err := e.buildParallel(ctx, rebuilt); err != nil {
			return err
		}
	} else {
		for _, st := range rebuilt {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.buildDocument(st)
		}
	}

	for _, st := range rebuilt {
		e.global.InvalidateDocument(st.uri)
		e.global.CollectDocument(st.doc)
	}
	if e.withStdlib {
		for _, st := range rebuilt {
			meta.InjectImplicits(st.doc, e.baseLookup)
		}
	}
	return e.relink(ctx)
}

// buildDocument parses and constructs the model for one document.
func (e *Engine) buildDocument(st *documentState) {
	root, parseErrs := ast.Parse(st.source)
	doc, buildDiags := meta.BuildDocument(st.uri, st.language, root)
	doc.Library = st.library

	st.doc = doc
	st.diags = st.diags[:0]
	for _, pe := range parseErrs {
		st.diags = append(st.diags, model.Diagnostic{
			Message: fmt.Sprintf("%s:%s", st.uri, pe.Error()),
		})
	}
	st.diags = append(st.diags, buildDiags...)
}

// relink resets every reference in the workspace and links all documents
// against the current global scope.
func (e *Engine) relink(ctx context.Context) error {
	uris := make([]string, 0, len(e.docs))
	for uri := range e.docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	for _, uri := range uris {
		resetReferences(e.docs[uri].doc.Root)
	}
	e.linker = linker.New(e.global)
	for _, uri := range uris {
		if err := e.linker.LinkDocument(ctx, e.docs[uri].doc); err != nil {
			return fmt.Errorf("link %s: %w", uri, err)
		}
	}
	return nil
}

func resetReferences(el model.Element) {
	if rel, ok := el.(model.Relationship); ok {
		if ref := rel.Reference(); ref != nil {
			ref.Reset()
			rel.SetTarget(nil)
		}
	}
	for _, child := range el.Children() {
		resetReferences(child)
	}
}

// baseLookup resolves a library qualified name for implicit supertype
// injection. Only owned memberships participate; the library roots are
// declared directly in their packages.
func (e *Engine) baseLookup(qualifiedName string) model.Element {
	parts := strings.Split(qualifiedName, "::")
	m := e.global.StaticElement(parts[0], "kernel")
	if m == nil {
		return nil
	}
	cur := m.FinalElement()
	for _, part := range parts[1:] {
		ns, ok := cur.(model.Namespace)
		if !ok {
			return nil
		}
		next, status := ns.FindMember(part)
		if status != model.LookupFound {
			return nil
		}
		cur = next.FinalElement()
	}
	return cur
}

// Diagnostics returns all diagnostics from the last Build: parse and build
// problems per document, then linking problems.
func (e *Engine) Diagnostics() []model.Diagnostic {
	uris := make([]string, 0, len(e.docs))
	for uri := range e.docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	var out []model.Diagnostic
	for _, uri := range uris {
		out = append(out, e.docs[uri].diags...)
	}
	out = append(out, e.linker.Diagnostics()...)
	return out
}

// DocumentInfo describes one loaded document.
type DocumentInfo struct {
	URI      string
	Language string
	Library  bool
}

// Documents lists the loaded documents sorted by URI.
func (e *Engine) Documents() []DocumentInfo {
	out := make([]DocumentInfo, 0, len(e.docs))
	for _, st := range e.docs {
		out = append(out, DocumentInfo{URI: st.uri, Language: st.language, Library: st.library})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// Persist writes the linked model and its diagnostics to the attached
// store. Each document is replaced transactionally, so a crash mid-persist
// never leaves a document half-saved.
func (e *Engine) Persist(ctx context.Context) error {
	if e.store == nil {
		return fmt.Errorf("trellis: no store configured")
	}
	linkDiags := groupByDocument(e.linker.Diagnostics())
	for _, uri := range sortedURIs(e.docs) {
		if err := ctx.Err(); err != nil {
			return err
		}
		st := e.docs[uri]
		diags := append(append([]model.Diagnostic(nil), st.diags...), linkDiags[uri]...)
		if err := e.store.SaveDocument(st.doc, st.hash, diags); err != nil {
			return fmt.Errorf("persist %s: %w", uri, err)
		}
	}
	return nil
}

func sortedURIs(docs map[string]*documentState) []string {
	uris := make([]string, 0, len(docs))
	for uri := range docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

func groupByDocument(diags []model.Diagnostic) map[string][]model.Diagnostic {
	out := make(map[string][]model.Diagnostic)
	for _, d := range diags {
		if d.Element == nil || d.Element.Document() == nil {
			continue
		}
		uri := d.Element.Document().URI
		out[uri] = append(out[uri], d)
	}
	return out
}
