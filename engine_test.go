package trellis

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestEngine builds a workspace from in-memory sources, standard library
// included.
func newTestEngine(t *testing.T, sources map[string]string, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	for uri, src := range sources {
		lang, ok := LanguageForFile(uri)
		require.True(t, ok, "unsupported extension in %s", uri)
		e.UpsertDocument(uri, lang, src)
	}
	require.NoError(t, e.Build(context.Background()))
	return e
}

func TestNewLoadsStandardLibrary(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, nil)

	el, err := e.Query().Element("Base::Anything")
	require.NoError(t, err)
	assert.Equal(t, "type", el.Kind().String())
	assert.True(t, el.IsLibrary())

	var libs int
	for _, d := range e.Documents() {
		if d.Library {
			libs++
			assert.True(t, strings.HasPrefix(d.URI, "trellis:///"))
		}
	}
	assert.Equal(t, 2, libs)
}

func TestWithStandardLibraryDisabled(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, map[string]string{
		"p.kerml": `package P { class C; }`,
	}, WithStandardLibrary(false))
	require.Empty(t, e.Diagnostics())

	_, err := e.Query().Element("Base::Anything")
	assert.Error(t, err)

	c, err := e.Query().Type("P::C")
	require.NoError(t, err)
	assert.Empty(t, c.TypeNode().Heritage(), "no implicit supertypes without the library")
}

func TestImplicitSupertypes(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, map[string]string{
		"p.kerml": `package P {
			class C;
			datatype D;
			assoc A;
			feature f;
			class Derived :> C;
		}`,
	})
	require.Empty(t, e.Diagnostics())
	q := e.Query()

	for _, tc := range []struct{ name, root string }{
		{"P::C", "Base::Anything"},
		{"P::D", "Base::DataValue"},
		{"P::A", "Links::Link"},
	} {
		ok, err := q.Conforms(tc.name, tc.root)
		require.NoError(t, err)
		assert.True(t, ok, "%s should conform to %s", tc.name, tc.root)
	}

	// The feature subsets the library root feature.
	f, err := q.Type("P::f")
	require.NoError(t, err)
	edges := f.TypeNode().Heritage()
	require.Len(t, edges, 1)
	assert.True(t, edges[0].IsImplied())
	assert.Equal(t, "Base::things", edges[0].TargetType().QualifiedName())

	// Explicit heritage suppresses injection; conformance still reaches the
	// root transitively.
	derived, err := q.Type("P::Derived")
	require.NoError(t, err)
	require.Len(t, derived.TypeNode().Heritage(), 1)
	assert.False(t, derived.TypeNode().Heritage()[0].IsImplied())
	ok, err := q.Conforms("P::Derived", "Base::Anything")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpsertUnchangedContentSkipsRebuild(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, map[string]string{
		"p.kerml": `package P { class C; }`,
	})

	before := e.docs["p.kerml"]
	e.UpsertDocument("p.kerml", "kernel", `package P { class C; }`)
	assert.Same(t, before, e.docs["p.kerml"], "identical content must not invalidate the document")

	e.UpsertDocument("p.kerml", "kernel", `package P { class D; }`)
	assert.NotSame(t, before, e.docs["p.kerml"])
}

func TestRemoveDocumentInvalidatesExports(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, map[string]string{
		"lib.kerml": `package Lib { class Thing; }`,
		"app.kerml": `package App { class C :> Lib::Thing; }`,
	})
	require.Empty(t, e.Diagnostics())

	e.RemoveDocument("lib.kerml")
	require.NoError(t, e.Build(context.Background()))

	_, err := e.Query().Element("Lib::Thing")
	assert.Error(t, err)

	var messages []string
	for _, d := range e.Diagnostics() {
		messages = append(messages, d.Message)
	}
	assert.Contains(t, messages, "could not resolve reference to 'Lib'")
}

// Changing one document's exports redirects references in documents that
// were not themselves edited.
func TestRebuildRelinksDependents(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, map[string]string{
		"lib.kerml": `package Lib { class Thing; }`,
		"app.kerml": `package App { class C :> Lib::Thing; }`,
	})
	require.Empty(t, e.Diagnostics())

	e.UpsertDocument("lib.kerml", "kernel", `package Lib { class Other; }`)
	require.NoError(t, e.Build(context.Background()))

	var messages []string
	for _, d := range e.Diagnostics() {
		messages = append(messages, d.Message)
	}
	assert.Contains(t, messages, "could not resolve reference to 'Thing'")

	// Restoring the export heals the dependent without touching it.
	e.UpsertDocument("lib.kerml", "kernel", `package Lib { class Thing; class Other; }`)
	require.NoError(t, e.Build(context.Background()))
	assert.Empty(t, e.Diagnostics())
}

func TestBuildHonorsCancellation(t *testing.T) {
	t.Parallel()
	e, err := New(WithParallel(false))
	require.NoError(t, err)
	defer e.Close()
	e.UpsertDocument("p.kerml", "kernel", `package P { class C; }`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, e.Build(ctx), context.Canceled)
}

func TestParseDiagnosticsSurface(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, map[string]string{
		"bad.kerml": `package P { widget Bogus; class Good; }`,
	})

	diags := e.Diagnostics()
	require.NotEmpty(t, diags)
	assert.Contains(t, diags[0].Message, "bad.kerml")

	// Recovery keeps the rest of the document usable.
	_, err := e.Query().Element("P::Good")
	assert.NoError(t, err)
}

func TestIndexFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	files := map[string]string{
		"a.kerml":  `package A { class C; }`,
		"b.sysml":  `package B { class D; }`,
		"skip.txt": `not a model`,
	}
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}

	e, err := New()
	require.NoError(t, err)
	defer e.Close()

	paths := []string{
		filepath.Join(dir, "a.kerml"),
		filepath.Join(dir, "b.sysml"),
		filepath.Join(dir, "skip.txt"),
	}
	require.NoError(t, e.IndexFiles(context.Background(), paths))

	langByURI := map[string]string{}
	for _, d := range e.Documents() {
		if !d.Library {
			langByURI[filepath.Base(d.URI)] = d.Language
		}
	}
	assert.Equal(t, map[string]string{"a.kerml": "kernel", "b.sysml": "systems"}, langByURI)
}

func TestIndexDirectorySkipsHiddenDirs(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".cache"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "top.kerml"), []byte(`package Top;`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "deep.kerml"), []byte(`package Deep;`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cache", "junk.kerml"), []byte(`package Junk;`), 0o644))

	e, err := New()
	require.NoError(t, err)
	defer e.Close()
	require.NoError(t, e.IndexDirectory(context.Background(), dir))

	var names []string
	for _, d := range e.Documents() {
		if !d.Library {
			names = append(names, filepath.Base(d.URI))
		}
	}
	assert.ElementsMatch(t, []string{"top.kerml", "deep.kerml"}, names)
}

func TestWithLanguagesFilters(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.kerml"), []byte(`package A;`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.sysml"), []byte(`package B;`), 0o644))

	e, err := New(WithLanguages("kernel"))
	require.NoError(t, err)
	defer e.Close()
	require.NoError(t, e.IndexDirectory(context.Background(), dir))

	for _, d := range e.Documents() {
		assert.Equal(t, "kernel", d.Language)
	}
}

func TestLanguageForFile(t *testing.T) {
	t.Parallel()
	lang, ok := LanguageForFile("models/vehicle.kerml")
	assert.True(t, ok)
	assert.Equal(t, "kernel", lang)

	lang, ok = LanguageForFile("MODELS/FLOW.SYSML")
	assert.True(t, ok)
	assert.Equal(t, "systems", lang)

	_, ok = LanguageForFile("readme.md")
	assert.False(t, ok)
}

func TestPersist(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	e := newTestEngine(t, map[string]string{
		"p.kerml": `package P { class C :> Missing; }`,
	}, WithStore(dbPath))
	require.NoError(t, e.Persist(context.Background()))

	s := e.Store()
	require.NotNil(t, s)

	row, err := s.DocumentByURI("p.kerml")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "kernel", row.Language)

	el, err := s.ElementByQualifiedName("P::C")
	require.NoError(t, err)
	require.NotNil(t, el)
	assert.Equal(t, "class", el.Kind)

	diags, err := s.DiagnosticsByDocument(row.ID)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "could not resolve reference to 'Missing'", diags[0].Message)

	// Library documents persist too, flagged as such.
	lib, err := s.DocumentByURI("trellis:///kernel/base.kerml")
	require.NoError(t, err)
	require.NotNil(t, lib)
	assert.True(t, lib.Library)
}

func TestPersistWithoutStore(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, nil)
	assert.Error(t, e.Persist(context.Background()))
}
