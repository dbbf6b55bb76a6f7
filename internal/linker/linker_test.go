package linker

import (
	"context"
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/trellis/internal/ast"
	"github.com/jward/trellis/internal/meta"
	"github.com/jward/trellis/internal/model"
	"github.com/jward/trellis/internal/scope"
)

// linkAll parses and builds each source keyed by URI, collects every document
// into a fresh global scope and links them in URI order.
func linkAll(t *testing.T, sources map[string]string) (map[string]*model.Document, *Linker) {
	t.Helper()
	global := scope.NewGlobalScope()
	docs := make(map[string]*model.Document, len(sources))
	uris := slices.Sorted(maps.Keys(sources))
	for _, uri := range uris {
		root, errs := ast.Parse(sources[uri])
		require.Empty(t, errs, "parse %s", uri)
		doc, diags := meta.BuildDocument(uri, "kernel", root)
		require.Empty(t, diags, "build %s", uri)
		docs[uri] = doc
		global.CollectDocument(doc)
	}
	l := New(global)
	for _, uri := range uris {
		require.NoError(t, l.LinkDocument(context.Background(), docs[uri]))
	}
	return docs, l
}

// member descends from the document root through named members.
func member(t *testing.T, doc *model.Document, path ...string) *model.Membership {
	t.Helper()
	var (
		ns model.Namespace = doc.Root
		m  *model.Membership
	)
	for _, name := range path {
		var status model.LookupStatus
		m, status = ns.FindMember(name)
		require.Equal(t, model.LookupFound, status, "member %q", name)
		next, ok := m.FinalElement().(model.Namespace)
		if ok {
			ns = next
		}
	}
	return m
}

func typeNamed(t *testing.T, doc *model.Document, path ...string) model.TypeLike {
	t.Helper()
	tl, ok := member(t, doc, path...).FinalElement().(model.TypeLike)
	require.True(t, ok, "%v is not a type", path)
	return tl
}

func heritageTarget(t *testing.T, tl model.TypeLike, index int) model.TypeLike {
	t.Helper()
	edges := tl.TypeNode().Heritage()
	require.Greater(t, len(edges), index)
	tgt := edges[index].TargetType()
	require.NotNil(t, tgt, "heritage %d unresolved", index)
	return tgt
}

func TestLinkHeritageThroughImport(t *testing.T) {
	t.Parallel()
	docs, l := linkAll(t, map[string]string{
		"a.kerml": `package Vehicles { class Vehicle; }`,
		"b.kerml": `package Cars {
			import Vehicles::Vehicle;
			class Car :> Vehicle;
		}`,
	})
	require.Empty(t, l.Diagnostics())

	car := typeNamed(t, docs["b.kerml"], "Cars", "Car")
	assert.Equal(t, "Vehicles::Vehicle", heritageTarget(t, car, 0).QualifiedName())
}

func TestLinkQualifiedHeritage(t *testing.T) {
	t.Parallel()
	docs, l := linkAll(t, map[string]string{
		"a.kerml": `package Vehicles { class Vehicle; }`,
		"b.kerml": `package Cars { class Car :> Vehicles::Vehicle; }`,
	})
	require.Empty(t, l.Diagnostics())

	car := typeNamed(t, docs["b.kerml"], "Cars", "Car")
	assert.Equal(t, "Vehicles::Vehicle", heritageTarget(t, car, 0).QualifiedName())
}

// A specialization clause never resolves to the declaring type itself; the
// name reaches past it to the same-named type in an enclosing namespace.
func TestLinkHeritageSkipsDeclaringType(t *testing.T) {
	t.Parallel()
	docs, l := linkAll(t, map[string]string{
		"a.kerml": `package P {
			class Thing;
			package Inner {
				class Thing :> Thing;
			}
		}`,
	})
	require.Empty(t, l.Diagnostics())

	inner := typeNamed(t, docs["a.kerml"], "P", "Inner", "Thing")
	tgt := heritageTarget(t, inner, 0)
	assert.Equal(t, "P::Thing", tgt.QualifiedName())
	assert.NotSame(t, inner, tgt)
}

func TestLinkThroughAlias(t *testing.T) {
	t.Parallel()
	docs, l := linkAll(t, map[string]string{
		"a.kerml": `package Shapes {
			class Widget;
			alias W for Widget;
		}`,
		"b.kerml": `package App { class Gadget :> Shapes::W; }`,
	})
	require.Empty(t, l.Diagnostics())

	gadget := typeNamed(t, docs["b.kerml"], "App", "Gadget")
	assert.Equal(t, "Shapes::Widget", heritageTarget(t, gadget, 0).QualifiedName())

	alias := member(t, docs["a.kerml"], "Shapes", "W")
	require.True(t, alias.IsAlias())
	widget := typeNamed(t, docs["a.kerml"], "Shapes", "Widget")
	assert.Same(t, model.Element(widget), alias.FinalElement())
}

func TestLinkUnresolvedReference(t *testing.T) {
	t.Parallel()
	docs, l := linkAll(t, map[string]string{
		"a.kerml": `package P { class C :> Missing; }`,
	})

	diags := l.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "could not resolve reference to 'Missing'", diags[0].Message)
	assert.Equal(t, "specializes", diags[0].Property)
	assert.Equal(t, 0, diags[0].Index)

	c := typeNamed(t, docs["a.kerml"], "P", "C")
	edges := c.TypeNode().Heritage()
	require.Len(t, edges, 1)
	assert.Nil(t, edges[0].TargetType())
	assert.True(t, edges[0].Reference().Failed)
}

func TestLinkAmbiguousReference(t *testing.T) {
	t.Parallel()
	_, l := linkAll(t, map[string]string{
		"a.kerml": `package P {
			class Dup;
			datatype Dup;
			class C :> Dup;
		}`,
	})

	diags := l.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "reference to 'Dup' is ambiguous", diags[0].Message)
	assert.Equal(t, "specializes", diags[0].Property)
}

func TestLinkUnresolvedMiddleSegment(t *testing.T) {
	t.Parallel()
	_, l := linkAll(t, map[string]string{
		"a.kerml": `package P { class C; }`,
		"b.kerml": `package Q { class D :> P::Nope::C; }`,
	})

	diags := l.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "could not resolve reference to 'Nope'", diags[0].Message)
	assert.Equal(t, 1, diags[0].Index)
}

func TestLinkExpectedKindMismatch(t *testing.T) {
	t.Parallel()
	_, l := linkAll(t, map[string]string{
		"a.kerml": `package P {
			datatype Torque;
			feature speed :> Torque;
		}`,
	})

	diags := l.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "expected a feature, found datatype", diags[0].Message)
	assert.Equal(t, "subsets", diags[0].Property)
	require.Len(t, diags[0].Related, 1)
	assert.Equal(t, "resolved here", diags[0].Related[0].Message)
}

func TestLinkPrivateNotVisibleThroughImport(t *testing.T) {
	t.Parallel()
	docs, l := linkAll(t, map[string]string{
		"a.kerml": `package Lib {
			private class Secret;
			class Open;
		}`,
		"b.kerml": `package App {
			import Lib::*;
			class UsesOpen :> Open;
			class UsesSecret :> Secret;
		}`,
	})

	diags := l.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "could not resolve reference to 'Secret'", diags[0].Message)

	open := typeNamed(t, docs["b.kerml"], "App", "UsesOpen")
	assert.Equal(t, "Lib::Open", heritageTarget(t, open, 0).QualifiedName())
}

func TestLinkProtectedVisibleThroughInheritance(t *testing.T) {
	t.Parallel()
	docs, l := linkAll(t, map[string]string{
		"a.kerml": `package P {
			class Base {
				protected class Helper;
			}
			class Sub :> Base {
				feature h : Helper;
			}
		}`,
	})
	require.Empty(t, l.Diagnostics())

	sub := typeNamed(t, docs["a.kerml"], "P", "Sub")
	h, status := sub.FindMember("h")
	require.Equal(t, model.LookupFound, status)
	f, ok := h.Element().(*model.Feature)
	require.True(t, ok)
	typings := f.Specializations(model.KindFeatureTyping)
	require.Len(t, typings, 1)
	assert.Equal(t, "P::Base::Helper", typings[0].TargetType().QualifiedName())
}

func TestLinkProtectedHiddenFromQualifiedAccess(t *testing.T) {
	t.Parallel()
	_, l := linkAll(t, map[string]string{
		"a.kerml": `package P {
			class Base {
				protected class Helper;
			}
		}`,
		"b.kerml": `package Q { feature k : P::Base::Helper; }`,
	})

	diags := l.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "could not resolve reference to 'Helper'", diags[0].Message)
	assert.Equal(t, 2, diags[0].Index)
}

func TestLinkRecursiveImport(t *testing.T) {
	t.Parallel()
	docs, l := linkAll(t, map[string]string{
		"a.kerml": `package Lib {
			package Nested {
				package Deep { class Gem; }
			}
		}`,
		"b.kerml": `package App {
			private import Lib::**;
			class C :> Gem;
		}`,
	})
	require.Empty(t, l.Diagnostics())

	c := typeNamed(t, docs["b.kerml"], "App", "C")
	assert.Equal(t, "Lib::Nested::Deep::Gem", heritageTarget(t, c, 0).QualifiedName())
}

// A private import supplies names inside the importing namespace but is not
// re-exported through a wildcard import of that namespace.
func TestLinkPrivateImportNotReExported(t *testing.T) {
	t.Parallel()
	_, l := linkAll(t, map[string]string{
		"a.kerml": `package Lib { class Thing; }`,
		"b.kerml": `package Mid { private import Lib::Thing; }`,
		"c.kerml": `package App {
			import Mid::*;
			class C :> Thing;
		}`,
	})

	diags := l.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "could not resolve reference to 'Thing'", diags[0].Message)
}

func TestLinkPublicImportReExported(t *testing.T) {
	t.Parallel()
	docs, l := linkAll(t, map[string]string{
		"a.kerml": `package Lib { class Thing; }`,
		"b.kerml": `package Mid { import Lib::Thing; }`,
		"c.kerml": `package App {
			import Mid::*;
			class C :> Thing;
		}`,
	})
	require.Empty(t, l.Diagnostics())

	c := typeNamed(t, docs["c.kerml"], "App", "C")
	assert.Equal(t, "Lib::Thing", heritageTarget(t, c, 0).QualifiedName())
}

// Content arriving through a supertype outranks the same name arriving
// through an import.
func TestLinkInheritedWinsOverImported(t *testing.T) {
	t.Parallel()
	docs, l := linkAll(t, map[string]string{
		"a.kerml": `package Lib { class Pick; }`,
		"b.kerml": `package P {
			class Base {
				class Pick;
			}
			class Sub :> Base {
				import Lib::Pick;
				feature f : Pick;
			}
		}`,
	})
	require.Empty(t, l.Diagnostics())

	sub := typeNamed(t, docs["b.kerml"], "P", "Sub")
	m, status := sub.FindMember("f")
	require.Equal(t, model.LookupFound, status)
	f := m.Element().(*model.Feature)
	typings := f.Specializations(model.KindFeatureTyping)
	require.Len(t, typings, 1)
	assert.Equal(t, "P::Base::Pick", typings[0].TargetType().QualifiedName())
}

// Same-language documents win cross-language name clashes in the global
// scope.
func TestLinkPrefersSameLanguageExport(t *testing.T) {
	t.Parallel()
	global := scope.NewGlobalScope()
	docs := make(map[string]*model.Document)
	for _, d := range []struct{ uri, lang, src string }{
		{"a.kerml", "kernel", `package Shared { class Inner; }`},
		{"b.sysml", "systems", `package Shared { class Inner; }`},
		{"c.kerml", "kernel", `class User :> Shared::Inner;`},
	} {
		root, errs := ast.Parse(d.src)
		require.Empty(t, errs)
		doc, diags := meta.BuildDocument(d.uri, d.lang, root)
		require.Empty(t, diags)
		docs[d.uri] = doc
		global.CollectDocument(doc)
	}
	l := New(global)
	for _, uri := range []string{"a.kerml", "b.sysml", "c.kerml"} {
		require.NoError(t, l.LinkDocument(context.Background(), docs[uri]))
	}
	require.Empty(t, l.Diagnostics())

	user := typeNamed(t, docs["c.kerml"], "User")
	tgt := heritageTarget(t, user, 0)
	assert.Same(t, docs["a.kerml"], tgt.Document())
}

// A cyclic specialization pair links both edges without recursing forever.
func TestLinkHeritageCycle(t *testing.T) {
	t.Parallel()
	docs, l := linkAll(t, map[string]string{
		"a.kerml": `package P {
			class A :> B;
			class B :> A;
		}`,
	})
	require.Empty(t, l.Diagnostics())

	a := typeNamed(t, docs["a.kerml"], "P", "A")
	b := typeNamed(t, docs["a.kerml"], "P", "B")
	assert.Same(t, b.TypeNode(), heritageTarget(t, a, 0).TypeNode())
	assert.Same(t, a.TypeNode(), heritageTarget(t, b, 0).TypeNode())
}

func TestLinkDocumentHonorsCancellation(t *testing.T) {
	t.Parallel()
	root, errs := ast.Parse(`package P { class C; }`)
	require.Empty(t, errs)
	doc, diags := meta.BuildDocument("a.kerml", "kernel", root)
	require.Empty(t, diags)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := New(scope.NewGlobalScope())
	assert.ErrorIs(t, l.LinkDocument(ctx, doc), context.Canceled)
}

// Resolving a reference twice is cached: the second call returns the same
// target without adding diagnostics.
func TestResolveReferenceYieldsNamedElement(t *testing.T) {
	t.Parallel()
	docs, l := linkAll(t, map[string]string{
		"a.kerml": `package P {
			class Base;
			alias B for Base;
			class C :> B;
		}`,
	})
	require.Empty(t, l.Diagnostics())

	c := typeNamed(t, docs["a.kerml"], "P", "C")
	edge := c.TypeNode().Heritage()[0]
	got := l.ResolveReference(edge.Reference(), edge)
	require.NotNil(t, got)
	_, wrapped := got.(*model.Membership)
	assert.False(t, wrapped, "resolution must land on the element, not its membership")
	assert.Equal(t, "P::Base", got.QualifiedName())

	cached := edge.Reference().Resolved
	require.NotEmpty(t, cached)
	assert.Equal(t, "P::Base", cached[len(cached)-1].QualifiedName())
}

func TestResolveReferenceCached(t *testing.T) {
	t.Parallel()
	docs, l := linkAll(t, map[string]string{
		"a.kerml": `package P {
			class Base;
			class C :> Base;
		}`,
	})
	require.Empty(t, l.Diagnostics())

	c := typeNamed(t, docs["a.kerml"], "P", "C")
	edge := c.TypeNode().Heritage()[0]
	first := l.ResolveReference(edge.Reference(), edge)
	second := l.ResolveReference(edge.Reference(), edge)
	assert.Same(t, first, second)
	assert.Empty(t, l.Diagnostics())
}
