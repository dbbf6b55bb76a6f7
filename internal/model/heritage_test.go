package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDoc(t *testing.T) *Document {
	t.Helper()
	return NewDocument("test.kerml", "kernel")
}

func addType(t *testing.T, doc *Document, ns Namespace, kind Kind, name string) *Type {
	t.Helper()
	tp := NewType(doc, kind, name)
	_, err := ns.AddMember(tp, VisibilityPublic)
	require.NoError(t, err)
	return tp
}

func addFeature(t *testing.T, doc *Document, ns Namespace, name string) *Feature {
	t.Helper()
	f := NewFeature(doc, name)
	_, err := ns.AddMember(f, VisibilityPublic)
	require.NoError(t, err)
	return f
}

func inherit(t *testing.T, doc *Document, sub *Type, kind Kind, super Element) *Inheritance {
	t.Helper()
	e := NewInheritance(doc, kind, false)
	e.SetTarget(super)
	require.NoError(t, sub.AddHeritage(e))
	return e
}

func TestConformsReflexive(t *testing.T) {
	t.Parallel()
	doc := newTestDoc(t)
	a := addType(t, doc, doc.Root, KindClass, "A")
	assert.True(t, a.Conforms("A"))
	assert.False(t, a.Conforms("B"))
}

func TestConformsTransitive(t *testing.T) {
	t.Parallel()
	doc := newTestDoc(t)
	a := addType(t, doc, doc.Root, KindClass, "A")
	b := addType(t, doc, doc.Root, KindClass, "B")
	c := addType(t, doc, doc.Root, KindClass, "C")
	inherit(t, doc, b, KindSubclassification, a)
	inherit(t, doc, c, KindSubclassification, b)

	assert.True(t, c.Conforms("B"))
	assert.True(t, c.Conforms("A"))
	assert.False(t, a.Conforms("C"))
	assert.True(t, c.ConformsTo(a))
	assert.False(t, a.ConformsTo(c))
}

func TestConformanceThroughUnlinkedEdge(t *testing.T) {
	t.Parallel()
	doc := newTestDoc(t)
	addType(t, doc, doc.Root, KindClass, "A")
	b := addType(t, doc, doc.Root, KindClass, "B")
	e := NewInheritance(doc, KindSubclassification, false)
	require.NoError(t, b.AddHeritage(e)) // target never resolved

	assert.False(t, b.Conforms("A"))
}

func TestDiamondYieldsEachTypeOnce(t *testing.T) {
	t.Parallel()
	doc := newTestDoc(t)
	top := addType(t, doc, doc.Root, KindClass, "Top")
	left := addType(t, doc, doc.Root, KindClass, "Left")
	right := addType(t, doc, doc.Root, KindClass, "Right")
	bottom := addType(t, doc, doc.Root, KindClass, "Bottom")
	inherit(t, doc, left, KindSubclassification, top)
	inherit(t, doc, right, KindSubclassification, top)
	inherit(t, doc, bottom, KindSubclassification, left)
	inherit(t, doc, bottom, KindSubclassification, right)

	var names []string
	for tp := range bottom.AllTypes(KindInvalid, true) {
		names = append(names, tp.Name())
	}
	assert.Equal(t, []string{"Bottom", "Left", "Top", "Right"}, names)
}

func TestHeritageCycleTerminates(t *testing.T) {
	t.Parallel()
	doc := newTestDoc(t)
	a := addType(t, doc, doc.Root, KindClass, "A")
	b := addType(t, doc, doc.Root, KindClass, "B")
	inherit(t, doc, a, KindSubclassification, b)
	inherit(t, doc, b, KindSubclassification, a)

	count := 0
	for range a.AllTypes(KindInvalid, true) {
		count++
	}
	assert.Equal(t, 2, count)
	assert.True(t, a.Conforms("B"))
	assert.True(t, b.Conforms("A"))
}

func TestFirstConformingTraversalOrderWins(t *testing.T) {
	t.Parallel()
	doc := newTestDoc(t)
	base := addType(t, doc, doc.Root, KindClass, "Base")
	mid := addType(t, doc, doc.Root, KindClass, "Mid")
	leaf := addType(t, doc, doc.Root, KindClass, "Leaf")
	inherit(t, doc, mid, KindSubclassification, base)
	inherit(t, doc, leaf, KindSubclassification, mid)

	// Candidate list order is irrelevant; the walk finds Mid before Base.
	name, ok := leaf.FirstConforming([]string{"Base", "Mid"})
	require.True(t, ok)
	assert.Equal(t, "Mid", name)

	name, ok = leaf.FirstConforming([]string{"Leaf", "Mid"})
	require.True(t, ok)
	assert.Equal(t, "Leaf", name)

	_, ok = leaf.FirstConforming([]string{"Other"})
	assert.False(t, ok)

	_, ok = leaf.FirstConforming(nil)
	assert.False(t, ok)
}

func TestSpecializesExcludesSubsetting(t *testing.T) {
	t.Parallel()
	doc := newTestDoc(t)
	owner := addType(t, doc, doc.Root, KindClass, "Owner")
	base := addFeature(t, doc, owner, "base")
	sub := addFeature(t, doc, owner, "sub")
	inherit(t, doc, &sub.Type, KindSubsetting, base)

	// Subsetting contributes to conformance but not to specialization.
	assert.True(t, sub.Type.Conforms("Owner::base"))
	assert.False(t, sub.Type.Specializes("Owner::base"))
}

func TestRedefinitionIsSpecialization(t *testing.T) {
	t.Parallel()
	doc := newTestDoc(t)
	owner := addType(t, doc, doc.Root, KindClass, "Owner")
	base := addFeature(t, doc, owner, "base")
	redef := addFeature(t, doc, owner, "redef")
	inherit(t, doc, &redef.Type, KindRedefinition, base)

	assert.True(t, redef.Type.Specializes("Owner::base"))
}

func TestConjugationDelegatesSpecialization(t *testing.T) {
	t.Parallel()
	doc := newTestDoc(t)
	base := addType(t, doc, doc.Root, KindClass, "Base")
	source := addType(t, doc, doc.Root, KindClass, "Source")
	sink := addType(t, doc, doc.Root, KindClass, "Sink")
	inherit(t, doc, source, KindSubclassification, base)
	inherit(t, doc, sink, KindConjugation, source)

	require.NotNil(t, sink.Conjugator())

	// The conjugate's supertype set is the original's, not its own name.
	assert.True(t, sink.Specializes("Source"))
	assert.True(t, sink.Specializes("Base"))
	assert.False(t, sink.Specializes("Sink"))

	// Conformance does not cross the conjugation edge by itself.
	assert.True(t, sink.Conforms("Sink"))
	assert.False(t, sink.Conforms("Source"))
}

func TestRedefinedNameFallback(t *testing.T) {
	t.Parallel()
	doc := newTestDoc(t)
	owner := addType(t, doc, doc.Root, KindClass, "Owner")
	named := addFeature(t, doc, owner, "wheels")
	anon := addFeature(t, doc, owner, "")
	inherit(t, doc, &anon.Type, KindRedefinition, named)

	assert.Equal(t, "wheels", anon.Name())
}

func TestDirectionFlipsThroughConjugation(t *testing.T) {
	t.Parallel()
	doc := newTestDoc(t)
	source := addType(t, doc, doc.Root, KindClass, "Source")
	f := addFeature(t, doc, source, "flow")
	f.SetDirection(DirectionOut)

	sink := addType(t, doc, doc.Root, KindClass, "Sink")
	inherit(t, doc, sink, KindConjugation, source)

	assert.Equal(t, DirectionOut, source.DirectionOf(f))
	assert.Equal(t, DirectionIn, sink.DirectionOf(f))
}

func TestClassifierFlagsFromHeritage(t *testing.T) {
	t.Parallel()
	doc := newTestDoc(t)
	s := addType(t, doc, doc.Root, KindStructure, "S")
	sub := addType(t, doc, doc.Root, KindType, "Sub")
	inherit(t, doc, sub, KindSubclassification, s)

	assert.True(t, s.Classifier().Has(FlagClass|FlagStructure))
	assert.True(t, sub.Classifier().Has(FlagStructure))
	assert.False(t, sub.Classifier().Has(FlagDataType))
}

func TestQualifiedNames(t *testing.T) {
	t.Parallel()
	doc := newTestDoc(t)
	pkg := NewPackage(doc, "Vehicles")
	_, err := doc.Root.AddMember(pkg, VisibilityPublic)
	require.NoError(t, err)
	car := addType(t, doc, pkg, KindClass, "Car")
	wheel := addFeature(t, doc, car, "wheel")

	assert.Equal(t, "Vehicles", pkg.QualifiedName())
	assert.Equal(t, "Vehicles::Car", car.QualifiedName())
	assert.Equal(t, "Vehicles::Car::wheel", wheel.QualifiedName())
}

func TestFindMemberAmbiguity(t *testing.T) {
	t.Parallel()
	doc := newTestDoc(t)
	pkg := doc.Root
	addType(t, doc, pkg, KindClass, "Dup")
	addType(t, doc, pkg, KindClass, "Dup")

	_, status := pkg.FindMember("Dup")
	assert.Equal(t, LookupAmbiguous, status)

	_, status = pkg.FindMember("Missing")
	assert.Equal(t, LookupMissing, status)
}

func TestAliasMembershipResolvesToFinalElement(t *testing.T) {
	t.Parallel()
	doc := newTestDoc(t)
	target := addType(t, doc, doc.Root, KindClass, "Target")
	targetMem, status := doc.Root.FindMember("Target")
	require.Equal(t, LookupFound, status)

	ref := NewReference([]string{"Target"}, KindElement)
	alias := NewAliasMembership(doc, "Shortcut", ref)
	require.NoError(t, doc.Root.AddChild(alias))
	// Linking resolves the alias to the target's membership.
	alias.SetTarget(targetMem)

	m, status := doc.Root.FindMember("Shortcut")
	require.Equal(t, LookupFound, status)
	assert.Same(t, target, m.FinalElement())
}
