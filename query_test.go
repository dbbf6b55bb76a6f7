package trellis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fleetSource = `package Fleet {
	abstract class Vehicle {
		feature mass : ScalarValues::Real;
		composite feature wheels : Wheel [0..*];
	}
	class Car :> Vehicle {
		feature wheels : Wheel :>> wheels [4];
	}
	class Wheel;
	class 'Tow Truck' :> Car;
}

package ScalarValues {
	datatype Real;
}`

func newFleetQuery(t *testing.T) *QueryBuilder {
	t.Helper()
	e := newTestEngine(t, map[string]string{"fleet.kerml": fleetSource})
	require.Empty(t, e.Diagnostics())
	return e.Query()
}

func TestQueryElement(t *testing.T) {
	t.Parallel()
	q := newFleetQuery(t)

	el, err := q.Element("Fleet::Car")
	require.NoError(t, err)
	assert.Equal(t, "Fleet::Car", el.QualifiedName())

	el, err = q.Element("Fleet::Vehicle::mass")
	require.NoError(t, err)
	assert.Equal(t, "feature", el.Kind().String())

	el, err = q.Element("Fleet::'Tow Truck'")
	require.NoError(t, err)
	assert.Equal(t, "Tow Truck", el.Name())
}

func TestQueryElementErrors(t *testing.T) {
	t.Parallel()
	q := newFleetQuery(t)

	_, err := q.Element("")
	assert.Error(t, err)

	_, err = q.Element("Nope")
	assert.Error(t, err)

	_, err = q.Element("Fleet::Nope")
	assert.Error(t, err)

	_, err = q.Type("Fleet")
	assert.Error(t, err, "a package is not a type")
}

func TestQueryConformsAndSpecializes(t *testing.T) {
	t.Parallel()
	q := newFleetQuery(t)

	ok, err := q.Conforms("Fleet::'Tow Truck'", "Fleet::Vehicle")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = q.Specializes("Fleet::Car", "Fleet::Vehicle")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = q.Conforms("Fleet::Vehicle", "Fleet::Car")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueryFirstConforming(t *testing.T) {
	t.Parallel()
	q := newFleetQuery(t)

	got, err := q.FirstConforming("Fleet::'Tow Truck'", []string{"Fleet::Car", "Fleet::Vehicle"})
	require.NoError(t, err)
	assert.Equal(t, "Fleet::Car", got)

	got, err = q.FirstConforming("Fleet::Wheel", []string{"Fleet::Vehicle"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQueryMembersIncludesInherited(t *testing.T) {
	t.Parallel()
	q := newFleetQuery(t)

	members, err := q.Members("Fleet::Car")
	require.NoError(t, err)

	byName := map[string]Member{}
	for _, m := range members {
		byName[m.Name] = m
	}
	assert.Contains(t, byName, "mass", "inherited feature visible")
	require.Contains(t, byName, "wheels")
	assert.Equal(t, "Fleet::Car::wheels", byName["wheels"].QualifiedName,
		"redefining feature shadows the redefined one")
}

func TestQueryResolve(t *testing.T) {
	t.Parallel()
	q := newFleetQuery(t)

	el, err := q.Resolve("Fleet::Car", "Wheel")
	require.NoError(t, err)
	assert.Equal(t, "Fleet::Wheel", el.QualifiedName())

	el, err = q.Resolve("Fleet::Car", "ScalarValues::Real")
	require.NoError(t, err)
	assert.Equal(t, "ScalarValues::Real", el.QualifiedName())

	_, err = q.Resolve("Fleet::Car", "Gearbox")
	assert.Error(t, err)
}

func TestTypeHierarchy(t *testing.T) {
	t.Parallel()
	q := newFleetQuery(t)

	h, err := q.TypeHierarchy("Fleet::Vehicle")
	require.NoError(t, err)
	assert.Equal(t, "Fleet::Vehicle", h.Type.QualifiedName)
	assert.Equal(t, "class", h.Type.Kind)

	// Implicit root supertype shows up flagged as implied.
	require.Len(t, h.Supertypes, 1)
	assert.Equal(t, "Base::Anything", h.Supertypes[0].QualifiedName)
	assert.True(t, h.Supertypes[0].Implied)

	var subNames []string
	for _, s := range h.Subtypes {
		subNames = append(subNames, s.QualifiedName)
	}
	assert.Equal(t, []string{"Fleet::Car"}, subNames)

	assert.Contains(t, h.AllSupertypes, "Base::Anything")
}

func TestTypeHierarchyClosureOrder(t *testing.T) {
	t.Parallel()
	q := newFleetQuery(t)

	h, err := q.TypeHierarchy("Fleet::'Tow Truck'")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(h.AllSupertypes), 2)
	assert.Equal(t, "Fleet::Car", h.AllSupertypes[0], "direct supertype first")
	assert.Contains(t, h.AllSupertypes, "Fleet::Vehicle")
}

func TestElementDetail(t *testing.T) {
	t.Parallel()
	q := newFleetQuery(t)

	d, err := q.ElementDetail("Fleet::Car")
	require.NoError(t, err)
	assert.Equal(t, "fleet.kerml", d.Document)
	assert.Equal(t, "Fleet", d.Owner)
	require.Len(t, d.Heritage, 1)
	assert.Equal(t, "Fleet::Vehicle", d.Heritage[0].QualifiedName)
	assert.Equal(t, "subclassification", d.Heritage[0].Kind)

	features := map[string]FeatureInfo{}
	for _, f := range d.Features {
		features[f.Name] = f
	}

	require.Contains(t, features, "wheels")
	wheels := features["wheels"]
	assert.Equal(t, "Fleet::Car::wheels", wheels.QualifiedName, "redefinition shadows inherited wheels")
	assert.False(t, wheels.Inherited)
	assert.Equal(t, 4, wheels.Lower)
	assert.Equal(t, 4, wheels.Upper)
	assert.Equal(t, "Fleet::Wheel", wheels.TypedBy)

	require.Contains(t, features, "mass")
	mass := features["mass"]
	assert.True(t, mass.Inherited)
	assert.Equal(t, "ScalarValues::Real", mass.TypedBy)
}

func TestElementDetailPackage(t *testing.T) {
	t.Parallel()
	q := newFleetQuery(t)

	d, err := q.ElementDetail("Fleet")
	require.NoError(t, err)
	assert.Empty(t, d.Owner)
	assert.Empty(t, d.Heritage)
	assert.Len(t, d.Members, 4)
}

func TestElementsFilterAndPaging(t *testing.T) {
	t.Parallel()
	q := newFleetQuery(t)
	workspace := false

	all := q.Elements(ElementFilter{Kind: "class", Library: &workspace}, Pagination{})
	var names []string
	for _, m := range all.Results {
		names = append(names, m.QualifiedName)
	}
	assert.Equal(t, []string{"Fleet::'Tow Truck'", "Fleet::Car", "Fleet::Vehicle", "Fleet::Wheel"}, names)
	assert.Equal(t, 4, all.Total)

	page := q.Elements(ElementFilter{Kind: "class", Library: &workspace}, Pagination{Offset: 1, Limit: 2})
	assert.Equal(t, 4, page.Total)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "Fleet::Car", page.Results[0].QualifiedName)

	empty := q.Elements(ElementFilter{Kind: "class", Library: &workspace}, Pagination{Offset: 10})
	assert.Empty(t, empty.Results)
	assert.Equal(t, 4, empty.Total)
}

func TestPackages(t *testing.T) {
	t.Parallel()
	q := newFleetQuery(t)

	got := q.Packages(Pagination{})
	var names []string
	for _, m := range got.Results {
		names = append(names, m.QualifiedName)
	}
	assert.Contains(t, names, "Fleet")
	assert.Contains(t, names, "Base", "library packages list too")
}

func TestExports(t *testing.T) {
	t.Parallel()
	q := newFleetQuery(t)

	exports := q.Exports()
	var names []string
	for _, ex := range exports {
		names = append(names, ex.Name)
	}
	assert.Equal(t, []string{"B", "Base", "Fleet", "Links", "ScalarValues"}, names)

	fleet := exports[2]
	assert.Equal(t, "Fleet", fleet.Name)
	assert.Equal(t, "package", fleet.Kind)
	assert.Equal(t, "kernel", fleet.Language)
	assert.Equal(t, "fleet.kerml", fleet.Document)
}

func TestSearchElements(t *testing.T) {
	t.Parallel()
	q := newFleetQuery(t)
	workspace := false

	got := q.SearchElements("whee*", ElementFilter{Library: &workspace}, Pagination{})
	var names []string
	for _, m := range got.Results {
		names = append(names, m.QualifiedName)
	}
	assert.Equal(t, []string{"Fleet::Car::wheels", "Fleet::Vehicle::wheels", "Fleet::Wheel"}, names)

	exact := q.SearchElements("car", ElementFilter{}, Pagination{})
	require.Len(t, exact.Results, 1)
	assert.Equal(t, "Fleet::Car", exact.Results[0].QualifiedName)
}

func TestWorkspaceSummary(t *testing.T) {
	t.Parallel()
	q := newFleetQuery(t)

	s := q.WorkspaceSummary()
	assert.Equal(t, 3, s.Documents, "workspace plus two library documents")
	assert.Positive(t, s.Types)
	assert.Positive(t, s.Features)
	assert.GreaterOrEqual(t, s.Packages, 4)
	assert.Zero(t, s.Diagnostics)
	require.Len(t, s.Languages, 1)
	assert.Equal(t, "kernel", s.Languages[0].Language)
}

func TestTransitiveSupertypes(t *testing.T) {
	t.Parallel()
	q := newFleetQuery(t)

	g, err := q.TransitiveSupertypes("Fleet::'Tow Truck'", 1)
	require.NoError(t, err)
	assert.Equal(t, "Fleet::'Tow Truck'", g.Root)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "Fleet::Car", g.Nodes[1].QualifiedName)
	assert.Equal(t, 1, g.Nodes[1].Depth)
	assert.Equal(t, 1, g.Depth)

	deep, err := q.TransitiveSupertypes("Fleet::'Tow Truck'", 10)
	require.NoError(t, err)
	var names []string
	for _, n := range deep.Nodes {
		names = append(names, n.QualifiedName)
	}
	assert.Contains(t, names, "Fleet::Vehicle")
	assert.Contains(t, names, "Base::Anything")

	_, err = q.TransitiveSupertypes("Fleet::Car", -1)
	assert.Error(t, err)
}

func TestTransitiveSubtypes(t *testing.T) {
	t.Parallel()
	q := newFleetQuery(t)

	g, err := q.TransitiveSubtypes("Fleet::Vehicle", 10)
	require.NoError(t, err)
	var names []string
	for _, n := range g.Nodes {
		names = append(names, n.QualifiedName)
	}
	assert.Contains(t, names, "Fleet::Car")
	assert.Contains(t, names, "Fleet::'Tow Truck'")
	assert.Equal(t, 2, g.Depth)
}

func TestTransitiveSupertypesDepthZero(t *testing.T) {
	t.Parallel()
	q := newFleetQuery(t)

	g, err := q.TransitiveSupertypes("Fleet::Car", 0)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)
	assert.Zero(t, g.Depth)
}

func TestAbstractLeaves(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, map[string]string{
		"p.kerml": `package P {
			abstract class Unused;
			abstract class Extended;
			class Sub :> Extended;
		}`,
	})
	require.Empty(t, e.Diagnostics())

	var names []string
	for _, m := range e.Query().AbstractLeaves() {
		names = append(names, m.QualifiedName)
	}
	assert.Contains(t, names, "P::Unused")
	assert.NotContains(t, names, "P::Extended")
}

func TestPackageImportGraph(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, map[string]string{
		"a.kerml": `package Alpha { class Thing; }`,
		"b.kerml": `package Beta {
			import Alpha::Thing;
			private import Alpha::*;
			class C :> Thing;
		}`,
	})
	require.Empty(t, e.Diagnostics())

	g := e.Query().PackageImportGraph()

	var alpha, beta *PackageNode
	for i := range g.Packages {
		switch g.Packages[i].Name {
		case "Alpha":
			alpha = &g.Packages[i]
		case "Beta":
			beta = &g.Packages[i]
		}
	}
	require.NotNil(t, alpha)
	require.NotNil(t, beta)
	assert.False(t, alpha.Library)
	assert.Positive(t, beta.ElementCount)

	var found *ImportEdge
	for i := range g.Edges {
		if g.Edges[i].FromPackage == "Beta" && g.Edges[i].ToPackage == "Alpha" {
			found = &g.Edges[i]
		}
	}
	require.NotNil(t, found, "Beta imports Alpha")
	assert.Equal(t, 2, found.ImportCount)
}

func TestCircularImports(t *testing.T) {
	t.Parallel()
	acyclic := newTestEngine(t, map[string]string{
		"a.kerml": `package Alpha { class Thing; }`,
		"b.kerml": `package Beta { import Alpha::*; }`,
	})
	assert.Empty(t, acyclic.Query().CircularImports())

	cyclic := newTestEngine(t, map[string]string{
		"a.kerml": `package Alpha { import Beta::*; class A; }`,
		"b.kerml": `package Beta { import Alpha::*; class B; }`,
	})
	require.Empty(t, cyclic.Diagnostics())

	cycles := cyclic.Query().CircularImports()
	require.Len(t, cycles, 1)
	cycle := cycles[0]
	require.Len(t, cycle, 3)
	assert.Equal(t, cycle[0], cycle[len(cycle)-1])
	assert.ElementsMatch(t, []string{"Alpha", "Beta"}, cycle[:2])
}
