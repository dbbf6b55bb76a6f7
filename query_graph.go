package trellis

import (
	"fmt"
	"sort"

	"github.com/jward/trellis/internal/model"
)

// HeritageGraph represents a transitive heritage graph rooted at a type.
// The whole workspace adjacency is built once, then traversed with BFS.
type HeritageGraph struct {
	Root  string              // qualified name of the starting type
	Nodes []HeritageGraphNode // all types reachable within depth
	Edges []HeritageGraphEdge // all edges in the subgraph
	Depth int                 // actual max depth reached (may be < maxDepth if graph is shallow)
}

// HeritageGraphNode is a type in the heritage graph with its distance from
// the root.
type HeritageGraphNode struct {
	QualifiedName string
	Kind          string
	Abstract      bool
	Depth         int // BFS depth from root (0 = root itself)
}

// HeritageGraphEdge is a single sub-super relationship in the graph.
type HeritageGraphEdge struct {
	Sub     string
	Super   string
	Kind    string // heritage edge kind name
	Implied bool
}

// heritageGraphData holds workspace-wide adjacency over resolved heritage
// edges, keyed by qualified name.
type heritageGraphData struct {
	forward map[string][]HeritageGraphEdge // sub -> edges to supers
	reverse map[string][]HeritageGraphEdge // super -> edges from subs
	types   map[string]model.TypeLike
}

// buildHeritageGraph walks every type in the workspace once and builds
// forward and reverse adjacency maps. Unresolved edges are skipped.
func (q *QueryBuilder) buildHeritageGraph() *heritageGraphData {
	data := &heritageGraphData{
		forward: map[string][]HeritageGraphEdge{},
		reverse: map[string][]HeritageGraphEdge{},
		types:   map[string]model.TypeLike{},
	}
	for tl := range q.allTypes() {
		sub := tl.QualifiedName()
		if sub == "" {
			continue
		}
		if _, ok := data.types[sub]; !ok {
			data.types[sub] = tl
		}
		for _, e := range tl.TypeNode().Heritage() {
			target := e.TargetType()
			if target == nil {
				continue
			}
			edge := HeritageGraphEdge{
				Sub:     sub,
				Super:   target.QualifiedName(),
				Kind:    heritageKindName(e.Kind()),
				Implied: e.IsImplied(),
			}
			data.forward[edge.Sub] = append(data.forward[edge.Sub], edge)
			data.reverse[edge.Super] = append(data.reverse[edge.Super], edge)
		}
	}
	return data
}

const maxGraphDepth = 100

// TransitiveSupertypes returns the heritage graph above a type up to
// maxDepth. maxDepth of 0 returns only the root node; negative is an error.
// Capped at 100.
func (q *QueryBuilder) TransitiveSupertypes(qualifiedName string, maxDepth int) (*HeritageGraph, error) {
	return q.heritageWalk(qualifiedName, maxDepth, true)
}

// TransitiveSubtypes returns the heritage graph below a type up to
// maxDepth: everything that directly or indirectly inherits from it.
func (q *QueryBuilder) TransitiveSubtypes(qualifiedName string, maxDepth int) (*HeritageGraph, error) {
	return q.heritageWalk(qualifiedName, maxDepth, false)
}

func (q *QueryBuilder) heritageWalk(qualifiedName string, maxDepth int, up bool) (*HeritageGraph, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("heritage graph: maxDepth must be non-negative, got %d", maxDepth)
	}
	if maxDepth > maxGraphDepth {
		maxDepth = maxGraphDepth
	}

	tl, err := q.Type(qualifiedName)
	if err != nil {
		return nil, fmt.Errorf("heritage graph: %w", err)
	}
	root := tl.QualifiedName()

	data := q.buildHeritageGraph()
	adjacency := data.forward
	if !up {
		adjacency = data.reverse
	}

	graph := &HeritageGraph{Root: root, Nodes: []HeritageGraphNode{}, Edges: []HeritageGraphEdge{}}
	visited := map[string]bool{root: true}
	graph.Nodes = append(graph.Nodes, data.nodeFor(root, 0))

	frontier := []string{root}
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, qn := range frontier {
			for _, edge := range adjacency[qn] {
				graph.Edges = append(graph.Edges, edge)
				other := edge.Super
				if !up {
					other = edge.Sub
				}
				if visited[other] {
					continue
				}
				visited[other] = true
				graph.Nodes = append(graph.Nodes, data.nodeFor(other, depth))
				next = append(next, other)
			}
		}
		if len(next) > 0 {
			graph.Depth = depth
		}
		frontier = next
	}
	return graph, nil
}

func (d *heritageGraphData) nodeFor(qualifiedName string, depth int) HeritageGraphNode {
	node := HeritageGraphNode{QualifiedName: qualifiedName, Depth: depth}
	if tl, ok := d.types[qualifiedName]; ok {
		node.Kind = tl.Kind().String()
		node.Abstract = tl.TypeNode().IsAbstract()
	}
	return node
}

// AbstractLeaves returns abstract types with no subtypes anywhere in the
// workspace: declared to be specialized but never used. Ordered by
// qualified name.
func (q *QueryBuilder) AbstractLeaves() []Member {
	data := q.buildHeritageGraph()
	out := []Member{}
	for qn, tl := range data.types {
		if !tl.TypeNode().IsAbstract() || len(data.reverse[qn]) > 0 {
			continue
		}
		out = append(out, Member{
			Name:          tl.Name(),
			QualifiedName: qn,
			Kind:          tl.Kind().String(),
			Visibility:    tl.Visibility().String(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName < out[j].QualifiedName })
	return out
}
