package trellis

import (
	"sort"

	"github.com/jward/trellis/internal/model"
)

// ImportGraph is the package-to-package import graph, aggregated from
// element-level imports across the workspace.
type ImportGraph struct {
	Packages []PackageNode
	Edges    []ImportEdge
}

// PackageNode represents a package in the import graph.
type PackageNode struct {
	Name         string // qualified name
	ElementCount int    // elements declared under the package
	Library      bool
}

// ImportEdge represents a dependency between two packages with the number
// of import declarations that contribute to it.
type ImportEdge struct {
	FromPackage string
	ToPackage   string
	ImportCount int
}

// PackageImportGraph returns the package-to-package import graph.
// Aggregates element-level imports: for each resolved import, the nearest
// enclosing package of the importing element and the nearest enclosing
// package of the imported target form an edge. Unresolved imports and
// imports within a single package are skipped.
func (q *QueryBuilder) PackageImportGraph() *ImportGraph {
	packages := map[string]*PackageNode{}
	type edgeKey struct{ from, to string }
	edgeCounts := map[edgeKey]int{}

	for el := range q.allElements() {
		if pkg, ok := el.(*model.Package); ok {
			qn := pkg.QualifiedName()
			if qn == "" {
				continue
			}
			if _, seen := packages[qn]; !seen {
				packages[qn] = &PackageNode{Name: qn, Library: pkg.IsLibrary()}
			}
			continue
		}

		if owner := enclosingPackage(el); owner != nil {
			if node, ok := packages[owner.QualifiedName()]; ok {
				node.ElementCount++
			}
		}

		imp, ok := el.(*model.Import)
		if !ok {
			continue
		}
		from := enclosingPackage(imp)
		if from == nil {
			continue
		}
		target := imp.Reference().Target()
		if target == nil {
			continue
		}
		if m, ok := target.(*model.Membership); ok {
			target = m.FinalElement()
		}
		if target == nil {
			continue
		}
		var to *model.Package
		if pkg, ok := target.(*model.Package); ok {
			to = pkg
		} else {
			to = enclosingPackage(target)
		}
		if to == nil || to == from {
			continue
		}
		edgeCounts[edgeKey{from: from.QualifiedName(), to: to.QualifiedName()}]++
	}

	names := make([]string, 0, len(packages))
	for name := range packages {
		names = append(names, name)
	}
	sort.Strings(names)

	graph := &ImportGraph{Packages: []PackageNode{}, Edges: []ImportEdge{}}
	for _, name := range names {
		graph.Packages = append(graph.Packages, *packages[name])
	}
	for key, count := range edgeCounts {
		graph.Edges = append(graph.Edges, ImportEdge{
			FromPackage: key.from,
			ToPackage:   key.to,
			ImportCount: count,
		})
	}
	sort.Slice(graph.Edges, func(i, j int) bool {
		if graph.Edges[i].FromPackage != graph.Edges[j].FromPackage {
			return graph.Edges[i].FromPackage < graph.Edges[j].FromPackage
		}
		return graph.Edges[i].ToPackage < graph.Edges[j].ToPackage
	})
	return graph
}

// enclosingPackage walks the owner chain to the nearest package, or nil.
func enclosingPackage(el model.Element) *model.Package {
	for owner := el.Owner(); owner != nil; owner = owner.Owner() {
		if pkg, ok := owner.(*model.Package); ok {
			return pkg
		}
	}
	return nil
}

// CircularImports detects cycles in the package import graph using
// Tarjan's strongly connected components algorithm. Returns a list of
// cycles, each a list of package names with the first element repeated at
// the end. Returns an empty list (not nil) for acyclic graphs.
func (q *QueryBuilder) CircularImports() [][]string {
	graph := q.PackageImportGraph()

	adj := map[string][]string{}
	selfLoops := map[string]bool{}
	for _, edge := range graph.Edges {
		if edge.FromPackage == edge.ToPackage {
			selfLoops[edge.FromPackage] = true
		}
		adj[edge.FromPackage] = append(adj[edge.FromPackage], edge.ToPackage)
	}

	type nodeInfo struct {
		index   int
		lowlink int
		onStack bool
	}
	info := map[string]*nodeInfo{}
	index := 0
	var stack []string
	var result [][]string

	var strongconnect func(v string)
	strongconnect = func(v string) {
		ni := &nodeInfo{index: index, lowlink: index, onStack: true}
		info[v] = ni
		index++
		stack = append(stack, v)

		for _, w := range adj[v] {
			wInfo, visited := info[w]
			if !visited {
				strongconnect(w)
				wInfo = info[w]
				if wInfo.lowlink < ni.lowlink {
					ni.lowlink = wInfo.lowlink
				}
			} else if wInfo.onStack {
				if wInfo.index < ni.lowlink {
					ni.lowlink = wInfo.index
				}
			}
		}

		if ni.lowlink == ni.index {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				info[w].onStack = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			// Only report SCCs with size > 1 (actual cycles) or self-loops.
			if len(scc) > 1 || selfLoops[scc[0]] {
				// Tarjan pops in reverse; flip to natural cycle order.
				for i, j := 0, len(scc)-1; i < j; i, j = i+1, j-1 {
					scc[i], scc[j] = scc[j], scc[i]
				}
				scc = append(scc, scc[0])
				result = append(result, scc)
			}
		}
	}

	for _, pkg := range graph.Packages {
		if _, visited := info[pkg.Name]; !visited {
			strongconnect(pkg.Name)
		}
	}

	if result == nil {
		result = [][]string{}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i][0] < result[j][0]
	})
	return result
}
