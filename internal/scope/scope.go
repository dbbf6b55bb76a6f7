// Package scope implements name visibility as a lazily evaluated,
// composable tree of scope objects. A scope answers single-name lookups and
// full enumerations over the names visible from a starting element: local
// members first, then inherited supertype content, then imports, then
// enclosing namespaces, then the cross-document global index. Nothing is
// materialized eagerly; child scopes are constructed on demand while a
// query walks the tree.
//
// A scope tree is built for a single resolution query. The cycle-guard sets
// threaded through it accumulate during the walk, so reuse across queries
// would under-report; callers construct a fresh tree per query.
package scope

import (
	"iter"

	"github.com/jward/trellis/internal/model"
)

// Result classifies a local lookup.
type Result int

const (
	// Missing: the name is not present in this scope; continue with child
	// scopes.
	Missing Result = iota
	// Found: the name resolved to a membership in this scope.
	Found
	// Prune: the name exists locally but is intentionally hidden, and it
	// shadows any same-named inherited or imported element. The whole
	// subtree below this scope is skipped, not just this scope.
	Prune
	// Ambiguous: several distinct local members carry the name. Converted
	// to a linking diagnostic at the linker boundary.
	Ambiguous
)

// Scope streams visible named elements. Implementations are one of the
// concrete scope kinds in this package.
type Scope interface {
	// LocalElement looks a name up strictly within this scope's own
	// contents, without delegation to child scopes.
	LocalElement(name string) (*model.Membership, Result)

	// AllLocalElements enumerates the names owned directly by this scope.
	// Names yielded are added to ignored so sibling and descendant scopes
	// of the same query exclude them (shadowing during enumeration).
	AllLocalElements(ignored map[string]struct{}) iter.Seq2[string, *model.Membership]

	// ChildScopes returns the scopes to search when LocalElement misses,
	// in priority order: the first child exporting a name wins ties.
	ChildScopes() iter.Seq[Scope]

	// IsValidCandidate filters found members; used to exclude elements in
	// an already-processed redefinition-shadow set.
	IsValidCandidate(m *model.Membership) bool
}

// ExportedElement resolves name through the scope tree rooted at s:
// depth-first, priority order, first acceptable hit wins. A Prune outcome
// skips the pruning scope's subtree and continues with its siblings. An
// Ambiguous outcome surfaces model.ErrUnresolvedMember for the linker to
// convert into a diagnostic. No match yields (nil, nil).
func ExportedElement(s Scope, name string) (*model.Membership, error) {
	m, res := s.LocalElement(name)
	switch res {
	case Prune:
		return nil, nil
	case Ambiguous:
		return nil, model.ErrUnresolvedMember
	case Found:
		if s.IsValidCandidate(m) {
			return m, nil
		}
	}
	for child := range s.ChildScopes() {
		got, err := ExportedElement(child, name)
		if err != nil || got != nil {
			return got, err
		}
	}
	return nil, nil
}

// AllExportedElements enumerates every visible name with the same priority
// rules as ExportedElement: first-encountered entry per name wins. Each
// child branch walks with its own copy of the ignored-name set, so shadow
// exclusions apply downward but never sideways or upward.
func AllExportedElements(s Scope) iter.Seq2[string, *model.Membership] {
	return func(yield func(string, *model.Membership) bool) {
		seen := make(map[string]struct{})
		var walk func(sc Scope, ignored map[string]struct{}) bool
		walk = func(sc Scope, ignored map[string]struct{}) bool {
			for name, m := range sc.AllLocalElements(ignored) {
				if _, dup := seen[name]; dup {
					continue
				}
				if !sc.IsValidCandidate(m) {
					continue
				}
				seen[name] = struct{}{}
				if !yield(name, m) {
					return false
				}
			}
			for child := range sc.ChildScopes() {
				branch := make(map[string]struct{}, len(ignored))
				for k := range ignored {
					branch[k] = struct{}{}
				}
				if !walk(child, branch) {
					return false
				}
			}
			return true
		}
		walk(s, make(map[string]struct{}))
	}
}
