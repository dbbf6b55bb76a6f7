package scope

import (
	"iter"

	"github.com/jward/trellis/internal/model"
)

func emptyScopes(yield func(Scope) bool) {}

// ElementScope is the leaf scope over a single element: its named members
// filtered by visibility, no child scopes. Non-namespace elements expose
// nothing.
type ElementScope struct {
	elem model.Element
	opts *Options
	tier VisibilityTier
}

// NewElementScope builds a leaf scope over elem.
func NewElementScope(elem model.Element, o *Options, tier VisibilityTier) *ElementScope {
	return &ElementScope{elem: elem, opts: o, tier: tier}
}

func (s *ElementScope) LocalElement(name string) (*model.Membership, Result) {
	ns, ok := s.elem.(model.Namespace)
	if !ok {
		return nil, Missing
	}
	return localMember(ns, name, s.opts, s.tier)
}

func (s *ElementScope) AllLocalElements(ignored map[string]struct{}) iter.Seq2[string, *model.Membership] {
	ns, ok := s.elem.(model.Namespace)
	if !ok {
		return func(yield func(string, *model.Membership) bool) {}
	}
	return allLocalMembers(ns, ignored, s.opts, s.tier)
}

func (s *ElementScope) ChildScopes() iter.Seq[Scope] { return emptyScopes }

func (s *ElementScope) IsValidCandidate(m *model.Membership) bool {
	return validCandidate(m, s.opts)
}

// localMember is the shared local-lookup core: direct member lookup with
// visibility admission. A member that exists but is not admitted shadows
// same-named content below, hence Prune.
func localMember(ns model.Namespace, name string, o *Options, tier VisibilityTier) (*model.Membership, Result) {
	m, status := ns.FindMember(name)
	switch status {
	case model.LookupMissing:
		return nil, Missing
	case model.LookupAmbiguous:
		return nil, Ambiguous
	}
	if !tier.Admits(m.Visibility()) {
		return nil, Prune
	}
	markRedefinitions(m, o)
	return m, Found
}

// allLocalMembers enumerates admitted members, registering every yielded
// name in ignored.
func allLocalMembers(ns model.Namespace, ignored map[string]struct{}, o *Options, tier VisibilityTier) iter.Seq2[string, *model.Membership] {
	return func(yield func(string, *model.Membership) bool) {
		for _, m := range ns.Memberships() {
			name := m.MemberName()
			if name == "" {
				continue
			}
			if _, skip := ignored[name]; skip {
				continue
			}
			if !tier.Admits(m.Visibility()) {
				// Hidden names still shadow: exclude them below.
				ignored[name] = struct{}{}
				continue
			}
			markRedefinitions(m, o)
			ignored[name] = struct{}{}
			if !yield(name, m) {
				return
			}
		}
	}
}

// markRedefinitions records the features a found member redefines, so less
// derived occurrences met later in the walk are rejected.
func markRedefinitions(m *model.Membership, o *Options) {
	f, ok := m.Element().(*model.Feature)
	if !ok {
		return
	}
	for _, e := range f.Specializations(model.KindRedefinition) {
		if tgt := e.FinalTarget(); tgt != nil {
			o.Processed[tgt] = struct{}{}
		}
	}
}

// validCandidate applies the skip element and the redefinition-shadow set.
func validCandidate(m *model.Membership, o *Options) bool {
	final := m.FinalElement()
	if final == nil {
		final = m.Element()
	}
	if o.Skip != nil && (final == o.Skip || model.Element(m) == o.Skip) {
		return false
	}
	if final != nil {
		if _, shadowed := o.Processed[final]; shadowed {
			return false
		}
	}
	return true
}

// NamespaceScope exposes a namespace's members, then its imports' content.
type NamespaceScope struct {
	ns   model.Namespace
	opts *Options
	tier VisibilityTier
}

// NewNamespaceScope builds a scope over ns.
func NewNamespaceScope(ns model.Namespace, o *Options, tier VisibilityTier) *NamespaceScope {
	return &NamespaceScope{ns: ns, opts: o, tier: tier}
}

func (s *NamespaceScope) LocalElement(name string) (*model.Membership, Result) {
	return localMember(s.ns, name, s.opts, s.tier)
}

func (s *NamespaceScope) AllLocalElements(ignored map[string]struct{}) iter.Seq2[string, *model.Membership] {
	return allLocalMembers(s.ns, ignored, s.opts, s.tier)
}

func (s *NamespaceScope) IsValidCandidate(m *model.Membership) bool {
	return validCandidate(m, s.opts)
}

// inheritedScopes is empty for plain namespaces; TypeScope overrides it.
func (s *NamespaceScope) inheritedScopes() iter.Seq[Scope] { return emptyScopes }

func (s *NamespaceScope) ChildScopes() iter.Seq[Scope] {
	return s.childScopes(s.inheritedScopes())
}

// childScopes concatenates inherited content with import scopes. Inherited
// content has priority: a name found through a supertype wins over the same
// name arriving through an import.
func (s *NamespaceScope) childScopes(inherited iter.Seq[Scope]) iter.Seq[Scope] {
	return func(yield func(Scope) bool) {
		for sc := range inherited {
			if !yield(sc) {
				return
			}
		}
		for _, imp := range s.ns.Imports() {
			// Non-public imports are only followed while the imported
			// tier still admits them; beyond the importing namespace a
			// private import does not re-export.
			if !s.opts.Imported.Admits(imp.Visibility()) {
				continue
			}
			if _, seen := s.opts.Visited[model.Element(imp)]; seen {
				continue
			}
			s.opts.Visited[model.Element(imp)] = struct{}{}
			if resolveTarget(imp, s.opts) == nil {
				continue
			}
			child := newImportScope(imp, s.opts.descendImported())
			if child == nil {
				continue
			}
			if !yield(child) {
				return
			}
		}
	}
}

// TypeScope layers heritage on top of namespace scoping: for every direct
// specialization (and conjugation) whose resolved target has not been seen
// in this traversal, a nested TypeScope with decremented visibility. This
// gives most-derived-wins resolution while still searching all ancestors.
type TypeScope struct {
	NamespaceScope
	t *model.Type
}

// NewTypeScope builds a scope over a type-like element.
func NewTypeScope(tl model.TypeLike, o *Options, tier VisibilityTier) *TypeScope {
	return &TypeScope{
		NamespaceScope: NamespaceScope{ns: tl, opts: o, tier: tier},
		t:              tl.TypeNode(),
	}
}

func (s *TypeScope) ChildScopes() iter.Seq[Scope] {
	return s.childScopes(s.heritageScopes())
}

func (s *TypeScope) heritageScopes() iter.Seq[Scope] {
	return func(yield func(Scope) bool) {
		for _, e := range s.t.Heritage() {
			tgt := resolveTarget(e, s.opts)
			if tgt == nil {
				continue
			}
			if m, ok := tgt.(*model.Membership); ok {
				tgt = m.FinalElement()
			}
			tl, ok := tgt.(model.TypeLike)
			if !ok {
				continue
			}
			tn := tl.TypeNode()
			if _, seen := s.opts.Seen[tn]; seen {
				continue
			}
			s.opts.Seen[tn] = struct{}{}
			child := NewTypeScope(tl, s.opts.descendInherited(), s.opts.Inherited.Descend())
			if !yield(child) {
				return
			}
		}
	}
}

// newImportScope builds the scope kind matching the import's shape.
func newImportScope(imp *model.Import, o *Options) Scope {
	if imp.ImportsAll() {
		ns := imp.ImportedNamespace()
		if ns == nil {
			return nil
		}
		return &NamespaceImportScope{imp: imp, ns: ns, opts: o}
	}
	m := imp.ImportedMembership()
	if m == nil {
		return nil
	}
	return &MembershipImportScope{imp: imp, target: m, opts: o}
}

// MembershipImportScope exposes one imported membership, and the imported
// member's own content when the import is recursive. The scope itself owns
// no local elements; its children carry everything.
type MembershipImportScope struct {
	imp    *model.Import
	target *model.Membership
	opts   *Options
}

func (s *MembershipImportScope) LocalElement(string) (*model.Membership, Result) {
	return nil, Missing
}

func (s *MembershipImportScope) AllLocalElements(map[string]struct{}) iter.Seq2[string, *model.Membership] {
	return func(yield func(string, *model.Membership) bool) {}
}

func (s *MembershipImportScope) IsValidCandidate(m *model.Membership) bool {
	return validCandidate(m, s.opts)
}

func (s *MembershipImportScope) ChildScopes() iter.Seq[Scope] {
	return func(yield func(Scope) bool) {
		if !yield(&memberScope{m: s.target, opts: s.opts}) {
			return
		}
		if !s.imp.IsRecursive() {
			return
		}
		if ns, ok := s.target.FinalElement().(model.Namespace); ok {
			if _, seen := s.opts.Visited[model.Element(ns)]; !seen {
				s.opts.Visited[model.Element(ns)] = struct{}{}
				yield(&NamespaceImportScope{imp: s.imp, ns: ns, opts: s.opts})
			}
		}
	}
}

// memberScope exposes exactly one membership under its member name.
type memberScope struct {
	m    *model.Membership
	opts *Options
}

func (s *memberScope) LocalElement(name string) (*model.Membership, Result) {
	if name == s.m.MemberName() || (name != "" && name == s.m.MemberShortName()) {
		return s.m, Found
	}
	return nil, Missing
}

func (s *memberScope) AllLocalElements(ignored map[string]struct{}) iter.Seq2[string, *model.Membership] {
	return func(yield func(string, *model.Membership) bool) {
		name := s.m.MemberName()
		if name == "" {
			return
		}
		if _, skip := ignored[name]; skip {
			return
		}
		ignored[name] = struct{}{}
		yield(name, s.m)
	}
}

func (s *memberScope) ChildScopes() iter.Seq[Scope] { return emptyScopes }

func (s *memberScope) IsValidCandidate(m *model.Membership) bool {
	return validCandidate(m, s.opts)
}

// NamespaceImportScope exposes a wildcard-imported namespace's public
// members; recursive imports additionally expose nested namespaces'
// contents through further import scopes, cycle-guarded.
type NamespaceImportScope struct {
	imp  *model.Import
	ns   model.Namespace
	opts *Options
}

func (s *NamespaceImportScope) LocalElement(string) (*model.Membership, Result) {
	return nil, Missing
}

func (s *NamespaceImportScope) AllLocalElements(map[string]struct{}) iter.Seq2[string, *model.Membership] {
	return func(yield func(string, *model.Membership) bool) {}
}

func (s *NamespaceImportScope) IsValidCandidate(m *model.Membership) bool {
	return validCandidate(m, s.opts)
}

func (s *NamespaceImportScope) ChildScopes() iter.Seq[Scope] {
	return func(yield func(Scope) bool) {
		// Imported content is public-only regardless of remaining budget.
		if !yield(ScopeFor(s.ns, s.opts, publicOnly)) {
			return
		}
		if !s.imp.IsRecursive() {
			return
		}
		for _, m := range s.ns.Memberships() {
			if m.Visibility() != model.VisibilityPublic {
				continue
			}
			nested, ok := m.FinalElement().(model.Namespace)
			if !ok {
				continue
			}
			if _, seen := s.opts.Visited[model.Element(nested)]; seen {
				continue
			}
			s.opts.Visited[model.Element(nested)] = struct{}{}
			if !yield(&NamespaceImportScope{imp: s.imp, ns: nested, opts: s.opts}) {
				return
			}
		}
	}
}

// ScopeStream presents an ordered list of scopes as one scope's children,
// with no local content of its own. Linking-scope priority chains are
// assembled with it.
type ScopeStream struct {
	Scopes []Scope
}

func (s *ScopeStream) LocalElement(string) (*model.Membership, Result) {
	return nil, Missing
}

func (s *ScopeStream) AllLocalElements(map[string]struct{}) iter.Seq2[string, *model.Membership] {
	return func(yield func(string, *model.Membership) bool) {}
}

func (s *ScopeStream) ChildScopes() iter.Seq[Scope] {
	return func(yield func(Scope) bool) {
		for _, sc := range s.Scopes {
			if !yield(sc) {
				return
			}
		}
	}
}

func (s *ScopeStream) IsValidCandidate(*model.Membership) bool { return true }

// FilteredScope applies a predicate over an inner scope at every query
// surface. Candidates failing the predicate read as missing, and children
// are wrapped with the same predicate.
type FilteredScope struct {
	Inner Scope
	Pred  func(*model.Membership) bool
}

func (s *FilteredScope) LocalElement(name string) (*model.Membership, Result) {
	m, res := s.Inner.LocalElement(name)
	if res == Found && !s.Pred(m) {
		return nil, Missing
	}
	return m, res
}

func (s *FilteredScope) AllLocalElements(ignored map[string]struct{}) iter.Seq2[string, *model.Membership] {
	return func(yield func(string, *model.Membership) bool) {
		for name, m := range s.Inner.AllLocalElements(ignored) {
			if !s.Pred(m) {
				continue
			}
			if !yield(name, m) {
				return
			}
		}
	}
}

func (s *FilteredScope) ChildScopes() iter.Seq[Scope] {
	return func(yield func(Scope) bool) {
		for child := range s.Inner.ChildScopes() {
			if !yield(&FilteredScope{Inner: child, Pred: s.Pred}) {
				return
			}
		}
	}
}

func (s *FilteredScope) IsValidCandidate(m *model.Membership) bool {
	return s.Inner.IsValidCandidate(m) && s.Pred(m)
}

// ScopeFor builds the scope kind matching an element: type scopes for
// type-like elements, namespace scopes for plain namespaces, leaf scopes
// otherwise.
func ScopeFor(e model.Element, o *Options, tier VisibilityTier) Scope {
	switch v := e.(type) {
	case model.TypeLike:
		return NewTypeScope(v, o, tier)
	case model.Namespace:
		return NewNamespaceScope(v, o, tier)
	default:
		return NewElementScope(e, o, tier)
	}
}
