package scope

import "github.com/jward/trellis/internal/model"

// VisibilityTier bounds what a chain of scope constructions may expose: a
// visibility ceiling and a remaining depth. Every child scope construction
// decrements the depth; when it reaches zero the tier switches to Next
// (conventionally "public only, unlimited"). Private and protected members
// are therefore visible only within a bounded number of enclosing or
// inherited levels and then become invisible, never more visible.
type VisibilityTier struct {
	Ceiling model.Visibility
	Depth   int // remaining levels; < 0 means unlimited
	Next    *VisibilityTier
}

// Admits reports whether a member of visibility v passes this tier.
func (t VisibilityTier) Admits(v model.Visibility) bool {
	return v <= t.Ceiling
}

// Descend returns the tier one construction level deeper.
func (t VisibilityTier) Descend() VisibilityTier {
	if t.Depth < 0 {
		return t
	}
	if t.Depth <= 1 {
		if t.Next != nil {
			return *t.Next
		}
		return VisibilityTier{Ceiling: model.VisibilityPublic, Depth: -1}
	}
	return VisibilityTier{Ceiling: t.Ceiling, Depth: t.Depth - 1, Next: t.Next}
}

var publicOnly = VisibilityTier{Ceiling: model.VisibilityPublic, Depth: -1}

// Resolver links a relationship's reference on demand. Scope construction
// hits unresolved imports and heritage edges while linking is still in
// progress; the resolver breaks that circularity by linking the needed
// reference first (cycle-guarded on its side).
type Resolver interface {
	ResolveReference(ref *model.Reference, owner model.Element) model.Element
}

// Options carries the per-query state threaded through a scope tree.
type Options struct {
	// Inherited bounds supertype content, Imported bounds import content.
	Inherited VisibilityTier
	Imported  VisibilityTier

	// Resolver links references encountered mid-walk; nil reads only
	// already-resolved targets.
	Resolver Resolver

	// Skip is an element hidden from every scope of the query, used to
	// keep a declaration from resolving to itself inside its own
	// specialization clause. Other names in the same scopes stay visible.
	Skip model.Element

	// Visited blocks import cycles: an import already expanded in this
	// query is not expanded again.
	Visited map[model.Element]struct{}

	// Seen blocks re-expansion of a type already visited through the
	// specialization graph in this query (diamond dedup). Distinct from
	// Visited: imports and inheritance cycle independently.
	Seen map[*model.Type]struct{}

	// Processed is the redefinition-shadow set: elements already replaced
	// by a more derived redefinition in this query are invalid candidates.
	Processed map[model.Element]struct{}
}

// NewOptions returns query options with the default visibility algebra:
// private content reaches one level, protected inherits transitively,
// imported content degrades to public-only after the importing namespace.
func NewOptions(res Resolver) *Options {
	protected := &VisibilityTier{Ceiling: model.VisibilityProtected, Depth: -1}
	pub := &publicOnly
	return &Options{
		Inherited: VisibilityTier{Ceiling: model.VisibilityPrivate, Depth: 1, Next: protected},
		Imported:  VisibilityTier{Ceiling: model.VisibilityPrivate, Depth: 1, Next: pub},
		Resolver:  res,
		Visited:   make(map[model.Element]struct{}),
		Seen:      make(map[*model.Type]struct{}),
		Processed: make(map[model.Element]struct{}),
	}
}

// descendInherited returns options one inherited level deeper; the shared
// cycle-guard sets are carried, not copied.
func (o *Options) descendInherited() *Options {
	c := *o
	c.Inherited = o.Inherited.Descend()
	return &c
}

// descendImported returns options one imported level deeper.
func (o *Options) descendImported() *Options {
	c := *o
	c.Imported = o.Imported.Descend()
	return &c
}

// resolveTarget returns a relationship's resolved target, linking it on
// demand when a resolver is available. Unresolvable targets read as absent.
func resolveTarget(rel model.Relationship, o *Options) model.Element {
	if t := rel.Target(); t != nil {
		return t
	}
	if o.Resolver != nil && rel.Reference() != nil {
		return o.Resolver.ResolveReference(rel.Reference(), rel)
	}
	return nil
}
