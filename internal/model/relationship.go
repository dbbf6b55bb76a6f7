package model

// Relationship is a directed edge in the model. The source defaults to the
// owning element; the target is nil until linking resolves it.
type Relationship interface {
	Element
	Source() Element
	Target() Element
	SetTarget(Element)
	IsImplied() bool
	Reference() *Reference

	rel() *relationshipBase
}

type relationshipBase struct {
	elementBase
	source  Element
	target  Element
	implied bool
	ref     *Reference
}

func (r *relationshipBase) rel() *relationshipBase { return r }

// Source returns the near end of the edge, defaulting to the owner chain's
// nearest namespace or type when not set explicitly.
func (r *relationshipBase) Source() Element {
	if r.source != nil {
		return r.source
	}
	return r.owner
}

func (r *relationshipBase) SetSource(e Element) { r.source = e }

// Target returns the resolved far end, or nil while the edge is unlinked.
// Callers treat nil as "absent", never as an error: queries against a
// partially linked model must degrade, not fail.
func (r *relationshipBase) Target() Element { return r.target }

// SetTarget resolves the edge. Invalidates caches up the ownership chain
// because resolved targets feed derived member names and heritage buckets.
func (r *relationshipBase) SetTarget(e Element) {
	r.target = e
	r.mutated()
}

func (r *relationshipBase) IsImplied() bool       { return r.implied }
func (r *relationshipBase) Reference() *Reference { return r.ref }

// SetReference attaches the unresolved qualified-name reference this edge
// was declared with.
func (r *relationshipBase) SetReference(ref *Reference) { r.ref = ref }

// Inheritance is a heritage edge owned by a Type: specialization,
// subclassification, subsetting, redefinition, feature typing or
// conjugation, distinguished by Kind.
type Inheritance struct {
	relationshipBase
}

// NewInheritance creates a heritage edge of the given kind. Implied edges
// are synthesized by the metamodel builder rather than written by the user.
func NewInheritance(doc *Document, kind Kind, implied bool) *Inheritance {
	e := &Inheritance{}
	e.init(e, doc, kind, "")
	e.implied = implied
	return e
}

// FinalTarget follows the resolved target to the ultimate typed element:
// memberships are unwrapped to their terminal member. Returns nil while
// unlinked.
func (e *Inheritance) FinalTarget() Element {
	t := e.target
	if m, ok := t.(*Membership); ok {
		return m.FinalElement()
	}
	return t
}

// TargetType returns the final target as a type, or nil when the edge is
// unlinked or resolved to a non-type.
func (e *Inheritance) TargetType() TypeLike {
	if t, ok := e.FinalTarget().(TypeLike); ok {
		return t
	}
	return nil
}

// Reference is a textual qualified-name reference carried by a relationship
// until (and after) linking. Segments resolve strictly left to right;
// Resolved caches per-segment results so repeat queries are O(1).
type Reference struct {
	Segments []string
	Expected Kind // kind the final target must conform to

	// Property and Index identify where in the declaring element the
	// reference appeared, for diagnostics.
	Property string
	Index    int

	Resolved []Element // len <= len(Segments); grows as segments link
	Failed   bool      // a segment failed; later segments have no scope
	Linked   bool      // linking completed (successfully or not)
}

// NewReference builds an unlinked reference.
func NewReference(segments []string, expected Kind) *Reference {
	return &Reference{Segments: segments, Expected: expected}
}

// Target returns the fully resolved final element, or nil.
func (r *Reference) Target() Element {
	if r.Failed || len(r.Resolved) != len(r.Segments) || len(r.Resolved) == 0 {
		return nil
	}
	return r.Resolved[len(r.Resolved)-1]
}

// Text reconstructs the written qualified name.
func (r *Reference) Text() string {
	out := ""
	for i, s := range r.Segments {
		if i > 0 {
			out += "::"
		}
		out += escapeName(s)
	}
	return out
}

// Reset clears linking state so the reference can be resolved again after
// model mutation.
func (r *Reference) Reset() {
	r.Resolved = nil
	r.Failed = false
	r.Linked = false
}
