// Package linker resolves textual qualified-name references against the
// scope model. Each reference's segments link independently and strictly
// left to right: segment i resolves in the scope of segment i-1's target,
// and the first segment resolves against the full linking-scope chain.
// Naming errors become typed diagnostics attached to the reference's
// declaring element; they never abort resolution of the rest of the
// document.
package linker

import (
	"context"
	"errors"
	"fmt"

	"github.com/jward/trellis/internal/model"
	"github.com/jward/trellis/internal/scope"
)

// Linker links references on demand. Scope construction calls back into it
// (through scope.Resolver) when a walk crosses an unlinked import or
// heritage edge, so cyclic reference structures resolve without an explicit
// pass ordering; an in-flight set truncates genuine cycles.
type Linker struct {
	global *scope.GlobalScope

	resolving map[*model.Reference]struct{}
	aliasing  map[*model.Membership]struct{}
	diags     []model.Diagnostic
}

// New creates a linker over the global index.
func New(global *scope.GlobalScope) *Linker {
	return &Linker{
		global:    global,
		resolving: make(map[*model.Reference]struct{}),
		aliasing:  make(map[*model.Membership]struct{}),
	}
}

// Diagnostics returns every linking diagnostic accumulated so far, in
// discovery order.
func (l *Linker) Diagnostics() []model.Diagnostic { return l.diags }

// LinkDocument resolves every reference declared in doc. Cancellation is
// honored between top-level members, never mid-reference.
func (l *Linker) LinkDocument(ctx context.Context, doc *model.Document) error {
	for _, child := range doc.Root.Children() {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.linkTree(child)
	}
	return nil
}

func (l *Linker) linkTree(e model.Element) {
	if rel, ok := e.(model.Relationship); ok {
		if ref := rel.Reference(); ref != nil && !ref.Linked {
			l.ResolveReference(ref, rel)
		}
	}
	for _, c := range e.Children() {
		l.linkTree(c)
	}
}

// ResolveReference links ref, declared by owner, and returns the resolved
// target (nil on failure). Re-entrant resolution of a reference already in
// flight reads as absent rather than recursing forever. Results are cached
// on the reference; repeat calls are O(1).
func (l *Linker) ResolveReference(ref *model.Reference, owner model.Element) model.Element {
	if ref.Linked {
		return targetOf(owner)
	}
	if _, busy := l.resolving[ref]; busy {
		return nil
	}
	l.resolving[ref] = struct{}{}
	defer delete(l.resolving, ref)

	candidate := l.linkSegments(ref, owner)
	ref.Linked = true
	if candidate == nil {
		ref.Failed = true
		return nil
	}
	if rel, ok := owner.(model.Relationship); ok {
		rel.SetTarget(candidate)
	}
	return candidate
}

func (l *Linker) linkSegments(ref *model.Reference, owner model.Element) model.Element {
	declaring := declaringElement(owner)

	var prev model.Element
	for i, name := range ref.Segments {
		var (
			m   *model.Membership
			err error
		)
		if i == 0 {
			opts := scope.NewOptions(l)
			if _, isHeritage := owner.(*model.Inheritance); isHeritage {
				opts.Skip = declaring
			}
			sc := scope.LinkingScope(declaring, l.global, opts)
			m, err = scope.ExportedElement(sc, name)
		} else {
			opts := scope.NewOptions(l)
			sc := scope.QualifiedSegmentScope(prev, declaring, opts)
			m, err = scope.ExportedElement(sc, name)
		}

		switch {
		case errors.Is(err, model.ErrUnresolvedMember):
			l.report(model.Diagnostic{
				Message:  fmt.Sprintf("reference to '%s' is ambiguous", name),
				Element:  owner,
				Property: ref.Property,
				Index:    i,
			})
			return nil
		case m == nil:
			l.report(model.Diagnostic{
				Message:  fmt.Sprintf("could not resolve reference to '%s'", name),
				Element:  owner,
				Property: ref.Property,
				Index:    i,
			})
			return nil
		}

		last := i == len(ref.Segments)-1
		if !last {
			next := l.finalElement(m)
			if next == nil {
				l.report(model.Diagnostic{
					Message:  fmt.Sprintf("'%s' is not resolved and cannot be navigated", name),
					Element:  owner,
					Property: ref.Property,
					Index:    i,
				})
				return nil
			}
			if _, ok := next.(model.Namespace); !ok {
				l.report(model.Diagnostic{
					Message:  fmt.Sprintf("'%s' is not a namespace", name),
					Element:  owner,
					Property: ref.Property,
					Index:    i,
					Related:  []model.RelatedInfo{{Message: "resolved here", Element: next}},
				})
				return nil
			}
			ref.Resolved = append(ref.Resolved, next)
			prev = next
			continue
		}

		// Final segment: follow alias chains unless a membership itself is
		// wanted, then verify the expected kind.
		if ref.Expected == model.KindMembership {
			ref.Resolved = append(ref.Resolved, m)
			return m
		}
		final := l.finalElement(m)
		if final == nil {
			l.report(model.Diagnostic{
				Message:  fmt.Sprintf("alias '%s' does not resolve", name),
				Element:  owner,
				Property: ref.Property,
				Index:    i,
			})
			return nil
		}
		if ref.Expected != model.KindInvalid && !final.Kind().IsA(ref.Expected) {
			l.report(model.Diagnostic{
				Message:  fmt.Sprintf("expected a %s, found %s", ref.Expected, final.Kind()),
				Element:  owner,
				Property: ref.Property,
				Index:    i,
				Related:  []model.RelatedInfo{{Message: "resolved here", Element: final}},
			})
			return nil
		}
		ref.Resolved = append(ref.Resolved, final)
		return final
	}
	return nil
}

// finalElement unwraps m to its terminal element, linking alias targets on
// demand. An alias cycle returns the last membership reached rather than
// failing the lookup.
func (l *Linker) finalElement(m *model.Membership) model.Element {
	if _, busy := l.aliasing[m]; busy {
		return m
	}
	l.aliasing[m] = struct{}{}
	defer delete(l.aliasing, m)

	if m.Element() == nil && m.Reference() != nil {
		l.ResolveReference(m.Reference(), m)
	}
	t := m.Element()
	if next, ok := t.(*model.Membership); ok {
		return l.finalElement(next)
	}
	return t
}

func (l *Linker) report(d model.Diagnostic) {
	l.diags = append(l.diags, d)
}

// declaringElement finds the element a relationship's reference is written
// on: the heritage edge's owning type, the import's owning namespace, the
// alias's owning namespace.
func declaringElement(owner model.Element) model.Element {
	rel, ok := owner.(model.Relationship)
	if !ok {
		return owner
	}
	if src := rel.Source(); src != nil {
		return src
	}
	return owner
}

func targetOf(owner model.Element) model.Element {
	if rel, ok := owner.(model.Relationship); ok {
		return rel.Target()
	}
	return nil
}
