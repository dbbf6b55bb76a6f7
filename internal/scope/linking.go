package scope

import "github.com/jward/trellis/internal/model"

// LinkingScope assembles the priority chain a reference's first segment
// resolves against: (1) the declaring element's own scope with private
// members visible non-transitively, (2) each enclosing namespace outward
// with private content hidden beyond one level, (3) the global index. A
// skip element, when set in the options, is excluded from every scope via
// filtering rather than by omitting scopes: the other names in those scopes
// must stay visible.
func LinkingScope(e model.Element, g *GlobalScope, o *Options) Scope {
	var chain []Scope

	local := VisibilityTier{
		Ceiling: model.VisibilityPrivate,
		Depth:   1,
		Next:    &VisibilityTier{Ceiling: model.VisibilityProtected, Depth: -1},
	}
	chain = append(chain, ScopeFor(e, o, local))

	parentTier := VisibilityTier{Ceiling: model.VisibilityPrivate, Depth: 1, Next: &publicOnly}
	for cur := model.OwningNamespace(e); cur != nil; cur = model.OwningNamespace(cur) {
		chain = append(chain, ScopeFor(cur, o, parentTier))
	}

	prefer := ""
	if doc := e.Document(); doc != nil {
		prefer = doc.Language
	}
	chain = append(chain, &View{Global: g, PreferLanguage: prefer, Opts: o})

	if o.Skip != nil {
		skip := o.Skip
		pred := func(m *model.Membership) bool {
			if model.Element(m) == skip {
				return false
			}
			if m.Element() == skip {
				return false
			}
			return m.FinalElement() != skip
		}
		for i, sc := range chain {
			chain[i] = &FilteredScope{Inner: sc, Pred: pred}
		}
	}

	return &ScopeStream{Scopes: chain}
}

// QualifiedSegmentScope is the scope a non-initial qualified-name segment
// resolves in: the prior segment's element, exposing private content only
// when the reference originates inside that element's own namespace chain.
func QualifiedSegmentScope(prev model.Element, origin model.Element, o *Options) Scope {
	ceiling := publicOnly
	for cur := origin; cur != nil; cur = model.OwningNamespace(cur) {
		if cur == prev {
			ceiling = VisibilityTier{Ceiling: model.VisibilityPrivate, Depth: 1, Next: &publicOnly}
			break
		}
	}
	return ScopeFor(prev, o, ceiling)
}
