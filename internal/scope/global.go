package scope

import (
	"iter"

	"github.com/jward/trellis/internal/model"
)

// Export is one name a document contributes to the global scope.
type Export struct {
	Name       string
	Language   string
	URI        string
	Membership *model.Membership
}

// GlobalScope is the workspace-wide index of every document's root-level
// exports. Two tiers keep lookups fast: static exports are a flat name map
// filled once per document; dynamic exports fall back to full root scopes
// and exist only for documents whose root visibility cannot be computed
// statically (public wildcard imports, unnamed public features whose names
// derive from linking). Documents with no dynamic exports never pay the
// dynamic price on lookup.
type GlobalScope struct {
	static  map[string][]Export
	dynamic map[string]*model.Document
	byDoc   map[string][]Export
}

// NewGlobalScope creates an empty index.
func NewGlobalScope() *GlobalScope {
	return &GlobalScope{
		static:  make(map[string][]Export),
		dynamic: make(map[string]*model.Document),
		byDoc:   make(map[string][]Export),
	}
}

// CollectDocument records doc's root-level public exports. Any previous
// contribution of the same URI must have been invalidated first.
func (g *GlobalScope) CollectDocument(doc *model.Document) {
	dynamic := false
	for _, imp := range doc.Root.Imports() {
		if imp.Visibility() == model.VisibilityPublic && imp.ImportsAll() {
			dynamic = true
			break
		}
	}
	for _, m := range doc.Root.Memberships() {
		if m.Visibility() != model.VisibilityPublic {
			continue
		}
		name := m.MemberName()
		if name == "" {
			// The name may still derive from linking (an unnamed public
			// feature redefining a named one). Serve it dynamically.
			if _, ok := m.Element().(*model.Feature); ok {
				dynamic = true
			}
			continue
		}
		ex := Export{Name: name, Language: doc.Language, URI: doc.URI, Membership: m}
		g.static[name] = append(g.static[name], ex)
		g.byDoc[doc.URI] = append(g.byDoc[doc.URI], ex)
		if short := m.MemberShortName(); short != "" && short != name {
			exs := Export{Name: short, Language: doc.Language, URI: doc.URI, Membership: m}
			g.static[short] = append(g.static[short], exs)
			g.byDoc[doc.URI] = append(g.byDoc[doc.URI], exs)
		}
	}
	if dynamic {
		g.dynamic[doc.URI] = doc
	}
}

// InvalidateDocument removes exactly the entries the document contributed,
// by entry identity rather than by name, so a rebuilt document re-exporting
// the same names never leaks stale memberships.
func (g *GlobalScope) InvalidateDocument(uri string) {
	for _, ex := range g.byDoc[uri] {
		entries := g.static[ex.Name]
		for i, e := range entries {
			if e.Membership == ex.Membership && e.URI == uri {
				entries = append(entries[:i], entries[i+1:]...)
				break
			}
		}
		if len(entries) == 0 {
			delete(g.static, ex.Name)
		} else {
			g.static[ex.Name] = entries
		}
	}
	delete(g.byDoc, uri)
	delete(g.dynamic, uri)
}

// StaticElement resolves name against the static tier only. Later
// contributions win; among them an entry matching preferLanguage wins over
// a cross-language clash.
func (g *GlobalScope) StaticElement(name, preferLanguage string) *model.Membership {
	entries := g.static[name]
	if len(entries) == 0 {
		return nil
	}
	if preferLanguage != "" {
		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i].Language == preferLanguage {
				return entries[i].Membership
			}
		}
	}
	return entries[len(entries)-1].Membership
}

// Element resolves name globally: static tier first, dynamic tier as
// fallback. The options' resolver links dynamic content on demand.
func (g *GlobalScope) Element(name, preferLanguage string, o *Options) (*model.Membership, error) {
	if m := g.StaticElement(name, preferLanguage); m != nil {
		return m, nil
	}
	for _, doc := range g.dynamic {
		sc := NewNamespaceScope(doc.Root, o, publicOnly)
		m, err := ExportedElement(sc, name)
		if err != nil || m != nil {
			return m, err
		}
	}
	return nil, nil
}

// AllExports streams every static export. Dynamic exports are enumerated
// through View scopes, not here.
func (g *GlobalScope) AllExports() iter.Seq[Export] {
	return func(yield func(Export) bool) {
		for _, entries := range g.static {
			for _, ex := range entries {
				if !yield(ex) {
					return
				}
			}
		}
	}
}

// View adapts the index into a Scope for use at the end of a linking chain.
type View struct {
	Global         *GlobalScope
	PreferLanguage string
	Opts           *Options
}

func (v *View) LocalElement(name string) (*model.Membership, Result) {
	m, err := v.Global.Element(name, v.PreferLanguage, v.Opts)
	if err != nil {
		return nil, Ambiguous
	}
	if m == nil {
		return nil, Missing
	}
	return m, Found
}

func (v *View) AllLocalElements(ignored map[string]struct{}) iter.Seq2[string, *model.Membership] {
	return func(yield func(string, *model.Membership) bool) {
		for name := range v.Global.static {
			if _, skip := ignored[name]; skip {
				continue
			}
			m := v.Global.StaticElement(name, v.PreferLanguage)
			if m == nil {
				continue
			}
			ignored[name] = struct{}{}
			if !yield(name, m) {
				return
			}
		}
		for _, doc := range v.Global.dynamic {
			sc := NewNamespaceScope(doc.Root, v.Opts, publicOnly)
			for name, m := range AllExportedElements(sc) {
				if _, skip := ignored[name]; skip {
					continue
				}
				ignored[name] = struct{}{}
				if !yield(name, m) {
					return
				}
			}
		}
	}
}

func (v *View) ChildScopes() iter.Seq[Scope] { return emptyScopes }

func (v *View) IsValidCandidate(m *model.Membership) bool {
	return validCandidate(m, v.Opts)
}
