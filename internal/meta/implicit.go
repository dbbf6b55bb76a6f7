package meta

import (
	"github.com/jward/trellis/internal/model"
)

// BaseLookup resolves a fully qualified library name to its element.
// Returning nil skips injection for that name.
type BaseLookup func(qualifiedName string) model.Element

// baseSupertypeName picks the library root a type category descends from
// when it declares no supertype of its own.
func baseSupertypeName(t model.TypeLike) string {
	if _, ok := t.(*model.Feature); ok {
		return "Base::things"
	}
	flags := t.TypeNode().Classifier()
	switch {
	case flags.Has(model.FlagAssociation):
		return "Links::Link"
	case flags.Has(model.FlagDataType):
		return "Base::DataValue"
	default:
		return "Base::Anything"
	}
}

// InjectImplicits gives every type in doc that declares no supertype an
// implied heritage edge to its library root. Runs once per document, after
// the library itself is loaded; library roots never point at themselves.
func InjectImplicits(doc *model.Document, lookup BaseLookup) {
	injectImplicits(doc.Root, doc, lookup)
}

func injectImplicits(e model.Element, doc *model.Document, lookup BaseLookup) {
	if tl, ok := e.(model.TypeLike); ok {
		injectOne(tl, doc, lookup)
	}
	for _, child := range e.Children() {
		injectImplicits(child, doc, lookup)
	}
}

func injectOne(tl model.TypeLike, doc *model.Document, lookup BaseLookup) {
	t := tl.TypeNode()
	if len(t.Heritage()) > 0 {
		return
	}

	base := lookup(baseSupertypeName(tl))
	if base == nil || base == model.Element(tl) {
		return
	}

	kind := model.KindSubclassification
	if _, ok := tl.(*model.Feature); ok {
		kind = model.KindSubsetting
	}
	edge := model.NewInheritance(doc, kind, true)
	edge.SetTarget(base)
	// AddHeritage only fails on ownership cycles, which an implied edge to a
	// library root cannot create.
	_ = t.AddHeritage(edge)
}
