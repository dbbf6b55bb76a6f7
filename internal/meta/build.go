// Package meta builds the model layer from raw syntax trees: elements,
// memberships, imports and heritage edges, plus the implicit-supertype
// injection that roots every type in the standard library.
package meta

import (
	"fmt"

	"github.com/jward/trellis/internal/ast"
	"github.com/jward/trellis/internal/model"
)

// BuildDocument wraps a parsed syntax tree into a model document. Build
// diagnostics cover structural problems (duplicate ownership, misplaced
// clauses); naming problems belong to the linker.
func BuildDocument(uri, language string, root *ast.Node) (*model.Document, []model.Diagnostic) {
	b := &builder{doc: model.NewDocument(uri, language)}
	for _, child := range root.Children {
		b.buildMember(b.doc.Root, child)
	}
	return b.doc, b.diags
}

type builder struct {
	doc   *model.Document
	diags []model.Diagnostic
}

func (b *builder) errorf(e model.Element, format string, args ...any) {
	b.diags = append(b.diags, model.Diagnostic{
		Message: fmt.Sprintf(format, args...),
		Element: e,
	})
}

// buildMember creates the model element for one declaration node and
// attaches it to parent.
func (b *builder) buildMember(parent model.Element, n *ast.Node) {
	vis := model.VisibilityByName(n.Visibility)

	switch n.Kind {
	case ast.KindImport:
		ns, ok := parent.(model.Namespace)
		if !ok {
			b.errorf(parent, "imports are only allowed in namespaces")
			return
		}
		expected := model.KindMembership
		if n.All {
			expected = model.KindNamespace
		}
		ref := model.NewReference(n.Target.Parts, expected)
		ref.Property = "import"
		imp := model.NewImport(b.doc, ref, n.All, n.Recursive)
		imp.SetVisibility(vis)
		if err := ns.AddChild(imp); err != nil {
			b.errorf(parent, "%v", err)
		}
		return

	case ast.KindAlias:
		ns, ok := parent.(model.Namespace)
		if !ok {
			b.errorf(parent, "aliases are only allowed in namespaces")
			return
		}
		ref := model.NewReference(n.Target.Parts, model.KindMembership)
		ref.Property = "alias"
		m := model.NewAliasMembership(b.doc, n.Name, ref)
		m.SetVisibility(vis)
		if err := ns.AddChild(m); err != nil {
			b.errorf(parent, "%v", err)
		}
		return
	}

	elem := b.newElement(n)
	if elem == nil {
		return
	}

	ns, ok := parent.(model.Namespace)
	if !ok {
		b.errorf(parent, "declarations are only allowed in namespaces")
		return
	}
	if _, err := ns.AddMember(elem, vis); err != nil {
		b.errorf(parent, "%v", err)
		return
	}

	b.buildHeritage(elem, n)
	for _, child := range n.Children {
		b.buildMember(elem, child)
	}
}

func (b *builder) newElement(n *ast.Node) model.Element {
	switch n.Kind {
	case ast.KindPackage:
		p := model.NewPackage(b.doc, n.Name)
		if n.ShortName != "" {
			p.SetShortName(n.ShortName)
		}
		return p
	case ast.KindType:
		t := model.NewType(b.doc, model.KindType, n.Name)
		b.applyType(t, n)
		return t
	case ast.KindClass:
		t := model.NewType(b.doc, model.KindClass, n.Name)
		b.applyType(t, n)
		return t
	case ast.KindStruct:
		t := model.NewType(b.doc, model.KindStructure, n.Name)
		b.applyType(t, n)
		return t
	case ast.KindDataType:
		t := model.NewType(b.doc, model.KindDataType, n.Name)
		b.applyType(t, n)
		return t
	case ast.KindAssoc:
		t := model.NewType(b.doc, model.KindAssociation, n.Name)
		b.applyType(t, n)
		return t
	case ast.KindAssocStruct:
		t := model.NewType(b.doc, model.KindAssociationStructure, n.Name)
		b.applyType(t, n)
		return t
	case ast.KindFeature:
		f := model.NewFeature(b.doc, n.Name)
		b.applyType(&f.Type, n)
		f.SetDirection(model.DirectionByName(n.Direction))
		f.Composite = n.Composite
		f.Derived = n.Derived
		f.Readonly = n.Readonly
		f.End = n.End
		f.Ordered = n.Ordered
		f.NonUnique = n.NonUnique
		if n.Multiplicity != nil {
			f.SetMultiplicity(&model.Multiplicity{Lower: n.Multiplicity.Lower, Upper: n.Multiplicity.Upper})
		}
		if n.Value != nil {
			f.SetValue(&model.FeatureValue{
				Expression: n.Value.Text,
				IsDefault:  !n.Value.Initial,
				IsInitial:  n.Value.Initial,
			})
		}
		return f
	}
	return nil
}

func (b *builder) applyType(t *model.Type, n *ast.Node) {
	t.SetAbstract(n.Abstract)
	if n.ShortName != "" {
		t.SetShortName(n.ShortName)
	}
}

// buildHeritage attaches one heritage edge per written clause. The `:>`
// clause means subclassification on classifiers and subsetting on features.
func (b *builder) buildHeritage(elem model.Element, n *ast.Node) {
	tl, ok := elem.(model.TypeLike)
	if !ok {
		if len(n.Heritage) > 0 {
			b.errorf(elem, "heritage clauses are only allowed on types")
		}
		return
	}
	t := tl.TypeNode()
	_, isFeature := elem.(*model.Feature)

	for i, h := range n.Heritage {
		var (
			kind     model.Kind
			expected model.Kind
			property string
		)
		switch h.Kind {
		case ast.HeritageSpecializes:
			if isFeature {
				kind, expected, property = model.KindSubsetting, model.KindFeature, "subsets"
			} else {
				kind, expected, property = model.KindSubclassification, model.KindType, "specializes"
			}
		case ast.HeritageRedefines:
			kind, expected, property = model.KindRedefinition, model.KindFeature, "redefines"
		case ast.HeritageConjugates:
			kind, expected, property = model.KindConjugation, model.KindType, "conjugates"
		case ast.HeritageTyping:
			kind, expected, property = model.KindFeatureTyping, model.KindType, "typed by"
		default:
			continue
		}

		ref := model.NewReference(h.Target.Parts, expected)
		ref.Property = property
		ref.Index = i
		edge := model.NewInheritance(b.doc, kind, false)
		edge.SetReference(ref)
		if err := t.AddHeritage(edge); err != nil {
			b.errorf(elem, "%v", err)
		}
	}
}
