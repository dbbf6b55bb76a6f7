package trellis

import (
	"fmt"

	"github.com/jward/trellis/internal/model"
)

// FeatureInfo describes one feature of a type: direction, multiplicity,
// modifiers, its declared type and bound value.
type FeatureInfo struct {
	Name          string
	QualifiedName string
	Direction     string
	Lower         int
	Upper         int // -1 means unbounded
	Modifiers     []string
	TypedBy       string // qualified name of the feature's type, "" if untyped
	Value         string // bound value expression, "" if none
	Inherited     bool   // declared on a supertype rather than the type itself
}

// ElementDetail is a combined response that bundles an element with its
// structural context. One call replaces several separate lookups.
type ElementDetail struct {
	Element  Member
	Document string         // URI of the declaring document
	Owner    string         // qualified name of the owner, "" for roots
	Heritage []TypeRelation // direct heritage edges (types only)
	Features []FeatureInfo  // owned and inherited features (types only)
	Members  []Member       // direct member elements (namespaces only)
}

// ElementDetail returns the element named by qualifiedName together with its
// heritage, effective features and direct members. Inherited features are
// included after owned ones; a feature redefined lower in the hierarchy
// shadows the redefined one.
func (q *QueryBuilder) ElementDetail(qualifiedName string) (*ElementDetail, error) {
	el, err := q.Element(qualifiedName)
	if err != nil {
		return nil, fmt.Errorf("element detail: %w", err)
	}

	detail := &ElementDetail{
		Element: Member{
			Name:          el.Name(),
			QualifiedName: el.QualifiedName(),
			Kind:          el.Kind().String(),
			Visibility:    el.Visibility().String(),
		},
		Heritage: []TypeRelation{},
		Features: []FeatureInfo{},
		Members:  []Member{},
	}
	if doc := el.Document(); doc != nil {
		detail.Document = doc.URI
	}
	if owner := model.OwningNamespace(el); owner != nil {
		detail.Owner = owner.QualifiedName()
	}

	if tl, ok := el.(model.TypeLike); ok {
		t := tl.TypeNode()
		for _, edge := range t.Heritage() {
			target := edge.TargetType()
			if target == nil {
				continue
			}
			detail.Heritage = append(detail.Heritage, TypeRelation{
				Name:          target.Name(),
				QualifiedName: target.QualifiedName(),
				Kind:          heritageKindName(edge.Kind()),
				Implied:       edge.IsImplied(),
			})
		}
		detail.Features = effectiveFeatures(t)
	}

	if ns, ok := el.(model.Namespace); ok {
		for _, m := range model.MembershipsOf(ns) {
			member := m.FinalElement()
			if member == nil {
				continue
			}
			detail.Members = append(detail.Members, Member{
				Name:          m.MemberName(),
				QualifiedName: member.QualifiedName(),
				Kind:          member.Kind().String(),
				Visibility:    m.Visibility().String(),
			})
		}
	}

	return detail, nil
}

// effectiveFeatures collects a type's features, owned first then inherited
// in heritage traversal order. A name seen once shadows later occurrences,
// so redefinitions hide the features they redefine.
func effectiveFeatures(t *model.Type) []FeatureInfo {
	features := []FeatureInfo{}
	seen := map[string]bool{}
	first := true
	for tl := range t.AllTypes(model.KindSpecialization, true) {
		ns, ok := model.Element(tl).(model.Namespace)
		if !ok {
			first = false
			continue
		}
		for _, f := range model.FeaturesOf(ns) {
			name := f.Name()
			if name != "" && seen[name] {
				continue
			}
			seen[name] = true
			features = append(features, featureInfo(t, f, !first))
		}
		first = false
	}
	return features
}

func featureInfo(owner *model.Type, f *model.Feature, inherited bool) FeatureInfo {
	info := FeatureInfo{
		Name:          f.Name(),
		QualifiedName: f.QualifiedName(),
		Direction:     owner.DirectionOf(f).String(),
		Upper:         -1,
		Modifiers:     featureModifierNames(f),
		Inherited:     inherited,
	}
	if m := f.FeatureMultiplicity(); m != nil {
		info.Lower = m.Lower
		info.Upper = m.Upper
	}
	for _, edge := range f.TypeNode().Specializations(model.KindFeatureTyping) {
		if target := edge.TargetType(); target != nil {
			info.TypedBy = target.QualifiedName()
			break
		}
	}
	if v := f.Value(); v != nil {
		info.Value = v.Expression
	}
	return info
}

// featureModifierNames lists the modifier flags set on a feature, in a
// fixed order.
func featureModifierNames(f *model.Feature) []string {
	names := []string{}
	for _, m := range []struct {
		set  bool
		name string
	}{
		{f.Composite, "composite"},
		{f.Derived, "derived"},
		{f.Readonly, "readonly"},
		{f.End, "end"},
		{f.Portion, "portion"},
		{f.Ordered, "ordered"},
		{f.NonUnique, "nonunique"},
	} {
		if m.set {
			names = append(names, m.name)
		}
	}
	return names
}
