package trellis

import (
	"fmt"
	"sort"

	"github.com/jward/trellis/internal/model"
)

// TypeRelation is one heritage edge seen from a type: the related type plus
// the edge kind that connects them.
type TypeRelation struct {
	Name          string
	QualifiedName string
	Kind          string // "specialization", "subclassification", "subsetting", "redefinition", "feature typing", "conjugation"
	Implied       bool
}

// TypeHierarchy is a complete hierarchy view for a single type: its direct
// heritage, the types that directly inherit from it, and the full transitive
// supertype closure.
type TypeHierarchy struct {
	Type          Member
	Supertypes    []TypeRelation // direct heritage edges, declaration order
	Subtypes      []TypeRelation // types whose heritage targets this type
	AllSupertypes []string       // transitive closure, traversal order, deduplicated
}

// TypeHierarchy returns the full hierarchy view for the type named by
// qualifiedName: what it inherits from, what inherits from it, and the
// transitive supertype closure in traversal order.
func (q *QueryBuilder) TypeHierarchy(qualifiedName string) (*TypeHierarchy, error) {
	tl, err := q.Type(qualifiedName)
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: %w", err)
	}
	t := tl.TypeNode()

	supertypes := make([]TypeRelation, 0, len(t.Heritage()))
	for _, edge := range t.Heritage() {
		target := edge.TargetType()
		if target == nil {
			continue
		}
		supertypes = append(supertypes, TypeRelation{
			Name:          target.Name(),
			QualifiedName: target.QualifiedName(),
			Kind:          heritageKindName(edge.Kind()),
			Implied:       edge.IsImplied(),
		})
	}

	// Subtypes come from a workspace scan: every type whose heritage edges
	// target this one.
	subtypes := []TypeRelation{}
	self := model.Element(tl)
	for sub := range q.allTypes() {
		for _, edge := range sub.TypeNode().Heritage() {
			target := edge.FinalTarget()
			if target == nil || target != self {
				continue
			}
			subtypes = append(subtypes, TypeRelation{
				Name:          sub.Name(),
				QualifiedName: sub.QualifiedName(),
				Kind:          heritageKindName(edge.Kind()),
				Implied:       edge.IsImplied(),
			})
		}
	}
	sort.Slice(subtypes, func(i, j int) bool {
		return subtypes[i].QualifiedName < subtypes[j].QualifiedName
	})

	var closure []string
	for super := range t.AllTypes(model.KindSpecialization, false) {
		closure = append(closure, super.QualifiedName())
	}

	return &TypeHierarchy{
		Type: Member{
			Name:          tl.Name(),
			QualifiedName: tl.QualifiedName(),
			Kind:          tl.Kind().String(),
			Visibility:    tl.Visibility().String(),
		},
		Supertypes:    supertypes,
		Subtypes:      subtypes,
		AllSupertypes: closure,
	}, nil
}

// heritageKindName maps heritage edge kinds to their surface names.
func heritageKindName(k model.Kind) string {
	switch k {
	case model.KindSubclassification:
		return "subclassification"
	case model.KindSubsetting:
		return "subsetting"
	case model.KindRedefinition:
		return "redefinition"
	case model.KindFeatureTyping:
		return "feature typing"
	case model.KindConjugation:
		return "conjugation"
	default:
		return "specialization"
	}
}
