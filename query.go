package trellis

import (
	"fmt"
	"strings"

	"github.com/jward/trellis/internal/model"
	"github.com/jward/trellis/internal/scope"
)

// QueryBuilder provides a consumer-facing query API over the linked model.
// All queries expect Build to have run; results reflect the last Build.
type QueryBuilder struct {
	engine *Engine
}

// Member describes one visible member of a namespace.
type Member struct {
	Name          string
	QualifiedName string
	Kind          string
	Visibility    string
}

// Element finds an element by fully qualified name, walking owned
// memberships segment by segment. Quoted segments use unrestricted names,
// e.g. `Pkg::'two words'`.
func (q *QueryBuilder) Element(qualifiedName string) (model.Element, error) {
	parts := splitQualifiedName(qualifiedName)
	if len(parts) == 0 {
		return nil, fmt.Errorf("element: empty qualified name")
	}

	m := q.engine.global.StaticElement(parts[0], "")
	if m == nil {
		return nil, fmt.Errorf("element: %q not found", parts[0])
	}
	cur := m.FinalElement()
	for i, part := range parts[1:] {
		ns, ok := cur.(model.Namespace)
		if !ok {
			return nil, fmt.Errorf("element: %q is not a namespace", strings.Join(parts[:i+1], "::"))
		}
		next, status := ns.FindMember(part)
		if status != model.LookupFound {
			return nil, fmt.Errorf("element: %q not found in %q", part, strings.Join(parts[:i+1], "::"))
		}
		cur = next.FinalElement()
		if cur == nil {
			return nil, fmt.Errorf("element: %q does not resolve", part)
		}
	}
	return cur, nil
}

// Type finds a type by fully qualified name.
func (q *QueryBuilder) Type(qualifiedName string) (model.TypeLike, error) {
	el, err := q.Element(qualifiedName)
	if err != nil {
		return nil, err
	}
	tl, ok := el.(model.TypeLike)
	if !ok {
		return nil, fmt.Errorf("type: %q is a %s, not a type", qualifiedName, el.Kind())
	}
	return tl, nil
}

// Conforms reports whether the type named by qualifiedName has superName in
// its transitive heritage, including itself.
func (q *QueryBuilder) Conforms(qualifiedName, superName string) (bool, error) {
	tl, err := q.Type(qualifiedName)
	if err != nil {
		return false, err
	}
	return tl.TypeNode().Conforms(superName), nil
}

// Specializes reports whether the type named by qualifiedName specializes
// superName through supertype-forming heritage. Conjugated types delegate
// to their original.
func (q *QueryBuilder) Specializes(qualifiedName, superName string) (bool, error) {
	tl, err := q.Type(qualifiedName)
	if err != nil {
		return false, err
	}
	return tl.TypeNode().Specializes(superName), nil
}

// FirstConforming returns the first candidate name encountered while
// walking the type's heritage in traversal order. Empty when no candidate
// conforms.
func (q *QueryBuilder) FirstConforming(qualifiedName string, candidates []string) (string, error) {
	tl, err := q.Type(qualifiedName)
	if err != nil {
		return "", err
	}
	name, _ := tl.TypeNode().FirstConforming(candidates)
	return name, nil
}

// Members enumerates the visible members of the named namespace: owned,
// inherited and imported, public only, with redefined features shadowed.
func (q *QueryBuilder) Members(qualifiedName string) ([]Member, error) {
	el, err := q.Element(qualifiedName)
	if err != nil {
		return nil, err
	}
	opts := scope.NewOptions(q.engine.linker)
	s := scope.ScopeFor(el, opts, scope.VisibilityTier{Ceiling: model.VisibilityPublic, Depth: -1})

	var out []Member
	for name, m := range scope.AllExportedElements(s) {
		target := m.FinalElement()
		if target == nil {
			continue
		}
		out = append(out, Member{
			Name:          name,
			QualifiedName: target.QualifiedName(),
			Kind:          target.Kind().String(),
			Visibility:    m.Visibility().String(),
		})
	}
	return out, nil
}

// Resolve resolves name the way the linker would for a reference written at
// the element named by contextName: local members first, then inherited and
// imported content, then enclosing namespaces, then the global scope.
func (q *QueryBuilder) Resolve(contextName, name string) (model.Element, error) {
	ctxEl, err := q.Element(contextName)
	if err != nil {
		return nil, err
	}
	ref := model.NewReference(splitQualifiedName(name), model.KindElement)
	ref.Property = "query"
	target := q.engine.linker.ResolveReference(ref, ctxEl)
	if target == nil {
		return nil, fmt.Errorf("resolve: %q not found from %q", name, contextName)
	}
	return target, nil
}

// Diagnostics returns all diagnostics from the last Build.
func (q *QueryBuilder) Diagnostics() []model.Diagnostic {
	return q.engine.Diagnostics()
}

// Documents lists the loaded documents.
func (q *QueryBuilder) Documents() []DocumentInfo {
	return q.engine.Documents()
}

// splitQualifiedName splits a :: separated qualified name, honoring quoted
// segments.
func splitQualifiedName(s string) []string {
	var parts []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote:
			if c == '\\' && i+1 < len(s) {
				i++
				cur.WriteByte(s[i])
			} else if c == '\'' {
				inQuote = false
			} else {
				cur.WriteByte(c)
			}
		case c == '\'':
			inQuote = true
		case c == ':' && i+1 < len(s) && s[i+1] == ':':
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
			i++
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 || len(parts) > 0 {
		parts = append(parts, strings.TrimSpace(cur.String()))
	}
	if len(parts) == 1 && parts[0] == "" {
		return nil
	}
	return parts
}
