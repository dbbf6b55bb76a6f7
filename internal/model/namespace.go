package model

import "errors"

// ErrUnresolvedMember is the internal sentinel for a lookup that hit an
// ambiguous or not-yet-resolvable member mid-search. It is caught at the
// linker boundary and converted into a linking diagnostic; it never
// escapes past it.
var ErrUnresolvedMember = errors.New("model: unresolved member")

// LookupStatus classifies the outcome of a direct member lookup.
type LookupStatus int

const (
	LookupMissing LookupStatus = iota
	LookupFound
	LookupAmbiguous
)

// Namespace is any element owning memberships and imports with name-keyed
// member lookup: packages, types and features.
type Namespace interface {
	Element
	Memberships() []*Membership
	Imports() []*Import
	FindMember(name string) (*Membership, LookupStatus)
	AddMember(member Element, vis Visibility) (*Membership, error)
	AddChild(child Element) error

	ns() *namespaceBase
}

type namespaceBase struct {
	elementBase
	memberMap   map[string][]*Membership
	memberMapAt int
}

func (n *namespaceBase) ns() *namespaceBase { return n }

// Memberships returns the namespace's owned memberships in declaration order.
func (n *namespaceBase) Memberships() []*Membership { return MembershipsOf(n.self) }

// Imports returns the namespace's owned imports in declaration order.
func (n *namespaceBase) Imports() []*Import { return ImportsOf(n.self) }

// AddMember creates an owning membership for member with the given
// visibility and attaches it to this namespace.
func (n *namespaceBase) AddMember(member Element, vis Visibility) (*Membership, error) {
	m, err := NewOwningMembership(n.doc, member)
	if err != nil {
		return nil, err
	}
	m.SetVisibility(vis)
	if err := n.AddChild(m); err != nil {
		return nil, err
	}
	return m, nil
}

// members returns the cached name index over owned memberships. Member names
// and short names both key the index; derived names (alias names, inherited
// redefinition names) are included because MemberName computes them.
func (n *namespaceBase) members() map[string][]*Membership {
	// The index depends on resolved targets (alias names, redefinition
	// names), so it keys on the document version rather than the local
	// child version.
	v := 0
	if n.doc != nil {
		v = n.doc.version
	}
	if n.memberMap != nil && n.memberMapAt == v {
		return n.memberMap
	}
	idx := make(map[string][]*Membership)
	for _, m := range n.Memberships() {
		if name := m.MemberName(); name != "" {
			idx[name] = append(idx[name], m)
		}
		if short := m.MemberShortName(); short != "" && short != m.MemberName() {
			idx[short] = append(idx[short], m)
		}
	}
	n.memberMap = idx
	n.memberMapAt = v
	return idx
}

// FindMember looks up name strictly among this namespace's own memberships.
// It does not consult inherited or imported content; that is the scope
// model's job. Two distinct members under one name are ambiguous.
func (n *namespaceBase) FindMember(name string) (*Membership, LookupStatus) {
	found := n.members()[name]
	switch len(found) {
	case 0:
		return nil, LookupMissing
	case 1:
		return found[0], LookupFound
	}
	// Several memberships may legitimately share a name when they alias the
	// same terminal element.
	first := found[0].FinalElement()
	for _, m := range found[1:] {
		if m.FinalElement() != first || first == nil {
			return found[0], LookupAmbiguous
		}
	}
	return found[0], LookupFound
}

// Package is a plain namespace: the root of a document and any nested
// `package` declarations.
type Package struct {
	namespaceBase
}

// NewPackage creates a package element. An empty name creates an unnamed
// namespace (document roots).
func NewPackage(doc *Document, name string) *Package {
	p := &Package{}
	p.init(p, doc, KindPackage, name)
	return p
}
