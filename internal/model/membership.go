package model

// Membership names a member element within a namespace. An owning membership
// carries the member as its child; an alias membership has no owned element
// and resolves its target through linking. A membership's resolved element
// can itself be another membership (alias chains), which callers follow via
// FinalElement.
type Membership struct {
	relationshipBase
	alias       bool
	memberName  string
	memberShort string
}

// NewOwningMembership creates the membership that owns member within its
// namespace. The membership's target is the member itself.
func NewOwningMembership(doc *Document, member Element) (*Membership, error) {
	m := &Membership{}
	m.init(m, doc, KindMembership, "")
	if err := m.AddChild(member); err != nil {
		return nil, err
	}
	m.target = member
	return m, nil
}

// NewAliasMembership creates an alias of the given name for a target that
// linking resolves later.
func NewAliasMembership(doc *Document, name string, ref *Reference) *Membership {
	m := &Membership{}
	m.init(m, doc, KindMembership, "")
	m.alias = true
	m.memberName = name
	m.ref = ref
	return m
}

// IsAlias reports whether this membership aliases an element owned elsewhere.
func (m *Membership) IsAlias() bool { return m.alias }

// MemberName is the name under which the member is visible in the owning
// namespace: the alias name for aliases, and the member's effective name
// otherwise. The effective name of an unnamed redefining feature is the
// redefined feature's name.
func (m *Membership) MemberName() string {
	if m.memberName != "" {
		return m.memberName
	}
	if t := m.target; t != nil {
		return t.Name()
	}
	return ""
}

// MemberShortName mirrors MemberName for short names.
func (m *Membership) MemberShortName() string {
	if m.memberShort != "" {
		return m.memberShort
	}
	if t := m.target; t != nil {
		return t.ShortName()
	}
	return ""
}

// SetMemberShortName assigns an alias short name.
func (m *Membership) SetMemberShortName(s string) { m.memberShort = s; m.mutated() }

// Element returns the membership's resolved member, nil while unlinked.
func (m *Membership) Element() Element { return m.target }

// FinalElement follows alias chains to the first non-membership terminal.
// Cycles terminate at the last membership before the repeat; the partial
// result is preferred over failing the whole lookup.
func (m *Membership) FinalElement() Element {
	visited := map[*Membership]struct{}{m: {}}
	cur := m
	for {
		t := cur.target
		next, ok := t.(*Membership)
		if !ok {
			return t
		}
		if _, seen := visited[next]; seen {
			return next
		}
		visited[next] = struct{}{}
		cur = next
	}
}

// MembershipsOf returns the cached list of memberships owned by e.
func MembershipsOf(e Element) []*Membership {
	kids := e.base().childrenOfKind(KindMembership)
	out := make([]*Membership, 0, len(kids))
	for _, c := range kids {
		out = append(out, c.(*Membership))
	}
	return out
}

// ImportsOf returns the cached list of imports owned by e.
func ImportsOf(e Element) []*Import {
	kids := e.base().childrenOfKind(KindImport)
	out := make([]*Import, 0, len(kids))
	for _, c := range kids {
		out = append(out, c.(*Import))
	}
	return out
}
