package model

import (
	"fmt"
	"strings"
)

// Element is any node of the model tree. Concrete element structs embed
// elementBase and are always handled through this interface so that owner
// links and child lists preserve the dynamic type.
type Element interface {
	ID() ID
	Kind() Kind
	Name() string
	ShortName() string
	Owner() Element
	Children() []Element
	Document() *Document
	Visibility() Visibility
	IsLibrary() bool
	QualifiedName() string

	base() *elementBase
}

type elementBase struct {
	id         ID
	kind       Kind
	name       string
	shortName  string
	owner      Element
	children   []Element
	doc        *Document
	visibility Visibility

	// self is the outermost struct embedding this base, set once at
	// construction. Owner links and child lists store self so dynamic
	// dispatch survives embedding.
	self Element

	childVersion int
	kindBuckets  map[Kind][]Element
	bucketsAt    int

	qualified   string
	qualifiedAt int
	hasQN       bool
}

func (b *elementBase) init(self Element, doc *Document, kind Kind, name string) {
	b.self = self
	b.doc = doc
	b.kind = kind
	b.name = name
	b.id = doc.newID()
}

func (b *elementBase) ID() ID                { return b.id }
func (b *elementBase) Kind() Kind            { return b.kind }
func (b *elementBase) Name() string          { return b.name }
func (b *elementBase) ShortName() string     { return b.shortName }
func (b *elementBase) Owner() Element        { return b.owner }
func (b *elementBase) Children() []Element   { return b.children }
func (b *elementBase) Document() *Document   { return b.doc }
func (b *elementBase) Visibility() Visibility { return b.visibility }
func (b *elementBase) IsLibrary() bool       { return b.doc != nil && b.doc.Library }
func (b *elementBase) base() *elementBase    { return b }

// SetShortName assigns the short (alternative) name.
func (b *elementBase) SetShortName(s string) { b.shortName = s; b.mutated() }

// SetVisibility assigns the member visibility.
func (b *elementBase) SetVisibility(v Visibility) { b.visibility = v; b.mutated() }

// AddChild appends child to this element's owned children, order-preserving.
// Fails if the child already has an owner or if ownership would form a cycle.
func (b *elementBase) AddChild(child Element) error {
	cb := child.base()
	if cb.owner != nil {
		return fmt.Errorf("model: %s already has an owner", describe(child))
	}
	for cur := b.self; cur != nil; cur = cur.Owner() {
		if cur == child {
			return fmt.Errorf("model: ownership cycle through %s", describe(child))
		}
	}
	cb.owner = b.self
	b.children = append(b.children, child)
	b.mutated()
	return nil
}

// RemoveChild detaches child from this element. No-op if child is not owned
// here.
func (b *elementBase) RemoveChild(child Element) {
	for i, c := range b.children {
		if c == child {
			b.children = append(b.children[:i], b.children[i+1:]...)
			child.base().owner = nil
			b.mutated()
			return
		}
	}
}

// mutated invalidates caches on this element and every ancestor, and bumps
// the document version. Invalidation is eager and synchronous: there is no
// background eviction.
func (b *elementBase) mutated() {
	if b.doc != nil {
		b.doc.bump()
	}
	for cur := b.self; cur != nil; cur = cur.Owner() {
		cur.base().childVersion++
	}
}

// childrenOfKind returns the cached bucket of children whose kind IsA k.
func (b *elementBase) childrenOfKind(k Kind) []Element {
	if b.kindBuckets == nil || b.bucketsAt != b.childVersion {
		b.kindBuckets = make(map[Kind][]Element)
		b.bucketsAt = b.childVersion
	}
	if got, ok := b.kindBuckets[k]; ok {
		return got
	}
	var out []Element
	for _, c := range b.children {
		if c.Kind().IsA(k) {
			out = append(out, c)
		}
	}
	b.kindBuckets[k] = out
	return out
}

// QualifiedName returns the :: separated path of effective names from the
// document root to this element, with non-identifier segments quoted.
// Unnamed elements (and elements not reachable through named namespaces)
// have no qualified name and return "".
func (b *elementBase) QualifiedName() string {
	if b.doc != nil && b.hasQN && b.qualifiedAt == b.doc.version {
		return b.qualified
	}
	name := b.self.Name()
	var qn string
	if name != "" {
		if owner := OwningNamespace(b.self); owner != nil {
			if oqn := owner.QualifiedName(); oqn != "" {
				qn = oqn + "::" + escapeName(name)
			} else if owner.Owner() == nil {
				// Direct child of an unnamed document root.
				qn = escapeName(name)
			}
		} else if b.owner == nil && b.doc != nil && b.self != Element(b.doc.Root) {
			qn = escapeName(name)
		}
	}
	if b.doc != nil {
		b.qualified = qn
		b.qualifiedAt = b.doc.version
		b.hasQN = true
	}
	return qn
}

// OwningNamespace returns the nearest ancestor that is a namespace, skipping
// the membership that carries e.
func OwningNamespace(e Element) Element {
	for cur := e.Owner(); cur != nil; cur = cur.Owner() {
		if cur.Kind().IsA(KindNamespace) {
			return cur
		}
	}
	return nil
}

// escapeName quotes a name segment when it is not a plain identifier.
func escapeName(name string) string {
	if isIdentifier(name) {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "\\'") + "'"
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func describe(e Element) string {
	if qn := e.QualifiedName(); qn != "" {
		return fmt.Sprintf("%s %s", e.Kind(), qn)
	}
	if e.Name() != "" {
		return fmt.Sprintf("%s %s", e.Kind(), e.Name())
	}
	return fmt.Sprintf("unnamed %s", e.Kind())
}
