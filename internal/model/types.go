package model

// ClassifierFlags records which structural categories apply to a type,
// derived from its own kind and its transitive heritage. Recomputed lazily
// whenever heritage changes.
type ClassifierFlags uint8

const (
	FlagClass ClassifierFlags = 1 << iota
	FlagStructure
	FlagDataType
	FlagAssociation
	FlagAssociationStructure
)

// Has reports whether all bits of f2 are set.
func (f ClassifierFlags) Has(f2 ClassifierFlags) bool { return f&f2 == f2 }

var kindFlags = map[Kind]ClassifierFlags{
	KindClass:                FlagClass,
	KindStructure:            FlagClass | FlagStructure,
	KindDataType:             FlagDataType,
	KindAssociation:          FlagAssociation,
	KindAssociationStructure: FlagAssociation | FlagAssociationStructure | FlagClass | FlagStructure,
}

// TypeLike is any element carrying type semantics: types, classifiers and
// features. Structural capabilities (classifier-ness, feature-ness) are
// separate interfaces over one embedded Type core rather than parallel
// hierarchies.
type TypeLike interface {
	Namespace
	TypeNode() *Type
}

// Type owns heritage edges and answers specialization and conformance
// queries over the transitive heritage graph.
type Type struct {
	namespaceBase
	abstract bool

	specBuckets   map[Kind][]*Inheritance
	specBucketsAt int

	flags   ClassifierFlags
	flagsAt int
	hasFlags bool
}

// NewType creates a type-kinded element. kind must be KindType or one of
// the classifier kinds.
func NewType(doc *Document, kind Kind, name string) *Type {
	t := &Type{}
	t.init(t, doc, kind, name)
	return t
}

func (t *Type) TypeNode() *Type { return t }

// IsAbstract reports whether the type was declared abstract.
func (t *Type) IsAbstract() bool { return t.abstract }

// SetAbstract marks the type abstract.
func (t *Type) SetAbstract(a bool) { t.abstract = a }

// AddHeritage attaches a heritage edge to this type.
func (t *Type) AddHeritage(e *Inheritance) error {
	return t.AddChild(e)
}

// Heritage returns all owned heritage edges in declaration order.
func (t *Type) Heritage() []*Inheritance {
	kids := t.childrenOfKind(KindInheritance)
	out := make([]*Inheritance, 0, len(kids))
	for _, c := range kids {
		out = append(out, c.(*Inheritance))
	}
	return out
}

// Conjugator returns the conjugation edge when this type is declared as a
// conjugate of another, nil otherwise.
func (t *Type) Conjugator() *Inheritance {
	for _, e := range t.Heritage() {
		if e.Kind() == KindConjugation {
			return e
		}
	}
	return nil
}

// Classifier returns the structural category flags, recomputing them when
// heritage has changed since the last query.
func (t *Type) Classifier() ClassifierFlags {
	v := 0
	if t.doc != nil {
		v = t.doc.version
	}
	if t.hasFlags && t.flagsAt == v {
		return t.flags
	}
	flags := kindFlags[t.kind]
	for tp := range t.AllTypes(KindInvalid, false) {
		flags |= kindFlags[tp.Kind()]
	}
	t.flags = flags
	t.flagsAt = v
	t.hasFlags = true
	return flags
}
