// Package ast defines the raw syntax tree the analysis core consumes, and a
// recursive-descent parser for the textual notation. The tree is plain data:
// kinds, names, heritage clauses and children. All semantic structure
// (ownership, memberships, heritage edges, scoping) is built on top of it by
// the metamodel layer.
package ast

import "fmt"

// Kind is the grammatical kind of a syntax node.
type Kind int

const (
	KindInvalid Kind = iota
	KindPackage
	KindType
	KindClass
	KindStruct
	KindDataType
	KindAssoc
	KindAssocStruct
	KindFeature
	KindImport
	KindAlias
)

func (k Kind) String() string {
	switch k {
	case KindPackage:
		return "package"
	case KindType:
		return "type"
	case KindClass:
		return "class"
	case KindStruct:
		return "struct"
	case KindDataType:
		return "datatype"
	case KindAssoc:
		return "assoc"
	case KindAssocStruct:
		return "assoc struct"
	case KindFeature:
		return "feature"
	case KindImport:
		return "import"
	case KindAlias:
		return "alias"
	}
	return "invalid"
}

// HeritageKind distinguishes the written heritage clauses.
type HeritageKind int

const (
	HeritageSpecializes HeritageKind = iota // :>
	HeritageRedefines                       // :>>
	HeritageConjugates                      // ~
	HeritageTyping                          // : (features)
)

// QualifiedName is a written :: separated name path.
type QualifiedName struct {
	Parts []string
	Line  int
	Col   int
}

func (q QualifiedName) String() string {
	out := ""
	for i, p := range q.Parts {
		if i > 0 {
			out += "::"
		}
		out += p
	}
	return out
}

// Heritage is one heritage clause on a declaration.
type Heritage struct {
	Kind   HeritageKind
	Target QualifiedName
}

// Multiplicity is a written [lower..upper] bound. Upper -1 means '*'.
type Multiplicity struct {
	Lower int
	Upper int
}

// Value is a written feature value binding. The expression is carried as
// raw text; evaluation is out of scope.
type Value struct {
	Text    string
	Initial bool // bound with := rather than =
}

// Node is one declaration in the syntax tree.
type Node struct {
	Kind      Kind
	Name      string
	ShortName string

	Visibility string // "", "public", "protected", "private"
	Direction  string // "", "in", "out", "inout"

	Abstract  bool
	Readonly  bool
	Derived   bool
	Composite bool
	End       bool
	Ordered   bool
	NonUnique bool

	Heritage     []Heritage
	Multiplicity *Multiplicity
	Value        *Value

	// Import / alias payload.
	Target    *QualifiedName
	All       bool // import P::*
	Recursive bool // import P::**

	Children []*Node

	Line int
	Col  int
}

// ParseError is a syntax error with its source position.
type ParseError struct {
	Message string
	Line    int
	Col     int
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Message)
}
