package store

import "time"

// Document is one persisted document row.
type Document struct {
	ID          int64
	URI         string
	Language    string
	Library     bool
	Hash        string
	LastIndexed time.Time
}

// Element is one persisted element row: namespaces, types, features and
// relationships all land here, discriminated by Kind. Relationship rows
// carry the written reference text and the qualified name of the resolved
// target; feature rows carry direction, multiplicity and value columns.
type Element struct {
	ID            int64
	DocumentID    int64
	ParentID      *int64
	Ordinal       int
	Kind          string
	Name          string
	ShortName     string
	QualifiedName string
	Visibility    string
	Abstract      bool
	Modifiers     []string

	Direction    string
	Lower        *int
	Upper        *int
	ValueExpr    *string
	ValueInitial bool

	Implied       bool
	ReferenceText string
	TargetName    *string
	Resolved      bool
}

// Diagnostic is one persisted diagnostic row.
type Diagnostic struct {
	ID          int64
	DocumentID  int64
	ElementName string
	Message     string
	Property    string
	Ordinal     int
}
