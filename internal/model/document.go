package model

// ID is the workspace-stable identity of an element. IDs are assigned
// monotonically per document and never reused within a document version.
type ID int64

// Document is one parsed source unit. It owns a root package; every element
// reachable from the root belongs to this document and is rebuilt wholesale
// when the document is replaced.
type Document struct {
	URI      string
	Language string // "kernel" or "systems"
	Root     *Package

	// Library marks standard-library documents. Elements of library
	// documents are the targets of implicit specializations and are never
	// reported in user diagnostics.
	Library bool

	nextID  ID
	version int
}

// NewDocument creates an empty document with a root package named by the
// document itself (the root is unnamed; top-level members are its children).
func NewDocument(uri, language string) *Document {
	d := &Document{URI: uri, Language: language}
	d.Root = NewPackage(d, "")
	return d
}

func (d *Document) newID() ID {
	d.nextID++
	return d.nextID
}

// Version increases whenever any element of the document mutates. Caches
// derived from document contents key on this value.
func (d *Document) Version() int { return d.version }

func (d *Document) bump() { d.version++ }
