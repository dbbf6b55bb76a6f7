package model

// Import brings another namespace's content (or a single membership) into
// scope. `P::A` imports one membership, `P::*` imports every visible member
// of P, and `P::**` additionally makes nested namespaces' contents visible.
type Import struct {
	relationshipBase
	all       bool // wildcard: imports every member of the target namespace
	recursive bool // nested namespace contents are visible too
}

// NewImport creates an import resolving ref. Wildcard and recursive flags
// mirror the written `::*` / `::**` suffixes.
func NewImport(doc *Document, ref *Reference, all, recursive bool) *Import {
	i := &Import{}
	i.init(i, doc, KindImport, "")
	i.ref = ref
	i.all = all
	i.recursive = recursive
	return i
}

// ImportsAll reports whether the import is a wildcard namespace import.
func (i *Import) ImportsAll() bool { return i.all }

// IsRecursive reports whether nested namespace contents are imported too.
func (i *Import) IsRecursive() bool { return i.recursive }

// ImportedMembership returns the resolved target as a membership, for
// single-member imports. Nil for wildcard imports or while unlinked.
func (i *Import) ImportedMembership() *Membership {
	if m, ok := i.target.(*Membership); ok {
		return m
	}
	return nil
}

// ImportedNamespace returns the namespace whose members become visible:
// the target itself for wildcard imports, or the terminal member of a
// single-member import when that member is a namespace.
func (i *Import) ImportedNamespace() Namespace {
	t := i.target
	if m, ok := t.(*Membership); ok {
		t = m.FinalElement()
	}
	if ns, ok := t.(Namespace); ok {
		return ns
	}
	return nil
}
