package store

import (
	"database/sql"
	"fmt"
)

// DocumentByURI returns the document row for uri, or nil when absent.
func (s *Store) DocumentByURI(uri string) (*Document, error) {
	row := s.db.QueryRow(
		"SELECT id, uri, language, library, hash, last_indexed FROM documents WHERE uri = ?", uri,
	)
	doc := &Document{}
	var lastIndexed sql.NullTime
	err := row.Scan(&doc.ID, &doc.URI, &doc.Language, &doc.Library, &doc.Hash, &lastIndexed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("document by uri: %w", err)
	}
	doc.LastIndexed = lastIndexed.Time
	return doc, nil
}

// Documents returns all document rows sorted by URI.
func (s *Store) Documents() ([]*Document, error) {
	rows, err := s.db.Query(
		"SELECT id, uri, language, library, hash, last_indexed FROM documents ORDER BY uri",
	)
	if err != nil {
		return nil, fmt.Errorf("documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc := &Document{}
		var lastIndexed sql.NullTime
		if err := rows.Scan(&doc.ID, &doc.URI, &doc.Language, &doc.Library, &doc.Hash, &lastIndexed); err != nil {
			return nil, fmt.Errorf("documents: scan: %w", err)
		}
		doc.LastIndexed = lastIndexed.Time
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

const elementColumns = `id, document_id, parent_id, ordinal, kind, name, short_name,
	qualified_name, visibility, abstract, modifiers, direction, lower, upper,
	value_expr, value_initial, implied, reference_text, target_name, resolved`

func scanElement(scanner interface{ Scan(...any) error }) (*Element, error) {
	el := &Element{}
	var modifiers string
	err := scanner.Scan(
		&el.ID, &el.DocumentID, &el.ParentID, &el.Ordinal, &el.Kind, &el.Name,
		&el.ShortName, &el.QualifiedName, &el.Visibility, &el.Abstract, &modifiers,
		&el.Direction, &el.Lower, &el.Upper, &el.ValueExpr, &el.ValueInitial,
		&el.Implied, &el.ReferenceText, &el.TargetName, &el.Resolved,
	)
	if err != nil {
		return nil, err
	}
	el.Modifiers = unmarshalModifiers(modifiers)
	return el, nil
}

func (s *Store) queryElements(query string, args ...any) ([]*Element, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query elements: %w", err)
	}
	defer rows.Close()

	var elements []*Element
	for rows.Next() {
		el, err := scanElement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan element: %w", err)
		}
		elements = append(elements, el)
	}
	return elements, rows.Err()
}

// ElementByQualifiedName returns the element row with the given qualified
// name, or nil when absent. Library elements shadow nothing: when both a
// workspace and a library element share a name, the workspace one wins.
func (s *Store) ElementByQualifiedName(qualifiedName string) (*Element, error) {
	elements, err := s.queryElements(
		`SELECT `+elementColumns+` FROM elements
		 WHERE qualified_name = ?
		 ORDER BY (SELECT library FROM documents WHERE id = document_id), id
		 LIMIT 1`,
		qualifiedName,
	)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, nil
	}
	return elements[0], nil
}

// ElementsByName returns all element rows with the given declared name.
func (s *Store) ElementsByName(name string) ([]*Element, error) {
	return s.queryElements(
		"SELECT "+elementColumns+" FROM elements WHERE name = ? ORDER BY qualified_name", name,
	)
}

// ElementsByKind returns all element rows of the given kind.
func (s *Store) ElementsByKind(kind string) ([]*Element, error) {
	return s.queryElements(
		"SELECT "+elementColumns+" FROM elements WHERE kind = ? ORDER BY qualified_name", kind,
	)
}

// ElementChildren returns the child rows of an element in declaration order.
func (s *Store) ElementChildren(elementID int64) ([]*Element, error) {
	return s.queryElements(
		"SELECT "+elementColumns+" FROM elements WHERE parent_id = ? ORDER BY ordinal", elementID,
	)
}

// ElementsByDocument returns all element rows of a document.
func (s *Store) ElementsByDocument(documentID int64) ([]*Element, error) {
	return s.queryElements(
		"SELECT "+elementColumns+" FROM elements WHERE document_id = ? ORDER BY id", documentID,
	)
}

// UnresolvedReferences returns relationship rows whose reference failed to
// link, across all documents.
func (s *Store) UnresolvedReferences() ([]*Element, error) {
	return s.queryElements(
		"SELECT " + elementColumns + " FROM elements WHERE reference_text != '' AND NOT resolved ORDER BY qualified_name",
	)
}

// DiagnosticsByDocument returns a document's diagnostics in emission order.
func (s *Store) DiagnosticsByDocument(documentID int64) ([]*Diagnostic, error) {
	rows, err := s.db.Query(
		`SELECT id, document_id, element_name, message, property, ordinal
		 FROM diagnostics WHERE document_id = ? ORDER BY ordinal`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	defer rows.Close()

	var diags []*Diagnostic
	for rows.Next() {
		d := &Diagnostic{}
		if err := rows.Scan(&d.ID, &d.DocumentID, &d.ElementName, &d.Message, &d.Property, &d.Ordinal); err != nil {
			return nil, fmt.Errorf("diagnostics: scan: %w", err)
		}
		diags = append(diags, d)
	}
	return diags, rows.Err()
}
