package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jward/trellis/internal/model"
)

// SaveDocument replaces the persisted form of doc in a single transaction:
// the old document row and everything under it go first, then the element
// tree and diagnostics are written depth-first.
func (s *Store) SaveDocument(doc *model.Document, hash string, diags []model.Diagnostic) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existingID int64
	err = tx.QueryRow("SELECT id FROM documents WHERE uri = ?", doc.URI).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("lookup document: %w", err)
	}
	if err == nil {
		if err := deleteDocumentDataTx(tx, existingID); err != nil {
			return err
		}
	}

	res, err := tx.Exec(
		"INSERT INTO documents (uri, language, library, hash, last_indexed) VALUES (?, ?, ?, ?, ?)",
		doc.URI, doc.Language, doc.Library, hash, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	docID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("document id: %w", err)
	}

	if err := saveElementTree(tx, docID, nil, doc.Root); err != nil {
		return err
	}

	for i, d := range diags {
		var elemName string
		if d.Element != nil {
			elemName = d.Element.QualifiedName()
		}
		_, err := tx.Exec(
			"INSERT INTO diagnostics (document_id, element_name, message, property, ordinal) VALUES (?, ?, ?, ?, ?)",
			docID, elemName, d.Message, d.Property, i,
		)
		if err != nil {
			return fmt.Errorf("insert diagnostic: %w", err)
		}
	}

	return tx.Commit()
}

func saveElementTree(tx *sql.Tx, docID int64, parentID *int64, el model.Element) error {
	id, err := insertElement(tx, docID, parentID, el)
	if err != nil {
		return err
	}
	for _, child := range el.Children() {
		if err := saveElementTree(tx, docID, &id, child); err != nil {
			return err
		}
	}
	return nil
}

func insertElement(tx *sql.Tx, docID int64, parentID *int64, el model.Element) (int64, error) {
	row := elementRow(el)
	var ordinal int
	if parentID != nil {
		// Sibling order is recovered from ordinal on load.
		if err := tx.QueryRow(
			"SELECT COUNT(*) FROM elements WHERE parent_id = ?", *parentID,
		).Scan(&ordinal); err != nil {
			return 0, fmt.Errorf("count siblings: %w", err)
		}
	}

	res, err := tx.Exec(`
		INSERT INTO elements (
			document_id, parent_id, ordinal, kind, name, short_name,
			qualified_name, visibility, abstract, modifiers,
			direction, lower, upper, value_expr, value_initial,
			implied, reference_text, target_name, resolved
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		docID, parentID, ordinal, row.Kind, row.Name, row.ShortName,
		row.QualifiedName, row.Visibility, row.Abstract, marshalModifiers(row.Modifiers),
		row.Direction, row.Lower, row.Upper, row.ValueExpr, row.ValueInitial,
		row.Implied, row.ReferenceText, row.TargetName, row.Resolved,
	)
	if err != nil {
		return 0, fmt.Errorf("insert element %s: %w", row.QualifiedName, err)
	}
	return res.LastInsertId()
}

// elementRow flattens a model element into its persisted form.
func elementRow(el model.Element) *Element {
	row := &Element{
		Kind:          el.Kind().String(),
		Name:          el.Name(),
		ShortName:     el.ShortName(),
		QualifiedName: el.QualifiedName(),
		Visibility:    el.Visibility().String(),
	}

	if tl, ok := el.(model.TypeLike); ok {
		row.Abstract = tl.TypeNode().IsAbstract()
	}

	if f, ok := el.(*model.Feature); ok {
		row.Direction = f.Direction().String()
		row.Modifiers = featureModifiers(f)
		if m := f.FeatureMultiplicity(); m != nil {
			lower, upper := m.Lower, m.Upper
			row.Lower, row.Upper = &lower, &upper
		}
		if v := f.Value(); v != nil {
			expr := v.Expression
			row.ValueExpr = &expr
			row.ValueInitial = v.IsInitial
		}
	}

	if imp, ok := el.(*model.Import); ok {
		row.Modifiers = importModifiers(imp)
	}

	if rel, ok := el.(model.Relationship); ok {
		row.Implied = rel.IsImplied()
		if ref := rel.Reference(); ref != nil {
			row.ReferenceText = ref.Text()
			row.Resolved = ref.Linked && !ref.Failed
		}
		if target := rel.Target(); target != nil {
			if m, ok := target.(*model.Membership); ok {
				if fe := m.FinalElement(); fe != nil {
					target = fe
				}
			}
			name := target.QualifiedName()
			row.TargetName = &name
			row.Resolved = true
		}
	}
	return row
}

func featureModifiers(f *model.Feature) []string {
	var mods []string
	if f.Composite {
		mods = append(mods, "composite")
	}
	if f.Derived {
		mods = append(mods, "derived")
	}
	if f.Readonly {
		mods = append(mods, "readonly")
	}
	if f.End {
		mods = append(mods, "end")
	}
	if f.Portion {
		mods = append(mods, "portion")
	}
	if f.Ordered {
		mods = append(mods, "ordered")
	}
	if f.NonUnique {
		mods = append(mods, "nonunique")
	}
	return mods
}

func importModifiers(imp *model.Import) []string {
	var mods []string
	if imp.ImportsAll() {
		mods = append(mods, "all")
	}
	if imp.IsRecursive() {
		mods = append(mods, "recursive")
	}
	return mods
}
