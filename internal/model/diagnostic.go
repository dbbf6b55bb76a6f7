package model

import "fmt"

// RelatedInfo points at a second element involved in a diagnostic, e.g. the
// element a mistyped reference actually resolved to.
type RelatedInfo struct {
	Message string
	Element Element
}

// Diagnostic is a linking or metamodel error attached to a specific element.
// The core carries structural identity only; mapping back to source ranges
// is the presentation layer's job.
type Diagnostic struct {
	Message  string
	Element  Element
	Property string
	Index    int
	Related  []RelatedInfo
}

func (d Diagnostic) String() string {
	where := "?"
	if d.Element != nil {
		if qn := d.Element.QualifiedName(); qn != "" {
			where = qn
		} else {
			where = describe(d.Element)
		}
	}
	if d.Property != "" {
		return fmt.Sprintf("%s: %s (%s[%d])", where, d.Message, d.Property, d.Index)
	}
	return fmt.Sprintf("%s: %s", where, d.Message)
}
