package trellis

import (
	"iter"
	"path"
	"sort"
	"strings"

	"github.com/jward/trellis/internal/model"
)

// --- Common Types ---

// Pagination controls offset+limit paging on list/search results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// PagedResult wraps a page of results with total count for pagination.
type PagedResult[T any] struct {
	Results []T
	Total   int
}

// ElementFilter specifies which elements to include. All fields are
// optional; zero values match everything.
type ElementFilter struct {
	Kind     string // element kind name, e.g. "class", "feature"
	Language string // "kernel" or "systems"
	Library  *bool  // nil matches both workspace and library elements
}

func (f ElementFilter) matches(el model.Element) bool {
	if f.Kind != "" && el.Kind().String() != f.Kind {
		return false
	}
	if f.Language != "" {
		doc := el.Document()
		if doc == nil || doc.Language != f.Language {
			return false
		}
	}
	if f.Library != nil && el.IsLibrary() != *f.Library {
		return false
	}
	return true
}

// --- Workspace Walkers ---

// allElements streams every element of every loaded document, documents in
// URI order, elements in pre-order within each document.
func (q *QueryBuilder) allElements() iter.Seq[model.Element] {
	return func(yield func(model.Element) bool) {
		uris := make([]string, 0, len(q.engine.docs))
		for uri := range q.engine.docs {
			uris = append(uris, uri)
		}
		sort.Strings(uris)
		for _, uri := range uris {
			st := q.engine.docs[uri]
			if st.doc == nil || st.doc.Root == nil {
				continue
			}
			if !walkElements(st.doc.Root, yield) {
				return
			}
		}
	}
}

func walkElements(el model.Element, yield func(model.Element) bool) bool {
	if !yield(el) {
		return false
	}
	for _, child := range el.Children() {
		if !walkElements(child, yield) {
			return false
		}
	}
	return true
}

// allTypes streams every type-like element across the workspace.
func (q *QueryBuilder) allTypes() iter.Seq[model.TypeLike] {
	return func(yield func(model.TypeLike) bool) {
		for el := range q.allElements() {
			if tl, ok := el.(model.TypeLike); ok {
				if !yield(tl) {
					return
				}
			}
		}
	}
}

// --- Enumeration Endpoints ---

// Elements is the primary listing/filtering endpoint. All filter fields are
// optional; results are ordered by qualified name.
func (q *QueryBuilder) Elements(filter ElementFilter, page Pagination) *PagedResult[Member] {
	var all []Member
	for el := range q.allElements() {
		if el.Name() == "" || !filter.matches(el) {
			continue
		}
		all = append(all, Member{
			Name:          el.Name(),
			QualifiedName: el.QualifiedName(),
			Kind:          el.Kind().String(),
			Visibility:    el.Visibility().String(),
		})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].QualifiedName < all[j].QualifiedName })
	return pageOf(all, page)
}

// Packages lists the package elements of the workspace, ordered by
// qualified name.
func (q *QueryBuilder) Packages(page Pagination) *PagedResult[Member] {
	return q.Elements(ElementFilter{Kind: "package"}, page)
}

// Export is one name a document contributes to the workspace-wide scope.
type Export struct {
	Name     string
	Kind     string
	Language string
	Document string // URI of the contributing document
}

// Exports lists every root-level name visible across document boundaries,
// ordered by name then document URI. Names served dynamically (through
// public wildcard imports) are not enumerated here.
func (q *QueryBuilder) Exports() []Export {
	var all []Export
	for ex := range q.engine.global.AllExports() {
		kind := ""
		if el := ex.Membership.FinalElement(); el != nil {
			kind = el.Kind().String()
		}
		all = append(all, Export{
			Name:     ex.Name,
			Kind:     kind,
			Language: ex.Language,
			Document: ex.URI,
		})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].Document < all[j].Document
	})
	return all
}

// --- Search ---

// SearchElements performs glob-style search on element names. '*' is the
// wildcard; a pattern without wildcards matches exact names. Matching is
// case-insensitive.
func (q *QueryBuilder) SearchElements(pattern string, filter ElementFilter, page Pagination) *PagedResult[Member] {
	lowered := strings.ToLower(pattern)
	var all []Member
	for el := range q.allElements() {
		name := el.Name()
		if name == "" || !filter.matches(el) {
			continue
		}
		if ok, err := path.Match(lowered, strings.ToLower(name)); err != nil || !ok {
			continue
		}
		all = append(all, Member{
			Name:          name,
			QualifiedName: el.QualifiedName(),
			Kind:          el.Kind().String(),
			Visibility:    el.Visibility().String(),
		})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].QualifiedName < all[j].QualifiedName })
	return pageOf(all, page)
}

func pageOf(all []Member, page Pagination) *PagedResult[Member] {
	page = page.normalize()
	total := len(all)
	if page.Offset >= total {
		return &PagedResult[Member]{Results: []Member{}, Total: total}
	}
	end := page.Offset + page.Limit
	if end > total {
		end = total
	}
	return &PagedResult[Member]{Results: all[page.Offset:end], Total: total}
}

// --- Digest Endpoints ---

// LanguageStats provides a per-language breakdown for WorkspaceSummary.
type LanguageStats struct {
	Language  string
	Documents int
	Elements  int
}

// WorkspaceSummary is a high-level overview of the loaded workspace.
type WorkspaceSummary struct {
	Documents   int
	Elements    int
	Types       int
	Features    int
	Packages    int
	Diagnostics int
	Languages   []LanguageStats // ordered by language name
}

// WorkspaceSummary returns counts across all loaded documents, libraries
// included.
func (q *QueryBuilder) WorkspaceSummary() *WorkspaceSummary {
	summary := &WorkspaceSummary{Languages: []LanguageStats{}}
	perLanguage := map[string]*LanguageStats{}

	langFor := func(lang string) *LanguageStats {
		ls, ok := perLanguage[lang]
		if !ok {
			ls = &LanguageStats{Language: lang}
			perLanguage[lang] = ls
		}
		return ls
	}

	for _, d := range q.Documents() {
		summary.Documents++
		langFor(d.Language).Documents++
	}
	for el := range q.allElements() {
		summary.Elements++
		if doc := el.Document(); doc != nil {
			langFor(doc.Language).Elements++
		}
		switch el.(type) {
		case *model.Feature:
			summary.Features++
		case model.TypeLike:
			summary.Types++
		case *model.Package:
			summary.Packages++
		}
	}
	summary.Diagnostics = len(q.Diagnostics())

	langs := make([]string, 0, len(perLanguage))
	for lang := range perLanguage {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		summary.Languages = append(summary.Languages, *perLanguage[lang])
	}
	return summary
}
