package model

import "iter"

// Direct and transitive heritage queries. All traversals are lazy and
// cycle-safe: a visited set keyed by resolved target identity truncates
// diamonds and pathological user-modeled cycles silently. Reporting cycles
// is a validation concern, not this layer's.

// Specializations returns the direct heritage edges that are
// specializations, optionally restricted to one edge kind. KindInvalid
// means any specialization kind. Results are cached per kind until the
// type's children mutate.
func (t *Type) Specializations(kind Kind) []*Inheritance {
	if t.specBuckets == nil || t.specBucketsAt != t.childVersion {
		t.specBuckets = make(map[Kind][]*Inheritance)
		t.specBucketsAt = t.childVersion
	}
	if got, ok := t.specBuckets[kind]; ok {
		return got
	}
	var out []*Inheritance
	for _, e := range t.Heritage() {
		if kind == KindInvalid {
			if isSpecializationKind(e.Kind()) {
				out = append(out, e)
			}
		} else if e.Kind().IsA(kind) {
			out = append(out, e)
		}
	}
	t.specBuckets[kind] = out
	return out
}

// AllSpecializations streams the transitive heritage edges reachable from
// this type, excluding the type itself, in depth-first preorder. Each
// edge's resolved target is expanded by its own direct specializations.
// Unlinked edges are treated as absent. A target already seen is not
// re-expanded, so diamonds yield each type once and cycles terminate.
func (t *Type) AllSpecializations(kind Kind) iter.Seq[*Inheritance] {
	return func(yield func(*Inheritance) bool) {
		visited := map[*Type]struct{}{t: {}}
		t.walkSpecializations(kind, visited, yield)
	}
}

func (t *Type) walkSpecializations(kind Kind, visited map[*Type]struct{}, yield func(*Inheritance) bool) bool {
	for _, e := range t.Specializations(kind) {
		tgt := e.TargetType()
		if tgt == nil {
			continue
		}
		tn := tgt.TypeNode()
		if _, seen := visited[tn]; seen {
			continue
		}
		visited[tn] = struct{}{}
		if !yield(e) {
			return false
		}
		if !tn.walkSpecializations(kind, visited, yield) {
			return false
		}
	}
	return true
}

// AllTypes streams the resolved targets of AllSpecializations, optionally
// prefixed with the type itself.
func (t *Type) AllTypes(kind Kind, includeSelf bool) iter.Seq[TypeLike] {
	return func(yield func(TypeLike) bool) {
		if includeSelf {
			if self, ok := t.self.(TypeLike); ok && !yield(self) {
				return
			}
		}
		for e := range t.AllSpecializations(kind) {
			if tgt := e.TargetType(); tgt != nil {
				if !yield(tgt) {
					return
				}
			}
		}
	}
}

// Conforms reports whether this type is, or transitively specializes, the
// type with the given qualified name.
func (t *Type) Conforms(qualifiedName string) bool {
	for tp := range t.AllTypes(KindInvalid, true) {
		if tp.QualifiedName() == qualifiedName {
			return true
		}
	}
	return false
}

// ConformsTo is Conforms with identity comparison instead of qualified
// names.
func (t *Type) ConformsTo(other Element) bool {
	for tp := range t.AllTypes(KindInvalid, true) {
		if Element(tp.TypeNode()) == other || tp == other {
			return true
		}
	}
	return false
}

// Specializes is Conforms restricted to supertype-establishing heritage
// kinds (subsetting excluded). A conjugate type delegates to its original:
// its supertype set is defined relative to the origin.
func (t *Type) Specializes(qualifiedName string) bool {
	return t.specializes(qualifiedName, make(map[*Type]struct{}))
}

func (t *Type) specializes(qualifiedName string, visited map[*Type]struct{}) bool {
	if _, seen := visited[t]; seen {
		return false
	}
	visited[t] = struct{}{}
	if conj := t.Conjugator(); conj != nil {
		if orig := conj.TargetType(); orig != nil {
			return orig.TypeNode().specializes(qualifiedName, visited)
		}
		return false
	}
	if t.self.QualifiedName() == qualifiedName {
		return true
	}
	for e := range t.allSupertypeEdges() {
		if tgt := e.TargetType(); tgt != nil && tgt.QualifiedName() == qualifiedName {
			return true
		}
	}
	return false
}

// allSupertypeEdges is AllSpecializations filtered to supertype kinds at
// every expansion step.
func (t *Type) allSupertypeEdges() iter.Seq[*Inheritance] {
	return func(yield func(*Inheritance) bool) {
		visited := map[*Type]struct{}{t: {}}
		t.walkSupertypes(visited, yield)
	}
}

func (t *Type) walkSupertypes(visited map[*Type]struct{}, yield func(*Inheritance) bool) bool {
	for _, e := range t.Heritage() {
		if !isSupertypeKind(e.Kind()) {
			continue
		}
		tgt := e.TargetType()
		if tgt == nil {
			continue
		}
		tn := tgt.TypeNode()
		if _, seen := visited[tn]; seen {
			continue
		}
		visited[tn] = struct{}{}
		if !yield(e) {
			return false
		}
		if !tn.walkSupertypes(visited, yield) {
			return false
		}
	}
	return true
}

// FirstConforming returns the first candidate name encountered while
// walking AllTypes in traversal order. Traversal order decides, not
// candidate list order: the most specific applicable candidate wins.
func (t *Type) FirstConforming(candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	set := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		set[c] = struct{}{}
	}
	for tp := range t.AllTypes(KindInvalid, true) {
		if qn := tp.QualifiedName(); qn != "" {
			if _, ok := set[qn]; ok {
				return qn, true
			}
		}
	}
	return "", false
}
