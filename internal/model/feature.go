package model

// Direction of a feature relative to its owning type.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionIn
	DirectionOut
	DirectionInOut
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "in"
	case DirectionOut:
		return "out"
	case DirectionInOut:
		return "inout"
	}
	return "none"
}

// DirectionByName parses a direction keyword, defaulting to none.
func DirectionByName(name string) Direction {
	switch name {
	case "in":
		return DirectionIn
	case "out":
		return DirectionOut
	case "inout":
		return DirectionInOut
	}
	return DirectionNone
}

// flip mirrors a direction across a conjugation boundary.
func (d Direction) flip() Direction {
	switch d {
	case DirectionIn:
		return DirectionOut
	case DirectionOut:
		return DirectionIn
	}
	return d
}

// FeatureValue is a bound value expression. Expression evaluation is out of
// scope; the raw text is carried for consumers that need it.
type FeatureValue struct {
	Expression string
	IsDefault  bool
	IsInitial  bool
}

// Multiplicity bounds a feature. Upper -1 means unbounded.
type Multiplicity struct {
	Lower int
	Upper int
}

// Feature is a typed member of a type: it is itself a type (features own
// heritage and nested features) with direction, multiplicity and the usual
// modifier flags on top.
type Feature struct {
	Type
	direction Direction

	Composite bool
	Derived   bool
	Readonly  bool
	End       bool
	Portion   bool
	Ordered   bool
	NonUnique bool

	value        *FeatureValue
	multiplicity *Multiplicity
}

// NewFeature creates a feature element. An empty name is legal: unnamed
// redefining features inherit the redefined feature's name.
func NewFeature(doc *Document, name string) *Feature {
	f := &Feature{}
	f.init(f, doc, KindFeature, name)
	return f
}

// Name returns the declared name, or for an unnamed redefining feature the
// effective name inherited from the first resolved redefined feature.
func (f *Feature) Name() string {
	if f.name != "" {
		return f.name
	}
	return f.redefinedName(map[*Feature]struct{}{f: {}})
}

func (f *Feature) redefinedName(visited map[*Feature]struct{}) string {
	for _, e := range f.Specializations(KindRedefinition) {
		tgt, ok := e.FinalTarget().(*Feature)
		if !ok {
			continue
		}
		if _, seen := visited[tgt]; seen {
			continue
		}
		visited[tgt] = struct{}{}
		if tgt.name != "" {
			return tgt.name
		}
		if n := tgt.redefinedName(visited); n != "" {
			return n
		}
	}
	return ""
}

// Direction returns the feature's declared direction.
func (f *Feature) Direction() Direction { return f.direction }

// SetDirection assigns the declared direction.
func (f *Feature) SetDirection(d Direction) { f.direction = d }

// Value returns the bound feature value, nil when unbound.
func (f *Feature) Value() *FeatureValue { return f.value }

// SetValue binds a value to the feature.
func (f *Feature) SetValue(v *FeatureValue) { f.value = v }

// FeatureMultiplicity returns the declared multiplicity, nil when absent.
func (f *Feature) FeatureMultiplicity() *Multiplicity { return f.multiplicity }

// SetMultiplicity assigns the declared multiplicity.
func (f *Feature) SetMultiplicity(m *Multiplicity) { f.multiplicity = m }

// OwningType returns the type this feature is a member of, nil for
// free-standing features.
func (f *Feature) OwningType() *Type {
	if tl, ok := OwningNamespace(f).(TypeLike); ok {
		return tl.TypeNode()
	}
	return nil
}

// DirectionOf resolves f's effective direction as seen from this type: the
// declared direction when f is owned here, flipped across a conjugation
// boundary, otherwise the first non-none direction found walking direct
// supertypes. Cycle-guarded; the guard is populated before recursing so
// mutually conjugated types terminate.
func (t *Type) DirectionOf(f *Feature) Direction {
	return t.directionOf(f, make(map[*Type]struct{}))
}

func (t *Type) directionOf(f *Feature, visited map[*Type]struct{}) Direction {
	if _, seen := visited[t]; seen {
		return DirectionNone
	}
	visited[t] = struct{}{}

	if f.OwningType() == t {
		return f.Direction()
	}
	if conj := t.Conjugator(); conj != nil {
		if orig := conj.TargetType(); orig != nil {
			return orig.TypeNode().directionOf(f, visited).flip()
		}
		return DirectionNone
	}
	for _, e := range t.Specializations(KindInvalid) {
		tgt := e.TargetType()
		if tgt == nil {
			continue
		}
		if d := tgt.TypeNode().directionOf(f, visited); d != DirectionNone {
			return d
		}
	}
	return DirectionNone
}

// FeaturesOf returns the features owned by a namespace through its
// memberships, in declaration order.
func FeaturesOf(ns Namespace) []*Feature {
	var out []*Feature
	for _, m := range ns.Memberships() {
		if f, ok := m.Element().(*Feature); ok && !m.IsAlias() {
			out = append(out, f)
		}
	}
	return out
}
