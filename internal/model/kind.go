package model

// Kind identifies the grammatical kind of a model element. The set is closed:
// dispatch over kinds is always an explicit switch or table lookup, never
// reflection.
type Kind uint8

const (
	KindInvalid Kind = iota

	// Abstract kinds. Never instantiated directly; they exist so that
	// expected-kind checks ("a type reference must resolve to a type") can
	// be expressed against the kind hierarchy.
	KindElement
	KindRelationship
	KindNamespace
	KindType
	KindClassifier
	KindInheritance

	// Concrete element kinds.
	KindPackage
	KindClass
	KindStructure
	KindDataType
	KindAssociation
	KindAssociationStructure
	KindFeature

	// Concrete relationship kinds.
	KindMembership
	KindImport
	KindSpecialization
	KindSubclassification
	KindSubsetting
	KindRedefinition
	KindFeatureTyping
	KindConjugation
)

// kindParent records the direct supertype of each kind. KindElement is the
// root and has no entry.
var kindParent = map[Kind]Kind{
	KindRelationship: KindElement,
	KindNamespace:    KindElement,
	KindType:         KindNamespace,
	KindClassifier:   KindType,
	KindInheritance:  KindRelationship,

	KindPackage:              KindNamespace,
	KindClass:                KindClassifier,
	KindStructure:            KindClass,
	KindDataType:             KindClassifier,
	KindAssociation:          KindClassifier,
	KindAssociationStructure: KindAssociation,
	KindFeature:              KindType,

	KindMembership:        KindRelationship,
	KindImport:            KindRelationship,
	KindSpecialization:    KindInheritance,
	KindSubclassification: KindSpecialization,
	KindSubsetting:        KindSpecialization,
	KindRedefinition:      KindSubsetting,
	KindFeatureTyping:     KindSpecialization,
	KindConjugation:       KindInheritance,
}

var kindNames = map[Kind]string{
	KindInvalid:              "invalid",
	KindElement:              "element",
	KindRelationship:         "relationship",
	KindNamespace:            "namespace",
	KindType:                 "type",
	KindClassifier:           "classifier",
	KindInheritance:          "inheritance",
	KindPackage:              "package",
	KindClass:                "class",
	KindStructure:            "struct",
	KindDataType:             "datatype",
	KindAssociation:          "assoc",
	KindAssociationStructure: "assoc struct",
	KindFeature:              "feature",
	KindMembership:           "membership",
	KindImport:               "import",
	KindSpecialization:       "specialization",
	KindSubclassification:    "subclassification",
	KindSubsetting:           "subsetting",
	KindRedefinition:         "redefinition",
	KindFeatureTyping:        "feature typing",
	KindConjugation:          "conjugation",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "invalid"
}

// IsA reports whether k is other or a transitive subtype of other in the
// kind hierarchy.
func (k Kind) IsA(other Kind) bool {
	if other == KindElement {
		return k != KindInvalid
	}
	for cur := k; cur != KindInvalid; cur = kindParent[cur] {
		if cur == other {
			return true
		}
		if _, ok := kindParent[cur]; !ok {
			return false
		}
	}
	return false
}

// KindByName maps the textual kind name back to a Kind. Used by the store
// layer when rehydrating persisted elements.
func KindByName(name string) Kind {
	for k, s := range kindNames {
		if s == name {
			return k
		}
	}
	return KindInvalid
}

// isSpecializationKind reports whether a heritage edge of kind k contributes
// to the transitive specialization graph. Conjugation is heritage but not
// specialization: a conjugate does not conform to its original through the
// conjugation edge alone.
func isSpecializationKind(k Kind) bool {
	return k.IsA(KindSpecialization)
}

// isSupertypeKind reports whether a heritage edge of kind k establishes a
// supertype relation for Specializes. Subsetting relates features without
// making the subsetted feature a supertype, so it is excluded; redefinition
// is kept because a redefining feature specializes what it redefines.
func isSupertypeKind(k Kind) bool {
	if k == KindSubsetting {
		return false
	}
	return k.IsA(KindSpecialization)
}
