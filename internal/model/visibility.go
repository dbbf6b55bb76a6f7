package model

// Visibility controls who may see a member through scope resolution.
// The ordinal ordering matters: filtering admits members whose visibility
// is at most a ceiling, so Public < Protected < Private.
type Visibility int

const (
	VisibilityPublic Visibility = iota
	VisibilityProtected
	VisibilityPrivate
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPublic:
		return "public"
	case VisibilityProtected:
		return "protected"
	case VisibilityPrivate:
		return "private"
	}
	return "public"
}

// VisibilityByName parses a visibility keyword, defaulting to public.
func VisibilityByName(name string) Visibility {
	switch name {
	case "protected":
		return VisibilityProtected
	case "private":
		return VisibilityPrivate
	}
	return VisibilityPublic
}
