package trellis

import (
	"github.com/jward/trellis/internal/model"
	"github.com/jward/trellis/internal/store"
)

// Public type aliases for internal model types used in the QueryBuilder API.
// These are Go type aliases (=) — identical to the internal types at compile
// time. External consumers use these names; no conversion is needed.

type Element = model.Element
type Namespace = model.Namespace
type TypeLike = model.TypeLike
type Feature = model.Feature
type Membership = model.Membership
type Diagnostic = model.Diagnostic
type Kind = model.Kind
type Visibility = model.Visibility
type ID = model.ID
type Store = store.Store
