// Package trellis provides semantic analysis for a family of textual
// modeling languages: a typed element model, a lazily evaluated scope
// system, and a qualified-name linker, for the kernel (.kerml) and systems
// (.sysml) notations.
//
// # Pipeline
//
// Trellis operates in four phases per Build:
//
//  1. Parse: each changed document's source becomes a syntax tree.
//  2. Construct: the syntax tree becomes a model document — namespaces,
//     types, features, memberships, imports and heritage edges carrying
//     unresolved name references.
//  3. Collect: the document's public root members enter the global scope,
//     the cross-document name index.
//  4. Link: every reference in the workspace resolves through the scope
//     system — local members, then inherited and imported content, then
//     enclosing namespaces, then the global scope. Failures become
//     diagnostics, never errors.
//
// # Usage
//
// Create an Engine, load documents, build, and query:
//
//	e, err := trellis.New()
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IndexDirectory(ctx, "path/to/models")
//
//	q := e.Query()
//	ok, err := q.Conforms("Vehicle::Engine", "Base::Anything")
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] provides:
//
//   - [QueryBuilder.Element] — find an element by qualified name.
//   - [QueryBuilder.Conforms] — transitive heritage membership, including self.
//   - [QueryBuilder.Specializes] — supertype-only heritage, conjugation-aware.
//   - [QueryBuilder.FirstConforming] — first matching candidate in traversal order.
//   - [QueryBuilder.Members] — visible members: owned, inherited, imported.
//   - [QueryBuilder.Resolve] — resolve a name exactly as the linker would.
//   - [QueryBuilder.Diagnostics] — parse, build and linking problems.
//
// # Standard library
//
// An embedded kernel library ships in the binary. Every classifier without
// declared heritage implicitly subclassifies Base::Anything (data types:
// Base::DataValue, associations: Links::Link) and every bare feature
// subsets Base::things. Disable with [WithStandardLibrary].
//
// # Persistence
//
// With [WithStore], [Engine.Persist] writes the linked model to SQLite for
// offline querying via the trellis CLI.
package trellis
