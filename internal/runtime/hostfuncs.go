package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/jward/trellis"
)

// elementMap converts an element into the map shape scripts consume.
func elementMap(el trellis.Element) *object.Map {
	return object.NewMap(map[string]object.Object{
		"name":           object.NewString(el.Name()),
		"short_name":     object.NewString(el.ShortName()),
		"qualified_name": object.NewString(el.QualifiedName()),
		"kind":           object.NewString(el.Kind().String()),
		"visibility":     object.NewString(el.Visibility().String()),
		"library":        object.NewBool(el.IsLibrary()),
	})
}

func stringArg(fn string, args []object.Object, i int, name string) (string, object.Object) {
	s, ok := args[i].(*object.String)
	if !ok {
		return "", object.Errorf("%s: %s must be a string, got %s", fn, name, args[i].Type())
	}
	return s.Value(), nil
}

// makeElementFn creates the "element" host function.
//
// element(qualified_name) → map or error
func makeElementFn(q *trellis.QueryBuilder) *object.Builtin {
	return object.NewBuiltin("element", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("element", 1, len(args))
		}
		name, errObj := stringArg("element", args, 0, "qualified_name")
		if errObj != nil {
			return errObj
		}
		el, err := q.Element(name)
		if err != nil {
			return object.Errorf("element: %v", err)
		}
		return elementMap(el)
	})
}

// makeConformsFn creates the "conforms" host function.
//
// conforms(qualified_name, super_name) → bool
func makeConformsFn(q *trellis.QueryBuilder) *object.Builtin {
	return object.NewBuiltin("conforms", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("conforms", 2, len(args))
		}
		name, errObj := stringArg("conforms", args, 0, "qualified_name")
		if errObj != nil {
			return errObj
		}
		super, errObj := stringArg("conforms", args, 1, "super_name")
		if errObj != nil {
			return errObj
		}
		ok, err := q.Conforms(name, super)
		if err != nil {
			return object.Errorf("conforms: %v", err)
		}
		return object.NewBool(ok)
	})
}

// makeSpecializesFn creates the "specializes" host function.
//
// specializes(qualified_name, super_name) → bool
func makeSpecializesFn(q *trellis.QueryBuilder) *object.Builtin {
	return object.NewBuiltin("specializes", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("specializes", 2, len(args))
		}
		name, errObj := stringArg("specializes", args, 0, "qualified_name")
		if errObj != nil {
			return errObj
		}
		super, errObj := stringArg("specializes", args, 1, "super_name")
		if errObj != nil {
			return errObj
		}
		ok, err := q.Specializes(name, super)
		if err != nil {
			return object.Errorf("specializes: %v", err)
		}
		return object.NewBool(ok)
	})
}

// makeFirstConformingFn creates the "first_conforming" host function.
//
// first_conforming(qualified_name, [candidates]) → string ("" when none)
func makeFirstConformingFn(q *trellis.QueryBuilder) *object.Builtin {
	return object.NewBuiltin("first_conforming", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("first_conforming", 2, len(args))
		}
		name, errObj := stringArg("first_conforming", args, 0, "qualified_name")
		if errObj != nil {
			return errObj
		}
		list, ok := args[1].(*object.List)
		if !ok {
			return object.Errorf("first_conforming: candidates must be a list, got %s", args[1].Type())
		}
		var candidates []string
		for _, item := range list.Value() {
			s, ok := item.(*object.String)
			if !ok {
				return object.Errorf("first_conforming: candidates must be strings, got %s", item.Type())
			}
			candidates = append(candidates, s.Value())
		}
		found, err := q.FirstConforming(name, candidates)
		if err != nil {
			return object.Errorf("first_conforming: %v", err)
		}
		return object.NewString(found)
	})
}

// makeMembersFn creates the "members" host function.
//
// members(qualified_name) → []map
func makeMembersFn(q *trellis.QueryBuilder) *object.Builtin {
	return object.NewBuiltin("members", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("members", 1, len(args))
		}
		name, errObj := stringArg("members", args, 0, "qualified_name")
		if errObj != nil {
			return errObj
		}
		members, err := q.Members(name)
		if err != nil {
			return object.Errorf("members: %v", err)
		}
		results := make([]object.Object, 0, len(members))
		for _, m := range members {
			results = append(results, object.NewMap(map[string]object.Object{
				"name":           object.NewString(m.Name),
				"qualified_name": object.NewString(m.QualifiedName),
				"kind":           object.NewString(m.Kind),
				"visibility":     object.NewString(m.Visibility),
			}))
		}
		return object.NewList(results)
	})
}

// makeResolveFn creates the "resolve" host function.
//
// resolve(context_name, name) → map or error
func makeResolveFn(q *trellis.QueryBuilder) *object.Builtin {
	return object.NewBuiltin("resolve", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("resolve", 2, len(args))
		}
		contextName, errObj := stringArg("resolve", args, 0, "context_name")
		if errObj != nil {
			return errObj
		}
		name, errObj := stringArg("resolve", args, 1, "name")
		if errObj != nil {
			return errObj
		}
		el, err := q.Resolve(contextName, name)
		if err != nil {
			return object.Errorf("resolve: %v", err)
		}
		return elementMap(el)
	})
}

// makeDiagnosticsFn creates the "diagnostics" host function.
//
// diagnostics() → []map
func makeDiagnosticsFn(q *trellis.QueryBuilder) *object.Builtin {
	return object.NewBuiltin("diagnostics", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("diagnostics", 0, len(args))
		}
		var results []object.Object
		for _, d := range q.Diagnostics() {
			var elemName string
			if d.Element != nil {
				elemName = d.Element.QualifiedName()
			}
			results = append(results, object.NewMap(map[string]object.Object{
				"message":  object.NewString(d.Message),
				"element":  object.NewString(elemName),
				"property": object.NewString(d.Property),
			}))
		}
		if results == nil {
			results = []object.Object{}
		}
		return object.NewList(results)
	})
}

// makeDocumentsFn creates the "documents" host function.
//
// documents() → []map
func makeDocumentsFn(q *trellis.QueryBuilder) *object.Builtin {
	return object.NewBuiltin("documents", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("documents", 0, len(args))
		}
		var results []object.Object
		for _, d := range q.Documents() {
			results = append(results, object.NewMap(map[string]object.Object{
				"uri":      object.NewString(d.URI),
				"language": object.NewString(d.Language),
				"library":  object.NewBool(d.Library),
			}))
		}
		if results == nil {
			results = []object.Object{}
		}
		return object.NewList(results)
	})
}

// logObject provides log.info/warn/error methods for Risor scripts.
type logObject struct {
	prefix string
}

func (l *logObject) Info(msg string) {
	fmt.Printf("[%s] INFO: %s\n", l.prefix, msg)
}

func (l *logObject) Warn(msg string) {
	fmt.Printf("[%s] WARN: %s\n", l.prefix, msg)
}

func (l *logObject) Error(msg string) {
	fmt.Printf("[%s] ERROR: %s\n", l.prefix, msg)
}
