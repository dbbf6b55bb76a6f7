package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jward/trellis"
	"github.com/jward/trellis/internal/store"
	"github.com/spf13/cobra"
)

var flagPath string

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the linked model",
	Long:  "Run conformance, member and resolution queries against model documents. Most subcommands load and link documents under --path; the stored-* subcommands read a database written by 'trellis index'.",
}

func init() {
	queryCmd.PersistentFlags().StringVar(&flagPath, "path", ".", "directory of model documents to load")

	queryCmd.AddCommand(elementCmd)
	queryCmd.AddCommand(membersCmd)
	queryCmd.AddCommand(conformsCmd)
	queryCmd.AddCommand(specializesCmd)
	queryCmd.AddCommand(firstConformingCmd)
	queryCmd.AddCommand(resolveCmd)
	queryCmd.AddCommand(documentsCmd)
	queryCmd.AddCommand(storedElementsCmd)
	queryCmd.AddCommand(storedDocumentsCmd)
	queryCmd.AddCommand(unresolvedCmd)
}

// withQuery loads the workspace under --path and hands the QueryBuilder to fn.
func withQuery(fn func(q *trellis.QueryBuilder) error) error {
	ctx := context.Background()
	engine, err := buildEngine(ctx, flagPath)
	if err != nil {
		return err
	}
	defer engine.Close()
	return fn(engine.Query())
}

var elementCmd = &cobra.Command{
	Use:   "element <qualified-name>",
	Short: "Find an element by qualified name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery(func(q *trellis.QueryBuilder) error {
			el, err := q.Element(args[0])
			if err != nil {
				return outputError("element", err)
			}
			return outputResult("element", cliElement(el))
		})
	},
}

var membersCmd = &cobra.Command{
	Use:   "members <qualified-name>",
	Short: "List the visible members of a namespace: owned, inherited, imported",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery(func(q *trellis.QueryBuilder) error {
			members, err := q.Members(args[0])
			if err != nil {
				return outputError("members", err)
			}
			out := make([]CLIMember, 0, len(members))
			for _, m := range members {
				out = append(out, CLIMember{
					Name:          m.Name,
					QualifiedName: m.QualifiedName,
					Kind:          m.Kind,
					Visibility:    m.Visibility,
				})
			}
			return outputResult("members", out)
		})
	},
}

var conformsCmd = &cobra.Command{
	Use:   "conforms <qualified-name> <super-name>",
	Short: "Test whether a type's transitive heritage contains another type",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery(func(q *trellis.QueryBuilder) error {
			ok, err := q.Conforms(args[0], args[1])
			if err != nil {
				return outputError("conforms", err)
			}
			return outputResult("conforms", CLIBool{Value: ok})
		})
	},
}

var specializesCmd = &cobra.Command{
	Use:   "specializes <qualified-name> <super-name>",
	Short: "Test supertype-forming heritage, unwrapping conjugation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery(func(q *trellis.QueryBuilder) error {
			ok, err := q.Specializes(args[0], args[1])
			if err != nil {
				return outputError("specializes", err)
			}
			return outputResult("specializes", CLIBool{Value: ok})
		})
	},
}

var firstConformingCmd = &cobra.Command{
	Use:   "first-conforming <qualified-name> <candidate>...",
	Short: "First candidate found walking the heritage in traversal order",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery(func(q *trellis.QueryBuilder) error {
			found, err := q.FirstConforming(args[0], args[1:])
			if err != nil {
				return outputError("first-conforming", err)
			}
			return outputResult("first-conforming", found)
		})
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <context-name> <name>",
	Short: "Resolve a name exactly as the linker would at the given element",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery(func(q *trellis.QueryBuilder) error {
			el, err := q.Resolve(args[0], args[1])
			if err != nil {
				return outputError("resolve", err)
			}
			return outputResult("resolve", cliElement(el))
		})
	},
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List loaded documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery(func(q *trellis.QueryBuilder) error {
			var out []CLIDocument
			for _, d := range q.Documents() {
				out = append(out, CLIDocument{URI: d.URI, Language: d.Language, Library: d.Library})
			}
			return outputResult("documents", out)
		})
	},
}

// --- Stored queries (read the database written by 'trellis index') ---

// openStore opens the Store from the --db flag path (or default).
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	repoRoot := findRepoRoot(cwd)
	dbPath := resolveDBPath(repoRoot)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'trellis index' first)", dbPath)
	}

	return store.NewStore(dbPath)
}

var (
	flagName string
	flagKind string
)

var storedElementsCmd = &cobra.Command{
	Use:   "stored-elements",
	Short: "List persisted elements by name or kind",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return outputError("stored-elements", err)
		}
		defer s.Close()

		var rows []*store.Element
		switch {
		case flagName != "":
			rows, err = s.ElementsByName(flagName)
		case flagKind != "":
			rows, err = s.ElementsByKind(flagKind)
		default:
			return outputError("stored-elements", fmt.Errorf("requires --name or --kind"))
		}
		if err != nil {
			return outputError("stored-elements", err)
		}

		out := make([]CLIElement, 0, len(rows))
		for _, row := range rows {
			out = append(out, CLIElement{
				Name:          row.Name,
				ShortName:     row.ShortName,
				QualifiedName: row.QualifiedName,
				Kind:          row.Kind,
				Visibility:    row.Visibility,
			})
		}
		return outputResult("stored-elements", out)
	},
}

func init() {
	storedElementsCmd.Flags().StringVar(&flagName, "name", "", "filter by declared name")
	storedElementsCmd.Flags().StringVar(&flagKind, "kind", "", "filter by kind (e.g. class, feature)")
}

var storedDocumentsCmd = &cobra.Command{
	Use:   "stored-documents",
	Short: "List persisted documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return outputError("stored-documents", err)
		}
		defer s.Close()

		docs, err := s.Documents()
		if err != nil {
			return outputError("stored-documents", err)
		}
		out := make([]CLIDocument, 0, len(docs))
		for _, d := range docs {
			out = append(out, CLIDocument{URI: d.URI, Language: d.Language, Library: d.Library})
		}
		return outputResult("stored-documents", out)
	},
}

var unresolvedCmd = &cobra.Command{
	Use:   "unresolved",
	Short: "List persisted references that failed to link",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return outputError("unresolved", err)
		}
		defer s.Close()

		rows, err := s.UnresolvedReferences()
		if err != nil {
			return outputError("unresolved", err)
		}
		out := make([]CLIElement, 0, len(rows))
		for _, row := range rows {
			out = append(out, CLIElement{
				Name:          row.ReferenceText,
				QualifiedName: row.QualifiedName,
				Kind:          row.Kind,
				Visibility:    row.Visibility,
			})
		}
		return outputResult("unresolved", out)
	},
}
