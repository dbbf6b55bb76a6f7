package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jward/trellis"
	"github.com/jward/trellis/internal/runtime"
	"github.com/spf13/cobra"
)

var (
	flagDB     string
	flagFormat string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "trellis",
	Short:         "Semantic analysis for textual modeling languages",
	Long:          "Trellis parses kernel (.kerml) and systems (.sysml) model documents, links qualified names across documents, and answers conformance and scope queries.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .trellis/index.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(scriptCmd)
}

var (
	flagLanguages string
	flagNoStdlib  bool
)

func init() {
	for _, cmd := range []*cobra.Command{checkCmd, indexCmd, queryCmd, watchCmd, scriptCmd} {
		cmd.PersistentFlags().StringVar(&flagLanguages, "languages", "", "comma-separated language filter (e.g. kernel,systems)")
		cmd.PersistentFlags().BoolVar(&flagNoStdlib, "no-stdlib", false, "disable the embedded standard library and implicit supertypes")
	}
}

// buildEngine creates an Engine from the shared flags and loads targetDir.
func buildEngine(ctx context.Context, targetDir string, extra ...trellis.Option) (*trellis.Engine, error) {
	opts := extra
	if flagLanguages != "" {
		langs := strings.Split(flagLanguages, ",")
		for i := range langs {
			langs[i] = strings.TrimSpace(langs[i])
		}
		opts = append(opts, trellis.WithLanguages(langs...))
	}
	if flagNoStdlib {
		opts = append(opts, trellis.WithStandardLibrary(false))
	}

	engine, err := trellis.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	if err := engine.IndexDirectory(ctx, targetDir); err != nil {
		engine.Close()
		return nil, fmt.Errorf("indexing: %w", err)
	}
	return engine, nil
}

var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Parse, build and link model documents, reporting diagnostics",
	Long:  "Loads all model documents under the given path, links every qualified name, and prints diagnostics. Exits nonzero when any diagnostic is present.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	engine, err := buildEngine(ctx, targetDir)
	if err != nil {
		return err
	}
	defer engine.Close()

	diags := engine.Diagnostics()
	outputDiagnostics(os.Stdout, diags)
	if len(diags) > 0 {
		errorHandled = true
		return fmt.Errorf("%d problem(s)", len(diags))
	}
	return nil
}

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index model documents into a SQLite database",
	Long:  "Parses and links all model documents under the given path and persists the linked model to the SQLite database for offline queries.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}

	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(repoRoot)

	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dbDir, err)
	}

	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	ctx := context.Background()
	engine, err := buildEngine(ctx, targetDir, trellis.WithStore(dbPath))
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.Persist(ctx); err != nil {
		return fmt.Errorf("persisting: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Indexed %s in %s (%d documents, %d diagnostics)\n",
		targetDir,
		time.Since(start).Round(time.Millisecond),
		len(engine.Documents()),
		len(engine.Diagnostics()),
	)
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)

	return nil
}

var scriptCmd = &cobra.Command{
	Use:   "script <file.risor> [path]",
	Short: "Run a Risor script against the linked model",
	Long:  "Loads model documents under path (default .), links them, and executes the script with query host functions: element, conforms, specializes, first_conforming, members, resolve, diagnostics, documents, log.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runScript,
}

func runScript(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir(args[1:])
	if err != nil {
		return err
	}

	ctx := context.Background()
	engine, err := buildEngine(ctx, targetDir)
	if err != nil {
		return err
	}
	defer engine.Close()

	scriptPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving script path %q: %w", args[0], err)
	}

	rt := runtime.NewRuntime(engine.Query(), filepath.Dir(scriptPath))
	return rt.RunScript(ctx, scriptPath, nil)
}

// resolveTargetDir returns the absolute path of the directory to load.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return filepath.Join(repoRoot, ".trellis", "index.db")
}
