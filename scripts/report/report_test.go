package report_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jward/trellis"
	"github.com/jward/trellis/internal/runtime"
)

// scriptDir returns the absolute path to the scripts/report/ directory,
// whether the test runs from the package dir or the module root.
func scriptDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs(".")
	require.NoError(t, err)
	if _, err := os.Stat(filepath.Join(dir, "summary.risor")); err == nil {
		return dir
	}
	return filepath.Join(findModuleRoot(t), "scripts", "report")
}

func findModuleRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find module root")
		}
		dir = parent
	}
}

func newTestRuntime(t *testing.T) *runtime.Runtime {
	t.Helper()
	dir := t.TempDir()
	source := `package Measurements {
	datatype Mass;
	datatype Torque :> Mass;
	class Engine;
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "measurements.kerml"), []byte(source), 0o644))

	engine, err := trellis.New()
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	require.NoError(t, engine.IndexDirectory(context.Background(), dir))

	return runtime.NewRuntime(engine.Query(), scriptDir(t))
}

func TestSummaryScript(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)
	err := rt.RunScript(context.Background(), "summary.risor", nil)
	require.NoError(t, err)
}

func TestConformanceScript(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)
	err := rt.RunScript(context.Background(), "conformance.risor", map[string]any{
		"root": "Measurements",
	})
	require.NoError(t, err)
}

func TestConformanceScriptMissingRoot(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)
	err := rt.RunScript(context.Background(), "conformance.risor", map[string]any{
		"root": "NoSuchPackage",
	})
	require.Error(t, err)
}
