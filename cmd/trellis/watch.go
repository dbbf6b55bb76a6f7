package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jward/trellis"
	"github.com/spf13/cobra"
)

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a directory and rebuild on changes",
	Long:  "Load and link all model documents under path, then watch for file changes and incrementally rebuild, printing diagnostics after each build.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", 250*time.Millisecond, "time to wait after a change before rebuilding")
}

func runWatch(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := buildEngine(ctx, targetDir)
	if err != nil {
		return err
	}
	defer engine.Close()

	printBuildReport(engine)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchRecursive(watcher, targetDir); err != nil {
		return fmt.Errorf("watching %s: %w", targetDir, err)
	}

	fmt.Fprintf(os.Stderr, "trellis: watching %s\n", targetDir)

	var (
		mu      sync.Mutex
		pending = map[string]bool{}
		timer   *time.Timer
	)

	flush := func() {
		mu.Lock()
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		pending = map[string]bool{}
		mu.Unlock()
		sort.Strings(paths)
		rebuild(ctx, engine, paths)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				// New directories need their own watch.
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addWatchRecursive(watcher, event.Name)
					continue
				}
			}
			if _, ok := trellis.LanguageForFile(event.Name); !ok {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			mu.Lock()
			pending[event.Name] = true
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(flagDebounce, flush)
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "trellis: watch error: %v\n", err)
		}
	}
}

// addWatchRecursive adds path and every directory beneath it to the watcher,
// skipping hidden directories.
func addWatchRecursive(watcher *fsnotify.Watcher, path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if p != path && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		return watcher.Add(p)
	})
}

// rebuild applies the changed paths to the engine and relinks.
func rebuild(ctx context.Context, engine *trellis.Engine, paths []string) {
	start := time.Now()
	for _, path := range paths {
		lang, ok := trellis.LanguageForFile(path)
		if !ok {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			// Removed or renamed away.
			engine.RemoveDocument(path)
			continue
		}
		engine.UpsertDocument(path, lang, string(content))
	}
	if err := engine.Build(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "trellis: build: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "trellis: rebuilt %d file(s) in %s\n", len(paths), time.Since(start).Round(time.Millisecond))
	printBuildReport(engine)
}

// printBuildReport prints current diagnostics, or a clean line if there are
// none.
func printBuildReport(engine *trellis.Engine) {
	diags := engine.Diagnostics()
	if len(diags) == 0 {
		fmt.Fprintf(os.Stderr, "trellis: no problems\n")
		return
	}
	outputDiagnostics(os.Stdout, diags)
}
