package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/where2work/internal/diff"
)

// RunFunc is called each time the watcher triggers a re-render.
type RunFunc func(ctx context.Context) (*RunResult, error)

// RunResult summarises one render for the status line.
type RunResult struct {
	Entities   int
	Shortlist  int
	Pool       int
	OutputPath string
	// Changes lists companies that moved since the previous run.
	Changes diff.Summary
}

// Options configures the watch behaviour.
type Options struct {
	// Files are the files to watch. Their parent directories are watched so
	// that files replaced by rename are still seen.
	Files []string

	// Debounce is the quiet period before triggering a re-render.
	Debounce time.Duration

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status messages.
	Out io.Writer
}

// DefaultOptions returns the default watch options.
func DefaultOptions() Options {
	return Options{
		Debounce: 500 * time.Millisecond,
		Logger:   slog.Default(),
		Out:      os.Stderr,
	}
}

// Run starts the file watcher and blocks until the context is cancelled
// or a SIGINT/SIGTERM signal is received. Runs never overlap.
func Run(ctx context.Context, opts Options, runFn RunFunc) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	if len(opts.Files) == 0 {
		return fmt.Errorf("no files to watch")
	}

	targets, dirs, err := resolveTargets(opts.Files)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching directory %q: %w", dir, err)
		}
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, _ = fmt.Fprintf(opts.Out, "watching %s (debounce=%s)\n", strings.Join(opts.Files, ", "), opts.Debounce)

	var runMu sync.Mutex

	run := func(trigger string) {
		runMu.Lock()
		defer runMu.Unlock()

		doRun(sigCtx, opts, runFn, trigger)
	}

	run("(initial)")

	debouncer := NewDebouncer(opts.Debounce, func(paths []string) {
		run(strings.Join(paths, ", "))
	})
	defer debouncer.Stop()

	for {
		select {
		case <-sigCtx.Done():
			_, _ = fmt.Fprintln(opts.Out, "\nshutting down watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !isRelevant(event, targets) {
				continue
			}

			opts.Logger.Debug("input changed", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			debouncer.Trigger(event.Name)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			opts.Logger.Error("watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// doRun executes a single render and prints the status line.
func doRun(ctx context.Context, opts Options, runFn RunFunc, trigger string) {
	now := time.Now().Format("15:04:05")

	result, err := runFn(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Out, "[%s] %s → ERROR: %v\n", now, trigger, err)
		return
	}

	_, _ = fmt.Fprintf(opts.Out, "[%s] %s → OK (%d entities, %d shortlisted, %d in pool)\n",
		now, trigger, result.Entities, result.Shortlist, result.Pool)

	if result.OutputPath != "" {
		_, _ = fmt.Fprintf(opts.Out, "  wrote %s\n", result.OutputPath)
	}

	if !result.Changes.IsZero() {
		diff.WriteSummary(indent{opts.Out}, result.Changes)
	}
}

// indent prefixes every write with two spaces. WriteSummary writes one
// line per call.
type indent struct{ w io.Writer }

func (i indent) Write(p []byte) (int, error) {
	if _, err := io.WriteString(i.w, "  "); err != nil {
		return 0, err
	}

	return i.w.Write(p)
}

// resolveTargets returns the absolute paths of files and their distinct
// parent directories.
func resolveTargets(files []string) (map[string]bool, []string, error) {
	targets := make(map[string]bool, len(files))
	seen := make(map[string]bool)

	var dirs []string

	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, nil, fmt.Errorf("resolving %q: %w", f, err)
		}

		if _, err := os.Stat(abs); err != nil {
			return nil, nil, fmt.Errorf("watching %q: %w", f, err)
		}

		targets[abs] = true

		dir := filepath.Dir(abs)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	return targets, dirs, nil
}

// isRelevant reports whether event touches one of the watched files.
func isRelevant(event fsnotify.Event, targets map[string]bool) bool {
	if event.Op == 0 {
		return false
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}

	return targets[abs]
}
