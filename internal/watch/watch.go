// Package watch re-runs a transform whenever its input files change.
//
// Change events are batched on a quiet-period timer, so one editor save
// that touches several files triggers one re-run, not several.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/kgraph-dev/biograph/internal/source"
)

// DefaultQuietPeriod is the debounce window between the last change event
// and the triggered re-run.
const DefaultQuietPeriod = 2 * time.Second

// Options configures a watch loop.
type Options struct {
	// Extensions restricts which changed files trigger a run; empty
	// triggers on everything.
	Extensions []string

	// QuietPeriod overrides the debounce window; zero means
	// DefaultQuietPeriod.
	QuietPeriod time.Duration

	// Logger receives watch diagnostics. Defaults to logr.Discard.
	Logger logr.Logger
}

// Run watches the given locations (files or directories) and invokes
// onChange with the batch of changed paths after each quiet period.
// Blocks until the context is cancelled; a failing onChange is logged and
// the loop keeps going.
func Run(ctx context.Context, locations []string, opts Options, onChange func(changed []string) error) error {
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	quiet := opts.QuietPeriod
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	defer watcher.Close()

	matchers := make(map[string]gitignore.Matcher)
	for _, loc := range locations {
		info, err := os.Stat(loc)
		if err != nil {
			return errors.Wrapf(err, "accessing %s", loc)
		}
		if !info.IsDir() {
			// Watch the parent: editors replace files instead of
			// writing in place, which drops the watch on the inode.
			if err := watcher.Add(filepath.Dir(loc)); err != nil {
				return errors.Wrapf(err, "watching %s", loc)
			}
			continue
		}
		matchers[loc] = source.IgnoreMatcher(loc)
		err = filepath.Walk(loc, func(path string, fi os.FileInfo, werr error) error {
			if werr != nil {
				return werr
			}
			if !fi.IsDir() {
				return nil
			}
			if ignoredDir(loc, path, matchers[loc]) {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		})
		if err != nil {
			return errors.Wrapf(err, "watching %s", loc)
		}
	}

	changed := make(map[string]bool)
	timer := time.NewTimer(quiet)
	timer.Stop()

	log.Info("watching for changes", "locations", locations)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !relevant(event.Name, locations, opts.Extensions, matchers) {
				continue
			}
			changed[event.Name] = true
			timer.Reset(quiet)

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(werr, "watch error")

		case <-timer.C:
			if len(changed) == 0 {
				continue
			}
			batch := make([]string, 0, len(changed))
			for p := range changed {
				batch = append(batch, p)
			}
			changed = make(map[string]bool)

			log.Info("inputs changed", "files", len(batch))
			if err := onChange(batch); err != nil {
				log.Error(err, "re-run failed")
			}
		}
	}
}

// relevant reports whether a change event concerns one of the watched
// inputs.
func relevant(path string, locations, extensions []string, matchers map[string]gitignore.Matcher) bool {
	for _, loc := range locations {
		if path == loc {
			return true
		}
		rel, err := filepath.Rel(loc, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if m := matchers[loc]; m != nil {
			parts := strings.Split(rel, string(filepath.Separator))
			if m.Match(parts, false) {
				return false
			}
		}
		if len(extensions) == 0 || source.MatchesExtension(path, extensions) {
			return true
		}
	}
	return false
}

func ignoredDir(root, path string, matcher gitignore.Matcher) bool {
	base := filepath.Base(path)
	if base != "." && strings.HasPrefix(base, ".") && path != root {
		return true
	}
	if matcher == nil || path == root {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	return matcher.Match(parts, true)
}
