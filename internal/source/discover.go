package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// IgnoreFile is the optional per-directory ignore list honored when a
// directory is given as an input location. Same syntax as .gitignore.
const IgnoreFile = ".biographignore"

// DiscoverInputs expands input locations: files pass through, directories
// are walked for files matching the given extensions (e.g. ".tsv", ".jsonl",
// plus their .gz forms), honoring IgnoreFile patterns. The result is sorted
// for deterministic load order.
func DiscoverInputs(locations []string, extensions []string) ([]string, error) {
	var inputs []string

	for _, loc := range locations {
		info, err := os.Stat(loc)
		if err != nil {
			return nil, fmt.Errorf("accessing %s: %w", loc, err)
		}
		if !info.IsDir() {
			inputs = append(inputs, loc)
			continue
		}

		matcher := IgnoreMatcher(loc)
		err = filepath.Walk(loc, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			rel, rerr := filepath.Rel(loc, path)
			if rerr != nil {
				return rerr
			}
			parts := strings.Split(rel, string(filepath.Separator))
			if fi.IsDir() {
				if matcher != nil && rel != "." && matcher.Match(parts, true) {
					return filepath.SkipDir
				}
				return nil
			}
			if matcher != nil && matcher.Match(parts, false) {
				return nil
			}
			if MatchesExtension(path, extensions) {
				inputs = append(inputs, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", loc, err)
		}
	}

	sort.Strings(inputs)
	return inputs, nil
}

// MatchesExtension reports whether path carries one of the extensions,
// ignoring a trailing .gz.
func MatchesExtension(path string, extensions []string) bool {
	name := strings.TrimSuffix(path, ".gz")
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// IgnoreMatcher parses the directory's ignore file, if any. A nil matcher
// means nothing is ignored.
func IgnoreMatcher(dir string) gitignore.Matcher {
	content, err := os.ReadFile(filepath.Join(dir, IgnoreFile))
	if err != nil {
		return nil
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	if len(patterns) == 0 {
		return nil
	}
	return gitignore.NewMatcher(patterns)
}
