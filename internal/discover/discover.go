// Package discover finds schema input files in a project tree.
package discover

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

var skipDirs = map[string]struct{}{
	"node_modules": {},
	"vendor":       {},
	".git":         {},
	".hg":          {},
	".svn":         {},
	"testdata":     {},
	"_examples":    {},
}

// Options selects files. Include and Exclude use gitignore pattern syntax
// relative to the root.
type Options struct {
	Include []string
	Exclude []string
	// NoGitignore disables honoring the root .gitignore.
	NoGitignore bool
}

// Files returns the slash-separated paths, relative to root, of every file
// matched by an include pattern and by no exclude pattern, sorted.
func Files(root string, opts Options) ([]string, error) {
	if len(opts.Include) == 0 {
		return nil, errors.New("discover: no include patterns")
	}
	inc := ignore.CompileIgnoreLines(opts.Include...)
	var exc *ignore.GitIgnore
	if len(opts.Exclude) > 0 {
		exc = ignore.CompileIgnoreLines(opts.Exclude...)
	}
	var gi *ignore.GitIgnore
	if !opts.NoGitignore {
		gi = loadGitignore(root)
	}

	var results []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // skip unreadable entries
		}
		name := d.Name()
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if excluded(rel+"/", exc, gi) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if !inc.MatchesPath(rel) || excluded(rel, exc, gi) {
			return nil
		}
		results = append(results, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(results)
	return results, nil
}

func excluded(rel string, exc, gi *ignore.GitIgnore) bool {
	return (exc != nil && exc.MatchesPath(rel)) || (gi != nil && gi.MatchesPath(rel))
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
