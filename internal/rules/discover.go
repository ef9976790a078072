package rules

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
)

// DefaultInclude matches every YAML file below the rules root.
const DefaultInclude = "**/*.{yaml,yml}"

// Discover returns the rule files below root that match the comma-separated
// include globs and none of the exclude globs, sorted by path.
func Discover(root, include, exclude string) ([]string, error) {
	rels, err := DiscoverFS(os.DirFS(root), include, exclude)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(rels))
	for i, r := range rels {
		out[i] = filepath.Join(root, filepath.FromSlash(r))
	}
	return out, nil
}

// DiscoverFS is Discover over an arbitrary file system. Returned paths are
// slash-separated and relative to the root of fsys.
func DiscoverFS(fsys fs.FS, include, exclude string) ([]string, error) {
	includes := parseGlobsList(include)
	if len(includes) == 0 {
		includes = parseGlobsList(DefaultInclude)
	}
	excludes := parseGlobsList(exclude)

	var out []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !matchAnyGlob(p, includes) || matchAnyGlob(p, excludes) {
			return nil
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover rules: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

// LoadDir loads every rule discovered below root. Rules that fail to load
// are reported in errs and skipped; they are never replaced by defaults.
func LoadDir(root, include, exclude string) (loaded []*Rule, errs []error) {
	return LoadFS(os.DirFS(root), include, exclude)
}

// LoadFS loads every rule discovered in fsys.
func LoadFS(fsys fs.FS, include, exclude string) (loaded []*Rule, errs []error) {
	paths, err := DiscoverFS(fsys, include, exclude)
	if err != nil {
		return nil, []error{err}
	}
	for _, p := range paths {
		b, err := fs.ReadFile(fsys, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("read rule %s: %w", p, err))
			continue
		}
		r, err := Parse(b, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		loaded = append(loaded, r)
	}
	return loaded, errs
}

func parseGlobsList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range splitGlobs(s) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitGlobs splits on commas outside of {} alternations.
func splitGlobs(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func matchAnyGlob(p string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, p); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, path.Base(p)); ok {
			return true
		}
	}
	return false
}
