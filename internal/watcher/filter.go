package watcher

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Filter decides which paths under a root are tracked. Patterns are matched
// against slash-separated paths relative to the root.
type Filter struct {
	root    string
	include []glob.Glob
	ignore  []glob.Glob
}

// NewFilter compiles include and ignore patterns. An empty include list
// matches every file.
func NewFilter(root string, include, ignore []string) (*Filter, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	f := &Filter{root: abs}

	for _, pattern := range include {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
		}
		f.include = append(f.include, g)
	}
	for _, pattern := range ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		f.ignore = append(f.ignore, g)
	}
	return f, nil
}

// Root returns the absolute root directory.
func (f *Filter) Root() string {
	return f.root
}

// Match reports whether the file at path is tracked.
func (f *Filter) Match(path string) bool {
	rel, ok := f.rel(path)
	if !ok {
		return false
	}
	if f.ignored(rel) {
		return false
	}
	if len(f.include) == 0 {
		return true
	}
	return matchAny(f.include, rel)
}

// SkipDir reports whether a whole directory is ignored.
func (f *Filter) SkipDir(path string) bool {
	rel, ok := f.rel(path)
	if !ok {
		return true
	}
	if rel == "." {
		return false
	}
	return f.ignored(rel) || matchAny(f.ignore, rel+"/")
}

func (f *Filter) ignored(rel string) bool {
	if matchAny(f.ignore, rel) {
		return true
	}
	// Also try every parent so "vendor/**" covers files deep inside.
	for dir := filepath.ToSlash(filepath.Dir(rel)); dir != "." && dir != "/"; dir = filepath.ToSlash(filepath.Dir(dir)) {
		if matchAny(f.ignore, dir+"/") {
			return true
		}
	}
	return false
}

func (f *Filter) rel(path string) (string, bool) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.root, path)
	}
	rel, err := filepath.Rel(f.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// matchAny matches rel as is and with a leading slash, so "**/*.py" also
// matches files at the root.
func matchAny(globs []glob.Glob, rel string) bool {
	for _, g := range globs {
		if g.Match(rel) || g.Match("/"+rel) {
			return true
		}
	}
	return false
}
