package watch

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
)

// IgnoreSet is a compiled set of glob patterns. Shared between the
// watcher and the reconciler so both producers agree on which paths
// never enter the catalog.
type IgnoreSet struct {
	globs []glob.Glob
}

// CompileIgnores compiles the given patterns. Returns ErrInvalidPattern
// when one does not parse.
func CompileIgnores(patterns []string) (*IgnoreSet, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
		}
		globs = append(globs, g)
	}
	return &IgnoreSet{globs: globs}, nil
}

// Match reports whether path or its base name matches any pattern.
// A nil set matches nothing.
func (s *IgnoreSet) Match(path string) bool {
	if s == nil {
		return false
	}
	base := filepath.Base(path)
	for _, g := range s.globs {
		if g.Match(path) || g.Match(base) {
			return true
		}
	}
	return false
}
