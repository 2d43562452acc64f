package walker

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// PathFilter decides which tree entries the walk visits.
//
// When Include is non-empty only paths equal to or below an include entry
// are kept; directories that lead to an include entry are descended but
// their own files are not. Otherwise paths equal to or below any Exclude
// entry are dropped. Globs are doublestar patterns matched against the
// full path and applied in both modes.
type PathFilter struct {
	Include []string
	Exclude []string
	Globs   []string
}

// NewPathFilter normalizes the given prefixes.
func NewPathFilter(include, exclude, globs []string) PathFilter {
	return PathFilter{
		Include: cleanPaths(include),
		Exclude: cleanPaths(exclude),
		Globs:   globs,
	}
}

// Allows reports whether the entry at path should be visited.
func (f PathFilter) Allows(path string, isDir bool) bool {
	path = strings.Trim(path, "/")

	for _, g := range f.Globs {
		if ok, err := doublestar.Match(g, path); err == nil && ok {
			return false
		}
	}

	if len(f.Include) > 0 {
		for _, inc := range f.Include {
			if isUnder(path, inc) {
				return true
			}
			if isDir && isUnder(inc, path) {
				return true
			}
		}
		return false
	}

	for _, exc := range f.Exclude {
		if isUnder(path, exc) {
			return false
		}
	}
	return true
}

// isUnder reports whether p equals prefix or lies below it.
func isUnder(p, prefix string) bool {
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

func cleanPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.Trim(strings.TrimSpace(p), "/")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
