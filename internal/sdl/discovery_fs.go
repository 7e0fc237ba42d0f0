package sdl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileSystemDiscovery finds .graphql and .graphqls files matching a set of
// glob patterns. Patterns support ** for recursive matching; a pattern naming
// a directory matches every schema file below it.
type FileSystemDiscovery struct {
	patterns []string
	paths    []string
}

// NewFileSystemDiscovery expands patterns once. Files added later are picked
// up by creating a new discovery.
func NewFileSystemDiscovery(patterns []string) (*FileSystemDiscovery, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("at least one schema path is required")
	}
	d := &FileSystemDiscovery{}
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		pattern = expandPattern(pattern)
		d.patterns = append(d.patterns, pattern)

		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("resolve pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !IsSchemaFile(m) || seen[m] {
				continue
			}
			seen[m] = true
			d.paths = append(d.paths, m)
		}
	}
	sort.Strings(d.paths)
	return d, nil
}

// expandPattern turns a plain directory into a recursive schema file glob.
func expandPattern(pattern string) string {
	if containsGlob(pattern) {
		return filepath.Clean(pattern)
	}
	if info, err := os.Stat(pattern); err == nil && info.IsDir() {
		return filepath.Join(pattern, "**", "*.graphql*")
	}
	return filepath.Clean(pattern)
}

func containsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// IsSchemaFile reports whether path has a GraphQL schema extension.
func IsSchemaFile(path string) bool {
	switch filepath.Ext(path) {
	case ".graphql", ".graphqls":
		return true
	}
	return false
}

// Patterns returns the expanded glob patterns.
func (d *FileSystemDiscovery) Patterns() []string {
	return append([]string(nil), d.patterns...)
}

// Match reports whether path is selected by any pattern.
func (d *FileSystemDiscovery) Match(path string) bool {
	if !IsSchemaFile(path) {
		return false
	}
	path = filepath.Clean(path)
	for _, pattern := range d.patterns {
		if ok, _ := doublestar.PathMatch(pattern, path); ok {
			return true
		}
	}
	return false
}

// BaseDirs returns the static directory prefix of every pattern, the
// directories a watcher needs to observe.
func (d *FileSystemDiscovery) BaseDirs() []string {
	var dirs []string
	seen := make(map[string]bool)
	for _, pattern := range d.patterns {
		base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
		base = filepath.FromSlash(base)
		if !containsGlob(pattern) {
			base = filepath.Dir(pattern)
		}
		if !seen[base] {
			seen[base] = true
			dirs = append(dirs, base)
		}
	}
	return dirs
}

// ListSources implements Discovery. Source names are file paths.
func (d *FileSystemDiscovery) ListSources(ctx context.Context) ([]string, error) {
	return append([]string(nil), d.paths...), nil
}

// ReadSource implements Discovery.
func (d *FileSystemDiscovery) ReadSource(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	content, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("failed to read schema file %q: %w", name, err)
	}
	return string(content), nil
}
