package sdl

import (
	"context"
	"fmt"
)

// Discovery lists and reads SDL sources.
type Discovery interface {
	ListSources(ctx context.Context) ([]string, error)
	ReadSource(ctx context.Context, name string) (string, error)
}

// Source is a named SDL document.
type Source struct {
	Name    string
	Content string
}

// InMemoryDiscovery serves a fixed set of sources. Useful in tests and for
// embedding schema documents in a binary.
type InMemoryDiscovery struct {
	names    []string
	contents map[string]string
}

// NewInMemoryDiscovery creates a discovery over srcs. A later source with the
// same name replaces an earlier one.
func NewInMemoryDiscovery(srcs ...Source) *InMemoryDiscovery {
	d := &InMemoryDiscovery{contents: make(map[string]string, len(srcs))}
	for _, src := range srcs {
		if _, ok := d.contents[src.Name]; !ok {
			d.names = append(d.names, src.Name)
		}
		d.contents[src.Name] = src.Content
	}
	return d
}

// ListSources implements Discovery.
func (d *InMemoryDiscovery) ListSources(ctx context.Context) ([]string, error) {
	return append([]string(nil), d.names...), nil
}

// ReadSource implements Discovery.
func (d *InMemoryDiscovery) ReadSource(ctx context.Context, name string) (string, error) {
	content, ok := d.contents[name]
	if !ok {
		return "", fmt.Errorf("source %q not found", name)
	}
	return content, nil
}
