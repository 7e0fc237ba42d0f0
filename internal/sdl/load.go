// Package sdl turns GraphQL schema documents into registrations on a type
// graph registry.
package sdl

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	language "github.com/hanpama/typegraph/internal/language"
	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/typegraph"
)

// Document is the merged content of every source returned by a Discovery.
// Extensions are folded into their base definitions.
type Document struct {
	Sources []string
	// Types in source name order, then declaration order. Interfaces holds
	// the directly declared implements clause.
	Types       []*schema.Type
	Directives  []*schema.Directive
	Description string

	QueryType        string
	MutationType     string
	SubscriptionType string
}

// Load parses every source of disc and registers the result on reg.
func Load(ctx context.Context, reg *typegraph.Registry, disc Discovery) (*Document, error) {
	doc, err := Parse(ctx, disc)
	if err != nil {
		return nil, err
	}
	if err := doc.Register(reg); err != nil {
		return nil, err
	}
	return doc, nil
}

// Parse reads and parses every source of disc concurrently and merges them.
// Sources are merged in name order so the result does not depend on
// discovery order.
func Parse(ctx context.Context, disc Discovery) (*Document, error) {
	names, err := disc.ListSources(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	docs := make([]*language.SchemaDocument, len(names))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		eg.Go(func() error {
			content, err := disc.ReadSource(egCtx, name)
			if err != nil {
				return err
			}
			doc, err := language.ParseSchema(name, content)
			if err != nil {
				return fmt.Errorf("parse %s: %w", name, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	b := newBuilder()
	doc, err := b.build(docs)
	if err != nil {
		return nil, err
	}
	doc.Sources = names
	return doc, nil
}

// Register adds directives and types to reg, then one edge set per declared
// implements clause.
func (d *Document) Register(reg *typegraph.Registry) error {
	for _, dir := range d.Directives {
		if err := reg.RegisterDirective(dir); err != nil {
			return err
		}
	}
	for _, t := range d.Types {
		def := t.Clone()
		def.Interfaces = nil
		if err := reg.RegisterType(def); err != nil {
			return err
		}
	}
	for _, t := range d.Types {
		if len(t.Interfaces) == 0 {
			continue
		}
		if err := reg.RegisterInterfaces(t.Interfaces, []string{t.Name}); err != nil {
			return err
		}
	}
	return nil
}

// RegistryOptions returns the registry options implied by the document's
// schema definition.
func (d *Document) RegistryOptions() []typegraph.Option {
	var opts []typegraph.Option
	if d.QueryType != "" || d.MutationType != "" || d.SubscriptionType != "" {
		opts = append(opts, typegraph.WithRootTypes(d.QueryType, d.MutationType, d.SubscriptionType))
	}
	if d.Description != "" {
		opts = append(opts, typegraph.WithDescription(d.Description))
	}
	return opts
}

// Type returns the merged definition with the given name or nil.
func (d *Document) Type(name string) *schema.Type {
	for _, t := range d.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}
