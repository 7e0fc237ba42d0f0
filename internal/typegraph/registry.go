// Package typegraph holds GraphQL object and interface definitions together
// with the "implements" relation between them, and resolves every type into
// its closed interface set and closed field set.
//
// A Registry is an explicit builder: registrants receive it during a bounded
// build phase, in any order, and the first read (Resolve, Lookup, Build or
// Freeze) resolves the whole graph once and freezes it. Registration after
// that point fails with ErrFrozen; to pick up new definitions, build a new
// Registry.
package typegraph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hanpama/typegraph/internal/eventbus"
	"github.com/hanpama/typegraph/internal/events"
	"github.com/hanpama/typegraph/internal/schema"
)

// Edge states that Implementer directly implements Interface.
type Edge struct {
	Interface   string `json:"interface" yaml:"interface"`
	Implementer string `json:"implementer" yaml:"implementer"`
}

// Registry is a mutable type graph that becomes immutable on first read.
type Registry struct {
	opts options

	mu         sync.Mutex
	defs       map[string]*schema.Type
	order      []string
	directives map[string]*schema.Directive
	edges      []Edge
	edgeSet    map[Edge]struct{}
	// implementer -> interfaces, in edge registration order
	out map[string][]string

	frozen atomic.Bool
	// written once under mu before frozen is set; read-only afterwards
	resolved       map[string]*schema.Type
	violations     []*Violation
	typeViolations map[string][]*Violation
	built          *schema.Schema
	buildErr       error
}

// New creates an empty, unfrozen registry.
func New(opts ...Option) *Registry {
	o := defaultOptions()
	for _, f := range opts {
		f(&o)
	}
	return &Registry{
		opts:       o,
		defs:       make(map[string]*schema.Type),
		directives: make(map[string]*schema.Directive),
		edgeSet:    make(map[Edge]struct{}),
		out:        make(map[string][]string),
	}
}

// RegisterType adds def or replaces the definition with the same name.
// Replacing a definition with one of a different kind fails with a
// *DuplicateRegistrationError. Interfaces listed on def are registered as
// edges; the stored definition keeps only its own fields.
func (r *Registry) RegisterType(def *schema.Type) error {
	if def == nil || def.Name == "" {
		return errors.New("typegraph: type definition must have a name")
	}
	if def.Kind == schema.TypeKindUnknown {
		return fmt.Errorf("typegraph: type %q has no kind", def.Name)
	}

	r.mu.Lock()
	if r.frozen.Load() {
		r.mu.Unlock()
		return ErrFrozen
	}
	existing, replaced := r.defs[def.Name]
	if replaced && existing.Kind != def.Kind {
		r.mu.Unlock()
		return &DuplicateRegistrationError{Name: def.Name, Existing: existing.Kind, Requested: def.Kind}
	}
	stored := def.Clone()
	declared := stored.Interfaces
	if stored.Kind.IsComposite() {
		stored.Interfaces = nil
	}
	if !replaced {
		r.order = append(r.order, def.Name)
	}
	r.defs[def.Name] = stored
	if stored.Kind.IsComposite() {
		for _, iface := range declared {
			r.addEdge(Edge{Interface: iface, Implementer: def.Name})
		}
	}
	r.mu.Unlock()

	r.opts.logger.Debug("type registered",
		zap.String("name", def.Name),
		zap.String("kind", string(def.Kind)),
		zap.Int("fields", len(def.Fields)),
		zap.Bool("replaced", replaced))
	publish(r, events.TypeRegistered{
		Name:     def.Name,
		Kind:     string(def.Kind),
		Replaced: replaced,
	})
	return nil
}

// RegisterInterfaces adds an edge for every (interface, implementer) pair of
// the cross product. Names need not be registered yet. Pairs already present
// and pairs naming the same type twice are ignored.
func (r *Registry) RegisterInterfaces(interfaces, implementers []string) error {
	for _, name := range interfaces {
		if name == "" {
			return errors.New("typegraph: interface name must not be empty")
		}
	}
	for _, name := range implementers {
		if name == "" {
			return errors.New("typegraph: implementer name must not be empty")
		}
	}

	r.mu.Lock()
	if r.frozen.Load() {
		r.mu.Unlock()
		return ErrFrozen
	}
	added := 0
	for _, iface := range interfaces {
		for _, impl := range implementers {
			if r.addEdge(Edge{Interface: iface, Implementer: impl}) {
				added++
			}
		}
	}
	r.mu.Unlock()

	r.opts.logger.Debug("interfaces registered",
		zap.Strings("interfaces", interfaces),
		zap.Strings("implementers", implementers),
		zap.Int("added", added))
	publish(r, events.InterfacesRegistered{
		Interfaces:   append([]string(nil), interfaces...),
		Implementers: append([]string(nil), implementers...),
		Added:        added,
	})
	return nil
}

// RegisterDirective adds or replaces a directive definition carried into the built schema.
func (r *Registry) RegisterDirective(d *schema.Directive) error {
	if d == nil || d.Name == "" {
		return errors.New("typegraph: directive definition must have a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() {
		return ErrFrozen
	}
	r.directives[d.Name] = d
	return nil
}

// addEdge must be called with mu held.
func (r *Registry) addEdge(e Edge) bool {
	if e.Interface == e.Implementer {
		return false
	}
	if _, ok := r.edgeSet[e]; ok {
		return false
	}
	r.edgeSet[e] = struct{}{}
	r.edges = append(r.edges, e)
	r.out[e.Implementer] = append(r.out[e.Implementer], e.Interface)
	return true
}

// Frozen reports whether the graph has been resolved.
func (r *Registry) Frozen() bool { return r.frozen.Load() }

// Freeze resolves the graph and rejects further registration. It is called
// implicitly by every read and is safe to call more than once.
func (r *Registry) Freeze() {
	if r.frozen.Load() {
		return
	}
	r.mu.Lock()
	if r.frozen.Load() {
		r.mu.Unlock()
		return
	}
	start := time.Now()
	r.resolveAll()
	r.built, r.buildErr = r.buildSchema()
	r.frozen.Store(true)
	types, edges, violations := len(r.defs), len(r.edges), len(r.violations)
	r.mu.Unlock()

	took := time.Since(start)
	r.opts.logger.Info("type graph resolved",
		zap.Int("types", types),
		zap.Int("edges", edges),
		zap.Int("violations", violations),
		zap.Duration("duration", took))
	publish(r, events.GraphFrozen{
		Types:      types,
		Edges:      edges,
		Violations: violations,
		Duration:   took,
		At:         start.Add(took),
	})
}

// Resolve returns the resolved form of the named type: its closed interface
// set and closed field set. Unknown names yield an empty type of unknown
// kind and no error. In strict mode, field conflicts found for this type are
// returned as a ValidationError together with the first-wins result.
//
// The returned value is shared and must not be modified.
func (r *Registry) Resolve(name string) (*schema.Type, error) {
	r.Freeze()
	t, ok := r.resolved[name]
	if !ok {
		return &schema.Type{Name: name, Kind: schema.TypeKindUnknown}, nil
	}
	if vs := r.typeViolations[name]; r.opts.strict && len(vs) > 0 {
		return t, ValidationError(vs)
	}
	return t, nil
}

// Lookup returns the resolved type, or nil and false for unknown names.
func (r *Registry) Lookup(name string) (*schema.Type, bool) {
	r.Freeze()
	t, ok := r.resolved[name]
	return t, ok
}

// Build returns the immutable schema holding every resolved type. It fails
// with a ValidationError when the graph has structural violations or, in
// strict mode, incompatible field definitions.
func (r *Registry) Build() (*schema.Schema, error) {
	r.Freeze()
	return r.built, r.buildErr
}

// Violations returns every violation found during resolution, including the
// ones tolerated in lenient mode.
func (r *Registry) Violations() []*Violation {
	r.Freeze()
	return append([]*Violation(nil), r.violations...)
}

// Edges returns the edge set in registration order.
func (r *Registry) Edges() []Edge {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Edge(nil), r.edges...)
}

// TypeNames returns registered type names in first registration order.
func (r *Registry) TypeNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func publish[T any](r *Registry, e T) {
	if r.opts.bus != nil {
		eventbus.Emit(context.Background(), r.opts.bus, e)
		return
	}
	eventbus.Publish(context.Background(), e)
}
