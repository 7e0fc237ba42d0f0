package typegraph

import (
	"go.uber.org/zap"

	"github.com/hanpama/typegraph/internal/schema"
)

// resolveAll computes every registered type's resolved form. mu must be held.
func (r *Registry) resolveAll() {
	r.resolved = make(map[string]*schema.Type, len(r.defs))
	r.typeViolations = make(map[string][]*Violation)
	r.violations = nil

	r.checkEdges()

	closures := make(map[string][]string, len(r.defs))
	for _, name := range r.order {
		if r.defs[name].Kind.IsComposite() {
			closures[name] = r.closure(name)
		}
	}

	possible := make(map[string][]string)
	for _, name := range r.order {
		if r.defs[name].Kind != schema.TypeKindObject {
			continue
		}
		for _, iface := range closures[name] {
			possible[iface] = append(possible[iface], name)
		}
	}

	c := &compat{defs: r.defs, closures: closures}
	for _, name := range r.order {
		def := r.defs[name]
		t := def.Clone()
		if def.Kind.IsComposite() {
			t.Interfaces = closures[name]
			t.Fields = r.aggregateFields(c, def, closures[name])
		}
		if def.Kind == schema.TypeKindInterface {
			t.PossibleTypes = possible[name]
		}
		r.resolved[name] = t
	}
}

// checkEdges records structural violations: an edge pointing at a registered
// non-interface, or starting from a registered type that cannot implement.
func (r *Registry) checkEdges() {
	for _, e := range r.edges {
		if def, ok := r.defs[e.Interface]; ok && def.Kind != schema.TypeKindInterface {
			r.addViolation(violationNotAnInterface(e.Interface, def.Kind, e.Implementer))
		}
		if def, ok := r.defs[e.Implementer]; ok && !def.Kind.IsComposite() {
			r.addViolation(violationCannotImplement(e.Implementer, def.Kind, e.Interface))
		}
		if _, ok := r.defs[e.Interface]; !ok {
			r.opts.logger.Debug("edge references unregistered interface",
				zap.String("interface", e.Interface),
				zap.String("implementer", e.Implementer))
		}
	}
}

// closure returns the interfaces reachable from start, breadth first,
// following each node's edges in registration order. Names that are not
// registered interfaces contribute nothing and are not expanded. The start
// node is never part of its own closure.
func (r *Registry) closure(start string) []string {
	visited := map[string]struct{}{start: {}}
	var closed []string
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, iface := range r.out[cur] {
			if _, seen := visited[iface]; seen {
				continue
			}
			visited[iface] = struct{}{}
			def, ok := r.defs[iface]
			if !ok || def.Kind != schema.TypeKindInterface {
				continue
			}
			closed = append(closed, iface)
			queue = append(queue, iface)
		}
	}
	return closed
}

// aggregateFields merges def's own fields with the own fields of every
// interface in closed. An own field always wins and must implement every
// interface field of the same name. Between two interface fields the more
// specific one is kept, so the result satisfies both interfaces; when neither
// implements the other the first one is kept and the conflict recorded.
func (r *Registry) aggregateFields(c *compat, def *schema.Type, closed []string) []*schema.Field {
	fields := make([]*schema.Field, 0, len(def.Fields))
	owner := make(map[string]string, len(def.Fields))
	index := make(map[string]int, len(def.Fields))
	for _, f := range def.Fields {
		index[f.Name] = len(fields)
		owner[f.Name] = def.Name
		fields = append(fields, f)
	}

	for _, iface := range closed {
		for _, f := range r.defs[iface].Fields {
			i, exists := index[f.Name]
			if !exists {
				index[f.Name] = len(fields)
				owner[f.Name] = iface
				fields = append(fields, f)
				continue
			}
			reason := c.implementationProblem(def.Name, fields[i], f, iface)
			if reason == "" {
				continue
			}
			if owner[f.Name] != def.Name && c.implementationProblem(def.Name, f, fields[i], owner[f.Name]) == "" {
				fields[i] = f
				owner[f.Name] = iface
				continue
			}
			err := &IncompatibleFieldError{
				Type:      def.Name,
				Field:     f.Name,
				Interface: iface,
				Other:     owner[f.Name],
				Reason:    reason,
			}
			r.addViolation(violationIncompatibleField(err))
			if !r.opts.strict {
				r.opts.logger.Warn("incompatible field definition, keeping first",
					zap.String("type", def.Name),
					zap.String("field", f.Name),
					zap.String("kept", owner[f.Name]),
					zap.String("dropped", iface))
			}
		}
	}
	return fields
}

func (r *Registry) addViolation(v *Violation) {
	r.violations = append(r.violations, v)
	r.typeViolations[v.Type] = append(r.typeViolations[v.Type], v)
}

// buildSchema assembles the immutable schema from resolved types. mu must be held.
func (r *Registry) buildSchema() (*schema.Schema, error) {
	var fatal ValidationError
	for _, v := range r.violations {
		if v.Structural || r.opts.strict {
			fatal = append(fatal, v)
		}
	}
	if len(fatal) > 0 {
		return nil, fatal
	}

	s := schema.NewSchema(r.opts.description)
	for _, name := range r.order {
		s.AddType(r.resolved[name])
	}
	for _, d := range r.directives {
		s.AddDirective(d)
	}
	schema.AddBuiltins(s)

	if t := s.Type(r.opts.queryType); t != nil && t.Kind == schema.TypeKindObject {
		s.SetQueryType(t.Name)
	}
	if t := s.Type(r.opts.mutationType); t != nil && t.Kind == schema.TypeKindObject {
		s.SetMutationType(t.Name)
	}
	if t := s.Type(r.opts.subscriptionType); t != nil && t.Kind == schema.TypeKindObject {
		s.SetSubscriptionType(t.Name)
	}
	return s, nil
}
