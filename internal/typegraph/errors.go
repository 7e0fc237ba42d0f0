package typegraph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hanpama/typegraph/internal/schema"
)

// ErrFrozen is returned by registration calls made after the graph was resolved.
var ErrFrozen = errors.New("typegraph: registry is frozen; registration must happen before the first resolve")

// DuplicateRegistrationError reports a name registered twice with different kinds.
type DuplicateRegistrationError struct {
	Name      string
	Existing  schema.TypeKind
	Requested schema.TypeKind
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("typegraph: type %q is already registered as %s, cannot register it as %s",
		e.Name, e.Existing, e.Requested)
}

// IncompatibleFieldError reports a field whose definitions disagree across a
// type and the interfaces in its closed interface set.
type IncompatibleFieldError struct {
	// Type is the type being resolved.
	Type string
	// Field is the conflicting field name.
	Field string
	// Interface contributed the definition that lost.
	Interface string
	// Other contributed the definition that won: Type itself or an earlier interface.
	Other  string
	Reason string
}

func (e *IncompatibleFieldError) Error() string {
	return e.Reason
}

// Violation is a single resolve-time problem attributed to a type.
type Violation struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	// Structural violations abort Build regardless of strictness.
	Structural bool  `json:"structural,omitempty"`
	Cause      error `json:"-"`
}

// ValidationError aggregates violations found while resolving the graph.
type ValidationError []*Violation

func (e ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("violations found:\n")
	for _, v := range e {
		b.WriteString("- ")
		b.WriteString(v.Message)
		b.WriteString("\n")
	}
	return b.String()
}

// Unwrap exposes the typed causes to errors.As.
func (e ValidationError) Unwrap() []error {
	out := make([]error, 0, len(e))
	for _, v := range e {
		if v.Cause != nil {
			out = append(out, v.Cause)
		}
	}
	return out
}

func violationIncompatibleField(err *IncompatibleFieldError) *Violation {
	return &Violation{Type: err.Type, Message: err.Reason, Cause: err}
}

func violationNotAnInterface(iface string, kind schema.TypeKind, implementer string) *Violation {
	return &Violation{
		Type:       implementer,
		Message:    fmt.Sprintf("Type %q is implemented by %q but is registered as %s, not an interface", iface, implementer, kind),
		Structural: true,
	}
}

func violationCannotImplement(implementer string, kind schema.TypeKind, iface string) *Violation {
	return &Violation{
		Type:       implementer,
		Message:    fmt.Sprintf("Type %q of kind %s cannot implement interface %q", implementer, kind, iface),
		Structural: true,
	}
}
