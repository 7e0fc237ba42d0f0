package typegraph

import (
	"fmt"

	"github.com/hanpama/typegraph/internal/schema"
)

// compat checks that one field definition can stand in for another, using
// the usual interface implementation rules: return types are covariant,
// arguments are invariant and additional arguments must be nullable.
type compat struct {
	defs     map[string]*schema.Type
	closures map[string][]string
}

// implementationProblem returns an empty string when field is a valid
// implementation of ifaceField (declared by iface), and a message otherwise.
func (c *compat) implementationProblem(typeName string, field, ifaceField *schema.Field, iface string) string {
	for _, ifaceArg := range ifaceField.Arguments {
		arg := field.Argument(ifaceArg.Name)
		if arg == nil {
			return fmt.Sprintf("Field %q.%q is missing argument %q required by interface %q",
				typeName, field.Name, ifaceArg.Name, iface)
		}
		if !arg.Type.Equal(ifaceArg.Type) {
			return fmt.Sprintf("Argument %q of field %q.%q has type %s but interface %q expects %s",
				arg.Name, typeName, field.Name, arg.Type, iface, ifaceArg.Type)
		}
	}

	for _, arg := range field.Arguments {
		if ifaceField.Argument(arg.Name) == nil && schema.IsNonNull(arg.Type) && arg.DefaultValue == nil {
			return fmt.Sprintf("Additional argument %q of field %q.%q must be nullable (interface %q doesn't have this argument)",
				arg.Name, typeName, field.Name, iface)
		}
	}

	if !c.isValidImplementationFieldType(field.Type, ifaceField.Type) {
		return fmt.Sprintf("Field %q.%q has type %s but interface %q expects %s (or a subtype)",
			typeName, field.Name, field.Type, iface, ifaceField.Type)
	}
	return ""
}

func (c *compat) isValidImplementationFieldType(fieldType, implementedType *schema.TypeRef) bool {
	if fieldType == nil || implementedType == nil {
		return false
	}

	// A non-null field satisfies both the nullable and the non-null form.
	if fieldType.Kind == schema.TypeRefKindNonNull {
		inner := implementedType
		if implementedType.Kind == schema.TypeRefKindNonNull {
			inner = implementedType.OfType
		}
		return c.isValidImplementationFieldType(fieldType.OfType, inner)
	}

	if fieldType.Kind == schema.TypeRefKindList && implementedType.Kind == schema.TypeRefKindList {
		return c.isValidImplementationFieldType(fieldType.OfType, implementedType.OfType)
	}

	if fieldType.Equal(implementedType) {
		return true
	}

	if fieldType.Kind != schema.TypeRefKindNamed || implementedType.Kind != schema.TypeRefKindNamed {
		return false
	}
	fieldDef, ok := c.defs[fieldType.Named]
	if !ok {
		return false
	}
	implementedDef, ok := c.defs[implementedType.Named]
	if !ok {
		return false
	}

	switch implementedDef.Kind {
	case schema.TypeKindUnion:
		if fieldDef.Kind == schema.TypeKindObject {
			for _, member := range implementedDef.PossibleTypes {
				if member == fieldType.Named {
					return true
				}
			}
		}
	case schema.TypeKindInterface:
		if fieldDef.Kind.IsComposite() {
			for _, iface := range c.closures[fieldType.Named] {
				if iface == implementedType.Named {
					return true
				}
			}
		}
	}
	return false
}
