package introspection

import (
	"fmt"
	"math"
	"strconv"

	language "github.com/hanpama/typegraph/internal/language"
	schema "github.com/hanpama/typegraph/internal/schema"
)

// coerceVariableValues applies defaults and checks the provided variables
// against their declared types.
func coerceVariableValues(operation *language.OperationDefinition, variableValues map[string]any) (map[string]any, *language.Error) {
	coerced := make(map[string]any, len(operation.VariableDefinitions))
	for _, varDef := range operation.VariableDefinitions {
		name := varDef.Variable
		t := varDef.Type
		val, ok := variableValues[name]
		if !ok {
			switch {
			case varDef.DefaultValue != nil:
				def, err := varDef.DefaultValue.Value(nil)
				if err != nil {
					return nil, language.Errorf(varDef.Position, "variable $%s has an invalid default value: %v", name, err)
				}
				val = def
			case t.NonNull:
				return nil, language.Errorf(varDef.Position, "variable $%s of required type %s was not provided", name, t.String())
			default:
				continue
			}
		}
		cv, err := coerceValue(val, typeRefFromAST(t))
		if err != nil {
			return nil, language.Errorf(varDef.Position, "variable $%s of type %s cannot be coerced: %v", name, t.String(), err)
		}
		coerced[name] = cv
	}
	return coerced, nil
}

// coerceArgumentValues resolves the arguments of field, falling back to
// the defaults declared on fieldDef.
func coerceArgumentValues(fieldDef *schema.Field, field *language.Field, variableValues map[string]any) (map[string]any, *language.Error) {
	coerced := make(map[string]any, len(fieldDef.Arguments))
	for _, argDef := range fieldDef.Arguments {
		arg := field.Arguments.ForName(argDef.Name)
		if arg == nil || isMissingVariable(arg.Value, variableValues) {
			if argDef.DefaultValue != nil {
				coerced[argDef.Name] = argDef.DefaultValue
			} else if schema.IsNonNull(argDef.Type) {
				return nil, language.Errorf(field.Position, "argument %q of required type %s was not provided", argDef.Name, argDef.Type)
			}
			continue
		}
		val, err := arg.Value.Value(variableValues)
		if err != nil {
			return nil, language.Errorf(arg.Position, "argument %q: %v", argDef.Name, err)
		}
		cv, err := coerceValue(val, argDef.Type)
		if err != nil {
			return nil, language.Errorf(arg.Position, "argument %q cannot be coerced: %v", argDef.Name, err)
		}
		coerced[argDef.Name] = cv
	}
	for _, arg := range field.Arguments {
		if fieldDef.Argument(arg.Name) == nil {
			return nil, language.Errorf(arg.Position, "Unknown argument %q on field %q", arg.Name, fieldDef.Name)
		}
	}
	return coerced, nil
}

func isMissingVariable(value *language.Value, variableValues map[string]any) bool {
	if value == nil || value.Kind != language.Variable {
		return false
	}
	_, ok := variableValues[value.Raw]
	return !ok
}

// coerceValue coerces a value to the specified GraphQL type
func coerceValue(value any, targetType *schema.TypeRef) (any, error) {
	if schema.IsNonNull(targetType) {
		if value == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type")
		}
		return coerceValue(value, targetType.Unwrap())
	}
	if value == nil {
		return nil, nil
	}
	if targetType.Kind == schema.TypeRefKindList {
		return coerceListValue(value, targetType)
	}

	switch targetType.Named {
	case "Int":
		return coerceToInt(value)
	case "Float":
		return coerceToFloat(value)
	case "String":
		return coerceToString(value)
	case "Boolean":
		return coerceToBoolean(value)
	case "ID":
		return coerceToID(value)
	default:
		return value, nil
	}
}

// coerceListValue coerces a value to a list; a single value becomes a list of one.
func coerceListValue(value any, listType *schema.TypeRef) (any, error) {
	innerType := listType.Unwrap()
	slice, ok := value.([]any)
	if !ok {
		item, err := coerceValue(value, innerType)
		if err != nil {
			return nil, err
		}
		return []any{item}, nil
	}
	out := make([]any, len(slice))
	for i, item := range slice {
		coercedItem, err := coerceValue(item, innerType)
		if err != nil {
			return nil, err
		}
		out[i] = coercedItem
	}
	return out, nil
}

func coerceToInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt32 && v <= math.MaxInt32 {
			return int64(v), nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to int", value, value)
}

func coerceToFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to float", value, value)
}

func coerceToString(value any) (any, error) {
	if v, ok := value.(string); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to string", value, value)
}

func coerceToBoolean(value any) (any, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to boolean", value, value)
}

func coerceToID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to ID", value, value)
}

func typeRefFromAST(t *language.Type) *schema.TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		return schema.NonNullType(typeRefFromAST(&language.Type{NamedType: t.NamedType, Elem: t.Elem}))
	}
	if t.NamedType != "" {
		return schema.NamedType(t.NamedType)
	}
	return schema.ListType(typeRefFromAST(t.Elem))
}
