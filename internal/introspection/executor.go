package introspection

import (
	"context"
	"reflect"

	language "github.com/hanpama/typegraph/internal/language"
	schema "github.com/hanpama/typegraph/internal/schema"
)

// Result is the response of a single GraphQL operation.
type Result struct {
	Data   map[string]any    `json:"data"`
	Errors []*language.Error `json:"errors,omitempty"`
}

// HasErrors reports whether the result carries at least one error.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// Option configures an Executor.
type Option func(*Executor)

// WithIntrospection toggles the __schema and __type root fields.
// __typename is always served.
func WithIntrospection(enabled bool) Option {
	return func(e *Executor) { e.introspection = enabled }
}

// Executor answers introspection queries against a built schema.
// It is safe for concurrent use.
type Executor struct {
	schema        *schema.Schema
	meta          *schema.Schema
	introspection bool
}

// New returns an Executor serving sch.
func New(sch *schema.Schema, opts ...Option) *Executor {
	e := &Executor{schema: sch, meta: withMetaTypes(sch), introspection: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Schema returns the schema the executor serves.
func (e *Executor) Schema() *schema.Schema { return e.schema }

// ExecuteQuery parses query and executes it.
func (e *Executor) ExecuteQuery(ctx context.Context, query, operationName string, variables map[string]any) *Result {
	doc, err := language.ParseQuery(query)
	if err != nil {
		return &Result{Errors: []*language.Error{language.AsError(err)}}
	}
	return e.Execute(ctx, doc, operationName, variables)
}

// executionState holds the state during query execution
type executionState struct {
	ctx       context.Context
	schema    *schema.Schema
	meta      *schema.Schema
	document  *language.QueryDocument
	variables map[string]any
	errors    []*language.Error
	enabled   bool
}

// Execute runs the selected operation of doc.
func (e *Executor) Execute(ctx context.Context, doc *language.QueryDocument, operationName string, variables map[string]any) *Result {
	operation, err := getOperation(doc, operationName)
	if err != nil {
		return &Result{Errors: []*language.Error{err}}
	}

	var rootType *schema.Type
	switch operation.Operation {
	case language.Query:
		rootType = e.meta.GetQueryType()
	case language.Mutation:
		rootType = e.meta.GetMutationType()
	case language.Subscription:
		rootType = e.meta.GetSubscriptionType()
	}
	if rootType == nil {
		return &Result{Errors: []*language.Error{
			language.Errorf(operation.Position, "Schema is not configured for %s operations", operation.Operation),
		}}
	}

	coerced, err := coerceVariableValues(operation, variables)
	if err != nil {
		return &Result{Errors: []*language.Error{err}}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return &Result{Errors: []*language.Error{language.AsError(ctxErr)}}
	}

	state := &executionState{
		ctx:       ctx,
		schema:    e.schema,
		meta:      e.meta,
		document:  doc,
		variables: coerced,
		enabled:   e.introspection && operation.Operation == language.Query,
	}

	data := executeSelectionSet(state, rootType, operation.SelectionSet, state.schema, nil)
	return &Result{Data: data, Errors: state.errors}
}

// executeSelectionSet returns nil when a non-null field below the root
// completed to null, so the parent becomes null.
func executeSelectionSet(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet, source any, path language.Path) map[string]any {
	groupedFields := collectFields(state, objectType, selectionSet)
	resultMap := make(map[string]any, len(groupedFields.fields))

	for _, collected := range groupedFields.orderedFields() {
		fields := collected.Fields
		fieldPath := appendPath(path, language.PathName(collected.ResponseName))

		if fields[0].Name == "__typename" {
			resultMap[collected.ResponseName] = objectType.Name
			continue
		}

		fieldDef, ok := getFieldDefinition(state, objectType, fields[0], path, fieldPath)
		if !ok {
			resultMap[collected.ResponseName] = nil
			continue
		}

		value := executeField(state, objectType, fieldDef, source, fields, fieldPath)
		if schema.IsNonNull(fieldDef.Type) && isNullish(value) {
			if len(path) > 0 {
				return nil
			}
			resultMap[collected.ResponseName] = nil
			continue
		}
		if isNullish(value) {
			resultMap[collected.ResponseName] = nil
		} else {
			resultMap[collected.ResponseName] = value
		}
	}
	return resultMap
}

// getFieldDefinition looks up the definition of field on objectType and
// records an error when the field cannot be served.
func getFieldDefinition(state *executionState, objectType *schema.Type, field *language.Field, parentPath, path language.Path) (*schema.Field, bool) {
	isRoot := len(parentPath) == 0
	if isRoot && (field.Name == schemaMetaField.Name || field.Name == typeMetaField.Name) {
		if !state.enabled {
			state.addError(field.Position, path, "Introspection is disabled")
			return nil, false
		}
		if field.Name == schemaMetaField.Name {
			return schemaMetaField, true
		}
		return typeMetaField, true
	}

	fieldDef := objectType.Field(field.Name)
	if fieldDef == nil {
		state.addError(field.Position, path, "Cannot query field %q on type %q.", field.Name, objectType.Name)
		return nil, false
	}
	if isRoot {
		state.addError(field.Position, path, "Field %q on type %q has no resolver: only introspection fields are served", field.Name, objectType.Name)
		return nil, false
	}
	return fieldDef, true
}

func executeField(state *executionState, objectType *schema.Type, fieldDef *schema.Field, source any, fields []*language.Field, path language.Path) any {
	field := fields[0]
	if err := state.ctx.Err(); err != nil {
		state.addError(field.Position, path, "%s", err.Error())
		return nil
	}

	args, err := coerceArgumentValues(fieldDef, field, state.variables)
	if err != nil {
		err.Path = path
		state.errors = append(state.errors, err)
		return nil
	}

	var resolved any
	switch {
	case fieldDef == schemaMetaField:
		resolved = state.schema
	case fieldDef == typeMetaField:
		name, _ := args["name"].(string)
		resolved = state.meta.Type(name)
	default:
		value, ok := state.resolveField(source, fieldDef.Name, args)
		if !ok {
			state.addError(field.Position, path, "Cannot resolve field %q on type %q", fieldDef.Name, objectType.Name)
			return nil
		}
		resolved = value
	}
	return completeValue(state, fieldDef.Type, fields, resolved, path)
}

func completeValue(state *executionState, fieldType *schema.TypeRef, fields []*language.Field, result any, path language.Path) any {
	if schema.IsNonNull(fieldType) {
		if isNullish(result) {
			if !state.hasErrorAtPath(path) {
				state.addError(fields[0].Position, path, "Cannot return null for non-nullable field %s", path.String())
			}
			return nil
		}
		completed := completeValue(state, fieldType.Unwrap(), fields, result, path)
		if isNullish(completed) {
			return nil
		}
		return completed
	}

	if isNullish(result) {
		return nil
	}

	if fieldType.Kind == schema.TypeRefKindList {
		return completeListValue(state, fieldType, fields, result, path)
	}

	typeObj := state.meta.Type(fieldType.Named)
	if typeObj == nil {
		state.addError(fields[0].Position, path, "Unknown type: %s", fieldType.Named)
		return nil
	}

	switch typeObj.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		return serializeLeafValue(result)
	case schema.TypeKindObject:
		return executeSelectionSet(state, typeObj, mergeSelectionSets(fields), result, path)
	default:
		state.addError(fields[0].Position, path, "Cannot complete value of unexpected type: %s", typeObj.Kind)
		return nil
	}
}

func completeListValue(state *executionState, listType *schema.TypeRef, fields []*language.Field, result any, path language.Path) any {
	rv := reflect.ValueOf(result)
	if rv.Kind() != reflect.Slice {
		state.addError(fields[0].Position, path, "Expected list value, got %T", result)
		return nil
	}

	inner := listType.Unwrap()
	completed := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		v := completeValue(state, inner, fields, rv.Index(i).Interface(), appendPath(path, language.PathIndex(i)))
		if schema.IsNonNull(inner) && isNullish(v) {
			return nil
		}
		completed[i] = v
	}
	return completed
}

// serializeLeafValue dereferences optional strings produced by resolvers.
func serializeLeafValue(value any) any {
	if s, ok := value.(*string); ok {
		return *s
	}
	return value
}

func getOperation(document *language.QueryDocument, operationName string) (*language.OperationDefinition, *language.Error) {
	if operationName == "" {
		if len(document.Operations) == 1 {
			return document.Operations[0], nil
		}
		if len(document.Operations) == 0 {
			return nil, language.Errorf(nil, "Document does not contain an operation")
		}
		return nil, language.Errorf(nil, "Must provide operation name if query contains multiple operations")
	}
	if op := document.Operations.ForName(operationName); op != nil {
		return op, nil
	}
	return nil, language.Errorf(nil, "Unknown operation named %q", operationName)
}

func (state *executionState) addError(pos *language.Position, path language.Path, format string, args ...any) {
	err := language.Errorf(pos, format, args...)
	err.Path = path
	state.errors = append(state.errors, err)
}

// hasErrorAtPath reports whether an error with the given path already exists.
func (state *executionState) hasErrorAtPath(path language.Path) bool {
	key := path.String()
	for _, err := range state.errors {
		if err.Path.String() == key {
			return true
		}
	}
	return false
}

func appendPath(path language.Path, elem language.PathElement) language.Path {
	next := make(language.Path, len(path)+1)
	copy(next, path)
	next[len(path)] = elem
	return next
}

// mergeSelectionSets merges selection sets from multiple fields
func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
