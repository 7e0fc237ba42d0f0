package introspection_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/typegraph/internal/introspection"
	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/typegraph"
)

func buildSchema(t *testing.T) *schema.Schema {
	t.Helper()
	reg := typegraph.New()
	require.NoError(t, reg.RegisterType(schema.NewType("Query", schema.TypeKindObject, "").
		AddField(schema.NewField("test", "", schema.NamedType("TestType")))))
	require.NoError(t, reg.RegisterType(schema.NewType("TestType", schema.TypeKindObject, "A test object.").
		AddField(schema.NewField("a", "", schema.NamedType("String"))).
		AddField(schema.NewField("old", "", schema.NamedType("String")).Deprecate("use a"))))
	require.NoError(t, reg.RegisterType(schema.NewType("TestInterface", schema.TypeKindInterface, "").
		AddField(schema.NewField("b", "", schema.NonNullType(schema.NamedType("Int"))).
			AddArgument(schema.NewInputValue("limit", "", schema.NamedType("Int")).SetDefault(int64(10))))))
	require.NoError(t, reg.RegisterType(schema.NewType("TestInterfaceTwo", schema.TypeKindInterface, "").
		AddField(schema.NewField("c", "", schema.ListType(schema.NonNullType(schema.NamedType("String")))))))
	require.NoError(t, reg.RegisterType(schema.NewType("Color", schema.TypeKindEnum, "").
		AddEnumValue(schema.NewEnumValue("RED", "")).
		AddEnumValue(schema.NewEnumValue("BLUE", "")).
		AddEnumValue(schema.NewEnumValue("MAGENTA", "").Deprecate("too bright"))))
	require.NoError(t, reg.RegisterInterfaces([]string{"TestInterface"}, []string{"TestType"}))
	require.NoError(t, reg.RegisterInterfaces([]string{"TestInterfaceTwo"}, []string{"TestInterface"}))

	sch, err := reg.Build()
	require.NoError(t, err)
	return sch
}

func execute(t *testing.T, exec *introspection.Executor, query string, vars map[string]any) *introspection.Result {
	t.Helper()
	return exec.ExecuteQuery(context.Background(), query, "", vars)
}

func names(v any) []string {
	var out []string
	for _, item := range v.([]any) {
		out = append(out, item.(map[string]any)["name"].(string))
	}
	return out
}

func TestTypeReflectsResolvedGraph(t *testing.T) {
	exec := introspection.New(buildSchema(t))
	res := execute(t, exec, `{
		__type(name: "TestType") {
			kind
			name
			description
			fields { name }
			interfaces { name }
		}
	}`, nil)
	require.Empty(t, res.Errors)

	typ := res.Data["__type"].(map[string]any)
	require.Equal(t, "OBJECT", typ["kind"])
	require.Equal(t, "TestType", typ["name"])
	require.Equal(t, "A test object.", typ["description"])
	require.Equal(t, []string{"a", "b", "c"}, names(typ["fields"]))
	require.Equal(t, []string{"TestInterface", "TestInterfaceTwo"}, names(typ["interfaces"]))
}

func TestInterfacePossibleTypes(t *testing.T) {
	exec := introspection.New(buildSchema(t))
	res := execute(t, exec, `{
		one: __type(name: "TestInterface") { kind fields { name } interfaces { name } possibleTypes { name } }
		two: __type(name: "TestInterfaceTwo") { possibleTypes { name } }
	}`, nil)
	require.Empty(t, res.Errors)

	one := res.Data["one"].(map[string]any)
	require.Equal(t, "INTERFACE", one["kind"])
	require.Equal(t, []string{"b", "c"}, names(one["fields"]))
	require.Equal(t, []string{"TestInterfaceTwo"}, names(one["interfaces"]))
	require.Equal(t, []string{"TestType"}, names(one["possibleTypes"]))

	two := res.Data["two"].(map[string]any)
	require.Equal(t, []string{"TestType"}, names(two["possibleTypes"]))
}

func TestFieldTypesAndArguments(t *testing.T) {
	exec := introspection.New(buildSchema(t))
	res := execute(t, exec, `{
		__type(name: "TestType") {
			fields {
				name
				args { name defaultValue type { name } }
				type { kind name ofType { kind name ofType { kind name } } }
			}
		}
	}`, nil)
	require.Empty(t, res.Errors)

	want := map[string]any{
		"__type": map[string]any{
			"fields": []any{
				map[string]any{
					"name": "a",
					"args": []any{},
					"type": map[string]any{"kind": "SCALAR", "name": "String", "ofType": nil},
				},
				map[string]any{
					"name": "b",
					"args": []any{
						map[string]any{"name": "limit", "defaultValue": "10", "type": map[string]any{"name": "Int"}},
					},
					"type": map[string]any{
						"kind":   "NON_NULL",
						"name":   nil,
						"ofType": map[string]any{"kind": "SCALAR", "name": "Int", "ofType": nil},
					},
				},
				map[string]any{
					"name": "c",
					"args": []any{},
					"type": map[string]any{
						"kind": "LIST",
						"name": nil,
						"ofType": map[string]any{
							"kind":   "NON_NULL",
							"name":   nil,
							"ofType": map[string]any{"kind": "SCALAR", "name": "String"},
						},
					},
				},
			},
		},
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Errorf("unexpected result (-want +got):\n%s", diff)
	}
}

func TestIncludeDeprecated(t *testing.T) {
	exec := introspection.New(buildSchema(t))
	res := execute(t, exec, `query ($all: Boolean = false) {
		color: __type(name: "Color") {
			enumValues(includeDeprecated: $all) { name isDeprecated deprecationReason }
		}
		test: __type(name: "TestType") {
			fields(includeDeprecated: true) { name isDeprecated deprecationReason }
		}
	}`, map[string]any{"all": true})
	require.Empty(t, res.Errors)

	values := res.Data["color"].(map[string]any)["enumValues"].([]any)
	require.Len(t, values, 3)
	require.Equal(t, map[string]any{"name": "MAGENTA", "isDeprecated": true, "deprecationReason": "too bright"}, values[2])

	fields := res.Data["test"].(map[string]any)["fields"].([]any)
	require.Equal(t, []string{"a", "old", "b", "c"}, names(fields))
	require.Equal(t, nil, fields[0].(map[string]any)["deprecationReason"])

	res = execute(t, exec, `{ __type(name: "Color") { enumValues { name } } }`, nil)
	require.Empty(t, res.Errors)
	require.Equal(t, []string{"RED", "BLUE"}, names(res.Data["__type"].(map[string]any)["enumValues"]))
}

func TestSchemaField(t *testing.T) {
	exec := introspection.New(buildSchema(t))
	res := execute(t, exec, `{
		__schema {
			queryType { name }
			mutationType { name }
			types { name }
			directives { name isRepeatable locations }
		}
	}`, nil)
	require.Empty(t, res.Errors)

	sch := res.Data["__schema"].(map[string]any)
	require.Equal(t, map[string]any{"name": "Query"}, sch["queryType"])
	require.Nil(t, sch["mutationType"])

	typeNames := names(sch["types"])
	require.Contains(t, typeNames, "TestType")
	require.Contains(t, typeNames, "__Schema")
	require.Contains(t, typeNames, "String")
	require.IsIncreasing(t, typeNames)

	dirs := names(sch["directives"])
	require.Contains(t, dirs, "deprecated")
	require.Contains(t, dirs, "skip")
}

func TestFragmentsAndDirectives(t *testing.T) {
	exec := introspection.New(buildSchema(t))
	res := execute(t, exec, `
		query ($withFields: Boolean!) {
			__type(name: "TestInterface") {
				...typeInfo
				... on __Type { kind }
				fields @include(if: $withFields) { name }
				description @skip(if: true)
			}
		}
		fragment typeInfo on __Type { name __typename }
	`, map[string]any{"withFields": false})
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{
		"__type": map[string]any{"name": "TestInterface", "__typename": "__Type", "kind": "INTERFACE"},
	}, res.Data)
}

func TestUnknownTypeIsNull(t *testing.T) {
	exec := introspection.New(buildSchema(t))
	res := execute(t, exec, `{ __type(name: "Missing") { name } __typename }`, nil)
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"__type": nil, "__typename": "Query"}, res.Data)
}

func TestMetaTypesAreQueryable(t *testing.T) {
	exec := introspection.New(buildSchema(t))
	res := execute(t, exec, `{ __type(name: "__TypeKind") { kind enumValues { name } } }`, nil)
	require.Empty(t, res.Errors)
	typ := res.Data["__type"].(map[string]any)
	require.Equal(t, "ENUM", typ["kind"])
	require.Equal(t, []string{"SCALAR", "OBJECT", "INTERFACE", "UNION", "ENUM", "INPUT_OBJECT", "LIST", "NON_NULL"}, names(typ["enumValues"]))
	require.True(t, introspection.IsMetaType("__TypeKind"))
	require.False(t, introspection.IsMetaType("TestType"))
}

func TestNonIntrospectionFieldsAreRejected(t *testing.T) {
	exec := introspection.New(buildSchema(t))
	res := execute(t, exec, `{ test { a } missing }`, nil)
	require.Len(t, res.Errors, 2)
	require.Contains(t, res.Errors[0].Message, "only introspection fields are served")
	require.Equal(t, "test", res.Errors[0].Path.String())
	require.Equal(t, 1, res.Errors[0].Locations[0].Line)
	require.Contains(t, res.Errors[1].Message, `Cannot query field "missing" on type "Query"`)
	require.Equal(t, map[string]any{"test": nil, "missing": nil}, res.Data)
}

func TestIntrospectionDisabled(t *testing.T) {
	exec := introspection.New(buildSchema(t), introspection.WithIntrospection(false))
	res := execute(t, exec, `{ __typename __schema { queryType { name } } }`, nil)
	require.Len(t, res.Errors, 1)
	require.Equal(t, "Introspection is disabled", res.Errors[0].Message)
	require.Equal(t, "Query", res.Data["__typename"])
}

func TestRequestErrors(t *testing.T) {
	exec := introspection.New(buildSchema(t))

	res := execute(t, exec, `{ __type(name: `, nil)
	require.Len(t, res.Errors, 1)
	require.Nil(t, res.Data)

	res = execute(t, exec, `query A { __typename } query B { __typename }`, nil)
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0].Message, "Must provide operation name")

	res = exec.ExecuteQuery(context.Background(), `query A { __typename } query B { __typename }`, "B", nil)
	require.Empty(t, res.Errors)

	res = execute(t, exec, `mutation { __typename }`, nil)
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0].Message, "not configured for mutation")

	res = execute(t, exec, `query ($name: String!) { __type(name: $name) { name } }`, nil)
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0].Message, "was not provided")

	res = execute(t, exec, `query ($name: String!) { __type(name: $name) { name } }`, map[string]any{"name": 12.0})
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0].Message, "cannot be coerced")

	res = execute(t, exec, `{ __type { name } }`, nil)
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0].Message, `argument "name" of required type String! was not provided`)
}

func TestCanceledContext(t *testing.T) {
	exec := introspection.New(buildSchema(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := exec.ExecuteQuery(ctx, `{ __typename }`, "", nil)
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0].Message, "context canceled")
}
