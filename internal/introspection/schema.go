package introspection

import (
	schema "github.com/hanpama/typegraph/internal/schema"
)

// withMetaTypes returns a schema holding every type of original plus the
// introspection types. original is not modified.
func withMetaTypes(original *schema.Schema) *schema.Schema {
	extended := schema.NewSchema(original.Description)
	extended.QueryType = original.QueryType
	extended.MutationType = original.MutationType
	extended.SubscriptionType = original.SubscriptionType
	extended.Directives = original.Directives
	for name, typ := range original.Types {
		extended.Types[name] = typ
	}
	for _, typ := range metaTypes {
		extended.AddType(typ)
	}
	return extended
}

var (
	schemaMetaField = schema.NewField("__schema", "Access the current type schema of this server.",
		schema.NonNullType(schema.NamedType("__Schema")))

	typeMetaField = schema.NewField("__type", "Request the type information of a single type.",
		schema.NamedType("__Type")).
		AddArgument(schema.NewInputValue("name", "The name of the type to look up.", schema.NonNullType(schema.NamedType("String"))))
)

var metaTypes = []*schema.Type{
	schema.NewType("__Schema", schema.TypeKindObject, "A GraphQL Schema defines the capabilities of a GraphQL server.").
		AddField(schema.NewField("description", "A description of the schema.", schema.NamedType("String"))).
		AddField(schema.NewField("types", "A list of all types supported by this server.", nonNullListOf("__Type"))).
		AddField(schema.NewField("queryType", "The type that query operations will be rooted at.", schema.NonNullType(schema.NamedType("__Type")))).
		AddField(schema.NewField("mutationType", "If this server supports mutation, the type that mutation operations will be rooted at.", schema.NamedType("__Type"))).
		AddField(schema.NewField("subscriptionType", "If this server support subscription, the type that subscription operations will be rooted at.", schema.NamedType("__Type"))).
		AddField(schema.NewField("directives", "A list of all directives supported by this server.", nonNullListOf("__Directive"))),

	schema.NewType("__Type", schema.TypeKindObject, "The fundamental unit of any GraphQL Schema is the type.").
		AddField(schema.NewField("kind", "", schema.NonNullType(schema.NamedType("__TypeKind")))).
		AddField(schema.NewField("name", "", schema.NamedType("String"))).
		AddField(schema.NewField("description", "", schema.NamedType("String"))).
		AddField(schema.NewField("specifiedByURL", "", schema.NamedType("String"))).
		AddField(schema.NewField("fields", "", listOf("__Field")).AddArgument(includeDeprecatedArg())).
		AddField(schema.NewField("interfaces", "", listOf("__Type"))).
		AddField(schema.NewField("possibleTypes", "", listOf("__Type"))).
		AddField(schema.NewField("enumValues", "", listOf("__EnumValue")).AddArgument(includeDeprecatedArg())).
		AddField(schema.NewField("inputFields", "", listOf("__InputValue")).AddArgument(includeDeprecatedArg())).
		AddField(schema.NewField("ofType", "", schema.NamedType("__Type"))).
		AddField(schema.NewField("isOneOf", "", schema.NamedType("Boolean"))),

	schema.NewType("__Field", schema.TypeKindObject, "Object and Interface types are described by a list of Fields, each of which has a name, potentially a list of arguments, and a return type.").
		AddField(schema.NewField("name", "", schema.NonNullType(schema.NamedType("String")))).
		AddField(schema.NewField("description", "", schema.NamedType("String"))).
		AddField(schema.NewField("args", "", nonNullListOf("__InputValue")).AddArgument(includeDeprecatedArg())).
		AddField(schema.NewField("type", "", schema.NonNullType(schema.NamedType("__Type")))).
		AddField(schema.NewField("isDeprecated", "", schema.NonNullType(schema.NamedType("Boolean")))).
		AddField(schema.NewField("deprecationReason", "", schema.NamedType("String"))),

	schema.NewType("__InputValue", schema.TypeKindObject, "Arguments provided to Fields or Directives and the input fields of an InputObject are represented as Input Values which describe their type and optionally a default value.").
		AddField(schema.NewField("name", "", schema.NonNullType(schema.NamedType("String")))).
		AddField(schema.NewField("description", "", schema.NamedType("String"))).
		AddField(schema.NewField("type", "", schema.NonNullType(schema.NamedType("__Type")))).
		AddField(schema.NewField("defaultValue", "A GraphQL-formatted string representing the default value for this input value.", schema.NamedType("String"))).
		AddField(schema.NewField("isDeprecated", "", schema.NonNullType(schema.NamedType("Boolean")))).
		AddField(schema.NewField("deprecationReason", "", schema.NamedType("String"))),

	schema.NewType("__EnumValue", schema.TypeKindObject, "One possible value for a given Enum.").
		AddField(schema.NewField("name", "", schema.NonNullType(schema.NamedType("String")))).
		AddField(schema.NewField("description", "", schema.NamedType("String"))).
		AddField(schema.NewField("isDeprecated", "", schema.NonNullType(schema.NamedType("Boolean")))).
		AddField(schema.NewField("deprecationReason", "", schema.NamedType("String"))),

	schema.NewType("__Directive", schema.TypeKindObject, "A Directive provides a way to describe alternate runtime execution and type validation behavior in a GraphQL document.").
		AddField(schema.NewField("name", "", schema.NonNullType(schema.NamedType("String")))).
		AddField(schema.NewField("description", "", schema.NamedType("String"))).
		AddField(schema.NewField("isRepeatable", "", schema.NonNullType(schema.NamedType("Boolean")))).
		AddField(schema.NewField("locations", "", nonNullListOf("__DirectiveLocation"))).
		AddField(schema.NewField("args", "", nonNullListOf("__InputValue")).AddArgument(includeDeprecatedArg())),

	enumType("__TypeKind", "An enum describing what kind of type a given `__Type` is.",
		"SCALAR", "OBJECT", "INTERFACE", "UNION", "ENUM", "INPUT_OBJECT", "LIST", "NON_NULL"),

	enumType("__DirectiveLocation", "A Directive can be adjacent to many parts of the GraphQL language, a __DirectiveLocation describes one such possible adjacencies.",
		"QUERY", "MUTATION", "SUBSCRIPTION", "FIELD", "FRAGMENT_DEFINITION", "FRAGMENT_SPREAD",
		"INLINE_FRAGMENT", "VARIABLE_DEFINITION", "SCHEMA", "SCALAR", "OBJECT", "FIELD_DEFINITION",
		"ARGUMENT_DEFINITION", "INTERFACE", "UNION", "ENUM", "ENUM_VALUE", "INPUT_OBJECT",
		"INPUT_FIELD_DEFINITION"),
}

// [T!]
func listOf(name string) *schema.TypeRef {
	return schema.ListType(schema.NonNullType(schema.NamedType(name)))
}

// [T!]!
func nonNullListOf(name string) *schema.TypeRef {
	return schema.NonNullType(listOf(name))
}

func includeDeprecatedArg() *schema.InputValue {
	return schema.NewInputValue("includeDeprecated", "", schema.NamedType("Boolean")).SetDefault(false)
}

func enumType(name, description string, values ...string) *schema.Type {
	t := schema.NewType(name, schema.TypeKindEnum, description)
	for _, v := range values {
		t.AddEnumValue(schema.NewEnumValue(v, ""))
	}
	return t
}

// IsMetaType reports whether name is one of the introspection types.
func IsMetaType(name string) bool {
	for _, t := range metaTypes {
		if t.Name == name {
			return true
		}
	}
	return false
}
