package sdl

import (
	"strconv"
	"strings"

	language "github.com/hanpama/typegraph/internal/language"
	"github.com/hanpama/typegraph/internal/schema"
)

const defaultDeprecationReason = "No longer supported"

type builder struct {
	types          map[string]*schema.Type
	order          []string
	directives     map[string]*schema.Directive
	directiveOrder []string
	doc            *Document
	schemaDefined  bool
	violations     []*Violation
}

func newBuilder() *builder {
	return &builder{
		types:      make(map[string]*schema.Type),
		directives: make(map[string]*schema.Directive),
		doc:        &Document{},
	}
}

func (b *builder) addViolation(v *Violation) {
	b.violations = append(b.violations, v)
}

func (b *builder) build(docs []*language.SchemaDocument) (*Document, error) {
	for _, doc := range docs {
		for _, node := range doc.Definitions {
			b.addDefinition(node)
		}
	}
	for _, doc := range docs {
		for _, node := range doc.Extensions {
			b.addExtension(node)
		}
	}
	for _, doc := range docs {
		for _, node := range doc.Directives {
			b.addDirective(node)
		}
	}
	for _, doc := range docs {
		for _, node := range doc.Schema {
			if b.schemaDefined {
				b.addViolation(violationSchemaAlreadyDefined(node.Position))
				continue
			}
			b.schemaDefined = true
			b.doc.Description = node.Description
			b.addRootOperations(node)
		}
	}
	for _, doc := range docs {
		for _, node := range doc.SchemaExtension {
			b.addRootOperations(node)
		}
	}
	for _, doc := range docs {
		b.checkReferences(doc)
	}

	if len(b.violations) > 0 {
		return nil, ValidationError(b.violations)
	}

	for _, name := range b.order {
		b.doc.Types = append(b.doc.Types, b.types[name])
	}
	for _, name := range b.directiveOrder {
		b.doc.Directives = append(b.doc.Directives, b.directives[name])
	}
	return b.doc, nil
}

func typeKind(kind language.DefinitionKind) schema.TypeKind {
	switch kind {
	case language.Object:
		return schema.TypeKindObject
	case language.Interface:
		return schema.TypeKindInterface
	case language.Union:
		return schema.TypeKindUnion
	case language.Enum:
		return schema.TypeKindEnum
	case language.InputObject:
		return schema.TypeKindInputObject
	case language.Scalar:
		return schema.TypeKindScalar
	}
	return schema.TypeKindUnknown
}

func (b *builder) addDefinition(node *language.Definition) {
	if _, ok := b.types[node.Name]; ok || schema.IsBuiltinScalar(node.Name) {
		b.addViolation(violationDefinitionAlreadyExists(node.Name, node.Position))
		return
	}
	t := schema.NewType(node.Name, typeKind(node.Kind), node.Description)
	b.extendType(t, node)
	b.types[node.Name] = t
	b.order = append(b.order, node.Name)
}

func (b *builder) addExtension(node *language.Definition) {
	t := b.types[node.Name]
	if t == nil {
		b.addViolation(violationDefinitionNotFoundForExtension(node.Name, node.Position))
		return
	}
	if t.Kind != typeKind(node.Kind) {
		b.addViolation(violationUnexpectedTypeForExtension(node, strings.ToLower(string(t.Kind))))
		return
	}
	b.extendType(t, node)
}

// extendType adds the members declared by node to t.
func (b *builder) extendType(t *schema.Type, node *language.Definition) {
	switch node.Kind {
	case language.Object, language.Interface:
		for _, fieldNode := range node.Fields {
			if strings.HasPrefix(fieldNode.Name, "__") {
				b.addViolation(violationReservedFieldPrefix("Field", fieldNode.Name, fieldNode.Position))
				continue
			}
			if t.Field(fieldNode.Name) != nil {
				b.addViolation(violationDuplicateField(strings.ToLower(string(t.Kind)), fieldNode.Name, node.Name, fieldNode.Position))
				continue
			}
			t.AddField(b.field(fieldNode))
		}
		for _, iface := range node.Interfaces {
			t.AddInterface(iface)
		}
	case language.Union:
		for _, member := range node.Types {
			t.AddPossibleType(member)
		}
	case language.Enum:
		for _, valueNode := range node.EnumValues {
			if hasEnumValue(t, valueNode.Name) {
				b.addViolation(violationDuplicateEnumValue(valueNode.Name, node.Name, valueNode.Position))
				continue
			}
			v := schema.NewEnumValue(valueNode.Name, valueNode.Description)
			if deprecated, reason := deprecation(valueNode.Directives); deprecated {
				v.Deprecate(reason)
			}
			t.AddEnumValue(v)
		}
	case language.InputObject:
		for _, fieldNode := range node.Fields {
			if hasInputField(t, fieldNode.Name) {
				b.addViolation(violationDuplicateField("input", fieldNode.Name, node.Name, fieldNode.Position))
				continue
			}
			v := schema.NewInputValue(fieldNode.Name, fieldNode.Description, typeRef(fieldNode.Type))
			if fieldNode.DefaultValue != nil {
				v.SetDefault(b.constValue(fieldNode.DefaultValue))
			}
			if deprecated, reason := deprecation(fieldNode.Directives); deprecated {
				v.Deprecate(reason)
			}
			t.AddInputField(v)
		}
		if node.Directives.ForName("oneOf") != nil {
			t.SetOneOf(true)
		}
	case language.Scalar:
		if d := node.Directives.ForName("specifiedBy"); d != nil {
			if arg := d.Arguments.ForName("url"); arg != nil && arg.Value != nil {
				t.SetSpecifiedByURL(arg.Value.Raw)
			}
		}
	}
}

func hasEnumValue(t *schema.Type, name string) bool {
	for _, v := range t.EnumValues {
		if v.Name == name {
			return true
		}
	}
	return false
}

func hasInputField(t *schema.Type, name string) bool {
	for _, v := range t.InputFields {
		if v.Name == name {
			return true
		}
	}
	return false
}

func (b *builder) field(node *language.FieldDefinition) *schema.Field {
	f := schema.NewField(node.Name, node.Description, typeRef(node.Type))
	for _, argNode := range node.Arguments {
		if strings.HasPrefix(argNode.Name, "__") {
			b.addViolation(violationReservedFieldPrefix("Argument", argNode.Name, argNode.Position))
			continue
		}
		f.AddArgument(b.argument(argNode))
	}
	if deprecated, reason := deprecation(node.Directives); deprecated {
		f.Deprecate(reason)
	}
	return f
}

func (b *builder) argument(node *language.ArgumentDefinition) *schema.InputValue {
	v := schema.NewInputValue(node.Name, node.Description, typeRef(node.Type))
	if node.DefaultValue != nil {
		v.SetDefault(b.constValue(node.DefaultValue))
	}
	if deprecated, reason := deprecation(node.Directives); deprecated {
		v.Deprecate(reason)
	}
	return v
}

func (b *builder) addDirective(node *language.DirectiveDefinition) {
	if _, ok := b.directives[node.Name]; ok || schema.IsBuiltinDirective(node.Name) {
		b.addViolation(violationDirectiveAlreadyDefined(node.Name, node.Position))
		return
	}
	d := schema.NewDirective(node.Name, node.Description).SetRepeatable(node.IsRepeatable)
	for _, loc := range node.Locations {
		d.AddLocation(string(loc))
	}
	for _, argNode := range node.Arguments {
		d.AddArgument(b.argument(argNode))
	}
	b.directives[node.Name] = d
	b.directiveOrder = append(b.directiveOrder, node.Name)
}

func (b *builder) addRootOperations(node *language.SchemaDefinition) {
	for _, op := range node.OperationTypes {
		var target *string
		switch op.Operation {
		case language.Query:
			target = &b.doc.QueryType
		case language.Mutation:
			target = &b.doc.MutationType
		case language.Subscription:
			target = &b.doc.SubscriptionType
		default:
			continue
		}
		if *target != "" {
			b.addViolation(violationRootOperationRedefined(op.Operation, op.Position))
			continue
		}
		if _, ok := b.types[op.Type]; !ok {
			b.addViolation(violationTypeNotFound(op.Type, op.Position))
			continue
		}
		*target = op.Type
	}
}

// checkReferences validates every named type used by doc against the merged definitions.
func (b *builder) checkReferences(doc *language.SchemaDocument) {
	nodes := append(append([]*language.Definition(nil), doc.Definitions...), doc.Extensions...)
	for _, node := range nodes {
		switch node.Kind {
		case language.Object, language.Interface:
			for _, f := range node.Fields {
				b.checkOutputType(f.Type)
				for _, a := range f.Arguments {
					b.checkInputType(a.Type)
				}
			}
			for _, iface := range node.Interfaces {
				if b.lookup(iface) == nil {
					b.addViolation(violationTypeNotFound(iface, node.Position))
				}
			}
		case language.InputObject:
			for _, f := range node.Fields {
				b.checkInputType(f.Type)
			}
		case language.Union:
			for _, member := range node.Types {
				t := b.lookup(member)
				if t == nil {
					b.addViolation(violationTypeNotFound(member, node.Position))
				} else if t.Kind != schema.TypeKindObject {
					b.addViolation(violationUnionMemberNotObject(member, node.Name, node.Position))
				}
			}
		}
	}
	for _, d := range doc.Directives {
		for _, a := range d.Arguments {
			b.checkInputType(a.Type)
		}
	}
}

func (b *builder) lookup(name string) *schema.Type {
	if t, ok := b.types[name]; ok {
		return t
	}
	if schema.IsBuiltinScalar(name) {
		return &schema.Type{Name: name, Kind: schema.TypeKindScalar}
	}
	return nil
}

func (b *builder) checkOutputType(node *language.Type) {
	t := b.lookup(node.Name())
	switch {
	case t == nil:
		b.addViolation(violationTypeNotFound(node.Name(), node.Position))
	case t.Kind == schema.TypeKindInputObject:
		b.addViolation(violationTypeNotOutput(node.Name(), node.Position))
	}
}

func (b *builder) checkInputType(node *language.Type) {
	t := b.lookup(node.Name())
	switch {
	case t == nil:
		b.addViolation(violationTypeNotFound(node.Name(), node.Position))
	case t.Kind.IsComposite() || t.Kind == schema.TypeKindUnion:
		b.addViolation(violationTypeNotInput(node.Name(), node.Position))
	}
}

func typeRef(node *language.Type) *schema.TypeRef {
	var ref *schema.TypeRef
	if node.Elem != nil {
		ref = schema.ListType(typeRef(node.Elem))
	} else {
		ref = schema.NamedType(node.NamedType)
	}
	if node.NonNull {
		ref = schema.NonNullType(ref)
	}
	return ref
}

func deprecation(directives language.DirectiveList) (bool, string) {
	d := directives.ForName("deprecated")
	if d == nil {
		return false, ""
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil &&
		(arg.Value.Kind == language.StringValue || arg.Value.Kind == language.BlockValue) {
		return true, arg.Value.Raw
	}
	return true, defaultDeprecationReason
}

// constValue converts a literal default value. Enum values become
// schema.EnumLiteral so they render without quotes.
func (b *builder) constValue(v *language.Value) any {
	switch v.Kind {
	case language.IntValue:
		n, err := strconv.ParseInt(v.Raw, 10, 64)
		if err != nil {
			b.addViolation(violationInvalidDefaultValue(err.Error(), v.Position))
			return nil
		}
		return n
	case language.FloatValue:
		f, err := strconv.ParseFloat(v.Raw, 64)
		if err != nil {
			b.addViolation(violationInvalidDefaultValue(err.Error(), v.Position))
			return nil
		}
		return f
	case language.StringValue, language.BlockValue:
		return v.Raw
	case language.BooleanValue:
		return v.Raw == "true"
	case language.EnumValue:
		return schema.EnumLiteral(v.Raw)
	case language.ListValue:
		items := make([]any, 0, len(v.Children))
		for _, child := range v.Children {
			items = append(items, b.constValue(child.Value))
		}
		return items
	case language.ObjectValue:
		obj := make(map[string]any, len(v.Children))
		for _, child := range v.Children {
			obj[child.Name] = b.constValue(child.Value)
		}
		return obj
	case language.Variable:
		b.addViolation(violationInvalidDefaultValue("variables are not allowed", v.Position))
	}
	return nil
}
