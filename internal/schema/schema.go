package schema

// Schema is an immutable, fully resolved GraphQL schema.
// Object and interface types carry their closed field and interface lists.
type Schema struct {
	QueryType        string                `json:"queryType,omitempty" yaml:"queryType,omitempty"`
	MutationType     string                `json:"mutationType,omitempty" yaml:"mutationType,omitempty"`
	SubscriptionType string                `json:"subscriptionType,omitempty" yaml:"subscriptionType,omitempty"`
	Types            map[string]*Type      `json:"types" yaml:"types"`
	Directives       map[string]*Directive `json:"directives" yaml:"directives"`
	Description      string                `json:"description,omitempty" yaml:"description,omitempty"`
}

// GetQueryType returns the root query type (may be nil if absent)
func (s *Schema) GetQueryType() *Type { return s.Type(s.QueryType) }

// GetMutationType returns the root mutation type (may be nil if absent)
func (s *Schema) GetMutationType() *Type { return s.Type(s.MutationType) }

// GetSubscriptionType returns the root subscription type (may be nil if absent)
func (s *Schema) GetSubscriptionType() *Type { return s.Type(s.SubscriptionType) }

// Type returns the named type or nil.
func (s *Schema) Type(name string) *Type {
	if s == nil || name == "" {
		return nil
	}
	return s.Types[name]
}

// Type is a named GraphQL type (object, interface, union, scalar, enum, input)
type Type struct {
	Name           string        `json:"name" yaml:"name"`
	Kind           TypeKind      `json:"kind" yaml:"kind"`
	Description    string        `json:"description,omitempty" yaml:"description,omitempty"`
	Fields         []*Field      `json:"fields,omitempty" yaml:"fields,omitempty"`               // For OBJECT and INTERFACE
	Interfaces     []string      `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`       // For OBJECT and INTERFACE
	PossibleTypes  []string      `json:"possibleTypes,omitempty" yaml:"possibleTypes,omitempty"` // For INTERFACE and UNION
	EnumValues     []*EnumValue  `json:"enumValues,omitempty" yaml:"enumValues,omitempty"`
	InputFields    []*InputValue `json:"inputFields,omitempty" yaml:"inputFields,omitempty"`
	SpecifiedByURL *string       `json:"specifiedByURL,omitempty" yaml:"specifiedByURL,omitempty"`
	OneOf          bool          `json:"oneOf,omitempty" yaml:"oneOf,omitempty"`
}

// Field represents a field on an object or interface
type Field struct {
	Name              string        `json:"name" yaml:"name"`
	Description       string        `json:"description,omitempty" yaml:"description,omitempty"`
	Type              *TypeRef      `json:"type" yaml:"type"`
	Arguments         []*InputValue `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	IsDeprecated      bool          `json:"isDeprecated,omitempty" yaml:"isDeprecated,omitempty"`
	DeprecationReason string        `json:"deprecationReason,omitempty" yaml:"deprecationReason,omitempty"`
}

// TypeKind represents the kind of GraphQL type
type TypeKind string

const (
	// TypeKindUnknown is reported for names that were never registered.
	TypeKindUnknown     TypeKind = ""
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// IsComposite reports whether types of this kind own fields and interfaces.
func (k TypeKind) IsComposite() bool {
	return k == TypeKindObject || k == TypeKindInterface
}

// TypeRef represents a reference to a type (can be wrapped)
type TypeRef struct {
	Kind   TypeRefKind `json:"kind" yaml:"kind"`
	OfType *TypeRef    `json:"ofType,omitempty" yaml:"ofType,omitempty"` // For List and NonNull
	Named  string      `json:"named,omitempty" yaml:"named,omitempty"`   // For named types
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

func (t *TypeRef) IsNonNull() bool {
	return t != nil && t.Kind == TypeRefKindNonNull
}

func (t *TypeRef) IsList() bool {
	if t == nil {
		return false
	}
	if t.Kind == TypeRefKindList {
		return true
	}
	if t.Kind == TypeRefKindNonNull && t.OfType != nil {
		return t.OfType.Kind == TypeRefKindList
	}
	return false
}

func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNonNull || t.Kind == TypeRefKindList {
		return t.OfType
	}
	return t
}

func (t *TypeRef) GetNamedType() string {
	current := t
	for current != nil {
		if current.Named != "" {
			return current.Named
		}
		current = current.OfType
	}
	return ""
}

// String renders the reference in SDL notation, e.g. "[String!]!".
func (t *TypeRef) String() string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case TypeRefKindNamed:
		return t.Named
	case TypeRefKindList:
		return "[" + t.OfType.String() + "]"
	case TypeRefKindNonNull:
		return t.OfType.String() + "!"
	}
	return ""
}

// Equal reports whether both references have the same wrapping and named type.
func (t *TypeRef) Equal(o *TypeRef) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TypeRefKindNamed:
		return t.Named == o.Named
	case TypeRefKindList, TypeRefKindNonNull:
		return t.OfType.Equal(o.OfType)
	}
	return false
}

type EnumValue struct {
	Name              string `json:"name" yaml:"name"`
	Description       string `json:"description,omitempty" yaml:"description,omitempty"`
	IsDeprecated      bool   `json:"isDeprecated,omitempty" yaml:"isDeprecated,omitempty"`
	DeprecationReason string `json:"deprecationReason,omitempty" yaml:"deprecationReason,omitempty"`
}

type InputValue struct {
	Name              string   `json:"name" yaml:"name"`
	Description       string   `json:"description,omitempty" yaml:"description,omitempty"`
	Type              *TypeRef `json:"type" yaml:"type"`
	DefaultValue      any      `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	IsDeprecated      bool     `json:"isDeprecated,omitempty" yaml:"isDeprecated,omitempty"`
	DeprecationReason string   `json:"deprecationReason,omitempty" yaml:"deprecationReason,omitempty"`
}

type Directive struct {
	Name         string        `json:"name" yaml:"name"`
	Description  string        `json:"description,omitempty" yaml:"description,omitempty"`
	Locations    []string      `json:"locations" yaml:"locations"`
	Arguments    []*InputValue `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	IsRepeatable bool          `json:"isRepeatable,omitempty" yaml:"isRepeatable,omitempty"`
}

func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

// IsNonNull reports whether the type is wrapped with Non-Null.
func IsNonNull(t *TypeRef) bool { return t != nil && t.IsNonNull() }

// IsList reports whether the type is (or is wrapped by) a list type.
func IsList(t *TypeRef) bool { return t != nil && t.IsList() }

// GetNamedType returns the innermost named type for the given reference.
func GetNamedType(t *TypeRef) string { return t.GetNamedType() }
