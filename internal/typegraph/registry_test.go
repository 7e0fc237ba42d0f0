package typegraph_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/typegraph/internal/eventbus"
	"github.com/hanpama/typegraph/internal/events"
	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/typegraph"
)

func object(name string, fields ...string) *schema.Type {
	return composite(name, schema.TypeKindObject, fields...)
}

func iface(name string, fields ...string) *schema.Type {
	return composite(name, schema.TypeKindInterface, fields...)
}

func composite(name string, kind schema.TypeKind, fields ...string) *schema.Type {
	t := schema.NewType(name, kind, "")
	for _, f := range fields {
		t.AddField(schema.NewField(f, "", schema.NamedType("String")))
	}
	return t
}

func fieldNames(t *schema.Type) []string {
	out := []string{}
	for _, f := range t.Fields {
		out = append(out, f.Name)
	}
	return out
}

func mustResolve(t *testing.T, r *typegraph.Registry, name string) *schema.Type {
	t.Helper()
	typ, err := r.Resolve(name)
	require.NoError(t, err)
	return typ
}

func TestResolveSingleInterface(t *testing.T) {
	r := typegraph.New()
	require.NoError(t, r.RegisterType(object("TestType", "a")))
	require.NoError(t, r.RegisterType(iface("TestInterface", "b")))
	require.NoError(t, r.RegisterInterfaces([]string{"TestInterface"}, []string{"TestType"}))

	got := mustResolve(t, r, "TestType")
	require.Equal(t, schema.TypeKindObject, got.Kind)
	require.Equal(t, []string{"TestInterface"}, got.Interfaces)
	require.Equal(t, []string{"a", "b"}, fieldNames(got))
}

func TestResolveTwoLevels(t *testing.T) {
	r := typegraph.New()
	require.NoError(t, r.RegisterType(object("TestType", "a")))
	require.NoError(t, r.RegisterType(iface("TestInterface", "b")))
	require.NoError(t, r.RegisterType(iface("TestInterfaceTwo", "c")))
	require.NoError(t, r.RegisterInterfaces([]string{"TestInterfaceTwo"}, []string{"TestInterface"}))
	require.NoError(t, r.RegisterInterfaces([]string{"TestInterface"}, []string{"TestType"}))

	typ := mustResolve(t, r, "TestType")
	require.Equal(t, []string{"TestInterface", "TestInterfaceTwo"}, typ.Interfaces)
	require.Equal(t, []string{"a", "b", "c"}, fieldNames(typ))

	in := mustResolve(t, r, "TestInterface")
	require.Equal(t, []string{"TestInterfaceTwo"}, in.Interfaces)
	require.Equal(t, []string{"b", "c"}, fieldNames(in))
	require.Equal(t, []string{"TestType"}, in.PossibleTypes)

	two := mustResolve(t, r, "TestInterfaceTwo")
	require.Empty(t, two.Interfaces)
	require.Equal(t, []string{"TestType"}, two.PossibleTypes)
}

func TestRegisterInterfacesCrossProduct(t *testing.T) {
	r := typegraph.New()
	for _, typ := range []*schema.Type{
		object("Post", "title"), object("Page", "slug"),
		iface("Node", "id"), iface("UniformResourceIdentifiable", "uri"),
	} {
		require.NoError(t, r.RegisterType(typ))
	}
	require.NoError(t, r.RegisterInterfaces(
		[]string{"Node", "UniformResourceIdentifiable"},
		[]string{"Post", "Page"},
	))

	require.Len(t, r.Edges(), 4)
	for _, name := range []string{"Post", "Page"} {
		got := mustResolve(t, r, name)
		require.Equal(t, []string{"Node", "UniformResourceIdentifiable"}, got.Interfaces)
	}
	require.Equal(t, []string{"title", "id", "uri"}, fieldNames(mustResolve(t, r, "Post")))
}

func TestRegisterInterfacesIdempotent(t *testing.T) {
	build := func(times int) *typegraph.Registry {
		r := typegraph.New()
		require.NoError(t, r.RegisterType(object("TestType", "a")))
		require.NoError(t, r.RegisterType(iface("TestInterface", "b")))
		for i := 0; i < times; i++ {
			require.NoError(t, r.RegisterInterfaces([]string{"TestInterface"}, []string{"TestType"}))
		}
		return r
	}
	once, twice := build(1), build(2)

	require.Equal(t, once.Edges(), twice.Edges())
	a, err := once.Build()
	require.NoError(t, err)
	b, err := twice.Build()
	require.NoError(t, err)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("resolved graph differs (-once +twice):\n%s", diff)
	}
}

func TestRegistrationOrderIndependence(t *testing.T) {
	steps := map[string]func(*typegraph.Registry) error{
		"type":  func(r *typegraph.Registry) error { return r.RegisterType(object("T", "a")) },
		"iface": func(r *typegraph.Registry) error { return r.RegisterType(iface("I", "b")) },
		"upper": func(r *typegraph.Registry) error { return r.RegisterType(iface("J", "c")) },
		"edge":  func(r *typegraph.Registry) error { return r.RegisterInterfaces([]string{"I"}, []string{"T"}) },
		"edge2": func(r *typegraph.Registry) error { return r.RegisterInterfaces([]string{"J"}, []string{"I"}) },
	}
	orders := [][]string{
		{"type", "iface", "upper", "edge", "edge2"},
		{"edge", "edge2", "type", "iface", "upper"},
		{"edge2", "upper", "edge", "iface", "type"},
		{"iface", "edge", "type", "edge2", "upper"},
	}

	var want *schema.Type
	for _, order := range orders {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			r := typegraph.New()
			for _, step := range order {
				require.NoError(t, steps[step](r))
			}
			got := mustResolve(t, r, "T")
			require.Equal(t, []string{"I", "J"}, got.Interfaces)
			require.Equal(t, []string{"a", "b", "c"}, fieldNames(got))
			if want == nil {
				want = got
				return
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("resolved type depends on registration order (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInterfaceCycle(t *testing.T) {
	r := typegraph.New()
	require.NoError(t, r.RegisterType(iface("I", "i")))
	require.NoError(t, r.RegisterType(iface("J", "j")))
	require.NoError(t, r.RegisterType(object("T", "t")))
	require.NoError(t, r.RegisterInterfaces([]string{"J"}, []string{"I"}))
	require.NoError(t, r.RegisterInterfaces([]string{"I"}, []string{"J"}))
	require.NoError(t, r.RegisterInterfaces([]string{"I"}, []string{"T"}))

	require.Equal(t, []string{"J"}, mustResolve(t, r, "I").Interfaces)
	require.Equal(t, []string{"I"}, mustResolve(t, r, "J").Interfaces)

	got := mustResolve(t, r, "T")
	require.Equal(t, []string{"I", "J"}, got.Interfaces)
	require.Equal(t, []string{"t", "i", "j"}, fieldNames(got))
}

func TestSelfImplementationIgnored(t *testing.T) {
	r := typegraph.New()
	require.NoError(t, r.RegisterType(iface("I", "i")))
	require.NoError(t, r.RegisterInterfaces([]string{"I"}, []string{"I"}))

	require.Empty(t, r.Edges())
	require.Empty(t, mustResolve(t, r, "I").Interfaces)
}

func TestIncompatibleFieldStrict(t *testing.T) {
	r := typegraph.New()
	typ := object("T")
	typ.AddField(schema.NewField("a", "", schema.NamedType("String")))
	in := iface("I")
	in.AddField(schema.NewField("a", "", schema.NamedType("Int")))
	require.NoError(t, r.RegisterType(typ))
	require.NoError(t, r.RegisterType(in))
	require.NoError(t, r.RegisterInterfaces([]string{"I"}, []string{"T"}))

	_, err := r.Resolve("T")
	require.Error(t, err)
	var ve typegraph.ValidationError
	require.ErrorAs(t, err, &ve)
	var fe *typegraph.IncompatibleFieldError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "T", fe.Type)
	require.Equal(t, "a", fe.Field)
	require.Equal(t, "I", fe.Interface)
	require.Equal(t, "T", fe.Other)
	require.Contains(t, fe.Error(), `interface "I" expects Int`)

	_, err = r.Build()
	require.ErrorAs(t, err, &fe)
}

func TestIncompatibleFieldLenient(t *testing.T) {
	r := typegraph.New(typegraph.WithStrict(false))
	typ := object("T")
	typ.AddField(schema.NewField("a", "", schema.NamedType("String")))
	in := iface("I")
	in.AddField(schema.NewField("a", "", schema.NamedType("Int")))
	require.NoError(t, r.RegisterType(typ))
	require.NoError(t, r.RegisterType(in))
	require.NoError(t, r.RegisterInterfaces([]string{"I"}, []string{"T"}))

	got := mustResolve(t, r, "T")
	require.Len(t, got.Fields, 1)
	require.Equal(t, "String", got.Fields[0].Type.String())
	require.Len(t, r.Violations(), 1)

	sch, err := r.Build()
	require.NoError(t, err)
	require.NotNil(t, sch.Type("T"))
}

func TestCompatibleOverrideOwnDefinitionWins(t *testing.T) {
	r := typegraph.New()
	typ := object("T")
	typ.AddField(schema.NewField("id", "own", schema.NonNullType(schema.NamedType("ID"))))
	in := iface("Node")
	in.AddField(schema.NewField("id", "inherited", schema.NamedType("ID")))
	require.NoError(t, r.RegisterType(typ))
	require.NoError(t, r.RegisterType(in))
	require.NoError(t, r.RegisterInterfaces([]string{"Node"}, []string{"T"}))

	got := mustResolve(t, r, "T")
	require.Len(t, got.Fields, 1)
	require.Equal(t, "own", got.Fields[0].Description)
	require.Equal(t, "ID!", got.Fields[0].Type.String())
	require.Empty(t, r.Violations())
}

func TestCovariantInterfaceReturnType(t *testing.T) {
	r := typegraph.New()
	node := iface("Node", "id")
	edge := iface("Edge")
	edge.AddField(schema.NewField("node", "", schema.NamedType("Node")))
	user := object("User", "id")
	userEdge := object("UserEdge")
	userEdge.AddField(schema.NewField("node", "", schema.NonNullType(schema.NamedType("User"))))
	for _, typ := range []*schema.Type{node, edge, user, userEdge} {
		require.NoError(t, r.RegisterType(typ))
	}
	require.NoError(t, r.RegisterInterfaces([]string{"Node"}, []string{"User"}))
	require.NoError(t, r.RegisterInterfaces([]string{"Edge"}, []string{"UserEdge"}))

	got := mustResolve(t, r, "UserEdge")
	require.Equal(t, "User!", got.Fields[0].Type.String())
}

func TestInterfaceConflictFirstEdgeWins(t *testing.T) {
	r := typegraph.New(typegraph.WithStrict(false))
	first := iface("First")
	first.AddField(schema.NewField("x", "first", schema.NamedType("String")))
	second := iface("Second")
	second.AddField(schema.NewField("x", "second", schema.NamedType("Int")))
	require.NoError(t, r.RegisterType(object("T", "t")))
	require.NoError(t, r.RegisterType(second))
	require.NoError(t, r.RegisterType(first))
	require.NoError(t, r.RegisterInterfaces([]string{"First"}, []string{"T"}))
	require.NoError(t, r.RegisterInterfaces([]string{"Second"}, []string{"T"}))

	got := mustResolve(t, r, "T")
	require.Equal(t, []string{"First", "Second"}, got.Interfaces)
	require.Equal(t, "first", got.Field("x").Description)

	vs := r.Violations()
	require.Len(t, vs, 1)
	var fe *typegraph.IncompatibleFieldError
	require.True(t, errors.As(vs[0].Cause, &fe))
	require.Equal(t, "Second", fe.Interface)
	require.Equal(t, "First", fe.Other)
}

func TestMoreSpecificInterfaceFieldWins(t *testing.T) {
	for _, order := range [][]string{{"Base", "Special"}, {"Special", "Base"}} {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			r := typegraph.New()
			base := iface("Base")
			base.AddField(schema.NewField("v", "base", schema.NamedType("Int")))
			special := iface("Special")
			special.AddField(schema.NewField("v", "special", schema.NonNullType(schema.NamedType("Int"))))
			require.NoError(t, r.RegisterType(base))
			require.NoError(t, r.RegisterType(special))
			require.NoError(t, r.RegisterType(object("T", "t")))
			require.NoError(t, r.RegisterInterfaces([]string{"Base"}, []string{"Special"}))
			for _, name := range order {
				require.NoError(t, r.RegisterInterfaces([]string{name}, []string{"T"}))
			}

			got := mustResolve(t, r, "T")
			require.ElementsMatch(t, []string{"Base", "Special"}, got.Interfaces)
			require.Equal(t, "Int!", got.Field("v").Type.String())
			require.Equal(t, "special", got.Field("v").Description)
			require.Empty(t, r.Violations())

			_, err := r.Build()
			require.NoError(t, err)
		})
	}
}

func TestRegistryEventsOnOwnBus(t *testing.T) {
	eventbus.Use(nil)
	bus := eventbus.New()
	var registered []string
	frozen := 0
	eventbus.On(bus, func(_ context.Context, e events.TypeRegistered) { registered = append(registered, e.Name) })
	eventbus.On(bus, func(_ context.Context, e events.GraphFrozen) { frozen++ })

	r := typegraph.New(typegraph.WithBus(bus))
	require.NoError(t, r.RegisterType(object("T", "a")))
	r.Freeze()

	require.Equal(t, []string{"T"}, registered)
	require.Equal(t, 1, frozen)
}

func TestArgumentRules(t *testing.T) {
	withArgs := func(kind schema.TypeKind, name string, args ...*schema.InputValue) *schema.Type {
		typ := schema.NewType(name, kind, "")
		f := schema.NewField("f", "", schema.NamedType("String"))
		for _, a := range args {
			f.AddArgument(a)
		}
		return typ.AddField(f)
	}
	intArg := func(name string, nonNull bool) *schema.InputValue {
		ref := schema.NamedType("Int")
		if nonNull {
			ref = schema.NonNullType(ref)
		}
		return schema.NewInputValue(name, "", ref)
	}

	for _, tc := range []struct {
		name    string
		own     []*schema.InputValue
		inherit []*schema.InputValue
		problem string
	}{
		{name: "same arguments", own: []*schema.InputValue{intArg("first", false)}, inherit: []*schema.InputValue{intArg("first", false)}},
		{name: "missing argument", inherit: []*schema.InputValue{intArg("first", false)}, problem: `missing argument "first"`},
		{name: "argument type differs", own: []*schema.InputValue{intArg("first", true)}, inherit: []*schema.InputValue{intArg("first", false)}, problem: `Argument "first"`},
		{name: "extra nullable argument", own: []*schema.InputValue{intArg("after", false)}},
		{name: "extra required argument", own: []*schema.InputValue{intArg("after", true)}, problem: `Additional argument "after"`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := typegraph.New()
			require.NoError(t, r.RegisterType(withArgs(schema.TypeKindObject, "T", tc.own...)))
			require.NoError(t, r.RegisterType(withArgs(schema.TypeKindInterface, "I", tc.inherit...)))
			require.NoError(t, r.RegisterInterfaces([]string{"I"}, []string{"T"}))
			_, err := r.Resolve("T")
			if tc.problem == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.problem)
		})
	}
}

func TestResolveUnknownType(t *testing.T) {
	r := typegraph.New()
	require.NoError(t, r.RegisterType(object("T", "a")))

	got, err := r.Resolve("Missing")
	require.NoError(t, err)
	require.Equal(t, "Missing", got.Name)
	require.Equal(t, schema.TypeKindUnknown, got.Kind)
	require.Empty(t, got.Fields)
	require.Empty(t, got.Interfaces)

	_, ok := r.Lookup("Missing")
	require.False(t, ok)
}

func TestUnregisteredInterfaceContributesNothing(t *testing.T) {
	r := typegraph.New()
	require.NoError(t, r.RegisterType(object("T", "a")))
	require.NoError(t, r.RegisterInterfaces([]string{"ProvidedLater"}, []string{"T"}))

	got := mustResolve(t, r, "T")
	require.Empty(t, got.Interfaces)
	require.Equal(t, []string{"a"}, fieldNames(got))
	_, err := r.Build()
	require.NoError(t, err)
}

func TestDuplicateRegistration(t *testing.T) {
	r := typegraph.New()
	require.NoError(t, r.RegisterType(object("Foo", "a")))

	err := r.RegisterType(iface("Foo", "b"))
	var dup *typegraph.DuplicateRegistrationError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, schema.TypeKindObject, dup.Existing)
	require.Equal(t, schema.TypeKindInterface, dup.Requested)

	// Same kind replaces the definition and keeps its registration slot.
	require.NoError(t, r.RegisterType(object("Bar", "x")))
	require.NoError(t, r.RegisterType(object("Foo", "c")))
	require.Equal(t, []string{"Foo", "Bar"}, r.TypeNames())
	require.Equal(t, []string{"c"}, fieldNames(mustResolve(t, r, "Foo")))
}

func TestRegisterTypeValidation(t *testing.T) {
	r := typegraph.New()
	require.Error(t, r.RegisterType(nil))
	require.Error(t, r.RegisterType(&schema.Type{Kind: schema.TypeKindObject}))
	require.Error(t, r.RegisterType(&schema.Type{Name: "NoKind"}))
	require.Error(t, r.RegisterInterfaces([]string{""}, []string{"T"}))
	require.Error(t, r.RegisterInterfaces([]string{"I"}, []string{""}))
}

func TestDeclaredInterfacesBecomeEdges(t *testing.T) {
	r := typegraph.New()
	typ := object("T", "a").AddInterface("I")
	require.NoError(t, r.RegisterType(typ))
	require.NoError(t, r.RegisterType(iface("I", "b")))

	require.Equal(t, []typegraph.Edge{{Interface: "I", Implementer: "T"}}, r.Edges())
	require.Equal(t, []string{"a", "b"}, fieldNames(mustResolve(t, r, "T")))
	// the caller's definition is not modified
	require.Equal(t, []string{"I"}, typ.Interfaces)
	require.Len(t, typ.Fields, 1)
}

func TestFrozenAfterFirstResolve(t *testing.T) {
	r := typegraph.New()
	require.NoError(t, r.RegisterType(object("T", "a")))
	require.False(t, r.Frozen())

	mustResolve(t, r, "T")
	require.True(t, r.Frozen())

	require.ErrorIs(t, r.RegisterType(iface("I", "b")), typegraph.ErrFrozen)
	require.ErrorIs(t, r.RegisterInterfaces([]string{"I"}, []string{"T"}), typegraph.ErrFrozen)
	require.ErrorIs(t, r.RegisterDirective(schema.NewDirective("late", "")), typegraph.ErrFrozen)
	require.Equal(t, []string{"a"}, fieldNames(mustResolve(t, r, "T")))
}

func TestStructuralViolations(t *testing.T) {
	r := typegraph.New(typegraph.WithStrict(false))
	require.NoError(t, r.RegisterType(object("T", "a")))
	require.NoError(t, r.RegisterType(object("NotAnInterface", "b")))
	require.NoError(t, r.RegisterType(&schema.Type{Name: "Date", Kind: schema.TypeKindScalar}))
	require.NoError(t, r.RegisterType(iface("I", "c")))
	require.NoError(t, r.RegisterInterfaces([]string{"NotAnInterface"}, []string{"T"}))
	require.NoError(t, r.RegisterInterfaces([]string{"I"}, []string{"Date"}))

	got := mustResolve(t, r, "T")
	require.Empty(t, got.Interfaces)
	require.Equal(t, []string{"a"}, fieldNames(got))

	_, err := r.Build()
	var ve typegraph.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve, 2)
	require.Contains(t, ve[0].Message, `"NotAnInterface"`)
	require.Contains(t, ve[1].Message, `"Date" of kind SCALAR`)
}

func TestBuildSchema(t *testing.T) {
	r := typegraph.New(typegraph.WithDescription("test schema"))
	require.NoError(t, r.RegisterType(object("Query", "hello")))
	require.NoError(t, r.RegisterType(object("Post", "title")))
	require.NoError(t, r.RegisterType(iface("Node", "id")))
	require.NoError(t, r.RegisterDirective(schema.NewDirective("cached", "").AddLocation("FIELD_DEFINITION")))
	require.NoError(t, r.RegisterInterfaces([]string{"Node"}, []string{"Post"}))

	sch, err := r.Build()
	require.NoError(t, err)
	require.Equal(t, "Query", sch.QueryType)
	require.Empty(t, sch.MutationType)
	require.Equal(t, "test schema", sch.Description)
	require.NotNil(t, sch.Type("String"))
	require.NotNil(t, sch.Directives["cached"])
	require.NotNil(t, sch.Directives["skip"])
	require.Equal(t, []string{"Post"}, sch.Type("Node").PossibleTypes)

	again, err := r.Build()
	require.NoError(t, err)
	require.Same(t, sch, again)
}

func TestCustomRootTypes(t *testing.T) {
	r := typegraph.New(typegraph.WithRootTypes("RootQuery", "", ""))
	require.NoError(t, r.RegisterType(object("RootQuery", "hello")))
	sch, err := r.Build()
	require.NoError(t, err)
	require.Equal(t, "RootQuery", sch.QueryType)
}

func TestConcurrentResolve(t *testing.T) {
	r := typegraph.New()
	require.NoError(t, r.RegisterType(object("TestType", "a")))
	require.NoError(t, r.RegisterType(iface("TestInterface", "b")))
	require.NoError(t, r.RegisterInterfaces([]string{"TestInterface"}, []string{"TestType"}))

	var wg sync.WaitGroup
	results := make([][]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			typ, err := r.Resolve("TestType")
			if err == nil {
				results[i] = fieldNames(typ)
			}
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		require.Equal(t, []string{"a", "b"}, got)
	}
}

func TestRegistryEvents(t *testing.T) {
	bus := eventbus.New()
	eventbus.Use(bus)
	defer eventbus.Use(nil)

	var registered []events.TypeRegistered
	var attached []events.InterfacesRegistered
	var frozen []events.GraphFrozen
	eventbus.Subscribe[events.TypeRegistered](func(_ context.Context, e events.TypeRegistered) { registered = append(registered, e) })
	eventbus.Subscribe[events.InterfacesRegistered](func(_ context.Context, e events.InterfacesRegistered) { attached = append(attached, e) })
	eventbus.Subscribe[events.GraphFrozen](func(_ context.Context, e events.GraphFrozen) { frozen = append(frozen, e) })

	r := typegraph.New()
	require.NoError(t, r.RegisterType(object("T", "a")))
	require.NoError(t, r.RegisterType(object("T", "b")))
	require.NoError(t, r.RegisterType(iface("I", "c")))
	require.NoError(t, r.RegisterInterfaces([]string{"I"}, []string{"T"}))
	require.NoError(t, r.RegisterInterfaces([]string{"I"}, []string{"T"}))
	r.Freeze()
	r.Freeze()

	require.Len(t, registered, 3)
	require.True(t, registered[1].Replaced)
	require.Len(t, attached, 2)
	require.Equal(t, 1, attached[0].Added)
	require.Equal(t, 0, attached[1].Added)
	require.Len(t, frozen, 1)
	require.Equal(t, 2, frozen[0].Types)
	require.Equal(t, 1, frozen[0].Edges)
}
