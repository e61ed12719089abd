package partial_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goshape"
	"github.com/reoring/goshape/partial"
)

func pointShape(t *testing.T) *goshape.Shape {
	t.Helper()
	s, err := goshape.Struct("Point").
		Field("x", goshape.Int).
		Field("y", goshape.Int).
		Build()
	require.NoError(t, err)
	return s
}

// setField navigates into name, stores v and pops the frame.
func setField(t *testing.T, p *partial.Partial, name string, v any) {
	t.Helper()
	require.NoError(t, p.BeginField(name))
	require.NoError(t, p.Set(v))
	require.NoError(t, p.End())
}

func issueAt(t *testing.T, err error) goshape.Issue {
	t.Helper()
	iss, ok := goshape.AsIssues(err)
	require.True(t, ok, "want Issues, got %v", err)
	require.NotEmpty(t, iss)
	return iss[0]
}

func TestMaterialize_NamesMissingField(t *testing.T) {
	p, err := partial.Alloc(pointShape(t))
	require.NoError(t, err)
	setField(t, p, "x", 1)

	_, err = p.Materialize()
	is := issueAt(t, err)
	assert.Equal(t, goshape.CodeRequired, is.Code)
	assert.Equal(t, "/y", is.Path)
	assert.True(t, goshape.IsCompletion(err))

	assert.True(t, p.Poisoned())
	assert.Equal(t, goshape.CodePoisoned, goshape.CodeOf(p.BeginField("y")))
	assert.NoError(t, p.Drop())
	assert.NoError(t, p.Drop(), "drop is idempotent")
}

func TestMaterialize_WithholdingAnyFieldNamesIt(t *testing.T) {
	s, err := goshape.Struct("Account").
		Field("id", goshape.Int64).
		Field("name", goshape.String).
		Field("active", goshape.Bool).
		Field("score", goshape.Float64).
		Field("note", goshape.String).DefaultFromType().
		Build()
	require.NoError(t, err)
	values := map[string]any{"id": 1, "name": "n", "active": true, "score": 0.5}

	for _, skip := range []string{"id", "name", "active", "score"} {
		t.Run(skip, func(t *testing.T) {
			p, err := partial.Alloc(s)
			require.NoError(t, err)
			for _, name := range []string{"id", "name", "active", "score"} {
				if name != skip {
					setField(t, p, name, values[name])
				}
			}
			_, err = p.Materialize()
			is := issueAt(t, err)
			assert.Equal(t, goshape.CodeRequired, is.Code)
			assert.Equal(t, "/"+skip, is.Path)
			assert.Equal(t, skip, is.Params["name"])
			require.NoError(t, p.Drop())
		})
	}

	p, err := partial.Alloc(s)
	require.NoError(t, err)
	for name, v := range values {
		setField(t, p, name, v)
	}
	_, err = p.Materialize()
	assert.NoError(t, err, "the defaulted field may be withheld")
}

func TestMaterialize_Point(t *testing.T) {
	s := pointShape(t)
	p, err := partial.Alloc(s)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Depth())
	assert.Equal(t, "/", p.Path())

	require.NoError(t, p.BeginField("y"))
	assert.Equal(t, "/y", p.Path())
	assert.Same(t, goshape.Int, p.Shape())
	require.NoError(t, p.Set(int8(2)), "lossless conversion is accepted")
	require.NoError(t, p.End())
	require.NoError(t, p.BeginNthField(0))
	require.NoError(t, p.SetFromText("1"))
	require.NoError(t, p.End())
	assert.True(t, p.IsFieldSet(0))
	assert.True(t, p.IsFieldSet(1))

	rec, err := partial.Build[*goshape.Record](p)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, rec.Values)
	assert.Equal(t, goshape.CodeInvalidState, goshape.CodeOf(p.BeginField("x")), "materialize consumes the builder")
}

func TestNavigation_Errors(t *testing.T) {
	cases := []struct {
		name string
		do   func(p *partial.Partial) error
		code string
	}{
		{"unknown field", func(p *partial.Partial) error { return p.BeginField("z") }, goshape.CodeUnknownField},
		{"index out of range", func(p *partial.Partial) error { return p.BeginNthField(2) }, goshape.CodeIndexOutOfRange},
		{"end at root", func(p *partial.Partial) error { return p.End() }, goshape.CodeInvalidState},
		{"some on struct", func(p *partial.Partial) error { return p.BeginSome() }, goshape.CodeKindMismatch},
		{"member of scalar", func(p *partial.Partial) error {
			if err := p.BeginField("x"); err != nil {
				return err
			}
			return p.BeginField("x")
		}, goshape.CodeKindMismatch},
		{"wrong scalar type", func(p *partial.Partial) error {
			if err := p.BeginField("x"); err != nil {
				return err
			}
			return p.Set("one")
		}, goshape.CodeInvalidType},
		{"unparsable text", func(p *partial.Partial) error {
			if err := p.BeginField("x"); err != nil {
				return err
			}
			return p.SetFromText("one")
		}, goshape.CodeParseError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := partial.Alloc(pointShape(t))
			require.NoError(t, err)
			err = tc.do(p)
			assert.Equal(t, tc.code, goshape.CodeOf(err))
			assert.True(t, p.Poisoned())
			assert.NoError(t, p.Drop())
		})
	}
}

func TestUnion_ReselectDestroysOldVariant(t *testing.T) {
	var destroyed int
	cint := goshape.ScalarOf("cint", goshape.ScalarInt, goshape.Funcs{
		DestroyFn: func(any) error { destroyed++; return nil },
	})
	u := goshape.Union("AB").
		Variant("A", &goshape.Field{Name: "a", Shape: cint}).
		Variant("B", &goshape.Field{Name: "s", Shape: goshape.String}).
		MustBuild()

	p, err := partial.Alloc(u)
	require.NoError(t, err)
	require.NoError(t, p.SelectVariant("A"))
	setField(t, p, "a", 1)
	require.NoError(t, p.SelectVariant("A"))
	assert.Equal(t, 0, destroyed, "selecting the same variant is a no-op")
	assert.True(t, p.IsFieldSet(0))

	require.NoError(t, p.SelectNthVariant(1))
	assert.Equal(t, 1, destroyed)
	assert.False(t, p.IsFieldSet(0))
	v, ok := p.SelectedVariant()
	require.True(t, ok)
	assert.Equal(t, "B", v.Name)
	i, ok := p.FieldIndex("s")
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	_, err = p.Materialize()
	is := issueAt(t, err)
	assert.Equal(t, goshape.CodeRequired, is.Code)
	assert.Equal(t, "/s", is.Path)
	require.NoError(t, p.Drop())
	assert.Equal(t, 1, destroyed)
}

func TestUnion_FieldNamesResolveInSelectedVariant(t *testing.T) {
	u := goshape.Union("Shape").
		Variant("Circle", &goshape.Field{Name: "r", Shape: goshape.Float64}).
		Variant("Rect",
			&goshape.Field{Name: "w", Shape: goshape.Float64},
			&goshape.Field{Name: "h", Shape: goshape.Float64},
			&goshape.Field{Name: "r", Shape: goshape.Float64, Default: goshape.DefaultTypeOp}).
		MustBuild()

	p, err := partial.Alloc(u)
	require.NoError(t, err)
	require.NoError(t, p.SelectVariant("Rect"))
	setField(t, p, "h", 2.0)
	assert.True(t, p.IsFieldSet(1))
	assert.False(t, p.IsFieldSet(0))
	require.NoError(t, p.SetFieldDefault("r"))
	assert.True(t, p.IsFieldSet(2))
	assert.Equal(t, goshape.CodeUnknownField, goshape.CodeOf(p.SetFieldDefault("x")))
	require.NoError(t, p.Drop())
}

func TestUnion_Errors(t *testing.T) {
	u := goshape.Union("AB").Newtype("A", goshape.Int).Unit("C").MustBuild()

	p, _ := partial.Alloc(u)
	assert.Equal(t, goshape.CodeNoVariant, goshape.CodeOf(p.BeginField("0")))
	require.NoError(t, p.Drop())

	p, _ = partial.Alloc(u)
	assert.Equal(t, goshape.CodeUnknownVariant, goshape.CodeOf(p.SelectVariant("Z")))
	require.NoError(t, p.Drop())

	p, _ = partial.Alloc(u)
	assert.Equal(t, goshape.CodeNoDefault, goshape.CodeOf(p.SetDefault()), "unions have no default")
	require.NoError(t, p.Drop())

	p, _ = partial.Alloc(u)
	require.NoError(t, p.SelectVariant("C"))
	tagged, err := partial.Build[*goshape.Tagged](p)
	require.NoError(t, err)
	assert.Equal(t, "C", tagged.VariantName())
}

type resource struct{ closed *int }

func (r *resource) Close() error {
	*r.closed++
	return nil
}

func TestOverwrite_DestroysOldValue(t *testing.T) {
	var closed int
	s := goshape.Struct("Holder").Field("r", goshape.OpaqueOf[*resource]()).MustBuild()
	p, err := partial.Alloc(s)
	require.NoError(t, err)

	first, second, third := &resource{&closed}, &resource{&closed}, &resource{&closed}
	setField(t, p, "r", first)
	require.NoError(t, p.BeginField("r"))
	assert.Equal(t, 1, closed, "re-entering a set field destroys its value")
	require.NoError(t, p.Set(second))
	require.NoError(t, p.Set(third))
	assert.Equal(t, 2, closed)
	require.NoError(t, p.End())

	rec, err := partial.Build[*goshape.Record](p)
	require.NoError(t, err)
	assert.Same(t, third, rec.Values[0])
	assert.Equal(t, 2, closed, "the materialized value is owned by the caller")
}

func TestDrop_DestroysEveryLiveValueOnce(t *testing.T) {
	var closed int
	res := goshape.OpaqueOf[*resource]()
	s := goshape.Struct("Pool").
		Field("main", res).
		Field("spare", goshape.ListOf(res)).
		Field("byName", goshape.MapOf(goshape.String, res)).
		Field("maybe", goshape.OptionalOf(res)).
		MustBuild()

	p, err := partial.Alloc(s)
	require.NoError(t, err)
	setField(t, p, "main", &resource{&closed})
	require.NoError(t, p.BeginField("spare"))
	for i := 0; i < 2; i++ {
		require.NoError(t, p.BeginListItem())
		require.NoError(t, p.Set(&resource{&closed}))
		require.NoError(t, p.End())
	}
	require.NoError(t, p.BeginListItem())
	require.NoError(t, p.Set(&resource{&closed}))
	// left open: the item frame is still on the stack
	require.NoError(t, p.Drop())
	assert.Equal(t, 4, closed)

	p, err = partial.Alloc(s)
	require.NoError(t, err)
	require.NoError(t, p.BeginField("byName"))
	require.NoError(t, p.BeginKey())
	require.NoError(t, p.Set("k"))
	require.NoError(t, p.End())
	require.NoError(t, p.BeginValue())
	require.NoError(t, p.Set(&resource{&closed}))
	require.NoError(t, p.End())
	require.NoError(t, p.End())
	require.NoError(t, p.BeginField("maybe"))
	require.NoError(t, p.BeginSome())
	require.NoError(t, p.Set(&resource{&closed}))
	require.NoError(t, p.Drop())
	assert.Equal(t, 6, closed)
}

func TestOptional_SomeAndNone(t *testing.T) {
	opt := goshape.OptionalOf(goshape.Int)

	p, _ := partial.Alloc(opt)
	require.NoError(t, p.BeginSome())
	assert.Equal(t, goshape.CodeKindMismatch, goshape.CodeOf(p.BeginSome()))
	require.NoError(t, p.Drop())

	p, _ = partial.Alloc(opt)
	require.NoError(t, p.BeginSome())
	require.NoError(t, p.Set(5))
	require.NoError(t, p.End())
	v, err := partial.Build[goshape.Option](p)
	require.NoError(t, err)
	assert.Equal(t, goshape.Some(5), v)

	p, _ = partial.Alloc(opt)
	require.NoError(t, p.Set(nil))
	v, err = partial.Build[goshape.Option](p)
	require.NoError(t, err)
	assert.False(t, v.Valid)
}

func TestResult_Sides(t *testing.T) {
	r := goshape.ResultOf(goshape.Int, goshape.String)
	p, _ := partial.Alloc(r)
	require.NoError(t, p.BeginOk())
	require.NoError(t, p.Set(1))
	require.NoError(t, p.End())
	require.NoError(t, p.BeginErr())
	assert.Equal(t, "/err", p.Path())
	require.NoError(t, p.Set("boom"))
	require.NoError(t, p.End())
	v, err := partial.Build[goshape.ResultValue](p)
	require.NoError(t, err)
	assert.Equal(t, goshape.ResultValue{IsErr: true, Value: "boom"}, v)
}

func TestList_FixedLength(t *testing.T) {
	arr := goshape.ArrayOf(goshape.Int, 2)

	p, _ := partial.Alloc(arr)
	require.NoError(t, p.BeginListItem())
	require.NoError(t, p.Set(1))
	require.NoError(t, p.End())
	_, err := p.Materialize()
	assert.Equal(t, goshape.CodeIncomplete, goshape.CodeOf(err))
	require.NoError(t, p.Drop())

	p, _ = partial.Alloc(arr)
	for i := 0; i < 2; i++ {
		require.NoError(t, p.BeginListItem())
		assert.Equal(t, goshape.JoinIndex("/", i), p.Path())
		require.NoError(t, p.Set(i))
		require.NoError(t, p.End())
	}
	assert.Equal(t, goshape.CodeIndexOutOfRange, goshape.CodeOf(p.BeginListItem()))
	require.NoError(t, p.Drop())
}

func TestMap_DuplicateKeyReplacesValue(t *testing.T) {
	var keys, vals int
	key := goshape.ScalarOf("key", goshape.ScalarString, goshape.Funcs{DestroyFn: func(any) error { keys++; return nil }})
	val := goshape.ScalarOf("val", goshape.ScalarInt, goshape.Funcs{DestroyFn: func(any) error { vals++; return nil }})

	p, err := partial.Alloc(goshape.MapOf(key, val))
	require.NoError(t, err)
	entry := func(k string, v int) {
		require.NoError(t, p.BeginKey())
		require.NoError(t, p.Set(k))
		require.NoError(t, p.End())
		require.NoError(t, p.BeginValue())
		assert.Equal(t, "/"+k, p.Path())
		require.NoError(t, p.Set(v))
		require.NoError(t, p.End())
	}
	entry("a", 1)
	entry("b", 2)
	entry("a", 3)
	assert.Equal(t, 1, keys)
	assert.Equal(t, 1, vals)

	m, err := partial.Build[*goshape.Map](p)
	require.NoError(t, err)
	require.Equal(t, 2, m.Len())
	got, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(3), got, "named scalars use the canonical Go type")
	assert.Equal(t, "a", m.Entries[0].Key)
}

func TestMap_ValueBeforeKey(t *testing.T) {
	p, _ := partial.Alloc(goshape.MapOf(goshape.String, goshape.Int))
	assert.Equal(t, goshape.CodeInvalidState, goshape.CodeOf(p.BeginValue()))
	require.NoError(t, p.Drop())
}

func cfgShape(t *testing.T) *goshape.Shape {
	t.Helper()
	s, err := goshape.Struct("Cfg").
		Field("port", goshape.Int).Default(func() (any, error) { return 8080, nil }).
		Field("debug", goshape.Bool).DefaultFromType().
		Field("name", goshape.OptionalOf(goshape.String)).
		Build()
	require.NoError(t, err)
	return s
}

func TestDefaults_RoundTrip(t *testing.T) {
	s := cfgShape(t)

	p, _ := partial.Alloc(s)
	implicit, err := p.Materialize()
	require.NoError(t, err)

	p, _ = partial.Alloc(s)
	setField(t, p, "port", 8080)
	setField(t, p, "debug", false)
	require.NoError(t, p.BeginField("name"))
	require.NoError(t, p.SetNone())
	require.NoError(t, p.End())
	explicit, err := p.Materialize()
	require.NoError(t, err)

	p, _ = partial.Alloc(s)
	require.NoError(t, p.SetFieldDefault("port"))
	require.NoError(t, p.SetNthFieldDefault(1))
	require.NoError(t, p.BeginField("name"))
	require.NoError(t, p.SetDefault())
	require.NoError(t, p.End())
	viaDefaults, err := p.Materialize()
	require.NoError(t, err)

	assert.True(t, implicit.Equal(explicit))
	assert.True(t, implicit.Equal(viaDefaults))
	assert.Equal(t, implicit.Hash(), explicit.Hash())

	p, _ = partial.Alloc(s)
	setField(t, p, "port", 9090)
	changed, err := p.Materialize()
	require.NoError(t, err)
	assert.False(t, implicit.Equal(changed))
}

func TestDefaults_Errors(t *testing.T) {
	boom := errors.New("no port today")
	s := goshape.Struct("S").
		Field("port", goshape.Int).Default(func() (any, error) { return nil, boom }).
		Field("any", goshape.Union("U").Unit("X").MustBuild()).
		MustBuild()

	p, _ := partial.Alloc(s)
	err := p.SetFieldDefault("port")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "/", issueAt(t, err).Path)
	require.NoError(t, p.Drop())

	p, _ = partial.Alloc(s)
	err = p.SetFieldDefault("any")
	assert.Equal(t, goshape.CodeNoDefault, goshape.CodeOf(err))
	require.NoError(t, p.Drop())

	p, _ = partial.Alloc(s)
	_, err = p.Materialize()
	assert.ErrorIs(t, err, boom, "implicit defaults surface their failure")
	require.NoError(t, p.Drop())
}

func TestMaxDepth(t *testing.T) {
	s := goshape.ListOf(goshape.ListOf(goshape.Int))
	p, err := partial.Alloc(s, partial.Opt{MaxDepth: 2})
	require.NoError(t, err)
	require.NoError(t, p.BeginListItem())
	assert.Equal(t, goshape.CodeMaxDepth, goshape.CodeOf(p.BeginListItem()))
	require.NoError(t, p.Drop())
}

func TestBuildWithMeta_Presence(t *testing.T) {
	p, err := partial.Alloc(cfgShape(t), partial.Opt{Presence: goshape.PresenceOpt{Collect: true}})
	require.NoError(t, err)
	require.NoError(t, p.BeginField("name"))
	require.NoError(t, p.SetNone())
	require.NoError(t, p.End())
	setField(t, p, "debug", true)

	dec, err := partial.BuildWithMeta[*goshape.Record](p)
	require.NoError(t, err)
	pm := dec.Presence
	assert.True(t, pm.Has("/name", goshape.PresenceSeen))
	assert.True(t, pm.Has("/name", goshape.PresenceWasNull))
	assert.True(t, pm.Has("/debug", goshape.PresenceSeen))
	assert.False(t, pm.Has("/debug", goshape.PresenceDefaultApplied))
	assert.True(t, pm.Has("/port", goshape.PresenceDefaultApplied))
	assert.False(t, pm.Has("/port", goshape.PresenceSeen))
	v, _ := dec.Value.Get("debug")
	assert.Equal(t, true, v)

	p, _ = partial.Alloc(cfgShape(t))
	dec, err = partial.BuildWithMeta[*goshape.Record](p)
	require.NoError(t, err)
	assert.Nil(t, dec.Presence, "presence is off unless requested")
}

func TestBuild_TypeMismatch(t *testing.T) {
	p, _ := partial.Alloc(pointShape(t))
	setField(t, p, "x", 1)
	setField(t, p, "y", 2)
	_, err := partial.Build[string](p)
	assert.Equal(t, goshape.CodeInvalidType, goshape.CodeOf(err))
}
