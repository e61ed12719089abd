package goshape_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goshape"
)

func TestAssembleDecompose_Dynamic(t *testing.T) {
	s := pointShape(t)
	v, err := goshape.AssembleStruct(s, []any{1, 2})
	require.NoError(t, err)
	rec := v.(*goshape.Record)
	y, ok := rec.Get("y")
	require.True(t, ok)
	assert.Equal(t, 2, y)

	vals, err := goshape.DecomposeStruct(s, rec)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, vals)

	_, err = goshape.AssembleStruct(s, []any{1})
	assert.Error(t, err)
}

func TestAssembleDecompose_Typed(t *testing.T) {
	type inner struct {
		N int `json:"n"`
	}
	type outer struct {
		Name  string         `json:"name"`
		Inner *inner         `json:"inner"`
		List  []int          `json:"list"`
		Index map[string]int `json:"index"`
	}
	s := goshape.MustShapeOf[outer]()
	innerField, _ := s.FieldByName("inner")
	listField, _ := s.FieldByName("list")
	mapField, _ := s.FieldByName("index")

	in, err := goshape.AssembleStruct(innerField.Shape.Elem(), []any{5})
	require.NoError(t, err)
	ptr, err := goshape.AssembleOptional(innerField.Shape, in, true)
	require.NoError(t, err)
	list, err := goshape.AssembleList(listField.Shape, []any{1, 2})
	require.NoError(t, err)
	m, err := goshape.AssembleMap(mapField.Shape, []any{"a"}, []any{1})
	require.NoError(t, err)

	v, err := goshape.AssembleStruct(s, []any{"x", ptr, list, m})
	require.NoError(t, err)
	assert.Equal(t, outer{Name: "x", Inner: &inner{N: 5}, List: []int{1, 2}, Index: map[string]int{"a": 1}}, v)

	none, err := goshape.AssembleOptional(innerField.Shape, nil, false)
	require.NoError(t, err)
	assert.Equal(t, (*inner)(nil), none)

	vals, err := goshape.DecomposeStruct(s, v)
	require.NoError(t, err)
	assert.Equal(t, "x", vals[0])
	got, present, err := goshape.DecomposeOptional(innerField.Shape, vals[1])
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, inner{N: 5}, got)
}

func TestAssembleList_FixedLength(t *testing.T) {
	arr := goshape.MustShapeOf[[2]string]()
	v, err := goshape.AssembleList(arr, []any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [2]string{"a", "b"}, v)

	_, err = goshape.AssembleList(arr, []any{"a"})
	assert.Equal(t, goshape.CodeIncomplete, goshape.CodeOf(err))
}

func TestUnion_TypedRoundTrip(t *testing.T) {
	u := registerShapes(t)

	v, err := goshape.AssembleUnion(u, 1, []any{2.0})
	require.NoError(t, err)
	assert.Equal(t, &square{Side: 2}, v)
	idx, vals, err := goshape.DecomposeUnion(u, v)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, []any{2.0}, vals)

	v, err = goshape.AssembleUnion(u, 3, []any{meters(4)})
	require.NoError(t, err)
	assert.Equal(t, meters(4), v)

	idx, _, err = goshape.DecomposeUnion(u, empty{})
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
}

func TestMap_DedupesWithKeyShape(t *testing.T) {
	m := goshape.NewMap(goshape.String)
	_, replaced := m.Put("a", 1)
	assert.False(t, replaced)
	m.Put("b", 2)
	old, replaced := m.Put("a", 3)
	assert.True(t, replaced)
	assert.Equal(t, 1, old)
	assert.Equal(t, 2, m.Len())
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, "a", m.Entries[0].Key, "insertion order is kept")
}

func TestValue_EqualAndHash(t *testing.T) {
	s := goshape.MapOf(goshape.String, goshape.ListOf(goshape.Int))
	a := goshape.NewMap(goshape.String)
	a.Put("x", []any{1, 2})
	a.Put("y", []any{})
	b := goshape.NewMap(goshape.String)
	b.Put("y", []any{})
	b.Put("x", []any{1, 2})

	va := goshape.Value{Shape: s, Data: a}
	vb := goshape.Value{Shape: s, Data: b}
	assert.True(t, va.Equal(vb), "entry order does not matter")
	assert.Equal(t, va.Hash(), vb.Hash())

	b.Put("x", []any{1})
	assert.False(t, va.Equal(vb))

	other := goshape.Value{Shape: goshape.MapOf(goshape.String, goshape.ListOf(goshape.Int)), Data: a}
	assert.False(t, va.Equal(other))
}

type closer struct {
	closed *int
	err    error
}

func (c *closer) Close() error {
	*c.closed++
	return c.err
}

func TestDestroy_RecursesIntoMembers(t *testing.T) {
	var n int
	res := goshape.OpaqueOf[*closer]()
	s := goshape.Struct("Holder").
		Field("a", res).
		Field("more", goshape.ListOf(res)).
		MustBuild()
	boom := errors.New("boom")
	rec := &goshape.Record{Shape: s, Values: []any{
		&closer{closed: &n},
		[]any{&closer{closed: &n}, &closer{closed: &n, err: boom}},
	}}

	err := goshape.Value{Shape: s, Data: rec}.Destroy()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, n)
}
