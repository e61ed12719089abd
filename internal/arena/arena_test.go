package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArena_SlotsAndAccounting(t *testing.T) {
	a := New[string]()
	root := a.Alloc("root", 2)
	child := a.Alloc("child", 1)

	a.SetValue(root, 0, 1)
	a.SetChild(root, 1, child)
	a.SetValue(child, 0, "x")
	assert.Equal(t, 2, a.LiveRegions())
	assert.Equal(t, 2, a.LiveValues())
	assert.Equal(t, "child", *a.Meta(child))

	s := a.Take(root, 1)
	require.Equal(t, Child, s.Kind)
	assert.Equal(t, child, s.Child)
	assert.Equal(t, Empty, a.Slot(root, 1).Kind)

	a.Put(root, 1, s)
	assert.Equal(t, Child, a.Slot(root, 1).Kind)

	v := a.Take(child, 0)
	assert.Equal(t, "x", v.Value)
	assert.Equal(t, 1, a.LiveValues())
	a.Take(root, 1)
	a.Release(child)
	assert.False(t, a.Live(child))
	assert.Equal(t, 1, a.LiveRegions())
}

func TestArena_GrowTruncateResize(t *testing.T) {
	a := New[int]()
	r := a.Alloc(0, 0)
	first := a.Append(r, 2)
	assert.Equal(t, 0, first)
	assert.Equal(t, 2, a.Len(r))
	a.SetValue(r, 0, "k")
	a.Truncate(r, 1)
	assert.Equal(t, 1, a.Len(r))

	assert.Panics(t, func() { a.Resize(r, 3) }, "occupied slots cannot be dropped")
	a.Take(r, 0)
	a.Resize(r, 3)
	assert.Equal(t, 3, a.Len(r))
}

func TestArena_Misuse(t *testing.T) {
	a := New[int]()
	r := a.Alloc(0, 1)
	a.SetValue(r, 0, 1)
	assert.Panics(t, func() { a.SetValue(r, 0, 2) })
	assert.Panics(t, func() { a.Release(r) })
	a.Take(r, 0)
	a.Release(r)
	assert.Panics(t, func() { a.Len(r) })
	assert.False(t, a.Live(None))
}
