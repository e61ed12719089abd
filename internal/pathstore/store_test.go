package pathstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath_Key(t *testing.T) {
	assert.Equal(t, "", Path(nil).Key())
	assert.Equal(t, "/a~1b/c~0", Path{"a/b", "c~"}.Key())

	base := Path{"a"}
	c := base.Child("b")
	assert.Equal(t, Path{"a", "b"}, c)
	assert.Equal(t, Path{"a"}, base)
}

func TestStore_PutTake(t *testing.T) {
	s := New[int]()
	require.NoError(t, s.Put(Path{"a"}, 1))
	assert.ErrorIs(t, s.Put(Path{"a"}, 2), ErrExists)

	f, ok := s.Take(Path{"a"})
	assert.True(t, ok)
	assert.Equal(t, 1, f)
	_, ok = s.Take(Path{"a"})
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStore_DrainDeepestFirst(t *testing.T) {
	s := New[string]()
	require.NoError(t, s.Put(Path{"b"}, "b"))
	require.NoError(t, s.Put(Path{"a", "x", "y"}, "axy"))
	require.NoError(t, s.Put(Path{"a"}, "a"))
	require.NoError(t, s.Put(Path{"a", "x"}, "ax"))
	require.NoError(t, s.Put(Path{"a", "w"}, "aw"))

	var got []string
	for _, e := range s.Drain() {
		got = append(got, e.Frame)
	}
	assert.Equal(t, []string{"axy", "aw", "ax", "a", "b"}, got)
	assert.Equal(t, 0, s.Len())
}
