package goshape_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goshape"
)

func TestIssues_ErrorSummary(t *testing.T) {
	iss := goshape.Issues{
		goshape.NewIssue("/y", goshape.CodeRequired, map[string]any{"name": "y"}),
		goshape.NewIssue("", goshape.CodePoisoned, nil),
		goshape.NewIssue("/a", goshape.CodeUnknownField, map[string]any{"name": "a"}),
		goshape.NewIssue("/b", goshape.CodeUnknownField, map[string]any{"name": "b"}),
	}
	msg := iss.Error()
	assert.Contains(t, msg, "required at /y: required member y missing")
	assert.Contains(t, msg, "poisoned at /")
	assert.Contains(t, msg, "(total 4)")
	assert.Equal(t, int64(-1), iss[0].Offset)
}

func TestIssues_UnwrapAndCategories(t *testing.T) {
	cause := errors.New("bad text")
	is := goshape.NewIssue("/t", goshape.CodeProxyFailed, nil)
	is.Cause = cause
	err := fmt.Errorf("wrapped: %w", goshape.Issues{is})

	assert.ErrorIs(t, err, cause)
	assert.True(t, goshape.IsSubstitution(err))
	assert.False(t, goshape.IsCompletion(err))
	assert.Equal(t, goshape.CategoryState, goshape.CategoryOf(goshape.CodeDeferredNested))
	assert.Equal(t, goshape.CategoryUnknown, goshape.CategoryOf("nope"))
	assert.Equal(t, "completion", goshape.CategoryOf(goshape.CodeRequired).String())
	assert.Equal(t, "", goshape.CodeOf(errors.New("plain")))
}

func TestPointerHelpers(t *testing.T) {
	assert.Equal(t, "/a~1b", goshape.JoinPointer("/", "a/b"))
	assert.Equal(t, "/x/m~0n", goshape.JoinPointer("/x", "m~n"))
	assert.Equal(t, "/x/3", goshape.JoinIndex("/x", 3))
	assert.Equal(t, []string{"x", "a/b"}, goshape.SplitPointer("/x/a~1b"))
	assert.Nil(t, goshape.SplitPointer("/"))

	err := goshape.Issues{goshape.NewIssue("/", goshape.CodeRequired, nil), goshape.NewIssue("/n", goshape.CodeRequired, nil)}
	iss, ok := goshape.AsIssues(goshape.Rebase(err, "/outer"))
	require.True(t, ok)
	assert.Equal(t, "/outer", iss[0].Path)
	assert.Equal(t, "/outer/n", iss[1].Path)
}

func TestPresenceMap(t *testing.T) {
	pm := goshape.PresenceMap{}
	pm.Mark("/a", goshape.PresenceSeen)
	pm.Mark("/a", goshape.PresenceDefaultApplied)
	pm.Mark("/b/c", goshape.PresenceWasNull)
	assert.True(t, pm.Has("/a", goshape.PresenceDefaultApplied))
	assert.False(t, pm.Has("/a", goshape.PresenceWasNull))

	f := goshape.FilterPresence(pm, goshape.PresenceOpt{Collect: true, Include: []string{"/b"}})
	assert.Equal(t, goshape.PresenceMap{"/b/c": goshape.PresenceWasNull}, f)
	assert.Nil(t, goshape.FilterPresence(pm, goshape.PresenceOpt{}))
}
