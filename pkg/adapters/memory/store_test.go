package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteq/noteq/pkg/adapters/memory"
	"github.com/noteq/noteq/pkg/core"
)

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "b", "2"))
	require.NoError(t, s.Set(ctx, "a", "1"))
	assert.Equal(t, []string{"a", "b"}, s.Keys())

	v, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx, "a"))
	assert.Equal(t, []string{"b"}, s.Keys())

	require.NoError(t, s.Clear(ctx))
	assert.Empty(t, s.Keys())
}

func TestSession_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	_, err := core.CurrentSession(ctx, s)
	require.ErrorIs(t, err, core.ErrUnauthenticated)

	want := core.Session{Token: "tok", UserID: "7", IsPaid: true}
	require.NoError(t, core.SaveSession(ctx, s, want))

	got, err := core.CurrentSession(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	answers := []core.UserAnswer{{TopicID: 1, Selected: "A"}, {TopicID: 2, Selected: "C"}}
	require.NoError(t, core.SetJSON(ctx, s, core.KeyUserAnswers, answers))

	var got []core.UserAnswer
	ok, err := core.GetJSON(ctx, s, core.KeyUserAnswers, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, answers, got)

	require.NoError(t, s.Set(ctx, "broken", "{"))
	_, err = core.GetJSON(ctx, s, "broken", &got)
	assert.Error(t, err)
}
