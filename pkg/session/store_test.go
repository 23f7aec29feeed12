package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_AppendAndTurns(t *testing.T) {
	store := NewMemoryStore()

	turns, err := store.Turns("empty")
	require.NoError(t, err)
	assert.Empty(t, turns)

	err = store.Append("s1",
		Turn{Role: "user", Content: "hello"},
		Turn{Role: "assistant", Content: "hi there"},
	)
	require.NoError(t, err)

	turns, err = store.Turns("s1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "hello", turns[0].Content)
	assert.Equal(t, "assistant", turns[1].Role)
	assert.False(t, turns[0].Timestamp.IsZero())
}

func TestMemoryStore_SessionsAreIsolated(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.Append("a", Turn{Role: "user", Content: "one"}))
	require.NoError(t, store.Append("b", Turn{Role: "user", Content: "two"}))

	turnsA, err := store.Turns("a")
	require.NoError(t, err)
	turnsB, err := store.Turns("b")
	require.NoError(t, err)

	require.Len(t, turnsA, 1)
	require.Len(t, turnsB, 1)
	assert.Equal(t, "one", turnsA[0].Content)
	assert.Equal(t, "two", turnsB[0].Content)
}

func TestMemoryStore_TurnsReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Append("s", Turn{Role: "user", Content: "original"}))

	turns, err := store.Turns("s")
	require.NoError(t, err)
	turns[0].Content = "mutated"

	again, err := store.Turns("s")
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Content)
}
