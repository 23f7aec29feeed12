package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_AppendAndTurns(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	err = store.Append("chat-1",
		Turn{Role: "user", Content: "how many appointments today?"},
		Turn{Role: "assistant", Content: "Total: 3; Completed: 1; Canceled: 0"},
	)
	require.NoError(t, err)

	turns, err := store.Turns("chat-1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "assistant", turns[1].Role)
}

func TestFileStore_UnknownSessionIsEmpty(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	turns, err := store.Turns("never-seen")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestFileStore_RejectsUnsafeSessionIDs(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"", "../escape", "a/b", "a\\b", "nul\x00byte"} {
		_, err := store.Turns(id)
		assert.Error(t, err, "id %q should be rejected", id)

		err = store.Append(id, Turn{Role: "user", Content: "x"})
		assert.Error(t, err, "id %q should be rejected", id)
	}
}

func TestFileStore_SkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Append("s", Turn{Role: "user", Content: "first"}))

	f, err := os.OpenFile(filepath.Join(dir, "s.jsonl"), os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, store.Append("s", Turn{Role: "assistant", Content: "second"}))

	turns, err := store.Turns("s")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "first", turns[0].Content)
	assert.Equal(t, "second", turns[1].Content)
}

func TestFileStore_ListSessions(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Append("alpha", Turn{Role: "user", Content: "x"}))
	require.NoError(t, store.Append("beta", Turn{Role: "user", Content: "y"}))

	sessions, err := store.ListSessions()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, sessions)
}
