// ABOUTME: Tests for the SQLite transcript store.
// ABOUTME: Round trips entries through a temp database and checks ordering and limits.

package transcript

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimesha-dev/vmarket/internal/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "transcript.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	at := time.Now().Truncate(time.Millisecond)
	require.NoError(t, store.Record(ctx, "client-a", session.Message{
		Role:    session.RoleUser,
		Content: "how much is a Toyota Aqua?",
		At:      at,
	}))
	require.NoError(t, store.Record(ctx, "client-a", session.Message{
		Role:    session.RoleAssistant,
		Content: "Error: scrape failed",
		IsError: true,
		At:      at.Add(time.Second),
	}))

	entries, err := store.Recent(ctx, "client-a", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, session.RoleUser, entries[0].Role)
	assert.Equal(t, "how much is a Toyota Aqua?", entries[0].Content)
	assert.False(t, entries[0].IsError)
	assert.Equal(t, at.UnixMilli(), entries[0].At.UnixMilli())

	assert.Equal(t, session.RoleAssistant, entries[1].Role)
	assert.True(t, entries[1].IsError)
}

func TestStore_RecentIsScopedToClient(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "client-a", session.Message{Role: session.RoleUser, Content: "a"}))
	require.NoError(t, store.Record(ctx, "client-b", session.Message{Role: session.RoleUser, Content: "b"}))

	entries, err := store.Recent(ctx, "client-a", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Content)
}

func TestStore_RecentLimitKeepsNewestOldestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, store.Record(ctx, "client-a", session.Message{
			Role:    session.RoleUser,
			Content: fmt.Sprintf("msg-%d", i),
		}))
	}

	entries, err := store.Recent(ctx, "client-a", 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// The newest three, returned oldest first.
	assert.Equal(t, "msg-7", entries[0].Content)
	assert.Equal(t, "msg-8", entries[1].Content)
	assert.Equal(t, "msg-9", entries[2].Content)
}

func TestStore_RecentEmpty(t *testing.T) {
	store := openTestStore(t)

	entries, err := store.Recent(context.Background(), "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_ZeroTimeDefaultsToNow(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	require.NoError(t, store.Record(ctx, "client-a", session.Message{
		Role:    session.RoleUser,
		Content: "no timestamp",
	}))

	entries, err := store.Recent(ctx, "client-a", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].At.After(before))
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "transcript.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Record(context.Background(), "client-a", session.Message{
		Role:    session.RoleUser,
		Content: "hello",
	}))
}
