package history

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAppendAndSnapshot(t *testing.T) {
	store := NewStore()

	store.Append(Message{Role: RoleUser, Content: "hello"})
	store.Append(Message{Role: RoleAI, Content: "hi"})

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, RoleUser, snapshot[0].Role)
	assert.Equal(t, "hello", snapshot[0].Content)
	assert.Equal(t, RoleAI, snapshot[1].Role)
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	store := NewStore()
	store.Append(Message{Role: RoleUser, Content: "original"})

	snapshot := store.Snapshot()
	snapshot[0].Content = "mutated"

	assert.Equal(t, "original", store.Snapshot()[0].Content)
}

func TestStoreNeverHoldsTwoLoadingEntries(t *testing.T) {
	store := NewStore()

	store.Append(Message{Role: RoleUser, Content: "first"})
	store.Append(Message{Role: RoleLoading, Content: "..."})
	store.Append(Message{Role: RoleLoading, Content: "..."})

	loading := 0

	for _, msg := range store.Snapshot() {
		if msg.Role == RoleLoading {
			loading++
		}
	}

	assert.Equal(t, 1, loading, "a second loading entry must replace the first")
}

func TestStoreClearLoading(t *testing.T) {
	store := NewStore()

	store.Append(Message{Role: RoleUser, Content: "q"})
	store.Append(Message{Role: RoleLoading, Content: "..."})
	store.ClearLoading()
	store.Append(Message{Role: RoleAI, Content: "a"})

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 2)

	for _, msg := range snapshot {
		assert.NotEqual(t, RoleLoading, msg.Role)
	}
}

func TestStoreRemoveWhere(t *testing.T) {
	store := NewStore()

	store.Append(Message{Role: RoleUser, Content: "keep"})
	store.Append(Message{Role: RoleError, Content: "drop"})
	store.Append(Message{Role: RoleAI, Content: "keep"})

	store.RemoveWhere(func(m Message) bool {
		return m.Role == RoleError
	})

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, RoleUser, snapshot[0].Role)
	assert.Equal(t, RoleAI, snapshot[1].Role)
}

func TestStoreConversationTurnsFiltersTransientRoles(t *testing.T) {
	store := NewStore()

	store.Append(Message{Role: RoleSystem, Content: "welcome"})
	store.Append(Message{Role: RoleUser, Content: "q1"})
	store.Append(Message{Role: RoleLoading, Content: "..."})
	store.ClearLoading()
	store.Append(Message{Role: RoleError, Content: "boom"})
	store.Append(Message{Role: RoleUser, Content: "q2"})
	store.Append(Message{Role: RoleAI, Content: "a2"})

	turns := store.ConversationTurns()
	require.Len(t, turns, 3)
	assert.Equal(t, "q1", turns[0].Content)
	assert.Equal(t, "q2", turns[1].Content)
	assert.Equal(t, "a2", turns[2].Content)
}

func TestStoreConcurrentAppends(t *testing.T) {
	store := NewStore()

	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()
			store.Append(Message{Role: RoleUser, Content: "x"})
		}()
	}

	wg.Wait()
	assert.Equal(t, 50, store.Len())
}
