package discord

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jellybridge/jellybridge/internal/jellyseerr"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	store := newSessionStore()
	items := []jellyseerr.MediaItem{{ID: 1, Title: "Dune"}}

	id := store.putBrowse("discord-1", items)
	require.NotEmpty(t, id)

	sess, ok := store.getBrowse(id)
	require.True(t, ok)
	assert.Equal(t, "discord-1", sess.ownerID)
	assert.Len(t, sess.items, 1)

	_, ok = store.getBrowse("no-such-session")
	assert.False(t, ok)
}

func TestSessionStoreExpiry(t *testing.T) {
	store := newSessionStore()
	id := store.putBrowse("discord-1", nil)

	store.mu.Lock()
	store.browse[id].createdAt = time.Now().Add(-sessionTTL - time.Minute)
	store.mu.Unlock()

	_, ok := store.getBrowse(id)
	assert.False(t, ok)

	// The expired entry is dropped, not just hidden.
	store.mu.Lock()
	_, stillThere := store.browse[id]
	store.mu.Unlock()
	assert.False(t, stillThere)
}

func TestSessionStorePrunesOnInsert(t *testing.T) {
	store := newSessionStore()
	stale := store.putRequests("discord-1", nil)

	store.mu.Lock()
	store.requests[stale].createdAt = time.Now().Add(-sessionTTL - time.Minute)
	store.mu.Unlock()

	store.putRequests("discord-2", nil)

	store.mu.Lock()
	_, stillThere := store.requests[stale]
	store.mu.Unlock()
	assert.False(t, stillThere)
}

func TestStepClampsAtEdges(t *testing.T) {
	next, moved := step(0, -1, 5)
	assert.Equal(t, 0, next)
	assert.False(t, moved)

	next, moved = step(4, 1, 5)
	assert.Equal(t, 4, next)
	assert.False(t, moved)

	next, moved = step(2, 1, 5)
	assert.Equal(t, 3, next)
	assert.True(t, moved)
}
