package linking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jellybridge/jellybridge/internal/jellyfin"
	"github.com/jellybridge/jellybridge/internal/jellyseerr"
	"github.com/jellybridge/jellybridge/internal/linked"
)

type fakeAuth struct {
	userID string
	err    error
}

func (f *fakeAuth) Authenticate(_ context.Context, _, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.userID, nil
}

type fakeDirectory struct {
	users []jellyseerr.User
	err   error
}

func (f *fakeDirectory) ListUsers(_ context.Context) ([]jellyseerr.User, error) {
	return f.users, f.err
}

type fakeStore struct {
	upsertErr error
	accounts  []linked.Account
}

func (f *fakeStore) Upsert(_ context.Context, account linked.Account) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.accounts = append(f.accounts, account)
	return nil
}

func TestLinkStoresPermanentAccount(t *testing.T) {
	auth := &fakeAuth{userID: "fin-9"}
	directory := &fakeDirectory{users: []jellyseerr.User{
		{ID: 3, JellyfinUserID: "fin-other"},
		{ID: 7, JellyfinUserID: "fin-9", JellyfinUsername: "alice"},
	}}
	store := &fakeStore{}
	svc := NewService(nil, auth, directory, store)

	account, err := svc.Link(context.Background(), "discord-1", "alice", "hunter2")
	require.NoError(t, err)

	assert.Equal(t, "discord-1", account.DiscordID)
	assert.Equal(t, "7", account.JellyseerrUserID)
	assert.Equal(t, "fin-9", account.JellyfinUserID)
	assert.Equal(t, "alice", account.Username)
	assert.True(t, account.Permanent())
	assert.False(t, account.HasRoleGrant())
	require.Len(t, store.accounts, 1)
	assert.Equal(t, account, store.accounts[0])
}

func TestLinkRejectedCredentials(t *testing.T) {
	auth := &fakeAuth{err: jellyfin.ErrUnauthorized}
	store := &fakeStore{}
	svc := NewService(nil, auth, &fakeDirectory{}, store)

	_, err := svc.Link(context.Background(), "discord-1", "alice", "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	assert.Empty(t, store.accounts)
}

func TestLinkNotImportedLeavesNoLink(t *testing.T) {
	auth := &fakeAuth{userID: "fin-9"}
	directory := &fakeDirectory{users: []jellyseerr.User{
		{ID: 3, JellyfinUserID: "fin-other"},
	}}
	store := &fakeStore{}
	svc := NewService(nil, auth, directory, store)

	_, err := svc.Link(context.Background(), "discord-1", "alice", "hunter2")
	assert.ErrorIs(t, err, ErrNotImported)
	assert.Empty(t, store.accounts)
}

func TestLinkDirectoryFailure(t *testing.T) {
	auth := &fakeAuth{userID: "fin-9"}
	directory := &fakeDirectory{err: errors.New("upstream down")}
	svc := NewService(nil, auth, directory, &fakeStore{})

	_, err := svc.Link(context.Background(), "discord-1", "alice", "hunter2")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotImported)
}
