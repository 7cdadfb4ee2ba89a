package expiry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jellybridge/jellybridge/internal/jellyfin"
	"github.com/jellybridge/jellybridge/internal/linked"
)

type fakeStore struct {
	due       []linked.Account
	listErr   error
	deleteErr map[string]error
	deleted   []string
}

func (f *fakeStore) ListDue(_ context.Context, now time.Time) ([]linked.Account, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []linked.Account
	for _, a := range f.due {
		if !a.ExpiresAt.After(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, discordID string) error {
	if err := f.deleteErr[discordID]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, discordID)
	return nil
}

type fakeMedia struct {
	policies map[string]jellyfin.Policy
	getErr   map[string]error
	setErr   map[string]error
	setCalls []string
	disabled []string
}

func (f *fakeMedia) GetPolicy(_ context.Context, userID string) (jellyfin.Policy, error) {
	if err := f.getErr[userID]; err != nil {
		return jellyfin.Policy{}, err
	}
	if p, ok := f.policies[userID]; ok {
		return p, nil
	}
	return jellyfin.Policy{EnableMediaPlayback: true}, nil
}

func (f *fakeMedia) SetPolicy(_ context.Context, userID string, policy jellyfin.Policy) error {
	f.setCalls = append(f.setCalls, userID)
	if err := f.setErr[userID]; err != nil {
		return err
	}
	if f.policies == nil {
		f.policies = map[string]jellyfin.Policy{}
	}
	f.policies[userID] = policy
	if !policy.EnableMediaPlayback {
		f.disabled = append(f.disabled, userID)
	}
	return nil
}

type fakeRoles struct {
	revokeErr map[string]error
	revoked   []string
}

func (f *fakeRoles) RevokeRole(_ context.Context, guildID, userID, roleName string) error {
	if err := f.revokeErr[userID]; err != nil {
		return err
	}
	f.revoked = append(f.revoked, guildID+"/"+userID+"/"+roleName)
	return nil
}

type fakeNotifier struct {
	sendErr  map[string]error
	notified []string
}

func (f *fakeNotifier) SendDM(_ context.Context, userID, _ string) error {
	f.notified = append(f.notified, userID)
	if err := f.sendErr[userID]; err != nil {
		return err
	}
	return nil
}

type harness struct {
	store      *fakeStore
	media      *fakeMedia
	roles      *fakeRoles
	notifier   *fakeNotifier
	reconciler *Reconciler
	now        time.Time
}

func newHarness(due ...linked.Account) *harness {
	h := &harness{
		store:    &fakeStore{due: due},
		media:    &fakeMedia{},
		roles:    &fakeRoles{},
		notifier: &fakeNotifier{},
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	h.reconciler = NewReconciler(nil, h.store, h.media, h.roles, h.notifier)
	h.reconciler.now = func() time.Time { return h.now }
	return h
}

func trialAccount(discordID string, h *harness) linked.Account {
	return linked.Account{
		DiscordID:      discordID,
		JellyfinUserID: "fin-" + discordID,
		Username:       "user-" + discordID,
		CreatedAt:      h.now.Add(-8 * 24 * time.Hour),
		ExpiresAt:      h.now.Add(-24 * time.Hour),
		GuildID:        "g1",
		RoleName:       "Trial",
	}
}

func TestSweepReconcilesExpiredTrial(t *testing.T) {
	h := newHarness()
	h.store.due = []linked.Account{trialAccount("d1", h)}

	report, err := h.reconciler.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Report{Due: 1, Reconciled: 1}, report)
	assert.Equal(t, []string{"g1/d1/Trial"}, h.roles.revoked)
	assert.Equal(t, []string{"fin-d1"}, h.media.disabled)
	assert.Equal(t, []string{"d1"}, h.notifier.notified)
	assert.Equal(t, []string{"d1"}, h.store.deleted)
}

func TestSweepNothingDue(t *testing.T) {
	h := newHarness()
	h.store.due = []linked.Account{{
		DiscordID:      "future",
		JellyfinUserID: "fin-future",
		ExpiresAt:      h.now.Add(time.Hour),
	}}

	report, err := h.reconciler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{}, report)
	assert.Empty(t, h.media.setCalls)
	assert.Empty(t, h.store.deleted)
}

func TestSweepDisableFailureDefersUnlink(t *testing.T) {
	h := newHarness()
	account := trialAccount("d1", h)
	h.store.due = []linked.Account{account}
	h.media.setErr = map[string]error{"fin-d1": errors.New("server down")}

	report, err := h.reconciler.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Report{Due: 1, Deferred: 1}, report)
	// The courtesy DM still goes out, but the link survives for a retry.
	assert.Equal(t, []string{"d1"}, h.notifier.notified)
	assert.Empty(t, h.store.deleted)

	// Next sweep succeeds once the server is back.
	h.media.setErr = nil
	report, err = h.reconciler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Due: 1, Reconciled: 1}, report)
	assert.Equal(t, []string{"d1"}, h.store.deleted)
}

func TestSweepRoleRevokeFailureDoesNotBlockUnlink(t *testing.T) {
	h := newHarness()
	h.store.due = []linked.Account{trialAccount("d1", h)}
	h.roles.revokeErr = map[string]error{"d1": errors.New("role gone")}

	report, err := h.reconciler.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Report{Due: 1, Reconciled: 1}, report)
	assert.Equal(t, []string{"fin-d1"}, h.media.disabled)
	assert.Equal(t, []string{"d1"}, h.store.deleted)
}

func TestSweepDMFailureDoesNotBlockUnlink(t *testing.T) {
	h := newHarness()
	h.store.due = []linked.Account{trialAccount("d1", h)}
	h.notifier.sendErr = map[string]error{"d1": errors.New("DMs closed")}

	report, err := h.reconciler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Due: 1, Reconciled: 1}, report)
	assert.Equal(t, []string{"d1"}, h.store.deleted)
}

func TestSweepIsolatesAccountFailures(t *testing.T) {
	h := newHarness()
	h.store.due = []linked.Account{
		trialAccount("d1", h),
		trialAccount("d2", h),
		trialAccount("d3", h),
	}
	h.media.getErr = map[string]error{"fin-d2": errors.New("unreachable")}

	report, err := h.reconciler.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Report{Due: 3, Reconciled: 2, Deferred: 1}, report)
	assert.ElementsMatch(t, []string{"d1", "d3"}, h.store.deleted)
	// Everyone was told, including the deferred account.
	assert.ElementsMatch(t, []string{"d1", "d2", "d3"}, h.notifier.notified)
}

func TestSweepSkipsAlreadyDisabledPlayback(t *testing.T) {
	h := newHarness()
	account := trialAccount("d1", h)
	h.store.due = []linked.Account{account}
	h.media.policies = map[string]jellyfin.Policy{
		"fin-d1": {EnableMediaPlayback: false},
	}

	report, err := h.reconciler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Due: 1, Reconciled: 1}, report)
	// No policy write when playback is already off.
	assert.Empty(t, h.media.setCalls)
}

func TestSweepListFailureAborts(t *testing.T) {
	h := newHarness()
	h.store.listErr = errors.New("db down")

	_, err := h.reconciler.Sweep(context.Background())
	assert.Error(t, err)
}
