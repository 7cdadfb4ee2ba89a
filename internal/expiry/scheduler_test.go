package expiry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jellybridge/jellybridge/internal/linked"
)

type signalingStore struct {
	swept chan struct{}
}

func (s *signalingStore) ListDue(_ context.Context, _ time.Time) ([]linked.Account, error) {
	select {
	case s.swept <- struct{}{}:
	default:
	}
	return nil, nil
}

func (s *signalingStore) Delete(_ context.Context, _ string) error { return nil }

func TestNewSchedulerRejectsNonPositiveInterval(t *testing.T) {
	_, err := NewScheduler(nil, nil, 0)
	assert.Error(t, err)
	_, err = NewScheduler(nil, nil, -time.Hour)
	assert.Error(t, err)
}

func TestSchedulerSweepsImmediatelyOnStart(t *testing.T) {
	store := &signalingStore{swept: make(chan struct{}, 1)}
	reconciler := NewReconciler(nil, store, &fakeMedia{}, &fakeRoles{}, &fakeNotifier{})
	scheduler, err := NewScheduler(nil, reconciler, time.Hour)
	require.NoError(t, err)

	require.NoError(t, scheduler.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = scheduler.Stop(ctx)
	}()

	select {
	case <-store.swept:
	case <-time.After(2 * time.Second):
		t.Fatal("no sweep ran after start")
	}
}
