package linked_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jellybridge/jellybridge/internal/linked"
)

func setupStoreIntegrationTest(t *testing.T) *linked.Service {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skip integration test: TEST_POSTGRES_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("skip integration test: cannot connect to database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skip integration test: database ping failed: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM linked_accounts WHERE discord_id LIKE 'it-%'`)
		pool.Close()
	})

	return linked.NewService(nil, pool)
}

func TestUpsertOverwritesAllFields(t *testing.T) {
	store := setupStoreIntegrationTest(t)
	ctx := context.Background()

	first := linked.Account{
		DiscordID:        "it-u1",
		JellyseerrUserID: "11",
		JellyfinUserID:   "fin-11",
		Username:         "alice",
		ExpiresAt:        time.Now().UTC().Add(24 * time.Hour).Truncate(time.Millisecond),
		GuildID:          "g1",
		RoleName:         "Trial",
	}
	if err := store.Upsert(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := linked.Account{
		DiscordID:        "it-u1",
		JellyseerrUserID: "22",
		JellyfinUserID:   "fin-22",
		Username:         "alice2",
	}
	if err := store.Upsert(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := store.Get(ctx, "it-u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.JellyseerrUserID != "22" || got.JellyfinUserID != "fin-22" || got.Username != "alice2" {
		t.Fatalf("expected full overwrite, got %+v", got)
	}
	if !got.Permanent() || got.HasRoleGrant() {
		t.Fatalf("expected expiry and role metadata cleared, got %+v", got)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := setupStoreIntegrationTest(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, linked.Account{DiscordID: "it-u2"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Delete(ctx, "it-u2"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.Delete(ctx, "it-u2"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if err := store.Delete(ctx, "it-never-existed"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if _, err := store.Get(ctx, "it-u2"); !errors.Is(err, linked.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListDueBoundaries(t *testing.T) {
	store := setupStoreIntegrationTest(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	accounts := []linked.Account{
		{DiscordID: "it-due-past", ExpiresAt: now.Add(-time.Hour)},
		{DiscordID: "it-due-exact", ExpiresAt: now},
		{DiscordID: "it-not-due", ExpiresAt: now.Add(time.Hour)},
		{DiscordID: "it-permanent"},
	}
	for _, account := range accounts {
		if err := store.Upsert(ctx, account); err != nil {
			t.Fatalf("upsert %s: %v", account.DiscordID, err)
		}
	}

	due, err := store.ListDue(ctx, now)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}

	seen := map[string]int{}
	for _, account := range due {
		seen[account.DiscordID]++
	}
	if seen["it-due-past"] != 1 || seen["it-due-exact"] != 1 {
		t.Fatalf("expected past and boundary rows exactly once, got %v", seen)
	}
	if seen["it-not-due"] != 0 || seen["it-permanent"] != 0 {
		t.Fatalf("future or permanent rows must never be due, got %v", seen)
	}
}
