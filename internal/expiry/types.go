package expiry

import (
	"context"
	"time"

	"github.com/jellybridge/jellybridge/internal/jellyfin"
	"github.com/jellybridge/jellybridge/internal/linked"
)

// Store lists due accounts and removes reconciled links.
type Store interface {
	ListDue(ctx context.Context, now time.Time) ([]linked.Account, error)
	Delete(ctx context.Context, discordID string) error
}

// MediaServer reads and writes per-user access policies.
type MediaServer interface {
	GetPolicy(ctx context.Context, userID string) (jellyfin.Policy, error)
	SetPolicy(ctx context.Context, userID string, policy jellyfin.Policy) error
}

// RoleRevoker removes a named guild role from a Discord user.
type RoleRevoker interface {
	RevokeRole(ctx context.Context, guildID, discordUserID, roleName string) error
}

// Notifier delivers a direct message to a Discord user.
type Notifier interface {
	SendDM(ctx context.Context, discordUserID, message string) error
}

// Report summarizes one sweep.
type Report struct {
	// Due is how many accounts the sweep found past their expiry.
	Due int
	// Reconciled is how many were fully processed and unlinked.
	Reconciled int
	// Deferred is how many stay linked for the next sweep because access
	// could not be disabled.
	Deferred int
}
