package linked

import (
	"errors"
	"time"
)

// Errors returned by store operations.
var (
	ErrNotFound       = errors.New("linked account not found")
	ErrLonelyRoleMeta = errors.New("guild id and role name must be set together")
)

// Account links a Discord identity to its external accounts. ExpiresAt is
// zero for permanent links; GuildID and RoleName are set together when a
// role was granted alongside the account, and are zero otherwise.
type Account struct {
	DiscordID        string    `json:"discord_id"`
	JellyseerrUserID string    `json:"jellyseerr_user_id,omitempty"`
	JellyfinUserID   string    `json:"jellyfin_user_id,omitempty"`
	Username         string    `json:"username,omitempty"`
	CreatedAt        time.Time `json:"created_at,omitzero"`
	ExpiresAt        time.Time `json:"expires_at,omitzero"`
	GuildID          string    `json:"guild_id,omitempty"`
	RoleName         string    `json:"role_name,omitempty"`
}

// Permanent reports whether the account has no expiry and is therefore
// invisible to the expiration reconciler.
func (a Account) Permanent() bool {
	return a.ExpiresAt.IsZero()
}

// HasRoleGrant reports whether a role was granted alongside this account.
func (a Account) HasRoleGrant() bool {
	return a.GuildID != "" && a.RoleName != ""
}
