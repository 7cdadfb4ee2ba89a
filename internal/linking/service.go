// Package linking connects an existing media-server account to a Discord
// user by verifying the account's credentials.
package linking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jellybridge/jellybridge/internal/jellyfin"
	"github.com/jellybridge/jellybridge/internal/jellyseerr"
	"github.com/jellybridge/jellybridge/internal/linked"
)

// Errors surfaced by account linking.
var (
	// ErrAuthenticationFailed reports rejected media-server credentials.
	ErrAuthenticationFailed = errors.New("media-server credentials rejected")
	// ErrNotImported reports a verified account with no request-system entry.
	ErrNotImported = errors.New("account not imported into the request system")
)

// Authenticator verifies media-server credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (string, error)
}

// Directory lists the request-system user directory.
type Directory interface {
	ListUsers(ctx context.Context) ([]jellyseerr.User, error)
}

// Store persists the resulting linked account.
type Store interface {
	Upsert(ctx context.Context, account linked.Account) error
}

// Service resolves a username/password pair into a stored account link.
type Service struct {
	auth      Authenticator
	directory Directory
	store     Store
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a linking resolver.
func NewService(log *slog.Logger, auth Authenticator, directory Directory, store Store) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		auth:      auth,
		directory: directory,
		store:     store,
		logger:    log.With(slog.String("service", "linking")),
		now:       time.Now,
	}
}

// Link verifies the credentials against the media server, resolves the
// matching request-system user, and stores a permanent link for the Discord
// user. The password is used for verification only and never persisted.
// Linking overwrites any previous link for the same Discord user, including
// an expiring one.
func (s *Service) Link(ctx context.Context, discordUserID, username, password string) (linked.Account, error) {
	jellyfinUserID, err := s.auth.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, jellyfin.ErrUnauthorized) {
			return linked.Account{}, ErrAuthenticationFailed
		}
		return linked.Account{}, fmt.Errorf("verify credentials: %w", err)
	}

	seerrUser, err := s.findByJellyfinID(ctx, jellyfinUserID)
	if err != nil {
		return linked.Account{}, err
	}

	account := linked.Account{
		DiscordID:        discordUserID,
		JellyseerrUserID: strconv.Itoa(seerrUser.ID),
		JellyfinUserID:   jellyfinUserID,
		Username:         username,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.store.Upsert(ctx, account); err != nil {
		return linked.Account{}, fmt.Errorf("store link: %w", err)
	}

	s.logger.Info("account linked",
		slog.String("discord_user", discordUserID),
		slog.String("username", username),
		slog.String("jellyfin_user", jellyfinUserID),
		slog.String("jellyseerr_user", account.JellyseerrUserID),
	)
	return account, nil
}

func (s *Service) findByJellyfinID(ctx context.Context, jellyfinUserID string) (jellyseerr.User, error) {
	users, err := s.directory.ListUsers(ctx)
	if err != nil {
		return jellyseerr.User{}, fmt.Errorf("list request-system users: %w", err)
	}
	for _, u := range users {
		if u.JellyfinUserID == jellyfinUserID {
			return u, nil
		}
	}
	return jellyseerr.User{}, ErrNotImported
}
