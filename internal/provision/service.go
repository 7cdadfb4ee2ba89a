// Package provision orchestrates account creation across the media server
// and the request system.
package provision

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/jellybridge/jellybridge/internal/jellyfin"
	"github.com/jellybridge/jellybridge/internal/jellyseerr"
	"github.com/jellybridge/jellybridge/internal/linked"
)

const secretBytes = 16

var usernamePattern = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// MediaServer creates accounts on the media server.
type MediaServer interface {
	CreateUser(ctx context.Context, name, password string) (string, error)
	BaseURL() string
}

// RequestSystem imports media-server accounts into the request system.
type RequestSystem interface {
	ImportJellyfinUsers(ctx context.Context, jellyfinUserIDs []string) ([]jellyseerr.User, error)
	BaseURL() string
}

// Store persists the resulting linked account.
type Store interface {
	Upsert(ctx context.Context, account linked.Account) error
}

// RoleGranter grants a named guild role to a Discord user.
type RoleGranter interface {
	GrantRole(ctx context.Context, guildID, discordUserID, roleName string) error
}

// Notifier delivers a direct message to a Discord user.
type Notifier interface {
	SendDM(ctx context.Context, discordUserID, message string) error
}

// Service provisions external accounts and records the link.
type Service struct {
	media    MediaServer
	requests RequestSystem
	store    Store
	roles    RoleGranter
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a provisioner.
func NewService(log *slog.Logger, media MediaServer, requests RequestSystem, store Store, roles RoleGranter, notifier Notifier) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		media:    media,
		requests: requests,
		store:    store,
		roles:    roles,
		notifier: notifier,
		logger:   log.With(slog.String("service", "provision")),
		now:      time.Now,
	}
}

// SanitizeUsername strips everything outside letters, digits, '.' and '-'.
func SanitizeUsername(raw string) string {
	return usernamePattern.ReplaceAllString(raw, "")
}

// GenerateSecret returns a URL-safe one-time credential. It is never stored;
// losing it means resetting the account password upstream.
func GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Provision creates a media-server account, imports it into the request
// system, optionally grants a role, records the link, and delivers the
// credentials by DM. Role grant and DM are best-effort; their failures are
// reported in the Result without aborting the run.
func (s *Service) Provision(ctx context.Context, discordUserID, requestedUsername string, grant Grant) (Result, error) {
	username := SanitizeUsername(requestedUsername)
	if username == "" {
		return Result{}, ErrInvalidUsername
	}

	secret, err := GenerateSecret()
	if err != nil {
		return Result{}, err
	}

	jellyfinUserID, err := s.media.CreateUser(ctx, username, secret)
	if err != nil {
		if errors.Is(err, jellyfin.ErrNameTaken) {
			return Result{}, fmt.Errorf("%w: %s", ErrAlreadyExists, username)
		}
		return Result{}, fmt.Errorf("create media-server user: %w", err)
	}

	imported, err := s.requests.ImportJellyfinUsers(ctx, []string{jellyfinUserID})
	if err != nil {
		return Result{}, &PartialFailureError{Username: username, JellyfinUserID: jellyfinUserID, Step: "request-system import", Err: err}
	}
	if len(imported) == 0 || imported[0].ID == 0 {
		return Result{}, &PartialFailureError{Username: username, JellyfinUserID: jellyfinUserID, Step: "request-system import", Err: errors.New("import returned no user")}
	}
	seerrUser := imported[0]

	result := Result{}
	if grant.RoleName != "" {
		if err := s.roles.GrantRole(ctx, grant.GuildID, discordUserID, grant.RoleName); err != nil {
			s.logger.Warn("role grant failed",
				slog.String("discord_user", discordUserID),
				slog.String("role", grant.RoleName),
				slog.Any("error", err),
			)
			result.RoleErr = err
		} else {
			result.RoleGranted = true
		}
	}

	account := linked.Account{
		DiscordID:        discordUserID,
		JellyseerrUserID: fmt.Sprintf("%d", seerrUser.ID),
		JellyfinUserID:   jellyfinUserID,
		Username:         username,
		CreatedAt:        s.now().UTC(),
	}
	if grant.DurationDays > 0 {
		account.ExpiresAt = account.CreatedAt.Add(time.Duration(grant.DurationDays) * 24 * time.Hour)
	}
	if grant.RoleName != "" {
		account.GuildID = grant.GuildID
		account.RoleName = grant.RoleName
	}

	if err := s.store.Upsert(ctx, account); err != nil {
		return Result{}, &PartialFailureError{Username: username, JellyfinUserID: jellyfinUserID, Step: "link store", Err: err}
	}
	result.Account = account

	if err := s.notifier.SendDM(ctx, discordUserID, s.welcomeMessage(username, secret, account.ExpiresAt)); err != nil {
		s.logger.Warn("credentials DM failed; echoing secret to caller",
			slog.String("discord_user", discordUserID),
			slog.Any("error", err),
		)
		result.NotifyErr = err
		result.EchoedSecret = secret
	}

	s.logger.Info("account provisioned",
		slog.String("discord_user", discordUserID),
		slog.String("username", username),
		slog.String("jellyfin_user", jellyfinUserID),
		slog.String("jellyseerr_user", account.JellyseerrUserID),
		slog.Bool("expires", !account.Permanent()),
	)
	return result, nil
}

func (s *Service) welcomeMessage(username, secret string, expiresAt time.Time) string {
	msg := "## Welcome to the Media Server! \U0001f389\n\n" +
		"An account has been created for you. Here are your login details:\n\n" +
		"**Username:** `" + username + "`\n" +
		"**Temporary Password:** `" + secret + "`\n\n" +
		"Please change your password after logging in.\n\n"
	if !expiresAt.IsZero() {
		msg += "Your access runs until **" + expiresAt.Format("2 Jan 2006") + "**.\n\n"
	}
	msg += "\U0001f517 Jellyfin: " + s.media.BaseURL() + "\n" +
		"\U0001f517 Jellyseerr: " + s.requests.BaseURL()
	return msg
}
