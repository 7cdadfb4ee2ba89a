// Package discord is the bot surface: slash commands, embeds, DMs, and
// guild role management.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/jellybridge/jellybridge/internal/jellyfin"
	"github.com/jellybridge/jellybridge/internal/jellyseerr"
	"github.com/jellybridge/jellybridge/internal/linked"
	"github.com/jellybridge/jellybridge/internal/provision"
)

// MediaDirectory is the request-system surface the commands use.
type MediaDirectory interface {
	Search(ctx context.Context, query string) ([]jellyseerr.MediaItem, error)
	DiscoverMovies(ctx context.Context) ([]jellyseerr.MediaItem, error)
	DiscoverTV(ctx context.Context) ([]jellyseerr.MediaItem, error)
	CreateRequest(ctx context.Context, mediaType string, tmdbID, userID int) error
	ListRequests(ctx context.Context, userID int) ([]jellyseerr.Request, error)
	MovieDetails(ctx context.Context, tmdbID int) (jellyseerr.MediaDetails, error)
	TVDetails(ctx context.Context, tmdbID int) (jellyseerr.MediaDetails, error)
}

// WatchHistory is the media-server surface behind the watch statistics.
type WatchHistory interface {
	PlayedItems(ctx context.Context, userID string) ([]jellyfin.PlayedItem, error)
}

// AccountStore reads and removes account links.
type AccountStore interface {
	Get(ctx context.Context, discordID string) (linked.Account, error)
	Delete(ctx context.Context, discordID string) error
}

// Provisioner creates accounts on behalf of an admin.
type Provisioner interface {
	Provision(ctx context.Context, discordUserID, requestedUsername string, grant provision.Grant) (provision.Result, error)
}

// Linker resolves credentials into a stored account link.
type Linker interface {
	Link(ctx context.Context, discordUserID, username, password string) (linked.Account, error)
}

// Bot owns the gateway session and serves the slash commands. It also
// implements the DM and role capabilities the provisioning and expiry
// services depend on.
type Bot struct {
	session   *discordgo.Session
	guildID   string
	directory MediaDirectory
	history   WatchHistory
	accounts  AccountStore
	provision Provisioner
	linker    Linker
	sessions  *sessionStore
	logger    *slog.Logger

	readyOnce sync.Once
	ready     chan struct{}
}

// NewBot creates the bot over an authenticated session token. The session is
// not opened until Start. The provisioner depends on the bot for DMs and
// role grants, so it is attached afterwards via SetProvisioner.
func NewBot(log *slog.Logger, token, guildID string, directory MediaDirectory, history WatchHistory, accounts AccountStore, linker Linker) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("discord bot: token is required")
	}
	if log == nil {
		log = slog.Default()
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord bot: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	b := &Bot{
		session:   session,
		guildID:   guildID,
		directory: directory,
		history:   history,
		accounts:  accounts,
		linker:    linker,
		sessions:  newSessionStore(),
		logger:    log.With(slog.String("service", "discord")),
		ready:     make(chan struct{}),
	}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteraction)
	return b, nil
}

// SetProvisioner attaches the provisioning service behind the admin
// commands.
func (b *Bot) SetProvisioner(prov Provisioner) {
	b.provision = prov
}

// Start opens the gateway connection. Command registration happens on the
// ready event.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		_ = b.session.Close()
		return fmt.Errorf("discord session not ready: %w", ctx.Err())
	}
}

// Stop closes the gateway connection.
func (b *Bot) Stop(_ context.Context) error {
	return b.session.Close()
}

// Ready is closed once the gateway session is up and commands registered.
// The expiry scheduler waits on it before its first sweep.
func (b *Bot) Ready() <-chan struct{} { return b.ready }

func (b *Bot) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	b.readyOnce.Do(func() {
		if err := b.registerCommands(s); err != nil {
			b.logger.Error("command registration failed", slog.Any("error", err))
		}
		b.logger.Info("bot ready", slog.String("user", s.State.User.Username))
		close(b.ready)
	})
}

// SendDM delivers a direct message to a user.
func (b *Bot) SendDM(_ context.Context, discordUserID, message string) error {
	channel, err := b.session.UserChannelCreate(discordUserID)
	if err != nil {
		return fmt.Errorf("open DM channel: %w", err)
	}
	if _, err := b.session.ChannelMessageSend(channel.ID, message); err != nil {
		return fmt.Errorf("send DM: %w", err)
	}
	return nil
}

// GrantRole adds the named role to a guild member.
func (b *Bot) GrantRole(_ context.Context, guildID, discordUserID, roleName string) error {
	roleID, err := b.roleID(guildID, roleName)
	if err != nil {
		return err
	}
	if err := b.session.GuildMemberRoleAdd(guildID, discordUserID, roleID); err != nil {
		return fmt.Errorf("grant role %q: %w", roleName, err)
	}
	return nil
}

// RevokeRole removes the named role from a guild member.
func (b *Bot) RevokeRole(_ context.Context, guildID, discordUserID, roleName string) error {
	roleID, err := b.roleID(guildID, roleName)
	if err != nil {
		return err
	}
	if err := b.session.GuildMemberRoleRemove(guildID, discordUserID, roleID); err != nil {
		return fmt.Errorf("revoke role %q: %w", roleName, err)
	}
	return nil
}

func (b *Bot) roleID(guildID, roleName string) (string, error) {
	roles, err := b.session.GuildRoles(guildID)
	if err != nil {
		return "", fmt.Errorf("list guild roles: %w", err)
	}
	for _, role := range roles {
		if role.Name == roleName {
			return role.ID, nil
		}
	}
	return "", fmt.Errorf("role %q not found in guild %s", roleName, guildID)
}
