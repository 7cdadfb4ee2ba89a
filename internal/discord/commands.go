package discord

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
)

const interactionTimeout = 30 * time.Second

// defaultTrialDays and defaultVIPDays bound time-limited invites when the
// admin does not pick a duration.
const (
	defaultTrialDays = 7
	defaultVIPDays   = 30
)

func commandDefinitions() []*discordgo.ApplicationCommand {
	adminOnly := int64(discordgo.PermissionAdministrator)
	minDays := float64(1)

	return []*discordgo.ApplicationCommand{
		{
			Name:        "request",
			Description: "Search for a movie or TV show to request",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "Title to search for",
					Required:    true,
				},
			},
		},
		{
			Name:        "discover",
			Description: "Browse popular movies and TV shows",
		},
		{
			Name:        "requests",
			Description: "View the status of your media requests",
		},
		{
			Name:        "watch",
			Description: "Get your watch statistics",
		},
		{
			Name:        "link",
			Description: "Link your Discord account to your media-server user",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "username",
					Description: "Your media-server username",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "password",
					Description: "Your media-server password",
					Required:    true,
				},
			},
		},
		{
			Name:        "unlink",
			Description: "Unlink your Discord account",
		},
		{
			Name:                     "invite",
			Description:              "Create permanent media-server accounts for a user",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Discord user to invite",
					Required:    true,
				},
			},
		},
		{
			Name:                     "trial",
			Description:              "Create time-limited trial accounts for a user",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Discord user to invite",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "days",
					Description: "Access duration in days (default 7)",
					MinValue:    &minDays,
				},
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "Role to grant for the duration",
				},
			},
		},
		{
			Name:                     "vip",
			Description:              "Create time-limited VIP accounts for a user",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Discord user to invite",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "days",
					Description: "Access duration in days (default 30)",
					MinValue:    &minDays,
				},
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "Role to grant for the duration",
				},
			},
		},
	}
}

// registerCommands overwrites the command set. With a guild id the commands
// appear instantly; global registration can take up to an hour to roll out.
func (b *Bot) registerCommands(s *discordgo.Session) error {
	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, b.guildID, commandDefinitions())
	return err
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.dispatchCommand(ctx, s, i)
	case discordgo.InteractionMessageComponent:
		b.dispatchComponent(ctx, s, i)
	}
}

func (b *Bot) dispatchCommand(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	name := i.ApplicationCommandData().Name
	log := b.logger.With(slog.String("command", name), slog.String("discord_user", interactionUserID(i)))

	var err error
	switch name {
	case "request":
		err = b.handleRequest(ctx, s, i)
	case "discover":
		err = b.handleDiscover(ctx, s, i)
	case "requests":
		err = b.handleRequests(ctx, s, i)
	case "watch":
		err = b.handleWatch(ctx, s, i)
	case "link":
		err = b.handleLink(ctx, s, i)
	case "unlink":
		err = b.handleUnlink(ctx, s, i)
	case "invite":
		err = b.handleInvite(ctx, s, i)
	case "trial":
		err = b.handleProvisionGrant(ctx, s, i, defaultTrialDays)
	case "vip":
		err = b.handleProvisionGrant(ctx, s, i, defaultVIPDays)
	default:
		log.Warn("unknown command")
		return
	}
	if err != nil {
		log.Error("command failed", slog.Any("error", err))
	}
}

// interactionUserID works for both guild and DM interactions.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func commandOptions(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := map[string]*discordgo.ApplicationCommandInteractionDataOption{}
	for _, opt := range i.ApplicationCommandData().Options {
		options[opt.Name] = opt
	}
	return options
}

func deferReply(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
}

func followupText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: content})
	return err
}

func followupEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	})
	return err
}
