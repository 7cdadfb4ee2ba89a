package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jellybridge/jellybridge/internal/jellyseerr"
	"github.com/jellybridge/jellybridge/internal/linked"
)

func (b *Bot) handleRequest(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := deferReply(s, i, false); err != nil {
		return err
	}
	query := commandOptions(i)["query"].StringValue()

	results, err := b.directory.Search(ctx, query)
	if err != nil {
		return followupText(s, i, "❌ An error occurred while searching.")
	}
	if len(results) == 0 {
		return followupText(s, i, "No results found for your query.")
	}
	return b.sendBrowseReply(s, i, results)
}

func (b *Bot) handleDiscover(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := deferReply(s, i, false); err != nil {
		return err
	}

	movies, err := b.directory.DiscoverMovies(ctx)
	if err != nil {
		return followupText(s, i, "❌ An error occurred while fetching popular items.")
	}
	shows, err := b.directory.DiscoverTV(ctx)
	if err != nil {
		return followupText(s, i, "❌ An error occurred while fetching popular items.")
	}

	popular := append(movies, shows...)
	if len(popular) == 0 {
		return followupText(s, i, "No popular items found to discover.")
	}
	return b.sendBrowseReply(s, i, popular)
}

func (b *Bot) sendBrowseReply(s *discordgo.Session, i *discordgo.InteractionCreate, items []jellyseerr.MediaItem) error {
	sessionID := b.sessions.putBrowse(interactionUserID(i), items)
	embed := mediaEmbed(items[0], 0, len(items))
	return followupEmbed(s, i, embed, browseComponents(sessionID, 0, len(items)))
}

func (b *Bot) handleRequests(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := deferReply(s, i, true); err != nil {
		return err
	}

	_, seerrUserID, err := b.linkedAccount(ctx, interactionUserID(i))
	if err != nil {
		if errors.Is(err, linked.ErrNotFound) {
			return followupText(s, i, "⚠️ You need to link your account first using `/link`.")
		}
		return followupText(s, i, "❌ Could not look up your account link.")
	}

	requests, err := b.directory.ListRequests(ctx, seerrUserID)
	if err != nil {
		return followupText(s, i, "❌ An error occurred while fetching your requests.")
	}
	if len(requests) == 0 {
		return followupText(s, i, "You have no pending or completed requests.")
	}
	sort.SliceStable(requests, func(a, b int) bool {
		return requests[a].CreatedAt > requests[b].CreatedAt
	})

	sessionID := b.sessions.putRequests(interactionUserID(i), requests)
	embed := b.requestStatusEmbed(ctx, requests[0], 0, len(requests))
	return followupEmbed(s, i, embed, requestsComponents(sessionID, 0, len(requests)))
}

func (b *Bot) handleWatch(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := deferReply(s, i, true); err != nil {
		return err
	}

	account, _, err := b.linkedAccount(ctx, interactionUserID(i))
	if err != nil {
		if errors.Is(err, linked.ErrNotFound) {
			return followupText(s, i, "⚠️ You haven't linked your account yet. Use `/link` to get started.")
		}
		return followupText(s, i, "❌ Could not look up your account link.")
	}

	items, err := b.history.PlayedItems(ctx, account.JellyfinUserID)
	if err != nil {
		return followupText(s, i, "❌ Failed to fetch watch data from the media server.")
	}

	embed := watchStatsEmbed(interactionDisplayName(i), items)
	return followupEmbed(s, i, embed, nil)
}

// linkedAccount resolves the caller's link and its numeric request-system id.
func (b *Bot) linkedAccount(ctx context.Context, discordUserID string) (linked.Account, int, error) {
	account, err := b.accounts.Get(ctx, discordUserID)
	if err != nil {
		return linked.Account{}, 0, err
	}
	var seerrUserID int
	if _, err := fmt.Sscanf(account.JellyseerrUserID, "%d", &seerrUserID); err != nil {
		return linked.Account{}, 0, fmt.Errorf("malformed request-system user id %q: %w", account.JellyseerrUserID, err)
	}
	return account, seerrUserID, nil
}

func interactionDisplayName(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.Nick != "" {
		return i.Member.Nick
	}
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.Username
	}
	if i.User != nil {
		return i.User.Username
	}
	return "Your"
}

func (b *Bot) dispatchComponent(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	parts := strings.SplitN(i.MessageComponentData().CustomID, ":", 3)
	if len(parts) != 3 {
		return
	}
	kind, sessionID, action := parts[0], parts[1], parts[2]
	log := b.logger.With(slog.String("component", kind+":"+action), slog.String("discord_user", interactionUserID(i)))

	var err error
	switch kind {
	case "browse":
		err = b.handleBrowseComponent(ctx, s, i, sessionID, action)
	case "reqs":
		err = b.handleRequestsComponent(ctx, s, i, sessionID, action)
	default:
		return
	}
	if err != nil {
		log.Error("component interaction failed", slog.Any("error", err))
	}
}

func (b *Bot) handleBrowseComponent(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, sessionID, action string) error {
	sess, ok := b.sessions.getBrowse(sessionID)
	if !ok {
		return respondEphemeral(s, i, "⚠️ This view has expired. Run the command again.")
	}

	switch action {
	case "prev", "next":
		delta := 1
		if action == "prev" {
			delta = -1
		}
		next, moved := step(sess.index, delta, len(sess.items))
		if !moved {
			return ackComponent(s, i)
		}
		sess.index = next
		embed := mediaEmbed(sess.items[next], next, len(sess.items))
		return updateMessage(s, i, embed, browseComponents(sessionID, next, len(sess.items)))

	case "request":
		return b.handleRequestButton(ctx, s, i, sess)

	default:
		return nil
	}
}

func (b *Bot) handleRequestButton(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, sess *browseSession) error {
	if err := deferReply(s, i, true); err != nil {
		return err
	}

	_, seerrUserID, err := b.linkedAccount(ctx, interactionUserID(i))
	if err != nil {
		if errors.Is(err, linked.ErrNotFound) {
			return followupText(s, i, "⚠️ You need to link your Discord account first using `/link`.")
		}
		return followupText(s, i, "❌ Could not look up your account link.")
	}

	item := sess.items[sess.index]
	if err := b.directory.CreateRequest(ctx, item.MediaType, item.ID, seerrUserID); err != nil {
		if errors.Is(err, jellyseerr.ErrAlreadyRequested) {
			return followupText(s, i, "⚠️ This item is already available or has been requested.")
		}
		b.logger.Error("media request failed",
			slog.String("discord_user", interactionUserID(i)),
			slog.Int("tmdb_id", item.ID),
			slog.Any("error", err),
		)
		return followupText(s, i, "❌ An error occurred while requesting this item.")
	}
	return followupText(s, i, fmt.Sprintf("✅ Successfully requested '%s'!", item.DisplayTitle()))
}

func (b *Bot) handleRequestsComponent(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, sessionID, action string) error {
	sess, ok := b.sessions.getRequests(sessionID)
	if !ok {
		return respondEphemeral(s, i, "⚠️ This view has expired. Run the command again.")
	}

	delta := 1
	if action == "prev" {
		delta = -1
	}
	next, moved := step(sess.index, delta, len(sess.requests))
	if !moved {
		return ackComponent(s, i)
	}
	sess.index = next
	embed := b.requestStatusEmbed(ctx, sess.requests[next], next, len(sess.requests))
	return updateMessage(s, i, embed, requestsComponents(sessionID, next, len(sess.requests)))
}

// requestStatusEmbed enriches a request with its detail record; a failed
// detail lookup still yields a usable embed.
func (b *Bot) requestStatusEmbed(ctx context.Context, request jellyseerr.Request, index, total int) *discordgo.MessageEmbed {
	var details jellyseerr.MediaDetails
	var err error
	if request.Media.MediaType == "tv" {
		details, err = b.directory.TVDetails(ctx, request.Media.TmdbID)
	} else {
		details, err = b.directory.MovieDetails(ctx, request.Media.TmdbID)
	}
	if err != nil {
		b.logger.Warn("media detail lookup failed",
			slog.Int("tmdb_id", request.Media.TmdbID),
			slog.Any("error", err),
		)
	}
	return requestEmbed(request, details, index, total)
}

func ackComponent(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}

func updateMessage(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}
