package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jellybridge/jellybridge/internal/jellyfin"
	"github.com/jellybridge/jellybridge/internal/jellyseerr"
)

// tmdbImageBaseURL serves the poster thumbnails referenced by posterPath.
const tmdbImageBaseURL = "https://image.tmdb.org/t/p/w500"

const (
	colorBlue  = 0x3498db
	colorGreen = 0x2ecc71
)

func mediaEmbed(item jellyseerr.MediaItem, index, total int) *discordgo.MessageEmbed {
	overview := item.Overview
	if overview == "" {
		overview = "No overview available."
	}
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s (%s)", item.DisplayTitle(), item.Year()),
		Description: overview,
		Color:       colorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Type", Value: titleCase(item.MediaType), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Result %d of %d", index+1, total),
		},
	}
	if item.PosterPath != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: tmdbImageBaseURL + item.PosterPath}
	}
	return embed
}

func requestEmbed(request jellyseerr.Request, details jellyseerr.MediaDetails, index, total int) *discordgo.MessageEmbed {
	requestedOn := request.CreatedAt
	if idx := strings.Index(requestedOn, "T"); idx > 0 {
		requestedOn = requestedOn[:idx]
	}
	if requestedOn == "" {
		requestedOn = "N/A"
	}
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s (%s)", details.DisplayTitle(), details.Year()),
		Description: "Status of your request.",
		Color:       colorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Type", Value: titleCase(request.Media.MediaType), Inline: true},
			{Name: "Status", Value: jellyseerr.StatusLabel(request.Status), Inline: true},
			{Name: "Requested On", Value: requestedOn, Inline: false},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Request %d of %d", index+1, total),
		},
	}
	if details.PosterPath != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: tmdbImageBaseURL + details.PosterPath}
	}
	return embed
}

func watchStatsEmbed(displayName string, items []jellyfin.PlayedItem) *discordgo.MessageEmbed {
	var totalTicks int64
	for _, item := range items {
		totalTicks += item.RunTimeTicks
	}

	lastWatched := "No watched items found."
	var lastPlayed string
	for _, item := range items {
		if item.UserData.LastPlayedDate > lastPlayed {
			lastPlayed = item.UserData.LastPlayedDate
			lastWatched = item.DisplayName()
		}
	}

	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("📊 %s's Watch Statistics", displayName),
		Color: colorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📺 Total Watched Items", Value: fmt.Sprintf("%d", len(items)), Inline: false},
			{Name: "⏱️ Total Watch Time", Value: formatTicks(totalTicks), Inline: false},
			{Name: "👀 Last Watched", Value: lastWatched, Inline: false},
		},
	}
}

// formatTicks renders a 100-nanosecond tick count as days, hours, minutes.
func formatTicks(ticks int64) string {
	totalSeconds := ticks / 10_000_000
	days := totalSeconds / 86400
	hours := (totalSeconds % 86400) / 3600
	minutes := (totalSeconds % 3600) / 60
	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}

func titleCase(s string) string {
	if s == "" {
		return "N/A"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func browseComponents(sessionID string, index, total int) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "⬅️ Previous",
					Style:    discordgo.SecondaryButton,
					CustomID: "browse:" + sessionID + ":prev",
					Disabled: index == 0,
				},
				discordgo.Button{
					Label:    "Request",
					Style:    discordgo.SuccessButton,
					CustomID: "browse:" + sessionID + ":request",
				},
				discordgo.Button{
					Label:    "Next ➡️",
					Style:    discordgo.SecondaryButton,
					CustomID: "browse:" + sessionID + ":next",
					Disabled: index >= total-1,
				},
			},
		},
	}
}

func requestsComponents(sessionID string, index, total int) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "⬅️ Previous",
					Style:    discordgo.SecondaryButton,
					CustomID: "reqs:" + sessionID + ":prev",
					Disabled: index == 0,
				},
				discordgo.Button{
					Label:    "Next ➡️",
					Style:    discordgo.SecondaryButton,
					CustomID: "reqs:" + sessionID + ":next",
					Disabled: index >= total-1,
				},
			},
		},
	}
}
