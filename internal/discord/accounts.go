package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/jellybridge/jellybridge/internal/linked"
	"github.com/jellybridge/jellybridge/internal/linking"
	"github.com/jellybridge/jellybridge/internal/provision"
)

func (b *Bot) handleLink(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := deferReply(s, i, true); err != nil {
		return err
	}
	options := commandOptions(i)
	username := options["username"].StringValue()
	password := options["password"].StringValue()

	account, err := b.linker.Link(ctx, interactionUserID(i), username, password)
	switch {
	case errors.Is(err, linking.ErrAuthenticationFailed):
		return followupText(s, i, "❌ **Authentication Failed:** Invalid username or password.")
	case errors.Is(err, linking.ErrNotImported):
		return followupText(s, i, fmt.Sprintf(
			"⚠️ **Account Not Found.** Your login is correct, but '%s' has not been imported into the request system. Please contact an administrator.",
			username,
		))
	case err != nil:
		return followupText(s, i, "❌ An error occurred while linking your account.")
	}
	return followupText(s, i, fmt.Sprintf("✅ **Success!** Your Discord account is now linked to '%s'.", account.Username))
}

func (b *Bot) handleUnlink(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := deferReply(s, i, true); err != nil {
		return err
	}
	discordUserID := interactionUserID(i)

	if _, err := b.accounts.Get(ctx, discordUserID); err != nil {
		if errors.Is(err, linked.ErrNotFound) {
			return followupText(s, i, "⚠️ You haven't linked your account yet.")
		}
		return followupText(s, i, "❌ Could not look up your account link.")
	}
	if err := b.accounts.Delete(ctx, discordUserID); err != nil {
		return followupText(s, i, "❌ An error occurred while unlinking your account.")
	}
	return followupText(s, i, "✅ Unlinked your Discord account successfully.")
}

func (b *Bot) handleInvite(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if err := deferReply(s, i, true); err != nil {
		return err
	}
	user := commandOptions(i)["user"].UserValue(s)
	return b.runProvision(ctx, s, i, user, provision.Grant{})
}

func (b *Bot) handleProvisionGrant(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, defaultDays int) error {
	if err := deferReply(s, i, true); err != nil {
		return err
	}
	options := commandOptions(i)
	user := options["user"].UserValue(s)

	grant := provision.Grant{DurationDays: defaultDays}
	if opt, ok := options["days"]; ok {
		grant.DurationDays = int(opt.IntValue())
	}
	if opt, ok := options["role"]; ok {
		role := opt.RoleValue(s, i.GuildID)
		if role != nil {
			grant.GuildID = i.GuildID
			grant.RoleName = role.Name
		}
	}
	return b.runProvision(ctx, s, i, user, grant)
}

func (b *Bot) runProvision(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, user *discordgo.User, grant provision.Grant) error {
	if user == nil {
		return followupText(s, i, "❌ Could not resolve the target user.")
	}
	if b.provision == nil {
		return followupText(s, i, "❌ Provisioning is not configured.")
	}

	result, err := b.provision.Provision(ctx, user.ID, user.Username, grant)
	var partial *provision.PartialFailureError
	switch {
	case errors.Is(err, provision.ErrInvalidUsername):
		return followupText(s, i, fmt.Sprintf("❌ '%s' contains no characters usable as a username.", user.Username))
	case errors.Is(err, provision.ErrAlreadyExists):
		return followupText(s, i, fmt.Sprintf("⚠️ A media-server user named like '%s' already exists. Cannot proceed.", user.Username))
	case errors.As(err, &partial):
		return followupText(s, i, fmt.Sprintf(
			"❌ Account created on the media server but %s failed. The account `%s` (%s) exists unlinked; please resolve manually.",
			partial.Step, partial.Username, partial.JellyfinUserID,
		))
	case err != nil:
		return followupText(s, i, "❌ Failed to create the accounts.")
	}

	reply := fmt.Sprintf("✅ Successfully created accounts for `%s` and sent them a DM with credentials.", result.Account.Username)
	if result.NotifyErr != nil {
		reply = fmt.Sprintf(
			"✅ Accounts created for `%s`, but I could not DM them. Please send their password manually: `%s`",
			result.Account.Username, result.EchoedSecret,
		)
	}
	if result.RoleErr != nil {
		reply += "\n⚠️ The role could not be granted; please assign it manually."
	}
	if !result.Account.Permanent() {
		reply += fmt.Sprintf("\n⏳ Access expires on %s.", result.Account.ExpiresAt.Format("2 Jan 2006"))
	}
	return followupText(s, i, reply)
}
