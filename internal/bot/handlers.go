package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"warden/internal/audit"
	"warden/internal/moderation"
	"warden/internal/storage"
	"warden/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	ctx := context.Background()

	switch interaction.Type {
	case discordgo.InteractionApplicationCommand:
		data := interaction.ApplicationCommandData()
		switch data.Name {
		case "infraction":
			b.handleInfraction(ctx, session, interaction, data.Options)
		case "quote":
			b.handleQuote(ctx, session, interaction, data.Options)
		case "balance":
			b.handleBalance(ctx, session, interaction, data.Options)
		case "leaderboard":
			b.handleLeaderboard(ctx, session, interaction)
		case "timezone":
			b.handleTimezone(ctx, session, interaction, data.Options)
		case "timestamp":
			b.handleTimestamp(ctx, session, interaction, data.Options)
		case "welcomeroles":
			b.handleWelcomeRoles(ctx, session, interaction, data.Options)
		case "settings":
			b.handleSettings(ctx, session, interaction, data.Options)
		}
	case discordgo.InteractionMessageComponent:
		data := interaction.MessageComponentData()
		if infractionID, ok := moderation.ParseAuthorizeCustomID(data.CustomID); ok {
			b.handleAuthorize(ctx, session, interaction, infractionID)
		}
	}
}

func (b *Bot) handleInfraction(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if interaction.GuildID == "" || interaction.Member == nil || interaction.Member.User == nil {
		b.respondEmbed(session, interaction, b.errorEmbed("This command only works inside a server."), true)
		return
	}
	opts := optionMap(options)
	modID := interaction.Member.User.ID

	action := ""
	if opt, ok := opts["action"]; ok {
		action = opt.StringValue()
	}

	switch action {
	case "administer":
		userOpt, ok := opts["user"]
		if !ok || userOpt.UserValue(session) == nil {
			b.respondEmbed(session, interaction, b.errorEmbed("A target member is required."), true)
			return
		}
		punishment, err := b.punishmentFromOptions(opts)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed(err.Error()), true)
			return
		}
		draft := storage.Infraction{
			GuildID:    interaction.GuildID,
			UserID:     userOpt.UserValue(session).ID,
			ModID:      modID,
			ChannelID:  interaction.ChannelID,
			Punishment: punishment,
		}
		if opt, ok := opts["reason"]; ok {
			draft.Reason = opt.StringValue()
		}
		if opt, ok := opts["mod_notes"]; ok {
			draft.ModNotes = opt.StringValue()
		}
		if opt, ok := opts["public_notes"]; ok {
			draft.PublicNotes = opt.StringValue()
		}
		if opt, ok := opts["related_message"]; ok {
			draft.RelatedMessage = opt.StringValue()
		}

		inf, err := b.lifecycle.AdministerInfraction(ctx, draft)
		if err != nil {
			b.respondEmbed(session, interaction, b.infractionErrorEmbed(err), true)
			return
		}
		description := "Punishment applied and infraction recorded."
		if inf.PendingApproval {
			description = "You lack the permission for this punishment. An interim timeout was applied; a moderator with the required permission must authorize it."
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Infraction "+inf.ID, description, b.cfg.Moderation.EmbedColors.Log, []*discordgo.MessageEmbedField{
			{Name: "Member", Value: "<@" + inf.UserID + ">", Inline: true},
			{Name: "Punishment", Value: moderation.PenaltyLabel(inf.Punishment), Inline: true},
		}), true)

	case "change":
		idOpt, ok := opts["id"]
		if !ok {
			b.respondEmbed(session, interaction, b.errorEmbed("An infraction id is required."), true)
			return
		}
		punishment, err := b.punishmentFromOptions(opts)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed(err.Error()), true)
			return
		}
		inf, err := b.lifecycle.ChangePunishment(ctx, idOpt.StringValue(), punishment, modID)
		if err != nil {
			b.respondEmbed(session, interaction, b.infractionErrorEmbed(err), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Infraction "+inf.ID, "Punishment changed.", b.cfg.Moderation.EmbedColors.Change, []*discordgo.MessageEmbedField{
			{Name: "Punishment", Value: moderation.PenaltyLabel(inf.Punishment), Inline: true},
		}), true)

	case "remove":
		idOpt, ok := opts["id"]
		if !ok {
			b.respondEmbed(session, interaction, b.errorEmbed("An infraction id is required."), true)
			return
		}
		// Deleting a record outright needs more than ordinary moderation.
		perms, err := b.MemberPermissions(interaction.GuildID, modID)
		if err != nil || perms&discordgo.PermissionAdministrator == 0 {
			b.respondEmbed(session, interaction, b.errorEmbed("Removing an infraction requires administrator permission."), true)
			return
		}
		if err := b.lifecycle.RemoveInfraction(ctx, idOpt.StringValue(), modID); err != nil {
			b.respondEmbed(session, interaction, b.infractionErrorEmbed(err), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Infraction removed", "Any active punishment was reversed and the record deleted.", b.cfg.Moderation.EmbedColors.Log, nil), true)

	case "view":
		userOpt, ok := opts["user"]
		if !ok || userOpt.UserValue(session) == nil {
			b.respondEmbed(session, interaction, b.errorEmbed("A target member is required."), true)
			return
		}
		userID := userOpt.UserValue(session).ID
		infractions, err := b.store.ListUserInfractions(ctx, interaction.GuildID, userID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not load infractions."), true)
			return
		}
		if len(infractions) == 0 {
			b.respondEmbed(session, interaction, b.commandEmbed("Infractions", "This member has no infractions.", b.cfg.Moderation.EmbedColors.Log, nil), true)
			return
		}
		fields := make([]*discordgo.MessageEmbedField, 0, len(infractions))
		for _, inf := range infractions {
			value := fmt.Sprintf("%s %s: %s", inf.CreatedAt.Format("2006-01-02"), moderation.PenaltyLabel(inf.Punishment), inf.Reason)
			if inf.PendingApproval {
				value += " (pending approval)"
			}
			fields = append(fields, &discordgo.MessageEmbedField{Name: inf.ID, Value: value, Inline: false})
			if len(fields) == 25 {
				break
			}
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Infractions for "+b.MemberDisplayName(interaction.GuildID, userID), fmt.Sprintf("%d on record.", len(infractions)), b.cfg.Moderation.EmbedColors.Log, fields), true)

	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown action."), true)
	}
}

// punishmentFromOptions builds the punishment value from the penalty and
// duration options. "none" and an absent penalty both mean no punishment.
func (b *Bot) punishmentFromOptions(opts map[string]*discordgo.ApplicationCommandInteractionDataOption) (*storage.Punishment, error) {
	opt, ok := opts["penalty"]
	if !ok {
		return nil, nil
	}
	penalty := opt.StringValue()
	if penalty == "none" || penalty == "" {
		return nil, nil
	}

	punishment := &storage.Punishment{Penalty: storage.Penalty(penalty)}
	if punishment.Penalty.Temporary() {
		durationOpt, ok := opts["duration"]
		if !ok {
			return nil, fmt.Errorf("%s requires a duration, e.g. 30m, 12h, 3d", penalty)
		}
		duration, err := utils.ParseHumanDuration(durationOpt.StringValue())
		if err != nil {
			return nil, err
		}
		punishment.Duration = duration
		punishment.HumanDuration = utils.FormatDuration(duration)
	}
	return punishment, nil
}

func (b *Bot) handleAuthorize(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, infractionID string) {
	if interaction.Member == nil || interaction.Member.User == nil {
		return
	}
	approverID := interaction.Member.User.ID

	inf, err := b.lifecycle.AuthorizePunishment(ctx, infractionID, approverID)
	if err != nil {
		switch {
		case errors.Is(err, moderation.ErrMissingPermission):
			b.respondEmbed(session, interaction, b.errorEmbed("You lack the permission required to authorize this punishment."), true)
		case errors.Is(err, moderation.ErrNotPending):
			b.respondEmbed(session, interaction, b.errorEmbed("This infraction is no longer pending approval."), true)
		case errors.Is(err, storage.ErrNotFound):
			b.respondEmbed(session, interaction, b.errorEmbed("This infraction no longer exists."), true)
		default:
			b.logger.Warn("authorize punishment", zap.String("infraction_id", infractionID), zap.Error(err))
			b.respondEmbed(session, interaction, b.errorEmbed("Authorization failed."), true)
		}
		return
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Punishment authorized", "The punishment has been applied.", b.cfg.Moderation.EmbedColors.Log, []*discordgo.MessageEmbedField{
		{Name: "Member", Value: "<@" + inf.UserID + ">", Inline: true},
		{Name: "Punishment", Value: moderation.PenaltyLabel(inf.Punishment), Inline: true},
	}), true)
}

func (b *Bot) handleQuote(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(options)
	action := ""
	if opt, ok := opts["action"]; ok {
		action = opt.StringValue()
	}

	switch action {
	case "add":
		textOpt, ok := opts["text"]
		if !ok || strings.TrimSpace(textOpt.StringValue()) == "" {
			b.respondEmbed(session, interaction, b.errorEmbed("Quote text is required."), true)
			return
		}
		authorID := ""
		if interaction.Member != nil && interaction.Member.User != nil {
			authorID = interaction.Member.User.ID
		}
		quote, err := b.store.AddQuote(ctx, strings.TrimSpace(textOpt.StringValue()), authorID)
		if err != nil {
			if errors.Is(err, storage.ErrDuplicateQuote) {
				b.respondEmbed(session, interaction, b.errorEmbed("That quote already exists."), true)
				return
			}
			b.respondEmbed(session, interaction, b.errorEmbed("Could not save the quote."), true)
			return
		}
		if authorID != "" {
			if err := b.store.AddStar(ctx, authorID, b.cfg.Economy.StartingBalance); err != nil {
				b.logger.Warn("award quote star", zap.String("user_id", authorID), zap.Error(err))
			}
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Quote saved", fmt.Sprintf("Quote #%d added.", quote.ID), b.cfg.Moderation.EmbedColors.Public, nil), false)
	case "random":
		quote, err := b.store.RandomQuote(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				b.respondEmbed(session, interaction, b.errorEmbed("No quotes saved yet."), true)
				return
			}
			b.respondEmbed(session, interaction, b.errorEmbed("Could not load a quote."), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed(fmt.Sprintf("Quote #%d", quote.ID), quote.Content, b.cfg.Moderation.EmbedColors.Public, nil), false)
	case "count":
		count, err := b.store.CountQuotes(ctx)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not count quotes."), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Quotes", fmt.Sprintf("%d quotes saved.", count), b.cfg.Moderation.EmbedColors.Public, nil), false)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown action."), true)
	}
}

func (b *Bot) handleBalance(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(options)
	userID := ""
	if opt, ok := opts["user"]; ok && opt.UserValue(session) != nil {
		userID = opt.UserValue(session).ID
	}
	if userID == "" && interaction.Member != nil && interaction.Member.User != nil {
		userID = interaction.Member.User.ID
	}
	if userID == "" {
		b.respondEmbed(session, interaction, b.errorEmbed("No member in context."), true)
		return
	}

	user, err := b.store.EnsureUser(ctx, userID, b.cfg.Economy.StartingBalance)
	if err != nil {
		b.respondEmbed(session, interaction, b.errorEmbed("Could not load the balance."), true)
		return
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Balance", Value: fmt.Sprintf("%d", user.Balance), Inline: true},
		{Name: "Stars", Value: fmt.Sprintf("%d", user.Stars), Inline: true},
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Balance for "+b.MemberDisplayName(interaction.GuildID, userID), "", b.cfg.Moderation.EmbedColors.Public, fields), true)
}

func (b *Bot) handleLeaderboard(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	users, err := b.store.TopBalances(ctx, b.cfg.Economy.LeaderboardSize)
	if err != nil {
		b.respondEmbed(session, interaction, b.errorEmbed("Could not load the leaderboard."), true)
		return
	}
	if len(users) == 0 {
		b.respondEmbed(session, interaction, b.commandEmbed("Leaderboard", "Nobody has a balance yet.", b.cfg.Moderation.EmbedColors.Public, nil), false)
		return
	}
	lines := make([]string, 0, len(users))
	for i, user := range users {
		lines = append(lines, fmt.Sprintf("%d. <@%s> — %d", i+1, user.ID, user.Balance))
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Leaderboard", strings.Join(lines, "\n"), b.cfg.Moderation.EmbedColors.Public, nil), false)
}

func (b *Bot) handleTimezone(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if interaction.Member == nil || interaction.Member.User == nil {
		return
	}
	opts := optionMap(options)
	action := ""
	if opt, ok := opts["action"]; ok {
		action = opt.StringValue()
	}

	switch action {
	case "set":
		zoneOpt, ok := opts["zone"]
		if !ok {
			b.respondEmbed(session, interaction, b.errorEmbed("A zone name is required, e.g. Europe/Berlin."), true)
			return
		}
		zone := zoneOpt.StringValue()
		if _, err := time.LoadLocation(zone); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Unknown timezone. Use an IANA name like Europe/Berlin."), true)
			return
		}
		if err := b.store.SetTimezone(ctx, interaction.Member.User.ID, zone); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not save the timezone."), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Timezone set", zone, b.cfg.Moderation.EmbedColors.Public, nil), true)
	case "view":
		userID := interaction.Member.User.ID
		if opt, ok := opts["user"]; ok && opt.UserValue(session) != nil {
			userID = opt.UserValue(session).ID
		}
		zone, err := b.store.GetTimezone(ctx, userID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				b.respondEmbed(session, interaction, b.errorEmbed("No timezone saved for that member."), true)
				return
			}
			b.respondEmbed(session, interaction, b.errorEmbed("Could not load the timezone."), true)
			return
		}
		location, err := time.LoadLocation(zone)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Saved timezone is no longer valid."), true)
			return
		}
		now := time.Now().In(location)
		fields := []*discordgo.MessageEmbedField{
			{Name: "Zone", Value: zone, Inline: true},
			{Name: "Local time", Value: now.Format("Mon 15:04"), Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Timezone for "+b.MemberDisplayName(interaction.GuildID, userID), "", b.cfg.Moderation.EmbedColors.Public, fields), true)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown action."), true)
	}
}

func (b *Bot) handleTimestamp(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if interaction.Member == nil || interaction.Member.User == nil {
		return
	}
	opts := optionMap(options)
	timeOpt, ok := opts["time"]
	if !ok {
		b.respondEmbed(session, interaction, b.errorEmbed("A time is required, e.g. 2026-08-28 18:00."), true)
		return
	}

	location := time.UTC
	if zone, err := b.store.GetTimezone(ctx, interaction.Member.User.ID); err == nil {
		if loaded, err := time.LoadLocation(zone); err == nil {
			location = loaded
		}
	}
	parsed, err := time.ParseInLocation("2006-01-02 15:04", timeOpt.StringValue(), location)
	if err != nil {
		b.respondEmbed(session, interaction, b.errorEmbed("Could not parse that time. Use YYYY-MM-DD HH:MM."), true)
		return
	}
	tag := fmt.Sprintf("<t:%d:F>", parsed.Unix())
	b.respond(session, interaction, fmt.Sprintf("%s renders as %s (copy: `%s`)", timeOpt.StringValue(), tag, tag), true)
}

func (b *Bot) handleWelcomeRoles(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if interaction.GuildID == "" || interaction.Member == nil || interaction.Member.User == nil {
		b.respondEmbed(session, interaction, b.errorEmbed("This command only works inside a server."), true)
		return
	}
	perms, err := b.MemberPermissions(interaction.GuildID, interaction.Member.User.ID)
	if err != nil || perms&(discordgo.PermissionAdministrator|discordgo.PermissionManageRoles) == 0 {
		b.respondEmbed(session, interaction, b.errorEmbed("Managing welcome roles requires the manage-roles permission."), true)
		return
	}

	opts := optionMap(options)
	action := ""
	if opt, ok := opts["action"]; ok {
		action = opt.StringValue()
	}
	settings := b.guildSettings(ctx, interaction.GuildID)

	switch action {
	case "list":
		if len(settings.WelcomeRoles) == 0 {
			b.respondEmbed(session, interaction, b.commandEmbed("Welcome roles", "No welcome roles configured.", b.cfg.Moderation.EmbedColors.Welcome, nil), true)
			return
		}
		lines := make([]string, 0, len(settings.WelcomeRoles))
		for _, roleID := range settings.WelcomeRoles {
			lines = append(lines, "<@&"+roleID+">")
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Welcome roles", strings.Join(lines, "\n"), b.cfg.Moderation.EmbedColors.Welcome, nil), true)
	case "add", "remove":
		roleOpt, ok := opts["role"]
		if !ok || roleOpt.RoleValue(session, interaction.GuildID) == nil {
			b.respondEmbed(session, interaction, b.errorEmbed("A role is required."), true)
			return
		}
		roleID := roleOpt.RoleValue(session, interaction.GuildID).ID
		roles := settings.WelcomeRoles[:0:0]
		for _, id := range settings.WelcomeRoles {
			if id != roleID {
				roles = append(roles, id)
			}
		}
		if action == "add" {
			roles = append(roles, roleID)
		}
		settings.WelcomeRoles = roles
		if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Could not update welcome roles."), true)
			return
		}
		b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, interaction.Member.User.ID, "welcome_roles_updated", action+" <@&"+roleID+">")
		verb := "added"
		if action == "remove" {
			verb = "removed"
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Welcome roles updated", "<@&"+roleID+"> "+verb+".", b.cfg.Moderation.EmbedColors.Welcome, nil), true)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown action."), true)
	}
}

func (b *Bot) handleSettings(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if interaction.GuildID == "" || interaction.Member == nil || interaction.Member.User == nil {
		b.respondEmbed(session, interaction, b.errorEmbed("This command only works inside a server."), true)
		return
	}
	perms, err := b.MemberPermissions(interaction.GuildID, interaction.Member.User.ID)
	if err != nil || perms&(discordgo.PermissionAdministrator|discordgo.PermissionManageServer) == 0 {
		b.respondEmbed(session, interaction, b.errorEmbed("Changing settings requires the manage-server permission."), true)
		return
	}

	settings := b.guildSettings(ctx, interaction.GuildID)
	if len(options) == 0 {
		fields := []*discordgo.MessageEmbedField{
			{Name: "Log channel", Value: channelOrNone(settings.LogChannel), Inline: true},
			{Name: "Welcome channel", Value: channelOrNone(settings.WelcomeChannel), Inline: true},
			{Name: "Member count channel", Value: channelOrNone(settings.MemberCountChannel), Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Settings", "", b.cfg.Moderation.EmbedColors.Log, fields), true)
		return
	}

	for _, opt := range options {
		channel := opt.ChannelValue(session)
		if channel == nil {
			continue
		}
		switch opt.Name {
		case "log_channel":
			settings.LogChannel = channel.ID
		case "welcome_channel":
			settings.WelcomeChannel = channel.ID
		case "membercount_channel":
			settings.MemberCountChannel = channel.ID
		}
	}
	if err := b.store.UpsertGuildSettings(ctx, settings); err != nil {
		b.respondEmbed(session, interaction, b.errorEmbed("Could not save settings."), true)
		return
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Settings updated", "", b.cfg.Moderation.EmbedColors.Log, nil), true)
}

// infractionErrorEmbed maps lifecycle failures to moderator-facing messages.
func (b *Bot) infractionErrorEmbed(err error) *discordgo.MessageEmbed {
	switch {
	case errors.Is(err, moderation.ErrMissingDuration):
		return b.errorEmbed("That punishment requires a positive duration.")
	case errors.Is(err, moderation.ErrDisallowedTransition):
		return b.errorEmbed("That punishment change is not allowed.")
	case errors.Is(err, moderation.ErrMissingPermission):
		return b.errorEmbed("You lack the permission for that punishment.")
	case errors.Is(err, storage.ErrNotFound):
		return b.errorEmbed("No infraction with that id.")
	default:
		b.logger.Warn("infraction command failed", zap.Error(err))
		return b.errorEmbed("The operation failed.")
	}
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func (b *Bot) errorEmbed(message string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Error",
		Description: message,
		Color:       b.cfg.Moderation.EmbedColors.Error,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	result := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		result[opt.Name] = opt
	}
	return result
}

func channelOrNone(channelID string) string {
	if channelID == "" {
		return "not set"
	}
	return "<#" + channelID + ">"
}
