package bot

import (
	"context"
	"fmt"

	"warden/internal/audit"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// ogMemberThreshold marks how small the guild must still be for a joining
// member to receive the early-member bonus.
const ogMemberThreshold = 100

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if !b.cfg.Welcome.Enabled || event.GuildID == "" || event.User == nil || event.User.Bot {
		return
	}
	ctx := context.Background()
	settings := b.guildSettings(ctx, event.GuildID)

	for _, roleID := range settings.WelcomeRoles {
		if err := session.GuildMemberRoleAdd(event.GuildID, event.User.ID, roleID); err != nil {
			b.logger.Warn("assign welcome role",
				zap.String("guild_id", event.GuildID),
				zap.String("user_id", event.User.ID),
				zap.String("role_id", roleID),
				zap.Error(err))
		}
	}

	if settings.WelcomeChannel != "" {
		embed := &discordgo.MessageEmbed{
			Title:       "Welcome!",
			Description: fmt.Sprintf("Welcome to the server, <@%s>!", event.User.ID),
			Color:       b.cfg.Moderation.EmbedColors.Welcome,
		}
		if _, err := session.ChannelMessageSendEmbed(settings.WelcomeChannel, embed); err != nil {
			b.logger.Warn("send welcome message", zap.String("guild_id", event.GuildID), zap.Error(err))
		}
	}

	b.updateMemberCountChannel(event.GuildID, settings.MemberCountChannel)
	b.seedNewMember(ctx, event.GuildID, event.User.ID)

	b.audit.Log(ctx, audit.LevelInfo, event.GuildID, event.User.ID, "member_joined", "welcome flow completed")
}

func (b *Bot) updateMemberCountChannel(guildID, channelID string) {
	if channelID == "" || b.cfg.Welcome.MemberCountNameFormat == "" {
		return
	}
	guild := b.guildForID(guildID)
	if guild == nil {
		return
	}
	name := fmt.Sprintf(b.cfg.Welcome.MemberCountNameFormat, guild.MemberCount)
	if _, err := b.session.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name}); err != nil {
		b.logger.Warn("rename member count channel", zap.String("guild_id", guildID), zap.Error(err))
	}
}

// seedNewMember creates the economy record and grants the one-time early
// member bonus while the guild is still small.
func (b *Bot) seedNewMember(ctx context.Context, guildID, userID string) {
	user, err := b.store.EnsureUser(ctx, userID, b.cfg.Economy.StartingBalance)
	if err != nil {
		b.logger.Warn("seed member economy", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if user.ReceivedOGPerks {
		return
	}
	guild := b.guildForID(guildID)
	if guild == nil || guild.MemberCount > ogMemberThreshold {
		return
	}
	if _, err := b.store.AddBalance(ctx, userID, b.cfg.Economy.StartingBalance, b.cfg.Economy.StartingBalance); err != nil {
		b.logger.Warn("grant early member bonus", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := b.store.MarkOGPerks(ctx, userID); err != nil {
		b.logger.Warn("mark early member perks", zap.String("user_id", userID), zap.Error(err))
	}
}
