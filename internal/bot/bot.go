package bot

import (
	"context"
	"fmt"
	"time"

	"warden/internal/audit"
	"warden/internal/config"
	"warden/internal/moderation"
	"warden/internal/scheduler"
	"warden/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	audit     *audit.Logger
	sched     *scheduler.Scheduler
	session   *discordgo.Session
	dist      *moderation.Distributor
	lifecycle *moderation.Lifecycle
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, sched *scheduler.Scheduler, auditLogger *audit.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans

	b := &Bot{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		audit:   auditLogger,
		sched:   sched,
		session: session,
	}

	b.dist = moderation.NewDistributor(b, sched)
	b.lifecycle = moderation.NewLifecycle(store, b.dist, sched, b, auditLogger, logger, moderation.Config{
		DefaultLogChannel: cfg.Moderation.DefaultLogChannel,
		ApprovalWindow:    time.Duration(cfg.Moderation.ApprovalWindowHours) * time.Hour,
		DMOnInfraction:    cfg.Moderation.DMOnInfraction,
		Colors: moderation.Colors{
			Log:    cfg.Moderation.EmbedColors.Log,
			Public: cfg.Moderation.EmbedColors.Public,
			Change: cfg.Moderation.EmbedColors.Change,
			Error:  cfg.Moderation.EmbedColors.Error,
		},
	})

	sched.Register(moderation.PresetUnbanMember, b.unbanMemberPreset)
	sched.Register(moderation.PresetExpirePending, b.expirePendingPreset)

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}
	return nil
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username))
}

// unbanMemberPreset lifts a temporary ban. Arguments: target user id, guild id.
func (b *Bot) unbanMemberPreset(ctx context.Context, args ...string) error {
	if len(args) < 2 {
		return fmt.Errorf("unbanMember: want user and guild arguments, got %d", len(args))
	}
	userID, guildID := args[0], args[1]
	if err := b.BanRemove(guildID, userID, "temporary ban expired"); err != nil {
		return err
	}
	b.audit.Log(ctx, audit.LevelInfo, guildID, userID, "member_unbanned", "temporary ban expired")
	return nil
}

// expirePendingPreset clears a punishment nobody authorized in time.
// Arguments: infraction id.
func (b *Bot) expirePendingPreset(ctx context.Context, args ...string) error {
	if len(args) < 1 {
		return fmt.Errorf("expirePending: missing infraction id")
	}
	return b.lifecycle.ExpirePending(ctx, args[0])
}

// The methods below implement moderation.GuildClient on the live session.

func (b *Bot) BanCreate(guildID, userID, reason string) error {
	return b.session.GuildBanCreateWithReason(guildID, userID, reason, 0)
}

func (b *Bot) BanRemove(guildID, userID, reason string) error {
	_ = reason
	return b.session.GuildBanDelete(guildID, userID)
}

func (b *Bot) Timeout(guildID, userID string, until *time.Time, reason string) error {
	_ = reason
	return b.session.GuildMemberTimeout(guildID, userID, until)
}

func (b *Bot) Kick(guildID, userID, reason string) error {
	return b.session.GuildMemberDeleteWithReason(guildID, userID, reason)
}

func (b *Bot) SendMessage(channelID string, message *discordgo.MessageSend) (string, error) {
	sent, err := b.session.ChannelMessageSendComplex(channelID, message)
	if err != nil {
		return "", err
	}
	return sent.ID, nil
}

func (b *Bot) EditMessage(channelID, messageID string, edit *discordgo.MessageEdit) error {
	_, err := b.session.ChannelMessageEditComplex(edit)
	return err
}

func (b *Bot) SendDirectMessage(userID string, embed *discordgo.MessageEmbed) error {
	channel, err := b.session.UserChannelCreate(userID)
	if err != nil {
		return err
	}
	_, err = b.session.ChannelMessageSendEmbed(channel.ID, embed)
	return err
}

// MemberPermissions computes the member's guild-wide permissions from the
// everyone role plus their assigned roles. The guild owner always holds
// administrator.
func (b *Bot) MemberPermissions(guildID, userID string) (int64, error) {
	guild := b.guildForID(guildID)
	if guild == nil {
		return 0, fmt.Errorf("guild %s not resolvable", guildID)
	}
	if guild.OwnerID == userID {
		return discordgo.PermissionAdministrator, nil
	}
	member := b.memberForUser(guildID, userID)
	if member == nil {
		return 0, fmt.Errorf("member %s not resolvable in guild %s", userID, guildID)
	}

	perms := int64(0)
	roleMap := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		roleMap[role.ID] = role
		if role.ID == guild.ID {
			perms |= role.Permissions
		}
	}
	for _, roleID := range member.Roles {
		if role := roleMap[roleID]; role != nil {
			perms |= role.Permissions
		}
	}
	return perms, nil
}

func (b *Bot) MemberDisplayName(guildID, userID string) string {
	member := b.memberForUser(guildID, userID)
	if member == nil {
		return userID
	}
	if member.Nick != "" {
		return member.Nick
	}
	if member.User != nil {
		return member.User.Username
	}
	return userID
}

func (b *Bot) GuildName(guildID string) string {
	guild := b.guildForID(guildID)
	if guild == nil {
		return ""
	}
	return guild.Name
}

// memberForUser prefers the session cache before a network fetch.
func (b *Bot) memberForUser(guildID, userID string) *discordgo.Member {
	member, err := b.session.State.Member(guildID, userID)
	if err == nil && member != nil {
		return member
	}
	member, _ = b.session.GuildMember(guildID, userID)
	return member
}

func (b *Bot) guildForID(guildID string) *discordgo.Guild {
	guild, err := b.session.State.Guild(guildID)
	if err == nil && guild != nil {
		return guild
	}
	guild, _ = b.session.Guild(guildID)
	return guild
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) storage.GuildSettings {
	defaults := storage.GuildSettings{
		LogChannel:     b.cfg.Moderation.DefaultLogChannel,
		WelcomeChannel: b.cfg.Welcome.DefaultChannel,
	}
	settings, err := b.store.GetGuildSettings(ctx, guildID, defaults)
	if err != nil {
		b.logger.Warn("load guild settings", zap.String("guild_id", guildID), zap.Error(err))
		defaults.GuildID = guildID
		return defaults
	}
	return settings
}
