package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"warden/internal/audit"
	"warden/internal/scheduler"
	"warden/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PresetExpirePending names the scheduler preset that clears a punishment
// nobody authorized within the approval window.
const PresetExpirePending = "expirePending"

// authorizeCustomIDPrefix prefixes the component custom id carried by the
// authorize button on a pending log message.
const authorizeCustomIDPrefix = "authorize_infraction:"

// ErrNotPending is returned when authorizing an infraction that is not
// waiting for approval.
var ErrNotPending = errors.New("moderation: infraction is not pending approval")

// Config tunes the lifecycle orchestration.
type Config struct {
	// DefaultLogChannel receives log messages for guilds without their own
	// configured channel.
	DefaultLogChannel string
	// ApprovalWindow bounds how long a ban-class punishment may sit pending
	// approval; it doubles as the interim timeout length.
	ApprovalWindow time.Duration
	DMOnInfraction bool
	Colors         Colors
}

// Lifecycle ties infraction record-keeping to punishment distribution and
// the moderator-facing log trail.
type Lifecycle struct {
	store  *storage.Store
	dist   *Distributor
	sched  *scheduler.Scheduler
	client GuildClient
	audit  *audit.Logger
	logger *zap.Logger
	cfg    Config
}

func NewLifecycle(store *storage.Store, dist *Distributor, sched *scheduler.Scheduler, client GuildClient, auditLogger *audit.Logger, logger *zap.Logger, cfg Config) *Lifecycle {
	if cfg.ApprovalWindow <= 0 {
		cfg.ApprovalWindow = 24 * time.Hour
	}
	return &Lifecycle{
		store:  store,
		dist:   dist,
		sched:  sched,
		client: client,
		audit:  auditLogger,
		logger: logger,
		cfg:    cfg,
	}
}

// AuthorizeCustomID builds the component custom id for an infraction's
// authorize button.
func AuthorizeCustomID(infractionID string) string {
	return authorizeCustomIDPrefix + infractionID
}

// ParseAuthorizeCustomID extracts the infraction id from an authorize button
// custom id. Reports false for unrelated components.
func ParseAuthorizeCustomID(customID string) (string, bool) {
	if !strings.HasPrefix(customID, authorizeCustomIDPrefix) {
		return "", false
	}
	return strings.TrimPrefix(customID, authorizeCustomIDPrefix), true
}

// AdministerInfraction applies the drafted infraction. Moderators holding
// the penalty's required permission get the punishment applied immediately;
// a ban-class request from a moderator without it is held pending approval
// behind an interim timeout. The record is persisted, logged to the guild's
// log channel and the target is notified by direct message.
func (l *Lifecycle) AdministerInfraction(ctx context.Context, inf storage.Infraction) (storage.Infraction, error) {
	if err := ValidatePunishment(inf.Punishment); err != nil {
		return storage.Infraction{}, err
	}
	if inf.ID == "" {
		inf.ID = uuid.NewString()
	}
	now := time.Now()
	inf.CreatedAt = now
	inf.UpdatedAt = now
	inf.PendingApproval = false

	if inf.Punishment != nil {
		authorized, err := l.moderatorAuthorized(inf.GuildID, inf.ModID, inf.Punishment.Penalty)
		if err != nil {
			return storage.Infraction{}, err
		}
		switch {
		case authorized:
			l.dist.SetInfraction(inf.GuildID, inf.UserID, inf.Reason, inf.Punishment)
			if err := l.dist.Administer(ctx); err != nil {
				return storage.Infraction{}, err
			}
		case inf.Punishment.Penalty == storage.PenaltyBan || inf.Punishment.Penalty == storage.PenaltyTempBan:
			until := now.Add(l.cfg.ApprovalWindow)
			if err := l.client.Timeout(inf.GuildID, inf.UserID, &until, "pending approval: "+inf.Reason); err != nil {
				return storage.Infraction{}, err
			}
			inf.PendingApproval = true
			if _, err := l.sched.NewTask(ctx, l.cfg.ApprovalWindow, PresetExpirePending, inf.ID); err != nil {
				return storage.Infraction{}, err
			}
		default:
			return storage.Infraction{}, ErrMissingPermission
		}
	}

	if err := l.store.CreateInfraction(ctx, inf); err != nil {
		return storage.Infraction{}, fmt.Errorf("persist infraction: %w", err)
	}

	l.postLogMessage(ctx, &inf)
	l.notifyTarget(inf)

	l.audit.Log(ctx, audit.LevelWarn, inf.GuildID, inf.UserID, "infraction_administered",
		fmt.Sprintf("infraction %s by %s: %s", inf.ID, inf.ModID, PenaltyLabel(inf.Punishment)))
	return inf, nil
}

// ChangePunishment archives the current punishment, reverses it on the
// platform and applies the new one. A nil newPunishment clears the
// punishment. Disallowed transitions, malformed punishments and moderators
// lacking the new penalty's permission are rejected before anything is
// mutated.
func (l *Lifecycle) ChangePunishment(ctx context.Context, infractionID string, newPunishment *storage.Punishment, modID string) (storage.Infraction, error) {
	inf, err := l.store.GetInfraction(ctx, infractionID)
	if err != nil {
		return storage.Infraction{}, err
	}
	if err := ValidatePunishment(newPunishment); err != nil {
		return storage.Infraction{}, err
	}
	if !TransitionAllowed(inf.Punishment, newPunishment) {
		return storage.Infraction{}, fmt.Errorf("%w: %s to %s", ErrDisallowedTransition,
			PenaltyLabel(inf.Punishment), PenaltyLabel(newPunishment))
	}
	if newPunishment != nil {
		authorized, err := l.moderatorAuthorized(inf.GuildID, modID, newPunishment.Penalty)
		if err != nil {
			return storage.Infraction{}, err
		}
		if !authorized {
			return storage.Infraction{}, ErrMissingPermission
		}
	}

	previous := inf.Punishment
	wasPending := inf.PendingApproval
	if previous != nil {
		if err := l.store.AddHistoricalPunishment(ctx, storage.HistoricalPunishment{
			InfractionID: inf.ID,
			Penalty:      previous.Penalty,
			Duration:     previous.Duration,
			ChangedByID:  modID,
			HistoricalAt: time.Now(),
		}); err != nil {
			return storage.Infraction{}, fmt.Errorf("archive punishment: %w", err)
		}
	}
	if wasPending {
		// A pending punishment was never applied; only the interim
		// timeout exists on the platform.
		if err := l.client.Timeout(inf.GuildID, inf.UserID, nil, "pending punishment changed"); err != nil {
			l.logger.Warn("clear interim timeout", zap.String("infraction_id", inf.ID), zap.Error(err))
		}
		if _, err := l.sched.CancelTask(ctx, PresetExpirePending, inf.ID); err != nil {
			l.logger.Warn("cancel pending expiry", zap.String("infraction_id", inf.ID), zap.Error(err))
		}
		if newPunishment != nil {
			l.dist.SetInfraction(inf.GuildID, inf.UserID, inf.Reason, newPunishment)
			if err := l.dist.Administer(ctx); err != nil {
				return storage.Infraction{}, err
			}
		}
	} else {
		l.dist.SetInfraction(inf.GuildID, inf.UserID, inf.Reason, newPunishment)
		if err := l.dist.Change(ctx, previous); err != nil {
			return storage.Infraction{}, err
		}
	}

	if err := l.store.UpdateInfractionPunishment(ctx, inf.ID, newPunishment, false); err != nil {
		return storage.Infraction{}, err
	}
	inf.Punishment = newPunishment
	inf.PendingApproval = false

	var components *[]discordgo.MessageComponent
	if wasPending {
		components = &[]discordgo.MessageComponent{}
	}
	l.editLogMessage(ctx, inf, components)
	l.postChangeReply(inf, previous, modID)

	l.audit.Log(ctx, audit.LevelWarn, inf.GuildID, inf.UserID, "punishment_changed",
		fmt.Sprintf("infraction %s: %s to %s by %s", inf.ID, PenaltyLabel(previous), PenaltyLabel(newPunishment), modID))
	return inf, nil
}

// RemoveInfraction reverses any active punishment and deletes the record.
// An unknown id is a silent no-op.
func (l *Lifecycle) RemoveInfraction(ctx context.Context, infractionID, modID string) error {
	inf, err := l.store.GetInfraction(ctx, infractionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}

	if inf.Punishment != nil && !inf.PendingApproval {
		l.dist.SetInfraction(inf.GuildID, inf.UserID, inf.Reason, inf.Punishment)
		if err := l.dist.Remove(ctx); err != nil {
			return err
		}
	}
	if inf.PendingApproval {
		if err := l.client.Timeout(inf.GuildID, inf.UserID, nil, "infraction removed"); err != nil {
			l.logger.Warn("clear interim timeout", zap.String("infraction_id", inf.ID), zap.Error(err))
		}
		if _, err := l.sched.CancelTask(ctx, PresetExpirePending, inf.ID); err != nil {
			l.logger.Warn("cancel pending expiry", zap.String("infraction_id", inf.ID), zap.Error(err))
		}
	}

	if _, err := l.store.DeleteInfraction(ctx, inf.ID); err != nil {
		return err
	}
	l.audit.Log(ctx, audit.LevelInfo, inf.GuildID, inf.UserID, "infraction_removed",
		fmt.Sprintf("infraction %s removed by %s", inf.ID, modID))
	return nil
}

// AuthorizePunishment resolves a pending infraction: the approver's
// permission is checked, the interim timeout lifted and the requested
// punishment finally applied.
func (l *Lifecycle) AuthorizePunishment(ctx context.Context, infractionID, approverID string) (storage.Infraction, error) {
	inf, err := l.store.GetInfraction(ctx, infractionID)
	if err != nil {
		return storage.Infraction{}, err
	}
	if !inf.PendingApproval || inf.Punishment == nil {
		return storage.Infraction{}, ErrNotPending
	}

	authorized, err := l.moderatorAuthorized(inf.GuildID, approverID, inf.Punishment.Penalty)
	if err != nil {
		return storage.Infraction{}, err
	}
	if !authorized {
		return storage.Infraction{}, ErrMissingPermission
	}

	if err := l.client.Timeout(inf.GuildID, inf.UserID, nil, "punishment authorized"); err != nil {
		l.logger.Warn("clear interim timeout", zap.String("infraction_id", inf.ID), zap.Error(err))
	}
	l.dist.SetInfraction(inf.GuildID, inf.UserID, inf.Reason, inf.Punishment)
	if err := l.dist.Administer(ctx); err != nil {
		return storage.Infraction{}, err
	}

	if err := l.store.UpdateInfractionPunishment(ctx, inf.ID, inf.Punishment, false); err != nil {
		return storage.Infraction{}, err
	}
	inf.PendingApproval = false
	if _, err := l.sched.CancelTask(ctx, PresetExpirePending, inf.ID); err != nil {
		l.logger.Warn("cancel pending expiry", zap.String("infraction_id", inf.ID), zap.Error(err))
	}

	l.editLogMessage(ctx, inf, &[]discordgo.MessageComponent{})

	l.audit.Log(ctx, audit.LevelWarn, inf.GuildID, inf.UserID, "punishment_authorized",
		fmt.Sprintf("infraction %s authorized by %s", inf.ID, approverID))
	return inf, nil
}

// ExpirePending clears a punishment that sat unapproved for the whole
// window. The interim timeout lapses on its own at the same moment.
func (l *Lifecycle) ExpirePending(ctx context.Context, infractionID string) error {
	inf, err := l.store.GetInfraction(ctx, infractionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if !inf.PendingApproval {
		return nil
	}

	if err := l.store.UpdateInfractionPunishment(ctx, inf.ID, nil, false); err != nil {
		return err
	}
	inf.Punishment = nil
	inf.PendingApproval = false
	l.editLogMessage(ctx, inf, &[]discordgo.MessageComponent{})

	l.audit.Log(ctx, audit.LevelWarn, inf.GuildID, inf.UserID, "pending_punishment_expired",
		fmt.Sprintf("infraction %s expired unapproved", inf.ID))
	return nil
}

func (l *Lifecycle) moderatorAuthorized(guildID, modID string, penalty storage.Penalty) (bool, error) {
	required, ok := RequiredPermission[penalty]
	if !ok {
		return false, fmt.Errorf("moderation: unknown penalty %q", penalty)
	}
	perms, err := l.client.MemberPermissions(guildID, modID)
	if err != nil {
		return false, fmt.Errorf("resolve moderator permissions: %w", err)
	}
	return perms&discordgo.PermissionAdministrator != 0 || perms&required != 0, nil
}

// postLogMessage writes the moderator-facing log entry and records its
// location on the infraction. Failures are logged and do not roll back the
// already-applied punishment or store write.
func (l *Lifecycle) postLogMessage(ctx context.Context, inf *storage.Infraction) {
	channelID := l.logChannel(ctx, inf.GuildID)
	if channelID == "" {
		return
	}
	previous, err := l.store.ListUserInfractions(ctx, inf.GuildID, inf.UserID)
	if err != nil {
		l.logger.Warn("list previous infractions", zap.String("infraction_id", inf.ID), zap.Error(err))
	}

	message := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{l.logEmbed(*inf, previous)}}
	if inf.PendingApproval {
		message.Components = []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Authorize",
					Style:    discordgo.DangerButton,
					CustomID: AuthorizeCustomID(inf.ID),
				},
			}},
		}
	}
	messageID, err := l.client.SendMessage(channelID, message)
	if err != nil {
		l.logger.Warn("post infraction log", zap.String("infraction_id", inf.ID), zap.Error(err))
		return
	}
	inf.LogChannelID = channelID
	inf.LogMessageID = messageID
	if err := l.store.SetInfractionLogMessage(ctx, inf.ID, channelID, messageID); err != nil {
		l.logger.Warn("record log message", zap.String("infraction_id", inf.ID), zap.Error(err))
	}
}

func (l *Lifecycle) editLogMessage(ctx context.Context, inf storage.Infraction, components *[]discordgo.MessageComponent) {
	if inf.LogChannelID == "" || inf.LogMessageID == "" {
		return
	}
	previous, err := l.store.ListUserInfractions(ctx, inf.GuildID, inf.UserID)
	if err != nil {
		l.logger.Warn("list previous infractions", zap.String("infraction_id", inf.ID), zap.Error(err))
	}
	edit := &discordgo.MessageEdit{
		Channel: inf.LogChannelID,
		ID:      inf.LogMessageID,
		Embeds:  &[]*discordgo.MessageEmbed{l.logEmbed(inf, previous)},
	}
	if components != nil {
		edit.Components = components
	}
	if err := l.client.EditMessage(inf.LogChannelID, inf.LogMessageID, edit); err != nil {
		l.logger.Warn("edit infraction log", zap.String("infraction_id", inf.ID), zap.Error(err))
	}
}

func (l *Lifecycle) postChangeReply(inf storage.Infraction, previous *storage.Punishment, modID string) {
	if inf.LogChannelID == "" {
		return
	}
	message := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{l.changeEmbed(inf, previous, modID)}}
	if inf.LogMessageID != "" {
		message.Reference = &discordgo.MessageReference{
			MessageID: inf.LogMessageID,
			ChannelID: inf.LogChannelID,
			GuildID:   inf.GuildID,
		}
	}
	if _, err := l.client.SendMessage(inf.LogChannelID, message); err != nil {
		l.logger.Warn("post change log", zap.String("infraction_id", inf.ID), zap.Error(err))
	}
}

// notifyTarget sends the user-visible summary. Closed DMs or a departed
// member are not errors worth surfacing.
func (l *Lifecycle) notifyTarget(inf storage.Infraction) {
	if !l.cfg.DMOnInfraction {
		return
	}
	guildName := l.client.GuildName(inf.GuildID)
	if guildName == "" {
		guildName = "the server"
	}
	if err := l.client.SendDirectMessage(inf.UserID, l.publicEmbed(inf, guildName)); err != nil {
		l.logger.Debug("dm target", zap.String("infraction_id", inf.ID), zap.Error(err))
	}
}

func (l *Lifecycle) logChannel(ctx context.Context, guildID string) string {
	settings, err := l.store.GetGuildSettings(ctx, guildID, storage.GuildSettings{LogChannel: l.cfg.DefaultLogChannel})
	if err == nil && settings.LogChannel != "" {
		return settings.LogChannel
	}
	return l.cfg.DefaultLogChannel
}
