package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warden/internal/scheduler"
	"warden/internal/storage"

	"github.com/bwmarrin/discordgo"
)

// PresetUnbanMember names the scheduler preset that lifts a temporary ban.
const PresetUnbanMember = "unbanMember"

// GuildClient is the slice of the platform API the moderation layer needs.
// The bot package implements it on top of the live session; tests use fakes.
type GuildClient interface {
	BanCreate(guildID, userID, reason string) error
	BanRemove(guildID, userID, reason string) error
	Timeout(guildID, userID string, until *time.Time, reason string) error
	Kick(guildID, userID, reason string) error
	SendMessage(channelID string, message *discordgo.MessageSend) (messageID string, err error)
	EditMessage(channelID, messageID string, edit *discordgo.MessageEdit) error
	SendDirectMessage(userID string, embed *discordgo.MessageEmbed) error
	MemberPermissions(guildID, userID string) (int64, error)
	MemberDisplayName(guildID, userID string) string
	GuildName(guildID string) string
}

// Distributor translates a punishment into platform actions. It carries a
// working set of infraction data that callers swap with SetInfraction; this
// is what lets a change pivot from the old punishment to the new one between
// the remove and administer halves.
type Distributor struct {
	client GuildClient
	sched  *scheduler.Scheduler

	guildID    string
	userID     string
	reason     string
	punishment *storage.Punishment
}

func NewDistributor(client GuildClient, sched *scheduler.Scheduler) *Distributor {
	return &Distributor{client: client, sched: sched}
}

// SetInfraction replaces the working data without side effects.
func (d *Distributor) SetInfraction(guildID, userID, reason string, punishment *storage.Punishment) {
	d.guildID = guildID
	d.userID = userID
	d.reason = reason
	d.punishment = punishment
}

// Administer applies the working punishment to the platform. Validation runs
// before any platform call or task registration.
func (d *Distributor) Administer(ctx context.Context) error {
	if d.punishment == nil {
		return ErrNoPunishment
	}
	if err := ValidatePunishment(d.punishment); err != nil {
		return err
	}

	switch d.punishment.Penalty {
	case storage.PenaltyBan:
		return d.client.BanCreate(d.guildID, d.userID, d.reason)
	case storage.PenaltyTempBan:
		if err := d.client.BanCreate(d.guildID, d.userID, d.reason); err != nil {
			return err
		}
		if _, err := d.sched.NewTask(ctx, d.punishment.Duration, PresetUnbanMember, d.userID, d.guildID); err != nil {
			return fmt.Errorf("schedule unban: %w", err)
		}
		return nil
	case storage.PenaltyTimeout:
		until := time.Now().Add(d.punishment.Duration)
		return d.client.Timeout(d.guildID, d.userID, &until, d.reason)
	case storage.PenaltyKick:
		return d.client.Kick(d.guildID, d.userID, d.reason)
	default:
		return fmt.Errorf("moderation: unknown penalty %q", d.punishment.Penalty)
	}
}

// Remove reverses the working punishment. A nil punishment is a no-op, as is
// a tempban whose scheduled unban already fired.
func (d *Distributor) Remove(ctx context.Context) error {
	if d.punishment == nil {
		return nil
	}
	switch d.punishment.Penalty {
	case storage.PenaltyBan:
		return d.client.BanRemove(d.guildID, d.userID, d.reason)
	case storage.PenaltyTempBan:
		err := d.sched.RunTaskNow(ctx, PresetUnbanMember, d.userID, d.guildID)
		if errors.Is(err, scheduler.ErrTaskNotFound) {
			// The scheduled unban already ran; nothing left to reverse.
			return nil
		}
		return err
	case storage.PenaltyTimeout:
		return d.client.Timeout(d.guildID, d.userID, nil, d.reason)
	case storage.PenaltyKick:
		// A kick cannot be reversed.
		return nil
	default:
		return fmt.Errorf("moderation: unknown penalty %q", d.punishment.Penalty)
	}
}

// Change reverses the previous working punishment and applies the current
// one. Callers must have called SetInfraction with the new data first.
func (d *Distributor) Change(ctx context.Context, previous *storage.Punishment) error {
	current := d.punishment
	d.punishment = previous
	if err := d.Remove(ctx); err != nil {
		d.punishment = current
		return err
	}
	d.punishment = current
	if current == nil {
		return nil
	}
	return d.Administer(ctx)
}
