package moderation

import (
	"errors"
	"fmt"

	"warden/internal/storage"

	"github.com/bwmarrin/discordgo"
)

var (
	// ErrMissingDuration is returned when a timeout or tempban carries no
	// positive duration.
	ErrMissingDuration = errors.New("moderation: temporary punishment requires a duration")
	// ErrNoPunishment is returned when a punishment-applying call is made
	// without a punishment set.
	ErrNoPunishment = errors.New("moderation: no punishment set")
	// ErrDisallowedTransition is returned for de-escalation paths the system
	// refuses.
	ErrDisallowedTransition = errors.New("moderation: disallowed punishment transition")
	// ErrMissingPermission is returned when the acting moderator lacks the
	// platform permission for the requested penalty.
	ErrMissingPermission = errors.New("moderation: missing permission for penalty")
)

// RequiredPermission maps each penalty to the platform permission a moderator
// must hold to apply it directly.
var RequiredPermission = map[storage.Penalty]int64{
	storage.PenaltyBan:     discordgo.PermissionBanMembers,
	storage.PenaltyTempBan: discordgo.PermissionBanMembers,
	storage.PenaltyKick:    discordgo.PermissionKickMembers,
	storage.PenaltyTimeout: discordgo.PermissionModerateMembers,
}

type transition struct {
	from storage.Penalty
	to   storage.Penalty
}

// disallowedTransitions are the ordered from->to pairs a punishment change
// refuses. Everything else is allowed, including clearing and self
// transitions.
var disallowedTransitions = map[transition]struct{}{
	{storage.PenaltyBan, storage.PenaltyKick}:        {},
	{storage.PenaltyBan, storage.PenaltyTimeout}:     {},
	{storage.PenaltyTempBan, storage.PenaltyKick}:    {},
	{storage.PenaltyTempBan, storage.PenaltyTimeout}: {},
	{storage.PenaltyKick, storage.PenaltyTimeout}:    {},
}

// TransitionAllowed reports whether changing from one punishment to another
// is permitted. A nil punishment means "none".
func TransitionAllowed(from, to *storage.Punishment) bool {
	if from == nil || to == nil {
		return true
	}
	_, blocked := disallowedTransitions[transition{from.Penalty, to.Penalty}]
	return !blocked
}

// ValidatePunishment rejects malformed punishments before any store write or
// platform call happens.
func ValidatePunishment(p *storage.Punishment) error {
	if p == nil {
		return nil
	}
	if _, ok := RequiredPermission[p.Penalty]; !ok {
		return fmt.Errorf("moderation: unknown penalty %q", p.Penalty)
	}
	if p.Penalty.Temporary() && p.Duration <= 0 {
		return ErrMissingDuration
	}
	return nil
}

// PenaltyLabel renders a penalty for embeds and audit lines.
func PenaltyLabel(p *storage.Punishment) string {
	if p == nil {
		return "None"
	}
	switch p.Penalty {
	case storage.PenaltyBan:
		return "Ban"
	case storage.PenaltyTempBan:
		if p.HumanDuration != "" {
			return "Temp ban (" + p.HumanDuration + ")"
		}
		return "Temp ban"
	case storage.PenaltyKick:
		return "Kick"
	case storage.PenaltyTimeout:
		if p.HumanDuration != "" {
			return "Timeout (" + p.HumanDuration + ")"
		}
		return "Timeout"
	default:
		return string(p.Penalty)
	}
}
