package moderation

import (
	"fmt"
	"time"

	"warden/internal/storage"

	"github.com/bwmarrin/discordgo"
)

// previousInfractionsLimit caps the rendered previous-infractions field.
// Entries are dropped from the end until the text fits.
const previousInfractionsLimit = 1024

// Colors configures embed accent colors per message kind.
type Colors struct {
	Log    int
	Public int
	Change int
	Error  int
}

func (l *Lifecycle) logEmbed(inf storage.Infraction, previous []storage.Infraction) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     "Infraction " + inf.ID,
		Color:     l.cfg.Colors.Log,
		Timestamp: inf.CreatedAt.Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Member", Value: memberLabel(l.client.MemberDisplayName(inf.GuildID, inf.UserID), inf.UserID), Inline: true},
			{Name: "Channel", Value: channelMention(inf.ChannelID), Inline: true},
			{Name: "Punishment", Value: PenaltyLabel(inf.Punishment), Inline: true},
			{Name: "Reason", Value: orDash(inf.Reason), Inline: false},
			{Name: "Moderator", Value: mention(inf.ModID), Inline: true},
		},
	}
	if inf.PendingApproval {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Status",
			Value:  "Pending approval, interim timeout applied",
			Inline: true,
		})
	}
	if inf.ModNotes != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Mod notes", Value: inf.ModNotes, Inline: false})
	}
	if inf.RelatedMessage != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Related message", Value: inf.RelatedMessage, Inline: false})
	}
	if field := previousInfractionsField(previous, inf.ID); field != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Previous infractions", Value: field, Inline: false})
	}
	return embed
}

func (l *Lifecycle) publicEmbed(inf storage.Infraction, guildName string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "You received an infraction",
		Description: fmt.Sprintf("A moderator recorded an infraction against you in %s.", guildName),
		Color:       l.cfg.Colors.Public,
		Timestamp:   inf.CreatedAt.Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Punishment", Value: PenaltyLabel(inf.Punishment), Inline: true},
			{Name: "Reason", Value: orDash(inf.Reason), Inline: false},
		},
	}
	if inf.PublicNotes != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Notes", Value: inf.PublicNotes, Inline: false})
	}
	return embed
}

func (l *Lifecycle) changeEmbed(inf storage.Infraction, previous *storage.Punishment, modID string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:     "Punishment changed",
		Color:     l.cfg.Colors.Change,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Infraction", Value: inf.ID, Inline: true},
			{Name: "Member", Value: mention(inf.UserID), Inline: true},
			{Name: "From", Value: PenaltyLabel(previous), Inline: true},
			{Name: "To", Value: PenaltyLabel(inf.Punishment), Inline: true},
			{Name: "Moderator", Value: mention(modID), Inline: true},
		},
	}
}

// previousInfractionsField renders older infractions newest-first, dropping
// entries until the whole field fits the platform's 1024-character cap.
func previousInfractionsField(previous []storage.Infraction, excludeID string) string {
	var lines []string
	for i := len(previous) - 1; i >= 0; i-- {
		inf := previous[i]
		if inf.ID == excludeID {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s", inf.CreatedAt.Format("2006-01-02"), PenaltyLabel(inf.Punishment), orDash(inf.Reason)))
	}
	if len(lines) == 0 {
		return ""
	}

	for len(lines) > 0 {
		rendered := joinLines(lines)
		if len(rendered) <= previousInfractionsLimit {
			return rendered
		}
		lines = lines[:len(lines)-1]
	}
	return ""
}

func joinLines(lines []string) string {
	out := ""
	for i, line := range lines {
		if i > 0 {
			out += "\n"
		}
		out += line
	}
	return out
}

func memberLabel(displayName, userID string) string {
	if displayName == "" || displayName == userID {
		return mention(userID)
	}
	return fmt.Sprintf("%s (%s)", mention(userID), displayName)
}

func mention(userID string) string {
	if userID == "" {
		return "-"
	}
	return "<@" + userID + ">"
}

func channelMention(channelID string) string {
	if channelID == "" {
		return "-"
	}
	return "<#" + channelID + ">"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
