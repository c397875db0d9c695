package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Penalty is the kind of punishment attached to an infraction.
type Penalty string

const (
	PenaltyTimeout Penalty = "timeout"
	PenaltyKick    Penalty = "kick"
	PenaltyTempBan Penalty = "tempban"
	PenaltyBan     Penalty = "ban"
)

// Temporary reports whether the penalty carries a duration.
func (p Penalty) Temporary() bool {
	return p == PenaltyTimeout || p == PenaltyTempBan
}

// Punishment is the value object embedded in an infraction.
type Punishment struct {
	Penalty Penalty
	// Duration applies to timeout and tempban only.
	Duration      time.Duration
	HumanDuration string
}

// HistoricalPunishment is an archived punishment superseded by a change.
type HistoricalPunishment struct {
	InfractionID string
	Penalty      Penalty
	Duration     time.Duration
	ChangedByID  string
	HistoricalAt time.Time
}

type Infraction struct {
	ID              string
	GuildID         string
	UserID          string
	ModID           string
	ChannelID       string
	Reason          string
	ModNotes        string
	PublicNotes     string
	RelatedMessage  string
	LogChannelID    string
	LogMessageID    string
	Punishment      *Punishment
	PendingApproval bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (s *Store) CreateInfraction(ctx context.Context, inf Infraction) error {
	penalty, duration := punishmentColumns(inf.Punishment)
	human := ""
	if inf.Punishment != nil {
		human = inf.Punishment.HumanDuration
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO infractions (
			id, guild_id, user_id, mod_id, channel_id, reason, mod_notes, public_notes,
			related_message, log_channel_id, log_message_id, penalty, duration_ms,
			human_duration, pending_approval, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		inf.ID, inf.GuildID, inf.UserID, inf.ModID, inf.ChannelID, inf.Reason,
		inf.ModNotes, inf.PublicNotes, inf.RelatedMessage, inf.LogChannelID,
		inf.LogMessageID, penalty, duration, human,
		boolToInt(inf.PendingApproval), inf.CreatedAt.Unix(), inf.UpdatedAt.Unix(),
	)
	return err
}

func (s *Store) GetInfraction(ctx context.Context, id string) (Infraction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, guild_id, user_id, mod_id, channel_id, reason, mod_notes, public_notes,
			related_message, log_channel_id, log_message_id, penalty, duration_ms,
			human_duration, pending_approval, created_at, updated_at
		FROM infractions WHERE id = ?`, id)

	inf, err := scanInfraction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Infraction{}, ErrNotFound
		}
		return Infraction{}, err
	}
	return inf, nil
}

func (s *Store) ListUserInfractions(ctx context.Context, guildID, userID string) ([]Infraction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, mod_id, channel_id, reason, mod_notes, public_notes,
			related_message, log_channel_id, log_message_id, penalty, duration_ms,
			human_duration, pending_approval, created_at, updated_at
		FROM infractions
		WHERE guild_id = ? AND user_id = ?
		ORDER BY created_at ASC
	`, guildID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infractions []Infraction
	for rows.Next() {
		inf, err := scanInfraction(rows)
		if err != nil {
			return nil, err
		}
		infractions = append(infractions, inf)
	}
	return infractions, rows.Err()
}

// UpdateInfractionPunishment replaces the current punishment (nil clears it)
// and the pending-approval flag.
func (s *Store) UpdateInfractionPunishment(ctx context.Context, id string, punishment *Punishment, pending bool) error {
	penalty, duration := punishmentColumns(punishment)
	human := ""
	if punishment != nil {
		human = punishment.HumanDuration
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE infractions
		SET penalty = ?, duration_ms = ?, human_duration = ?, pending_approval = ?, updated_at = ?
		WHERE id = ?
	`, penalty, duration, human, boolToInt(pending), time.Now().Unix(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetInfractionLogMessage(ctx context.Context, id, channelID, messageID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE infractions SET log_channel_id = ?, log_message_id = ?, updated_at = ? WHERE id = ?
	`, channelID, messageID, time.Now().Unix(), id)
	return err
}

// DeleteInfraction removes the infraction and its punishment history.
// Returns false when the id did not resolve.
func (s *Store) DeleteInfraction(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM infractions WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM historical_punishments WHERE infraction_id = ?`, id)
	return true, err
}

func (s *Store) AddHistoricalPunishment(ctx context.Context, hp HistoricalPunishment) error {
	var duration any
	if hp.Penalty.Temporary() {
		duration = hp.Duration.Milliseconds()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO historical_punishments (infraction_id, penalty, duration_ms, changed_by_id, historical_at)
		VALUES (?, ?, ?, ?, ?)
	`, hp.InfractionID, string(hp.Penalty), duration, hp.ChangedByID, hp.HistoricalAt.Unix())
	return err
}

func (s *Store) ListHistoricalPunishments(ctx context.Context, infractionID string) ([]HistoricalPunishment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT infraction_id, penalty, duration_ms, changed_by_id, historical_at
		FROM historical_punishments
		WHERE infraction_id = ?
		ORDER BY id ASC
	`, infractionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []HistoricalPunishment
	for rows.Next() {
		var hp HistoricalPunishment
		var penalty string
		var duration sql.NullInt64
		var historicalAt int64
		if err := rows.Scan(&hp.InfractionID, &penalty, &duration, &hp.ChangedByID, &historicalAt); err != nil {
			return nil, err
		}
		hp.Penalty = Penalty(penalty)
		if duration.Valid {
			hp.Duration = time.Duration(duration.Int64) * time.Millisecond
		}
		hp.HistoricalAt = time.Unix(historicalAt, 0)
		history = append(history, hp)
	}
	return history, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInfraction(row rowScanner) (Infraction, error) {
	var inf Infraction
	var penalty sql.NullString
	var duration sql.NullInt64
	var human string
	var pending int
	var created, updated int64

	err := row.Scan(
		&inf.ID, &inf.GuildID, &inf.UserID, &inf.ModID, &inf.ChannelID, &inf.Reason,
		&inf.ModNotes, &inf.PublicNotes, &inf.RelatedMessage, &inf.LogChannelID,
		&inf.LogMessageID, &penalty, &duration, &human, &pending, &created, &updated,
	)
	if err != nil {
		return Infraction{}, err
	}
	if penalty.Valid && penalty.String != "" {
		punishment := &Punishment{Penalty: Penalty(penalty.String), HumanDuration: human}
		if duration.Valid {
			punishment.Duration = time.Duration(duration.Int64) * time.Millisecond
		}
		inf.Punishment = punishment
	}
	inf.PendingApproval = pending == 1
	inf.CreatedAt = time.Unix(created, 0)
	inf.UpdatedAt = time.Unix(updated, 0)
	return inf, nil
}

func punishmentColumns(p *Punishment) (penalty any, duration any) {
	if p == nil {
		return nil, nil
	}
	penalty = string(p.Penalty)
	if p.Penalty.Temporary() {
		duration = p.Duration.Milliseconds()
	}
	return penalty, duration
}
