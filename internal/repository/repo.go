package repository

import (
	"context"
	"database/sql"
	"errors"
)

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

// UpsertSettings makes sure a row exists for the guild and returns it.
func (r *Repo) UpsertSettings(ctx context.Context, guild string) (*Settings, error) {
	_, _ = r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings(guild_id) VALUES (?)`, guild,
	)
	return r.GetSettings(ctx, guild)
}

func (r *Repo) GetSettings(ctx context.Context, guild string) (*Settings, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT guild_id, default_volume, seconds_wait_after_empty
	FROM settings WHERE guild_id = ?`, guild)

	var s Settings
	if err := row.Scan(&s.GuildID, &s.DefaultVolume, &s.SecondsWaitAfterEmpty); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repo) UpdateSettings(ctx context.Context, s *Settings) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE settings SET
		  default_volume=?,
		  seconds_wait_after_empty=?
		WHERE guild_id=?`,
		s.DefaultVolume, s.SecondsWaitAfterEmpty, s.GuildID,
	)
	return err
}

// SetDefaultVolume persists the guild's default volume (percent).
func (r *Repo) SetDefaultVolume(ctx context.Context, guild string, percent int) error {
	if _, err := r.UpsertSettings(ctx, guild); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE settings SET default_volume=? WHERE guild_id=?`, percent, guild)
	return err
}
