package repository

import "database/sql"

type Repo struct {
	db *sql.DB
}

// Settings are the persisted per-guild knobs. Playback state itself is
// never persisted; these are configuration defaults consulted on use.
type Settings struct {
	GuildID               string
	DefaultVolume         int // percent, 100 = unity gain
	SecondsWaitAfterEmpty int // idle disconnect delay, 0 = never leave
}
