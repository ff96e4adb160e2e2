package session

import (
	"context"
	"time"
)

// Resolver turns a user query or URL into a playable source. Resolution
// performs network I/O and may take several seconds; the manager never
// invokes it while holding a session lock.
type Resolver interface {
	Resolve(ctx context.Context, query string) (*AudioSource, error)
}

// Playback is a handle to one running stream. Stop halts it; Done is
// closed when the stream ends, yielding the transport error if any.
type Playback interface {
	Stop()
	Done() <-chan error
}

// VoiceTransport is the boundary to the actual voice subsystem. Join
// establishes or moves the guild's single voice connection; Play starts
// streaming a source into it.
type VoiceTransport interface {
	Join(ctx context.Context, guildID, channelID string) error
	Leave(ctx context.Context, guildID string) error
	Play(ctx context.Context, guildID string, src *AudioSource) (Playback, error)
}

// VoiceStateLookup reports which voice channel a user currently occupies.
type VoiceStateLookup interface {
	UserChannel(guildID, userID string) (channelID string, ok bool)
}

// Settings are the per-guild knobs the manager consults.
type Settings struct {
	DefaultVolume  *float64      // nil keeps the source default; 0 is a real, muted volume
	IdleDisconnect time.Duration // 0 disables the idle disconnect
}

// SettingsSource supplies per-guild settings. Implementations may block.
type SettingsSource interface {
	SessionSettings(ctx context.Context, guildID string) (Settings, error)
}
