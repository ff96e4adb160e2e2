package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/yukimura-dev/hibiki/internal/config"
	"github.com/yukimura-dev/hibiki/internal/session"
	"github.com/yukimura-dev/hibiki/internal/stream"
)

// Transport implements session.VoiceTransport over a gateway session.
// It tracks at most one voice connection per guild.
type Transport struct {
	cfg *config.Config
	dg  *discordgo.Session

	mu    sync.Mutex
	conns map[string]*discordgo.VoiceConnection
}

func NewTransport(cfg *config.Config, dg *discordgo.Session) *Transport {
	return &Transport{
		cfg:   cfg,
		dg:    dg,
		conns: make(map[string]*discordgo.VoiceConnection),
	}
}

// Join connects to channelID, or moves the existing connection there.
// ChannelVoiceJoin handles the move itself when already connected.
func (t *Transport) Join(ctx context.Context, guildID, channelID string) error {
	vc, err := t.dg.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return fmt.Errorf("join voice channel: %w", err)
	}
	t.mu.Lock()
	t.conns[guildID] = vc
	t.mu.Unlock()
	return nil
}

func (t *Transport) Leave(ctx context.Context, guildID string) error {
	t.mu.Lock()
	vc := t.conns[guildID]
	delete(t.conns, guildID)
	t.mu.Unlock()

	if vc == nil {
		return nil
	}
	_ = vc.Speaking(false)
	if err := vc.Disconnect(); err != nil {
		return fmt.Errorf("disconnect voice: %w", err)
	}
	return nil
}

func (t *Transport) Play(ctx context.Context, guildID string, src *session.AudioSource) (session.Playback, error) {
	t.mu.Lock()
	vc := t.conns[guildID]
	t.mu.Unlock()
	if vc == nil {
		return nil, session.ErrNotConnected
	}
	return stream.Play(ctx, t.cfg, vc, src)
}
