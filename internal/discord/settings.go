package discord

import (
	"context"
	"time"

	"github.com/yukimura-dev/hibiki/internal/repository"
	"github.com/yukimura-dev/hibiki/internal/session"
)

// settingsSource adapts the repository to session.SettingsSource.
type settingsSource struct {
	repo *repository.Repo
}

func NewSettingsSource(repo *repository.Repo) session.SettingsSource {
	return &settingsSource{repo: repo}
}

func (s *settingsSource) SessionSettings(ctx context.Context, guildID string) (session.Settings, error) {
	set, err := s.repo.UpsertSettings(ctx, guildID)
	if err != nil {
		return session.Settings{}, err
	}
	// a stored 0 is a deliberate mute, not "unset"
	vol := float64(set.DefaultVolume) / 100
	return session.Settings{
		DefaultVolume:  &vol,
		IdleDisconnect: time.Duration(set.SecondsWaitAfterEmpty) * time.Second,
	}, nil
}
