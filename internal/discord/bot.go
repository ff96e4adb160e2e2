package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/yukimura-dev/hibiki/internal/config"
	"github.com/yukimura-dev/hibiki/internal/repository"
	"github.com/yukimura-dev/hibiki/internal/resolver"
	"github.com/yukimura-dev/hibiki/internal/session"
)

type Bot struct {
	cfg  *config.Config
	repo *repository.Repo
}

func NewBot(cfg *config.Config, repo *repository.Repo) *Bot {
	return &Bot{cfg: cfg, repo: repo}
}

func (b *Bot) Run(ctx context.Context) error {
	dg, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildVoiceStates

	transport := NewTransport(b.cfg, dg)
	states := NewStateLookup(dg)
	res := resolver.New(b.cfg)
	mgr := session.NewManager(transport, states, res, NewSettingsSource(b.repo))
	cmd := NewCommandHandler(b.cfg.CommandPrefix, mgr, b.repo)

	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("connected", "user", s.State.User.Username)
	})

	dg.AddHandler(cmd.HandleMessage)

	// follow the bot's own voice state: torn down when kicked, rebound
	// when dragged to another channel
	dg.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		if s.State.User == nil || vs.UserID != s.State.User.ID {
			return
		}
		mgr.HandleBotVoiceUpdate(vs.GuildID, vs.ChannelID)
	})

	if err := dg.Open(); err != nil {
		return err
	}
	defer dg.Close()

	<-ctx.Done()
	return nil
}
