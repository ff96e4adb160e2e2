package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/yukimura-dev/hibiki/internal/repository"
	"github.com/yukimura-dev/hibiki/internal/resolver"
	"github.com/yukimura-dev/hibiki/internal/session"
	"github.com/yukimura-dev/hibiki/internal/ui"
	"github.com/yukimura-dev/hibiki/internal/utils"
)

// CommandHandler dispatches prefix text commands to the session manager.
type CommandHandler struct {
	prefix string
	mgr    *session.Manager
	repo   *repository.Repo
}

func NewCommandHandler(prefix string, mgr *session.Manager, repo *repository.Repo) *CommandHandler {
	return &CommandHandler{prefix: prefix, mgr: mgr, repo: repo}
}

// ParseCommand splits a message into a command name and its argument.
// Returns ok=false for anything that is not a prefixed command.
func ParseCommand(prefix, content string) (name, arg string, ok bool) {
	if !strings.HasPrefix(content, prefix) {
		return "", "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(content, prefix))
	if rest == "" {
		return "", "", false
	}
	name, arg, _ = strings.Cut(rest, " ")
	return strings.ToLower(name), strings.TrimSpace(arg), true
}

func (h *CommandHandler) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	name, arg, ok := ParseCommand(h.prefix, m.Content)
	if !ok {
		return
	}

	ctx := context.Background()
	switch name {
	case "play":
		h.cmdPlay(ctx, s, m, arg)
	case "leave":
		h.cmdLeave(ctx, s, m)
	case "stop":
		h.cmdStop(s, m)
	case "np", "nowplaying":
		h.cmdNowPlaying(s, m)
	case "volume":
		h.cmdVolume(ctx, s, m, arg)
	}
}

func (h *CommandHandler) cmdPlay(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, query string) {
	if query == "" {
		h.reply(s, m.ChannelID, "Usage: "+h.prefix+"play <url or search terms>")
		return
	}

	h.reply(s, m.ChannelID, "Processing audio for: "+utils.EscapeMd(query))

	title, err := h.mgr.Play(ctx, m.GuildID, m.Author.ID, query)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSuperseded):
			// replaced by a newer request, say nothing
		case errors.Is(err, session.ErrUserNotInVoice):
			h.reply(s, m.ChannelID, fmt.Sprintf("%s is not connected to a voice channel.", m.Author.Username))
		case errors.Is(err, resolver.ErrNotFound):
			h.reply(s, m.ChannelID, "No results found for that query.")
		case errors.Is(err, resolver.ErrUnsupportedSource):
			h.reply(s, m.ChannelID, "That source is not supported.")
		default:
			slog.Error("play failed", "guildID", m.GuildID, "err", err)
			h.reply(s, m.ChannelID, "Could not play that right now, try again later.")
		}
		return
	}

	h.reply(s, m.ChannelID, "Now playing: **"+utils.EscapeMd(title)+"**")
}

func (h *CommandHandler) cmdLeave(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	if err := h.mgr.Leave(ctx, m.GuildID); err != nil {
		if errors.Is(err, session.ErrNotConnected) {
			h.reply(s, m.ChannelID, "I am not connected to a voice channel.")
			return
		}
		slog.Error("leave failed", "guildID", m.GuildID, "err", err)
		h.reply(s, m.ChannelID, "Could not disconnect cleanly.")
		return
	}
	h.reply(s, m.ChannelID, "Disconnected from the voice channel.")
}

func (h *CommandHandler) cmdStop(s *discordgo.Session, m *discordgo.MessageCreate) {
	if err := h.mgr.Stop(m.GuildID); err != nil {
		if errors.Is(err, session.ErrNotConnected) {
			h.reply(s, m.ChannelID, "I am not connected to a voice channel.")
			return
		}
		slog.Error("stop failed", "guildID", m.GuildID, "err", err)
		return
	}
	h.reply(s, m.ChannelID, "Playback stopped.")
}

func (h *CommandHandler) cmdNowPlaying(s *discordgo.Session, m *discordgo.MessageCreate) {
	src, status := h.mgr.Current(m.GuildID)
	embed := ui.NowPlayingEmbed(src, status)
	if _, err := s.ChannelMessageSendEmbed(m.ChannelID, embed); err != nil {
		slog.Warn("send embed failed", "channelID", m.ChannelID, "err", err)
	}
}

func (h *CommandHandler) cmdVolume(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, arg string) {
	percent, err := strconv.Atoi(arg)
	if err != nil || percent < 0 || percent > 200 {
		h.reply(s, m.ChannelID, "Usage: "+h.prefix+"volume <0-200>")
		return
	}

	if err := h.mgr.SetVolume(m.GuildID, float64(percent)/100); err != nil {
		switch {
		case errors.Is(err, session.ErrNotConnected):
			h.reply(s, m.ChannelID, "I am not connected to a voice channel.")
		case errors.Is(err, session.ErrNothingPlaying):
			h.reply(s, m.ChannelID, "Nothing is playing right now.")
		default:
			slog.Error("set volume failed", "guildID", m.GuildID, "err", err)
		}
		return
	}

	if err := h.repo.SetDefaultVolume(ctx, m.GuildID, percent); err != nil {
		slog.Warn("persist volume failed", "guildID", m.GuildID, "err", err)
	}
	h.reply(s, m.ChannelID, fmt.Sprintf("Volume set to %d%%.", percent))
}

func (h *CommandHandler) reply(s *discordgo.Session, channelID, msg string) {
	if _, err := s.ChannelMessageSend(channelID, msg); err != nil {
		slog.Warn("send message failed", "channelID", channelID, "err", err)
	}
}
