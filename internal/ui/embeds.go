package ui

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/yukimura-dev/hibiki/internal/session"
	"github.com/yukimura-dev/hibiki/internal/utils"
)

func sourceLink(src *session.AudioSource) string {
	if src.SourceURL != "" {
		return fmt.Sprintf("[%s](%s)", src.Title, src.SourceURL)
	}
	return src.Title
}

// NowPlayingEmbed renders the guild's playback state.
func NowPlayingEmbed(src *session.AudioSource, status session.Status) *discordgo.MessageEmbed {
	if src == nil || status != session.StatusPlaying {
		return &discordgo.MessageEmbed{
			Title:       "Nothing Playing",
			Description: "No playing song found",
			Color:       0x992222,
		}
	}

	length := "live"
	if !src.IsLive {
		length = utils.PrettyTime(src.DurationSec)
	}
	desc := fmt.Sprintf("**%s**\n`[ %s ]`", sourceLink(src), length)

	embed := &discordgo.MessageEmbed{
		Title:       "Now Playing",
		Description: desc,
		Color:       0x006400,
	}
	if src.Artist != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Source: %s", src.Artist),
		}
	}
	if src.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: src.Thumbnail}
	}
	return embed
}
