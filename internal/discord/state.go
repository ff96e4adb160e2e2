package discord

import (
	"github.com/bwmarrin/discordgo"
)

// StateLookup answers voice-state queries from the gateway state cache.
type StateLookup struct {
	dg *discordgo.Session
}

func NewStateLookup(dg *discordgo.Session) *StateLookup {
	return &StateLookup{dg: dg}
}

func (l *StateLookup) UserChannel(guildID, userID string) (string, bool) {
	g, err := l.dg.State.Guild(guildID)
	if err != nil || g == nil {
		return "", false
	}
	for _, vs := range g.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return vs.ChannelID, true
		}
	}
	return "", false
}
