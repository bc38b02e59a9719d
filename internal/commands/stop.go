package commands

import (
	"github.com/bwmarrin/discordgo"
)

// StopCommand tears the guild's session down: queue cleared, playback
// stopped, voice channel left.
func StopCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	sub, ok := liveSession(s, m)
	if !ok {
		return
	}

	markSessionReason(m.GuildID, "stopped")
	sub.Stop()
	sendEmbedMessage(s, m.ChannelID, "⏹️ Stopped", "Playback stopped and queue cleared.", 0x808080)
}
