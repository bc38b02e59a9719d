package commands

import (
	"github.com/bwmarrin/discordgo"
)

func PauseCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	sub, ok := liveSession(s, m)
	if !ok {
		return
	}

	if !sub.Pause() {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Nothing is playing or playback is already paused.", 0xff0000)
		return
	}
	sendEmbedMessage(s, m.ChannelID, "⏸️ Playback Paused", "Music playback has been paused.", 0xffa500)
}
