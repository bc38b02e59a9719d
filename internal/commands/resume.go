package commands

import (
	"github.com/bwmarrin/discordgo"
)

func ResumeCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	sub, ok := liveSession(s, m)
	if !ok {
		return
	}

	if !sub.Resume() {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Nothing is paused.", 0xff0000)
		return
	}
	sendEmbedMessage(s, m.ChannelID, "▶️ Playback Resumed", "Music playback has been resumed.", 0x00ff00)
}
