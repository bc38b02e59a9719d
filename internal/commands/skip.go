package commands

import (
	"github.com/bwmarrin/discordgo"
)

// SkipCommand ends the current track; the next queued track starts on its
// own.
func SkipCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	sub, ok := liveSession(s, m)
	if !ok {
		return
	}

	if !sub.Skip() {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Nothing is playing.", 0xff0000)
		return
	}
	sendEmbedMessage(s, m.ChannelID, "⏭️ Skipped", "Skipped the current track.", 0x00ff00)
}
