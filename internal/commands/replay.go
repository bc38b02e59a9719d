package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// ReplayCommand restarts the current track from the beginning.
func ReplayCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	sub, ok := liveSession(s, m)
	if !ok {
		return
	}

	current := sub.NowPlaying()
	if current == nil || !sub.Replay() {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Nothing is playing.", 0xff0000)
		return
	}
	sendEmbedMessage(s, m.ChannelID, "🔁 Replaying", fmt.Sprintf("**%s** restarts from the top.", current.Title), 0x00ff00)
}
