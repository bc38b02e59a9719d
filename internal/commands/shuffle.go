package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ShuffleCommand randomly reorders the pending queue.
func ShuffleCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	sub, ok := liveSession(s, m)
	if !ok {
		return
	}

	queue := sub.Queue()
	queueSize := queue.Len()
	if queueSize < 2 {
		sendEmbedMessage(s, m.ChannelID, "📭 Not Enough Songs", "Need at least 2 songs to shuffle the queue.", 0x808080)
		return
	}

	queue.Shuffle()

	embed := &discordgo.MessageEmbed{
		Title:       "🔀 Queue Shuffled",
		Description: "The queue has been shuffled successfully!",
		Color:       0x00ff00,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: embedFooter,
		},
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Songs Shuffled",
				Value:  fmt.Sprintf("%d songs", queueSize),
				Inline: true,
			},
			{
				Name:   "Shuffled By",
				Value:  m.Author.Username,
				Inline: true,
			},
		},
	}

	// Announce the new top song on request, or whenever the queue is big
	// enough that listeners lost track.
	announceTop := len(args) > 0 && strings.ToLower(args[0]) == "announce"
	if announceTop || queueSize > 5 {
		if top := queue.Peek(); top != nil {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:   "🎵 New Top Song",
				Value:  fmt.Sprintf("**%s**\nRequested by: %s", top.Title, top.RequestedBy),
				Inline: false,
			})
		}
	}

	s.ChannelMessageSendEmbed(m.ChannelID, embed)
}
