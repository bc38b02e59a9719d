package commands

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const queueDisplayLimit = 15

// QueueCommand shows the pending queue or edits it through subcommands.
func QueueCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) < 1 {
		showQueue(s, m)
		return
	}

	subcommand := strings.ToLower(args[0])
	switch subcommand {
	case "list":
		showQueue(s, m)
	case "remove":
		if len(args) < 2 {
			s.ChannelMessageSend(m.ChannelID, "Usage: `!queue remove <position>`")
			return
		}
		removeFromQueue(s, m, args[1])
	case "clear":
		clearQueue(s, m)
	case "swap":
		if len(args) < 3 {
			s.ChannelMessageSend(m.ChannelID, "Usage: `!queue swap <position> <position>`")
			return
		}
		swapInQueue(s, m, args[1], args[2])
	case "move":
		if len(args) < 2 {
			s.ChannelMessageSend(m.ChannelID, "Usage: `!queue move <position>`")
			return
		}
		moveToFront(s, m, args[1])
	default:
		s.ChannelMessageSend(m.ChannelID, "Usage: `!queue [list|remove|clear|swap|move] [args...]`")
	}
}

// parsePosition turns a 1-based user argument into a queue index.
func parsePosition(arg string, size int) (int, error) {
	var position int
	if _, err := fmt.Sscanf(arg, "%d", &position); err != nil {
		return 0, fmt.Errorf("invalid position %q", arg)
	}
	if position < 1 || position > size {
		return 0, fmt.Errorf("position %d is out of range (queue has %d tracks)", position, size)
	}
	return position - 1, nil
}

func removeFromQueue(s *discordgo.Session, m *discordgo.MessageCreate, arg string) {
	sub, ok := liveSession(s, m)
	if !ok {
		return
	}

	queue := sub.Queue()
	index, err := parsePosition(arg, queue.Len())
	if err != nil {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", err.Error(), 0xff0000)
		return
	}

	removed := queue.Remove(index)
	if removed == nil {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "That track is gone already.", 0xff0000)
		return
	}
	sendEmbedMessage(s, m.ChannelID, "✅ Removed", fmt.Sprintf("Removed **%s** from the queue.", removed.Title), 0x00ff00)
}

func clearQueue(s *discordgo.Session, m *discordgo.MessageCreate) {
	sub, ok := liveSession(s, m)
	if !ok {
		return
	}

	if sub.Queue().Len() == 0 {
		sendEmbedMessage(s, m.ChannelID, "📭 Queue Already Empty", "There is nothing to clear.", 0x808080)
		return
	}
	sub.Queue().Clear()
	sendEmbedMessage(s, m.ChannelID, "✅ Queue Cleared", "All pending tracks have been removed.", 0x00ff00)
}

func swapInQueue(s *discordgo.Session, m *discordgo.MessageCreate, first, second string) {
	sub, ok := liveSession(s, m)
	if !ok {
		return
	}

	queue := sub.Queue()
	i, err := parsePosition(first, queue.Len())
	if err != nil {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", err.Error(), 0xff0000)
		return
	}
	j, err := parsePosition(second, queue.Len())
	if err != nil {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", err.Error(), 0xff0000)
		return
	}
	if i == j {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Those are the same position.", 0xff0000)
		return
	}

	queue.Swap(i, j)
	sendEmbedMessage(s, m.ChannelID, "✅ Swapped", fmt.Sprintf("Swapped positions %d and %d.", i+1, j+1), 0x00ff00)
}

func moveToFront(s *discordgo.Session, m *discordgo.MessageCreate, arg string) {
	sub, ok := liveSession(s, m)
	if !ok {
		return
	}

	queue := sub.Queue()
	index, err := parsePosition(arg, queue.Len())
	if err != nil {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", err.Error(), 0xff0000)
		return
	}
	if index == 0 {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "That track is already at the front.", 0xff0000)
		return
	}

	moved := queue.Remove(index)
	if moved == nil {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "That track is gone already.", 0xff0000)
		return
	}
	queue.EnqueueFront(moved)
	sendEmbedMessage(s, m.ChannelID, "✅ Moved", fmt.Sprintf("**%s** will play next.", moved.Title), 0x00ff00)
}

// showQueue prints the current track and the pending queue.
func showQueue(s *discordgo.Session, m *discordgo.MessageCreate) {
	sub, ok := deps.Registry.Get(m.GuildID)
	if !ok {
		s.ChannelMessageSend(m.ChannelID, "📭 Queue is empty.")
		return
	}

	current := sub.NowPlaying()
	tracks := sub.Queue().Tracks()
	if current == nil && len(tracks) == 0 {
		s.ChannelMessageSend(m.ChannelID, "📭 Queue is empty.")
		return
	}

	var response strings.Builder
	response.WriteString("🎵 **Music Queue**\n\n")

	if current != nil {
		response.WriteString(fmt.Sprintf("🎶 **Now Playing:** %s (Requested by: %s)\n\n",
			current.Title, current.RequestedBy))
	}

	if len(tracks) > 0 {
		response.WriteString("📋 **Up Next:**\n")
		for i, track := range tracks {
			if i == queueDisplayLimit {
				response.WriteString(fmt.Sprintf("...and %d more\n", len(tracks)-queueDisplayLimit))
				break
			}
			response.WriteString(fmt.Sprintf("%d. **%s** (Requested by: %s)\n",
				i+1, track.Title, track.RequestedBy))
		}
	} else {
		response.WriteString("📋 No songs in queue.\n")
	}

	s.ChannelMessageSend(m.ChannelID, response.String())
}
