package commands

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Seiun/pkg/resolver"
)

// PlayNextCommand resolves a single track and queues it to play right
// after the current one.
func PlayNextCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) < 1 {
		sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "Please provide a YouTube URL or search query.", 0xff0000)
		return
	}

	input := args[0]
	if resolver.IsPlaylistURL(input) {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Playlists cannot jump the queue. Use `!play` instead.", 0xff0000)
		return
	}
	if !resolver.IsURL(input) {
		input = strings.Join(args, " ")
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	results, err := deps.Resolver.Resolve(ctx, input)
	if err != nil || len(results) == 0 {
		log.Printf("[Commands] Failed to resolve %q: %v", input, err)
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Failed to find anything playable. Please check the URL or try another search.", 0xff0000)
		return
	}

	sub, ok := sessionFor(s, m)
	if !ok {
		return
	}

	track := buildTrack(m.GuildID, m.Author.Username, results[0])
	sub.EnqueueNext(track)
	sendEmbedMessage(s, m.ChannelID, "⏭️ Up Next", fmt.Sprintf("**%s** will play next.", track.Title), 0x00ff00)
}
