package commands

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Seiun/pkg/resolver"
	"github.com/latoulicious/Seiun/pkg/voice"
)

const resolveTimeout = 30 * time.Second

// PlayCommand resolves a URL, playlist or search query and enqueues the
// result, creating the guild's session on first use. Playlist loads accept
// a trailing "shuffle" flag.
func PlayCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) < 1 {
		sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "Please provide a YouTube URL or search query.", 0xff0000)
		return
	}

	input := args[0]
	shuffleAfter := false
	if resolver.IsPlaylistURL(input) {
		if len(args) > 1 && strings.EqualFold(args[1], "shuffle") {
			shuffleAfter = true
		}
	} else if !resolver.IsURL(input) {
		// Treat everything else as a search query.
		input = strings.Join(args, " ")
		log.Printf("[Commands] Treating input as search query: %s", input)
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	results, err := deps.Resolver.Resolve(ctx, input)
	if err != nil {
		log.Printf("[Commands] Failed to resolve %q: %v", input, err)
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Failed to find anything playable. Please check the URL or try another search.", 0xff0000)
		return
	}

	sub, ok := sessionFor(s, m)
	if !ok {
		return
	}

	if len(results) == 1 {
		track := buildTrack(m.GuildID, m.Author.Username, results[0])
		position := sub.Queue().Len() + 1
		sub.Enqueue(track)
		description := fmt.Sprintf("✅ Added **%s** to queue (Position: %d)", track.Title, position)
		sendEmbedMessage(s, m.ChannelID, "🎵 Song Added", description, 0x00ff00)
		return
	}

	tracks := make([]*voice.Track, 0, len(results))
	for _, result := range results {
		tracks = append(tracks, buildTrack(m.GuildID, m.Author.Username, result))
	}
	sub.EnqueueAll(tracks, shuffleAfter)

	description := fmt.Sprintf("✅ Added **%d** tracks to the queue", len(tracks))
	if shuffleAfter {
		description += " (shuffled)"
	}
	sendEmbedMessage(s, m.ChannelID, "🎵 Playlist Added", description, 0x00ff00)
}

// buildTrack wires a resolved result into a queueable track whose
// lifecycle events feed the notifier, the presence and the metrics
// recorder.
func buildTrack(guildID, requestedBy string, result resolver.Result) *voice.Track {
	info := result.Info
	info.RequestedBy = requestedBy

	return voice.NewTrack(info, result.Produce, voice.Handlers{
		OnStart: func(t *voice.Track) {
			if n := guildNotifier(guildID); n != nil {
				n.NowPlaying(t)
			}
			if deps.Presence != nil {
				deps.Presence.UpdateMusicPresence(t.Title)
			}
			if deps.Recorder != nil {
				deps.Recorder.TrackStarted(sessionIDFor(guildID), guildID, t.Title)
			}
		},
		OnFinish: func(t *voice.Track) {
			if n := guildNotifier(guildID); n != nil {
				n.TrackFinished(t)
			}
			if deps.Recorder != nil {
				deps.Recorder.TrackFinished(sessionIDFor(guildID), guildID, t.Title)
			}
		},
		OnError: func(t *voice.Track, err error) {
			if n := guildNotifier(guildID); n != nil {
				n.TrackError(t, err)
			}
			if deps.Recorder != nil {
				deps.Recorder.TrackErrored(sessionIDFor(guildID), guildID, t.Title, err.Error())
			}
		},
	})
}
