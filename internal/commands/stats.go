package commands

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// StatsCommand shows the guild's playback statistics.
func StatsCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	if deps.Store == nil {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Playback statistics are not available.", 0xff0000)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := deps.Store.Stats(ctx, m.GuildID)
	if err != nil {
		log.Printf("[Commands] Failed to load stats for guild %s: %v", m.GuildID, err)
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Failed to load playback statistics.", 0xff0000)
		return
	}

	if stats.Sessions == 0 {
		sendEmbedMessage(s, m.ChannelID, "📊 Playback Stats", "Nothing has been played in this server yet.", 0x808080)
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:     "📊 Playback Stats",
		Color:     0x7289DA,
		Timestamp: time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: embedFooter,
		},
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Sessions",
				Value:  fmt.Sprintf("%d", stats.Sessions),
				Inline: true,
			},
			{
				Name:   "Tracks Played",
				Value:  fmt.Sprintf("%d", stats.TracksPlayed),
				Inline: true,
			},
			{
				Name:   "Tracks Failed",
				Value:  fmt.Sprintf("%d", stats.TracksFailed),
				Inline: true,
			},
			{
				Name:   "Reconnects",
				Value:  fmt.Sprintf("%d", stats.Reconnects),
				Inline: true,
			},
			{
				Name:   "Listening Time",
				Value:  formatDuration(stats.TotalTime),
				Inline: true,
			},
		},
	}

	if len(stats.TopTracks) > 0 {
		var lines []string
		for i, track := range stats.TopTracks {
			lines = append(lines, fmt.Sprintf("%d. **%s** (%d plays)", i+1, track.Title, track.Plays))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "🎵 Most Played",
			Value:  strings.Join(lines, "\n"),
			Inline: false,
		})
	}

	s.ChannelMessageSendEmbed(m.ChannelID, embed)
}
