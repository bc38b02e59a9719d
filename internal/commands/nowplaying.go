package commands

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Seiun/pkg/resolver"
	"github.com/latoulicious/Seiun/pkg/voice"
)

// NowPlayingCommand shows the track currently on air.
func NowPlayingCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	sub, ok := deps.Registry.Get(m.GuildID)
	if !ok {
		sendNothingPlayingEmbed(s, m.ChannelID)
		return
	}

	current := sub.NowPlaying()
	if current == nil {
		sendNothingPlayingEmbed(s, m.ChannelID)
		return
	}

	sendNowPlayingEmbed(s, m.ChannelID, sub, current)
}

// sendNothingPlayingEmbed sends an embed when nothing is playing
func sendNothingPlayingEmbed(s *discordgo.Session, channelID string) {
	embed := &discordgo.MessageEmbed{
		Title:       "🎵 Now Playing",
		Description: "Nothing is currently playing",
		Color:       0x808080,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Use !play to start playing music",
		},
	}

	s.ChannelMessageSendEmbed(channelID, embed)
}

// sendNowPlayingEmbed sends a detailed now playing embed
func sendNowPlayingEmbed(s *discordgo.Session, channelID string, sub *voice.Subscription, track *voice.Track) {
	statusEmoji, statusText := playbackStatus(sub)

	embed := &discordgo.MessageEmbed{
		Title:       "🎵 Now Playing",
		Description: fmt.Sprintf("**%s**", track.Title),
		Color:       0x00ff00,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Requested by",
				Value:  track.RequestedBy,
				Inline: true,
			},
			{
				Name:   "Duration",
				Value:  formatDuration(track.Duration),
				Inline: true,
			},
			{
				Name:   "Status",
				Value:  fmt.Sprintf("%s %s", statusEmoji, statusText),
				Inline: true,
			},
			{
				Name:   "Up Next",
				Value:  fmt.Sprintf("%d tracks", sub.Queue().Len()),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: embedFooter,
		},
	}

	thumbnail := track.Thumbnail
	if thumbnail == "" && track.VideoID != "" {
		thumbnail = resolver.ThumbnailURL(track.VideoID)
	}
	if thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{
			URL: thumbnail,
		}
	}

	if track.PageURL != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "🔗 YouTube Link",
			Value:  fmt.Sprintf("[Open in YouTube](%s)", track.PageURL),
			Inline: true,
		})
	}

	s.ChannelMessageSendEmbed(channelID, embed)
}

// playbackStatus maps player and connection state onto a status line.
func playbackStatus(sub *voice.Subscription) (string, string) {
	switch sub.Player().State() {
	case voice.PlayerPlaying:
		if sub.Conn().State() == voice.ConnReady {
			return "🟢", "Playing"
		}
		return "🟡", "Connecting..."
	case voice.PlayerBuffering:
		return "🟡", "Buffering"
	case voice.PlayerPaused:
		return "⏸️", "Paused"
	case voice.PlayerAutoPaused:
		return "🟡", "Waiting for connection"
	default:
		return "🔴", "Stopped"
	}
}
