package commands

import (
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ShowHelpCommand displays all available commands with their descriptions using embeds
func ShowHelpCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	embed := &discordgo.MessageEmbed{
		Title:       "Seiun Sky",
		Description: "Here are all the available commands for the bot:",
		Color:       0x00ff00,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Seiun Sky | Created by latoulicious | 2026",
		},
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Music Commands",
				Value: strings.Join([]string{
					"• `!play <url|search>` / `!p` - Play a YouTube video, playlist, or search result",
					"• `!play <playlist-url> shuffle` - Load a playlist pre-shuffled",
					"• `!playnext <url|search>` / `!pn` - Queue a track to play right after the current one",
					"• `!nowplaying` / `!np` - Show the currently playing track",
					"• `!queue` - Show the pending queue",
					"• `!queue remove <position>` - Remove a track from the queue",
					"• `!queue swap <position> <position>` - Swap two queued tracks",
					"• `!queue move <position>` - Move a queued track to the front",
					"• `!queue clear` - Clear the entire queue",
					"• `!shuffle` - Shuffle the queue (announces new top song for large queues)",
					"• `!replay` - Restart the current track from the beginning",
					"• `!pause` - Pause the current playback",
					"• `!resume` - Resume paused playback",
					"• `!skip` - Skip the currently playing track",
					"• `!stop` - Stop playback and disconnect from voice channel",
				}, "\n"),
				Inline: false,
			},
			{
				Name: "Information Commands",
				Value: strings.Join([]string{
					"• `!stats` - Show this server's playback statistics",
					"• `!about` - Show bot info, uptime, and stats",
					"• `!servers` - List servers the bot is connected to (bot owner only)",
					"• `!help` / `!h` - Show this help message",
				}, "\n"),
				Inline: false,
			},
			{
				Name: "Admin Commands (Bot Owner Only)",
				Value: strings.Join([]string{
					"• `!leave <server_id>` - Force bot to leave a server by ID",
				}, "\n"),
				Inline: false,
			},
			{
				Name: "💡 Tips",
				Value: strings.Join([]string{
					"• Join a voice channel **before** using music commands",
					"• Only **YouTube links and searches** are currently supported",
					"• The bot leaves on its own after sitting idle for a while",
				}, "\n"),
				Inline: false,
			},
		},
	}

	s.ChannelMessageSendEmbed(m.ChannelID, embed)
}
