package commands

import (
	"fmt"
	"os"

	"github.com/bwmarrin/discordgo"
)

// LeaveCommand allows the bot owner to make the bot leave a specific server
func LeaveCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	ownerID := os.Getenv("BOT_OWNER_ID")
	if ownerID == "" {
		s.ChannelMessageSend(m.ChannelID, "❌ Bot owner ID not configured.")
		return
	}

	if m.Author.ID != ownerID {
		s.ChannelMessageSend(m.ChannelID, "❌ You don't have permission to use this command.")
		return
	}

	// If no arguments provided, show server list
	if len(args) < 1 {
		ServersCommand(s, m)
		return
	}

	serverID := args[0]

	// Discord IDs are 17-19 digits
	if len(serverID) < 17 || len(serverID) > 19 {
		s.ChannelMessageSend(m.ChannelID, "❌ Invalid server ID format.")
		return
	}

	guild, err := s.Guild(serverID)
	if err != nil {
		s.ChannelMessageSend(m.ChannelID, "❌ Server not found or bot is not in that server.")
		return
	}

	// Tear down any live audio session before walking out.
	if sub, ok := deps.Registry.Get(serverID); ok {
		markSessionReason(serverID, "stopped")
		sub.Stop()
	}

	if err := s.GuildLeave(serverID); err != nil {
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("❌ Failed to leave server: %v", err))
		return
	}

	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("✅ Successfully left **%s** (ID: %s)", guild.Name, serverID))
}
