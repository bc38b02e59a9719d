package commands

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// ServersCommand displays information about which servers the bot is joined to
func ServersCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	guilds := s.State.Guilds

	if len(guilds) == 0 {
		s.ChannelMessageSend(m.ChannelID, "I'm not joined to any servers.")
		return
	}

	var response strings.Builder
	response.WriteString(fmt.Sprintf("I'm joined to **%d servers**:\n", len(guilds)))
	for _, guild := range guilds {
		response.WriteString(fmt.Sprintf("• **%s** (ID: `%s`)\n", guild.Name, guild.ID))
	}
	response.WriteString("\n💡 **Tip**: Use `!leave <server_id>` to leave a server.")

	s.ChannelMessageSend(m.ChannelID, response.String())
}
