package handlers

import (
	"math/rand"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/latoulicious/Seiun/internal/commands"
)

var prefix = "!"

// SetPrefix changes the command prefix. Called once at startup.
func SetPrefix(p string) {
	if p != "" {
		prefix = p
	}
}

func MessageHandler(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore all messages created by the bot itself
	if m.Author.ID == s.State.User.ID {
		return
	}

	// Check if the bot is mentioned
	if len(m.Mentions) > 0 {
		for _, mention := range m.Mentions {
			if mention.ID == s.State.User.ID {
				responses := []string{
					"Hm? Oh. I was napping. What do you need?",
					"Seiun Sky, reporting in. Eventually.",
					"If it can wait until after my nap, it can wait forever. Try !help.",
				}
				s.ChannelMessageSend(m.ChannelID, responses[rand.Intn(len(responses))])
				return
			}
		}
	}

	// Check if the message is a command
	if !strings.HasPrefix(m.Content, prefix) {
		return
	}

	args := strings.Fields(strings.TrimPrefix(m.Content, prefix))
	if len(args) == 0 {
		return
	}
	command := strings.ToLower(args[0])

	switch command {
	case "play", "p":
		commands.PlayCommand(s, m, args[1:])
	case "playnext", "pn":
		commands.PlayNextCommand(s, m, args[1:])
	case "pause":
		commands.PauseCommand(s, m)
	case "resume":
		commands.ResumeCommand(s, m)
	case "skip":
		commands.SkipCommand(s, m)
	case "replay":
		commands.ReplayCommand(s, m)
	case "stop":
		commands.StopCommand(s, m)
	case "queue", "q":
		commands.QueueCommand(s, m, args[1:])
	case "shuffle":
		commands.ShuffleCommand(s, m, args[1:])
	case "nowplaying", "np":
		commands.NowPlayingCommand(s, m)
	case "stats":
		commands.StatsCommand(s, m)
	case "about":
		commands.AboutCommand(s, m)
	case "servers":
		commands.ServersCommand(s, m)
	case "leave":
		commands.LeaveCommand(s, m, args[1:])
	case "help", "h":
		commands.ShowHelpCommand(s, m)
	default:
		s.ChannelMessageSend(m.ChannelID, "Unknown command. Try !help for the full list.")
	}
}
