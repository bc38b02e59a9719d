package commands

import (
	"context"
	"log"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Seiun/internal/presence"
	"github.com/latoulicious/Seiun/pkg/common"
	"github.com/latoulicious/Seiun/pkg/metrics"
	"github.com/latoulicious/Seiun/pkg/resolver"
	"github.com/latoulicious/Seiun/pkg/voice"
)

// Deps holds the shared services the command handlers run on. Populated
// once at startup through Setup.
type Deps struct {
	Registry  *voice.Registry
	Resolver  *resolver.Resolver
	Connector *common.DiscordConnector
	Recorder  *metrics.Recorder
	Store     *metrics.Store
	Presence  *presence.PresenceManager
}

var deps Deps

// Setup wires the command handlers to their services.
func Setup(d Deps) {
	deps = d
}

var (
	sessionMu      sync.Mutex
	sessionIDs     = make(map[string]string)
	sessionReasons = make(map[string]string)
)

// OnSessionCreate is wired into the registry; it opens the metrics session
// for a freshly created voice session.
func OnSessionCreate(sub *voice.Subscription) {
	if deps.Recorder == nil {
		return
	}
	id, err := deps.Recorder.SessionStarted(context.Background(), sub.GuildID, sub.Conn().ChannelID())
	if err != nil {
		log.Printf("[Commands] Failed to open metrics session for guild %s: %v", sub.GuildID, err)
		return
	}
	sessionMu.Lock()
	sessionIDs[sub.GuildID] = id
	sessionMu.Unlock()
}

// OnSessionRemove is wired into the registry; it closes the metrics session
// and drops the music presence once the last session is gone.
func OnSessionRemove(guildID string) {
	sessionMu.Lock()
	id := sessionIDs[guildID]
	reason := sessionReasons[guildID]
	delete(sessionIDs, guildID)
	delete(sessionReasons, guildID)
	sessionMu.Unlock()

	if reason == "" {
		reason = "stopped"
	}
	if deps.Recorder != nil && id != "" {
		if err := deps.Recorder.SessionEnded(context.Background(), id, reason); err != nil {
			log.Printf("[Commands] Failed to close metrics session for guild %s: %v", guildID, err)
		}
	}
	if deps.Presence != nil && deps.Registry != nil && deps.Registry.Len() == 0 {
		deps.Presence.ClearMusicPresence()
	}
}

// RecordReconnect is wired into the voice transport; every successful
// rejoin lands as a session event.
func RecordReconnect(guildID string) {
	if deps.Recorder == nil {
		return
	}
	if id := sessionIDFor(guildID); id != "" {
		deps.Recorder.Reconnect(id, guildID, "voice transport rejoined")
	}
}

func sessionIDFor(guildID string) string {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	return sessionIDs[guildID]
}

// markSessionReason records why a session is about to end. The first cause
// wins; later teardown steps must not overwrite it.
func markSessionReason(guildID, reason string) {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	if _, ok := sessionReasons[guildID]; !ok {
		sessionReasons[guildID] = reason
	}
}

// sessionFor locates the caller's voice channel and returns the guild's
// session, creating one on first use. Replies with an error embed and
// reports false when the caller is not in a voice channel or the join
// fails.
func sessionFor(s *discordgo.Session, m *discordgo.MessageCreate) (*voice.Subscription, bool) {
	channelID, err := common.FindUserVoiceChannel(s, m.GuildID, m.Author.ID)
	if err != nil {
		sendEmbedMessage(s, m.ChannelID, "❌ Error", err.Error(), 0xff0000)
		return nil, false
	}

	notifier := notifierFor(s, m.GuildID, m.ChannelID)
	sub, err := deps.Registry.GetOrCreate(m.GuildID, channelID, notifier)
	if err != nil {
		log.Printf("[Commands] Failed to create session for guild %s: %v", m.GuildID, err)
		sendEmbedMessage(s, m.ChannelID, "❌ Error", "Failed to join your voice channel.", 0xff0000)
		return nil, false
	}
	return sub, true
}

// liveSession returns the guild's existing session, or replies that nothing
// is active. Playback notices are retargeted to the caller's text channel.
func liveSession(s *discordgo.Session, m *discordgo.MessageCreate) (*voice.Subscription, bool) {
	sub, ok := deps.Registry.Get(m.GuildID)
	if !ok {
		sendEmbedMessage(s, m.ChannelID, "🔇 No Session", "Nothing is playing in this server.", 0x808080)
		return nil, false
	}
	sub.SetNotifier(notifierFor(s, m.GuildID, m.ChannelID))
	return sub, true
}
