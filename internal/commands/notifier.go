package commands

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/latoulicious/Seiun/pkg/voice"
)

// ChannelNotifier delivers playback events to the guild's most recent
// command channel as embeds. Routine notices go through a rate limiter so
// a fast-advancing queue cannot flood the channel; teardown notices are
// always delivered.
type ChannelNotifier struct {
	session *discordgo.Session
	guildID string

	mu        sync.Mutex
	channelID string
	limiter   *rate.Limiter
}

var (
	notifierMu sync.Mutex
	notifiers  = make(map[string]*ChannelNotifier)
)

// notifierFor returns the guild's notifier, retargeted at the given text
// channel. The limiter survives channel switches so hopping between
// channels does not reset the budget.
func notifierFor(s *discordgo.Session, guildID, channelID string) *ChannelNotifier {
	notifierMu.Lock()
	defer notifierMu.Unlock()
	if n, ok := notifiers[guildID]; ok {
		n.SetChannel(channelID)
		return n
	}
	n := &ChannelNotifier{
		session:   s,
		guildID:   guildID,
		channelID: channelID,
		limiter:   rate.NewLimiter(rate.Every(2*time.Second), 4),
	}
	notifiers[guildID] = n
	return n
}

// guildNotifier returns the guild's notifier if one was ever created.
func guildNotifier(guildID string) *ChannelNotifier {
	notifierMu.Lock()
	defer notifierMu.Unlock()
	return notifiers[guildID]
}

// SetChannel retargets future notices at another text channel.
func (n *ChannelNotifier) SetChannel(channelID string) {
	n.mu.Lock()
	n.channelID = channelID
	n.mu.Unlock()
}

// send delivers one notice. Non-forced notices are dropped when the guild
// is over its notification budget.
func (n *ChannelNotifier) send(title, description string, color int, force bool) {
	if !force && !n.limiter.Allow() {
		log.Printf("[Notifier] Dropped %q for guild %s, over notification budget", title, n.guildID)
		return
	}
	n.mu.Lock()
	channelID := n.channelID
	n.mu.Unlock()
	sendEmbedMessage(n.session, channelID, title, description, color)
}

func (n *ChannelNotifier) NowPlaying(t *voice.Track) {
	description := fmt.Sprintf("**%s**\nRequested by: %s", t.Title, t.RequestedBy)
	n.send("🎶 Now Playing", description, 0x00ff00, false)
}

func (n *ChannelNotifier) TrackFinished(t *voice.Track) {
	n.send("⏭️ Track Finished", fmt.Sprintf("**%s**", t.Title), 0x808080, false)
}

func (n *ChannelNotifier) TrackError(t *voice.Track, err error) {
	description := fmt.Sprintf("**%s**\n%v", t.Title, err)
	n.send("❌ Playback Error", description, 0xff0000, false)
}

// Inactivity announces the idle teardown. This is the session's single
// goodbye, so it bypasses the rate limiter.
func (n *ChannelNotifier) Inactivity() {
	markSessionReason(n.guildID, "inactivity")
	if deps.Recorder != nil {
		if id := sessionIDFor(n.guildID); id != "" {
			deps.Recorder.Inactivity(id, n.guildID)
		}
	}
	n.send("👋 Leaving", "Nothing has played for a while, disconnecting.", 0x808080, true)
}

// ConnectionLost announces an unrecoverable transport failure. Exactly one
// fires per teardown and it bypasses the rate limiter.
func (n *ChannelNotifier) ConnectionLost(cause string) {
	markSessionReason(n.guildID, "connection_lost")
	n.send("📡 Connection Lost", cause, 0xff0000, true)
}

var _ voice.Notifier = (*ChannelNotifier)(nil)
