package common

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Seiun/pkg/pipeline"
	"github.com/latoulicious/Seiun/pkg/voice"
)

// readyPollInterval is how often a link samples the underlying
// connection's readiness to synthesize transitions. discordgo exposes no
// state callbacks, so the link watches.
const readyPollInterval = 100 * time.Millisecond

// DiscordConnector implements voice.Connector over one discordgo session.
// It keeps at most one live link per guild; joining again while a link is
// live moves the existing session to the new channel.
type DiscordConnector struct {
	session *discordgo.Session

	// OnRejoin fires after every successful transport rejoin. Set it
	// before the session opens; it is read without locking afterwards.
	OnRejoin func(guildID string)

	mu    sync.Mutex
	links map[string]*DiscordLink
}

// NewDiscordConnector creates a connector over a Discord session.
func NewDiscordConnector(session *discordgo.Session) *DiscordConnector {
	return &DiscordConnector{
		session: session,
		links:   make(map[string]*DiscordLink),
	}
}

// Connect joins the guild's voice channel and returns the live link.
func (c *DiscordConnector) Connect(guildID, channelID string, sink voice.TransitionSink) (voice.Link, error) {
	vc, err := c.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("joining voice channel %s: %w", channelID, err)
	}

	c.mu.Lock()
	if existing, ok := c.links[guildID]; ok {
		if !existing.isStopped() && existing.sink == sink {
			// Same session moved to another channel; discordgo reuses the
			// underlying connection.
			existing.update(vc, channelID)
			c.mu.Unlock()
			sink.HandleTransition(voice.ConnConnecting, 0)
			return existing, nil
		}
		// A leftover link from an earlier session; silence its watcher so
		// it cannot report against the new one.
		existing.halt()
		delete(c.links, guildID)
	}
	link := newDiscordLink(c, guildID, channelID, vc, sink)
	c.links[guildID] = link
	c.mu.Unlock()

	sink.HandleTransition(voice.ConnConnecting, 0)
	go link.watch()
	return link, nil
}

// LinkFor returns the guild's live link for the streaming engine, or nil
// when the guild has none.
func (c *DiscordConnector) LinkFor(guildID string) pipeline.OpusLink {
	c.mu.Lock()
	defer c.mu.Unlock()
	if link, ok := c.links[guildID]; ok && !link.isStopped() {
		return link
	}
	return nil
}

func (c *DiscordConnector) forget(link *DiscordLink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.links[link.guildID] == link {
		delete(c.links, link.guildID)
	}
}

// DiscordLink is one guild's live voice session. It implements
// voice.Link for the connection supervisor and pipeline.OpusLink for the
// streaming engine.
type DiscordLink struct {
	connector *DiscordConnector
	sink      voice.TransitionSink
	guildID   string

	mu        sync.Mutex
	channelID string
	vc        *discordgo.VoiceConnection
	stopped   bool

	stop     chan struct{}
	haltOnce sync.Once
}

func newDiscordLink(connector *DiscordConnector, guildID, channelID string, vc *discordgo.VoiceConnection, sink voice.TransitionSink) *DiscordLink {
	return &DiscordLink{
		connector: connector,
		sink:      sink,
		guildID:   guildID,
		channelID: channelID,
		vc:        vc,
		stop:      make(chan struct{}),
	}
}

// watch samples readiness and reports edges to the sink.
func (l *DiscordLink) watch() {
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	last := false
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}

		ready := l.Ready()
		if ready == last {
			continue
		}
		last = ready
		if ready {
			l.sink.HandleTransition(voice.ConnReady, 0)
		} else {
			l.sink.HandleTransition(voice.ConnDisconnected, 0)
		}
	}
}

// Rejoin implements voice.Link by re-issuing the channel join with the
// session's existing credentials.
func (l *DiscordLink) Rejoin() bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	guildID, channelID := l.guildID, l.channelID
	l.mu.Unlock()

	l.sink.HandleTransition(voice.ConnConnecting, 0)
	vc, err := l.connector.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		log.Printf("[Voice] Rejoin failed for guild %s: %v", guildID, err)
		return false
	}
	l.update(vc, channelID)
	if l.connector.OnRejoin != nil {
		l.connector.OnRejoin(guildID)
	}
	return true
}

// Destroy implements voice.Link. It never calls the sink; the supervisor
// that requested destruction already knows.
func (l *DiscordLink) Destroy() {
	l.halt()

	l.mu.Lock()
	vc := l.vc
	l.vc = nil
	l.mu.Unlock()

	if vc != nil {
		vc.Disconnect()
	}
	l.connector.forget(l)
}

// halt stops the watcher without touching the underlying connection.
func (l *DiscordLink) halt() {
	l.haltOnce.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.mu.Unlock()
		close(l.stop)
	})
}

func (l *DiscordLink) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

func (l *DiscordLink) update(vc *discordgo.VoiceConnection, channelID string) {
	l.mu.Lock()
	l.vc = vc
	l.channelID = channelID
	l.mu.Unlock()
}

// Ready implements pipeline.OpusLink.
func (l *DiscordLink) Ready() bool {
	l.mu.Lock()
	vc := l.vc
	l.mu.Unlock()
	return vc != nil && vc.Ready
}

// Speaking implements pipeline.OpusLink.
func (l *DiscordLink) Speaking(on bool) error {
	l.mu.Lock()
	vc := l.vc
	l.mu.Unlock()
	if vc == nil {
		return errors.New("no voice connection")
	}
	return vc.Speaking(on)
}

// Send implements pipeline.OpusLink. A nil channel is returned when the
// connection is gone; sends then block until the engine's send timeout.
func (l *DiscordLink) Send() chan<- []byte {
	l.mu.Lock()
	vc := l.vc
	l.mu.Unlock()
	if vc == nil {
		return nil
	}
	return vc.OpusSend
}

// FindUserVoiceChannel returns the voice channel the user currently
// occupies in the guild.
func FindUserVoiceChannel(session *discordgo.Session, guildID, userID string) (string, error) {
	guild, err := session.State.Guild(guildID)
	if err != nil {
		return "", fmt.Errorf("could not find guild: %w", err)
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID, nil
		}
	}
	return "", errors.New("you must be in a voice channel to play music")
}

// ChannelName resolves a channel's display name, falling back to the ID.
func ChannelName(session *discordgo.Session, channelID string) string {
	channel, err := session.State.Channel(channelID)
	if err != nil || channel.Name == "" {
		return channelID
	}
	return channel.Name
}

var (
	_ voice.Connector   = (*DiscordConnector)(nil)
	_ voice.Link        = (*DiscordLink)(nil)
	_ pipeline.OpusLink = (*DiscordLink)(nil)
)
