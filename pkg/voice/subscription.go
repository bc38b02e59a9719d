package voice

import (
	"context"
	"log"
	"sync"
	"time"
)

// Subscription is one guild's audio session: the voice connection, the
// player and the pending queue, glued together by the advance policy. It is
// created by the Registry and lives until Stop, an unrecoverable
// connection failure, or the inactivity timeout.
//
// Lock discipline: s.mu may be held while calling into the Queue or while
// reading Player state, but never across track callbacks or notifier
// calls. Conn and Player hooks run without their owner's lock held, so
// they may re-enter the subscription freely.
type Subscription struct {
	GuildID string

	conn   *Conn
	player *Player
	queue  *Queue

	timings  Timings
	registry *Registry

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	notifier   Notifier
	processing bool
	suppress   bool
	destroyed  bool
	idleTimer  *time.Timer
}

func newSubscription(guildID string, cfg RegistryConfig, notifier Notifier, reg *Registry) *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscription{
		GuildID:  guildID,
		queue:    NewQueue(),
		timings:  cfg.Timings.withDefaults(),
		registry: reg,
		ctx:      ctx,
		cancel:   cancel,
		notifier: notifier,
	}
	s.player = NewPlayer(guildID, cfg.Engine, PlayerHooks{
		OnIdle:    s.handleIdle,
		OnPlaying: s.handlePlaying,
	})
	s.conn = NewConn(cfg.Connector, guildID, s.timings, ConnHooks{
		OnStateChange: s.handleConnChange,
		OnFatal:       s.handleConnFatal,
		OnDestroyed:   s.Stop,
	})
	// A session that never gets anything to play must still time out.
	s.mu.Lock()
	s.armIdleTimerLocked()
	s.mu.Unlock()
	return s
}

// ProcessQueue advances playback: if the player is idle and a track is
// pending, pop it, produce its resource and start it. Production failures
// notify the track and advance to the next entry. The method is safe to
// call from any goroutine at any time; a call that finds nothing to do is
// a no-op.
func (s *Subscription) ProcessQueue() {
	s.mu.Lock()
	// The suppress flag is one-shot and any explicit advance supersedes
	// it, so clear it before anything else. A stale flag from a stop
	// that never produced an idle transition then cannot swallow a
	// later advance.
	s.suppress = false
	if s.processing || s.destroyed {
		s.mu.Unlock()
		return
	}
	if s.player.State() != PlayerIdle {
		s.mu.Unlock()
		return
	}
	next := s.queue.pop()
	if next == nil {
		s.mu.Unlock()
		return
	}
	s.processing = true
	s.mu.Unlock()

	res, err := next.Produce(s.ctx)
	if err != nil {
		log.Printf("[Voice] Failed to produce %q in guild %s: %v", next.Title, s.GuildID, err)
		next.fireError(err)
		s.mu.Lock()
		s.processing = false
		s.mu.Unlock()
		s.ProcessQueue()
		return
	}

	s.mu.Lock()
	s.processing = false
	destroyed := s.destroyed
	if !destroyed {
		s.stopIdleTimerLocked()
	}
	s.mu.Unlock()
	if destroyed {
		return
	}
	s.player.Play(res)
}

// Enqueue appends a track and kicks the queue processor.
func (s *Subscription) Enqueue(t *Track) {
	s.queue.Enqueue(t)
	s.ProcessQueue()
}

// EnqueueNext places a track at the front of the queue and kicks the queue
// processor.
func (s *Subscription) EnqueueNext(t *Track) {
	s.queue.EnqueueFront(t)
	s.ProcessQueue()
}

// EnqueueAll appends a batch of tracks, optionally shuffling the queue
// afterwards, and kicks the queue processor.
func (s *Subscription) EnqueueAll(tracks []*Track, shuffleAfter bool) {
	s.queue.EnqueueAll(tracks, shuffleAfter)
	s.ProcessQueue()
}

// Skip ends the current track; the idle transition advances to the next
// one. Returns false when nothing is playing.
func (s *Subscription) Skip() bool {
	return s.player.Stop(false)
}

// Replay restarts the current track from the beginning. The track is
// re-queued at the front and the current attempt is stopped with the
// advance suppressed, so whichever of the stop and the explicit advance
// lands first starts exactly one fresh attempt.
func (s *Subscription) Replay() bool {
	cur := s.player.Current()
	if cur == nil {
		return false
	}
	s.mu.Lock()
	s.suppress = true
	s.mu.Unlock()
	s.queue.EnqueueFront(cur)
	s.player.Stop(true)
	s.ProcessQueue()
	return true
}

// Pause suspends the current track.
func (s *Subscription) Pause() bool { return s.player.Pause() }

// Resume continues a paused track.
func (s *Subscription) Resume() bool { return s.player.Resume() }

// Stop tears the whole session down: clears the queue without callbacks,
// force-stops the player, destroys the connection and removes the session
// from its registry. Idempotent; concurrent and re-entrant calls are safe.
func (s *Subscription) Stop() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	s.stopIdleTimerLocked()
	s.mu.Unlock()

	s.cancel()
	s.queue.Clear()
	s.player.Stop(true)
	s.conn.Destroy()
	if s.registry != nil {
		s.registry.remove(s.GuildID)
	}
	log.Printf("[Voice] Session for guild %s stopped", s.GuildID)
}

// Join connects the session's voice transport to a channel.
func (s *Subscription) Join(channelID string) error {
	return s.conn.Join(channelID)
}

// AwaitReady blocks until the voice connection is Ready, or the timeout or
// destruction hits first.
func (s *Subscription) AwaitReady(timeout time.Duration) bool {
	return s.conn.AwaitReady(timeout)
}

// NowPlaying returns the currently playing track, or nil.
func (s *Subscription) NowPlaying() *Track {
	return s.player.Current()
}

// Queue exposes the pending track list.
func (s *Subscription) Queue() *Queue { return s.queue }

// Player exposes the playback state machine.
func (s *Subscription) Player() *Player { return s.player }

// Conn exposes the connection state machine.
func (s *Subscription) Conn() *Conn { return s.conn }

// Destroyed reports whether the session has been torn down.
func (s *Subscription) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// Notifier returns the current notify target.
func (s *Subscription) Notifier() Notifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notifier
}

// SetNotifier replaces the notify target; later events go to the new one.
func (s *Subscription) SetNotifier(n Notifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// handleIdle runs on every player transition into Idle: re-arm the
// inactivity timer and, unless a caller suppressed it, advance the queue.
func (s *Subscription) handleIdle(ended *Track, errored bool) {
	s.mu.Lock()
	suppress := s.suppress
	s.suppress = false
	destroyed := s.destroyed
	if !destroyed {
		s.armIdleTimerLocked()
	}
	s.mu.Unlock()

	if destroyed {
		return
	}
	if ended != nil && errored {
		log.Printf("[Voice] %q ended with an error in guild %s, advancing", ended.Title, s.GuildID)
	}
	if !suppress {
		s.ProcessQueue()
	}
}

func (s *Subscription) handlePlaying(t *Track) {
	s.mu.Lock()
	s.stopIdleTimerLocked()
	s.mu.Unlock()
	log.Printf("[Voice] Now playing %q in guild %s", t.Title, s.GuildID)
}

// handleConnChange reacts to transport state: a drop suspends playback so
// the attempt survives the outage, and recovery resumes it.
func (s *Subscription) handleConnChange(prev, next ConnState) {
	switch next {
	case ConnDisconnected:
		s.player.AutoPause()
	case ConnReady:
		if s.player.State() == PlayerAutoPaused {
			s.player.Resume()
		}
		s.ProcessQueue()
	}
}

func (s *Subscription) handleConnFatal(cause string) {
	if n := s.Notifier(); n != nil {
		n.ConnectionLost(cause)
	}
}

// armIdleTimerLocked (re)arms the inactivity teardown. Caller holds s.mu.
func (s *Subscription) armIdleTimerLocked() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.timings.IdleTimeout, s.idleExpired)
}

func (s *Subscription) stopIdleTimerLocked() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

// idleExpired fires when the player sat Idle for the whole idle window.
// The session announces the teardown itself; the connection is then
// destroyed silently so listeners hear about it exactly once.
func (s *Subscription) idleExpired() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	notifier := s.notifier
	s.mu.Unlock()

	if s.player.State() != PlayerIdle {
		return
	}
	log.Printf("[Voice] Session for guild %s idle for %s, leaving", s.GuildID, s.timings.IdleTimeout)
	if notifier != nil {
		notifier.Inactivity()
	}
	s.conn.Destroy()
}
