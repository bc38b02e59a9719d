package voice

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// wsCloseMoveOrKick is the websocket close code Discord sends both when the
// bot is moved between voice channels and when it is kicked or the channel
// is deleted. The two cases are indistinguishable at close time, so the
// connection waits a grace period for the transport to start reconnecting
// before treating it as a real disconnect.
const wsCloseMoveOrKick = 4014

// ErrConnDestroyed is returned when an operation is attempted on a
// connection that has already been torn down.
var ErrConnDestroyed = errors.New("voice connection destroyed")

// Link is a live transport-level voice session handle. Implementations must
// not call back into the TransitionSink synchronously from Destroy.
type Link interface {
	// Rejoin asks the transport to re-establish the session with its
	// existing credentials. It reports whether the request was issued.
	Rejoin() bool

	// Destroy tears the transport session down.
	Destroy()
}

// Connector establishes transport-level voice links. The sink receives
// every transport state change for the life of the link, including changes
// that occur after a Rejoin.
type Connector interface {
	Connect(guildID, channelID string, sink TransitionSink) (Link, error)
}

// TransitionSink receives transport state transitions. closeCode carries
// the websocket close code for Disconnected transitions and is zero
// otherwise.
type TransitionSink interface {
	HandleTransition(next ConnState, closeCode int)
}

// ConnHooks are the lifecycle callbacks a Conn owner can register. All are
// optional and all are invoked without the connection lock held.
type ConnHooks struct {
	// OnStateChange fires after every observable state transition.
	OnStateChange func(prev, next ConnState)

	// OnFatal fires at most once, when the connection is being destroyed
	// for a reason the listeners should hear about (timed out, kicked,
	// gave up rejoining). A deliberate Destroy never fires it.
	OnFatal func(cause string)

	// OnDestroyed fires exactly once, after the connection has entered
	// its terminal state.
	OnDestroyed func()
}

// Conn supervises one guild's voice transport session. It layers rejoin
// policy on top of a raw Link: ambiguous closes get a grace period,
// ordinary drops get up to MaxRejoins linearly backed-off rejoin attempts,
// and a connection that never reaches Ready within ReadyTimeout is
// destroyed. Destroyed is terminal.
type Conn struct {
	guildID   string
	connector Connector
	timings   Timings
	hooks     ConnHooks

	mu        sync.Mutex
	state     ConnState
	channelID string
	link      Link
	watch     chan struct{}

	attempts int

	readyGuardArmed bool
	readyGuard      *time.Timer
	graceTimer      *time.Timer
	backoffTimer    *time.Timer

	fatalFired bool
}

// NewConn creates a connection supervisor in the Signalling state. The
// ready guard is armed immediately; call Join promptly.
func NewConn(connector Connector, guildID string, timings Timings, hooks ConnHooks) *Conn {
	c := &Conn{
		guildID:   guildID,
		connector: connector,
		timings:   timings.withDefaults(),
		hooks:     hooks,
		state:     ConnSignalling,
		watch:     make(chan struct{}),
	}
	c.mu.Lock()
	c.armReadyGuardLocked()
	c.mu.Unlock()
	return c
}

// Join connects to the given voice channel. Calling it again with a
// different channel moves the session; the transport treats a join for an
// already-connected guild as a redirect.
func (c *Conn) Join(channelID string) error {
	c.mu.Lock()
	if c.state == ConnDestroyed {
		c.mu.Unlock()
		return ErrConnDestroyed
	}
	c.channelID = channelID
	c.mu.Unlock()

	link, err := c.connector.Connect(c.guildID, channelID, c)
	if err != nil {
		return fmt.Errorf("joining voice channel %s: %w", channelID, err)
	}

	c.mu.Lock()
	if c.state == ConnDestroyed {
		c.mu.Unlock()
		link.Destroy()
		return ErrConnDestroyed
	}
	c.link = link
	c.mu.Unlock()
	return nil
}

// HandleTransition is the transport's event entry point. It applies the
// rejoin policy and wakes AwaitReady waiters. Transitions arriving after
// destruction are ignored.
func (c *Conn) HandleTransition(next ConnState, closeCode int) {
	if next == ConnDestroyed {
		c.teardown("", false)
		return
	}

	c.mu.Lock()
	if c.state == ConnDestroyed {
		c.mu.Unlock()
		return
	}
	prev := c.state
	c.state = next
	close(c.watch)
	c.watch = make(chan struct{})

	var fatalCause string
	switch next {
	case ConnDisconnected:
		fatalCause = c.onDisconnectedLocked(closeCode)
	case ConnSignalling, ConnConnecting:
		// The transport is attempting to (re)establish; pending grace
		// and backoff timers are moot.
		c.stopGraceLocked()
		c.stopBackoffLocked()
		c.armReadyGuardLocked()
	case ConnReady:
		c.attempts = 0
		c.stopGraceLocked()
		c.stopBackoffLocked()
		c.disarmReadyGuardLocked()
	}
	onChange := c.hooks.OnStateChange
	c.mu.Unlock()

	if onChange != nil && prev != next {
		onChange(prev, next)
	}
	if fatalCause != "" {
		c.fatal(fatalCause)
	}
}

// onDisconnectedLocked decides what a disconnect means. Caller holds c.mu.
// A non-empty return is a fatal cause the caller must act on after
// releasing the lock.
func (c *Conn) onDisconnectedLocked(closeCode int) string {
	switch {
	case closeCode == wsCloseMoveOrKick:
		// Either moved between channels (transport will start
		// reconnecting on its own) or kicked. Give it a grace period
		// to disambiguate.
		c.armGraceLocked()
		return ""
	case c.attempts < c.timings.MaxRejoins:
		c.armBackoffLocked()
		return ""
	default:
		return fmt.Sprintf("gave up rejoining voice after %d attempts", c.attempts)
	}
}

func (c *Conn) armReadyGuardLocked() {
	if c.readyGuardArmed {
		return
	}
	c.readyGuardArmed = true
	c.readyGuard = time.AfterFunc(c.timings.ReadyTimeout, c.readyGuardExpired)
}

func (c *Conn) disarmReadyGuardLocked() {
	if c.readyGuard != nil {
		c.readyGuard.Stop()
		c.readyGuard = nil
	}
	c.readyGuardArmed = false
}

func (c *Conn) readyGuardExpired() {
	c.mu.Lock()
	c.readyGuardArmed = false
	c.readyGuard = nil
	st := c.state
	c.mu.Unlock()
	if st == ConnReady || st == ConnDestroyed {
		return
	}
	c.fatal("voice connection did not become ready in time")
}

func (c *Conn) armGraceLocked() {
	if c.graceTimer != nil {
		return
	}
	c.graceTimer = time.AfterFunc(c.timings.DisconnectGrace, c.graceExpired)
}

func (c *Conn) stopGraceLocked() {
	if c.graceTimer != nil {
		c.graceTimer.Stop()
		c.graceTimer = nil
	}
}

func (c *Conn) graceExpired() {
	c.mu.Lock()
	c.graceTimer = nil
	st := c.state
	c.mu.Unlock()
	if st != ConnDisconnected {
		return
	}
	c.fatal("voice session dropped")
}

func (c *Conn) armBackoffLocked() {
	if c.backoffTimer != nil {
		return
	}
	delay := c.timings.RejoinBackoff * time.Duration(c.attempts+1)
	c.backoffTimer = time.AfterFunc(delay, c.attemptRejoin)
}

func (c *Conn) stopBackoffLocked() {
	if c.backoffTimer != nil {
		c.backoffTimer.Stop()
		c.backoffTimer = nil
	}
}

func (c *Conn) attemptRejoin() {
	c.mu.Lock()
	c.backoffTimer = nil
	if c.state != ConnDisconnected {
		c.mu.Unlock()
		return
	}
	c.attempts++
	n := c.attempts
	link := c.link
	c.mu.Unlock()

	log.Printf("[Voice] Rejoin attempt %d/%d for guild %s", n, c.timings.MaxRejoins, c.guildID)
	if link == nil || !link.Rejoin() {
		c.fatal("voice rejoin request failed")
	}
}

// Destroy tears the connection down without notifying listeners. It is
// idempotent and safe to call from any goroutine.
func (c *Conn) Destroy() {
	c.teardown("", false)
}

// fatal tears the connection down and reports the cause through OnFatal
// exactly once.
func (c *Conn) fatal(cause string) {
	c.teardown(cause, true)
}

func (c *Conn) teardown(cause string, notify bool) {
	c.mu.Lock()
	if c.state == ConnDestroyed {
		c.mu.Unlock()
		return
	}
	prev := c.state
	c.state = ConnDestroyed
	c.disarmReadyGuardLocked()
	c.stopGraceLocked()
	c.stopBackoffLocked()
	link := c.link
	c.link = nil
	close(c.watch)
	c.watch = make(chan struct{})

	onChange := c.hooks.OnStateChange
	onFatal := c.hooks.OnFatal
	onDestroyed := c.hooks.OnDestroyed
	if !notify || c.fatalFired {
		onFatal = nil
	}
	if notify {
		c.fatalFired = true
	}
	c.mu.Unlock()

	if notify {
		log.Printf("[Voice] Connection for guild %s destroyed: %s", c.guildID, cause)
	}
	if link != nil {
		link.Destroy()
	}
	if onChange != nil {
		onChange(prev, ConnDestroyed)
	}
	if onFatal != nil {
		onFatal(cause)
	}
	if onDestroyed != nil {
		onDestroyed()
	}
}

// AwaitReady blocks until the connection reaches Ready, returning false if
// it is destroyed first or the timeout elapses.
func (c *Conn) AwaitReady(timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		c.mu.Lock()
		st, watch := c.state, c.watch
		c.mu.Unlock()
		switch st {
		case ConnReady:
			return true
		case ConnDestroyed:
			return false
		}
		select {
		case <-watch:
		case <-deadline.C:
			return false
		}
	}
}

// State returns the current connection state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ChannelID returns the most recently joined voice channel.
func (c *Conn) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelID
}

// RejoinAttempts returns how many rejoins have been attempted since the
// last time the connection was Ready.
func (c *Conn) RejoinAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}
