package voice

import (
	"fmt"
	"log"
	"sync"
)

// Engine performs the actual audio streaming for a single playback attempt.
// Exactly one engine exists per attempt; it reports progress through the
// EngineSink it was built with. Implementations live outside this package
// (the ffmpeg/opus pipeline in production, a mock in tests).
type Engine interface {
	// Start begins streaming the resource. It returns quickly; streaming
	// continues on the engine's own goroutines.
	Start(res *Resource) error

	// Pause suspends streaming. Reports whether the engine accepted.
	Pause() bool

	// Resume continues a paused stream. Reports whether the engine
	// accepted.
	Resume() bool

	// Stop ends the attempt. The engine must then report
	// EngineFinished for the resource it was started with. force
	// requests an immediate cut rather than a graceful drain.
	Stop(force bool)
}

// EngineSink receives attempt progress events from an Engine. Events carry
// the Resource so reports from a superseded attempt can be recognized and
// dropped.
type EngineSink interface {
	// EngineStarted fires when audio actually begins flowing.
	EngineStarted(res *Resource)

	// EngineFinished fires exactly once per attempt when streaming is
	// over, whether it drained naturally, was stopped, or failed.
	EngineFinished(res *Resource, err error)
}

// EngineFactory builds a fresh engine for one playback attempt in the given
// guild.
type EngineFactory func(guildID string, sink EngineSink) Engine

// PlayerHooks are the coordinator-facing callbacks. Both are invoked
// without the player lock held.
type PlayerHooks struct {
	// OnIdle fires on every transition into Idle from an active state,
	// with the track that just ended and whether it ended in error.
	OnIdle func(ended *Track, errored bool)

	// OnPlaying fires on every transition into Playing.
	OnPlaying func(t *Track)
}

// Player runs the playback state machine for one guild. It owns at most
// one active Resource and the Engine streaming it.
//
// Lock discipline: p.mu is never held while calling engine methods or
// hooks, because both may call back into the player.
type Player struct {
	guildID   string
	newEngine EngineFactory
	hooks     PlayerHooks

	mu     sync.Mutex
	state  PlayerState
	res    *Resource
	engine Engine
}

// NewPlayer creates an idle player for a guild.
func NewPlayer(guildID string, factory EngineFactory, hooks PlayerHooks) *Player {
	return &Player{
		guildID:   guildID,
		newEngine: factory,
		hooks:     hooks,
		state:     PlayerIdle,
	}
}

// Play starts a new attempt for the produced resource. The player must be
// Idle; the queue processor guarantees that, so a busy player only means a
// racing caller, and the attempt is dropped with a log line.
func (p *Player) Play(res *Resource) {
	p.mu.Lock()
	if p.state != PlayerIdle {
		st := p.state
		p.mu.Unlock()
		log.Printf("[Voice] Player for guild %s is %s, dropping attempt for %q", p.guildID, st, res.Track.Title)
		return
	}
	engine := p.newEngine(p.guildID, p)
	p.state = PlayerBuffering
	p.res = res
	p.engine = engine
	p.mu.Unlock()

	if err := engine.Start(res); err != nil {
		p.EngineFinished(res, fmt.Errorf("starting playback: %w", err))
	}
}

// Pause suspends a playing attempt. Returns false when there is nothing
// playing or the engine refuses.
func (p *Player) Pause() bool {
	p.mu.Lock()
	if p.state != PlayerPlaying {
		p.mu.Unlock()
		return false
	}
	engine := p.engine
	p.mu.Unlock()

	if engine == nil || !engine.Pause() {
		return false
	}
	p.mu.Lock()
	if p.state == PlayerPlaying {
		p.state = PlayerPaused
	}
	p.mu.Unlock()
	return true
}

// Resume continues a Paused or AutoPaused attempt. The state returns to
// Playing if audio had already started flowing, otherwise to Buffering.
func (p *Player) Resume() bool {
	p.mu.Lock()
	if p.state != PlayerPaused && p.state != PlayerAutoPaused {
		p.mu.Unlock()
		return false
	}
	engine := p.engine
	res := p.res
	p.mu.Unlock()

	if engine == nil || !engine.Resume() {
		return false
	}
	p.mu.Lock()
	if p.res == res && (p.state == PlayerPaused || p.state == PlayerAutoPaused) {
		if res != nil && res.hasStarted() {
			p.state = PlayerPlaying
		} else {
			p.state = PlayerBuffering
		}
	}
	p.mu.Unlock()
	return true
}

// AutoPause suspends the attempt because the voice connection dropped. The
// attempt is kept so playback can continue where it left off once the
// connection recovers.
func (p *Player) AutoPause() {
	p.mu.Lock()
	if p.state != PlayerPlaying && p.state != PlayerBuffering {
		p.mu.Unlock()
		return
	}
	p.state = PlayerAutoPaused
	engine := p.engine
	p.mu.Unlock()

	if engine != nil {
		engine.Pause()
	}
}

// Stop ends the current attempt, if any. The idle transition (and with it
// the finish callback and queue advance) arrives through EngineFinished.
// Returns false when the player was already idle.
func (p *Player) Stop(force bool) bool {
	p.mu.Lock()
	if p.state == PlayerIdle {
		p.mu.Unlock()
		return false
	}
	engine := p.engine
	p.mu.Unlock()

	if engine != nil {
		engine.Stop(force)
	}
	return true
}

// EngineStarted implements EngineSink.
func (p *Player) EngineStarted(res *Resource) {
	p.mu.Lock()
	if p.res != res {
		p.mu.Unlock()
		return
	}
	var toPlaying bool
	switch p.state {
	case PlayerBuffering:
		p.state = PlayerPlaying
		toPlaying = true
	case PlayerPaused, PlayerAutoPaused:
		// The first frames arrived while suspended. Record the start;
		// Resume will surface Playing.
	default:
		p.mu.Unlock()
		return
	}
	onPlaying := p.hooks.OnPlaying
	p.mu.Unlock()

	res.started()
	if toPlaying && onPlaying != nil {
		onPlaying(res.Track)
	}
}

// EngineFinished implements EngineSink. Reports for a superseded resource
// are dropped, so a late engine cannot disturb the next attempt.
func (p *Player) EngineFinished(res *Resource, err error) {
	p.mu.Lock()
	if p.res != res {
		p.mu.Unlock()
		return
	}
	prev := p.state
	p.state = PlayerIdle
	p.res = nil
	p.engine = nil
	onIdle := p.hooks.OnIdle
	p.mu.Unlock()

	if err != nil {
		log.Printf("[Voice] Playback of %q in guild %s failed: %v", res.Track.Title, p.guildID, err)
		res.failed(err)
	}
	res.finished()
	if prev != PlayerIdle && onIdle != nil {
		onIdle(res.Track, res.Errored())
	}
}

// Current returns the track of the active attempt, or nil when idle.
func (p *Player) Current() *Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.res == nil {
		return nil
	}
	return p.res.Track
}

// State returns the current player state.
func (p *Player) State() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}
