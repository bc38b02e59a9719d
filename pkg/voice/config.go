package voice

import "time"

// Timings collects every timer the coordinator arms. Production code uses
// DefaultTimings; tests substitute millisecond values so the full
// reconnect and idle ladders run in well under a second.
type Timings struct {
	// ReadyTimeout bounds how long a connection may sit in Signalling or
	// Connecting before it is considered wedged and destroyed.
	ReadyTimeout time.Duration

	// DisconnectGrace is how long an ambiguous websocket close (moved
	// between channels, or kicked) may wait for the transport to start
	// reconnecting before the session is treated as a real disconnect.
	DisconnectGrace time.Duration

	// RejoinBackoff is the linear backoff unit for reconnect attempts.
	// Attempt n waits RejoinBackoff * (n+1).
	RejoinBackoff time.Duration

	// MaxRejoins caps how many reconnect attempts are made before the
	// session is abandoned.
	MaxRejoins int

	// IdleTimeout is how long the player may stay Idle with nothing to
	// play before the session is torn down for inactivity.
	IdleTimeout time.Duration
}

// DefaultTimings returns the production timer values.
func DefaultTimings() Timings {
	return Timings{
		ReadyTimeout:    15 * time.Second,
		DisconnectGrace: 5 * time.Second,
		RejoinBackoff:   5 * time.Second,
		MaxRejoins:      5,
		IdleTimeout:     30 * time.Second,
	}
}

// withDefaults fills any zero field from DefaultTimings so callers can
// override selectively.
func (t Timings) withDefaults() Timings {
	def := DefaultTimings()
	if t.ReadyTimeout <= 0 {
		t.ReadyTimeout = def.ReadyTimeout
	}
	if t.DisconnectGrace <= 0 {
		t.DisconnectGrace = def.DisconnectGrace
	}
	if t.RejoinBackoff <= 0 {
		t.RejoinBackoff = def.RejoinBackoff
	}
	if t.MaxRejoins <= 0 {
		t.MaxRejoins = def.MaxRejoins
	}
	if t.IdleTimeout <= 0 {
		t.IdleTimeout = def.IdleTimeout
	}
	return t
}
