package voice

// ConnState represents the voice connection state machine.
//
// The machine has five states with the following transitions:
//
//	Signalling ──▶ Connecting ──▶ Ready
//	     ▲             ▲            │
//	     │             │ rejoin     │ drop
//	     │             │            ▼
//	     └──────── Disconnected ◀───┘
//	                    │
//	                    │ exhausted / timed out
//	                    ▼
//	                Destroyed (terminal)
//
// Destroyed is terminal: no transition leaves it. Reaching Ready resets the
// rejoin attempt counter.
type ConnState int

const (
	ConnSignalling ConnState = iota
	ConnConnecting
	ConnReady
	ConnDisconnected
	ConnDestroyed
)

// String returns the state name.
func (s ConnState) String() string {
	switch s {
	case ConnSignalling:
		return "Signalling"
	case ConnConnecting:
		return "Connecting"
	case ConnReady:
		return "Ready"
	case ConnDisconnected:
		return "Disconnected"
	case ConnDestroyed:
		return "Destroyed"
	default:
		return "Unknown"
	}
}

// PlayerState represents the playback state machine.
//
// Idle means no active or paused resource; it is the trigger point for queue
// advancement and the inactivity timer. AutoPaused is entered when the voice
// connection drops mid-playback and is left automatically once the
// connection is Ready again.
type PlayerState int

const (
	PlayerIdle PlayerState = iota
	PlayerBuffering
	PlayerPlaying
	PlayerPaused
	PlayerAutoPaused
)

// String returns the state name.
func (s PlayerState) String() string {
	switch s {
	case PlayerIdle:
		return "Idle"
	case PlayerBuffering:
		return "Buffering"
	case PlayerPlaying:
		return "Playing"
	case PlayerPaused:
		return "Paused"
	case PlayerAutoPaused:
		return "AutoPaused"
	default:
		return "Unknown"
	}
}

// IsActive returns true if a resource is loaded (anything but Idle).
func (s PlayerState) IsActive() bool {
	return s != PlayerIdle
}
