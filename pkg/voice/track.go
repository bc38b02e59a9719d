package voice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TrackInfo holds the display metadata for a queued track.
type TrackInfo struct {
	Title       string
	Duration    time.Duration
	PageURL     string
	VideoID     string
	Thumbnail   string
	RequestedBy string
}

// Handlers are the lifecycle callbacks attached to a track. Any field may be
// nil. OnStart fires when playback of a produced resource actually begins,
// OnFinish when it ends without error, and OnError for production or
// playback failures. Callbacks are invoked without any coordinator lock
// held, so they may call back into the Subscription freely.
type Handlers struct {
	OnStart  func(*Track)
	OnFinish func(*Track)
	OnError  func(*Track, error)
}

// ProduceFunc resolves a track to a playable input (a direct stream URL or
// local path) at the moment playback is about to start. Resolution is
// deliberately lazy: a track can sit in the queue for an hour and still get
// a fresh stream URL.
type ProduceFunc func(ctx context.Context) (string, error)

// Track is a single queue entry: metadata plus a lazy producer for the
// underlying audio. The same Track may be produced more than once (for
// example when a listener replays it), and each production yields an
// independent Resource with its own callback guards.
type Track struct {
	TrackInfo

	produce  ProduceFunc
	handlers Handlers

	mu sync.Mutex
}

// NewTrack builds a track from metadata, a lazy producer and its lifecycle
// handlers.
func NewTrack(info TrackInfo, produce ProduceFunc, handlers Handlers) *Track {
	return &Track{TrackInfo: info, produce: produce, handlers: handlers}
}

// Produce resolves the track into a playable Resource. Each call is a fresh
// playback attempt with its own identity and an errored flag starting at
// false.
func (t *Track) Produce(ctx context.Context) (*Resource, error) {
	if t.produce == nil {
		return nil, fmt.Errorf("track %q has no producer", t.Title)
	}
	input, err := t.produce(ctx)
	if err != nil {
		return nil, fmt.Errorf("producing %q: %w", t.Title, err)
	}
	return &Resource{
		ID:    uuid.NewString(),
		Input: input,
		Track: t,
	}, nil
}

// fireStart invokes OnStart once. Safe on a nil handler.
func (t *Track) fireStart() {
	t.mu.Lock()
	h := t.handlers.OnStart
	t.mu.Unlock()
	if h != nil {
		h(t)
	}
}

func (t *Track) fireFinish() {
	t.mu.Lock()
	h := t.handlers.OnFinish
	t.mu.Unlock()
	if h != nil {
		h(t)
	}
}

func (t *Track) fireError(err error) {
	t.mu.Lock()
	h := t.handlers.OnError
	t.mu.Unlock()
	if h != nil {
		h(t, err)
	}
}

// Resource is one playback attempt of a Track: the resolved audio input
// plus the callback bookkeeping for that attempt. Lifecycle callbacks fire
// at most once per Resource, so replaying a Track fires them again while a
// duplicate event within the same attempt does not.
type Resource struct {
	ID    string
	Track *Track
	Input string

	mu          sync.Mutex
	startFired  bool
	finishFired bool
	errorFired  bool
	errored     bool
}

// Errored reports whether this attempt failed. Once set it stays set, which
// suppresses the OnFinish callback for the attempt.
func (r *Resource) Errored() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errored
}

// hasStarted reports whether audio ever began flowing for this attempt.
func (r *Resource) hasStarted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startFired
}

// started fires the track's OnStart exactly once for this attempt.
func (r *Resource) started() {
	r.mu.Lock()
	if r.startFired {
		r.mu.Unlock()
		return
	}
	r.startFired = true
	r.mu.Unlock()
	r.Track.fireStart()
}

// finished fires the track's OnFinish exactly once, and only if the attempt
// did not error.
func (r *Resource) finished() {
	r.mu.Lock()
	if r.finishFired || r.errored {
		r.mu.Unlock()
		return
	}
	r.finishFired = true
	r.mu.Unlock()
	r.Track.fireFinish()
}

// failed marks the attempt errored and fires the track's OnError exactly
// once for this attempt.
func (r *Resource) failed(err error) {
	r.mu.Lock()
	r.errored = true
	if r.errorFired {
		r.mu.Unlock()
		return
	}
	r.errorFired = true
	r.mu.Unlock()
	r.Track.fireError(err)
}
