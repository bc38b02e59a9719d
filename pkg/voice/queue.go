package voice

import (
	"math/rand"
	"sync"
	"time"
)

// Queue is an ordered, thread-safe list of pending tracks. The currently
// playing track is not part of the queue; it is held by the Player.
type Queue struct {
	mu     sync.RWMutex
	tracks []*Track
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{tracks: make([]*Track, 0)}
}

// Enqueue appends a track to the back of the queue.
func (q *Queue) Enqueue(t *Track) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = append(q.tracks, t)
}

// EnqueueFront places a track at the front of the queue so it plays next.
// The track is appended and then swapped into the front slot, displacing
// the previous front entry to the back.
func (q *Queue) EnqueueFront(t *Track) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = append(q.tracks, t)
	last := len(q.tracks) - 1
	q.tracks[0], q.tracks[last] = q.tracks[last], q.tracks[0]
}

// EnqueueAll appends a batch of tracks in order. When shuffleAfter is set
// the whole queue is shuffled once the batch is in, so playlist loads can
// land pre-shuffled without a visible ordered window.
func (q *Queue) EnqueueAll(tracks []*Track, shuffleAfter bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = append(q.tracks, tracks...)
	if shuffleAfter {
		q.shuffleLocked()
	}
}

// pop removes and returns the front track, or nil if the queue is empty.
func (q *Queue) pop() *Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tracks) == 0 {
		return nil
	}
	t := q.tracks[0]
	q.tracks = q.tracks[1:]
	return t
}

// Clear removes every pending track. No track callbacks fire; cleared
// entries are simply forgotten.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = q.tracks[:0]
}

// Remove deletes the track at index i and returns it, or nil if i is out of
// range.
func (q *Queue) Remove(i int) *Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i < 0 || i >= len(q.tracks) {
		return nil
	}
	t := q.tracks[i]
	q.tracks = append(q.tracks[:i], q.tracks[i+1:]...)
	return t
}

// Swap exchanges the tracks at positions i and j. Index validation is the
// caller's job; out-of-range indices are ignored here.
func (q *Queue) Swap(i, j int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i < 0 || j < 0 || i >= len(q.tracks) || j >= len(q.tracks) {
		return
	}
	q.tracks[i], q.tracks[j] = q.tracks[j], q.tracks[i]
}

// Shuffle randomly reorders the pending tracks.
func (q *Queue) Shuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.shuffleLocked()
}

// shuffleLocked runs a Fisher-Yates shuffle. Caller holds q.mu.
func (q *Queue) shuffleLocked() {
	if len(q.tracks) < 2 {
		return
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := len(q.tracks) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		q.tracks[i], q.tracks[j] = q.tracks[j], q.tracks[i]
	}
}

// Tracks returns a snapshot copy of the pending tracks in play order.
func (q *Queue) Tracks() []*Track {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]*Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}

// Len returns the number of pending tracks.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.tracks)
}

// Peek returns the front track without removing it, or nil if empty.
func (q *Queue) Peek() *Track {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if len(q.tracks) == 0 {
		return nil
	}
	return q.tracks[0]
}
