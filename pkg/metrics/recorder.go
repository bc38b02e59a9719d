package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types recorded per session.
const (
	EventTrackStarted  = "track_started"
	EventTrackFinished = "track_finished"
	EventTrackErrored  = "track_errored"
	EventReconnect     = "reconnect"
	EventInactivity    = "inactivity"
)

// Event is one playback occurrence inside a session.
type Event struct {
	SessionID string
	GuildID   string
	Type      string
	Track     string
	Detail    string
	Timestamp time.Time
}

// sessionCounters tracks per-session totals until the session ends.
type sessionCounters struct {
	played int
	failed int
}

// Recorder writes playback sessions and events to the store. Events are
// buffered and flushed in batches; session rows are written directly
// because they are rare. Recording never blocks playback: a full buffer
// drops the event with a log line.
type Recorder struct {
	store *Store
	cfg   Config

	events   chan Event
	flushReq chan chan struct{}
	stopChan chan struct{}
	doneChan chan struct{}

	mu       sync.Mutex
	counters map[string]*sessionCounters
	running  bool

	stats struct {
		sync.Mutex
		written int64
		dropped int64
	}
}

// NewRecorder creates a recorder over the store. Call Start to launch
// the flush and retention workers.
func NewRecorder(store *Store, cfg Config) *Recorder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 6 * time.Hour
	}
	return &Recorder{
		store:    store,
		cfg:      cfg,
		events:   make(chan Event, cfg.BatchSize*2),
		flushReq: make(chan chan struct{}),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
		counters: make(map[string]*sessionCounters),
	}
}

// Start launches the background flusher and retention sweeper.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("recorder is already running")
	}
	r.running = true
	go r.runFlusher()
	go r.runRetention()
	log.Printf("[Metrics] Recorder started (batch %d, flush %v, retention %v)",
		r.cfg.BatchSize, r.cfg.FlushInterval, r.cfg.Retention)
	return nil
}

// Stop flushes outstanding events and stops the workers.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopChan)
	select {
	case <-r.doneChan:
	case <-time.After(5 * time.Second):
		log.Printf("[Metrics] Recorder stop timed out")
	}
	return nil
}

// Flush forces any buffered events to disk.
func (r *Recorder) Flush() {
	r.flushBuffered()
}

// SessionStarted opens a session row and returns its ID.
func (r *Recorder) SessionStarted(ctx context.Context, guildID, channelID string) (string, error) {
	sessionID := uuid.NewString()

	_, err := r.store.db.ExecContext(ctx,
		`INSERT INTO playback_sessions (id, guild_id, channel_id, started_at) VALUES (?, ?, ?, ?)`,
		sessionID, guildID, channelID, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert session: %w", err)
	}

	r.mu.Lock()
	r.counters[sessionID] = &sessionCounters{}
	r.mu.Unlock()
	return sessionID, nil
}

// SessionEnded closes a session row with its final counters.
func (r *Recorder) SessionEnded(ctx context.Context, sessionID, reason string) error {
	if sessionID == "" {
		return nil
	}
	r.flushBuffered()

	r.mu.Lock()
	counters := r.counters[sessionID]
	delete(r.counters, sessionID)
	r.mu.Unlock()
	if counters == nil {
		counters = &sessionCounters{}
	}

	_, err := r.store.db.ExecContext(ctx,
		`UPDATE playback_sessions SET ended_at = ?, end_reason = ?, tracks_played = ?, tracks_failed = ? WHERE id = ?`,
		time.Now().UTC(), reason, counters.played, counters.failed, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

// TrackStarted records a play beginning.
func (r *Recorder) TrackStarted(sessionID, guildID, title string) {
	r.record(Event{SessionID: sessionID, GuildID: guildID, Type: EventTrackStarted, Track: title})
}

// TrackFinished records a play completing.
func (r *Recorder) TrackFinished(sessionID, guildID, title string) {
	r.bump(sessionID, func(c *sessionCounters) { c.played++ })
	r.record(Event{SessionID: sessionID, GuildID: guildID, Type: EventTrackFinished, Track: title})
}

// TrackErrored records a play failing.
func (r *Recorder) TrackErrored(sessionID, guildID, title, detail string) {
	r.bump(sessionID, func(c *sessionCounters) { c.failed++ })
	r.record(Event{SessionID: sessionID, GuildID: guildID, Type: EventTrackErrored, Track: title, Detail: detail})
}

// Reconnect records a voice reconnection attempt.
func (r *Recorder) Reconnect(sessionID, guildID, detail string) {
	r.record(Event{SessionID: sessionID, GuildID: guildID, Type: EventReconnect, Detail: detail})
}

// Inactivity records an idle-timeout teardown.
func (r *Recorder) Inactivity(sessionID, guildID string) {
	r.record(Event{SessionID: sessionID, GuildID: guildID, Type: EventInactivity})
}

// WrittenCount returns how many events have been persisted.
func (r *Recorder) WrittenCount() int64 {
	r.stats.Lock()
	defer r.stats.Unlock()
	return r.stats.written
}

// DroppedCount returns how many events were discarded on a full buffer.
func (r *Recorder) DroppedCount() int64 {
	r.stats.Lock()
	defer r.stats.Unlock()
	return r.stats.dropped
}

func (r *Recorder) bump(sessionID string, apply func(*sessionCounters)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[sessionID]; ok {
		apply(c)
	}
}

func (r *Recorder) record(ev Event) {
	if ev.SessionID == "" {
		return
	}
	ev.Timestamp = time.Now().UTC()
	select {
	case r.events <- ev:
	default:
		r.stats.Lock()
		r.stats.dropped++
		r.stats.Unlock()
		log.Printf("[Metrics] Event buffer full, dropping %s for guild %s", ev.Type, ev.GuildID)
	}
}

// runFlusher drains the event channel into batches on a ticker or when a
// batch fills.
func (r *Recorder) runFlusher() {
	defer close(r.doneChan)

	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, r.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.writeBatch(batch); err != nil {
			log.Printf("[Metrics] Failed to write %d events: %v", len(batch), err)
		}
		batch = batch[:0]
	}

	drain := func() {
		for {
			select {
			case ev := <-r.events:
				batch = append(batch, ev)
			default:
				return
			}
		}
	}

	for {
		select {
		case ev := <-r.events:
			batch = append(batch, ev)
			if len(batch) >= r.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case ack := <-r.flushReq:
			drain()
			flush()
			close(ack)
		case <-r.stopChan:
			drain()
			flush()
			return
		}
	}
}

// flushBuffered synchronously writes everything queued so far. Goes
// through the flusher goroutine when it is running so its in-progress
// batch is included.
func (r *Recorder) flushBuffered() {
	r.mu.Lock()
	running := r.running
	r.mu.Unlock()

	if !running {
		var batch []Event
		for {
			select {
			case ev := <-r.events:
				batch = append(batch, ev)
			default:
				if len(batch) > 0 {
					if err := r.writeBatch(batch); err != nil {
						log.Printf("[Metrics] Failed to flush %d events: %v", len(batch), err)
					}
				}
				return
			}
		}
	}

	ack := make(chan struct{})
	select {
	case r.flushReq <- ack:
		<-ack
	case <-time.After(5 * time.Second):
		log.Printf("[Metrics] Flush request timed out")
	}
}

func (r *Recorder) writeBatch(batch []Event) error {
	tx, err := r.store.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO playback_events (session_id, guild_id, event_type, track_title, detail, timestamp) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range batch {
		if _, err := stmt.Exec(ev.SessionID, ev.GuildID, ev.Type, ev.Track, ev.Detail, ev.Timestamp); err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}

	r.stats.Lock()
	r.stats.written += int64(len(batch))
	r.stats.Unlock()
	return nil
}

// runRetention deletes rows older than the retention window.
func (r *Recorder) runRetention() {
	if r.cfg.Retention <= 0 {
		return
	}
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			if err := r.sweep(); err != nil {
				log.Printf("[Metrics] Retention sweep failed: %v", err)
			}
		}
	}
}

func (r *Recorder) sweep() error {
	cutoff := time.Now().UTC().Add(-r.cfg.Retention)

	res, err := r.store.db.Exec(`DELETE FROM playback_events WHERE timestamp < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete expired events: %w", err)
	}
	events := rowsAffected(res)

	res, err = r.store.db.Exec(
		`DELETE FROM playback_sessions WHERE started_at < ? AND ended_at IS NOT NULL`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	sessions := rowsAffected(res)

	if events > 0 || sessions > 0 {
		log.Printf("[Metrics] Retention sweep removed %d events, %d sessions", events, sessions)
	}
	return nil
}

func rowsAffected(res sql.Result) int64 {
	if res == nil {
		return 0
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
