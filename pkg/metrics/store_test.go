package metrics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "metrics.db")

	store, err := NewStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func setupTestRecorder(t *testing.T, cfg Config) (*Store, *Recorder) {
	t.Helper()
	store := setupTestStore(t)
	recorder := NewRecorder(store, cfg)
	require.NoError(t, recorder.Start())
	t.Cleanup(func() { recorder.Stop() })
	return store, recorder
}

func TestStoreSchemaAndSessionRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	recorder := NewRecorder(store, Config{})
	ctx := context.Background()

	sessionID, err := recorder.SessionStarted(ctx, "guild-1", "channel-1")
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	sessions, err := store.RecentSessions(ctx, "guild-1", 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, sessionID, sessions[0].ID)
	assert.Equal(t, "channel-1", sessions[0].ChannelID)
	assert.Nil(t, sessions[0].EndedAt)

	require.NoError(t, recorder.SessionEnded(ctx, sessionID, "stopped"))

	sessions, err = store.RecentSessions(ctx, "guild-1", 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.NotNil(t, sessions[0].EndedAt)
	assert.Equal(t, "stopped", sessions[0].EndReason)
}

func TestSessionCountersLandInSessionRow(t *testing.T) {
	store, recorder := setupTestRecorder(t, Config{FlushInterval: time.Hour})
	ctx := context.Background()

	sessionID, err := recorder.SessionStarted(ctx, "guild-1", "channel-1")
	require.NoError(t, err)

	recorder.TrackFinished(sessionID, "guild-1", "Track A")
	recorder.TrackFinished(sessionID, "guild-1", "Track B")
	recorder.TrackErrored(sessionID, "guild-1", "Track C", "stream died")

	require.NoError(t, recorder.SessionEnded(ctx, sessionID, "stopped"))

	sessions, err := store.RecentSessions(ctx, "guild-1", 1)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 2, sessions[0].TracksPlayed)
	assert.Equal(t, 1, sessions[0].TracksFailed)
}

func TestEventsFlushOnBatchSize(t *testing.T) {
	store, recorder := setupTestRecorder(t, Config{BatchSize: 3, FlushInterval: time.Hour})
	ctx := context.Background()

	sessionID, err := recorder.SessionStarted(ctx, "guild-1", "channel-1")
	require.NoError(t, err)

	recorder.TrackStarted(sessionID, "guild-1", "One")
	recorder.TrackStarted(sessionID, "guild-1", "Two")
	recorder.TrackStarted(sessionID, "guild-1", "Three")

	// The third event fills the batch; the flusher writes without
	// waiting for the ticker.
	require.Eventually(t, func() bool {
		return recorder.WrittenCount() >= 3
	}, 2*time.Second, 10*time.Millisecond)

	var count int
	err = store.DB().QueryRow(
		`SELECT COUNT(*) FROM playback_events WHERE session_id = ?`, sessionID,
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestStopFlushesOutstandingEvents(t *testing.T) {
	store := setupTestStore(t)
	recorder := NewRecorder(store, Config{BatchSize: 100, FlushInterval: time.Hour})
	require.NoError(t, recorder.Start())
	ctx := context.Background()

	sessionID, err := recorder.SessionStarted(ctx, "guild-1", "channel-1")
	require.NoError(t, err)

	recorder.TrackStarted(sessionID, "guild-1", "Pending")
	require.NoError(t, recorder.Stop())

	var count int
	err = store.DB().QueryRow(
		`SELECT COUNT(*) FROM playback_events WHERE session_id = ?`, sessionID,
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGuildStats(t *testing.T) {
	store, recorder := setupTestRecorder(t, Config{BatchSize: 2, FlushInterval: time.Hour})
	ctx := context.Background()

	sessionID, err := recorder.SessionStarted(ctx, "guild-1", "channel-1")
	require.NoError(t, err)

	recorder.TrackStarted(sessionID, "guild-1", "Umapyoi Densetsu")
	recorder.TrackFinished(sessionID, "guild-1", "Umapyoi Densetsu")
	recorder.TrackStarted(sessionID, "guild-1", "Umapyoi Densetsu")
	recorder.TrackFinished(sessionID, "guild-1", "Umapyoi Densetsu")
	recorder.TrackStarted(sessionID, "guild-1", "Make Debut")
	recorder.TrackErrored(sessionID, "guild-1", "Make Debut", "stream died")
	recorder.Reconnect(sessionID, "guild-1", "close code 4014")

	require.NoError(t, recorder.SessionEnded(ctx, sessionID, "stopped"))

	stats, err := store.Stats(ctx, "guild-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sessions)
	assert.Equal(t, 2, stats.TracksPlayed)
	assert.Equal(t, 1, stats.TracksFailed)
	assert.Equal(t, 1, stats.Reconnects)
	require.NotEmpty(t, stats.TopTracks)
	assert.Equal(t, "Umapyoi Densetsu", stats.TopTracks[0].Title)
	assert.Equal(t, 2, stats.TopTracks[0].Plays)

	// Other guilds see nothing.
	other, err := store.Stats(ctx, "guild-2")
	require.NoError(t, err)
	assert.Equal(t, 0, other.Sessions)
	assert.Empty(t, other.TopTracks)
}

func TestRetentionSweep(t *testing.T) {
	store := setupTestStore(t)
	recorder := NewRecorder(store, DefaultConfig(""))
	ctx := context.Background()

	// One fresh session and one well past retention.
	freshID, err := recorder.SessionStarted(ctx, "guild-1", "channel-1")
	require.NoError(t, err)

	old := time.Now().UTC().Add(-60 * 24 * time.Hour)
	_, err = store.DB().Exec(
		`INSERT INTO playback_sessions (id, guild_id, channel_id, started_at, ended_at) VALUES (?, ?, ?, ?, ?)`,
		"ancient", "guild-1", "channel-1", old, old.Add(time.Hour),
	)
	require.NoError(t, err)
	_, err = store.DB().Exec(
		`INSERT INTO playback_events (session_id, guild_id, event_type, track_title, detail, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		"ancient", "guild-1", EventTrackFinished, "Old Song", "", old,
	)
	require.NoError(t, err)

	require.NoError(t, recorder.sweep())

	sessions, err := store.RecentSessions(ctx, "guild-1", 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, freshID, sessions[0].ID)

	var events int
	err = store.DB().QueryRow(`SELECT COUNT(*) FROM playback_events`).Scan(&events)
	require.NoError(t, err)
	assert.Equal(t, 0, events)
}

func TestRecordWithoutSessionIsDropped(t *testing.T) {
	store, recorder := setupTestRecorder(t, Config{BatchSize: 1, FlushInterval: time.Hour})

	recorder.TrackStarted("", "guild-1", "Orphan")
	time.Sleep(50 * time.Millisecond)

	var count int
	err := store.DB().QueryRow(`SELECT COUNT(*) FROM playback_events`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
