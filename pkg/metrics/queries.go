package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GuildStats summarizes playback history for one guild.
type GuildStats struct {
	Sessions     int
	TracksPlayed int
	TracksFailed int
	Reconnects   int
	TotalTime    time.Duration
	TopTracks    []TrackPlays
}

// TrackPlays is one entry of the most-played list.
type TrackPlays struct {
	Title string
	Plays int
}

// SessionSummary is one row of the recent-session listing.
type SessionSummary struct {
	ID           string
	ChannelID    string
	StartedAt    time.Time
	EndedAt      *time.Time
	EndReason    string
	TracksPlayed int
	TracksFailed int
}

// Stats computes a guild's playback statistics from sessions and events.
func (s *Store) Stats(ctx context.Context, guildID string) (*GuildStats, error) {
	stats := &GuildStats{}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM playback_sessions WHERE guild_id = ?`, guildID,
	).Scan(&stats.Sessions)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	counts := map[string]*int{
		EventTrackFinished: &stats.TracksPlayed,
		EventTrackErrored:  &stats.TracksFailed,
		EventReconnect:     &stats.Reconnects,
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_type, COUNT(*) FROM playback_events WHERE guild_id = ? GROUP BY event_type`,
		guildID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		if target, ok := counts[eventType]; ok {
			*target = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event counts: %w", err)
	}

	var seconds sql.NullFloat64
	err = s.db.QueryRowContext(ctx,
		`SELECT SUM(strftime('%s', ended_at) - strftime('%s', started_at))
		 FROM playback_sessions WHERE guild_id = ? AND ended_at IS NOT NULL`,
		guildID,
	).Scan(&seconds)
	if err != nil {
		return nil, fmt.Errorf("failed to sum session time: %w", err)
	}
	if seconds.Valid {
		stats.TotalTime = time.Duration(seconds.Float64) * time.Second
	}

	topTracks, err := s.topTracks(ctx, guildID, 5)
	if err != nil {
		return nil, err
	}
	stats.TopTracks = topTracks
	return stats, nil
}

func (s *Store) topTracks(ctx context.Context, guildID string, limit int) ([]TrackPlays, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT track_title, COUNT(*) AS plays
		 FROM playback_events
		 WHERE guild_id = ? AND event_type = ? AND track_title != ''
		 GROUP BY track_title
		 ORDER BY plays DESC, track_title ASC
		 LIMIT ?`,
		guildID, EventTrackStarted, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query top tracks: %w", err)
	}
	defer rows.Close()

	var top []TrackPlays
	for rows.Next() {
		var entry TrackPlays
		if err := rows.Scan(&entry.Title, &entry.Plays); err != nil {
			return nil, fmt.Errorf("failed to scan top track: %w", err)
		}
		top = append(top, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top tracks: %w", err)
	}
	return top, nil
}

// RecentSessions lists a guild's latest sessions, newest first.
func (s *Store) RecentSessions(ctx context.Context, guildID string, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, channel_id, started_at, ended_at, COALESCE(end_reason, ''), tracks_played, tracks_failed
		 FROM playback_sessions
		 WHERE guild_id = ?
		 ORDER BY started_at DESC
		 LIMIT ?`,
		guildID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionSummary
	for rows.Next() {
		var summary SessionSummary
		var ended sql.NullTime
		err := rows.Scan(
			&summary.ID,
			&summary.ChannelID,
			&summary.StartedAt,
			&ended,
			&summary.EndReason,
			&summary.TracksPlayed,
			&summary.TracksFailed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if ended.Valid {
			t := ended.Time
			summary.EndedAt = &t
		}
		sessions = append(sessions, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}
