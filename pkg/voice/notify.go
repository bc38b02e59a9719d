package voice

// Notifier is the per-session notify target for user-facing playback
// events. The registry swaps it out whenever a session is reused from a
// different text channel, so events always land where the listeners last
// interacted with the bot.
//
// NowPlaying, TrackFinished and TrackError are wired through the track
// Handlers built by the command layer. Inactivity and ConnectionLost are
// fired by the session itself, and each fatal teardown produces exactly one
// of them.
type Notifier interface {
	NowPlaying(t *Track)
	TrackFinished(t *Track)
	TrackError(t *Track, err error)
	Inactivity()
	ConnectionLost(cause string)
}
