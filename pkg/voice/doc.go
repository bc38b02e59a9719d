// Package voice coordinates per-guild audio playback sessions. It owns the
// machinery between a command ("play this") and an audio engine actually
// streaming: connection supervision, the playback state machine, the track
// queue and the session registry.
//
// # Core Components
//
// The package is built from five pieces, composed per guild:
//
//   - Track: queue entry with lazy resource production and lifecycle
//     callbacks (start, finish, error)
//   - Queue: ordered, thread-safe pending list with front-insert, bulk
//     load, shuffle and swap
//   - Conn: the voice connection state machine, with rejoin backoff,
//     ambiguous-close grace and a ready deadline
//   - Player: the playback state machine, one Engine per attempt
//   - Subscription: a guild session tying the above together with the
//     advance-on-idle policy and the inactivity timeout
//   - Registry: the process-wide guild-to-session table
//
// # Session Lifecycle
//
// Sessions are created through Registry.GetOrCreate, which joins the voice
// channel and registers the session under its guild. The session then runs
// until one of three teardown paths fires: an explicit Stop, an
// unrecoverable connection failure, or the idle timeout. All three paths
// converge on Subscription.Stop, which is idempotent.
//
// # Usage Example
//
//	registry := voice.NewRegistry(voice.RegistryConfig{
//		Connector: connector,
//		Engine:    engineFactory,
//	})
//
//	sub, err := registry.GetOrCreate(guildID, channelID, notifier)
//	if err != nil {
//		return err
//	}
//	if !sub.AwaitReady(15 * time.Second) {
//		sub.Stop()
//		return errors.New("voice connection did not become ready")
//	}
//	sub.Enqueue(voice.NewTrack(info, produce, handlers))
//
// # Transports and Engines
//
// The package never talks to Discord directly. A Connector supplies
// transport links and feeds their state changes back through the
// TransitionSink; an EngineFactory supplies one streaming engine per
// playback attempt. Both have mock implementations here for tests and real
// implementations in pkg/common and pkg/pipeline.
package voice
