// Package pipeline streams a single audio attempt to a Discord voice
// connection: FFmpeg decodes the source to raw PCM, gopus encodes 20ms
// Opus frames, and the frames are delivered over the guild's voice link
// with pause, stall detection and bounded in-attempt restarts.
//
// # Core Components
//
//   - Engine: one playback attempt from source URL to Opus frames,
//     implementing the voice package's engine contract
//   - Structured Logging: leveled text/JSON logging with typed fields
//   - Metrics Collection: counters, gauges and timing histograms
//   - Configuration: FFmpeg, Opus and stream tuning with environment
//     variable overrides and validation
//
// # Lifecycle
//
// An Engine is built per attempt by a Factory and reports to its sink
// exactly twice at most: EngineStarted when the first frame reaches the
// voice link, EngineFinished when the attempt is over. In between, the
// watchdog recycles a decoder that stops producing frames, up to
// FFmpeg.MaxRestarts times, without the sink ever noticing.
//
// # Usage Example
//
//	cfg := pipeline.DefaultConfig()
//	cfg.LoadFromEnvironment()
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
//	logger := pipeline.NewStructuredLogger(cfg.Logging)
//	factory := pipeline.Factory(cfg, logger, pipeline.NewBasicMetricsCollector(), links)
//
//	// The registry mints one engine per attempt:
//	engine := factory(guildID, sink)
//	if err := engine.Start(res); err != nil {
//		log.Fatal(err)
//	}
//
// # Pausing
//
// Pause stops the consumption loop; FFmpeg blocks on its stdout pipe, so
// no frames are decoded or lost while paused. Resume picks up where the
// stream left off.
//
// # Thread Safety
//
// All Engine methods may be called concurrently. Sink callbacks are
// invoked from the engine's own goroutines, never while an internal lock
// is held.
package pipeline
