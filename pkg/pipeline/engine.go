package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"layeh.com/gopus"

	"github.com/latoulicious/Seiun/pkg/voice"
)

// OpusLink is the slice of a Discord voice connection the engine needs:
// readiness, the speaking flag and the Opus frame channel.
type OpusLink interface {
	Ready() bool
	Speaking(bool) error
	Send() chan<- []byte
}

// LinkProvider returns the current transport link for an engine's guild.
// It is a function because a rejoin replaces the underlying connection
// mid-stream.
type LinkProvider func() OpusLink

// Engine streams one playback attempt: FFmpeg decodes the input to raw
// PCM, gopus encodes 20ms frames, and the frames go out over the guild's
// voice link. A stalled or broken stream is restarted up to
// FFmpeg.MaxRestarts times within the same attempt; the attempt itself is
// reported to the sink exactly once, when it is over.
type Engine struct {
	cfg     *Config
	log     Logger
	metrics MetricsCollector
	link    LinkProvider
	sink    voice.EngineSink

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	cond      *sync.Cond
	res       *voice.Resource
	cmd       *exec.Cmd
	paused    bool
	started   bool
	stalled   bool
	restarts  int
	frames    int64
	lastFrame time.Time
}

// New creates an engine for a single playback attempt.
func New(cfg *Config, logger Logger, metrics MetricsCollector, link LinkProvider, sink voice.EngineSink) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = DefaultLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:     cfg,
		log:     logger,
		metrics: metrics,
		link:    link,
		sink:    sink,
		ctx:     ctx,
		cancel:  cancel,
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// Factory builds a voice.EngineFactory over a per-guild link lookup, so a
// registry can mint one engine per attempt.
func Factory(cfg *Config, logger Logger, metrics MetricsCollector, links func(guildID string) LinkProvider) voice.EngineFactory {
	return func(guildID string, sink voice.EngineSink) voice.Engine {
		return New(cfg, logger.With(String("guild_id", guildID)), metrics, links(guildID), sink)
	}
}

// Start implements voice.Engine. It verifies FFmpeg is reachable and the
// encoder can be built, then streams on background goroutines.
func (e *Engine) Start(res *voice.Resource) error {
	e.mu.Lock()
	if e.res != nil {
		e.mu.Unlock()
		return fmt.Errorf("engine already streaming attempt %s", e.res.ID)
	}
	e.res = res
	e.mu.Unlock()

	if _, err := exec.LookPath(e.cfg.FFmpeg.BinaryPath); err != nil {
		return fmt.Errorf("ffmpeg not available: %w", err)
	}
	encoder, err := gopus.NewEncoder(e.cfg.Opus.SampleRate, e.cfg.Opus.Channels, gopus.Audio)
	if err != nil {
		return fmt.Errorf("creating opus encoder: %w", err)
	}
	encoder.SetBitrate(e.cfg.Opus.Bitrate)

	e.log.Info("Starting stream",
		String("track", res.Track.Title),
		String("attempt_id", res.ID),
	)
	go e.run(res, encoder)
	go e.watchdog()
	return nil
}

// Pause implements voice.Engine. The consumption loop stops reading, which
// backpressures FFmpeg through the pipe.
func (e *Engine) Pause() bool {
	e.mu.Lock()
	if e.res == nil || e.ctx.Err() != nil {
		e.mu.Unlock()
		return false
	}
	e.paused = true
	e.mu.Unlock()

	if link := e.link(); link != nil {
		link.Speaking(false)
	}
	return true
}

// Resume implements voice.Engine.
func (e *Engine) Resume() bool {
	e.mu.Lock()
	if e.res == nil || e.ctx.Err() != nil {
		e.mu.Unlock()
		return false
	}
	e.paused = false
	e.mu.Unlock()
	e.cond.Broadcast()

	if link := e.link(); link != nil {
		link.Speaking(true)
	}
	return true
}

// Stop implements voice.Engine. The finish report arrives through the sink
// once the streaming goroutine has wound down.
func (e *Engine) Stop(force bool) {
	e.mu.Lock()
	cmd := e.cmd
	e.mu.Unlock()

	e.cancel()
	e.cond.Broadcast()
	if force && cmd != nil && cmd.Process != nil {
		cmd.Process.Kill()
	}
}

// Frames returns how many Opus frames have been delivered.
func (e *Engine) Frames() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

// Restarts returns how many in-attempt decoder restarts have happened.
func (e *Engine) Restarts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.restarts
}

// run drives the attempt to completion, restarting the decoder on
// recoverable failures, and reports the final outcome exactly once.
func (e *Engine) run(res *voice.Resource, encoder *gopus.Encoder) {
	var finalErr error
	for {
		err := e.streamOnce(res, encoder)
		if e.ctx.Err() != nil {
			// Deliberate stop; whatever the stream loop returned is
			// fallout from the teardown, not a failure.
			break
		}
		if err == nil {
			break
		}

		e.mu.Lock()
		e.restarts++
		restarts := e.restarts
		e.mu.Unlock()
		if restarts > e.cfg.FFmpeg.MaxRestarts {
			finalErr = fmt.Errorf("streaming %q: %w", res.Track.Title, err)
			break
		}
		e.recordCounter("pipeline_restarts", 1)
		e.log.Warn("Stream faltered, restarting decoder",
			Error(err),
			Int("attempt", restarts),
			Int("max", e.cfg.FFmpeg.MaxRestarts),
		)
		select {
		case <-time.After(e.cfg.FFmpeg.RestartDelay):
		case <-e.ctx.Done():
		}
	}

	e.cancel()
	if link := e.link(); link != nil {
		link.Speaking(false)
	}
	e.log.Info("Stream over",
		String("track", res.Track.Title),
		Int64("frames", e.Frames()),
		Bool("errored", finalErr != nil),
	)
	e.sink.EngineFinished(res, finalErr)
}

// streamOnce runs one FFmpeg process to exhaustion.
func (e *Engine) streamOnce(res *voice.Resource, encoder *gopus.Encoder) error {
	args := BuildFFmpegArgs(e.cfg, res.Input)
	cmd := exec.CommandContext(e.ctx, e.cfg.FFmpeg.BinaryPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}
	e.mu.Lock()
	e.cmd = cmd
	e.mu.Unlock()
	go e.drainStderr(stderr)
	defer func() {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		cmd.Wait()
	}()

	if err := e.awaitLinkReady(); err != nil {
		return err
	}
	if link := e.link(); link != nil {
		link.Speaking(true)
	}

	return e.pump(stdout, encoder)
}

// pump moves PCM frames from FFmpeg to the voice link until the stream
// drains, fails, or the attempt is stopped.
func (e *Engine) pump(reader io.Reader, encoder *gopus.Encoder) error {
	frameCh := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(frameCh)
		for {
			buf := make([]byte, e.cfg.Opus.FrameBytes())
			if _, err := io.ReadFull(reader, buf); err != nil {
				// EOF and a trailing partial frame both mean the
				// decoder is done.
				if err != io.EOF && err != io.ErrUnexpectedEOF {
					readErr <- err
				}
				return
			}
			select {
			case frameCh <- buf:
			case <-e.ctx.Done():
				return
			}
		}
	}()

	for {
		if !e.pauseGate() {
			return nil
		}
		select {
		case <-e.ctx.Done():
			return nil
		case err := <-readErr:
			return fmt.Errorf("reading PCM: %w", err)
		case buf, ok := <-frameCh:
			if !ok {
				return e.drainedResult()
			}
			e.sendFrame(buf, encoder)
		case <-time.After(e.cfg.Stream.ReadTimeout):
			return fmt.Errorf("timed out reading PCM after %s", e.cfg.Stream.ReadTimeout)
		}
	}
}

// drainedResult distinguishes a natural end of stream from a watchdog
// kill, which must count as a failure so the restart policy runs.
func (e *Engine) drainedResult() error {
	e.mu.Lock()
	stalled := e.stalled
	e.stalled = false
	e.mu.Unlock()
	if stalled {
		return fmt.Errorf("stream stalled: no frames for %s", e.cfg.Stream.StallAfter)
	}
	e.log.Debug("PCM stream drained")
	return nil
}

// sendFrame encodes one PCM frame and ships it. Encode failures and
// blocked sends drop the frame; playback continues.
func (e *Engine) sendFrame(buf []byte, encoder *gopus.Encoder) {
	samples := pcmToInt16(buf)
	if want := e.cfg.Opus.SamplesPerFrame(); len(samples) != want {
		padded := make([]int16, want)
		copy(padded, samples)
		samples = padded
	}

	opusData, err := encoder.Encode(samples, e.cfg.Opus.FrameSize, e.cfg.Opus.FrameBytes())
	if err != nil {
		e.log.Warn("Opus encode failed, dropping frame", Error(err))
		return
	}

	link := e.link()
	if link == nil {
		return
	}
	select {
	case link.Send() <- opusData:
		e.mu.Lock()
		e.frames++
		e.lastFrame = time.Now()
		first := !e.started
		e.started = true
		res := e.res
		e.mu.Unlock()

		e.recordCounter("pipeline_frames_sent", 1)
		if first {
			e.log.Info("Audio flowing", String("track", res.Track.Title))
			e.sink.EngineStarted(res)
		}
	case <-time.After(e.cfg.Stream.SendTimeout):
		e.log.Warn("Voice send blocked, dropping frame")
		e.recordCounter("pipeline_frames_dropped", 1)
	case <-e.ctx.Done():
	}
}

// pauseGate blocks while the engine is paused. Reports false once the
// attempt has been stopped.
func (e *Engine) pauseGate() bool {
	e.mu.Lock()
	for e.paused && e.ctx.Err() == nil {
		e.cond.Wait()
	}
	e.mu.Unlock()
	return e.ctx.Err() == nil
}

// watchdog kills a decoder that has stopped delivering frames so the
// restart policy can recycle it. Paused streams are exempt.
func (e *Engine) watchdog() {
	ticker := time.NewTicker(e.cfg.Stream.HealthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
		}

		e.mu.Lock()
		paused := e.paused
		started := e.started
		last := e.lastFrame
		cmd := e.cmd
		e.mu.Unlock()
		if paused || !started {
			continue
		}
		if since := time.Since(last); since > e.cfg.Stream.StallAfter {
			e.log.Warn("No frames delivered recently, recycling decoder",
				Duration("since_last_frame", since),
			)
			e.mu.Lock()
			e.stalled = true
			e.mu.Unlock()
			if cmd != nil && cmd.Process != nil {
				cmd.Process.Kill()
			}
		}
	}
}

// awaitLinkReady polls until the voice link reports ready.
func (e *Engine) awaitLinkReady() error {
	deadline := time.After(e.cfg.Stream.StallAfter)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if link := e.link(); link != nil && link.Ready() {
			return nil
		}
		select {
		case <-e.ctx.Done():
			return e.ctx.Err()
		case <-deadline:
			return fmt.Errorf("voice link not ready after %s", e.cfg.Stream.StallAfter)
		case <-ticker.C:
		}
	}
}

func (e *Engine) drainStderr(stderr io.ReadCloser) {
	defer stderr.Close()
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		e.log.Debug("ffmpeg", String("line", scanner.Text()))
	}
}

func (e *Engine) recordCounter(name string, value int64) {
	if e.metrics != nil {
		e.metrics.RecordCounter(name, value, nil)
	}
}

// BuildFFmpegArgs assembles the decode command line: the configured input
// flags, then the source, then a raw signed 16-bit little-endian PCM
// output on stdout at the Opus sample layout.
func BuildFFmpegArgs(cfg *Config, input string) []string {
	args := append([]string{}, cfg.FFmpeg.InputArgs...)
	args = append(args,
		"-i", input,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(cfg.Opus.SampleRate),
		"-ac", strconv.Itoa(cfg.Opus.Channels),
		"-bufsize", cfg.FFmpeg.BufferSize,
		"-",
	)
	return args
}

// pcmToInt16 reinterprets little-endian PCM bytes as int16 samples.
func pcmToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[2*i]) | int16(data[2*i+1])<<8
	}
	return samples
}

var _ voice.Engine = (*Engine)(nil)
