package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"layeh.com/gopus"

	"github.com/latoulicious/Seiun/pkg/voice"
)

type recordingSink struct {
	mu       sync.Mutex
	started  []*voice.Resource
	finished []*voice.Resource
	errs     []error
}

func (s *recordingSink) EngineStarted(res *voice.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, res)
}

func (s *recordingSink) EngineFinished(res *voice.Resource, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = append(s.finished, res)
	s.errs = append(s.errs, err)
}

func (s *recordingSink) startCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.started)
}

type fakeLink struct {
	ready bool
	ch    chan []byte

	mu       sync.Mutex
	speaking []bool
}

func (l *fakeLink) Ready() bool { return l.ready }

func (l *fakeLink) Speaking(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.speaking = append(l.speaking, on)
	return nil
}

func (l *fakeLink) Send() chan<- []byte { return l.ch }

func testResource(t *testing.T, input string) *voice.Resource {
	t.Helper()
	track := voice.NewTrack(
		voice.TrackInfo{Title: "Test Track"},
		func(context.Context) (string, error) { return input, nil },
		voice.Handlers{},
	)
	res, err := track.Produce(context.Background())
	require.NoError(t, err)
	return res
}

func testEngine(link *fakeLink, sink voice.EngineSink) *Engine {
	cfg := DefaultConfig()
	return New(cfg, DiscardLogger(), nil, func() OpusLink { return link }, sink)
}

func TestBuildFFmpegArgs(t *testing.T) {
	cfg := DefaultConfig()
	args := BuildFFmpegArgs(cfg, "https://example.com/stream.m4a")

	// Input flags come first, then the source, then the PCM output spec.
	assert.Equal(t, "-reconnect", args[0])
	idx := -1
	for i, a := range args {
		if a == "-i" {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "https://example.com/stream.m4a", args[idx+1])

	assert.Contains(t, args, "s16le")
	assert.Contains(t, args, "48000")
	assert.Contains(t, args, "pcm_s16le")
	assert.Equal(t, "-", args[len(args)-1])
}

func TestBuildFFmpegArgsDoesNotMutateConfig(t *testing.T) {
	cfg := DefaultConfig()
	before := len(cfg.FFmpeg.InputArgs)

	BuildFFmpegArgs(cfg, "one.mp3")
	BuildFFmpegArgs(cfg, "two.mp3")

	assert.Len(t, cfg.FFmpeg.InputArgs, before)
}

func TestPcmToInt16(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected []int16
	}{
		{"zero", []byte{0x00, 0x00}, []int16{0}},
		{"one", []byte{0x01, 0x00}, []int16{1}},
		{"minus one", []byte{0xFF, 0xFF}, []int16{-1}},
		{"min", []byte{0x00, 0x80}, []int16{-32768}},
		{"max", []byte{0xFF, 0x7F}, []int16{32767}},
		{"pair", []byte{0x34, 0x12, 0x78, 0x56}, []int16{0x1234, 0x5678}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, pcmToInt16(tt.data))
		})
	}
}

func TestStartRejectsMissingBinary(t *testing.T) {
	link := &fakeLink{ready: true, ch: make(chan []byte, 4)}
	sink := &recordingSink{}
	cfg := DefaultConfig()
	cfg.FFmpeg.BinaryPath = "definitely-not-a-real-binary-2f9c"
	engine := New(cfg, DiscardLogger(), nil, func() OpusLink { return link }, sink)

	err := engine.Start(testResource(t, "whatever.mp3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg not available")
}

func TestStartRefusesSecondAttempt(t *testing.T) {
	link := &fakeLink{ready: true, ch: make(chan []byte, 4)}
	cfg := DefaultConfig()
	cfg.FFmpeg.BinaryPath = "definitely-not-a-real-binary-2f9c"
	engine := New(cfg, DiscardLogger(), nil, func() OpusLink { return link }, &recordingSink{})

	res := testResource(t, "whatever.mp3")
	require.Error(t, engine.Start(res))

	err := engine.Start(testResource(t, "another.mp3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already streaming")
}

func TestPauseResumeRequireActiveAttempt(t *testing.T) {
	link := &fakeLink{ready: true, ch: make(chan []byte, 4)}
	engine := testEngine(link, &recordingSink{})

	assert.False(t, engine.Pause())
	assert.False(t, engine.Resume())
}

func TestStopBeforeStartIsSafe(t *testing.T) {
	engine := testEngine(&fakeLink{ready: true, ch: make(chan []byte)}, &recordingSink{})

	engine.Stop(true)
	engine.Stop(false)

	assert.False(t, engine.Pause())
}

func TestSendFrameDeliversAndFiresStartedOnce(t *testing.T) {
	link := &fakeLink{ready: true, ch: make(chan []byte, 4)}
	sink := &recordingSink{}
	engine := testEngine(link, sink)
	engine.res = testResource(t, "stream.mp3")

	encoder, err := gopus.NewEncoder(48000, 2, gopus.Audio)
	require.NoError(t, err)

	frame := make([]byte, engine.cfg.Opus.FrameBytes())
	engine.sendFrame(frame, encoder)
	engine.sendFrame(frame, encoder)

	assert.Len(t, link.ch, 2)
	assert.Equal(t, 1, sink.startCount())
	assert.Equal(t, int64(2), engine.Frames())
}

func TestSendFrameDropsWhenLinkBlocked(t *testing.T) {
	link := &fakeLink{ready: true, ch: make(chan []byte)}
	sink := &recordingSink{}
	engine := testEngine(link, sink)
	engine.cfg.Stream.SendTimeout = 5 * time.Millisecond
	engine.res = testResource(t, "stream.mp3")

	encoder, err := gopus.NewEncoder(48000, 2, gopus.Audio)
	require.NoError(t, err)

	engine.sendFrame(make([]byte, engine.cfg.Opus.FrameBytes()), encoder)

	assert.Equal(t, 0, sink.startCount())
	assert.Equal(t, int64(0), engine.Frames())
}

func TestSendFramePadsShortInput(t *testing.T) {
	link := &fakeLink{ready: true, ch: make(chan []byte, 1)}
	engine := testEngine(link, &recordingSink{})
	engine.res = testResource(t, "stream.mp3")

	encoder, err := gopus.NewEncoder(48000, 2, gopus.Audio)
	require.NoError(t, err)

	// Half a frame still encodes, zero-padded to full length.
	engine.sendFrame(make([]byte, engine.cfg.Opus.FrameBytes()/2), encoder)

	assert.Equal(t, int64(1), engine.Frames())
}

func TestDrainedResultReportsStall(t *testing.T) {
	engine := testEngine(&fakeLink{ready: true, ch: make(chan []byte)}, &recordingSink{})

	engine.mu.Lock()
	engine.stalled = true
	engine.mu.Unlock()

	err := engine.drainedResult()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stalled")

	// The flag is consumed.
	assert.NoError(t, engine.drainedResult())
}

func TestFactoryMintsEnginePerAttempt(t *testing.T) {
	links := func(guildID string) LinkProvider {
		return func() OpusLink { return &fakeLink{ready: true, ch: make(chan []byte)} }
	}
	factory := Factory(DefaultConfig(), DiscardLogger(), NewBasicMetricsCollector(), links)

	a := factory("guild-a", &recordingSink{})
	b := factory("guild-a", &recordingSink{})

	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.NotSame(t, a, b)
}
