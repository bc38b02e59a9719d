package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sessionHarness stands up one full session on mock transport and engine,
// with tracks whose handlers report through the session's current
// notifier, the way the command layer wires them.
type sessionHarness struct {
	registry  *Registry
	sub       *Subscription
	connector *MockConnector
	factory   *MockEngineFactory
	notifier  *MockNotifier
	link      *MockLink
}

func newSessionHarness(t *testing.T, timings Timings) *sessionHarness {
	t.Helper()
	h := &sessionHarness{
		connector: NewMockConnector(),
		factory:   &MockEngineFactory{AutoStart: true},
		notifier:  &MockNotifier{},
	}
	h.registry = NewRegistry(RegistryConfig{
		Connector: h.connector,
		Engine:    h.factory.Factory,
		Timings:   timings,
	})

	sub, err := h.registry.GetOrCreate("guild-1", "channel-1", h.notifier)
	require.NoError(t, err)
	h.sub = sub
	h.link = h.connector.LastLink()
	require.NotNil(t, h.link)
	h.link.Drive(ConnConnecting, 0)
	h.link.Drive(ConnReady, 0)
	require.True(t, sub.AwaitReady(time.Second))
	return h
}

func (h *sessionHarness) track(title string) *Track {
	return h.failingTrack(title, nil)
}

func (h *sessionHarness) failingTrack(title string, produceErr error) *Track {
	return NewTrack(TrackInfo{Title: title}, func(context.Context) (string, error) {
		if produceErr != nil {
			return "", produceErr
		}
		return "stream://" + title, nil
	}, Handlers{
		OnStart: func(tr *Track) {
			if n := h.sub.Notifier(); n != nil {
				n.NowPlaying(tr)
			}
		},
		OnFinish: func(tr *Track) {
			if n := h.sub.Notifier(); n != nil {
				n.TrackFinished(tr)
			}
		},
		OnError: func(tr *Track, err error) {
			if n := h.sub.Notifier(); n != nil {
				n.TrackError(tr, err)
			}
		},
	})
}

func TestSubscription_PlaysEnqueuedTrack(t *testing.T) {
	h := newSessionHarness(t, testTimings())

	h.sub.Enqueue(h.track("first"))

	assert.Equal(t, PlayerPlaying, h.sub.Player().State())
	require.NotNil(t, h.sub.NowPlaying())
	assert.Equal(t, "first", h.sub.NowPlaying().Title)
	assert.Zero(t, h.sub.Queue().Len(), "the playing track is not part of the queue")
	assert.Equal(t, []string{"first"}, h.notifier.NowPlayingTitles())
}

func TestSubscription_AdvancesThroughQueueInOrder(t *testing.T) {
	h := newSessionHarness(t, testTimings())

	h.sub.Enqueue(h.track("first"))
	h.sub.Enqueue(h.track("second"))
	h.sub.Enqueue(h.track("third"))

	require.Equal(t, 1, h.factory.Count(), "only one attempt at a time")
	h.factory.Engine(0).EmitFinished(nil)
	require.Equal(t, 2, h.factory.Count())
	h.factory.Engine(1).EmitFinished(nil)
	require.Equal(t, 3, h.factory.Count())

	assert.Equal(t, []string{"first", "second", "third"}, h.notifier.NowPlayingTitles())
	assert.Equal(t, []string{"first", "second"}, h.notifier.FinishedTitles())
	assert.Equal(t, "third", h.sub.NowPlaying().Title)
}

func TestSubscription_ProcessQueueSpamStartsNothingExtra(t *testing.T) {
	h := newSessionHarness(t, testTimings())
	h.sub.Enqueue(h.track("first"))
	h.sub.Enqueue(h.track("second"))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.sub.ProcessQueue()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.factory.Count(), "spamming the processor must not double-start")
	assert.Equal(t, 1, h.sub.Queue().Len())
}

func TestSubscription_FailedProduceSkipsToNext(t *testing.T) {
	h := newSessionHarness(t, testTimings())

	// Queue both before processing so the failure has a successor.
	h.sub.Queue().Enqueue(h.failingTrack("broken", errors.New("age restricted")))
	h.sub.Queue().Enqueue(h.track("working"))
	h.sub.ProcessQueue()

	assert.Equal(t, []string{"broken"}, h.notifier.ErrorTitles())
	assert.Equal(t, []string{"working"}, h.notifier.NowPlayingTitles())
	assert.Equal(t, 1, h.factory.Count(), "no engine is built for a failed production")
	assert.Equal(t, PlayerPlaying, h.sub.Player().State())
}

func TestSubscription_AllProductionsFailLeavesIdle(t *testing.T) {
	h := newSessionHarness(t, testTimings())

	h.sub.Queue().Enqueue(h.failingTrack("a", errors.New("gone")))
	h.sub.Queue().Enqueue(h.failingTrack("b", errors.New("gone")))
	h.sub.ProcessQueue()

	assert.Equal(t, []string{"a", "b"}, h.notifier.ErrorTitles())
	assert.Equal(t, PlayerIdle, h.sub.Player().State())
	assert.Zero(t, h.sub.Queue().Len())
	assert.False(t, h.sub.Destroyed(), "failures alone do not tear the session down")
}

func TestSubscription_SkipAdvances(t *testing.T) {
	h := newSessionHarness(t, testTimings())
	h.sub.Enqueue(h.track("first"))
	h.sub.Enqueue(h.track("second"))

	require.True(t, h.sub.Skip())

	assert.Equal(t, "second", h.sub.NowPlaying().Title)
	assert.Equal(t, []string{"first"}, h.notifier.FinishedTitles(), "a skipped track still finishes")
	assert.Equal(t, []string{"first", "second"}, h.notifier.NowPlayingTitles())
}

func TestSubscription_SkipWithEmptyPlayer(t *testing.T) {
	h := newSessionHarness(t, testTimings())
	assert.False(t, h.sub.Skip())
}

func TestSubscription_ReplayRestartsCurrentTrack(t *testing.T) {
	h := newSessionHarness(t, testTimings())
	h.sub.Enqueue(h.track("favorite"))
	require.Equal(t, 1, h.factory.Count())

	require.True(t, h.sub.Replay())

	assert.Equal(t, 2, h.factory.Count(), "replay is a fresh attempt")
	assert.Equal(t, "favorite", h.sub.NowPlaying().Title)
	assert.Zero(t, h.sub.Queue().Len())
	assert.Equal(t, []string{"favorite", "favorite"}, h.notifier.NowPlayingTitles(),
		"each attempt announces once")
}

func TestSubscription_ReplayKeepsQueueOrder(t *testing.T) {
	h := newSessionHarness(t, testTimings())
	h.sub.Enqueue(h.track("current"))
	h.sub.Enqueue(h.track("next"))

	require.True(t, h.sub.Replay())

	assert.Equal(t, "current", h.sub.NowPlaying().Title)
	assert.Equal(t, []string{"next"}, titles(h.sub.Queue().Tracks()))
}

func TestSubscription_ReplayWithNothingPlaying(t *testing.T) {
	h := newSessionHarness(t, testTimings())
	assert.False(t, h.sub.Replay())
}

func TestSubscription_PauseResume(t *testing.T) {
	h := newSessionHarness(t, testTimings())
	h.sub.Enqueue(h.track("song"))

	require.True(t, h.sub.Pause())
	assert.Equal(t, PlayerPaused, h.sub.Player().State())
	require.True(t, h.sub.Resume())
	assert.Equal(t, PlayerPlaying, h.sub.Player().State())
}

func TestSubscription_DisconnectAutoPausesAndRecoveryResumes(t *testing.T) {
	h := newSessionHarness(t, testTimings())
	h.sub.Enqueue(h.track("song"))
	engine := h.factory.Last()

	// Moved between channels: 4014 close followed by a reconnect.
	h.link.Drive(ConnDisconnected, wsCloseMoveOrKick)
	assert.Equal(t, PlayerAutoPaused, h.sub.Player().State())
	assert.Equal(t, 1, engine.PauseCalls())

	h.link.Drive(ConnConnecting, 0)
	h.link.Drive(ConnReady, 0)
	assert.Equal(t, PlayerPlaying, h.sub.Player().State())
	assert.Equal(t, 1, engine.ResumeCalls())

	time.Sleep(2 * testTimings().DisconnectGrace)
	assert.False(t, h.sub.Destroyed())
	assert.Empty(t, h.notifier.ConnLostCauses())
	assert.Equal(t, []string{"song"}, h.notifier.NowPlayingTitles(),
		"recovery within the same attempt does not re-announce")
}

func TestSubscription_ConnectionExhaustionTearsDownOnce(t *testing.T) {
	timings := testTimings()
	h := newSessionHarness(t, timings)
	h.sub.Enqueue(h.track("song"))

	for i := 1; i <= timings.MaxRejoins; i++ {
		h.link.Drive(ConnDisconnected, 0)
		require.Eventually(t, func() bool {
			return h.link.RejoinCalls() == i
		}, time.Second, 2*time.Millisecond)
	}
	h.link.Drive(ConnDisconnected, 0)

	require.Eventually(t, func() bool {
		return h.sub.Destroyed()
	}, time.Second, 2*time.Millisecond)

	assert.Len(t, h.notifier.ConnLostCauses(), 1, "exactly one fatal notice")
	assert.Zero(t, h.notifier.InactivityCount())
	assert.Equal(t, PlayerIdle, h.sub.Player().State())
	assert.Zero(t, h.registry.Len())
}

func TestSubscription_KickedTearsDownOnce(t *testing.T) {
	h := newSessionHarness(t, testTimings())
	h.sub.Enqueue(h.track("song"))

	// 4014 with no reconnect: kicked or channel deleted.
	h.link.Drive(ConnDisconnected, wsCloseMoveOrKick)

	require.Eventually(t, func() bool {
		return h.sub.Destroyed()
	}, time.Second, 2*time.Millisecond)
	assert.Len(t, h.notifier.ConnLostCauses(), 1)
	assert.Zero(t, h.notifier.InactivityCount())
	assert.Zero(t, h.registry.Len())
}

func TestSubscription_IdleTimeoutNotifiesAndRemoves(t *testing.T) {
	timings := testTimings()
	timings.IdleTimeout = 50 * time.Millisecond
	h := newSessionHarness(t, timings)

	// Nothing ever enqueued.
	require.Eventually(t, func() bool {
		return h.sub.Destroyed()
	}, time.Second, 2*time.Millisecond)

	assert.Equal(t, 1, h.notifier.InactivityCount())
	assert.Empty(t, h.notifier.ConnLostCauses(), "idle teardown notifies exactly once")
	assert.Zero(t, h.registry.Len())
}

func TestSubscription_IdleTimeoutAfterLastTrack(t *testing.T) {
	timings := testTimings()
	timings.IdleTimeout = 50 * time.Millisecond
	h := newSessionHarness(t, timings)

	h.sub.Enqueue(h.track("only"))
	h.factory.Last().EmitFinished(nil)

	require.Eventually(t, func() bool {
		return h.sub.Destroyed()
	}, time.Second, 2*time.Millisecond)
	assert.Equal(t, []string{"only"}, h.notifier.FinishedTitles())
	assert.Equal(t, 1, h.notifier.InactivityCount())
	assert.Empty(t, h.notifier.ConnLostCauses())
}

func TestSubscription_PlaybackHoldsOffIdleTimeout(t *testing.T) {
	timings := testTimings()
	timings.IdleTimeout = 60 * time.Millisecond
	h := newSessionHarness(t, timings)

	h.sub.Enqueue(h.track("long one"))
	time.Sleep(3 * timings.IdleTimeout)

	assert.False(t, h.sub.Destroyed(), "an active attempt must not idle out")
	assert.Zero(t, h.notifier.InactivityCount())
}

func TestSubscription_StopClearsEverything(t *testing.T) {
	h := newSessionHarness(t, testTimings())
	h.sub.Enqueue(h.track("current"))
	h.sub.Enqueue(h.track("pending"))

	h.sub.Stop()

	assert.True(t, h.sub.Destroyed())
	assert.Zero(t, h.sub.Queue().Len())
	assert.Equal(t, PlayerIdle, h.sub.Player().State())
	assert.Equal(t, ConnDestroyed, h.sub.Conn().State())
	assert.Zero(t, h.registry.Len())
	assert.GreaterOrEqual(t, h.link.DestroyCalls(), 1)

	// The interrupted track finishes; the cleared one stays silent, and
	// a user-requested stop is not a fatal event.
	assert.Equal(t, []string{"current"}, h.notifier.FinishedTitles())
	assert.Empty(t, h.notifier.ErrorTitles())
	assert.Zero(t, h.notifier.InactivityCount())
	assert.Empty(t, h.notifier.ConnLostCauses())
}

func TestSubscription_StopIsIdempotent(t *testing.T) {
	h := newSessionHarness(t, testTimings())
	h.sub.Enqueue(h.track("song"))

	h.sub.Stop()
	finished := h.notifier.FinishedTitles()
	h.sub.Stop()
	h.sub.Stop()

	assert.Equal(t, finished, h.notifier.FinishedTitles())
	assert.Equal(t, 1, h.link.DestroyCalls())
}

func TestSubscription_ConnDestroyCascadesToStop(t *testing.T) {
	h := newSessionHarness(t, testTimings())
	h.sub.Enqueue(h.track("song"))

	h.sub.Conn().Destroy()

	assert.True(t, h.sub.Destroyed())
	assert.Zero(t, h.registry.Len())
	assert.Empty(t, h.notifier.ConnLostCauses(), "a deliberate destroy is silent")
}

func TestSubscription_EnqueueAfterStopDoesNotPlay(t *testing.T) {
	h := newSessionHarness(t, testTimings())
	h.sub.Stop()

	h.sub.Enqueue(h.track("too late"))

	assert.Equal(t, PlayerIdle, h.sub.Player().State())
	assert.Empty(t, h.notifier.NowPlayingTitles())
	assert.Equal(t, 0, h.factory.Count())
}

func TestSubscription_EnqueueNextJumpsQueue(t *testing.T) {
	h := newSessionHarness(t, testTimings())
	h.sub.Enqueue(h.track("playing"))
	h.sub.Enqueue(h.track("second"))
	h.sub.Enqueue(h.track("third"))

	h.sub.EnqueueNext(h.track("urgent"))

	require.Equal(t, "urgent", h.sub.Queue().Peek().Title)
	h.factory.Last().EmitFinished(nil)
	assert.Equal(t, "urgent", h.sub.NowPlaying().Title)
}

func TestSubscription_EnqueueAllStartsPlayback(t *testing.T) {
	h := newSessionHarness(t, testTimings())

	h.sub.EnqueueAll([]*Track{h.track("a"), h.track("b"), h.track("c")}, false)

	assert.Equal(t, PlayerPlaying, h.sub.Player().State())
	assert.Equal(t, "a", h.sub.NowPlaying().Title)
	assert.Equal(t, 2, h.sub.Queue().Len())
}

func TestSubscription_NotifierFollowsLatestCaller(t *testing.T) {
	h := newSessionHarness(t, testTimings())

	replacement := &MockNotifier{}
	again, err := h.registry.GetOrCreate("guild-1", "channel-9", replacement)
	require.NoError(t, err)
	require.Same(t, h.sub, again)

	h.sub.Enqueue(h.track("song"))

	assert.Empty(t, h.notifier.NowPlayingTitles())
	assert.Equal(t, []string{"song"}, replacement.NowPlayingTitles())
}

func TestSubscription_NeverReadyIsTornDown(t *testing.T) {
	timings := testTimings()
	connector := NewMockConnector()
	factory := &MockEngineFactory{AutoStart: true}
	notifier := &MockNotifier{}
	registry := NewRegistry(RegistryConfig{
		Connector: connector,
		Engine:    factory.Factory,
		Timings:   timings,
	})

	sub, err := registry.GetOrCreate("guild-1", "channel-1", notifier)
	require.NoError(t, err)

	// The transport never reports Ready.
	require.Eventually(t, func() bool {
		return sub.Destroyed()
	}, time.Second, 2*time.Millisecond)
	assert.Len(t, notifier.ConnLostCauses(), 1)
	assert.Zero(t, registry.Len())
}
