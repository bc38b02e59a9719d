package voice

import "sync"

// MockConnector is a Connector for tests. It hands out MockLinks and
// records every connect request. Transport behavior is driven manually
// through the links' Drive method.
type MockConnector struct {
	mu       sync.Mutex
	err      error
	links    []*MockLink
	connects []string
}

// NewMockConnector creates a connector whose Connect always succeeds.
func NewMockConnector() *MockConnector {
	return &MockConnector{}
}

// FailWith makes subsequent Connect calls return err.
func (c *MockConnector) FailWith(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// Connect implements Connector.
func (c *MockConnector) Connect(guildID, channelID string, sink TransitionSink) (Link, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	l := &MockLink{sink: sink, rejoinOK: true}
	c.links = append(c.links, l)
	c.connects = append(c.connects, guildID+"/"+channelID)
	return l, nil
}

// Connects returns the recorded "guild/channel" connect requests.
func (c *MockConnector) Connects() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.connects))
	copy(out, c.connects)
	return out
}

// LastLink returns the most recently handed out link, or nil.
func (c *MockConnector) LastLink() *MockLink {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.links) == 0 {
		return nil
	}
	return c.links[len(c.links)-1]
}

// MockLink is a Link for tests.
type MockLink struct {
	mu           sync.Mutex
	sink         TransitionSink
	rejoinOK     bool
	rejoinCalls  int
	destroyCalls int
}

// Rejoin implements Link.
func (l *MockLink) Rejoin() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rejoinCalls++
	return l.rejoinOK
}

// Destroy implements Link.
func (l *MockLink) Destroy() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.destroyCalls++
}

// RefuseRejoin makes subsequent Rejoin calls report failure.
func (l *MockLink) RefuseRejoin() {
	l.mu.Lock()
	l.rejoinOK = false
	l.mu.Unlock()
}

// RejoinCalls returns how many times Rejoin was requested.
func (l *MockLink) RejoinCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rejoinCalls
}

// DestroyCalls returns how many times Destroy was requested.
func (l *MockLink) DestroyCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.destroyCalls
}

// Drive pushes a transport transition into the link's sink, as the real
// transport would.
func (l *MockLink) Drive(next ConnState, closeCode int) {
	l.mu.Lock()
	sink := l.sink
	l.mu.Unlock()
	sink.HandleTransition(next, closeCode)
}

// MockEngineFactory builds MockEngines and remembers them so tests can
// drive and inspect each attempt.
type MockEngineFactory struct {
	mu sync.Mutex
	// AutoStart makes every engine report EngineStarted from within
	// Start, simulating an instantly buffering stream.
	AutoStart bool
	// StartErr makes every engine's Start fail.
	StartErr error

	engines []*MockEngine
}

// Factory is the EngineFactory to hand to a player or registry.
func (f *MockEngineFactory) Factory(guildID string, sink EngineSink) Engine {
	f.mu.Lock()
	e := &MockEngine{sink: sink, autoStart: f.AutoStart, startErr: f.StartErr}
	f.engines = append(f.engines, e)
	f.mu.Unlock()
	return e
}

// Count returns how many engines have been built.
func (f *MockEngineFactory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.engines)
}

// Engine returns the i-th engine built.
func (f *MockEngineFactory) Engine(i int) *MockEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.engines[i]
}

// Last returns the most recently built engine, or nil.
func (f *MockEngineFactory) Last() *MockEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.engines) == 0 {
		return nil
	}
	return f.engines[len(f.engines)-1]
}

// MockEngine is an Engine for tests. Stop reports the attempt finished
// synchronously; EmitStarted and EmitFinished drive the rest by hand.
type MockEngine struct {
	mu        sync.Mutex
	sink      EngineSink
	res       *Resource
	autoStart bool
	startErr  error
	finished  bool

	startCalls  int
	pauseCalls  int
	resumeCalls int
	stopCalls   int
	lastForce   bool
}

// Start implements Engine.
func (e *MockEngine) Start(res *Resource) error {
	e.mu.Lock()
	e.startCalls++
	e.res = res
	err := e.startErr
	auto := e.autoStart
	e.mu.Unlock()
	if err != nil {
		return err
	}
	if auto {
		e.sink.EngineStarted(res)
	}
	return nil
}

// Pause implements Engine.
func (e *MockEngine) Pause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauseCalls++
	return true
}

// Resume implements Engine.
func (e *MockEngine) Resume() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resumeCalls++
	return true
}

// Stop implements Engine. The finish report is synchronous, modelling an
// immediate cut.
func (e *MockEngine) Stop(force bool) {
	e.mu.Lock()
	e.stopCalls++
	e.lastForce = force
	e.mu.Unlock()
	e.EmitFinished(nil)
}

// EmitStarted reports the stream as flowing.
func (e *MockEngine) EmitStarted() {
	e.mu.Lock()
	res := e.res
	e.mu.Unlock()
	if res != nil {
		e.sink.EngineStarted(res)
	}
}

// EmitFinished reports the attempt as over. Only the first report per
// attempt is delivered.
func (e *MockEngine) EmitFinished(err error) {
	e.mu.Lock()
	if e.finished || e.res == nil {
		e.mu.Unlock()
		return
	}
	e.finished = true
	res := e.res
	e.mu.Unlock()
	e.sink.EngineFinished(res, err)
}

// StartCalls returns how many times Start ran.
func (e *MockEngine) StartCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startCalls
}

// PauseCalls returns how many times Pause ran.
func (e *MockEngine) PauseCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pauseCalls
}

// ResumeCalls returns how many times Resume ran.
func (e *MockEngine) ResumeCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resumeCalls
}

// StopCalls returns how many times Stop ran.
func (e *MockEngine) StopCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopCalls
}

// Resource returns the resource this engine was started with.
func (e *MockEngine) Resource() *Resource {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.res
}

// MockNotifier records every notification for assertions.
type MockNotifier struct {
	mu          sync.Mutex
	nowPlaying  []string
	finished    []string
	trackErrors []string
	inactivity  int
	connLost    []string
}

// NowPlaying implements Notifier.
func (n *MockNotifier) NowPlaying(t *Track) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nowPlaying = append(n.nowPlaying, t.Title)
}

// TrackFinished implements Notifier.
func (n *MockNotifier) TrackFinished(t *Track) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = append(n.finished, t.Title)
}

// TrackError implements Notifier.
func (n *MockNotifier) TrackError(t *Track, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.trackErrors = append(n.trackErrors, t.Title)
}

// Inactivity implements Notifier.
func (n *MockNotifier) Inactivity() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.inactivity++
}

// ConnectionLost implements Notifier.
func (n *MockNotifier) ConnectionLost(cause string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.connLost = append(n.connLost, cause)
}

// NowPlayingTitles returns the titles announced so far.
func (n *MockNotifier) NowPlayingTitles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.nowPlaying))
	copy(out, n.nowPlaying)
	return out
}

// FinishedTitles returns the titles reported finished.
func (n *MockNotifier) FinishedTitles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.finished))
	copy(out, n.finished)
	return out
}

// ErrorTitles returns the titles reported failed.
func (n *MockNotifier) ErrorTitles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.trackErrors))
	copy(out, n.trackErrors)
	return out
}

// InactivityCount returns how many inactivity notices fired.
func (n *MockNotifier) InactivityCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.inactivity
}

// ConnLostCauses returns the fatal connection notices fired.
func (n *MockNotifier) ConnLostCauses() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.connLost))
	copy(out, n.connLost)
	return out
}

var (
	_ Connector = (*MockConnector)(nil)
	_ Link      = (*MockLink)(nil)
	_ Engine    = (*MockEngine)(nil)
	_ Notifier  = (*MockNotifier)(nil)
)
