package session

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeResolver delegates to a settable function so individual tests can
// gate or fail resolution.
type fakeResolver struct {
	mu sync.Mutex
	fn func(ctx context.Context, query string) (*AudioSource, error)

	calls []string
}

func (r *fakeResolver) Resolve(ctx context.Context, query string) (*AudioSource, error) {
	r.mu.Lock()
	r.calls = append(r.calls, query)
	fn := r.fn
	r.mu.Unlock()
	if fn != nil {
		return fn(ctx, query)
	}
	return mustSource(query), nil
}

func mustSource(title string) *AudioSource {
	src, err := NewAudioSource("https://media.example/stream", title)
	if err != nil {
		panic(err)
	}
	return src
}

type fakePlayback struct {
	mu       sync.Mutex
	stopped  int
	holdStop bool
	done     chan error
	closed   bool
}

func newFakePlayback() *fakePlayback {
	return &fakePlayback{done: make(chan error, 1)}
}

// blockStop makes Stop record the call without ending the stream, so a
// test can hold a stream in its wind-down phase until complete is called.
func (p *fakePlayback) blockStop() {
	p.mu.Lock()
	p.holdStop = true
	p.mu.Unlock()
}

func (p *fakePlayback) Stop() {
	p.mu.Lock()
	p.stopped++
	hold := p.holdStop
	p.mu.Unlock()
	if !hold {
		p.complete(nil)
	}
}

func (p *fakePlayback) Done() <-chan error { return p.done }

// complete ends the stream as if it finished on its own.
func (p *fakePlayback) complete(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.done <- err
	close(p.done)
}

func (p *fakePlayback) stopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

type fakeTransport struct {
	mu        sync.Mutex
	joins     []string // "guild:channel"
	leaves    []string
	playbacks []*fakePlayback

	joinErr error
	playErr error
}

func (t *fakeTransport) Join(ctx context.Context, guildID, channelID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.joinErr != nil {
		return t.joinErr
	}
	t.joins = append(t.joins, guildID+":"+channelID)
	return nil
}

func (t *fakeTransport) Leave(ctx context.Context, guildID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaves = append(t.leaves, guildID)
	return nil
}

func (t *fakeTransport) Play(ctx context.Context, guildID string, src *AudioSource) (Playback, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.playErr != nil {
		return nil, t.playErr
	}
	pb := newFakePlayback()
	t.playbacks = append(t.playbacks, pb)
	return pb, nil
}

func (t *fakeTransport) playCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.playbacks)
}

func (t *fakeTransport) lastPlayback() *fakePlayback {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.playbacks) == 0 {
		return nil
	}
	return t.playbacks[len(t.playbacks)-1]
}

func (t *fakeTransport) leaveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.leaves)
}

// fakeStates maps "guild:user" to a channel ID.
type fakeStates struct {
	mu       sync.Mutex
	channels map[string]string
}

func newFakeStates() *fakeStates {
	return &fakeStates{channels: make(map[string]string)}
}

func (s *fakeStates) put(guildID, userID, channelID string) {
	s.mu.Lock()
	s.channels[guildID+":"+userID] = channelID
	s.mu.Unlock()
}

func (s *fakeStates) UserChannel(guildID, userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[guildID+":"+userID]
	return ch, ok && ch != ""
}

// fakeSettings can hold a single lookup on a gate to expose races around
// slow settings loads.
type fakeSettings struct {
	set Settings
	err error

	mu        sync.Mutex
	calls     int
	blockCall int // 1-based index of the call to hold, 0 disables
	gate      chan struct{}
}

func (f *fakeSettings) SessionSettings(ctx context.Context, guildID string) (Settings, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if f.gate != nil && n == f.blockCall {
		<-f.gate
	}
	return f.set, f.err
}

func (f *fakeSettings) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func volPtr(v float64) *float64 { return &v }

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}
