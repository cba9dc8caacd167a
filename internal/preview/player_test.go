package preview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/KabirAcharya/riqpreview/internal/catalog"
	"github.com/KabirAcharya/riqpreview/internal/decode"
)

// fakeTransport records transport calls and lets tests drive completion
type fakeTransport struct {
	mu         sync.Mutex
	starts     []time.Duration
	stopCount  int
	stopErr    error
	pos        time.Duration
	lastOnDone func()
}

func (f *fakeTransport) Start(data *decode.AudioData, offset time.Duration, onDone func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, offset)
	f.lastOnDone = onDone
	return nil
}

func (f *fakeTransport) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCount++
	return f.stopErr
}

func (f *fakeTransport) Seek(offset time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = offset
	return nil
}

func (f *fakeTransport) Position() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) startOffsets() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.starts...)
}

func (f *fakeTransport) finish() {
	f.mu.Lock()
	done := f.lastOnDone
	f.mu.Unlock()
	if done != nil {
		done()
	}
}

// twoSecondBuffer returns a buffer with a known 2s duration
func twoSecondBuffer() *decode.AudioData {
	return &decode.AudioData{
		Samples:    make([]byte, 8000*2*2*2),
		Channels:   2,
		SampleRate: 8000,
		Format:     malgo.FormatS16,
	}
}

func loadedSong(title string) *catalog.Song {
	song := catalog.NewSong("/songs/"+title+".riq", title, false)
	song.SetAudio(twoSecondBuffer())
	return song
}

// eventRecorder captures started/stopped callbacks
type eventRecorder struct {
	mu      sync.Mutex
	started []string
	stopped []string
}

func (r *eventRecorder) attach(p *Player) {
	p.OnStarted = func(s *catalog.Song) {
		r.mu.Lock()
		r.started = append(r.started, s.Title)
		r.mu.Unlock()
	}
	p.OnStopped = func(s *catalog.Song) {
		r.mu.Lock()
		r.stopped = append(r.stopped, s.Title)
		r.mu.Unlock()
	}
}

func (r *eventRecorder) startedTitles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.started...)
}

func (r *eventRecorder) stoppedTitles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.stopped...)
}

func TestPlayStartsLoadedSong(t *testing.T) {
	transport := &fakeTransport{}
	player := NewPlayer(transport)
	rec := &eventRecorder{}
	rec.attach(player)

	song := loadedSong("alpha")
	player.Play(song, 500*time.Millisecond)

	if !player.Playing() {
		t.Error("player should be playing")
	}
	if player.Current() != song {
		t.Error("current song mismatch")
	}

	offsets := transport.startOffsets()
	if len(offsets) != 1 || offsets[0] != 500*time.Millisecond {
		t.Errorf("unexpected start offsets: %v", offsets)
	}
	if got := rec.startedTitles(); len(got) != 1 || got[0] != "alpha" {
		t.Errorf("unexpected started events: %v", got)
	}
}

func TestPlayDefaultsToMidpoint(t *testing.T) {
	transport := &fakeTransport{}
	player := NewPlayer(transport)

	player.Play(loadedSong("alpha"), 0)

	offsets := transport.startOffsets()
	if len(offsets) != 1 || offsets[0] != time.Second {
		t.Errorf("expected midpoint offset 1s for 2s track, got %v", offsets)
	}

	player.Play(loadedSong("bravo"), -3*time.Second)
	offsets = transport.startOffsets()
	if len(offsets) != 2 || offsets[1] != time.Second {
		t.Errorf("negative offset must also default to midpoint, got %v", offsets)
	}
}

func TestPlayUnloadedSongWithoutLoaderIsNoOp(t *testing.T) {
	transport := &fakeTransport{}
	player := NewPlayer(transport)
	rec := &eventRecorder{}
	rec.attach(player)

	player.Play(catalog.NewSong("/songs/cold.riq", "cold", false), 0)

	if player.Playing() {
		t.Error("player must not play an unloaded song")
	}
	if player.Current() != nil {
		t.Error("no session should exist")
	}
	if len(transport.startOffsets()) != 0 {
		t.Error("transport must not be started")
	}
	if len(rec.startedTitles()) != 0 {
		t.Error("no started event may fire")
	}
}

func TestPreviewRaceSafety(t *testing.T) {
	transport := &fakeTransport{}
	player := NewPlayer(transport)
	rec := &eventRecorder{}
	rec.attach(player)

	// Per-song gates so loads complete only when the test says so
	gates := map[string]chan struct{}{
		"a": make(chan struct{}),
		"b": make(chan struct{}),
		"c": make(chan struct{}),
	}
	player.SetLoader(func(ctx context.Context, song *catalog.Song) (*decode.AudioData, error) {
		<-gates[song.Title]
		return twoSecondBuffer(), nil
	})

	songA := catalog.NewSong("/songs/a.riq", "a", false)
	songB := catalog.NewSong("/songs/b.riq", "b", false)
	songC := catalog.NewSong("/songs/c.riq", "c", false)

	player.Play(songA, 0)
	player.Play(songB, 0)
	player.Play(songC, 0)

	// Let the stale loads complete first, then the live one
	close(gates["a"])
	close(gates["b"])
	time.Sleep(50 * time.Millisecond)
	close(gates["c"])

	deadline := time.After(5 * time.Second)
	for {
		if got := rec.startedTitles(); len(got) > 0 {
			if len(got) != 1 || got[0] != "c" {
				t.Fatalf("only song c may ever start, got %v", got)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("song c never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Give any stale commit a chance to misfire before final assertion
	time.Sleep(50 * time.Millisecond)
	if got := rec.startedTitles(); len(got) != 1 || got[0] != "c" {
		t.Fatalf("stale sessions became observable: %v", got)
	}
	if player.Current() != songC {
		t.Error("current song must be c")
	}
}

func TestStopIdempotence(t *testing.T) {
	transport := &fakeTransport{}
	player := NewPlayer(transport)
	rec := &eventRecorder{}
	rec.attach(player)

	// Stop with no session: no error, no event
	player.Stop()
	if got := rec.stoppedTitles(); len(got) != 0 {
		t.Errorf("stop without session fired events: %v", got)
	}

	player.Play(loadedSong("alpha"), 0)
	player.Stop()
	player.Stop()

	if got := rec.stoppedTitles(); len(got) != 1 || got[0] != "alpha" {
		t.Errorf("expected exactly one stopped event, got %v", got)
	}
	if player.Playing() || player.Current() != nil {
		t.Error("session survived Stop")
	}
}

func TestStopSwallowsTransportError(t *testing.T) {
	transport := &fakeTransport{stopErr: errors.New("invalid handle")}
	player := NewPlayer(transport)
	rec := &eventRecorder{}
	rec.attach(player)

	player.Play(loadedSong("alpha"), 0)
	player.Stop() // must not panic or propagate

	if got := rec.stoppedTitles(); len(got) != 1 {
		t.Errorf("expected one stopped event despite transport error, got %v", got)
	}
}

func TestNaturalEndFiresStoppedOnce(t *testing.T) {
	transport := &fakeTransport{}
	player := NewPlayer(transport)
	rec := &eventRecorder{}
	rec.attach(player)

	player.Play(loadedSong("alpha"), 0)
	transport.finish()
	transport.finish() // duplicate completion must be ignored

	if got := rec.stoppedTitles(); len(got) != 1 || got[0] != "alpha" {
		t.Errorf("expected one stopped event on natural end, got %v", got)
	}
	if player.Playing() {
		t.Error("player still playing after natural end")
	}

	// A stale completion from a previous session must not disturb a new one
	player.Play(loadedSong("bravo"), 0)
	if !player.Playing() {
		t.Error("second session should be playing")
	}
}

func TestSeekAndProgress(t *testing.T) {
	transport := &fakeTransport{}
	player := NewPlayer(transport)

	// Without a session both are no-ops
	player.Seek(0.5)
	if got := player.Progress(); got != 0 {
		t.Errorf("progress without session = %v, want 0", got)
	}

	player.Play(loadedSong("alpha"), 0)

	player.Seek(0.25) // 2s track -> 500ms
	if got := transport.Position(); got != 500*time.Millisecond {
		t.Errorf("seek positioned transport at %v, want 500ms", got)
	}
	if got := player.Progress(); got < 0.24 || got > 0.26 {
		t.Errorf("progress = %v, want ~0.25", got)
	}

	// Out-of-range positions clamp
	player.Seek(2.0)
	if got := transport.Position(); got != 2*time.Second {
		t.Errorf("seek clamped to %v, want 2s", got)
	}
}

func TestNullTransportLifecycle(t *testing.T) {
	transport := NewNullTransport()
	defer transport.Close()

	done := make(chan struct{})
	data := &decode.AudioData{
		Samples:    make([]byte, 8000*2/100), // 10ms at 8kHz mono s16
		Channels:   1,
		SampleRate: 8000,
		Format:     malgo.FormatS16,
	}

	if err := transport.Start(data, 0, func() { close(done) }); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("null transport never completed")
	}

	if err := transport.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}
