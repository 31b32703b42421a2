package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convokit/core"
	"convokit/events/playback"
)

type fakeSynth struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	err   error
	calls []string
	tags  []string
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{gates: make(map[string]chan struct{})}
}

// hold makes synthesis of text block until release is called.
func (f *fakeSynth) hold(text string) func() {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[text] = gate
	f.mu.Unlock()
	return func() { close(gate) }
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string, tag string) (core.AudioClip, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.tags = append(f.tags, tag)
	gate := f.gates[text]
	err := f.err
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return core.AudioClip{}, err
	}
	return core.AudioClip{Data: []byte(text), MediaType: core.MediaTypeAudioMP3}, nil
}

type fakePlayer struct {
	mu      sync.Mutex
	playing int
	maxSeen int
	played  []string
	started chan string
	finish  chan struct{}
	err     error
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{started: make(chan string, 16), finish: make(chan struct{})}
}

func (p *fakePlayer) Play(ctx context.Context, clip core.AudioClip) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.mu.Lock()
	p.playing++
	if p.playing > p.maxSeen {
		p.maxSeen = p.playing
	}
	p.played = append(p.played, string(clip.Data))
	err := p.err
	p.mu.Unlock()
	p.started <- string(clip.Data)

	defer func() {
		p.mu.Lock()
		p.playing--
		p.mu.Unlock()
	}()
	if err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.finish:
		return nil
	}
}

func (p *fakePlayer) snapshot() (played []string, maxSeen int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.played...), p.maxSeen
}

type recorder struct {
	mu     sync.Mutex
	events []core.IEvent
}

func (r *recorder) emit(event core.IEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) snapshot() []core.IEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.IEvent(nil), r.events...)
}

func waitStarted(t *testing.T, p *fakePlayer) string {
	t.Helper()
	select {
	case text := <-p.started:
		return text
	case <-time.After(2 * time.Second):
		t.Fatal("player never started")
		return ""
	}
}

func speakAsync(s *Session, text string) <-chan error {
	out := make(chan error, 1)
	go func() { out <- s.Speak(context.Background(), text, core.English) }()
	return out
}

func result(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("speak did not return")
		return nil
	}
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "Hello world", NormalizeText("**Hello** 👋   world\n"))
	assert.Equal(t, "Title code", NormalizeText("# Title `code`"))
	assert.Equal(t, "", NormalizeText("  ✨ "))
}

func TestSpeakPlaysToCompletion(t *testing.T) {
	synth, player, rec := newFakeSynth(), newFakePlayer(), &recorder{}
	s := NewSession(synth, player, DefaultConfig(), rec.emit, core.NewNopLogger())

	done := speakAsync(s, "hello")
	assert.Equal(t, "hello", waitStarted(t, player))
	assert.True(t, s.Active())
	close(player.finish)

	require.NoError(t, result(t, done))
	assert.False(t, s.Active())

	events := rec.snapshot()
	require.Len(t, events, 2)
	assert.IsType(t, &playback.PlaybackStartedEvent{}, events[0])
	ended := events[1].(*playback.PlaybackEndedEvent)
	assert.False(t, ended.Stopped)
}

func TestSpeakUsesLanguageTag(t *testing.T) {
	synth, player := newFakeSynth(), newFakePlayer()
	close(player.finish)
	s := NewSession(synth, player, DefaultConfig(), nil, core.NewNopLogger())

	require.NoError(t, s.Speak(context.Background(), "vanakkam", core.Tamil))
	assert.Equal(t, []string{"ta-IN"}, synth.tags)
}

func TestLaterSpeakWinsWhenEarlierSynthesisResolvesLate(t *testing.T) {
	synth, player := newFakeSynth(), newFakePlayer()
	s := NewSession(synth, player, DefaultConfig(), nil, core.NewNopLogger())

	releaseFirst := synth.hold("first")
	first := speakAsync(s, "first")
	require.Eventually(t, func() bool {
		synth.mu.Lock()
		defer synth.mu.Unlock()
		return len(synth.calls) == 1
	}, time.Second, time.Millisecond)

	second := speakAsync(s, "second")
	// The earlier synthesis only resolves after the newer request was issued.
	time.Sleep(5 * time.Millisecond)
	releaseFirst()

	assert.ErrorIs(t, result(t, first), ErrSuperseded)
	assert.Equal(t, "second", waitStarted(t, player))
	close(player.finish)
	require.NoError(t, result(t, second))

	played, maxSeen := player.snapshot()
	assert.Equal(t, []string{"second"}, played)
	assert.Equal(t, 1, maxSeen)
}

func TestSpeakInterruptsCurrentAudio(t *testing.T) {
	synth, player, rec := newFakeSynth(), newFakePlayer(), &recorder{}
	s := NewSession(synth, player, DefaultConfig(), rec.emit, core.NewNopLogger())

	first := speakAsync(s, "one")
	waitStarted(t, player)
	second := speakAsync(s, "two")

	assert.ErrorIs(t, result(t, first), ErrSuperseded)
	assert.Equal(t, "two", waitStarted(t, player))
	close(player.finish)
	require.NoError(t, result(t, second))

	_, maxSeen := player.snapshot()
	assert.Equal(t, 1, maxSeen)

	var stopped int
	for _, e := range rec.snapshot() {
		if ended, ok := e.(*playback.PlaybackEndedEvent); ok && ended.Stopped {
			stopped++
		}
	}
	assert.Equal(t, 1, stopped)
}

func TestStopHaltsAudioAndIsIdempotent(t *testing.T) {
	synth, player := newFakeSynth(), newFakePlayer()
	s := NewSession(synth, player, DefaultConfig(), nil, core.NewNopLogger())

	require.NoError(t, s.Stop())

	done := speakAsync(s, "long answer")
	waitStarted(t, player)
	require.NoError(t, s.Stop())
	assert.False(t, s.Active())
	require.NoError(t, s.Stop())

	require.NoError(t, result(t, done))
	player.mu.Lock()
	assert.Equal(t, 0, player.playing)
	player.mu.Unlock()
}

func TestStopDuringSynthesisPreventsPlayback(t *testing.T) {
	synth, player := newFakeSynth(), newFakePlayer()
	s := NewSession(synth, player, DefaultConfig(), nil, core.NewNopLogger())

	release := synth.hold("pending")
	done := speakAsync(s, "pending")
	require.Eventually(t, s.Active, time.Second, time.Millisecond)

	stopped := make(chan error, 1)
	go func() { stopped <- s.Stop() }()
	time.Sleep(5 * time.Millisecond)
	release()

	require.NoError(t, result(t, stopped))
	require.NoError(t, result(t, done))
	played, _ := player.snapshot()
	assert.Empty(t, played)
}

func TestSynthesisFailureIsReported(t *testing.T) {
	synth, player, rec := newFakeSynth(), newFakePlayer(), &recorder{}
	synth.err = errors.New("tts down")
	s := NewSession(synth, player, DefaultConfig(), rec.emit, core.NewNopLogger())

	err := s.Speak(context.Background(), "hi", core.English)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tts down")

	events := rec.snapshot()
	require.Len(t, events, 1)
	failed := events[0].(*playback.PlaybackFailedEvent)
	assert.Contains(t, failed.Error, "tts down")
}

func TestEmptyTextSpeaksNothing(t *testing.T) {
	synth, player := newFakeSynth(), newFakePlayer()
	s := NewSession(synth, player, DefaultConfig(), nil, core.NewNopLogger())

	require.NoError(t, s.Speak(context.Background(), "**", core.English))
	assert.Empty(t, synth.calls)
}

func TestSpeakAsyncClaimsOutputInCallOrder(t *testing.T) {
	synth, player := newFakeSynth(), newFakePlayer()
	s := NewSession(synth, player, DefaultConfig(), nil, core.NewNopLogger())

	a := s.SpeakAsync(context.Background(), "A", core.English)
	b := s.SpeakAsync(context.Background(), "B", core.English)

	assert.ErrorIs(t, result(t, a), ErrSuperseded)
	assert.Equal(t, "B", waitStarted(t, player))
	close(player.finish)
	require.NoError(t, result(t, b))

	played, _ := player.snapshot()
	assert.Equal(t, []string{"B"}, played)
}
