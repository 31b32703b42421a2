package orchestrator

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"convokit/core"
	capturehandler "convokit/handlers/capture"
)

type fakeAssistant struct {
	mu    sync.Mutex
	calls []string
	langs []core.Language
	gates map[string]chan struct{}
	fail  error
}

func newFakeAssistant() *fakeAssistant {
	return &fakeAssistant{gates: make(map[string]chan struct{})}
}

func (f *fakeAssistant) hold(text string) func() {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[text] = gate
	f.mu.Unlock()
	return func() { close(gate) }
}

func (f *fakeAssistant) Respond(ctx context.Context, message string, language core.Language) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, message)
	f.langs = append(f.langs, language)
	gate := f.gates[message]
	fail := f.fail
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if fail != nil {
		return "", fail
	}
	return "re: " + message, nil
}

func (f *fakeAssistant) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeUploader struct {
	mu       sync.Mutex
	names    []string
	contents []string
	langs    []core.Language
	gate     chan struct{}
	fail     error
}

func (f *fakeUploader) Upload(ctx context.Context, name string, content io.Reader, language core.Language) (string, error) {
	body, _ := io.ReadAll(content)
	f.mu.Lock()
	f.names = append(f.names, name)
	f.contents = append(f.contents, string(body))
	f.langs = append(f.langs, language)
	gate := f.gate
	fail := f.fail
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if fail != nil {
		return "", fail
	}
	return "stored", nil
}

func (f *fakeUploader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.names)
}

type fakeSynth struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeSynth) Synthesize(_ context.Context, text string, _ string) (core.AudioClip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return core.AudioClip{Data: []byte(text), MediaType: core.MediaTypeAudioMP3}, nil
}

func (f *fakeSynth) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

// fakePlayer plays until the context is cancelled unless instant is set.
type fakePlayer struct {
	instant bool

	mu      sync.Mutex
	playing int
	played  []string
}

func (p *fakePlayer) Play(ctx context.Context, clip core.AudioClip) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.mu.Lock()
	p.playing++
	p.played = append(p.played, string(clip.Data))
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.playing--
		p.mu.Unlock()
	}()
	if p.instant {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *fakePlayer) active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.played)
}

type fakeDeviceSession struct {
	results chan capturehandler.Result
	once    sync.Once
}

func (s *fakeDeviceSession) Results() <-chan capturehandler.Result { return s.results }

func (s *fakeDeviceSession) Stop() error {
	s.end()
	return nil
}

func (s *fakeDeviceSession) end() {
	s.once.Do(func() { close(s.results) })
}

type fakeDevice struct {
	unavailable error
	opened      chan *fakeDeviceSession
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{opened: make(chan *fakeDeviceSession, 8)}
}

func (d *fakeDevice) Available() error { return d.unavailable }

func (d *fakeDevice) Open(context.Context, capturehandler.Options) (capturehandler.IDeviceSession, error) {
	s := &fakeDeviceSession{results: make(chan capturehandler.Result, 8)}
	d.opened <- s
	return s, nil
}

type fakeAuth struct {
	identity core.Identity
	fail     error
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (core.Identity, error) {
	if f.fail != nil {
		return core.Identity{}, f.fail
	}
	if password != "secret" {
		return core.Identity{}, errors.New("invalid email or password")
	}
	id := f.identity
	id.Email = email
	return id, nil
}

func (f *fakeAuth) Signup(_ context.Context, username, email, _ string) (core.Identity, error) {
	if f.fail != nil {
		return core.Identity{}, f.fail
	}
	return core.Identity{ID: "new", Email: email, DisplayName: username}, nil
}

func textAttachment(name, body string) Attachment {
	return Attachment{
		Name: name,
		Size: int64(len(body)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(body)), nil },
	}
}
