package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convokit/core"
	"convokit/events/capture"
)

type fakeDeviceSession struct {
	results  chan Result
	stopOnce sync.Once
	stops    int
	mu       sync.Mutex

	// delay postpones closing results after Stop, like a device flushing its last audio.
	delay time.Duration
	onEnd func()
}

func newFakeDeviceSession() *fakeDeviceSession {
	return &fakeDeviceSession{results: make(chan Result, 16)}
}

func (f *fakeDeviceSession) Results() <-chan Result { return f.results }

func (f *fakeDeviceSession) Stop() error {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	if f.delay > 0 {
		time.AfterFunc(f.delay, f.end)
		return nil
	}
	f.end()
	return nil
}

// end simulates the device closing the session.
func (f *fakeDeviceSession) end() {
	f.stopOnce.Do(func() {
		if f.onEnd != nil {
			f.onEnd()
		}
		close(f.results)
	})
}

type fakeDevice struct {
	mu          sync.Mutex
	unavailable error
	openErr     error
	sessions    []*fakeDeviceSession
	opts        []Options
	opened      chan *fakeDeviceSession
	stopDelay   time.Duration
	live        int
	peak        int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{opened: make(chan *fakeDeviceSession, 16)}
}

func (d *fakeDevice) Available() error { return d.unavailable }

func (d *fakeDevice) Open(ctx context.Context, opts Options) (IDeviceSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	s := newFakeDeviceSession()
	s.delay = d.stopDelay
	s.onEnd = func() {
		d.mu.Lock()
		d.live--
		d.mu.Unlock()
	}
	d.live++
	if d.live > d.peak {
		d.peak = d.live
	}
	d.sessions = append(d.sessions, s)
	d.opts = append(d.opts, opts)
	d.opened <- s
	return s, nil
}

func (d *fakeDevice) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

func (d *fakeDevice) maxLive() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.peak
}

type recorder struct {
	mu     sync.Mutex
	events []core.IEvent
	ch     chan core.IEvent
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan core.IEvent, 64)}
}

func (r *recorder) emit(event core.IEvent) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	r.ch <- event
}

func (r *recorder) next(t *testing.T) core.IEvent {
	t.Helper()
	select {
	case e := <-r.ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for capture event")
		return nil
	}
}

func (r *recorder) ofType(match func(core.IEvent) bool) []core.IEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.IEvent
	for _, e := range r.events {
		if match(e) {
			out = append(out, e)
		}
	}
	return out
}

func openSession(t *testing.T, device *fakeDevice) (*Session, *recorder) {
	t.Helper()
	rec := newRecorder()
	s := NewSession(device, DefaultConfig(), rec.emit, core.NewNopLogger())
	t.Cleanup(func() { _ = s.Close() })
	return s, rec
}

func TestFinalResultsSurfaceOnceOnStop(t *testing.T) {
	device := newFakeDevice()
	s, rec := openSession(t, device)

	s.SetActive(true, "")
	require.IsType(t, &capture.CaptureStartedEvent{}, rec.next(t))
	dev := <-device.opened

	dev.results <- Result{Text: "hel"}
	dev.results <- Result{Text: "hello", Final: true}
	dev.results <- Result{Text: "wor"}
	dev.results <- Result{Text: "world", Final: true}

	interim := rec.next(t).(*capture.CaptureInterimEvent)
	assert.Equal(t, "hel", interim.Text)
	interim = rec.next(t).(*capture.CaptureInterimEvent)
	assert.Equal(t, "wor", interim.Text)

	s.SetActive(false, "")
	final := rec.next(t).(*capture.CaptureFinalTranscriptEvent)
	assert.Equal(t, "hello world", final.Text)
	ended := rec.next(t).(*capture.CaptureEndedEvent)
	assert.False(t, ended.DeviceInitiated)
	assert.False(t, s.Listening())
}

func TestDeviceInitiatedEndIsReported(t *testing.T) {
	device := newFakeDevice()
	s, rec := openSession(t, device)

	s.SetActive(true, "ta-IN")
	rec.next(t)
	dev := <-device.opened
	dev.results <- Result{Text: "vanakkam", Final: true}
	dev.end()

	final := rec.next(t).(*capture.CaptureFinalTranscriptEvent)
	assert.Equal(t, "vanakkam", final.Text)
	ended := rec.next(t).(*capture.CaptureEndedEvent)
	assert.True(t, ended.DeviceInitiated)
	assert.Equal(t, "ta-IN", device.opts[0].LanguageTag)

	// Switching off after the device already ended is a no-op.
	s.SetActive(false, "")
	time.Sleep(10 * time.Millisecond)
	assert.Len(t, rec.ofType(func(e core.IEvent) bool { _, ok := e.(*capture.CaptureEndedEvent); return ok }), 1)
}

func TestEmptySessionSurfacesNothing(t *testing.T) {
	device := newFakeDevice()
	s, rec := openSession(t, device)

	s.SetActive(true, "")
	rec.next(t)
	<-device.opened
	s.SetActive(false, "")

	ended := rec.next(t)
	assert.IsType(t, &capture.CaptureEndedEvent{}, ended)
	assert.Empty(t, rec.ofType(func(e core.IEvent) bool {
		_, ok := e.(*capture.CaptureFinalTranscriptEvent)
		return ok
	}))
}

func TestUnavailableReportedOnceThenNoop(t *testing.T) {
	device := newFakeDevice()
	device.unavailable = errors.New("no recognizer")
	s, rec := openSession(t, device)

	s.SetActive(true, "")
	unavailable := rec.next(t).(*capture.CaptureUnavailableEvent)
	assert.Equal(t, "no recognizer", unavailable.Reason)

	s.SetActive(true, "")
	s.SetActive(true, "")
	time.Sleep(20 * time.Millisecond)

	assert.True(t, s.Unavailable())
	assert.Equal(t, 0, device.count())
	assert.Len(t, rec.ofType(func(e core.IEvent) bool {
		_, ok := e.(*capture.CaptureUnavailableEvent)
		return ok
	}), 1)
}

func TestOpenFailureStaysIdle(t *testing.T) {
	device := newFakeDevice()
	device.openErr = errors.New("permission denied")
	s, rec := openSession(t, device)

	s.SetActive(true, "")
	failure := rec.next(t).(*capture.CaptureErrorEvent)
	assert.Contains(t, failure.Error, "permission denied")
	assert.False(t, s.Listening())
}

func TestRepeatedActivationKeepsSingleSession(t *testing.T) {
	device := newFakeDevice()
	s, rec := openSession(t, device)

	s.SetActive(true, "")
	s.SetActive(true, "")
	rec.next(t)
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 1, device.count())
	assert.True(t, s.Listening())
}

func TestRestartOpensFreshAccumulator(t *testing.T) {
	device := newFakeDevice()
	s, rec := openSession(t, device)

	s.SetActive(true, "")
	s.SetActive(false, "")
	s.SetActive(true, "")

	first := rec.next(t).(*capture.CaptureStartedEvent)
	<-device.opened
	ended := rec.next(t).(*capture.CaptureEndedEvent)
	assert.Equal(t, first.Session, ended.Session)
	second := rec.next(t).(*capture.CaptureStartedEvent)
	assert.Greater(t, second.Session, first.Session)

	dev := <-device.opened
	dev.results <- Result{Text: "fresh", Final: true}
	s.SetActive(false, "")

	final := rec.next(t).(*capture.CaptureFinalTranscriptEvent)
	assert.Equal(t, "fresh", final.Text)
	assert.Equal(t, second.Session, final.Session)
}

func TestActivationWaitsForSlowTeardown(t *testing.T) {
	device := newFakeDevice()
	device.stopDelay = 100 * time.Millisecond
	s, _ := openSession(t, device)

	s.SetActive(true, "")
	first := <-device.opened
	s.SetActive(false, "")
	s.SetActive(true, "")

	select {
	case <-device.opened:
		t.Fatal("second session opened while the first was still tearing down")
	case <-time.After(50 * time.Millisecond):
	}

	select {
	case <-device.opened:
	case <-time.After(2 * time.Second):
		t.Fatal("second session never opened")
	}
	_, open := <-first.results
	assert.False(t, open)
	assert.Equal(t, 2, device.count())
	assert.Equal(t, 1, device.maxLive())
}
