package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"convokit/core"
	"convokit/events/capture"
)

var ErrCaptureUnavailable = errors.New("speech capture unavailable")

// Result is one recognition hypothesis. Interim results are replaced by the next one, final results
// accumulate until the session ends.
type Result struct {
	Text  string
	Final bool
}

// IDeviceSession is one open listening session on a device. Results must be closed once the session
// has ended, whichever side ended it.
type IDeviceSession interface {
	Results() <-chan Result
	Stop() error
}

type IDevice interface {
	// Available returns a non-nil error when the platform offers no recognizer at all.
	Available() error
	Open(ctx context.Context, opts Options) (IDeviceSession, error)
}

type command struct {
	active bool
	lang   string
}

type listening struct {
	id          int
	device      IDeviceSession
	cancel      context.CancelFunc
	done        chan struct{}
	userStopped bool

	interim string
	finals  []string
}

func (l *listening) transcript() string {
	return strings.Join(strings.Fields(strings.Join(l.finals, " ")), " ")
}

// Session drives a device through idle and listening. Activation commands are applied in call
// order by the session's own goroutine; a new session never opens before the previous one has torn
// down.
type Session struct {
	device IDevice
	config Config
	emit   core.Emitter
	logger *core.Logger

	commands chan command
	ctx      context.Context
	cancel   context.CancelFunc
	loopDone chan struct{}

	mu          sync.Mutex
	current     *listening
	unavailable bool
	reported    bool
	seq         int
}

func NewSession(device IDevice, config Config, emit core.Emitter, logger *core.Logger) *Session {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConfig().QueueSize
	}
	if config.LanguageTag == "" {
		config.LanguageTag = DefaultConfig().LanguageTag
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		device:   device,
		config:   config,
		emit:     emit,
		logger:   logger.With(map[string]any{"component": "capture"}),
		commands: make(chan command, config.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
		loopDone: make(chan struct{}),
	}
	go s.eventLoop()
	return s
}

// SetActive requests listening (true) or idle (false). The transition happens asynchronously;
// observe the emitted events for its outcome. lang overrides the configured language tag for the
// session being opened when non-empty.
func (s *Session) SetActive(active bool, lang string) {
	select {
	case s.commands <- command{active: active, lang: lang}:
	case <-s.ctx.Done():
	}
}

// Listening reports whether a device session is currently open.
func (s *Session) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && !s.current.userStopped
}

// Unavailable reports whether the device was found missing.
func (s *Session) Unavailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unavailable
}

// Close stops any open session and the command loop.
func (s *Session) Close() error {
	s.cancel()
	<-s.loopDone
	s.stopCurrent()
	return nil
}

func (s *Session) eventLoop() {
	defer close(s.loopDone)
	for {
		select {
		case <-s.ctx.Done():
			return
		case cmd := <-s.commands:
			if cmd.active {
				s.start(cmd.lang)
			} else {
				s.stopCurrent()
			}
		}
	}
}

func (s *Session) start(lang string) {
	s.mu.Lock()
	if s.unavailable {
		s.mu.Unlock()
		s.logger.Debug("ignoring activation, capture unavailable")
		return
	}
	current := s.current
	s.mu.Unlock()

	if current != nil {
		if !current.userStopped {
			return
		}
		// A stop is still tearing down, the new session must not overlap it.
		<-current.done
	}

	if err := s.device.Available(); err != nil {
		s.mu.Lock()
		s.unavailable = true
		first := !s.reported
		s.reported = true
		s.mu.Unlock()
		if first {
			s.logger.WithError(err).Warn("speech capture unavailable")
			s.emit.Emit(&capture.CaptureUnavailableEvent{Reason: err.Error()})
		}
		return
	}

	if lang == "" {
		lang = s.config.LanguageTag
	}
	ctx, cancel := context.WithCancel(s.ctx)
	dev, err := s.device.Open(ctx, Options{LanguageTag: lang, InterimResults: s.config.InterimResults})
	if err != nil {
		cancel()
		s.logger.WithError(err).Error("failed to open capture device")
		s.emit.Emit(&capture.CaptureErrorEvent{Error: fmt.Sprintf("open capture device: %v", err)})
		return
	}

	s.mu.Lock()
	s.seq++
	l := &listening{id: s.seq, device: dev, cancel: cancel, done: make(chan struct{})}
	s.current = l
	s.mu.Unlock()

	s.logger.Info("capture started", "session", l.id, "language", lang)
	s.emit.Emit(&capture.CaptureStartedEvent{Session: l.id})
	go s.consume(l)
}

func (s *Session) stopCurrent() {
	s.mu.Lock()
	l := s.current
	if l == nil || l.userStopped {
		s.mu.Unlock()
		if l != nil {
			<-l.done
		}
		return
	}
	l.userStopped = true
	s.mu.Unlock()

	// The device flushes its last results before closing them, so its context stays alive until
	// finish.
	if err := l.device.Stop(); err != nil {
		s.logger.WithError(err).Warn("capture device stop failed")
		l.cancel()
	}
	<-l.done
}

func (s *Session) consume(l *listening) {
	for result := range l.device.Results() {
		text := strings.TrimSpace(result.Text)
		s.mu.Lock()
		if result.Final {
			if text != "" {
				l.finals = append(l.finals, text)
			}
			l.interim = ""
		} else {
			l.interim = text
		}
		s.mu.Unlock()

		if !result.Final && text != "" {
			s.emit.Emit(&capture.CaptureInterimEvent{Session: l.id, Text: text})
		}
	}
	s.finish(l)
}

// finish runs exactly once per listening session, after the device closed its results.
func (s *Session) finish(l *listening) {
	l.cancel()

	s.mu.Lock()
	deviceInitiated := !l.userStopped
	transcript := l.transcript()
	if s.current == l {
		s.current = nil
	}
	s.mu.Unlock()

	if transcript != "" {
		s.emit.Emit(&capture.CaptureFinalTranscriptEvent{Session: l.id, Text: transcript})
	}
	s.logger.Info("capture ended", "session", l.id, "device_initiated", deviceInitiated)
	s.emit.Emit(&capture.CaptureEndedEvent{Session: l.id, DeviceInitiated: deviceInitiated})
	close(l.done)
}
