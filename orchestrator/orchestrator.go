package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"convokit/core"
	"convokit/events/capture"
	"convokit/events/chat"
	"convokit/events/playback"
	capturehandler "convokit/handlers/capture"
	playbackhandler "convokit/handlers/playback"
	"convokit/handlers/typewriter"
	"convokit/store"
)

// Dependencies are the collaborators an Orchestrator coordinates. Store, Device, Identities and
// Authenticator are optional.
type Dependencies struct {
	Store         *store.Store
	Assistant     IAssistant
	Uploader      IUploader
	Authenticator IAuthenticator
	Identities    IIdentityStore
	Device        capturehandler.IDevice
	Synthesizer   playbackhandler.ISynthesizer
	Player        playbackhandler.IPlayer
}

// Orchestrator turns user intents into coordinated calls on the store, the renderer, the capture
// and playback sessions and the remote collaborators. Every intent is handled on one goroutine;
// collaborator calls run in the background and post their completion back onto it.
//
// Observers run on internal goroutines and must not call intents synchronously.
type Orchestrator struct {
	config        Config
	store         *store.Store
	assistant     IAssistant
	uploader      IUploader
	authenticator IAuthenticator
	identities    IIdentityStore

	renderer *typewriter.Renderer
	capture  *capturehandler.Session
	speech   *playbackhandler.Session
	logger   *core.Logger
	now      func() time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	tasks    chan func()
	loopDone chan struct{}
	inflight sync.WaitGroup
	closeMu  sync.Once

	// Owned by the loop goroutine.
	sends              map[string]int
	uploading          bool
	utterance          int
	captureUnavailable bool
	captureToggles     int
	captureSession     int
	captureSessionMark int

	mu      sync.RWMutex
	errSlot string
	pending *Attachment

	obsMu     sync.RWMutex
	observers []func(core.IEvent)
}

func New(deps Dependencies, config Config, logger *core.Logger) (*Orchestrator, error) {
	switch {
	case deps.Assistant == nil:
		return nil, errors.New("orchestrator: assistant is required")
	case deps.Uploader == nil:
		return nil, errors.New("orchestrator: uploader is required")
	case deps.Synthesizer == nil || deps.Player == nil:
		return nil, errors.New("orchestrator: synthesizer and player are required")
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConfig().QueueSize
	}
	if deps.Store == nil {
		deps.Store = store.New(store.WithLogger(logger))
	}
	if deps.Identities == nil {
		deps.Identities = &memoryIdentities{}
	}
	if deps.Device == nil {
		deps.Device = missingDevice{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		config:        config,
		store:         deps.Store,
		assistant:     deps.Assistant,
		uploader:      deps.Uploader,
		authenticator: deps.Authenticator,
		identities:    deps.Identities,
		logger:        logger.With(map[string]any{"component": "orchestrator"}),
		now:           time.Now,
		ctx:           ctx,
		cancel:        cancel,
		tasks:         make(chan func(), config.QueueSize),
		loopDone:      make(chan struct{}),
		sends:         make(map[string]int),
	}
	o.renderer = typewriter.NewRenderer(config.Typewriter, o.notify, logger)
	o.capture = capturehandler.NewSession(deps.Device, config.Capture, o.componentEvent, logger)
	o.speech = playbackhandler.NewSession(deps.Synthesizer, deps.Player, config.Playback, o.componentEvent, logger)
	o.store.Subscribe(func(state store.State) {
		o.notify(&chat.StateChangedEvent{State: state})
	})

	go o.eventLoop()
	return o, nil
}

// Init restores the remembered identity.
func (o *Orchestrator) Init(ctx context.Context) error {
	return o.Restore(ctx)
}

// Cleanup stops the loop, cancels in-flight collaborator calls and releases both audio devices.
func (o *Orchestrator) Cleanup() error {
	o.closeMu.Do(func() {
		o.cancel()
		<-o.loopDone
		o.renderer.Close()
		_ = o.capture.Close()
		_ = o.speech.Stop()
		o.inflight.Wait()
	})
	return nil
}

// Observe registers fn for every event the orchestrator and its components produce.
func (o *Orchestrator) Observe(fn func(core.IEvent)) {
	o.obsMu.Lock()
	defer o.obsMu.Unlock()
	o.observers = append(o.observers, fn)
}

// State is a snapshot of the conversation state.
func (o *Orchestrator) State() store.State {
	return o.store.State()
}

// Error returns the current content of the error slot.
func (o *Orchestrator) Error() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.errSlot
}

// PendingAttachment returns the attachment waiting for upload.
func (o *Orchestrator) PendingAttachment() (Attachment, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.pending == nil {
		return Attachment{}, false
	}
	return *o.pending, true
}

func (o *Orchestrator) notify(event core.IEvent) {
	o.obsMu.RLock()
	defer o.obsMu.RUnlock()
	for _, fn := range o.observers {
		fn(event)
	}
}

// componentEvent forwards capture and playback events to observers and hands them to the loop.
func (o *Orchestrator) componentEvent(event core.IEvent) {
	o.notify(event)
	o.post(func() { o.handleComponentEvent(event) })
}

func (o *Orchestrator) eventLoop() {
	defer close(o.loopDone)
	for {
		select {
		case <-o.ctx.Done():
			return
		case task := <-o.tasks:
			task()
		}
	}
}

// post queues fn on the loop without waiting for it.
func (o *Orchestrator) post(fn func()) {
	select {
	case o.tasks <- fn:
	case <-o.ctx.Done():
	}
}

// do runs fn on the loop and waits for its result.
func (o *Orchestrator) do(fn func() error) error {
	result := make(chan error, 1)
	select {
	case o.tasks <- func() { result <- fn() }:
	case <-o.ctx.Done():
		return ErrClosed
	}
	select {
	case err := <-result:
		return err
	case <-o.loopDone:
		select {
		case err := <-result:
			return err
		default:
			return ErrClosed
		}
	}
}

// background runs a collaborator call off the loop and posts complete back onto it.
func (o *Orchestrator) background(call func(ctx context.Context) func()) {
	o.inflight.Add(1)
	go func() {
		defer o.inflight.Done()
		ctx := o.ctx
		if o.config.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, o.config.RequestTimeout)
			defer cancel()
		}
		complete := call(ctx)
		if complete != nil {
			o.post(complete)
		}
	}()
}

func (o *Orchestrator) reportError(kind core.ErrorKind, message string, err error) {
	o.logger.With(map[string]any{"kind": kind}).WithError(err).Warn(message)
	o.mu.Lock()
	o.errSlot = message
	o.mu.Unlock()
	o.notify(&core.ErrorReportedEvent{Kind: kind, Message: message})
}

func (o *Orchestrator) clearError() {
	o.mu.Lock()
	had := o.errSlot != ""
	o.errSlot = ""
	o.mu.Unlock()
	if had {
		o.notify(&core.ErrorDismissedEvent{})
	}
}

func (o *Orchestrator) appendMessage(sender core.Sender, text string) core.Message {
	msg := core.NewMessage(sender, text, o.now())
	o.store.Dispatch(store.AppendMessage{Message: msg})
	o.notify(&chat.MessageAppendedEvent{Message: msg})
	return msg
}

// DismissError clears the error slot.
func (o *Orchestrator) DismissError() error {
	return o.do(func() error {
		o.clearError()
		return nil
	})
}

func (o *Orchestrator) ToggleDarkMode() error {
	return o.do(func() error {
		o.store.Dispatch(store.ToggleDarkMode{})
		return nil
	})
}

// ToggleVoiceOutput only gates future responses; audio already playing keeps playing.
func (o *Orchestrator) ToggleVoiceOutput() error {
	return o.do(func() error {
		o.store.Dispatch(store.ToggleVoiceOutput{})
		return nil
	})
}

// StopSpeech halts the current audio regardless of the voice output flag.
func (o *Orchestrator) StopSpeech() error {
	return o.speech.Stop()
}

// SetLanguage selects the language responses and speech are requested in.
func (o *Orchestrator) SetLanguage(name string) error {
	lang, ok := core.ParseLanguage(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLanguage, name)
	}
	return o.do(func() error {
		o.store.Dispatch(store.SetResponseLanguage{Language: lang})
		return nil
	})
}

func (o *Orchestrator) SetInterfaceLanguage(name string) error {
	lang, ok := core.ParseLanguage(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLanguage, name)
	}
	return o.do(func() error {
		o.store.Dispatch(store.SetInterfaceLanguage{Language: lang})
		return nil
	})
}

func (o *Orchestrator) handleComponentEvent(event core.IEvent) {
	switch e := event.(type) {
	case *capture.CaptureStartedEvent:
		o.captureSession = e.Session
		o.captureSessionMark = o.captureToggles
	case *capture.CaptureFinalTranscriptEvent:
		o.handleTranscript(e.Text)
	case *capture.CaptureEndedEvent:
		o.handleCaptureEnded(e)
	case *capture.CaptureUnavailableEvent:
		o.captureUnavailable = true
		o.reportError(core.ErrorKindDevice, msgCaptureMissing, errors.New(e.Reason))
		o.resetCaptureFlag()
	case *capture.CaptureErrorEvent:
		o.reportError(core.ErrorKindDevice, msgCaptureFailed, errors.New(e.Error))
		o.resetCaptureFlag()
	case *playback.PlaybackStartedEvent:
		o.utterance = e.Utterance
		if !o.store.State().PlaybackActive {
			o.store.Dispatch(store.SetPlaybackActive{Active: true})
		}
	case *playback.PlaybackEndedEvent:
		if e.Utterance == o.utterance && o.store.State().PlaybackActive {
			o.store.Dispatch(store.SetPlaybackActive{Active: false})
		}
	case *playback.PlaybackFailedEvent:
		o.reportError(core.ErrorKindPlayback, msgPlaybackFailed, errors.New(e.Error))
	}
}
