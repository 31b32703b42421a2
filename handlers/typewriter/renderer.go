package typewriter

import (
	"context"
	"sync"
	"time"

	"convokit/core"
	"convokit/events/typewriter"
)

// Renderer reveals finalized texts one rune per tick, one reveal per display slot. Starting a
// reveal in a slot supersedes the previous one; a superseded or released reveal never emits again.
//
// Events are emitted while the renderer lock is held, so the emitter must not call back into the
// renderer.
type Renderer struct {
	config Config
	emit   core.Emitter
	logger *core.Logger

	mu    sync.Mutex
	slots map[string]*Reveal
}

func NewRenderer(config Config, emit core.Emitter, logger *core.Logger) *Renderer {
	defaults := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Renderer{
		config: config,
		emit:   emit,
		logger: logger.With(map[string]any{"component": "typewriter"}),
		slots:  make(map[string]*Reveal),
	}
}

// Reveal is the handle of one in-flight or finished reveal.
type Reveal struct {
	slot   string
	target []rune

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	shown     int
	ticks     int
	completed bool

	release func()
}

// Slot the reveal belongs to.
func (rv *Reveal) Slot() string { return rv.slot }

// Text is what the slot currently displays.
func (rv *Reveal) Text() string {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	return string(rv.target[:rv.shown])
}

// Ticks counts the runes revealed so far.
func (rv *Reveal) Ticks() int {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	return rv.ticks
}

// Completed reports whether the full text has been revealed.
func (rv *Reveal) Completed() bool {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	return rv.completed
}

// Done is closed once the reveal's timer has been released, by completion or cancellation.
func (rv *Reveal) Done() <-chan struct{} { return rv.done }

// Cancel releases the reveal. It is a no-op after completion.
func (rv *Reveal) Cancel() { rv.release() }

// Start reveals text in slot, discarding whatever reveal the slot had.
func (r *Renderer) Start(slot, text string) *Reveal {
	ctx, cancel := context.WithCancel(context.Background())
	rv := &Reveal{
		slot:   slot,
		target: []rune(CleanText(text, r.config.StripChars)),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	rv.release = func() { r.releaseReveal(rv) }

	r.mu.Lock()
	if old, ok := r.slots[slot]; ok {
		old.cancel()
		r.logger.Debug("superseded reveal", "slot", slot)
	}
	r.slots[slot] = rv
	r.mu.Unlock()

	go r.run(rv)
	return rv
}

// Release tears down the slot; its reveal stops and emits nothing further.
func (r *Renderer) Release(slot string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rv, ok := r.slots[slot]; ok {
		rv.cancel()
		delete(r.slots, slot)
	}
}

// Close releases every slot.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for slot, rv := range r.slots {
		rv.cancel()
		delete(r.slots, slot)
	}
}

// Active returns the number of reveals still running.
func (r *Renderer) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

func (r *Renderer) releaseReveal(rv *Reveal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv.cancel()
	if r.slots[rv.slot] == rv {
		delete(r.slots, rv.slot)
	}
}

func (r *Renderer) run(rv *Reveal) {
	defer close(rv.done)

	if len(rv.target) == 0 {
		r.step(rv)
		return
	}

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-rv.ctx.Done():
			return
		case <-ticker.C:
		}
		if finished := r.step(rv); finished {
			return
		}
	}
}

// step reveals one more rune. It returns true when the reveal is over, either because it
// completed or because it no longer owns its slot.
func (r *Renderer) step(rv *Reveal) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rv.ctx.Err() != nil || r.slots[rv.slot] != rv {
		return true
	}

	rv.mu.Lock()
	if rv.shown < len(rv.target) {
		rv.shown++
		rv.ticks++
	}
	prefix := string(rv.target[:rv.shown])
	tick := rv.ticks
	finished := rv.shown == len(rv.target)
	if finished {
		rv.completed = true
	}
	rv.mu.Unlock()

	if tick > 0 {
		r.emit.Emit(&typewriter.RevealTickEvent{Slot: rv.slot, Prefix: prefix, Tick: tick})
	}
	if finished {
		r.emit.Emit(&typewriter.RevealCompletedEvent{Slot: rv.slot, Text: prefix})
		delete(r.slots, rv.slot)
		rv.cancel()
	}
	return finished
}
