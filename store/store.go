package store

import (
	"sync"

	"convokit/core"
)

// PresentationHook mirrors the dark-mode flag into the rendering engine.
type PresentationHook func(dark bool)

// Store owns the single ConversationState of the process. All mutation goes through Dispatch,
// which applies actions strictly in call order.
type Store struct {
	dispatchMu sync.Mutex // serializes whole dispatches, notifications included

	mu    sync.RWMutex
	state State

	hook        PresentationHook
	subscribers []func(State)
	logger      *core.Logger
}

type Option func(*Store)

// WithPresentationHook installs the dark-mode hook. It runs once with the initial value.
func WithPresentationHook(hook PresentationHook) Option {
	return func(s *Store) { s.hook = hook }
}

// WithInitialState replaces InitialState, mostly for tests.
func WithInitialState(state State) Option {
	return func(s *Store) { s.state = state.Clone() }
}

func WithLogger(logger *core.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func New(opts ...Option) *Store {
	s := &Store{state: InitialState()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = core.GetLogger()
	}
	s.logger = s.logger.With(map[string]any{"component": "store"})
	if s.hook != nil {
		s.hook(s.state.DarkMode)
	}
	return s
}

// State returns a snapshot that is safe to keep and read from any goroutine.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Subscribe registers fn to run after every dispatch, in dispatch order. fn must not call
// Dispatch.
func (s *Store) Subscribe(fn func(State)) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Dispatch applies action and returns the resulting snapshot. It never fails.
func (s *Store) Dispatch(action Action) State {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	prev := s.state
	next := Reduce(prev, action)
	s.state = next
	s.mu.Unlock()

	s.logger.Debug("dispatched", "action", action.ActionName())

	if s.hook != nil && next.DarkMode != prev.DarkMode {
		s.hook(next.DarkMode)
	}
	snapshot := next.Clone()
	for _, fn := range s.subscribers {
		fn(snapshot)
	}
	return snapshot
}
