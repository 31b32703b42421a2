package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"convokit/core"
	"convokit/events/playback"
)

var ErrSuperseded = errors.New("speech superseded by a newer request")

type ISynthesizer interface {
	Synthesize(ctx context.Context, text string, languageTag string) (core.AudioClip, error)
}

// IPlayer renders a clip. Play blocks until the audio has finished or ctx is cancelled, and must
// not start any audio once ctx is done.
type IPlayer interface {
	Play(ctx context.Context, clip core.AudioClip) error
}

type utterance struct {
	id         int
	cancel     context.CancelFunc
	done       chan struct{}
	stopped    bool
	superseded bool
}

// Session owns the single audio output. The most recent Speak wins: earlier requests are
// cancelled, and a request whose synthesis finishes after it was superseded never plays.
type Session struct {
	synth  ISynthesizer
	player IPlayer
	config Config
	emit   core.Emitter
	logger *core.Logger

	mu         sync.Mutex
	generation int
	current    *utterance
}

func NewSession(synth ISynthesizer, player IPlayer, config Config, emit core.Emitter, logger *core.Logger) *Session {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Session{
		synth:  synth,
		player: player,
		config: config,
		emit:   emit,
		logger: logger.With(map[string]any{"component": "playback"}),
	}
}

// Active reports whether a request is synthesizing or playing.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Speak stops whatever is playing, synthesizes text in the given language and plays it. It returns
// once the audio has ended. A request overtaken by a newer Speak returns ErrSuperseded; one halted
// by Stop returns nil.
func (s *Session) Speak(ctx context.Context, text string, language core.Language) error {
	return <-s.SpeakAsync(ctx, text, language)
}

// SpeakAsync claims the output before returning, so of two calls made in sequence the later one
// always wins. The request then runs in the background and its outcome is delivered on the
// returned channel.
func (s *Session) SpeakAsync(ctx context.Context, text string, language core.Language) <-chan error {
	uctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.generation++
	u := &utterance{id: s.generation, cancel: cancel, done: make(chan struct{})}
	prev := s.current
	s.current = u
	if prev != nil {
		prev.superseded = true
		prev.cancel()
	}
	s.mu.Unlock()

	result := make(chan error, 1)
	go func() {
		defer func() {
			cancel()
			s.mu.Lock()
			if s.current == u {
				s.current = nil
			}
			s.mu.Unlock()
			close(u.done)
		}()
		if prev != nil {
			<-prev.done
		}
		result <- s.run(uctx, u, NormalizeText(text), language)
	}()
	return result
}

func (s *Session) run(ctx context.Context, u *utterance, text string, language core.Language) error {
	if text == "" {
		return nil
	}
	if over, outcome := s.interrupted(u); over {
		return outcome
	}

	logger := s.logger.With(map[string]any{"utterance": u.id})
	clip, err := s.synthesize(ctx, text, language.Tag())
	if over, outcome := s.interrupted(u); over {
		logger.Debug("dropping synthesized audio")
		return outcome
	}
	if err != nil {
		logger.WithError(err).Error("speech synthesis failed")
		s.emit.Emit(&playback.PlaybackFailedEvent{Utterance: u.id, Error: err.Error()})
		return fmt.Errorf("synthesize speech: %w", err)
	}

	s.emit.Emit(&playback.PlaybackStartedEvent{Utterance: u.id, Text: text})
	err = s.player.Play(ctx, clip)
	over, outcome := s.interrupted(u)
	s.emit.Emit(&playback.PlaybackEndedEvent{Utterance: u.id, Stopped: over})
	if over {
		return outcome
	}
	if err != nil {
		logger.WithError(err).Error("audio playback failed")
		s.emit.Emit(&playback.PlaybackFailedEvent{Utterance: u.id, Error: err.Error()})
		return fmt.Errorf("play speech: %w", err)
	}
	return nil
}

// Stop halts and releases the current audio and returns once the player has let go of it. Without
// active audio it does nothing.
func (s *Session) Stop() error {
	s.mu.Lock()
	u := s.current
	if u != nil {
		u.stopped = true
	}
	s.mu.Unlock()

	if u == nil {
		return nil
	}
	s.logger.Debug("stopping speech", "utterance", u.id)
	u.cancel()
	<-u.done
	return nil
}

func (s *Session) synthesize(ctx context.Context, text, tag string) (core.AudioClip, error) {
	if s.config.SynthesisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.SynthesisTimeout)
		defer cancel()
	}
	clip, err := s.synth.Synthesize(ctx, text, tag)
	if err == nil && len(clip.Data) == 0 {
		err = errors.New("synthesizer returned no audio")
	}
	return clip, err
}

// interrupted reports whether u lost the output, and what Speak should return if so.
func (s *Session) interrupted(u *utterance) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case u.superseded:
		return true, ErrSuperseded
	case u.stopped:
		return true, nil
	default:
		return false, nil
	}
}
