package store

import "convokit/core"

// State is an immutable snapshot of the conversation session.
type State struct {
	Messages           []core.Message `json:"messages"`
	CaptureActive      bool           `json:"capture_active"`
	VoiceOutputEnabled bool           `json:"voice_output_enabled"`
	PlaybackActive     bool           `json:"playback_active"`
	DarkMode           bool           `json:"dark_mode"`
	Identity           *core.Identity `json:"identity,omitempty"`
	Language           core.Language  `json:"language"`
	InterfaceLanguage  core.Language  `json:"interface_language"`
}

// InitialState is the session state before any action: dark mode and voice output on.
func InitialState() State {
	return State{
		Messages:           []core.Message{},
		VoiceOutputEnabled: true,
		DarkMode:           true,
		Language:           core.DefaultLanguage,
		InterfaceLanguage:  core.DefaultLanguage,
	}
}

// Clone deep-copies the snapshot so callers cannot alias the store's slices or identity.
func (s State) Clone() State {
	out := s
	out.Messages = make([]core.Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	if s.Identity != nil {
		id := *s.Identity
		out.Identity = &id
	}
	return out
}

// LastMessage returns the most recent message, if any.
func (s State) LastMessage() (core.Message, bool) {
	if len(s.Messages) == 0 {
		return core.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// SignedIn reports whether an identity is set.
func (s State) SignedIn() bool {
	return s.Identity != nil
}
