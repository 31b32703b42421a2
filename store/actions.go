package store

import "convokit/core"

// Action is a typed state transition request. Actions carry data only; all logic lives in Reduce.
type Action interface {
	ActionName() string
}

type AppendMessage struct {
	Message core.Message
}

func (AppendMessage) ActionName() string { return "append_message" }

type ToggleCapture struct{}

func (ToggleCapture) ActionName() string { return "toggle_capture" }

type ToggleDarkMode struct{}

func (ToggleDarkMode) ActionName() string { return "toggle_dark_mode" }

type ToggleVoiceOutput struct{}

func (ToggleVoiceOutput) ActionName() string { return "toggle_voice_output" }

// SetIdentity with a nil Identity signs the user out.
type SetIdentity struct {
	Identity *core.Identity
}

func (SetIdentity) ActionName() string { return "set_identity" }

type SetResponseLanguage struct {
	Language core.Language
}

func (SetResponseLanguage) ActionName() string { return "set_response_language" }

type SetInterfaceLanguage struct {
	Language core.Language
}

func (SetInterfaceLanguage) ActionName() string { return "set_interface_language" }

type SetPlaybackActive struct {
	Active bool
}

func (SetPlaybackActive) ActionName() string { return "set_playback_active" }
