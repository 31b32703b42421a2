package store

import "convokit/core"

// Reduce applies one action to a state and returns the next state. It never mutates its input
// and never performs I/O. Unknown actions return the prior state.
func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case AppendMessage:
		for _, m := range state.Messages {
			if m.ID == a.Message.ID {
				return state
			}
		}
		next := state
		next.Messages = make([]core.Message, 0, len(state.Messages)+1)
		next.Messages = append(next.Messages, state.Messages...)
		next.Messages = append(next.Messages, a.Message)
		return next
	case ToggleCapture:
		state.CaptureActive = !state.CaptureActive
		return state
	case ToggleDarkMode:
		state.DarkMode = !state.DarkMode
		return state
	case ToggleVoiceOutput:
		state.VoiceOutputEnabled = !state.VoiceOutputEnabled
		return state
	case SetIdentity:
		if a.Identity == nil {
			state.Identity = nil
			return state
		}
		id := *a.Identity
		state.Identity = &id
		return state
	case SetResponseLanguage:
		if !a.Language.Valid() {
			return state
		}
		state.Language = a.Language
		return state
	case SetInterfaceLanguage:
		if !a.Language.Valid() {
			return state
		}
		state.InterfaceLanguage = a.Language
		return state
	case SetPlaybackActive:
		state.PlaybackActive = a.Active
		return state
	default:
		return state
	}
}
