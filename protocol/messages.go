package protocol

import (
	"encoding/json"
	"time"

	"convokit/store"
)

// Intent ids accepted from presentation clients.
const (
	IntentSend                 = "chat.send"
	IntentAttach               = "chat.attach"
	IntentUpload               = "chat.upload"
	IntentDiscardAttachment    = "chat.discard_attachment"
	IntentToggleCapture        = "capture.toggle"
	IntentToggleVoiceOutput    = "playback.toggle_voice_output"
	IntentStopSpeech           = "playback.stop"
	IntentToggleDarkMode       = "ui.toggle_dark_mode"
	IntentSetLanguage          = "ui.set_language"
	IntentSetInterfaceLanguage = "ui.set_interface_language"
	IntentLogin                = "auth.login"
	IntentSignup               = "auth.signup"
	IntentLogout               = "auth.logout"
	IntentDismissError         = "shared.dismiss_error"
)

// Ids the bridge itself sends, next to the forwarded orchestrator events.
const (
	EventSnapshot       = "bridge.snapshot"
	EventIntentRejected = "bridge.intent_rejected"
)

// WireEvent is the JSON envelope used in both directions on the WebSocket connection.
//
//	{"id": "<event id>", "uid": "...", "ts": "...", "payload": { /* event-specific fields */ }}
type WireEvent struct {
	ID        string          `json:"id"`
	UID       string          `json:"uid,omitempty"`
	Timestamp *time.Time      `json:"ts,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// --- client -> bridge payloads ---

type SendPayload struct {
	Text string `json:"text"`
}

// AttachPayload selects a document. Either Path (readable by the bridge process, honoured only
// when the bridge allows file paths) or Data is set.
type AttachPayload struct {
	Name string `json:"name,omitempty"`
	Path string `json:"path,omitempty"`
	Data []byte `json:"data,omitempty"`
}

type LanguagePayload struct {
	Language string `json:"language"`
}

type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// --- bridge -> client payloads ---

// SnapshotPayload is sent once to every client right after it connects.
type SnapshotPayload struct {
	State store.State `json:"state"`
	Error string      `json:"error,omitempty"`
}

type IntentRejectedPayload struct {
	Intent string `json:"intent"`
	Error  string `json:"error"`
}
