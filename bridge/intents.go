package bridge

import (
	"errors"
	"path/filepath"

	"convokit/orchestrator"
	"convokit/protocol"
	"convokit/store"
)

var (
	errUnknownIntent = errors.New("unknown intent")
	errNoAttachment  = errors.New("attach needs a path or data")
	errPathsDisabled = errors.New("attach by path is disabled, send the file data")
)

// IIntents is the orchestrator surface the bridge drives.
type IIntents interface {
	Send(text string) error
	SelectAttachment(a orchestrator.Attachment) error
	Upload() error
	DiscardAttachment() error
	ToggleCapture() error
	ToggleVoiceOutput() error
	StopSpeech() error
	ToggleDarkMode() error
	SetLanguage(name string) error
	SetInterfaceLanguage(name string) error
	Login(email, password string) error
	Signup(username, email, password string) error
	SignOut() error
	DismissError() error
	State() store.State
	Error() string
}

type intentFunc func(payload []byte) error

func noPayload(fn func() error) intentFunc {
	return func([]byte) error { return fn() }
}

func withPayload[T any](fn func(T) error) intentFunc {
	return func(raw []byte) error {
		v, err := protocol.UnmarshalPayload[T](raw)
		if err != nil {
			return err
		}
		return fn(v)
	}
}

func intentTable(o IIntents, allowPaths bool) map[string]intentFunc {
	if o == nil {
		return map[string]intentFunc{}
	}
	return map[string]intentFunc{
		protocol.IntentSend: withPayload(func(p protocol.SendPayload) error {
			return o.Send(p.Text)
		}),
		protocol.IntentAttach: withPayload(func(p protocol.AttachPayload) error {
			attachment, err := attachmentFrom(p, allowPaths)
			if err != nil {
				return err
			}
			return o.SelectAttachment(attachment)
		}),
		protocol.IntentUpload:            noPayload(o.Upload),
		protocol.IntentDiscardAttachment: noPayload(o.DiscardAttachment),
		protocol.IntentToggleCapture:     noPayload(o.ToggleCapture),
		protocol.IntentToggleVoiceOutput: noPayload(o.ToggleVoiceOutput),
		protocol.IntentStopSpeech:        noPayload(o.StopSpeech),
		protocol.IntentToggleDarkMode:    noPayload(o.ToggleDarkMode),
		protocol.IntentSetLanguage: withPayload(func(p protocol.LanguagePayload) error {
			return o.SetLanguage(p.Language)
		}),
		protocol.IntentSetInterfaceLanguage: withPayload(func(p protocol.LanguagePayload) error {
			return o.SetInterfaceLanguage(p.Language)
		}),
		protocol.IntentLogin: withPayload(func(p protocol.LoginPayload) error {
			return o.Login(p.Email, p.Password)
		}),
		protocol.IntentSignup: withPayload(func(p protocol.SignupPayload) error {
			return o.Signup(p.Username, p.Email, p.Password)
		}),
		protocol.IntentLogout:       noPayload(o.SignOut),
		protocol.IntentDismissError: noPayload(o.DismissError),
	}
}

func attachmentFrom(p protocol.AttachPayload, allowPaths bool) (orchestrator.Attachment, error) {
	switch {
	case p.Path != "" && !allowPaths:
		return orchestrator.Attachment{}, errPathsDisabled
	case p.Path != "":
		a, err := orchestrator.FileAttachment(p.Path)
		if err != nil {
			return orchestrator.Attachment{}, err
		}
		if p.Name != "" {
			a.Name = filepath.Base(p.Name)
		}
		return a, nil
	case p.Data != nil:
		return orchestrator.BytesAttachment(filepath.Base(p.Name), p.Data), nil
	default:
		return orchestrator.Attachment{}, errNoAttachment
	}
}
