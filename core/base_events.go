package core

// ErrorKind classifies a user-visible error.
type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindTransport  ErrorKind = "transport"
	ErrorKindDevice     ErrorKind = "device"
	ErrorKindPlayback   ErrorKind = "playback"
	ErrorKindAuth       ErrorKind = "auth"
	ErrorKindStorage    ErrorKind = "storage"
)

// ErrorReportedEvent fills the single user-visible error slot. A later one overwrites it.
type ErrorReportedEvent struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *ErrorReportedEvent) GetId() string {
	return "shared.error_reported"
}

func (e *ErrorReportedEvent) External() {}

// ErrorDismissedEvent is emitted when the error slot is cleared.
type ErrorDismissedEvent struct{}

func (e *ErrorDismissedEvent) GetId() string {
	return "shared.error_dismissed"
}

func (e *ErrorDismissedEvent) External() {}

