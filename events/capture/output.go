package capture

// CaptureStartedEvent is emitted once the device session is open and listening.
type CaptureStartedEvent struct {
	Session int `json:"session"`
}

func (e *CaptureStartedEvent) GetId() string {
	return "capture.started"
}

func (e *CaptureStartedEvent) External() {}

// CaptureInterimEvent carries the most recent interim transcript of the current session.
type CaptureInterimEvent struct {
	Session int    `json:"session"`
	Text    string `json:"text"`
}

func (e *CaptureInterimEvent) GetId() string {
	return "capture.interim"
}

func (e *CaptureInterimEvent) External() {}

// CaptureFinalTranscriptEvent is the session's single output. It is never emitted for a session
// that produced no final result.
type CaptureFinalTranscriptEvent struct {
	Session int    `json:"session"`
	Text    string `json:"text"`
}

func (e *CaptureFinalTranscriptEvent) GetId() string {
	return "capture.final_transcript"
}

func (e *CaptureFinalTranscriptEvent) External() {}

// CaptureEndedEvent closes a session. DeviceInitiated is true when the device stopped on its
// own (silence timeout, stream closed) rather than because capture was switched off.
type CaptureEndedEvent struct {
	Session         int  `json:"session"`
	DeviceInitiated bool `json:"device_initiated"`
}

func (e *CaptureEndedEvent) GetId() string {
	return "capture.ended"
}

func (e *CaptureEndedEvent) External() {}

type CaptureUnavailableEvent struct {
	Reason string `json:"reason"`
}

func (e *CaptureUnavailableEvent) GetId() string {
	return "capture.unavailable"
}

func (e *CaptureUnavailableEvent) External() {}

// CaptureErrorEvent reports a device session that failed to open or broke mid-session.
type CaptureErrorEvent struct {
	Error string `json:"error"`
}

func (e *CaptureErrorEvent) GetId() string {
	return "capture.error"
}

func (e *CaptureErrorEvent) External() {}
