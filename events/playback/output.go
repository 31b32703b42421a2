package playback

type PlaybackStartedEvent struct {
	Utterance int    `json:"utterance"`
	Text      string `json:"text"`
}

func (e *PlaybackStartedEvent) GetId() string {
	return "playback.started"
}

func (e *PlaybackStartedEvent) External() {}

// PlaybackEndedEvent follows every PlaybackStartedEvent. Stopped is true when the audio was cut
// short by Stop or a newer Speak.
type PlaybackEndedEvent struct {
	Utterance int  `json:"utterance"`
	Stopped   bool `json:"stopped"`
}

func (e *PlaybackEndedEvent) GetId() string {
	return "playback.ended"
}

func (e *PlaybackEndedEvent) External() {}

type PlaybackFailedEvent struct {
	Utterance int    `json:"utterance"`
	Error     string `json:"error"`
}

func (e *PlaybackFailedEvent) GetId() string {
	return "playback.failed"
}

func (e *PlaybackFailedEvent) External() {}
