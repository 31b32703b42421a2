package chat

import (
	"convokit/core"
	"convokit/store"
)

// StateChangedEvent carries the store snapshot after a dispatch.
type StateChangedEvent struct {
	State store.State `json:"state"`
}

func (e *StateChangedEvent) GetId() string {
	return "chat.state_changed"
}

func (e *StateChangedEvent) External() {}

// MessageAppendedEvent is emitted once per appended message, after the append.
type MessageAppendedEvent struct {
	Message core.Message `json:"message"`
}

func (e *MessageAppendedEvent) GetId() string {
	return "chat.message_appended"
}

func (e *MessageAppendedEvent) External() {}

type SendStartedEvent struct {
	MessageID string `json:"message_id"`
}

func (e *SendStartedEvent) GetId() string {
	return "chat.send_started"
}

func (e *SendStartedEvent) External() {}

// SendFinishedEvent closes a send, successful or not.
type SendFinishedEvent struct {
	MessageID string `json:"message_id"`
	OK        bool   `json:"ok"`
}

func (e *SendFinishedEvent) GetId() string {
	return "chat.send_finished"
}

func (e *SendFinishedEvent) External() {}

// AttachmentChangedEvent reports the pending attachment; Name is empty once it is cleared.
type AttachmentChangedEvent struct {
	Name      string `json:"name,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Uploading bool   `json:"uploading"`
}

func (e *AttachmentChangedEvent) GetId() string {
	return "chat.attachment_changed"
}

func (e *AttachmentChangedEvent) External() {}
