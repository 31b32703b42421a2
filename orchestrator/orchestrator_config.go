package orchestrator

import (
	"time"

	"convokit/handlers/capture"
	"convokit/handlers/playback"
	"convokit/handlers/typewriter"
)

type Config struct {
	MaxAttachmentSize int64         `json:"max_attachment_size"` // Bytes; larger selections are rejected before any upload.
	AllowedExtensions []string      `json:"allowed_extensions"`  // Lower-case, dotted. Empty allows everything.
	RequestTimeout    time.Duration `json:"request_timeout"`     // Zero leaves collaborator calls unbounded.
	QueueSize         int           `json:"queue_size"`

	Typewriter typewriter.Config `json:"typewriter"`
	Capture    capture.Config    `json:"capture"`
	Playback   playback.Config   `json:"playback"`
}

func DefaultConfig() Config {
	return Config{
		MaxAttachmentSize: 10 * 1024 * 1024,
		AllowedExtensions: []string{".txt", ".pdf", ".doc", ".docx"},
		RequestTimeout:    2 * time.Minute,
		QueueSize:         256,
		Typewriter:        typewriter.DefaultConfig(),
		Capture:           capture.DefaultConfig(),
		Playback:          playback.DefaultConfig(),
	}
}
