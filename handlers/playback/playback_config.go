package playback

import "time"

// Config holds configuration for Session.
type Config struct {
	// SynthesisTimeout bounds a single synthesis request. Zero disables the bound.
	SynthesisTimeout time.Duration `json:"synthesis_timeout"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		SynthesisTimeout: 30 * time.Second,
	}
}
