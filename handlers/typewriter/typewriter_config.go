package typewriter

import "time"

type Config struct {
	Interval   time.Duration `json:"interval"`    // Delay between two revealed runes.
	StripChars string        `json:"strip_chars"` // Characters removed from the text before the reveal starts.
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:   20 * time.Millisecond,
		StripChars: "#/*",
	}
}
