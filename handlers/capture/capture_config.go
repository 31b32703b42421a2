package capture

type Config struct {
	LanguageTag    string `json:"language_tag"`    // IETF tag passed to the device, e.g. "en-US".
	InterimResults bool   `json:"interim_results"` // Ask the device for interim hypotheses.
	QueueSize      int    `json:"queue_size"`      // Pending activation commands before SetActive blocks.
}

func DefaultConfig() Config {
	return Config{
		LanguageTag:    "en-US",
		InterimResults: true,
		QueueSize:      16,
	}
}

// Options are handed to the device for every opened session.
type Options struct {
	LanguageTag    string
	InterimResults bool
}
