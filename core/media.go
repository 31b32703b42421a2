package core

type AudioEncodingFormat int

const (
	PCM  AudioEncodingFormat = iota // Pulse-code modulation format.
	ULAW                            // μ-law encoding format.
	ALAW                            // A-law encoding format.
)

// ParseAudioEncoding maps a settings string to a format, defaulting to PCM.
func ParseAudioEncoding(s string) AudioEncodingFormat {
	switch s {
	case "ulaw", "mulaw":
		return ULAW
	case "alaw":
		return ALAW
	default:
		return PCM
	}
}

type AudioChunk struct {
	Data       *[]byte             // Raw audio data.
	SampleRate int                 // Sample rate of the audio data.
	Channels   int                 // Number of audio channels.
	Format     AudioEncodingFormat // Encoding format of the audio data.
}

type MediaType string

const (
	MediaTypeAudioMP3  MediaType = "audio/mpeg"
	MediaTypeAudioWAV  MediaType = "audio/wav"
	MediaTypeAudioOGG  MediaType = "audio/ogg"
	MediaTypeAudioPCM  MediaType = "audio/pcm"
	MediaTypeUndefined MediaType = "application/octet-stream"
)

// AudioClip is a complete synthesized utterance.
type AudioClip struct {
	Data      []byte
	MediaType MediaType
}
