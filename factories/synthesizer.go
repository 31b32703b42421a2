package factories

import (
	"convokit/core"
	playbackhandler "convokit/handlers/playback"
	cartesia "convokit/services/cartesia/tts"
	deepgramtts "convokit/services/deepgram/tts"
	elevenlabs "convokit/services/elevenlabs/tts"
	openaitts "convokit/services/openai/tts"
)

// SynthesizerFactoryConfig selects the speech synthesizer. Set at most one provider config;
// with none set the backend speech endpoint synthesizes.
type SynthesizerFactoryConfig struct {
	OpenAIConfig     *openaitts.Config               `json:"openai,omitempty"`
	DeepgramConfig   *deepgramtts.DepgramTTSConfig   `json:"deepgram,omitempty"`
	ElevenLabsConfig *elevenlabs.ElevenLabsTTSConfig `json:"elevenlabs,omitempty"`
	CartesiaConfig   *cartesia.CartesiaTTSConfig     `json:"cartesia,omitempty"`
}

// BuildSynthesizer constructs the synthesizer. fallback is returned when no provider is
// configured.
func BuildSynthesizer(config SynthesizerFactoryConfig, fallback playbackhandler.ISynthesizer, logger *core.Logger) playbackhandler.ISynthesizer {
	switch {
	case config.OpenAIConfig != nil:
		return openaitts.NewOpenAISynthesizer(*config.OpenAIConfig, logger)
	case config.DeepgramConfig != nil:
		return deepgramtts.NewDepgramTTS(*config.DeepgramConfig, logger)
	case config.ElevenLabsConfig != nil:
		return elevenlabs.NewElevenLabsTTS(*config.ElevenLabsConfig, logger)
	case config.CartesiaConfig != nil:
		return cartesia.NewCartesiaTTS(*config.CartesiaConfig, logger)
	}
	return fallback
}

func injectSynthesizerKeys(c *SynthesizerFactoryConfig, keys APIKeys) {
	if c.OpenAIConfig != nil && c.OpenAIConfig.APIKey == "" {
		c.OpenAIConfig.APIKey = keys.OpenAI
	}
	if c.DeepgramConfig != nil && c.DeepgramConfig.APIKey == "" {
		c.DeepgramConfig.APIKey = keys.Deepgram
	}
	if c.ElevenLabsConfig != nil && c.ElevenLabsConfig.APIKey == "" {
		c.ElevenLabsConfig.APIKey = keys.ElevenLabs
	}
	if c.CartesiaConfig != nil && c.CartesiaConfig.APIKey == "" {
		c.CartesiaConfig.APIKey = keys.Cartesia
	}
}
