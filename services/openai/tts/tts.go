package tts

import (
	"context"
	"errors"
	"fmt"
	"io"

	"convokit/core"

	"github.com/sashabaranov/go-openai"
)

// Config holds the configuration for the OpenAI speech service
type Config struct {
	APIKey  string  `json:"api_key"`
	BaseURL string  `json:"base_url"`
	Model   string  `json:"model"`
	Voice   string  `json:"voice"`
	Speed   float64 `json:"speed"`
}

func DefaultConfig() Config {
	return Config{
		Model: string(openai.TTSModel1),
		Voice: string(openai.VoiceAlloy),
		Speed: 1.0,
	}
}

// OpenAISynthesizer renders text with the OpenAI speech endpoint. The voices are multilingual, so
// the language tag only shows up in logs.
type OpenAISynthesizer struct {
	client *openai.Client
	config Config
	logger *core.Logger
}

func NewOpenAISynthesizer(config Config, logger *core.Logger) *OpenAISynthesizer {
	defaults := DefaultConfig()
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.Voice == "" {
		config.Voice = defaults.Voice
	}
	if config.Speed == 0 {
		config.Speed = defaults.Speed
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &OpenAISynthesizer{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger.With(map[string]any{"service": "openai_tts"}),
	}
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text string, languageTag string) (core.AudioClip, error) {
	if s.config.APIKey == "" {
		return core.AudioClip{}, errors.New("OpenAI API key is required")
	}
	s.logger.Debug("synthesizing", "language", languageTag, "chars", len(text))

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.config.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.config.Voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          s.config.Speed,
	})
	if err != nil {
		return core.AudioClip{}, fmt.Errorf("failed to create speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return core.AudioClip{}, fmt.Errorf("failed to read speech: %w", err)
	}
	if len(data) == 0 {
		return core.AudioClip{}, errors.New("OpenAI returned no audio")
	}
	return core.AudioClip{Data: data, MediaType: core.MediaTypeAudioMP3}, nil
}
