package factories

import (
	"convokit/core"
	capturehandler "convokit/handlers/capture"
	"convokit/services/command"
	deepgramstt "convokit/services/deepgram/stt"
)

// CaptureFactoryConfig configures voice input. Without a recognizer config the orchestrator runs
// with no capture device and reports capture as unavailable.
type CaptureFactoryConfig struct {
	DeepgramConfig *deepgramstt.DeepgramConfig `json:"deepgram,omitempty"`
	Microphone     command.MicrophoneConfig    `json:"microphone"`
}

func DefaultCaptureFactoryConfig() CaptureFactoryConfig {
	return CaptureFactoryConfig{Microphone: command.DefaultMicrophoneConfig()}
}

// BuildCaptureDevice returns nil when no recognizer is configured.
func BuildCaptureDevice(config CaptureFactoryConfig, logger *core.Logger) capturehandler.IDevice {
	if config.DeepgramConfig == nil {
		return nil
	}
	mic := command.NewMicrophone(config.Microphone, logger)
	dg := *config.DeepgramConfig
	return deepgramstt.NewDeepgramDevice(&dg, mic, logger)
}
