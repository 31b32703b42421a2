package elevenlabs

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"convokit/core"
	"convokit/utils/audio"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// ElevenLabsTTSConfig holds configuration for the ElevenLabs TTS service
type ElevenLabsTTSConfig struct {
	APIKey     string `json:"api_key"`
	BaseURL    string `json:"base_url"`
	VoiceID    string `json:"voice_id"`
	ModelID    string `json:"model_id"`
	SampleRate int    `json:"sample_rate"`

	// Voice settings
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`

	ReadTimeout time.Duration `json:"read_timeout"`
}

func DefaultConfig() ElevenLabsTTSConfig {
	return ElevenLabsTTSConfig{
		BaseURL:         "wss://api.elevenlabs.io/v1/text-to-speech",
		VoiceID:         "21m00Tcm4TlvDq8ikWAM", // Rachel
		ModelID:         "eleven_turbo_v2_5",
		SampleRate:      24000,
		Stability:       0.5,
		SimilarityBoost: 0.75,
		ReadTimeout:     20 * time.Second,
	}
}

// ElevenLabsTTS renders one utterance per stream-input connection and returns the whole clip.
type ElevenLabsTTS struct {
	config ElevenLabsTTSConfig
	logger *core.Logger
}

// Client messages
type (
	// BOS (Beginning of Stream) - first message on every connection
	elBOSMessage struct {
		Text             string          `json:"text"`
		VoiceSettings    elVoiceSettings `json:"voice_settings"`
		GenerationConfig elGenConfig     `json:"generation_config"`
	}

	elVoiceSettings struct {
		Stability       float64 `json:"stability"`
		SimilarityBoost float64 `json:"similarity_boost"`
	}

	elGenConfig struct {
		ChunkLengthSchedule []int `json:"chunk_length_schedule"`
	}

	// Text chunk message; an empty text is EOS
	elTextMessage struct {
		Text string `json:"text"`
	}
)

// Server messages
type elServerMessage struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// NewElevenLabsTTS creates a new ElevenLabs TTS service with the provided config
func NewElevenLabsTTS(config ElevenLabsTTSConfig, logger *core.Logger) *ElevenLabsTTS {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.VoiceID == "" {
		config.VoiceID = defaults.VoiceID
	}
	if config.ModelID == "" {
		config.ModelID = defaults.ModelID
	}
	if config.SampleRate == 0 {
		config.SampleRate = defaults.SampleRate
	}
	if config.Stability == 0 {
		config.Stability = defaults.Stability
	}
	if config.SimilarityBoost == 0 {
		config.SimilarityBoost = defaults.SimilarityBoost
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &ElevenLabsTTS{
		config: config,
		logger: logger.With(map[string]any{"service": "elevenlabs_tts"}),
	}
}

// outputFormatString converts the sample rate to the ElevenLabs output_format param
func outputFormatString(sampleRate int) string {
	switch sampleRate {
	case 16000:
		return "pcm_16000"
	case 22050:
		return "pcm_22050"
	case 44100:
		return "pcm_44100"
	default:
		return "pcm_24000"
	}
}

func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text string, languageTag string) (core.AudioClip, error) {
	if e.config.APIKey == "" {
		return core.AudioClip{}, errors.New("ElevenLabs API key is required")
	}
	if text == "" {
		return core.AudioClip{}, errors.New("text cannot be empty")
	}

	conn, err := e.establishConnection(ctx, languageTag)
	if err != nil {
		return core.AudioClip{}, fmt.Errorf("failed to establish WebSocket connection: %w", err)
	}
	defer conn.Close()

	released := make(chan struct{})
	defer close(released)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-released:
		}
	}()

	messages := []any{
		elBOSMessage{
			Text: " ",
			VoiceSettings: elVoiceSettings{
				Stability:       e.config.Stability,
				SimilarityBoost: e.config.SimilarityBoost,
			},
			GenerationConfig: elGenConfig{ChunkLengthSchedule: []int{120, 160, 250, 290}},
		},
		elTextMessage{Text: text + " "},
		elTextMessage{Text: ""},
	}
	for _, msg := range messages {
		if err := e.sendJSON(conn, msg); err != nil {
			return core.AudioClip{}, errors.Join(ctx.Err(), fmt.Errorf("failed to send: %w", err))
		}
	}

	pcm, err := e.collect(conn)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return core.AudioClip{}, ctxErr
	}
	if err != nil {
		return core.AudioClip{}, err
	}
	return audio.PCMClip(pcm, 1, e.config.SampleRate)
}

// establishConnection dials with a short retry schedule
func (e *ElevenLabsTTS) establishConnection(ctx context.Context, languageTag string) (*websocket.Conn, error) {
	const maxRetries = 3
	const baseDelay = 500 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(attempt)
			e.logger.Infof("ElevenLabs TTS: retrying connection (attempt %d/%d) in %v after error: %v",
				attempt+1, maxRetries, delay, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		conn, err := e.dialConnection(ctx, languageTag)
		if err != nil {
			lastErr = err
			continue
		}
		return conn, nil
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxRetries, lastErr)
}

func (e *ElevenLabsTTS) dialConnection(ctx context.Context, languageTag string) (*websocket.Conn, error) {
	query := url.Values{}
	query.Set("model_id", e.config.ModelID)
	query.Set("output_format", outputFormatString(e.config.SampleRate))
	query.Set("language_code", core.LanguageCode(languageTag))
	endpoint := fmt.Sprintf("%s/%s/stream-input?%s", e.config.BaseURL, e.config.VoiceID, query.Encode())

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, endpoint, http.Header{"xi-api-key": {e.config.APIKey}})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// collect reads audio until the final marker or the server closes after EOS
func (e *ElevenLabsTTS) collect(conn *websocket.Conn) ([]byte, error) {
	var pcm []byte
	for {
		conn.SetReadDeadline(time.Now().Add(e.config.ReadTimeout))
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && len(pcm) > 0 {
				return pcm, nil
			}
			return nil, fmt.Errorf("ElevenLabs TTS read: %w", err)
		}

		if messageType == websocket.BinaryMessage {
			pcm = append(pcm, message...)
			continue
		}

		var msg elServerMessage
		if err := sonic.Unmarshal(message, &msg); err != nil {
			e.logger.Infof("ElevenLabs TTS: failed to parse message: %v", err)
			continue
		}
		if msg.Error != "" {
			return nil, fmt.Errorf("ElevenLabs error: %s %s (code: %d)", msg.Error, msg.Message, msg.Code)
		}
		if msg.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(msg.Audio)
			if err != nil {
				return nil, fmt.Errorf("failed to decode audio: %w", err)
			}
			pcm = append(pcm, chunk...)
		}
		if msg.IsFinal {
			e.logger.Debug("generation complete", "bytes", len(pcm))
			if len(pcm) == 0 {
				return nil, errors.New("ElevenLabs returned no audio")
			}
			return pcm, nil
		}
	}
}

// sendJSON marshals and sends a JSON message over WebSocket
func (e *ElevenLabsTTS) sendJSON(conn *websocket.Conn, msg any) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}
