package deepgram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"convokit/core"
	"convokit/utils/audio"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// maxCharsBeforeFlush is the character limit between flushes.
// Deepgram returns DATA-0001 (1008) if too many characters are buffered between flushes.
const maxCharsBeforeFlush = 2000

// DepgramTTSConfig holds configuration for the Deepgram TTS service
type DepgramTTSConfig struct {
	APIKey      string        `json:"api_key"`
	BaseURL     string        `json:"base_url"`
	Model       string        `json:"model"`
	SampleRate  int           `json:"sample_rate"`
	ReadTimeout time.Duration `json:"read_timeout"`
}

// DefaultConfig returns a DepgramTTSConfig with sensible defaults
func DefaultConfig() DepgramTTSConfig {
	return DepgramTTSConfig{
		BaseURL:     "wss://api.deepgram.com/v1/speak",
		Model:       "aura-2-arcas-en",
		SampleRate:  24000,
		ReadTimeout: 20 * time.Second,
	}
}

// DepgramTTS synthesizes one utterance per Speak WebSocket connection.
type DepgramTTS struct {
	config DepgramTTSConfig
	logger *core.Logger
}

// Message types for Deepgram TTS WebSocket protocol
type (
	speakV1Text struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}

	speakV1Control struct {
		Type string `json:"type"`
	}

	speakV1Server struct {
		Type        string  `json:"type"`
		SequenceID  float64 `json:"sequence_id"`
		ModelName   string  `json:"model_name"`
		Description string  `json:"description"`
		Code        string  `json:"code"`
	}
)

// NewDepgramTTS creates a new Deepgram TTS service with the provided config.
// Use DefaultConfig() to get a config with sensible defaults and override only what you need.
func NewDepgramTTS(config DepgramTTSConfig, logger *core.Logger) *DepgramTTS {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.SampleRate == 0 {
		config.SampleRate = defaults.SampleRate
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &DepgramTTS{
		config: config,
		logger: logger.With(map[string]any{"service": "deepgram_tts"}),
	}
}

// Synthesize sends the text in flush-sized pieces and gathers the linear16 audio of every piece.
// Aura voices are tied to the model, so languageTag is informational.
func (d *DepgramTTS) Synthesize(ctx context.Context, text string, languageTag string) (core.AudioClip, error) {
	if d.config.APIKey == "" {
		return core.AudioClip{}, errors.New("Deepgram API key is required")
	}
	pieces := splitText(text, maxCharsBeforeFlush-100)
	if len(pieces) == 0 {
		return core.AudioClip{}, errors.New("text cannot be empty")
	}
	d.logger.Debug("synthesizing", "language", languageTag, "pieces", len(pieces))

	conn, err := d.dialConnection(ctx)
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

	for _, piece := range pieces {
		if err := d.sendJSON(conn, speakV1Text{Type: "Speak", Text: piece}); err != nil {
			return core.AudioClip{}, errors.Join(ctx.Err(), err)
		}
		if err := d.sendJSON(conn, speakV1Control{Type: "Flush"}); err != nil {
			return core.AudioClip{}, errors.Join(ctx.Err(), err)
		}
	}

	pcm, err := d.collect(conn, len(pieces))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return core.AudioClip{}, ctxErr
	}
	if err != nil {
		return core.AudioClip{}, err
	}
	if err := d.sendJSON(conn, speakV1Control{Type: "Close"}); err != nil {
		d.logger.Debug("close message failed", "error", err)
	}
	return audio.PCMClip(pcm, 1, d.config.SampleRate)
}

func (d *DepgramTTS) dialConnection(ctx context.Context) (*websocket.Conn, error) {
	url := fmt.Sprintf("%s?model=%s&encoding=linear16&sample_rate=%d",
		d.config.BaseURL,
		d.config.Model,
		d.config.SampleRate)

	// Deepgram requires "Token " prefix for API key
	headers := http.Header{
		"Authorization": {fmt.Sprintf("Token %s", d.config.APIKey)},
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, headers)
	return conn, err
}

// collect reads binary audio until every flush has been acknowledged
func (d *DepgramTTS) collect(conn *websocket.Conn, flushes int) ([]byte, error) {
	var pcm []byte
	for flushes > 0 {
		conn.SetReadDeadline(time.Now().Add(d.config.ReadTimeout))
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("Deepgram TTS read: %w", err)
		}
		if messageType == websocket.BinaryMessage {
			pcm = append(pcm, message...)
			continue
		}

		var msg speakV1Server
		if err := sonic.Unmarshal(message, &msg); err != nil {
			return nil, fmt.Errorf("failed to parse message: %w", err)
		}
		switch msg.Type {
		case "Metadata":
			d.logger.Debug("metadata received", "model", msg.ModelName)
		case "Flushed":
			flushes--
		case "Warning":
			d.logger.Infof("Deepgram TTS warning: %s (code: %s)", msg.Description, msg.Code)
		case "Error":
			return nil, fmt.Errorf("Deepgram error: %s (code: %s)", msg.Description, msg.Code)
		}
	}
	if len(pcm) == 0 {
		return nil, errors.New("Deepgram returned no audio")
	}
	return pcm, nil
}

// splitText cuts text into pieces of at most limit bytes, preferring the last space in range.
func splitText(text string, limit int) []string {
	text = strings.TrimSpace(text)
	var pieces []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], ' ')
		if cut <= 0 {
			cut = limit
			for cut > 0 && !isRuneStart(text[cut]) {
				cut--
			}
		}
		pieces = append(pieces, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		pieces = append(pieces, text)
	}
	return pieces
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// sendJSON marshals and sends a JSON message over WebSocket
func (d *DepgramTTS) sendJSON(conn *websocket.Conn, msg any) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}
