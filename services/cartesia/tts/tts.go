package cartesia

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"

	"convokit/core"
	"convokit/utils/audio"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultCartesiaURL        = "wss://api.cartesia.ai/tts/websocket"
	defaultCartesiaModelID    = "sonic-2"
	defaultCartesiaVoiceID    = "a0e99841-438c-4a64-b679-ae501e7d6091" // Helpful Woman
	defaultCartesiaAPIVersion = "2024-11-13"
	defaultCartesiaSampleRate = 24000
)

// CartesiaTTSConfig holds configuration for the Cartesia TTS service.
type CartesiaTTSConfig struct {
	APIKey      string        `json:"api_key"`
	BaseURL     string        `json:"base_url"`
	ModelID     string        `json:"model_id"`
	VoiceID     string        `json:"voice_id"`
	APIVersion  string        `json:"api_version"`
	SampleRate  int           `json:"sample_rate"`
	ReadTimeout time.Duration `json:"read_timeout"`
}

// CartesiaTTS renders each utterance as one non-continued context on a fresh connection.
type CartesiaTTS struct {
	config CartesiaTTSConfig
	logger *core.Logger
}

type cartesiaTTSRequest struct {
	ModelID    string            `json:"model_id"`
	Transcript string            `json:"transcript"`
	Voice      cartesiaVoice     `json:"voice"`
	OutputFmt  cartesiaOutputFmt `json:"output_format"`
	ContextID  string            `json:"context_id"`
	Continue   bool              `json:"continue"`
	Language   string            `json:"language,omitempty"`
}

type cartesiaVoice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutputFmt struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

// cartesiaResponse is a text (JSON) frame from Cartesia. Audio arrives either as binary frames
// or as base64 in the Data field of "chunk" messages.
type cartesiaResponse struct {
	Type       string `json:"type"`
	ContextID  string `json:"context_id"`
	StatusCode int    `json:"status_code"`
	Done       bool   `json:"done"`
	Error      string `json:"error,omitempty"`
	Data       string `json:"data,omitempty"`
}

// NewCartesiaTTS creates a new Cartesia TTS service with sensible defaults.
func NewCartesiaTTS(config CartesiaTTSConfig, logger *core.Logger) *CartesiaTTS {
	if config.BaseURL == "" {
		config.BaseURL = defaultCartesiaURL
	}
	if config.ModelID == "" {
		config.ModelID = defaultCartesiaModelID
	}
	if config.VoiceID == "" {
		config.VoiceID = defaultCartesiaVoiceID
	}
	if config.APIVersion == "" {
		config.APIVersion = defaultCartesiaAPIVersion
	}
	if config.SampleRate == 0 {
		config.SampleRate = defaultCartesiaSampleRate
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 20 * time.Second
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &CartesiaTTS{
		config: config,
		logger: logger.With(map[string]any{"service": "cartesia_tts"}),
	}
}

func (c *CartesiaTTS) Synthesize(ctx context.Context, text string, languageTag string) (core.AudioClip, error) {
	if c.config.APIKey == "" {
		return core.AudioClip{}, errors.New("cartesia: API key is required")
	}
	if text == "" {
		return core.AudioClip{}, errors.New("cartesia: text cannot be empty")
	}

	conn, err := c.dialConnection(ctx)
	if err != nil {
		return core.AudioClip{}, fmt.Errorf("cartesia: failed to connect: %w", err)
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

	contextID := uuid.NewString()
	req := cartesiaTTSRequest{
		ModelID:    c.config.ModelID,
		Transcript: text,
		Voice:      cartesiaVoice{Mode: "id", ID: c.config.VoiceID},
		OutputFmt: cartesiaOutputFmt{
			Container:  "raw",
			Encoding:   "pcm_s16le",
			SampleRate: c.config.SampleRate,
		},
		ContextID: contextID,
		Continue:  false,
		Language:  core.LanguageCode(languageTag),
	}
	data, err := sonic.Marshal(req)
	if err != nil {
		return core.AudioClip{}, fmt.Errorf("cartesia: failed to marshal request: %w", err)
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return core.AudioClip{}, errors.Join(ctx.Err(), fmt.Errorf("cartesia: send: %w", err))
	}

	pcm, err := c.collect(conn, contextID)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return core.AudioClip{}, ctxErr
	}
	if err != nil {
		return core.AudioClip{}, err
	}
	return audio.PCMClip(pcm, 1, c.config.SampleRate)
}

func (c *CartesiaTTS) dialConnection(ctx context.Context) (*websocket.Conn, error) {
	query := url.Values{}
	query.Set("api_key", c.config.APIKey)
	query.Set("cartesia_version", c.config.APIVersion)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.config.BaseURL+"?"+query.Encode(), nil)
	return conn, err
}

// collect gathers audio for contextID until its "done" message
func (c *CartesiaTTS) collect(conn *websocket.Conn, contextID string) ([]byte, error) {
	var pcm []byte
	for {
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("cartesia: read: %w", err)
		}
		if msgType == websocket.BinaryMessage {
			pcm = append(pcm, msg...)
			continue
		}

		var resp cartesiaResponse
		if err := sonic.Unmarshal(msg, &resp); err != nil {
			c.logger.Infof("Cartesia TTS: failed to parse text message: %v", err)
			continue
		}
		if resp.ContextID != "" && resp.ContextID != contextID {
			continue
		}

		switch resp.Type {
		case "chunk":
			if resp.Data != "" {
				chunk, err := base64.StdEncoding.DecodeString(resp.Data)
				if err != nil {
					return nil, fmt.Errorf("cartesia: failed to decode audio chunk: %w", err)
				}
				pcm = append(pcm, chunk...)
			}
		case "error":
			return nil, fmt.Errorf("cartesia error (status %d): %s", resp.StatusCode, resp.Error)
		case "done":
			if len(pcm) == 0 {
				return nil, errors.New("cartesia: no audio received")
			}
			return pcm, nil
		}
		// "timestamps", "phoneme_timestamps", etc. are informational.
	}
}
