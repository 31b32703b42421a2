package stt

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"convokit/core"
	"convokit/handlers/capture"
	"convokit/utils/audio"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// IAudioSource produces microphone audio. The returned channel is closed when the source ends.
type IAudioSource interface {
	Open(ctx context.Context) (<-chan core.AudioChunk, error)
}

// DeepgramConfig holds configuration options for Deepgram STT
type DeepgramConfig struct {
	APIKey         string            `json:"api_key"`
	BaseURL        string            `json:"base_url"`
	Model          string            `json:"model"`
	Punctuate      bool              `json:"punctuate"`
	SmartFormat    bool              `json:"smart_format"`
	Numerals       bool              `json:"numerals"`
	Endpointing    any               `json:"endpointing"` // Can be string, int, or bool
	UtteranceEndMs any               `json:"utterance_end_ms"`
	Keywords       []string          `json:"keywords"`
	Keyterms       []string          `json:"keyterms"`
	Extra          map[string]string `json:"extra"`
	SampleRate     int               `json:"sample_rate"`
	// SilenceTimeout ends the session on its own when no speech was recognized for this long.
	SilenceTimeout time.Duration `json:"silence_timeout"`
	// CloseTimeout bounds how long Stop waits for Deepgram to flush its last results.
	CloseTimeout time.Duration `json:"close_timeout"`
}

// DefaultConfig returns a default configuration for Deepgram STT
func DefaultConfig() *DeepgramConfig {
	return &DeepgramConfig{
		BaseURL:        "wss://api.deepgram.com",
		Model:          "nova-2",
		Punctuate:      true,
		SmartFormat:    true,
		SampleRate:     16000,
		SilenceTimeout: 8 * time.Second,
		CloseTimeout:   3 * time.Second,
	}
}

// DeepgramDevice is a capture device backed by Deepgram's streaming recognizer. Each opened session
// owns one WebSocket connection and one audio source.
type DeepgramDevice struct {
	config *DeepgramConfig
	source IAudioSource
	logger *core.Logger
	dialer *websocket.Dialer
}

// NewDeepgramDevice creates a Deepgram capture device.
// Use DefaultConfig() to get a config with sensible defaults and override only what you need.
func NewDeepgramDevice(config *DeepgramConfig, source IAudioSource, logger *core.Logger) *DeepgramDevice {
	defaults := DefaultConfig()
	if config == nil {
		config = defaults
	}
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.SampleRate <= 0 {
		config.SampleRate = defaults.SampleRate
	}
	if config.CloseTimeout <= 0 {
		config.CloseTimeout = defaults.CloseTimeout
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	return &DeepgramDevice{
		config: config,
		source: source,
		logger: logger.With(map[string]any{"service": "deepgram_stt"}),
		dialer: &dialer,
	}
}

func (d *DeepgramDevice) Available() error {
	if d.config.APIKey == "" {
		return errors.New("Deepgram API key is required")
	}
	if d.source == nil {
		return errors.New("no microphone source configured")
	}
	return nil
}

func (d *DeepgramDevice) Open(ctx context.Context, opts capture.Options) (capture.IDeviceSession, error) {
	wsURL, err := d.buildWebSocketURL(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build WebSocket URL: %w", err)
	}
	headers := map[string][]string{
		"Authorization": {"Token " + d.config.APIKey},
	}

	conn, _, err := d.dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Deepgram: %w", err)
	}

	sctx, cancel := context.WithCancel(ctx)
	srcCtx, stopSource := context.WithCancel(sctx)
	chunks, err := d.source.Open(srcCtx)
	if err != nil {
		stopSource()
		cancel()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open microphone: %w", err)
	}

	s := &session{
		device:     d,
		conn:       conn,
		ctx:        sctx,
		cancel:     cancel,
		stopSource: stopSource,
		results:    make(chan capture.Result, 32),
		closed:     make(chan struct{}),
	}
	if d.config.SilenceTimeout > 0 {
		s.silence = time.AfterFunc(d.config.SilenceTimeout, func() {
			d.logger.Info("no speech recognized, closing session")
			s.finish()
		})
	}
	go s.readLoop()
	go s.pumpAudio(chunks)
	go s.keepAlive()
	return s, nil
}

// buildWebSocketURL constructs the WebSocket URL with query parameters
func (d *DeepgramDevice) buildWebSocketURL(opts capture.Options) (string, error) {
	base, err := url.Parse(d.config.BaseURL + "/v1/listen")
	if err != nil {
		return "", err
	}

	q := base.Query()
	if d.config.Model != "" {
		q.Set("model", d.config.Model)
	}
	if opts.LanguageTag != "" {
		q.Set("language", opts.LanguageTag)
	}
	q.Set("interim_results", strconv.FormatBool(opts.InterimResults))
	q.Set("punctuate", strconv.FormatBool(d.config.Punctuate))
	q.Set("smart_format", strconv.FormatBool(d.config.SmartFormat))
	q.Set("numerals", strconv.FormatBool(d.config.Numerals))
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(d.config.SampleRate))
	q.Set("channels", "1")

	if d.config.Endpointing != nil {
		switch v := d.config.Endpointing.(type) {
		case int:
			q.Set("endpointing", strconv.Itoa(v))
		case float64:
			q.Set("endpointing", strconv.Itoa(int(v)))
		case bool:
			q.Set("endpointing", strconv.FormatBool(v))
		case string:
			q.Set("endpointing", v)
		}
	}
	if d.config.UtteranceEndMs != nil {
		switch v := d.config.UtteranceEndMs.(type) {
		case int:
			q.Set("utterance_end_ms", strconv.Itoa(v))
		case float64:
			q.Set("utterance_end_ms", strconv.Itoa(int(v)))
		case string:
			q.Set("utterance_end_ms", v)
		}
	}
	for _, keyword := range d.config.Keywords {
		q.Add("keywords", keyword)
	}
	for _, keyterm := range d.config.Keyterms {
		q.Add("keyterm", keyterm)
	}
	for key, value := range d.config.Extra {
		q.Set(key, value)
	}

	base.RawQuery = q.Encode()
	return base.String(), nil
}

type session struct {
	device     *DeepgramDevice
	conn       *websocket.Conn
	ctx        context.Context
	cancel     context.CancelFunc
	stopSource context.CancelFunc
	results    chan capture.Result
	silence    *time.Timer

	writeMu    sync.Mutex
	closing    bool // no audio is written once CloseStream is queued
	finishOnce sync.Once
	closed     chan struct{}
}

func (s *session) Results() <-chan capture.Result { return s.results }

// Stop asks Deepgram to flush and close the stream. Results is closed once the connection is gone.
func (s *session) Stop() error {
	s.finish()
	return nil
}

func (s *session) finish() {
	s.finishOnce.Do(func() {
		if s.silence != nil {
			s.silence.Stop()
		}
		s.stopSource()
		s.writeMu.Lock()
		s.closing = true
		s.writeMu.Unlock()
		if err := s.writeJSON(ListenV1CloseStream{Type: "CloseStream"}); err != nil {
			s.device.logger.WithError(err).Debug("failed to send CloseStream")
		}
		go func() {
			select {
			case <-s.closed:
			case <-time.After(s.device.config.CloseTimeout):
				_ = s.conn.Close()
			}
		}()
	})
}

func (s *session) writeJSON(v any) error {
	msg, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, msg)
}

func (s *session) readLoop() {
	defer func() {
		s.cancel()
		_ = s.conn.Close()
		close(s.closed)
		close(s.results)
	}()
	for {
		messageType, message, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.device.logger.WithError(err).Debug("Deepgram stream closed")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if err := s.handleMessage(message); err != nil {
			s.device.logger.WithError(err).Warn("failed to handle Deepgram message")
		}
	}
}

// handleMessage processes incoming WebSocket messages
func (s *session) handleMessage(message []byte) error {
	var base struct {
		Type string `json:"type"`
	}
	if err := sonic.Unmarshal(message, &base); err != nil {
		return fmt.Errorf("failed to parse message type: %w", err)
	}

	switch base.Type {
	case "Results":
		var result ListenV1Results
		if err := sonic.Unmarshal(message, &result); err != nil {
			return fmt.Errorf("failed to parse results: %w", err)
		}
		s.processResults(result)
	case "Metadata", "UtteranceEnd", "SpeechStarted":
	default:
		return fmt.Errorf("unknown message type: %s", base.Type)
	}
	return nil
}

func (s *session) processResults(result ListenV1Results) {
	if len(result.Channel.Alternatives) == 0 {
		return
	}
	transcript := result.Channel.Alternatives[0].Transcript
	if transcript == "" {
		return
	}
	if s.silence != nil {
		s.silence.Reset(s.device.config.SilenceTimeout)
	}

	final := result.IsFinal || result.SpeechFinal || result.FromFinalize
	s.device.logger.Debug("transcript", "final", final, "text", transcript)
	select {
	case s.results <- capture.Result{Text: transcript, Final: final}:
	case <-s.ctx.Done():
	}
}

func (s *session) pumpAudio(chunks <-chan core.AudioChunk) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case chunk, ok := <-chunks:
			if !ok {
				// The microphone went away; let Deepgram flush what it heard.
				s.finish()
				return
			}
			pcm, err := audio.ToMonoPCM(chunk)
			if err != nil {
				s.device.logger.WithError(err).Warn("dropping audio chunk")
				continue
			}
			s.writeMu.Lock()
			if s.closing {
				s.writeMu.Unlock()
				return
			}
			err = s.conn.WriteMessage(websocket.BinaryMessage, pcm)
			s.writeMu.Unlock()
			if err != nil {
				s.device.logger.WithError(err).Debug("failed to send audio")
				return
			}
		}
	}
}

// keepAlive sends periodic keep-alive messages
func (s *session) keepAlive() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			_ = s.writeJSON(ListenV1KeepAlive{Type: "KeepAlive"})
		}
	}
}

type ListenV1Results struct {
	Type        string  `json:"type"`
	Duration    float64 `json:"duration"`
	Start       float64 `json:"start"`
	IsFinal     bool    `json:"is_final"`
	SpeechFinal bool    `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
	FromFinalize bool `json:"from_finalize,omitempty"`
}

type ListenV1KeepAlive struct {
	Type string `json:"type"`
}

type ListenV1CloseStream struct {
	Type string `json:"type"`
}
