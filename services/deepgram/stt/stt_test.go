package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convokit/core"
	"convokit/handlers/capture"
)

type chanSource struct {
	chunks chan core.AudioChunk
}

func (s *chanSource) Open(context.Context) (<-chan core.AudioChunk, error) {
	return s.chunks, nil
}

// fakeDeepgram answers every audio frame with an interim and a final result and closes the
// stream on CloseStream.
type fakeDeepgram struct {
	mu     sync.Mutex
	query  string
	auth   string
	frames int
}

func (f *fakeDeepgram) handler(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.query = r.URL.RawQuery
		f.auth = r.Header.Get("Authorization")
		f.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for {
			kind, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind == websocket.BinaryMessage {
				f.mu.Lock()
				f.frames++
				f.mu.Unlock()
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hel"}]}}`))
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello"}]}}`))
				continue
			}
			if strings.Contains(string(msg), "CloseStream") {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Results","from_finalize":true,"channel":{"alternatives":[{"transcript":"bye"}]}}`))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	}
}

func newTestDevice(t *testing.T, f *fakeDeepgram, source IAudioSource, tweak func(*DeepgramConfig)) *DeepgramDevice {
	t.Helper()
	server := httptest.NewServer(f.handler(t))
	t.Cleanup(server.Close)

	config := DefaultConfig()
	config.APIKey = "key"
	config.BaseURL = "ws" + strings.TrimPrefix(server.URL, "http")
	if tweak != nil {
		tweak(config)
	}
	return NewDeepgramDevice(config, source, core.NewNopLogger())
}

func collect(t *testing.T, results <-chan capture.Result) []capture.Result {
	t.Helper()
	var out []capture.Result
	timeout := time.After(3 * time.Second)
	for {
		select {
		case r, ok := <-results:
			if !ok {
				return out
			}
			out = append(out, r)
		case <-timeout:
			t.Fatal("results were never closed")
			return out
		}
	}
}

func TestAvailableRequiresKeyAndSource(t *testing.T) {
	assert.Error(t, NewDeepgramDevice(&DeepgramConfig{}, &chanSource{}, core.NewNopLogger()).Available())
	assert.Error(t, NewDeepgramDevice(&DeepgramConfig{APIKey: "k"}, nil, core.NewNopLogger()).Available())
	assert.NoError(t, NewDeepgramDevice(&DeepgramConfig{APIKey: "k"}, &chanSource{}, core.NewNopLogger()).Available())
}

func TestSessionStreamsResultsAndFlushesOnStop(t *testing.T) {
	f := &fakeDeepgram{}
	source := &chanSource{chunks: make(chan core.AudioChunk, 1)}
	device := newTestDevice(t, f, source, nil)

	s, err := device.Open(context.Background(), capture.Options{LanguageTag: "hi-IN", InterimResults: true})
	require.NoError(t, err)

	pcm := []byte{0, 1, 0, 1}
	source.chunks <- core.AudioChunk{Data: &pcm, SampleRate: 16000, Channels: 1, Format: core.PCM}

	first := <-s.Results()
	assert.Equal(t, capture.Result{Text: "hel"}, first)
	second := <-s.Results()
	assert.Equal(t, capture.Result{Text: "hello", Final: true}, second)

	require.NoError(t, s.Stop())
	rest := collect(t, s.Results())
	assert.Equal(t, []capture.Result{{Text: "bye", Final: true}}, rest)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, "Token key", f.auth)
	assert.Contains(t, f.query, "language=hi-IN")
	assert.Contains(t, f.query, "interim_results=true")
	assert.Contains(t, f.query, "encoding=linear16")
	assert.Equal(t, 1, f.frames)
}

func TestSessionEndsWhenMicrophoneCloses(t *testing.T) {
	source := &chanSource{chunks: make(chan core.AudioChunk)}
	device := newTestDevice(t, &fakeDeepgram{}, source, nil)

	s, err := device.Open(context.Background(), capture.Options{})
	require.NoError(t, err)
	close(source.chunks)

	assert.Equal(t, []capture.Result{{Text: "bye", Final: true}}, collect(t, s.Results()))
}

func TestSilenceTimeoutEndsSession(t *testing.T) {
	source := &chanSource{chunks: make(chan core.AudioChunk)}
	device := newTestDevice(t, &fakeDeepgram{}, source, func(c *DeepgramConfig) {
		c.SilenceTimeout = 20 * time.Millisecond
	})

	s, err := device.Open(context.Background(), capture.Options{})
	require.NoError(t, err)

	collect(t, s.Results())
}

func TestOpenFailsWhenServerUnreachable(t *testing.T) {
	config := DefaultConfig()
	config.APIKey = "key"
	config.BaseURL = "ws://127.0.0.1:1"
	device := NewDeepgramDevice(config, &chanSource{chunks: make(chan core.AudioChunk)}, core.NewNopLogger())

	_, err := device.Open(context.Background(), capture.Options{})
	assert.Error(t, err)
}
