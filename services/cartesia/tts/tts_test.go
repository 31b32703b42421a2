package cartesia

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convokit/core"
)

func fakeCartesia(t *testing.T, requests chan<- cartesiaTTSRequest, fail bool) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req cartesiaTTSRequest
		_ = sonic.Unmarshal(data, &req)
		requests <- req

		send := func(v any) {
			out, _ := sonic.Marshal(v)
			_ = conn.WriteMessage(websocket.TextMessage, out)
		}
		if fail {
			send(cartesiaResponse{Type: "error", ContextID: req.ContextID, StatusCode: 400, Error: "bad voice"})
			return
		}
		send(cartesiaResponse{Type: "chunk", ContextID: "other", Data: base64.StdEncoding.EncodeToString([]byte{9, 9})})
		send(cartesiaResponse{Type: "chunk", ContextID: req.ContextID, Data: base64.StdEncoding.EncodeToString([]byte{1, 0})})
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{2, 0})
		send(cartesiaResponse{Type: "done", ContextID: req.ContextID, Done: true})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSynthesizeCollectsContextAudio(t *testing.T) {
	requests := make(chan cartesiaTTSRequest, 1)
	server := fakeCartesia(t, requests, false)
	tts := NewCartesiaTTS(CartesiaTTSConfig{APIKey: "c", BaseURL: "ws" + strings.TrimPrefix(server.URL, "http")}, core.NewNopLogger())

	clip, err := tts.Synthesize(t.Context(), "namaskara", "kn-IN")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 2, 0}, clip.Data[44:])

	req := <-requests
	assert.Equal(t, "namaskara", req.Transcript)
	assert.Equal(t, "kn", req.Language)
	assert.False(t, req.Continue)
	assert.NotEmpty(t, req.ContextID)
}

func TestSynthesizeReportsError(t *testing.T) {
	server := fakeCartesia(t, make(chan cartesiaTTSRequest, 1), true)
	tts := NewCartesiaTTS(CartesiaTTSConfig{APIKey: "c", BaseURL: "ws" + strings.TrimPrefix(server.URL, "http")}, core.NewNopLogger())

	_, err := tts.Synthesize(t.Context(), "hello", "en-US")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad voice")
}
