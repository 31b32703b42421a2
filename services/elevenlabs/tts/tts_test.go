package elevenlabs

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

type fakeElevenLabs struct {
	query   chan string
	texts   chan string
	chunks  [][]byte
	failure string
}

func (f *fakeElevenLabs) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	f.query <- r.URL.RawQuery

	for i := 0; i < 3; i++ {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg struct {
			Text string `json:"text"`
		}
		_ = sonic.Unmarshal(data, &msg)
		f.texts <- msg.Text
	}

	if f.failure != "" {
		out, _ := sonic.Marshal(map[string]any{"error": f.failure, "message": "bad voice", "code": 400})
		_ = conn.WriteMessage(websocket.TextMessage, out)
		return
	}
	for _, chunk := range f.chunks {
		out, _ := sonic.Marshal(map[string]any{"audio": base64.StdEncoding.EncodeToString(chunk)})
		_ = conn.WriteMessage(websocket.TextMessage, out)
	}
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"isFinal":true}`))
}

func newTestTTS(t *testing.T, fake *fakeElevenLabs) *ElevenLabsTTS {
	t.Helper()
	fake.query = make(chan string, 1)
	fake.texts = make(chan string, 3)
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	return NewElevenLabsTTS(ElevenLabsTTSConfig{
		APIKey:  "key",
		BaseURL: "ws" + strings.TrimPrefix(server.URL, "http"),
	}, core.NewNopLogger())
}

func TestSynthesizeCollectsAudio(t *testing.T) {
	fake := &fakeElevenLabs{chunks: [][]byte{{1, 0, 2, 0}, {3, 0}}}
	tts := newTestTTS(t, fake)

	clip, err := tts.Synthesize(t.Context(), "vanakkam", "ta-IN")
	require.NoError(t, err)

	assert.Equal(t, core.MediaTypeAudioWAV, clip.MediaType)
	assert.Equal(t, []byte{1, 0, 2, 0, 3, 0}, clip.Data[44:])

	query := <-fake.query
	assert.Contains(t, query, "language_code=ta")
	assert.Contains(t, query, "output_format=pcm_24000")
	assert.Equal(t, " ", <-fake.texts)
	assert.Equal(t, "vanakkam ", <-fake.texts)
	assert.Equal(t, "", <-fake.texts)
}

func TestSynthesizeReportsServerError(t *testing.T) {
	tts := newTestTTS(t, &fakeElevenLabs{failure: "invalid_voice"})

	_, err := tts.Synthesize(t.Context(), "hi", "en-US")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_voice")
}

func TestSynthesizeRequiresKey(t *testing.T) {
	_, err := NewElevenLabsTTS(ElevenLabsTTSConfig{}, core.NewNopLogger()).Synthesize(t.Context(), "hi", "en-US")
	assert.Error(t, err)
}
