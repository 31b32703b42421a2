package llm

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convokit/core"
)

type completionServer struct {
	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
	reply    string
}

func (c *completionServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req openai.ChatCompletionRequest
	_ = sonic.Unmarshal(body, &req)
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	resp := openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: c.reply},
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	out, _ := sonic.Marshal(resp)
	_, _ = w.Write(out)
}

func newTestAssistant(t *testing.T, srv *completionServer, tweak func(*Config)) *OpenAIAssistant {
	t.Helper()
	server := httptest.NewServer(srv)
	t.Cleanup(server.Close)
	config := DefaultConfig()
	config.APIKey = "test"
	config.BaseURL = server.URL + "/v1"
	if tweak != nil {
		tweak(&config)
	}
	return NewOpenAIAssistant(config, core.NewNopLogger())
}

func TestRespondAsksForLanguage(t *testing.T) {
	srv := &completionServer{reply: "  Section 378 covers theft. "}
	a := newTestAssistant(t, srv, nil)

	reply, err := a.Respond(t.Context(), "what is theft?", core.Tamil)
	require.NoError(t, err)
	assert.Equal(t, "Section 378 covers theft.", reply)

	require.Len(t, srv.requests, 1)
	msgs := srv.requests[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Please provide your response in Tamil.")
	assert.Equal(t, "what is theft?", msgs[1].Content)
}

func TestRespondReplaysBoundedHistory(t *testing.T) {
	srv := &completionServer{reply: "ok"}
	a := newTestAssistant(t, srv, func(c *Config) { c.HistoryTurns = 1 })

	for _, q := range []string{"one", "two", "three"} {
		_, err := a.Respond(t.Context(), q, core.English)
		require.NoError(t, err)
	}

	last := srv.requests[2].Messages
	require.Len(t, last, 4)
	assert.Equal(t, "two", last[1].Content)
	assert.Equal(t, "ok", last[2].Content)
	assert.Equal(t, "three", last[3].Content)

	require.NoError(t, a.Reset())
	_, err := a.Respond(t.Context(), "four", core.English)
	require.NoError(t, err)
	assert.Len(t, srv.requests[3].Messages, 2)
}

func TestEmptyCompletionIsAnError(t *testing.T) {
	a := newTestAssistant(t, &completionServer{reply: "   "}, nil)

	_, err := a.Respond(t.Context(), "hello", core.English)
	assert.Error(t, err)
}

func TestInitRequiresKey(t *testing.T) {
	a := NewOpenAIAssistant(Config{}, core.NewNopLogger())
	assert.Error(t, a.Init(t.Context()))
}
