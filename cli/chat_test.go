package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"convokit/core"
	"convokit/events/chat"
	"convokit/orchestrator"
	"convokit/store"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIntents struct {
	calls      []string
	sent       []string
	attachment orchestrator.Attachment
	language   string
	state      store.State
	sendErr    error
}

func (f *fakeIntents) Send(text string) error {
	f.calls = append(f.calls, "send")
	f.sent = append(f.sent, text)
	return f.sendErr
}

func (f *fakeIntents) SelectAttachment(a orchestrator.Attachment) error {
	f.calls = append(f.calls, "attach")
	f.attachment = a
	return nil
}

func (f *fakeIntents) Upload() error {
	f.calls = append(f.calls, "upload")
	return nil
}

func (f *fakeIntents) DiscardAttachment() error {
	f.calls = append(f.calls, "discard")
	return nil
}

func (f *fakeIntents) ToggleCapture() error {
	f.calls = append(f.calls, "mic")
	return nil
}

func (f *fakeIntents) ToggleVoiceOutput() error {
	f.calls = append(f.calls, "voice")
	f.state.VoiceOutputEnabled = !f.state.VoiceOutputEnabled
	return nil
}

func (f *fakeIntents) StopSpeech() error {
	f.calls = append(f.calls, "stop")
	return nil
}

func (f *fakeIntents) ToggleDarkMode() error {
	f.calls = append(f.calls, "dark")
	return nil
}

func (f *fakeIntents) SetLanguage(name string) error {
	f.calls = append(f.calls, "lang")
	f.language = name
	return nil
}

func (f *fakeIntents) SetInterfaceLanguage(string) error {
	f.calls = append(f.calls, "ui-lang")
	return nil
}

func (f *fakeIntents) Login(string, string) error {
	return nil
}

func (f *fakeIntents) Signup(string, string, string) error {
	return nil
}

func (f *fakeIntents) SignOut() error {
	f.calls = append(f.calls, "logout")
	return nil
}

func (f *fakeIntents) DismissError() error {
	f.calls = append(f.calls, "dismiss")
	return nil
}

func (f *fakeIntents) State() store.State {
	return f.state
}

func (f *fakeIntents) Error() string {
	return ""
}

func newTestTerminal() (*terminal, *bytes.Buffer) {
	color.NoColor = true
	var out bytes.Buffer
	return newTerminal(&out, "#/*"), &out
}

func TestHandleLineDispatchesCommands(t *testing.T) {
	term, _ := newTestTerminal()
	intents := &fakeIntents{state: store.InitialState()}

	for _, line := range []string{"/mic", "/voice", "/stop", "/discard", "/dark", "/lang Tamil", "/ui-lang Hindi", "/dismiss", "/logout"} {
		quit, err := term.handleLine(intents, line)
		require.NoError(t, err, line)
		assert.False(t, quit)
	}
	assert.Equal(t, []string{"mic", "voice", "stop", "discard", "dark", "lang", "ui-lang", "dismiss", "logout"}, intents.calls)
	assert.Equal(t, "Tamil", intents.language)
}

func TestHandleLineSendsPlainText(t *testing.T) {
	term, out := newTestTerminal()
	intents := &fakeIntents{}

	_, err := term.handleLine(intents, "  what is section 302?  ")
	require.NoError(t, err)
	assert.Equal(t, []string{"what is section 302?"}, intents.sent)

	// The typed line is already on screen; voice transcripts are not.
	term.render(&chat.MessageAppendedEvent{Message: core.Message{Sender: core.SenderUser, Text: "what is section 302?"}})
	term.render(&chat.MessageAppendedEvent{Message: core.Message{Sender: core.SenderUser, Text: "spoken question"}})
	assert.NotContains(t, out.String(), "what is section 302?")
	assert.Contains(t, out.String(), "> spoken question")
}

func TestHandleLineIgnoresEmptyInput(t *testing.T) {
	term, _ := newTestTerminal()
	intents := &fakeIntents{sendErr: orchestrator.ErrEmptyInput}

	_, err := term.handleLine(intents, "   ")
	require.NoError(t, err)
	assert.Empty(t, intents.calls)
}

func TestHandleLineAttachAndUpload(t *testing.T) {
	term, _ := newTestTerminal()
	intents := &fakeIntents{}
	path := filepath.Join(t.TempDir(), "fir.txt")
	require.NoError(t, os.WriteFile(path, []byte("complaint"), 0o644))

	_, err := term.handleLine(intents, "/upload "+path)
	require.NoError(t, err)
	assert.Equal(t, []string{"attach", "upload"}, intents.calls)
	assert.Equal(t, "fir.txt", intents.attachment.Name)
	assert.Equal(t, int64(9), intents.attachment.Size)

	_, err = term.handleLine(intents, "/attach")
	assert.Error(t, err)
}

func TestHandleLineQuitAndUnknown(t *testing.T) {
	term, _ := newTestTerminal()
	intents := &fakeIntents{}

	quit, err := term.handleLine(intents, "/quit")
	require.NoError(t, err)
	assert.True(t, quit)

	_, err = term.handleLine(intents, "/teleport")
	assert.ErrorContains(t, err, "unknown command")
}

func TestRenderAssistantAndErrors(t *testing.T) {
	term, out := newTestTerminal()

	term.render(&chat.MessageAppendedEvent{Message: core.Message{Sender: core.SenderAssistant, Text: "## Section *302*"}})
	term.render(&core.ErrorReportedEvent{Kind: core.ErrorKindTransport, Message: "could not reach the assistant"})
	term.failure(orchestrator.ErrAttachmentTooLarge)
	term.failure(errors.New("boom"))

	text := out.String()
	assert.Contains(t, text, " Section 302")
	assert.Contains(t, text, "could not reach the assistant")
	assert.Contains(t, text, "error: boom")
	assert.NotContains(t, text, "size limit")
}

func TestBannerAndHelp(t *testing.T) {
	term, out := newTestTerminal()
	term.banner(&core.Identity{DisplayName: "meena", Email: "m@example.com"}, core.Tamil, "abcd1234")
	_, err := term.handleLine(&fakeIntents{}, "/help")
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "CONVOKIT [M meena] (Tamil) abcd1234")
	assert.Contains(t, text, "English, Tamil, Hindi, Telugu, Kannada")
	assert.Contains(t, text, "typewriter reveal is sent to bridge clients")
}
