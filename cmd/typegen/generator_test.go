package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateWireTypes(t *testing.T) {
	out, err := generate(filepath.Join("..", ".."), []string{"core", "store", "protocol", "events"})
	require.NoError(t, err)
	ts := string(out)

	assert.Contains(t, ts, "export interface State {")
	assert.Contains(t, ts, "  messages: Message[]\n")
	assert.Contains(t, ts, "  identity?: Identity\n")
	assert.Contains(t, ts, "  sender: 'user' | 'assistant'\n")
	assert.Contains(t, ts, "  'chat.state_changed': StateChangedEvent\n")
	assert.Contains(t, ts, "  'shared.error_dismissed': Record<string, never>\n")
	assert.Contains(t, ts, "export type IntentId = 'chat.send'")
}

func TestGenerateFromSyntheticPackage(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "events", "demo")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	src := `package demo

import "time"

type Mood string

const (
	Happy Mood = "happy"
	Sad   Mood = "sad"
)

const IntentWave = "demo.wave"

type WavedEvent struct {
	At     time.Time ` + "`json:\"at\"`" + `
	Mood   Mood      ` + "`json:\"mood\"`" + `
	Notes  []string  ` + "`json:\"notes,omitempty\"`" + `
	hidden string
}

func (e *WavedEvent) GetId() string {
	return "demo.waved"
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "demo.go"), []byte(src), 0o644))

	out, err := generate(root, []string{"events"})
	require.NoError(t, err)
	ts := string(out)

	assert.Contains(t, ts, "/** Payload of 'demo.waved'. Generated from events/demo.WavedEvent */")
	assert.Contains(t, ts, "  at: string\n")
	assert.Contains(t, ts, "  mood: 'happy' | 'sad'\n")
	assert.Contains(t, ts, "  notes?: string[]\n")
	assert.NotContains(t, ts, "hidden")
	assert.Contains(t, ts, "export type EventId = 'demo.waved'")
	assert.Contains(t, ts, "export type IntentId = 'demo.wave'")
}
