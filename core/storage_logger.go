package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ConversationMetadata is the first JSON line in each conversation log file.
type ConversationMetadata struct {
	ConversationID string `json:"conversation_id"`
	User           string `json:"user,omitempty"`
	StartedAt      string `json:"started_at"`
}

// LogEntry is a single JSON log line written after the metadata line.
type LogEntry struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Message   string                 `json:"msg"`
	Attrs     map[string]interface{} `json:"attrs,omitempty"`
}

// LogWriter abstracts the destination for conversation log entries.
type LogWriter interface {
	Write(level, msg string, attrs map[string]interface{})
	Close()
}

// ConversationLogWriter writes structured log lines to a per-conversation .jsonl file.
// An .active marker sits next to the file while the conversation is running.
type ConversationLogWriter struct {
	mu             sync.Mutex
	file           *os.File
	logDir         string
	conversationID string
}

// NewConversationLogWriter creates the log directory and file, writes the metadata line and
// the .active marker.
func NewConversationLogWriter(logDir, conversationID, user string) (*ConversationLogWriter, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("conversation log: mkdir %q: %w", logDir, err)
	}

	filePath := filepath.Join(logDir, conversationID+".jsonl")
	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("conversation log: create %q: %w", filePath, err)
	}

	meta := ConversationMetadata{
		ConversationID: conversationID,
		User:           user,
		StartedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	data, _ := json.Marshal(meta)
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return nil, fmt.Errorf("conversation log: write metadata: %w", err)
	}

	activePath := filepath.Join(logDir, conversationID+".active")
	if af, err := os.Create(activePath); err == nil {
		af.Close()
	}

	return &ConversationLogWriter{
		file:           f,
		logDir:         logDir,
		conversationID: conversationID,
	}, nil
}

// Path of the .jsonl file.
func (w *ConversationLogWriter) Path() string {
	return filepath.Join(w.logDir, w.conversationID+".jsonl")
}

// Write appends a structured log line to the conversation file.
func (w *ConversationLogWriter) Write(level, msg string, attrs map[string]interface{}) {
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Message:   msg,
		Attrs:     stringifyErrors(attrs),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		w.file.Write(append(data, '\n'))
	}
}

// Close closes the log file and removes the .active marker. Later writes are dropped.
func (w *ConversationLogWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
	os.Remove(filepath.Join(w.logDir, w.conversationID+".active"))
}

// error values marshal to {} otherwise.
func stringifyErrors(attrs map[string]interface{}) map[string]interface{} {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		if err, ok := v.(error); ok {
			out[k] = err.Error()
			continue
		}
		out[k] = v
	}
	return out
}

// NewTeeLogger creates a Logger that writes to both the base logger and the LogWriter. Child
// loggers created via With() inherit this behaviour.
func NewTeeLogger(baseLogger *Logger, writer LogWriter) *Logger {
	handler := func(level string, msg string, attrs map[string]interface{}) {
		if baseLogger.handlerFunc != nil {
			baseLogger.handlerFunc(level, msg, attrs)
		}
		writer.Write(level, msg, attrs)
	}

	return &Logger{
		handlerFunc: handler,
		attrs:       make(map[string]interface{}),
		minLevel:    baseLogger.minLevel,
	}
}
