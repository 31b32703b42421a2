package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"convokit/core"
)

// MicrophoneConfig names the recorder program and the raw format it writes to stdout.
type MicrophoneConfig struct {
	Command    string   `json:"command"`
	Args       []string `json:"args"`
	SampleRate int      `json:"sample_rate"`
	Channels   int      `json:"channels"`
	Encoding   string   `json:"encoding"` // pcm, ulaw or alaw
	ChunkBytes int      `json:"chunk_bytes"`
}

func DefaultMicrophoneConfig() MicrophoneConfig {
	return MicrophoneConfig{
		Command:    "arecord",
		Args:       []string{"-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "raw"},
		SampleRate: 16000,
		Channels:   1,
		Encoding:   "pcm",
		ChunkBytes: 3200,
	}
}

// Microphone records from an external program for as long as the context passed to Open lives.
type Microphone struct {
	config MicrophoneConfig
	format core.AudioEncodingFormat
	logger *core.Logger
}

func NewMicrophone(config MicrophoneConfig, logger *core.Logger) *Microphone {
	defaults := DefaultMicrophoneConfig()
	if config.Command == "" {
		config.Command = defaults.Command
		config.Args = defaults.Args
	}
	if config.SampleRate == 0 {
		config.SampleRate = defaults.SampleRate
	}
	if config.Channels == 0 {
		config.Channels = defaults.Channels
	}
	if config.ChunkBytes <= 0 {
		config.ChunkBytes = defaults.ChunkBytes
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Microphone{
		config: config,
		format: core.ParseAudioEncoding(config.Encoding),
		logger: logger.With(map[string]any{"service": "microphone", "command": config.Command}),
	}
}

// Open starts the recorder. The channel closes when the recorder exits or ctx is cancelled.
func (m *Microphone) Open(ctx context.Context) (<-chan core.AudioChunk, error) {
	if _, err := exec.LookPath(m.config.Command); err != nil {
		return nil, fmt.Errorf("recorder %q not found: %w", m.config.Command, err)
	}
	cmd := exec.CommandContext(ctx, m.config.Command, m.config.Args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start recorder: %w", err)
	}

	chunks := make(chan core.AudioChunk, 16)
	go func() {
		defer close(chunks)
		defer func() {
			if err := cmd.Wait(); err != nil && ctx.Err() == nil {
				m.logger.WithError(err).Warn("recorder exited")
			}
		}()

		for {
			buf := make([]byte, m.config.ChunkBytes)
			n, err := io.ReadFull(stdout, buf)
			if n > 0 {
				data := buf[:n]
				select {
				case chunks <- core.AudioChunk{
					Data:       &data,
					SampleRate: m.config.SampleRate,
					Channels:   m.config.Channels,
					Format:     m.format,
				}:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && ctx.Err() == nil {
					m.logger.WithError(err).Warn("recorder read failed")
				}
				return
			}
		}
	}()
	return chunks, nil
}
