package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"convokit/core"
)

// PlayerConfig names the program that renders a clip read from stdin.
type PlayerConfig struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		Command: "ffplay",
		Args:    []string{"-nodisp", "-autoexit", "-loglevel", "error", "-i", "pipe:0"},
	}
}

// Player pipes each clip into an external audio program. Cancelling the context kills it.
type Player struct {
	config PlayerConfig
	logger *core.Logger
}

func NewPlayer(config PlayerConfig, logger *core.Logger) *Player {
	if config.Command == "" {
		config = DefaultPlayerConfig()
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Player{
		config: config,
		logger: logger.With(map[string]any{"service": "command_player", "command": config.Command}),
	}
}

// Available reports whether the player program can be found.
func (p *Player) Available() error {
	if _, err := exec.LookPath(p.config.Command); err != nil {
		return fmt.Errorf("audio player %q not found: %w", p.config.Command, err)
	}
	return nil
}

func (p *Player) Play(ctx context.Context, clip core.AudioClip) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(clip.Data) == 0 {
		return errors.New("empty audio clip")
	}

	cmd := exec.CommandContext(ctx, p.config.Command, p.config.Args...)
	cmd.Stdin = bytes.NewReader(clip.Data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	p.logger.Debug("playing clip", "bytes", len(clip.Data), "media_type", clip.MediaType)
	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return fmt.Errorf("%s: %w: %s", p.config.Command, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// NopPlayer discards audio. Used when a presentation layer renders speech on its own.
type NopPlayer struct{}

func (NopPlayer) Play(ctx context.Context, clip core.AudioClip) error {
	return ctx.Err()
}
