package factories

import (
	"convokit/core"
	playbackhandler "convokit/handlers/playback"
	"convokit/services/command"
)

// PlayerFactoryConfig configures local audio output. Mute discards audio, which suits a
// presentation layer that plays speech itself.
type PlayerFactoryConfig struct {
	Command *command.PlayerConfig `json:"command,omitempty"`
	Mute    bool                  `json:"mute"`
}

// BuildPlayer falls back to a silent player when the player program cannot be found.
func BuildPlayer(config PlayerFactoryConfig, logger *core.Logger) playbackhandler.IPlayer {
	if logger == nil {
		logger = core.GetLogger()
	}
	if config.Mute {
		return command.NopPlayer{}
	}
	cfg := command.DefaultPlayerConfig()
	if config.Command != nil {
		cfg = *config.Command
	}
	player := command.NewPlayer(cfg, logger)
	if err := player.Available(); err != nil {
		logger.WithError(err).Warn("audio output disabled")
		return command.NopPlayer{}
	}
	return player
}
