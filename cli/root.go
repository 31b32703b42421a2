package cli

import (
	"os"

	"convokit/core"
	"convokit/factories"

	"github.com/spf13/cobra"
)

type app struct {
	settingsPath string
	logLevel     string

	settings factories.SettingsConfig
	logger   *core.Logger
}

// NewRootCmd builds the convokit command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "convokit",
		Short:         "Talk to the legal assistant by text or voice",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.load()
		},
	}
	cmd.PersistentFlags().StringVar(&a.settingsPath, "settings", "", "settings file (default $SETTINGS_PATH or ./settings.json)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")

	cmd.AddCommand(
		newChatCmd(a),
		newServeCmd(a),
		newLoginCmd(a),
		newSignupCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
	)
	return cmd
}

// load reads settings and points logging at stderr so stdout carries only the conversation.
func (a *app) load() {
	if a.settingsPath != "" {
		os.Setenv("SETTINGS_PATH", a.settingsPath)
	}
	bootstrap := core.NewWriterLogger(os.Stderr, core.LevelWarn)
	a.settings = factories.LoadSettings(bootstrap)
	if a.logLevel != "" {
		a.settings.LogLevel = a.logLevel
	}
	a.logger = core.NewWriterLogger(os.Stderr, core.ParseLevel(a.settings.LogLevel))
	core.SetLogger(*a.logger)
}

// conversationLogger tees into a per-conversation file when log_dir is set. The returned close
// function is never nil.
func (a *app) conversationLogger(conversationID, user string) (*core.Logger, func()) {
	if a.settings.LogDir == "" {
		return a.logger, func() {}
	}
	writer, err := core.NewConversationLogWriter(a.settings.LogDir, conversationID, user)
	if err != nil {
		a.logger.WithError(err).Warn("conversation log disabled")
		return a.logger, func() {}
	}
	logger := core.NewTeeLogger(a.logger, writer).With(map[string]any{"conversation_id": conversationID})
	return logger, writer.Close
}
