package cli

import (
	"os"
	"os/signal"
	"syscall"

	"convokit/bridge"
	"convokit/factories"
	"convokit/runner"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the conversation to a presentation layer over WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger, closeLog := a.conversationLogger(uuid.New().String(), "")
			defer closeLog()

			components, err := factories.Build(a.settings, logger)
			if err != nil {
				return err
			}
			config := a.settings.Bridge
			if addr != "" {
				config.Addr = addr
			}
			server := bridge.NewServer(config, components.Orchestrator, logger)
			components.Orchestrator.Observe(server.Broadcast)

			r := runner.NewRunner(components.Services, logger)
			if err := r.Start(ctx); err != nil {
				return err
			}
			defer r.Stop()

			return server.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address override")
	return cmd
}
