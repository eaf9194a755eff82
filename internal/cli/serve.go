package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"aireviewer/internal/app"
	"aireviewer/internal/config"
	"aireviewer/internal/server"
)

func (h *Handler) serveCmd() *cobra.Command {
	var (
		port        string
		dumpPrompts string
		fake        bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				h.cfg.Port = config.NormalizePort(port)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, h.cfg, app.Options{Fake: fake, DumpPrompts: dumpPrompts})
			if err != nil {
				return err
			}
			defer a.Close()

			var archives server.ArchiveStore
			if a.Archives != nil {
				archives = a.Archives
			}
			return server.New(a.Analyzer, archives, nil).ListenAndServe(ctx, h.cfg.Port)
		},
	}

	cmd.Flags().StringVar(&port, "port", ":8000", "Listen address (overrides PORT)")
	cmd.Flags().StringVar(&dumpPrompts, "dump-prompts", "", "Directory receiving every prompt and response")
	cmd.Flags().BoolVar(&fake, "fake", false, "Use the offline fake model")
	return cmd
}
