package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrcode/nursery-advisor/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the advice API and run the watch loop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			settings := a.GetSettings()
			cfg := server.ConfigFromSettings(settings)
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			srv := server.New(cfg, a, a.Badge(), settings, a.Logger())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			loopDone := make(chan error, 1)
			go func() { loopDone <- a.Run(ctx) }()

			srvErr := make(chan error, 1)
			go func() { srvErr <- srv.Start() }()

			select {
			case <-ctx.Done():
			case err := <-srvErr:
				if !errors.Is(err, http.ErrServerClosed) {
					stop()
					<-loopDone
					return err
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.Logger().Warn("server shutdown", "error", err)
			}
			return <-loopDone
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from settings)")
	return cmd
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Recompute advice in the background, alerting and writing the badge",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Run(ctx)
		},
	}
}
