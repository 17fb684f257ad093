package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/shellbridge/internal/server"
)

const shutdownGrace = 15 * time.Second

func newServeCmd(flags *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, WebSocket viewers and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			srv, err := server.New(cfg, flags.serverOptions()...)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Run() }()

			select {
			case <-ctx.Done():
				srv.Logger().Info("Shutting down gracefully...")
			case err := <-errCh:
				if err != nil {
					srv.Logger().Error("Server error", zap.Error(err))
				}
				_ = srv.Close(context.Background())
				return err
			}

			shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownGrace)
			defer stop()
			return srv.Close(shutdownCtx)
		},
	}
}
