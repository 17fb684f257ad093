package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/shellbridge/internal/server"
)

func newMCPCmd(flags *overrides) *cobra.Command {
	var withHTTP bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve tools over the Model Context Protocol on stdio",
		Long: `Serve every registered tool over MCP using stdin and stdout.

Logs go to stderr so stdout carries only protocol messages. With --http the
HTTP API and WebSocket viewers run alongside, sharing the same sessions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			srv, err := server.New(cfg, flags.serverOptions()...)
			if err != nil {
				return err
			}
			logger := srv.Logger()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if withHTTP {
				go func() {
					if err := srv.Run(); err != nil {
						logger.Error("HTTP server error", zap.Error(err))
						cancel()
					}
				}()
			}

			logger.Info("Serving MCP on stdio", zap.Bool("http", withHTTP))
			runErr := srv.MCP().Run(ctx)
			if errors.Is(runErr, context.Canceled) {
				runErr = nil
			}

			shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownGrace)
			defer stop()
			return errors.Join(runErr, srv.Close(shutdownCtx))
		},
	}
	cmd.Flags().BoolVar(&withHTTP, "http", false, "also serve the HTTP API")
	return cmd
}
