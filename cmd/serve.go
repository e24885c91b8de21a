package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xhad/seerah/internal/logger"
	"github.com/xhad/seerah/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat over HTTP and websockets",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openAssistant(cmd, false)
			if err != nil {
				return err
			}
			defer app.Close()
			a := app.assistant

			cfg := app.cfg
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if port := os.Getenv("PORT"); port != "" && !cmd.Flags().Changed("addr") {
				addr = ":" + port
			}

			if !logger.IsVerbose() {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			info := a.Info()
			color.Green("✓ Serving %d chunks (%s) on %s", info.Chunks, info.Backend, addr)
			return server.New(server.Config{Addr: addr, Streaming: cfg.Server.Streaming}, a).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
