// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/answer-engine/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the answer pipeline over HTTP",
	Long: `Serve exposes the pipeline as a JSON API:

  POST /api/search         {"query": "...", "options": {...}}
  GET  /api/health
  GET  /api/history        recent archived runs (when the archive is enabled)
  GET  /api/history/{id}   one archived run

The server shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			viper.Set("server.addr", addr)
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eng, err := newEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer eng.Close(context.Background())

		scfg := server.Config{
			Runner:         eng.pipeline,
			Providers:      eng.pipeline.Registry().Names(),
			RequestTimeout: cfg.Server.RequestTimeout,
			Logger:         logger,
		}
		if eng.archive != nil {
			scfg.History = eng.archive
		}
		return server.New(scfg).ListenAndServe(ctx, cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config, :8080)")

	rootCmd.AddCommand(serveCmd)
}
