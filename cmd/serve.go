package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"impactanalyzer/core/internal/server"
	"impactanalyzer/core/internal/telemetry"
)

var (
	serveAddr       string
	serveWatch      bool
	serveCORSOrigin string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve impact queries over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr = serveAddr
		}
		if cmd.Flags().Changed("watch") {
			cfg.Server.Watch = serveWatch
		}
		if cmd.Flags().Changed("cors-origin") {
			cfg.Server.CORSOrigin = serveCORSOrigin
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:    "impactd",
			ServiceVersion: server.Version,
			TraceExporter:  cfg.Telemetry.TraceExporter,
			MetricExporter: cfg.Telemetry.MetricExporter,
		})
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				slog.Warn("telemetry shutdown failed", "error", err)
			}
		}()

		opts := engineOptions(cfg)
		opts.OnRebuild = server.ObserveGraph
		eng, err := LoadEngine(ctx, opts)
		if err != nil {
			return err
		}

		srv := server.New(eng, server.Options{
			Addr:       cfg.Server.Addr,
			CORSOrigin: cfg.Server.CORSOrigin,
			Logger:     slog.Default(),
		})

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Run(gctx)
		})
		if cfg.Server.Watch {
			g.Go(func() error {
				return eng.Watch(gctx, time.Duration(cfg.Server.DebounceMS)*time.Millisecond)
			})
		}
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Rebuild the graph when the fact sources change")
	serveCmd.Flags().StringVar(&serveCORSOrigin, "cors-origin", "", "Browser origin allowed to call the API")
	rootCmd.AddCommand(serveCmd)
}
