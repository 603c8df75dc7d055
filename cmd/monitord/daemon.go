package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	monitord "github.com/Adam-Cosner/monitord"
	"github.com/Adam-Cosner/monitord/internal/logger"
	"github.com/Adam-Cosner/monitord/internal/metrics"
	"github.com/Adam-Cosner/monitord/internal/model"
	"github.com/Adam-Cosner/monitord/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const shutdownGrace = 10 * time.Second

func createServeCommand(g *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the monitoring daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := monitord.LoadConfig(g.ConfigPath)
			if err != nil {
				return err
			}
			log, closer, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
				return fmt.Errorf("register metrics: %w", err)
			}

			mon := monitord.New(cfg, log)
			if err := mon.Start(context.Background()); err != nil {
				return err
			}

			srv := server.NewServer(cfg.Server.Addr, cfg.Server.BasePath, mon.Engine(), log)
			log.Info("monitord listening", "addr", cfg.Server.Addr, "base_path", cfg.Server.BasePath)

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			sig := <-stop
			log.Info("shutting down", "signal", sig)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
				log.Warn("http shutdown", "error", err)
			}
			mon.Shutdown(shutdownGrace)
			return nil
		},
	}
}

func createSnapshotCommand(g *GlobalFlags, f *SnapshotFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print a one-shot telemetry snapshot as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := monitord.LoadConfig(g.ConfigPath)
			if err != nil {
				return err
			}
			cfg.Log.Level = "error" // keep one-shot output clean
			log, closer, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			mon := monitord.New(cfg, log)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			var out any
			if f.Category != "" {
				cat, err := model.ParseCategory(f.Category)
				if err != nil || cat == model.CategoryAll {
					return fmt.Errorf("unknown category %q", f.Category)
				}
				snap, err := mon.Snapshot(ctx, cat)
				if err != nil {
					return err
				}
				out = snap
			} else {
				out = mon.GetSystemSnapshot(ctx)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&f.Category, "category", "", "limit to one category (system|cpu|memory|gpu|network|storage|process)")
	return cmd
}
