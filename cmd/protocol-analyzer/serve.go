// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/protocol-analyzer/internal/ingest"
	"github.com/pdiddy/protocol-analyzer/internal/report"
	"github.com/pdiddy/protocol-analyzer/internal/research"
	"github.com/pdiddy/protocol-analyzer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and web frontend",
	Long: `Serve starts the HTTP API: protocol upload and analysis, per-drug research,
report export and download, a health check, and the static frontend from
server.static_dir.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "listen host (overrides server.host)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides server.port)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	reports, err := report.NewGenerator(cfg.Report, logger)
	if err != nil {
		return err
	}
	defer reports.Close()

	analyzer, aiOK := newAnalyzer(logger)
	srv := server.NewServer(server.Deps{
		Analyzer:     analyzer,
		Researcher:   research.NewAggregator(cfg.Research, logger),
		Ingest:       ingest.NewExtractor(cfg.Server.MaxUploadBytes),
		Reports:      reports,
		AIConfigured: aiOK,
		Version:      version,
	}, cfg.Server, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
