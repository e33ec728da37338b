package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/dontoisme/zeroed/internal/amqp"
	"github.com/dontoisme/zeroed/internal/budget"
	"github.com/dontoisme/zeroed/internal/cli"
	"github.com/dontoisme/zeroed/internal/core"
	gsheet "github.com/dontoisme/zeroed/internal/export/google"
	"github.com/dontoisme/zeroed/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupWorkerLogger()

	logger.Info("Starting zeroed-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateExport(); err != nil {
		logger.Error("Export configuration validation failed", "error", err)
		os.Exit(1)
	}

	store, closeStore := cli.InitStore(logger, cfg)
	defer closeStore()

	sheetsClient, err := gsheet.NewFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(budget.NewEngine(store), sheetsClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Export the current month once on startup so a fresh deployment has a
	// snapshot before the first request arrives.
	if err := exportWorker.ExportCurrent(ctx, core.CurrentMonth()); err != nil {
		logger.Error("Startup export failed", "error", err)
		// Don't exit - the consume loop can still serve requests.
	}

	go func() {
		handler := func(msg *amqp.SnapshotRequest) error {
			return exportWorker.HandleSnapshotRequest(ctx, msg)
		}
		if err := amqpClient.ConsumeSnapshotRequests(ctx, handler); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	// Periodic refresh keeps the sheet current even when no explicit export
	// requests come in.
	ticker := time.NewTicker(cfg.ExportInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := exportWorker.ExportCurrent(ctx, core.CurrentMonth()); err != nil {
					logger.Error("Periodic export failed", "error", err)
				}
			}
		}
	}()

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, cancel)
	cli.WaitForShutdown(shutdownCtx, done)
}
