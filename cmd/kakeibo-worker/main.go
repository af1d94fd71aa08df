package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"kakeibo/internal/amqp"
	"kakeibo/internal/backend"
	"kakeibo/internal/cli"
	"kakeibo/internal/ledger"
	applog "kakeibo/internal/log"
	gsheet "kakeibo/internal/sheets/google"
	"kakeibo/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(os.Stdout, "info", "text", applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(bootLogger.Logger)
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat, applog.ComponentWorker)

	if err := cfg.ValidateMirror(); err != nil {
		cli.Fatal(logger.Logger, "Mirror configuration validation failed", err)
	}

	logger.Info("Starting kakeibo-worker")

	ctx, stop := cli.SignalContext(context.Background(), logger.Logger)
	defer stop()

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger.Logger, "Invalid backend configuration", err)
	}
	switch backendConfig.Type {
	case backend.MemoryBackend:
		logger.Warn("Mirroring the in-memory backend only sees this process's rows")
	case backend.BoltBackend:
		logger.Warn("bolt holds an exclusive file lock; the worker cannot share it with a running server")
	}
	// Read only; no change publisher.
	backendConfig.AMQPURL = ""
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		cli.Fatal(logger.Logger, "Failed to initialize backend", err, applog.FieldBackend, backendConfig.Type)
	}

	sheetsClient, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		Labels:          ledger.LabelsFor(cfg.LedgerLocale),
	})
	if err != nil {
		cli.Fatal(logger.Logger, "Failed to initialize Google Sheets client", err)
	}
	if err := sheetsClient.EnsureSheet(ctx); err != nil {
		cli.Fatal(logger.Logger, "Failed to prepare mirror sheet", err, "sheet", cfg.GoogleSheetName)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger.Logger, "Failed to initialize AMQP client", err)
	}

	mirror := worker.NewMirrorWorker(result.Store, sheetsClient)

	var reconciler *worker.Reconciler
	if cfg.MirrorInterval > 0 {
		reconciler = worker.NewReconciler(mirror, worker.ReconcilerConfig{Interval: cfg.MirrorInterval})
		if err := reconciler.Start(ctx); err != nil {
			cli.Fatal(logger.Logger, "Failed to start reconciler", err)
		}
	} else {
		// Startup sync so the sheet reflects changes made while the worker was down
		if _, err := mirror.Mirror(ctx); err != nil {
			logger.Error("Startup mirror failed", "error", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeLedgerChanges(gctx, mirror.HandleChange)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	runErr := g.Wait()
	logger.Info("Shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if reconciler != nil {
		if err := reconciler.Stop(shutdownCtx); err != nil {
			logger.Warn("Reconciler did not stop cleanly", "error", err)
		}
	}
	if err := cli.RunCleanup(result.Cleanup, amqpClient.Close); err != nil {
		logger.Error("Cleanup failed", "error", err)
	}
	if runErr != nil {
		cli.Fatal(logger.Logger, "Message consumption failed", runErr)
	}
	logger.Info("Worker shutdown complete")
}
