package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"kakeibo/internal/backend"
	"kakeibo/internal/cli"
	apphttp "kakeibo/internal/http"
	"kakeibo/internal/ingest"
	applog "kakeibo/internal/log"
	"kakeibo/internal/taxonomy"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(os.Stdout, "info", "text", applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(bootLogger.Logger)
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat, applog.ComponentApp)

	ctx, stop := cli.SignalContext(context.Background(), logger.Logger)
	defer stop()

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger.Logger, "Invalid backend configuration", err)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		cli.Fatal(logger.Logger, "Failed to initialize backend", err, applog.FieldBackend, backendConfig.Type)
	}

	categories, err := taxonomy.Load(cfg.CategoriesFile)
	if err != nil {
		cli.Fatal(logger.Logger, "Failed to load categories", err, applog.FieldFile, cfg.CategoriesFile)
	}

	var assistant apphttp.ReceiptSuggester
	if cfg.TesseractPath != "" {
		assistant = ingest.NewAssistant(ingest.NewTesseractExtractor(cfg.TesseractPath, cfg.TesseractLang))
	} else {
		logger.Info("Receipt OCR disabled - no TESSERACT_PATH provided")
	}

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		Backend:            cfg.DataBackend,
		BudgetTag:          cfg.BudgetTag,
		BudgetLimit:        cfg.BudgetLimit,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		Taxonomy:           categories,
		Logger:             logger,
	}, result.Service, assistant)
	if err != nil {
		cli.Fatal(logger.Logger, "Failed to configure server", err)
	}

	// Configure server timeouts and limits
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting kakeibo server",
			"port", cfg.Port,
			applog.FieldBackend, cfg.DataBackend,
			"budget_tag", cfg.BudgetTag,
			"budget_limit", cfg.BudgetLimit)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("Shutting down server", "timeout", cfg.ShutdownTimeout)
		return srv.Shutdown(shutdownCtx)
	})

	runErr := g.Wait()
	if err := cli.RunCleanup(result.Cleanup); err != nil {
		logger.Error("Cleanup failed", "error", err)
	}
	if runErr != nil {
		cli.Fatal(logger.Logger, "Server error", runErr, "port", cfg.Port)
	}
	logger.Info("Server stopped gracefully")
}
