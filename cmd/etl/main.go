// Command etl runs one ingestion pass: raw well and production records are
// normalized, resolved into the dimensional model, and upserted as facts.
// Re-running on the same input is safe; the exit status is non-zero when
// any fatal-class record error occurred.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/well-production-etl/internal/adapter/csvfile"
	httpadapter "github.com/couchcryptid/well-production-etl/internal/adapter/http"
	"github.com/couchcryptid/well-production-etl/internal/config"
	"github.com/couchcryptid/well-production-etl/internal/domain"
	"github.com/couchcryptid/well-production-etl/internal/observability"
	"github.com/couchcryptid/well-production-etl/internal/pipeline"
	"github.com/couchcryptid/well-production-etl/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DatabaseURL, cfg.RetryMaxAttempts)
	if err != nil {
		logger.Error("store open failed", "error", err)
		return 1
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()

	// Snapshot trailing statistics before the run so outlier screening sees
	// a stable baseline, not the data being loaded.
	since := clock.Now().AddDate(0, -cfg.StatsWindowMonths, 0)
	stats, err := st.TrailingStats(ctx, since)
	if err != nil {
		logger.Error("trailing stats snapshot failed", "error", err)
		return 1
	}

	extractor := csvfile.New(cfg.RawDataDir)
	opts := domain.NormalizeOptions{
		OutlierMultiple: cfg.OutlierMultiple,
		OutlierMode:     cfg.OutlierMode,
	}
	p := pipeline.New(extractor, st, st, stats, opts, logger, metrics, cfg.BatchSize, cfg.Workers)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	report, runErr := p.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	if runErr != nil {
		logger.Error("pipeline error", "error", runErr)
		return 1
	}

	for _, d := range report.Details {
		if d.Reason.Soft() {
			logger.Warn("audit warning", "reason", d.Reason, "detail", d.Detail)
		}
	}
	if report.Fatal() {
		logger.Error("run completed with fatal-class record errors",
			"rejections", report.Rejections)
		return 1
	}

	logger.Info("run complete",
		"extracted", report.RecordsExtracted,
		"loaded", report.RecordsLoaded,
		"facts_inserted", report.FactsInserted,
		"facts_updated", report.FactsUpdated,
	)
	return 0
}
