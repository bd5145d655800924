// Package pipeline wires the normalize-resolve-load loop: raw records from
// the extractor are normalized, their dimensions resolved to surrogate ids,
// and their production facts upserted. Per-record failures are collected
// and attributed, never aborting the batch; re-running the pipeline on the
// same input is idempotent because both dimensions and facts upsert.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/well-production-etl/internal/domain"
	"github.com/couchcryptid/well-production-etl/internal/observability"
	"github.com/couchcryptid/well-production-etl/internal/store"
)

// BatchExtractor reads up to batchSize raw records from the source.
// An empty batch means the finite input is exhausted.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawRecord, error)
}

// DimensionResolver maps natural keys to surrogate ids, creating dimension
// rows on first sight. Implemented by the store.
type DimensionResolver interface {
	ResolveState(ctx context.Context, name, code string) (int64, error)
	ResolveOperator(ctx context.Context, name string) (int64, error)
	ResolveWell(ctx context.Context, w domain.Well, stateID, operatorID int64) (int64, error)
}

// FactLoader upserts production facts keyed by (well, month, product).
// Implemented by the store.
type FactLoader interface {
	UpsertFact(ctx context.Context, wellID int64, m domain.Measurement) (store.LoadResult, error)
}

// Pipeline orchestrates one ingestion run.
type Pipeline struct {
	extractor BatchExtractor
	resolver  DimensionResolver
	loader    FactLoader
	stats     domain.StatsProvider
	opts      domain.NormalizeOptions
	logger    *slog.Logger
	metrics   *observability.Metrics
	batchSize int
	workers   int
	ready     atomic.Bool
}

// New creates a Pipeline. stats may be nil to skip outlier screening.
func New(e BatchExtractor, r DimensionResolver, l FactLoader, stats domain.StatsProvider,
	opts domain.NormalizeOptions, logger *slog.Logger, metrics *observability.Metrics,
	batchSize, workers int) *Pipeline {
	if batchSize <= 0 {
		batchSize = 100
	}
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline{
		extractor: e,
		resolver:  r,
		loader:    l,
		stats:     stats,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
		workers:   workers,
	}
}

// CheckReadiness returns nil once the pipeline has committed at least one
// batch, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not committed any batches yet")
	}
	return nil
}

// Run executes the ingestion loop until the extractor is exhausted or the
// context is cancelled. The returned report is valid in both cases.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	p.logger.Info("pipeline started", "batch_size", p.batchSize, "workers", p.workers)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	report := newReport()
	unitByProduct := make(map[domain.ProductType]string)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return report, nil
		default:
		}

		batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				return report, nil
			}
			return report, fmt.Errorf("extract batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		start := time.Now()
		p.metrics.RecordsExtracted.Add(float64(len(batch)))
		p.metrics.BatchSize.Observe(float64(len(batch)))
		report.RecordsExtracted += len(batch)

		p.processBatch(ctx, batch, report, unitByProduct)

		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}

	p.logger.Info("pipeline finished",
		"extracted", report.RecordsExtracted,
		"loaded", report.RecordsLoaded,
		"facts_inserted", report.FactsInserted,
		"facts_updated", report.FactsUpdated,
		"rejections", report.RejectionCount(),
		"fatal", report.Fatal(),
	)
	return report, nil
}

type productUnit struct {
	product domain.ProductType
	unit    string
}

type recordResult struct {
	loaded     bool
	inserted   int
	updated    int
	rejections []domain.Rejection
	units      []productUnit
}

// processBatch fans records out to the worker pool and merges results into
// the report. The merge runs on a single goroutine, so the report and the
// per-run unit table need no locking.
func (p *Pipeline) processBatch(ctx context.Context, batch []domain.RawRecord, report *Report, unitByProduct map[domain.ProductType]string) {
	jobs := make(chan domain.RawRecord)
	results := make(chan recordResult, len(batch))

	var wg sync.WaitGroup
	for range p.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for raw := range jobs {
				results <- p.processRecord(ctx, raw)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, raw := range batch {
			select {
			case jobs <- raw:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		p.merge(res, report, unitByProduct)
	}
}

// processRecord runs one record through normalize → resolve → load.
// Resolution failures halt the record; a failed fact upsert halts only that
// measurement.
func (p *Pipeline) processRecord(ctx context.Context, raw domain.RawRecord) recordResult {
	out := domain.Normalize(raw, p.stats, p.opts)
	if !out.Valid {
		p.logger.Warn("record rejected",
			"reason", out.Rejection.Reason, "detail", out.Rejection.Detail)
		return recordResult{rejections: []domain.Rejection{out.Rejection}}
	}

	res := recordResult{rejections: out.Dropped}
	well := out.Record.Well

	stateID, err := p.resolver.ResolveState(ctx, well.StateName, well.StateCode)
	if err != nil {
		return p.failRecord(res, well.APINumber, err)
	}
	operatorID, err := p.resolver.ResolveOperator(ctx, well.Operator)
	if err != nil {
		return p.failRecord(res, well.APINumber, err)
	}
	wellID, err := p.resolver.ResolveWell(ctx, well, stateID, operatorID)
	if err != nil {
		return p.failRecord(res, well.APINumber, err)
	}

	res.loaded = true
	for _, m := range out.Record.Measurements {
		result, err := p.loader.UpsertFact(ctx, wellID, m)
		if err != nil {
			p.logger.Warn("fact upsert failed, skipping measurement",
				"well", well.APINumber, "date", m.Date.Format("2006-01"),
				"product", m.Product, "error", err)
			res.rejections = append(res.rejections, domain.Rejection{
				Reason: domain.ClassifyError(err),
				Detail: err.Error(),
			})
			continue
		}
		if result == store.LoadInserted {
			res.inserted++
		} else {
			res.updated++
		}
		if m.Flagged {
			res.rejections = append(res.rejections, domain.Rejection{
				Reason: domain.ReasonOutlier,
				Detail: fmt.Sprintf("well %s %s %s: loaded flagged", well.APINumber, m.Product, m.Date.Format("2006-01")),
			})
		}
		if m.Unit != "" {
			res.units = append(res.units, productUnit{product: m.Product, unit: m.Unit})
		}
	}
	return res
}

func (p *Pipeline) failRecord(res recordResult, apiNumber string, err error) recordResult {
	p.logger.Warn("record failed, skipping", "well", apiNumber, "error", err)
	res.loaded = false
	res.rejections = append(res.rejections, domain.Rejection{
		Reason: domain.ClassifyError(err),
		Detail: err.Error(),
	})
	return res
}

func (p *Pipeline) merge(res recordResult, report *Report, unitByProduct map[domain.ProductType]string) {
	if res.loaded {
		report.RecordsLoaded++
		p.metrics.RecordsLoaded.Inc()
	}
	report.FactsInserted += res.inserted
	report.FactsUpdated += res.updated
	p.metrics.FactsLoaded.WithLabelValues("inserted").Add(float64(res.inserted))
	p.metrics.FactsLoaded.WithLabelValues("updated").Add(float64(res.updated))

	for _, rej := range res.rejections {
		report.add(rej)
		if rej.Reason.Soft() {
			p.metrics.Warnings.WithLabelValues(string(rej.Reason)).Inc()
		} else {
			p.metrics.RecordsRejected.WithLabelValues(string(rej.Reason)).Inc()
		}
	}

	// Unit consistency is a per-run audit: the first unit seen for a
	// product sets the expectation, divergence is a soft warning and the
	// load proceeds unconverted.
	for _, pu := range res.units {
		seen, ok := unitByProduct[pu.product]
		if !ok {
			unitByProduct[pu.product] = pu.unit
			continue
		}
		if seen != pu.unit {
			warning := domain.Rejection{
				Reason: domain.ReasonUnitMismatch,
				Detail: fmt.Sprintf("product %s: unit %q differs from %q seen earlier in this run", pu.product, pu.unit, seen),
			}
			report.add(warning)
			p.metrics.Warnings.WithLabelValues(string(domain.ReasonUnitMismatch)).Inc()
			p.logger.Warn("unit mismatch", "product", pu.product, "unit", pu.unit, "expected", seen)
		}
	}
}
