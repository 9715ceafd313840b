package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/odyssey-erp/storeledger/internal/jobs"
	"github.com/odyssey-erp/storeledger/internal/reports"
)

// Warmer is the subset of the report service the warmup touches.
type Warmer interface {
	Valuer
	SalesReport(ctx context.Context, asOf time.Time) (reports.SalesReport, error)
	PurchaseReport(ctx context.Context, asOf time.Time) (reports.PurchaseReport, error)
	PurchaseSummary(ctx context.Context, asOf time.Time) (reports.PurchaseSummary, error)
	SalesByStore(ctx context.Context) ([]reports.StoreSales, error)
	ProductStockReport(ctx context.Context) (reports.ProductStockReport, error)
}

// ReportWarmupJob pre-populates the report cache so the first page view of
// the day is served from Redis.
type ReportWarmupJob struct {
	Reports Warmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(warmer Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportWarmupJob {
	return &ReportWarmupJob{Reports: warmer, Logger: logger, Metrics: metrics}
}

// Handle processes TaskReportWarmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Reports == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ScheduledPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.Metrics.Track(TaskReportWarmup)
	defer func() { err = tracker.End(err) }()

	asOf := payload.ScheduledFor
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { _, err := j.Reports.SalesReport(gctx, asOf); return err })
	g.Go(func() error { _, err := j.Reports.PurchaseReport(gctx, asOf); return err })
	g.Go(func() error { _, err := j.Reports.PurchaseSummary(gctx, asOf); return err })
	g.Go(func() error { _, err := j.Reports.SalesByStore(gctx); return err })
	g.Go(func() error { _, err := j.Reports.ProductStockReport(gctx); return err })
	g.Go(func() error { _, err := j.Reports.InventoryValuation(gctx); return err })
	if err := g.Wait(); err != nil {
		logger(j.Logger).Error("report warmup", slog.Any("error", err))
		return err
	}
	logger(j.Logger).Info("report cache warmed")
	return nil
}
