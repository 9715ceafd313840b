package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/storeledger/internal/jobs"
	"github.com/odyssey-erp/storeledger/internal/reports"
)

// Valuer computes the current inventory valuation.
type Valuer interface {
	InventoryValuation(ctx context.Context) (reports.InventoryValuation, error)
}

// InventoryValuationJob publishes stock value per store as a gauge.
type InventoryValuationJob struct {
	Reports Valuer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewInventoryValuationJob wires dependencies for the valuation handler.
func NewInventoryValuationJob(valuer Valuer, logger *slog.Logger, metrics *jobmetrics.Metrics) *InventoryValuationJob {
	return &InventoryValuationJob{Reports: valuer, Logger: logger, Metrics: metrics}
}

// Handle processes TaskInventoryValuation tasks.
func (j *InventoryValuationJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Reports == nil {
		return errors.New("inventory valuation: handler not configured")
	}
	var payload ScheduledPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.Metrics.Track(TaskInventoryValuation)
	defer func() { err = tracker.End(err) }()

	valuation, err := j.Reports.InventoryValuation(ctx)
	if err != nil {
		return err
	}
	perStore := make(map[string]float64)
	for _, line := range valuation.Lines {
		v, _ := line.Value.Float64()
		perStore[line.StoreName] += v
	}
	j.Metrics.PublishInventoryValues(perStore)
	logger(j.Logger).Info("inventory valuation",
		slog.Int("stores", len(perStore)),
		slog.String("total", valuation.Total.StringFixed(2)))
	return nil
}
