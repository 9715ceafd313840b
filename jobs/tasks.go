package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskInventoryValuation snapshots stock value per store into metrics.
	TaskInventoryValuation = "inventory:valuation"
	// TaskReportWarmup rebuilds the cached reports for the current day.
	TaskReportWarmup = "reports:warmup"
	// TaskIdempotencyCleanup prunes old form submission keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// ScheduledPayload carries scheduling metadata shared by periodic tasks.
type ScheduledPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// IdempotencyCleanupPayload sets how long keys are retained.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewInventoryValuationTask constructs an Asynq task for the valuation snapshot.
func NewInventoryValuationTask(at time.Time) (*asynq.Task, error) {
	return newScheduledTask(TaskInventoryValuation, at)
}

// NewReportWarmupTask constructs an Asynq task that warms report caches.
func NewReportWarmupTask(at time.Time) (*asynq.Task, error) {
	return newScheduledTask(TaskReportWarmup, at)
}

// NewIdempotencyCleanupTask constructs a cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

func newScheduledTask(kind string, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScheduledPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(kind, body, asynq.Queue(QueueDefault)), nil
}

// DefaultCron is the periodic schedule of the worker.
func DefaultCron(retention time.Duration) ([]CronRegistration, error) {
	valuation, err := NewInventoryValuationTask(time.Time{})
	if err != nil {
		return nil, err
	}
	warmup, err := NewReportWarmupTask(time.Time{})
	if err != nil {
		return nil, err
	}
	cleanup, err := NewIdempotencyCleanupTask(retention)
	if err != nil {
		return nil, err
	}
	return []CronRegistration{
		{Spec: "*/15 * * * *", Task: valuation},
		{Spec: "5 0 * * *", Task: warmup},
		{Spec: "30 3 * * *", Task: cleanup},
	}, nil
}
