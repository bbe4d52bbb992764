package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/flujoapp/flujo/internal/cashflow"
)

const defaultWarmupMonths = 6

// BaselineWarmupJob recomputes the full-history ledger for recent months
// so the Redis cache serves dashboard opens without a cold rebuild.
type BaselineWarmupJob struct {
	Service *cashflow.Service
	Logger  *slog.Logger
	clock   func() time.Time
}

// NewBaselineWarmupJob wires dependencies for the warmup handler.
func NewBaselineWarmupJob(service *cashflow.Service, logger *slog.Logger) *BaselineWarmupJob {
	return &BaselineWarmupJob{
		Service: service,
		Logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes baseline warmup tasks.
func (j *BaselineWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("baseline warmup: handler not configured")
	}
	var payload BaselineWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	months := payload.MonthsBack
	if months <= 0 {
		months = defaultWarmupMonths
	}

	logger := j.logger().With(slog.Int("months_back", months))
	logger.Info("starting baseline warmup")

	start := j.now()
	warmed := 0
	for i := 0; i < months; i++ {
		window := monthWindow(start.AddDate(0, -i, 0))
		warmCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		entries, err := j.Service.CachedCashFlow(warmCtx, &window, cashflow.ModeFullHistory)
		cancel()
		if err != nil {
			logger.Error("warm month",
				slog.String("from", window.From.Format("2006-01-02")),
				slog.Any("error", err))
			return err
		}
		warmed++
		logger.Debug("warmed month",
			slog.String("from", window.From.Format("2006-01-02")),
			slog.Int("entries", len(entries)))
	}

	logger.Info("completed baseline warmup",
		slog.Int("months", warmed),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *BaselineWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskBaselineWarmup))
	}
	return slog.Default().With(slog.String("job", TaskBaselineWarmup))
}

func (j *BaselineWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func monthWindow(t time.Time) cashflow.Window {
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return cashflow.Window{From: from, To: from.AddDate(0, 1, -1)}
}
