package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/courtshare/courtshare/internal/club"
	jobmetrics "github.com/courtshare/courtshare/internal/jobs"
)

var (
	defaultJobMetrics = jobmetrics.NewMetrics(nil)

	_ club.Enqueuer = (*Client)(nil)
)

// BalanceWarmer is the slice of club.Service the warm-up job needs.
type BalanceWarmer interface {
	ListParticipants(ctx context.Context) ([]club.Participant, error)
	WarmBalances(ctx context.Context, participantIDs []uuid.UUID) (int, error)
}

// BalanceWarmupJob recomputes balances into the cache after ledger writes
// and on a nightly schedule.
type BalanceWarmupJob struct {
	Warmer  BalanceWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
}

// NewBalanceWarmupJob wires dependencies for the warm-up handler.
func NewBalanceWarmupJob(warmer BalanceWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *BalanceWarmupJob {
	return &BalanceWarmupJob{Warmer: warmer, Logger: logger, Metrics: metrics, Timeout: 2 * time.Minute}
}

// Handle processes balance warm-up tasks.
func (j *BalanceWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Warmer == nil {
		return errors.New("balance warmup: handler not configured")
	}
	var payload BalanceWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskBalanceWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	logger := j.logger()
	start := time.Now()
	ids := payload.ParticipantIDs
	if len(ids) == 0 {
		participants, err := j.Warmer.ListParticipants(ctx)
		if err != nil {
			resultErr = err
			logger.Error("list participants", slog.Any("error", err))
			return resultErr
		}
		for _, p := range participants {
			if p.Active {
				ids = append(ids, p.ID)
			}
		}
	}
	if len(ids) == 0 {
		logger.Info("no participants to warm")
		return resultErr
	}

	warmed, err := j.Warmer.WarmBalances(ctx, ids)
	j.metrics().AddWarmed(warmed)
	if err != nil {
		resultErr = err
		logger.Error("warm balances", slog.Int("warmed", warmed), slog.Any("error", err))
		return resultErr
	}
	logger.Info("completed balance warmup", slog.Int("warmed", warmed), slog.Int("requested", len(ids)), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *BalanceWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskBalanceWarmup))
	}
	return slog.Default().With(slog.String("job", TaskBalanceWarmup))
}

func (j *BalanceWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
