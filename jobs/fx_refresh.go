package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pos/internal/fxrates"
	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

type rateRefresher interface {
	Refresh(ctx context.Context) (fxrates.Rate, error)
}

// FXRefreshJob keeps the cached BCV rate warm so invoice rendering rarely
// waits on the upstream API.
type FXRefreshJob struct {
	Rates   rateRefresher
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

func NewFXRefreshJob(rates rateRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *FXRefreshJob {
	return &FXRefreshJob{Rates: rates, Logger: logger, Metrics: metrics}
}

// Handle processes TaskFXRefresh tasks.
func (j *FXRefreshJob) Handle(ctx context.Context, _ *asynq.Task) (resultErr error) {
	if j == nil || j.Rates == nil {
		return errors.New("fx refresh: handler not configured")
	}
	tracker := metricsOrDefault(j.Metrics).Track(TaskFXRefresh)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	rate, err := j.Rates.Refresh(ctx)
	if err != nil {
		jobLogger(j.Logger, TaskFXRefresh).Warn("fx refresh failed", slog.Any("error", err))
		return err
	}
	value, _ := rate.Value.Float64()
	metricsOrDefault(j.Metrics).SetFXRate(value)
	jobLogger(j.Logger, TaskFXRefresh).Info("fx rate refreshed",
		slog.String("rate", rate.Value.String()),
		slog.Time("updated_at", rate.UpdatedAt))
	return nil
}

func metricsOrDefault(m *jobmetrics.Metrics) *jobmetrics.Metrics {
	if m != nil {
		return m
	}
	return defaultJobMetrics
}

func jobLogger(l *slog.Logger, job string) *slog.Logger {
	if l != nil {
		return l.With(slog.String("job", job))
	}
	return slog.Default().With(slog.String("job", job))
}
