package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/salescast/internal/forecast"
	"github.com/wonny/salescast/internal/pipeline"
	"github.com/wonny/salescast/pkg/logger"
)

// NationalSeriesRefreshJob re-aggregates the national revenue series and refits the additive model
type NationalSeriesRefreshJob struct {
	pipeline *pipeline.Pipeline
	options  forecast.TrainOptions
	schedule string
	logger   *logger.Logger
}

// NewNationalSeriesRefreshJob creates a new national series refresh job.
// An empty schedule uses the weekly default.
func NewNationalSeriesRefreshJob(p *pipeline.Pipeline, opts forecast.TrainOptions, schedule string, log *logger.Logger) *NationalSeriesRefreshJob {
	if schedule == "" {
		schedule = "0 30 3 * * 1" // 03:30 every Monday (with seconds)
	}
	return &NationalSeriesRefreshJob{
		pipeline: p,
		options:  opts,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *NationalSeriesRefreshJob) Name() string {
	return "national_series_refresh"
}

// Schedule returns the cron schedule
func (j *NationalSeriesRefreshJob) Schedule() string {
	return j.schedule
}

// Run prepares the series and trains the national model
func (j *NationalSeriesRefreshJob) Run(ctx context.Context) ([]pipeline.Result, error) {
	j.logger.Info("Starting scheduled national series refresh")

	prepared, err := j.pipeline.PrepareSeries(ctx)
	if err != nil {
		return nil, fmt.Errorf("timeseries_prepare: %w", err)
	}

	trained, err := j.pipeline.TrainSeries(ctx, j.options)
	if err != nil {
		return []pipeline.Result{*prepared}, fmt.Errorf("timeseries_train: %w", err)
	}

	// 검증 RMSE 기록
	j.logger.WithFields(map[string]interface{}{
		"days":            prepared.Rows,
		"validation_rmse": trained.Metrics["validation_rmse"],
	}).Info("National series refresh completed")

	return []pipeline.Result{*prepared, *trained}, nil
}
