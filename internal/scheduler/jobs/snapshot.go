package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/salescast/internal/pipeline"
	"github.com/wonny/salescast/pkg/logger"
)

// SnapshotRefreshJob rebuilds the feature frame, the recent history snapshot and the price table.
// Serving picks the new artifacts up on its next start.
type SnapshotRefreshJob struct {
	pipeline *pipeline.Pipeline
	schedule string
	logger   *logger.Logger
}

// NewSnapshotRefreshJob creates a new snapshot refresh job.
// An empty schedule uses the nightly default.
func NewSnapshotRefreshJob(p *pipeline.Pipeline, schedule string, log *logger.Logger) *SnapshotRefreshJob {
	if schedule == "" {
		schedule = "0 0 2 * * *" // 02:00 daily (with seconds)
	}
	return &SnapshotRefreshJob{
		pipeline: p,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *SnapshotRefreshJob) Name() string {
	return "snapshot_refresh"
}

// Schedule returns the cron schedule
func (j *SnapshotRefreshJob) Schedule() string {
	return j.schedule
}

// Run executes features build, snapshot export and price build in order
func (j *SnapshotRefreshJob) Run(ctx context.Context) ([]pipeline.Result, error) {
	j.logger.Info("Starting scheduled snapshot refresh")

	steps := []struct {
		name string
		run  func(context.Context) (*pipeline.Result, error)
	}{
		{"features_build", j.pipeline.BuildFeatures},
		{"snapshot_export", j.pipeline.ExportSnapshot},
		{"prices_build", j.pipeline.BuildPrices},
	}

	done := make([]pipeline.Result, 0, len(steps))
	for _, step := range steps {
		res, err := step.run(ctx)
		if err != nil {
			return done, fmt.Errorf("%s: %w", step.name, err)
		}
		done = append(done, *res)
		j.logger.WithFields(map[string]interface{}{
			"step": step.name,
			"rows": res.Rows,
		}).Info("Snapshot refresh step completed")
	}

	return done, nil
}
