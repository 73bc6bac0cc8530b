package scheduler

import (
	"context"
	"time"

	"github.com/wonny/salescast/internal/pipeline"
)

// historyLimit 작업별 보관 실행 기록 수
const historyLimit = 100

// Job is an offline artifact refresh run on a cron schedule
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Schedule returns the cron schedule expression
	// Six fields (seconds first): "0 30 2 * * *" is 02:30 daily
	// Descriptors such as "@daily" also work
	Schedule() string

	// Run executes the job's pipeline steps in order.
	// Steps finished before a failure are returned together with the error.
	Run(ctx context.Context) ([]pipeline.Result, error)
}

// JobResult records one run, retries included
type JobResult struct {
	JobName   string            `json:"job_name"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`
	Duration  time.Duration     `json:"duration"`
	Attempts  int               `json:"attempts"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Steps     []pipeline.Result `json:"steps,omitempty"` // last attempt
}

// Rows is the number of rows the run's steps wrote
func (r JobResult) Rows() int {
	n := 0
	for _, step := range r.Steps {
		n += step.Rows
	}
	return n
}

// Artifacts lists the artifact keys the run wrote, in step order
func (r JobResult) Artifacts() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, step := range r.Steps {
		for _, key := range step.Keys {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// JobHistory is a snapshot of a job's recent runs, oldest first
type JobHistory struct {
	Results []JobResult `json:"results"`
}

// Latest returns the most recent run
func (h JobHistory) Latest() (JobResult, bool) {
	if len(h.Results) == 0 {
		return JobResult{}, false
	}
	return h.Results[len(h.Results)-1], true
}

// LastSuccess returns the most recent successful run
func (h JobHistory) LastSuccess() (JobResult, bool) {
	for i := len(h.Results) - 1; i >= 0; i-- {
		if h.Results[i].Success {
			return h.Results[i], true
		}
	}
	return JobResult{}, false
}

// Failures counts failed runs
func (h JobHistory) Failures() int {
	n := 0
	for _, r := range h.Results {
		if !r.Success {
			n++
		}
	}
	return n
}

// SuccessRate returns the share of successful runs (0.0 - 1.0)
func (h JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}
	return float64(len(h.Results)-h.Failures()) / float64(len(h.Results))
}

// appendResult adds r and keeps the last historyLimit runs
func appendResult(results []JobResult, r JobResult) []JobResult {
	results = append(results, r)
	if len(results) > historyLimit {
		results = append([]JobResult(nil), results[len(results)-historyLimit:]...)
	}
	return results
}
