package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/salescast/internal/api"
	"github.com/wonny/salescast/internal/forecast"
	"github.com/wonny/salescast/internal/metrics"
	"github.com/wonny/salescast/internal/scheduler"
	"github.com/wonny/salescast/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `오프라인 아티팩트 갱신 스케줄러를 시작하거나 작업을 관리합니다.
새 아티팩트는 serve 재시작 시 반영됩니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/salescast scheduler start
  go run ./cmd/salescast scheduler list
  go run ./cmd/salescast scheduler run snapshot_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- snapshot_refresh: SCHEDULE_SNAPSHOT_REFRESH (기본 매일 02:00) features build + export + prices build
- national_series_refresh: SCHEDULE_NATIONAL_REFRESH (기본 월요일 03:30) timeseries prepare + train

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행 (완료까지 대기)",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Salescast Scheduler ===")

	a, sched, m, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	sched.Start()

	// 작업 실행 결과 메트릭 (salescast_job_runs_total)
	var metricsServer *api.Server
	if a.cfg.MetricsEnabled {
		metricsServer = api.NewMetricsServer(a.cfg, a.log, m.Handler())
		go func() {
			if err := metricsServer.Start(); err != nil {
				a.log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	printJobStats(sched)
	fmt.Println("Scheduler stopped")

	return nil
}

// printJobStats summarizes this process's runs and the artifacts they wrote
func printJobStats(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()

	widths := []int{26, 6, 6, 8, 40}
	PrintTableHeader([]string{"job", "runs", "fails", "rows", "last artifacts"}, widths)
	for _, jobName := range sched.GetAllJobs() {
		st := stats[jobName]
		PrintTableRow([]string{
			jobName,
			fmt.Sprintf("%d", st.TotalRuns),
			fmt.Sprintf("%d", st.FailureCount),
			fmt.Sprintf("%d", st.LastRows),
			strings.Join(st.LastArtifacts, ", "),
		}, widths)
	}
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, _, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	stats := sched.GetJobStats()

	widths := []int{26, 16}
	PrintTableHeader([]string{"job", "schedule"}, widths)
	for _, jobName := range sched.GetAllJobs() {
		PrintTableRow([]string{jobName, stats[jobName].Schedule}, widths)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	a, sched, _, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := sched.RunJob(ctx, jobName)
	for i := range result.Steps {
		PrintResult(&result.Steps[i])
	}
	fmt.Println()
	if err != nil {
		PrintError(err.Error())
		return fmt.Errorf("run job: %w", err)
	}

	PrintSuccess(fmt.Sprintf("Job %s completed in %.2fs (%d attempt(s), %d rows)",
		jobName, result.Duration.Seconds(), result.Attempts, result.Rows()))
	return nil
}

func initScheduler(ctx context.Context) (*app, *scheduler.Scheduler, *metrics.Metrics, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	p, err := a.pipeline(ctx)
	if err != nil {
		a.close()
		return nil, nil, nil, err
	}

	m := metrics.New()
	sched := scheduler.New(a.log,
		scheduler.WithRetry(a.cfg.Scheduler.MaxRetries, a.cfg.Scheduler.RetryDelay),
		scheduler.WithObserver(m),
	)

	// Register jobs
	for _, job := range []scheduler.Job{
		jobs.NewSnapshotRefreshJob(p, a.cfg.Scheduler.SnapshotRefresh, a.log),
		jobs.NewNationalSeriesRefreshJob(p, forecast.DefaultTrainOptions(), a.cfg.Scheduler.NationalRefresh, a.log),
	} {
		if err := sched.AddJob(job); err != nil {
			a.close()
			return nil, nil, nil, err
		}
	}

	return a, sched, m, nil
}
