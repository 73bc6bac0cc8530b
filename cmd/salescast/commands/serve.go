package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/salescast/internal/api"
	"github.com/wonny/salescast/internal/api/handlers"
	"github.com/wonny/salescast/internal/metrics"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 시작",
	Long: `예측 REST API 서버를 시작합니다.

시작 시 모든 아티팩트(모델, 인코더, 스냅샷, 가격표, 전국 시계열)를 한 번 로드하며,
이후 요청 경로에서는 읽기만 합니다.

Endpoints:
  GET  /                      - Service description
  GET  /health                - Health check
  GET  /sales/stores/items    - item/store point prediction (date=YYYY-MM-DD)
  GET  /sales/national        - national 8-day revenue forecast (date=dd/mm/yyyy)
  GET  /metrics               - Prometheus (METRICS_PORT, when METRICS_ENABLED)

Example:
  go run ./cmd/salescast serve
  go run ./cmd/salescast serve --port 8080`,
	RunE: runServe,
}

var (
	servePort string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (default: PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Salescast API Server ===")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	// Override port if flag is set
	if servePort != "" {
		a.cfg.Port = servePort
	}

	m := metrics.New()

	// ⭐ 아티팩트는 여기서 한 번만 로드 (이후 불변)
	svc, err := a.service(ctx, m)
	if err != nil {
		return fmt.Errorf("load artifacts: %w", err)
	}

	routerOpts := api.RouterOptions{
		RateLimitRPS:   a.cfg.RateLimitRPS,
		RateLimitBurst: a.cfg.RateLimitBurst,
	}
	if a.cfg.MetricsEnabled {
		routerOpts.Metrics = m
	}

	salesHandler := handlers.NewSalesHandler(svc, a.log)
	router := api.NewRouter(salesHandler, a.log, routerOpts)
	server := api.New(a.cfg, a.log, router)

	errCh := make(chan error, 2)
	go func() {
		errCh <- server.Start()
	}()

	var metricsServer *api.Server
	if a.cfg.MetricsEnabled {
		metricsServer = api.NewMetricsServer(a.cfg, a.log, m.Handler())
		go func() {
			errCh <- metricsServer.Start()
		}()
	}

	info := svc.Info()
	a.log.WithFields(map[string]interface{}{
		"model_id":  info.ModelID,
		"spec_hash": info.SpecHash,
		"features":  info.Features,
	}).Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	if metricsServer != nil {
		fmt.Printf("   Metrics on http://localhost:%s/metrics\n", a.cfg.MetricsPort)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	a.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown failed: %w", err)
		}
	}

	a.log.Info("Server stopped")
	return nil
}
