package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/salescast/internal/api/handlers"
	"github.com/wonny/salescast/internal/metrics"
	"github.com/wonny/salescast/pkg/logger"
)

// RouterOptions holds the optional middleware settings
type RouterOptions struct {
	Metrics        *metrics.Metrics // nil disables request metrics
	RateLimitRPS   float64          // 0 disables rate limiting on /sales
	RateLimitBurst int
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(salesHandler *handlers.SalesHandler, log *logger.Logger, opts RouterOptions) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", salesHandler.Index).Methods("GET")
	r.HandleFunc("/health", salesHandler.Health).Methods("GET")

	// Sales endpoints
	sales := r.PathPrefix("/sales").Subrouter()
	sales.HandleFunc("/stores/items", salesHandler.PredictItem).Methods("GET")
	sales.HandleFunc("/national", salesHandler.ForecastNational).Methods("GET")

	// 예측 엔드포인트만 제한 (/, /health 는 liveness 용으로 항상 응답)
	if opts.RateLimitRPS > 0 {
		sales.Use(rateLimitMiddleware(opts.RateLimitRPS, opts.RateLimitBurst))
	}

	// Apply middleware (outermost first)
	r.Use(loggingMiddleware(log))
	if opts.Metrics != nil {
		r.Use(metricsMiddleware(opts.Metrics))
	}
	r.Use(recoveryMiddleware(log))

	return r
}
