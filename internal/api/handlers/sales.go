package handlers

import (
	"net/http"
	"time"

	"github.com/wonny/salescast/internal/calendar"
	"github.com/wonny/salescast/internal/contracts"
	"github.com/wonny/salescast/internal/serving"
	"github.com/wonny/salescast/pkg/logger"
)

// Description is returned by GET /
const Description = "Retail demand forecast service: item/store point predictions " +
	"(GET /sales/stores/items) and a national 7-day revenue forecast (GET /sales/national)."

// SalesService is what the sales endpoints need from serving.Service
type SalesService interface {
	PredictItem(req contracts.PredictionRequest) (*serving.ItemPrediction, error)
	ForecastNational(target time.Time) ([]contracts.ForecastPoint, error)
}

// SalesHandler handles prediction endpoints
// ⭐ SSOT: 예측 API 핸들러는 이 구조체에서만
type SalesHandler struct {
	service SalesService
	logger  *logger.Logger
}

// NewSalesHandler creates a new sales handler
func NewSalesHandler(service SalesService, log *logger.Logger) *SalesHandler {
	return &SalesHandler{
		service: service,
		logger:  log,
	}
}

// Endpoints is the public route list reported by GET /
var Endpoints = []string{"/", "/health", "/sales/stores/items", "/sales/national"}

// Index returns the service description and its endpoints
// GET /
func (h *SalesHandler) Index(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":   Description,
		"endpoints": Endpoints,
	})
}

// Health returns a static liveness message
// GET /health
func (h *SalesHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "salescast-api",
	})
}

// PredictItem returns the point prediction for one item/store/date
// GET /sales/stores/items?item_id=&store_id=&date=YYYY-MM-DD&event_name=&event_type=
func (h *SalesHandler) PredictItem(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	date, err := calendar.ParseISODate("date", q.Get("date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := contracts.PredictionRequest{
		ItemID:    q.Get("item_id"),
		StoreID:   q.Get("store_id"),
		Date:      date,
		EventName: q.Get("event_name"),
		EventType: q.Get("event_type"),
	}

	result, err := h.service.PredictItem(req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]float64{
		"prediction": result.Prediction,
	})
}

// ForecastNational returns 8 dated revenue values starting at date
// GET /sales/national?date=dd/mm/yyyy
func (h *SalesHandler) ForecastNational(w http.ResponseWriter, r *http.Request) {
	target, err := calendar.ParseNationalDate("date", r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	points, err := h.service.ForecastNational(target)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, serving.RoundRevenue(points))
}

func (h *SalesHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
		respondError(w, status, "Internal server error")
		return
	}
	respondError(w, status, err.Error())
}
