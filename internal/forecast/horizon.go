package forecast

import (
	"sort"
	"time"

	"github.com/wonny/salescast/internal/calendar"
	"github.com/wonny/salescast/internal/contracts"
)

// Model evaluates an additive forecast on one date
type Model interface {
	Predict(d time.Time) (yhat, lower, upper float64)
}

// Horizon produces the national forecast window for a target date
type Horizon struct {
	model   Model
	history []time.Time
	days    int
}

// NewHorizon binds a model to the dates of its training series.
// days is the number of points after the target (7 gives an 8-point window).
func NewHorizon(model Model, history []contracts.SeriesPoint, days int) *Horizon {
	dates := make([]time.Time, len(history))
	for i, p := range history {
		dates[i] = calendar.Day(p.Date)
	}
	return &Horizon{model: model, history: dates, days: days}
}

// Forecast returns exactly days+1 strictly increasing points starting at target.
// The frame is the union of historical dates and target..target+days,
// de-duplicated, sorted, cut at target+days; the trailing days+1 rows are kept.
func (h *Horizon) Forecast(target time.Time) []contracts.ForecastPoint {
	target = calendar.Day(target)
	end := target.AddDate(0, 0, h.days)

	seen := make(map[time.Time]bool, len(h.history)+h.days+1)
	frame := make([]time.Time, 0, len(h.history)+h.days+1)
	add := func(d time.Time) {
		if !seen[d] && !d.After(end) {
			seen[d] = true
			frame = append(frame, d)
		}
	}
	for _, d := range h.history {
		add(d)
	}
	for i := 0; i <= h.days; i++ {
		add(target.AddDate(0, 0, i))
	}
	sort.Slice(frame, func(i, j int) bool { return frame[i].Before(frame[j]) })

	frame = frame[len(frame)-(h.days+1):]
	points := make([]contracts.ForecastPoint, len(frame))
	for i, d := range frame {
		yhat, lower, upper := h.model.Predict(d)
		points[i] = contracts.ForecastPoint{Date: d, Yhat: yhat, Lower: lower, Upper: upper}
	}
	return points
}

// Days returns the number of points after the target
func (h *Horizon) Days() int {
	return h.days
}
