package forecast

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wonny/salescast/internal/calendar"
)

// Seasonality is a Fourier series of a given period (days).
// Coefs holds sin/cos pairs: [sin_1, cos_1, sin_2, cos_2, ...].
type Seasonality struct {
	Name   string    `json:"name"`
	Period float64   `json:"period"`
	Order  int       `json:"order"`
	Coefs  []float64 `json:"coefs"`
}

// HolidayEffect is an additive bump applied on the listed dates
type HolidayEffect struct {
	Name   string   `json:"name"`
	Effect float64  `json:"effect"`
	Dates  []string `json:"dates"` // YYYY-MM-DD
}

// AdditiveModel is a piecewise-linear trend plus seasonalities plus holidays.
// Components are fit on y / YScale over t = days since Start / TScale.
type AdditiveModel struct {
	Start         time.Time       `json:"start"`
	TScale        float64         `json:"t_scale"`
	YScale        float64         `json:"y_scale"`
	Intercept     float64         `json:"intercept"`
	Slope         float64         `json:"slope"`
	Changepoints  []float64       `json:"changepoints"`
	Deltas        []float64       `json:"deltas"`
	Seasonalities []Seasonality   `json:"seasonalities"`
	Holidays      []HolidayEffect `json:"holidays"`
	Sigma         float64         `json:"sigma"` // residual std on the scaled target
	IntervalWidth float64         `json:"interval_width"`

	holidayIndex map[string]float64
	z            float64
}

// ParseAdditiveModel decodes and validates a model artifact
func ParseAdditiveModel(data []byte) (*AdditiveModel, error) {
	var m AdditiveModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode additive model: %w", err)
	}
	if err := m.prepare(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *AdditiveModel) prepare() error {
	if m.TScale <= 0 {
		return fmt.Errorf("additive model: t_scale must be > 0")
	}
	if m.YScale == 0 {
		return fmt.Errorf("additive model: y_scale must be non-zero")
	}
	if len(m.Changepoints) != len(m.Deltas) {
		return fmt.Errorf("additive model: %d changepoints but %d deltas", len(m.Changepoints), len(m.Deltas))
	}
	for _, s := range m.Seasonalities {
		if s.Period <= 0 || len(s.Coefs) != 2*s.Order {
			return fmt.Errorf("additive model: seasonality %s needs period > 0 and %d coefs", s.Name, 2*s.Order)
		}
	}
	if m.IntervalWidth <= 0 || m.IntervalWidth >= 1 {
		return fmt.Errorf("additive model: interval_width must be in (0, 1)")
	}

	m.holidayIndex = make(map[string]float64)
	for _, h := range m.Holidays {
		for _, d := range h.Dates {
			if _, err := time.Parse(calendar.ISODateLayout, d); err != nil {
				return fmt.Errorf("additive model: holiday %s date %q: %w", h.Name, d, err)
			}
			m.holidayIndex[d] += h.Effect
		}
	}

	m.z = distuv.UnitNormal.Quantile(0.5 + m.IntervalWidth/2)
	return nil
}

func (m *AdditiveModel) scaledTime(d time.Time) float64 {
	return d.Sub(m.Start).Hours() / 24 / m.TScale
}

func (m *AdditiveModel) trend(t float64) float64 {
	y := m.Intercept + m.Slope*t
	for i, c := range m.Changepoints {
		if t > c {
			y += m.Deltas[i] * (t - c)
		}
	}
	return y
}

// fourier returns the sin/cos features of a period at an absolute day count
func fourier(days, period float64, order int) []float64 {
	out := make([]float64, 2*order)
	for k := 1; k <= order; k++ {
		x := 2 * math.Pi * float64(k) * days / period
		out[2*(k-1)] = math.Sin(x)
		out[2*(k-1)+1] = math.Cos(x)
	}
	return out
}

func epochDays(d time.Time) float64 {
	return float64(d.Unix()) / 86400
}

// Predict evaluates the model on one date
func (m *AdditiveModel) Predict(d time.Time) (yhat, lower, upper float64) {
	d = calendar.Day(d)
	y := m.trend(m.scaledTime(d))

	days := epochDays(d)
	for _, s := range m.Seasonalities {
		for i, f := range fourier(days, s.Period, s.Order) {
			y += s.Coefs[i] * f
		}
	}
	y += m.holidayIndex[d.Format(calendar.ISODateLayout)]

	band := m.z * m.Sigma
	return y * m.YScale, (y - band) * m.YScale, (y + band) * m.YScale
}
