package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/salescast/internal/calendar"
	"github.com/wonny/salescast/internal/contracts"
)

// SeasonalitySpec declares a Fourier seasonality to fit
type SeasonalitySpec struct {
	Name   string
	Period float64 // days
	Order  int
}

// TrainOptions controls the additive model fit
type TrainOptions struct {
	Seasonalities      []SeasonalitySpec
	Changepoints       int     // evenly spaced over the first ChangepointRange of history
	ChangepointRange   float64 // fraction of history eligible for changepoints
	ChangepointPenalty float64 // ridge penalty on trend deltas
	SeasonalityPenalty float64
	HolidayPenalty     float64
	IntervalWidth      float64
}

// DefaultTrainOptions mirrors the national revenue model: yearly and weekly seasonality plus holidays
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Seasonalities: []SeasonalitySpec{
			{Name: "yearly", Period: 365.25, Order: 10},
			{Name: "weekly", Period: 7, Order: 3},
		},
		Changepoints:       25,
		ChangepointRange:   0.8,
		ChangepointPenalty: 10,
		SeasonalityPenalty: 0.1,
		HolidayPenalty:     1,
		IntervalWidth:      0.8,
	}
}

// ErrShortSeries: not enough points to fit
var ErrShortSeries = errors.New("series too short to fit")

// Train fits an AdditiveModel by ridge least squares on the scaled series
func Train(series []contracts.SeriesPoint, holidays []contracts.Holiday, opts TrainOptions) (*AdditiveModel, error) {
	if len(series) < 2 {
		return nil, ErrShortSeries
	}

	points := append([]contracts.SeriesPoint(nil), series...)
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	start := calendar.Day(points[0].Date)
	span := calendar.Day(points[len(points)-1].Date).Sub(start).Hours() / 24
	if span <= 0 {
		return nil, fmt.Errorf("series spans a single day: %w", ErrShortSeries)
	}

	y := make([]float64, len(points))
	for i, p := range points {
		y[i] = p.Value
	}
	yScale := floats.Max(absAll(y))
	if yScale == 0 {
		yScale = 1
	}
	floats.Scale(1/yScale, y)

	m := &AdditiveModel{
		Start:         start,
		TScale:        span,
		YScale:        yScale,
		IntervalWidth: opts.IntervalWidth,
	}

	// changepoints on the scaled time axis
	n := opts.Changepoints
	if maxCp := len(points) - 2; n > maxCp {
		n = maxCp
	}
	if n < 0 {
		n = 0
	}
	for i := 1; i <= n; i++ {
		m.Changepoints = append(m.Changepoints, opts.ChangepointRange*float64(i)/float64(n+1))
	}

	// holiday names in first-seen order, dates grouped per name
	var names []string
	holidayDates := map[string][]string{}
	for _, h := range holidays {
		key := calendar.Day(h.Date).Format(calendar.ISODateLayout)
		if _, ok := holidayDates[h.Name]; !ok {
			names = append(names, h.Name)
		}
		if !containsString(holidayDates[h.Name], key) {
			holidayDates[h.Name] = append(holidayDates[h.Name], key)
		}
	}

	cols := 2 + len(m.Changepoints)
	for _, s := range opts.Seasonalities {
		cols += 2 * s.Order
	}
	cols += len(names)

	penalty := make([]float64, 0, cols)
	penalty = append(penalty, 1e-6, 1e-6)
	for range m.Changepoints {
		penalty = append(penalty, opts.ChangepointPenalty)
	}
	for _, s := range opts.Seasonalities {
		for k := 0; k < 2*s.Order; k++ {
			penalty = append(penalty, opts.SeasonalityPenalty)
		}
	}
	for range names {
		penalty = append(penalty, opts.HolidayPenalty)
	}

	X := mat.NewDense(len(points), cols, nil)
	for r, p := range points {
		X.SetRow(r, designRow(m, opts.Seasonalities, names, holidayDates, calendar.Day(p.Date), cols))
	}

	// (XᵀX + diag(penalty)) β = Xᵀy
	var A mat.Dense
	A.Mul(X.T(), X)
	for i, l := range penalty {
		A.Set(i, i, A.At(i, i)+l)
	}
	var b mat.VecDense
	b.MulVec(X.T(), mat.NewVecDense(len(y), y))

	var beta mat.VecDense
	if err := beta.SolveVec(&A, &b); err != nil {
		return nil, fmt.Errorf("solve additive model: %w", err)
	}

	coef := beta.RawVector().Data
	m.Intercept, m.Slope = coef[0], coef[1]
	idx := 2
	m.Deltas = append([]float64(nil), coef[idx:idx+len(m.Changepoints)]...)
	idx += len(m.Changepoints)
	for _, s := range opts.Seasonalities {
		m.Seasonalities = append(m.Seasonalities, Seasonality{
			Name:   s.Name,
			Period: s.Period,
			Order:  s.Order,
			Coefs:  append([]float64(nil), coef[idx:idx+2*s.Order]...),
		})
		idx += 2 * s.Order
	}
	for _, name := range names {
		m.Holidays = append(m.Holidays, HolidayEffect{Name: name, Effect: coef[idx], Dates: holidayDates[name]})
		idx++
	}

	if err := m.prepare(); err != nil {
		return nil, err
	}

	var fitted mat.VecDense
	fitted.MulVec(X, &beta)
	residuals := make([]float64, len(y))
	floats.SubTo(residuals, y, fitted.RawVector().Data)
	m.Sigma = stat.StdDev(residuals, nil)
	if math.IsNaN(m.Sigma) {
		m.Sigma = 0
	}

	return m, nil
}

func designRow(m *AdditiveModel, seasonalities []SeasonalitySpec, names []string, holidayDates map[string][]string, d time.Time, cols int) []float64 {
	row := make([]float64, 0, cols)
	t := m.scaledTime(d)
	row = append(row, 1, t)
	for _, c := range m.Changepoints {
		row = append(row, math.Max(0, t-c))
	}
	days := epochDays(d)
	for _, s := range seasonalities {
		row = append(row, fourier(days, s.Period, s.Order)...)
	}
	key := d.Format(calendar.ISODateLayout)
	for _, name := range names {
		if containsString(holidayDates[name], key) {
			row = append(row, 1)
		} else {
			row = append(row, 0)
		}
	}
	return row
}

// SplitSeries holds out the trailing days: train is date <= max-days, validation the rest
func SplitSeries(series []contracts.SeriesPoint, days int) (train, validation []contracts.SeriesPoint) {
	if len(series) == 0 {
		return nil, nil
	}
	maxDate := series[0].Date
	for _, p := range series[1:] {
		if p.Date.After(maxDate) {
			maxDate = p.Date
		}
	}
	split := maxDate.AddDate(0, 0, -days)
	for _, p := range series {
		if p.Date.After(split) {
			validation = append(validation, p)
		} else {
			train = append(train, p)
		}
	}
	return train, validation
}

// RMSE scores a model on held-out points
func RMSE(model Model, points []contracts.SeriesPoint) float64 {
	if len(points) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, p := range points {
		yhat, _, _ := model.Predict(p.Date)
		sum += (yhat - p.Value) * (yhat - p.Value)
	}
	return math.Sqrt(sum / float64(len(points)))
}

func absAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Abs(v)
	}
	return out
}

func containsString(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
