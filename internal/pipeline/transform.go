package pipeline

import (
	"math"
	"sort"
	"time"

	"github.com/wonny/salescast/internal/calendar"
	"github.com/wonny/salescast/internal/contracts"
	"github.com/wonny/salescast/internal/encoding"
	"github.com/wonny/salescast/internal/modelspec"
)

type groupKey struct {
	id, itemID, storeID string
}

// BuildFeatures adds lag, rolling-mean, trend and is_weekend features in place.
// Per (id, item_id, store_id) group in date order:
// sales_lag_L is sales shifted by L rows, rolling_mean_L_W is the W-row mean of the
// lag series (NaN until W non-missing values), sales_trend = lag[0] - lag[1].
func BuildFeatures(records []contracts.SalesRecord, spec modelspec.FeatureSpec, weekend calendar.Weekend) {
	groups := make(map[groupKey][]int)
	var order []groupKey
	for i, r := range records {
		k := groupKey{r.ID, r.ItemID, r.StoreID}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	for _, k := range order {
		idx := groups[k]
		sort.SliceStable(idx, func(a, b int) bool { return records[idx[a]].Date.Before(records[idx[b]].Date) })

		sales := make([]float64, len(idx))
		for j, i := range idx {
			sales[j] = records[i].Sales
			if records[i].Features == nil {
				records[i].Features = make(map[string]float64)
			}
		}

		lagged := make(map[int][]float64, len(spec.Lags))
		for _, lag := range spec.Lags {
			series := shift(sales, lag)
			lagged[lag] = series
			for j, i := range idx {
				records[i].Features[contracts.LagColumn(lag)] = series[j]
			}
			for _, w := range spec.Windows {
				rolled := rollingMean(series, w)
				for j, i := range idx {
					records[i].Features[contracts.RollingColumn(lag, w)] = rolled[j]
				}
			}
		}

		short, long := lagged[spec.TrendLags[0]], lagged[spec.TrendLags[1]]
		for j, i := range idx {
			records[i].Features[contracts.ColTrend] = short[j] - long[j]
		}
	}

	for i := range records {
		records[i].IsWeekend = weekend.Contains(records[i].Date)
	}
}

func shift(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i < n {
			out[i] = math.NaN()
		} else {
			out[i] = values[i-n]
		}
	}
	return out
}

// rollingMean is NaN unless all w values ending at i are present
func rollingMean(values []float64, w int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
		if i+1 < w {
			continue
		}
		var sum float64
		ok := true
		for _, v := range values[i+1-w : i+1] {
			if math.IsNaN(v) {
				ok = false
				break
			}
			sum += v
		}
		if ok {
			out[i] = sum / float64(w)
		}
	}
	return out
}

// ExportSnapshot keeps the first n rows by date descending (stable) with the essential columns
func ExportSnapshot(records []contracts.SalesRecord, n int, historyColumns []string) []contracts.HistoryRow {
	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return records[idx[a]].Date.After(records[idx[b]].Date) })
	if len(idx) > n {
		idx = idx[:n]
	}

	rows := make([]contracts.HistoryRow, len(idx))
	for j, i := range idx {
		r := records[i]
		features := make(map[string]float64, len(historyColumns))
		for _, col := range historyColumns {
			v, ok := r.Features[col]
			if !ok {
				v = math.NaN()
			}
			features[col] = v
		}
		rows[j] = contracts.HistoryRow{
			ItemID:   r.ItemID,
			StoreID:  r.StoreID,
			Date:     r.Date,
			Sales:    r.Sales,
			Features: features,
		}
	}
	return rows
}

// BuildPrices derives the weekly price table keyed by the serving year-week convention.
// Rows keep first-seen order; unpriced rows are skipped.
func BuildPrices(records []contracts.SalesRecord, convention calendar.YearWeekConvention) []contracts.PriceRow {
	type key struct {
		item, store string
		week        int
	}
	seen := make(map[key]bool)
	var rows []contracts.PriceRow
	for _, r := range records {
		if math.IsNaN(r.SellPrice) {
			continue
		}
		k := key{r.ItemID, r.StoreID, convention.YearWeek(r.Date)}
		if seen[k] {
			continue
		}
		seen[k] = true
		rows = append(rows, contracts.PriceRow{
			ItemID:    r.ItemID,
			StoreID:   r.StoreID,
			YearWeek:  k.week,
			SellPrice: r.SellPrice,
		})
	}
	return rows
}

// FitEncoders fits label encoders over the categorical columns; the d column is never encoded
func FitEncoders(records []contracts.SalesRecord, columns []string) *encoding.Bank {
	values := make(map[string][]string, len(columns))
	for _, col := range columns {
		if col == contracts.ColD {
			continue
		}
		vs := make([]string, len(records))
		for i, r := range records {
			vs[i] = categorical(r, col)
		}
		values[col] = vs
	}
	return encoding.Fit(values)
}

func categorical(r contracts.SalesRecord, col string) string {
	switch col {
	case contracts.ColID:
		return r.ID
	case contracts.ColItemID:
		return r.ItemID
	case contracts.ColDeptID:
		return r.DeptID
	case contracts.ColCatID:
		return r.CatID
	case contracts.ColStoreID:
		return r.StoreID
	case contracts.ColStateID:
		return r.StateID
	case contracts.ColEventName:
		return r.EventName
	case contracts.ColEventType:
		return r.EventType
	}
	return ""
}

// PrepareSeries sums revenue per date over a full daily range (missing days are 0)
// and extracts distinct (date, event_name) holidays other than the default event.
func PrepareSeries(records []contracts.SalesRecord, defaultEvent string) ([]contracts.SeriesPoint, []contracts.Holiday) {
	if len(records) == 0 {
		return nil, nil
	}

	revenue := make(map[time.Time]float64)
	first, last := calendar.Day(records[0].Date), calendar.Day(records[0].Date)
	for _, r := range records {
		d := calendar.Day(r.Date)
		revenue[d] += r.Revenue()
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	var series []contracts.SeriesPoint
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		series = append(series, contracts.SeriesPoint{Date: d, Value: revenue[d]})
	}

	type holidayKey struct {
		date time.Time
		name string
	}
	seen := make(map[holidayKey]bool)
	var holidays []contracts.Holiday
	for _, r := range records {
		if r.EventName == "" || r.EventName == defaultEvent {
			continue
		}
		k := holidayKey{calendar.Day(r.Date), r.EventName}
		if seen[k] {
			continue
		}
		seen[k] = true
		holidays = append(holidays, contracts.Holiday{Date: k.date, Name: k.name})
	}

	return series, holidays
}
