// Package servingtest seeds an artifact store with a small, consistent artifact set.
package servingtest

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wonny/salescast/internal/artifacts"
	"github.com/wonny/salescast/internal/contracts"
	"github.com/wonny/salescast/internal/encoding"
	"github.com/wonny/salescast/internal/featurestore"
	"github.com/wonny/salescast/internal/forecast"
	"github.com/wonny/salescast/internal/modelspec"
)

// NationalLevel is the constant national revenue the seeded model predicts
const NationalLevel = 1234.5678

// Ensemble sums its inputs, skipping NaN
type Ensemble struct {
	Width int
}

func (e Ensemble) PredictSingle(fvals []float64, _ int) float64 {
	var sum float64
	for _, v := range fvals {
		if !math.IsNaN(v) {
			sum += v
		}
	}
	return sum
}

func (e Ensemble) NFeatures() int { return e.Width }

// Day parses YYYY-MM-DD
func Day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// Seed writes every artifact serving.Load reads, except the tree model
func Seed(t testing.TB, store artifacts.Store, spec *modelspec.Spec) {
	t.Helper()
	ctx := context.Background()
	keys := spec.Artifacts

	order, err := json.Marshal(spec.FeatureOrder())
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, keys.FeatureOrder, order))

	bank, err := json.Marshal(encoding.Fit(map[string][]string{
		contracts.ColID:        {"FOODS_1_001_CA_1_evaluation"},
		contracts.ColItemID:    {"FOODS_1_001"},
		contracts.ColDeptID:    {"FOODS_1"},
		contracts.ColCatID:     {"FOODS"},
		contracts.ColStoreID:   {"CA_1"},
		contracts.ColStateID:   {"CA"},
		contracts.ColEventName: {"NoEvent", "SuperBowl"},
		contracts.ColEventType: {"NoEvent", "Sporting"},
	}))
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, keys.Encoders, bank))

	src := featurestore.NewArtifactSource(store, keys.Prices, keys.RecentHistory)
	require.NoError(t, src.WritePrices(ctx, []contracts.PriceRow{
		{ItemID: "FOODS_1_001", StoreID: "CA_1", YearWeek: 11617, SellPrice: 2.24},
	}))
	require.NoError(t, src.WriteHistory(ctx, []contracts.HistoryRow{{
		ItemID: "FOODS_1_001", StoreID: "CA_1", Date: Day("2016-05-22"), Sales: 3,
		Features: map[string]float64{
			"sales_lag_7":        2,
			"rolling_mean_7_7":   1.5,
			"rolling_mean_7_28":  1.25,
			"sales_lag_28":       4,
			"rolling_mean_28_7":  1,
			"rolling_mean_28_28": 0.75,
			"sales_trend":        -2,
		},
	}}))

	model, err := json.Marshal(&forecast.AdditiveModel{
		Start:         Day("2011-01-29"),
		TScale:        1000,
		YScale:        NationalLevel,
		Intercept:     1,
		Sigma:         0.1,
		IntervalWidth: spec.Horizon.IntervalWidth,
	})
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, keys.NationalModel, model))

	var series []contracts.SeriesPoint
	for d := Day("2016-04-25"); !d.After(Day("2016-05-22")); d = d.AddDate(0, 0, 1) {
		series = append(series, contracts.SeriesPoint{Date: d, Value: NationalLevel})
	}
	var buf bytes.Buffer
	require.NoError(t, forecast.WriteSeries(&buf, series))
	require.NoError(t, store.Write(ctx, keys.NationalHistory, buf.Bytes()))
}
