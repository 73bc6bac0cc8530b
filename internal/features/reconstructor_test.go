package features

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/salescast/internal/calendar"
	"github.com/wonny/salescast/internal/contracts"
	"github.com/wonny/salescast/internal/encoding"
	"github.com/wonny/salescast/internal/featurestore"
	"github.com/wonny/salescast/internal/modelspec"
)

type recordingObserver struct {
	coldStarts  int
	fallbacks   []modelspec.PriceFallback
	unavailable int
	unknown     map[string]int
}

func (o *recordingObserver) ColdStart(string, string) { o.coldStarts++ }
func (o *recordingObserver) PriceFallback(p modelspec.PriceFallback) {
	o.fallbacks = append(o.fallbacks, p)
}
func (o *recordingObserver) DataUnavailable(string, string) { o.unavailable++ }
func (o *recordingObserver) UnknownCategory(column string, _ modelspec.UnknownPolicy) {
	if o.unknown == nil {
		o.unknown = map[string]int{}
	}
	o.unknown[column]++
}

func date(s string) time.Time {
	d, err := time.Parse(calendar.ISODateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

var historyValues = map[string]float64{
	"sales_lag_7":        2,
	"rolling_mean_7_7":   1.5,
	"rolling_mean_7_28":  1.25,
	"sales_lag_28":       4,
	"rolling_mean_28_7":  1,
	"rolling_mean_28_28": 0.75,
	"sales_trend":        -2,
}

func newTestReconstructor(t *testing.T, policy modelspec.UnknownPolicy, obs Observer) *Reconstructor {
	t.Helper()

	spec := modelspec.Default()
	spec.Encoding.UnknownPolicy = string(policy)

	prices := []contracts.PriceRow{
		{ItemID: "FOODS_1_001", StoreID: "CA_1", YearWeek: 11616, SellPrice: 2.0},
		{ItemID: "FOODS_1_001", StoreID: "CA_1", YearWeek: 11617, SellPrice: 2.24},
		{ItemID: "FOODS_1_002", StoreID: "CA_1", YearWeek: 11617, SellPrice: 9.48},
		{ItemID: "HOBBIES_2_999", StoreID: "CA_1", YearWeek: 11617, SellPrice: 1.0},
	}
	history := []contracts.HistoryRow{
		{ItemID: "FOODS_1_001", StoreID: "CA_1", Date: date("2016-05-21"), Features: map[string]float64{"sales_lag_7": 100}},
		{ItemID: "FOODS_1_001", StoreID: "CA_1", Date: date("2016-05-22"), Features: historyValues},
	}
	snap := featurestore.NewSnapshot(prices, history, spec.PriceFallbackPolicy())

	bank := encoding.Fit(map[string][]string{
		"id":         {"FOODS_1_001_CA_1_evaluation", "FOODS_1_002_CA_1_evaluation"},
		"item_id":    {"FOODS_1_001", "FOODS_1_002"},
		"dept_id":    {"FOODS_1"},
		"cat_id":     {"FOODS"},
		"store_id":   {"CA_1", "TX_1"},
		"state_id":   {"CA", "TX"},
		"event_name": {"NoEvent", "SuperBowl"},
		"event_type": {"NoEvent", "Sporting"},
	})

	opts, err := OptionsFromSpec(spec, spec.FeatureOrder())
	require.NoError(t, err)

	r, err := NewReconstructor(snap, bank, opts, obs, zerolog.Nop())
	require.NoError(t, err)
	return r
}

func request(item, store, d string) contracts.PredictionRequest {
	return contracts.PredictionRequest{ItemID: item, StoreID: store, Date: date(d)}
}

func TestReconstruct_ColumnOrder(t *testing.T) {
	r := newTestReconstructor(t, modelspec.UnknownSkip, nil)

	rec, err := r.Reconstruct(request("FOODS_1_001", "CA_1", "2016-05-23"))
	require.NoError(t, err)

	assert.Equal(t, modelspec.Default().FeatureOrder(), rec.Vector.Names)
	assert.Equal(t, len(rec.Vector.Names), rec.Vector.Len())
}

func TestReconstruct_KnownPair(t *testing.T) {
	r := newTestReconstructor(t, modelspec.UnknownSkip, nil)

	rec, err := r.Reconstruct(request("FOODS_1_001", "CA_1", "2016-05-23"))
	require.NoError(t, err)

	assert.Equal(t, 11617, rec.YearWeek)
	assert.Equal(t, 2.24, rec.SellPrice)
	assert.Equal(t, contracts.PriceExact, rec.PriceSource)
	assert.False(t, rec.ColdStart)
	assert.Empty(t, rec.Unencoded)

	for col, want := range historyValues {
		got, ok := rec.Vector.Value(col)
		require.True(t, ok, col)
		assert.Equal(t, want, got, col)
	}

	week, _ := rec.Vector.Value("wm_yr_wk")
	assert.Equal(t, 11617.0, week)
	weekend, _ := rec.Vector.Value("is_weekend")
	assert.Equal(t, 0.0, weekend)

	// codes follow the sorted class lists
	item, _ := rec.Vector.Value("item_id")
	assert.Equal(t, 0.0, item)
	event, _ := rec.Vector.Value("event_name")
	assert.Equal(t, 0.0, event)
}

func TestReconstruct_Decomposition(t *testing.T) {
	r := newTestReconstructor(t, modelspec.UnknownSkip, nil)

	rec, err := r.Reconstruct(request("FOODS_1_001", "CA_1", "2016-05-23"))
	require.NoError(t, err)

	assert.Equal(t, "FOODS_1", rec.Categorical["dept_id"])
	assert.Equal(t, "FOODS", rec.Categorical["cat_id"])
	assert.Equal(t, "CA", rec.Categorical["state_id"])
	assert.Equal(t, "FOODS_1_001_CA_1_evaluation", rec.Categorical["id"])
}

func TestReconstruct_EventFromRequest(t *testing.T) {
	r := newTestReconstructor(t, modelspec.UnknownSkip, nil)

	req := request("FOODS_1_001", "CA_1", "2016-02-07")
	req.EventName = "SuperBowl"
	req.EventType = "Sporting"

	rec, err := r.Reconstruct(req)
	require.NoError(t, err)

	assert.Equal(t, "SuperBowl", rec.Categorical["event_name"])
	name, _ := rec.Vector.Value("event_name")
	assert.Equal(t, 1.0, name)
	kind, _ := rec.Vector.Value("event_type")
	assert.Equal(t, 1.0, kind)
}

func TestReconstruct_ColdStart(t *testing.T) {
	obs := &recordingObserver{}
	r := newTestReconstructor(t, modelspec.UnknownSkip, obs)

	rec, err := r.Reconstruct(request("FOODS_1_002", "CA_1", "2016-05-23"))
	require.NoError(t, err)

	assert.True(t, rec.ColdStart)
	for _, col := range modelspec.Default().Features.HistoryColumns() {
		v, ok := rec.Vector.Value(col)
		require.True(t, ok, col)
		assert.Equal(t, 0.0, v, col)
	}
	assert.Equal(t, 1, obs.coldStarts)
}

func TestReconstruct_PriceFallback(t *testing.T) {
	obs := &recordingObserver{}
	r := newTestReconstructor(t, modelspec.UnknownSkip, obs)

	rec, err := r.Reconstruct(request("FOODS_1_001", "CA_1", "2017-01-03"))
	require.NoError(t, err)

	assert.Equal(t, contracts.PriceFallback, rec.PriceSource)
	assert.Equal(t, 2.24, rec.SellPrice)
	assert.Equal(t, []modelspec.PriceFallback{modelspec.FallbackLastRow}, obs.fallbacks)
}

func TestReconstruct_DataUnavailable(t *testing.T) {
	obs := &recordingObserver{}
	r := newTestReconstructor(t, modelspec.UnknownSkip, obs)

	_, err := r.Reconstruct(request("FOODS_1_001", "TX_1", "2016-05-23"))
	require.Error(t, err)
	assert.True(t, contracts.IsDataUnavailable(err))
	assert.Equal(t, 1, obs.unavailable)
}

func TestReconstruct_IsWeekendAcrossWeek(t *testing.T) {
	r := newTestReconstructor(t, modelspec.UnknownSkip, nil)

	// 2016-05-16 is a Monday
	start := date("2016-05-16")
	for i := 0; i < 7; i++ {
		d := start.AddDate(0, 0, i)
		rec, err := r.Reconstruct(contracts.PredictionRequest{ItemID: "FOODS_1_001", StoreID: "CA_1", Date: d})
		require.NoError(t, err)

		want := 0.0
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			want = 1.0
		}
		got, _ := rec.Vector.Value("is_weekend")
		assert.Equal(t, want, got, d.Weekday().String())
	}
}

func TestReconstruct_UnknownCategoryPolicies(t *testing.T) {
	req := request("HOBBIES_2_999", "CA_1", "2016-05-23")

	t.Run("fail", func(t *testing.T) {
		obs := &recordingObserver{}
		r := newTestReconstructor(t, modelspec.UnknownFail, obs)

		_, err := r.Reconstruct(req)
		require.Error(t, err)
		assert.True(t, contracts.IsUnknownCategory(err))
		assert.Equal(t, 1, obs.unknown["id"])
	})

	t.Run("zero_fill", func(t *testing.T) {
		obs := &recordingObserver{}
		r := newTestReconstructor(t, modelspec.UnknownZeroFill, obs)

		rec, err := r.Reconstruct(req)
		require.NoError(t, err)
		for _, col := range []string{"id", "item_id", "dept_id", "cat_id"} {
			v, _ := rec.Vector.Value(col)
			assert.Equal(t, 0.0, v, col)
		}
		assert.Equal(t, []string{"id", "item_id", "dept_id", "cat_id"}, rec.Unencoded)
		assert.Equal(t, 1, obs.unknown["cat_id"])
	})

	t.Run("skip", func(t *testing.T) {
		r := newTestReconstructor(t, modelspec.UnknownSkip, nil)

		rec, err := r.Reconstruct(req)
		require.NoError(t, err)
		v, _ := rec.Vector.Value("item_id")
		assert.True(t, math.IsNaN(v))
		store, _ := rec.Vector.Value("store_id")
		assert.Equal(t, 0.0, store)
	})
}

func TestReconstruct_Validation(t *testing.T) {
	r := newTestReconstructor(t, modelspec.UnknownSkip, nil)

	tests := []struct {
		name string
		req  contracts.PredictionRequest
	}{
		{"missing item", contracts.PredictionRequest{StoreID: "CA_1", Date: date("2016-05-23")}},
		{"missing store", contracts.PredictionRequest{ItemID: "FOODS_1_001", Date: date("2016-05-23")}},
		{"missing date", contracts.PredictionRequest{ItemID: "FOODS_1_001", StoreID: "CA_1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Reconstruct(tt.req)
			assert.True(t, contracts.IsValidation(err))
		})
	}
}

func TestNewReconstructor_UnproducibleColumn(t *testing.T) {
	spec := modelspec.Default()
	snap := featurestore.NewSnapshot(nil, nil, modelspec.FallbackLastRow)
	bank := encoding.Fit(map[string][]string{"item_id": {"FOODS_1_001"}})

	opts, err := OptionsFromSpec(spec, []string{"item_id", "sell_price", "snap_CA"})
	require.NoError(t, err)
	_, err = NewReconstructor(snap, bank, opts, nil, zerolog.Nop())
	assert.ErrorIs(t, err, contracts.ErrFeatureMissing)

	// categorical column without an encoder
	opts, _ = OptionsFromSpec(spec, []string{"item_id", "dept_id"})
	_, err = NewReconstructor(snap, bank, opts, nil, zerolog.Nop())
	assert.ErrorIs(t, err, contracts.ErrFeatureMissing)
}

func TestDecompose_ShortIdentifiers(t *testing.T) {
	raw := Decompose(contracts.PredictionRequest{ItemID: "FOODS", StoreID: "CA"})
	assert.Equal(t, "FOODS", raw["dept_id"])
	assert.Equal(t, "FOODS", raw["cat_id"])
	assert.Equal(t, "CA", raw["state_id"])
}
