package featurestore

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/salescast/internal/artifacts"
	"github.com/wonny/salescast/internal/contracts"
	"github.com/wonny/salescast/internal/modelspec"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func samplePrices() []contracts.PriceRow {
	return []contracts.PriceRow{
		{ItemID: "FOODS_1_001", StoreID: "CA_1", YearWeek: 11613, SellPrice: 2.00},
		{ItemID: "FOODS_1_001", StoreID: "CA_1", YearWeek: 11617, SellPrice: 2.24},
		{ItemID: "FOODS_1_001", StoreID: "CA_1", YearWeek: 11617, SellPrice: 9.99}, // duplicate key, first wins
		{ItemID: "FOODS_1_001", StoreID: "CA_1", YearWeek: 11615, SellPrice: 2.10},
		{ItemID: "HOBBIES_1_004", StoreID: "TX_2", YearWeek: 11617, SellPrice: 4.64},
	}
}

func TestPriceTable_Lookup(t *testing.T) {
	tests := []struct {
		name     string
		fallback modelspec.PriceFallback
		item     string
		store    string
		week     int
		want     float64
		source   contracts.PriceSource
		wantErr  bool
	}{
		{"exact first row wins", modelspec.FallbackLastRow, "FOODS_1_001", "CA_1", 11617, 2.24, contracts.PriceExact, false},
		{"miss uses last row", modelspec.FallbackLastRow, "FOODS_1_001", "CA_1", 11701, 2.10, contracts.PriceFallback, false},
		{"miss uses latest week", modelspec.FallbackLatestWeek, "FOODS_1_001", "CA_1", 11701, 2.24, contracts.PriceFallback, false},
		{"miss without fallback", modelspec.FallbackNone, "FOODS_1_001", "CA_1", 11701, 0, "", true},
		{"unknown pair", modelspec.FallbackLastRow, "FOODS_9_999", "CA_1", 11617, 0, "", true},
		{"known item other store", modelspec.FallbackLastRow, "HOBBIES_1_004", "CA_1", 11617, 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := NewPriceTable(samplePrices(), tt.fallback)
			price, source, err := table.Lookup(tt.item, tt.store, tt.week)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, contracts.IsDataUnavailable(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, price)
			assert.Equal(t, tt.source, source)
		})
	}
}

func TestPriceTable_LookupIsIdempotent(t *testing.T) {
	table := NewPriceTable(samplePrices(), modelspec.FallbackLastRow)

	for _, week := range []int{11613, 11617, 11620} {
		p1, s1, err1 := table.Lookup("FOODS_1_001", "CA_1", week)
		p2, s2, err2 := table.Lookup("FOODS_1_001", "CA_1", week)
		assert.Equal(t, p1, p2)
		assert.Equal(t, s1, s2)
		assert.Equal(t, err1, err2)
	}
	assert.Equal(t, 5, table.Len())
}

func TestHistory_Latest(t *testing.T) {
	rows := []contracts.HistoryRow{
		{ItemID: "FOODS_1_001", StoreID: "CA_1", Date: day("2016-05-20"), Features: map[string]float64{"sales_lag_7": 1}},
		{ItemID: "FOODS_1_001", StoreID: "CA_1", Date: day("2016-05-22"), Features: map[string]float64{"sales_lag_7": 3}},
		{ItemID: "FOODS_1_001", StoreID: "CA_1", Date: day("2016-05-22"), Features: map[string]float64{"sales_lag_7": 4}},
		{ItemID: "FOODS_1_001", StoreID: "CA_1", Date: day("2016-05-21"), Features: map[string]float64{"sales_lag_7": 2}},
		{ItemID: "FOODS_1_001", StoreID: "TX_1", Date: day("2016-05-01"), Features: map[string]float64{"sales_lag_7": 9}},
	}
	h := NewHistory(rows)

	row, ok := h.Latest("FOODS_1_001", "CA_1")
	require.True(t, ok)
	assert.Equal(t, day("2016-05-22"), row.Date)
	assert.Equal(t, 3.0, row.Features["sales_lag_7"], "first row among equal dates wins")

	_, ok = h.Latest("FOODS_1_002", "CA_1")
	assert.False(t, ok)

	assert.Equal(t, 2, h.Pairs())
	assert.Equal(t, 5, h.Len())
}

func TestParquetRoundTrip(t *testing.T) {
	prices := samplePrices()
	data, err := EncodePrices(prices)
	require.NoError(t, err)

	gotPrices, err := DecodePrices(data)
	require.NoError(t, err)
	assert.Equal(t, prices, gotPrices)

	history := []contracts.HistoryRow{{
		ItemID:  "FOODS_1_001",
		StoreID: "CA_1",
		Date:    day("2016-05-22"),
		Sales:   3,
		Features: map[string]float64{
			"sales_lag_7": 1, "rolling_mean_7_7": 1.5, "rolling_mean_7_28": 1.25,
			"sales_lag_28": 2, "rolling_mean_28_7": 0.5, "sales_trend": -1,
		},
	}}
	data, err = EncodeHistory(history)
	require.NoError(t, err)

	gotHistory, err := DecodeHistory(data)
	require.NoError(t, err)
	require.Len(t, gotHistory, 1)

	got := gotHistory[0]
	assert.Equal(t, "FOODS_1_001", got.ItemID)
	assert.True(t, got.Date.Equal(day("2016-05-22")))
	assert.Equal(t, 1.25, got.Features["rolling_mean_7_28"])
	assert.Equal(t, -1.0, got.Features["sales_trend"])
	assert.True(t, math.IsNaN(got.Features["rolling_mean_28_28"]), "absent feature stored as NaN")
}

func TestEncodeHistory_RejectsUnsupportedColumn(t *testing.T) {
	_, err := EncodeHistory([]contracts.HistoryRow{{
		ItemID: "FOODS_1_001", StoreID: "CA_1", Date: day("2016-05-22"),
		Features: map[string]float64{"sales_lag_14": 1},
	}})
	assert.Error(t, err)
}

func TestLoad_FromArtifacts(t *testing.T) {
	ctx := context.Background()
	store := artifacts.NewMemoryStore()
	src := NewArtifactSource(store, "weekly_sell_price.parquet", "recent_data.parquet")

	require.NoError(t, src.WritePrices(ctx, samplePrices()))
	require.NoError(t, src.WriteHistory(ctx, []contracts.HistoryRow{{
		ItemID: "FOODS_1_001", StoreID: "CA_1", Date: day("2016-05-22"), Sales: 3,
		Features: map[string]float64{"sales_lag_7": 2},
	}}))

	snap, err := Load(ctx, src, modelspec.FallbackLastRow)
	require.NoError(t, err)

	price, source, err := snap.Prices.Lookup("FOODS_1_001", "CA_1", 11617)
	require.NoError(t, err)
	assert.Equal(t, 2.24, price)
	assert.Equal(t, contracts.PriceExact, source)

	row, ok := snap.History.Latest("FOODS_1_001", "CA_1")
	require.True(t, ok)
	assert.Equal(t, 2.0, row.Features["sales_lag_7"])
}

func TestLoad_MissingArtifact(t *testing.T) {
	src := NewArtifactSource(artifacts.NewMemoryStore(), "prices.parquet", "history.parquet")

	_, err := Load(context.Background(), src, modelspec.FallbackLastRow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, artifacts.ErrNotFound))
}
