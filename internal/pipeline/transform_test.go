package pipeline

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/salescast/internal/calendar"
	"github.com/wonny/salescast/internal/contracts"
	"github.com/wonny/salescast/internal/modelspec"
)

func day(s string) time.Time {
	d, err := time.Parse(calendar.ISODateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

// salesFrame builds n daily rows per item starting 2016-01-01, sales = row index
func salesFrame(items []string, n int) []contracts.SalesRecord {
	var records []contracts.SalesRecord
	for _, item := range items {
		parts := strings.Split(item, "_")
		for i := 0; i < n; i++ {
			d := day("2016-01-01").AddDate(0, 0, i)
			records = append(records, contracts.SalesRecord{
				ID:           item + "_CA_1_evaluation",
				ItemID:       item,
				DeptID:       parts[0] + "_" + parts[1],
				CatID:        parts[0],
				StoreID:      "CA_1",
				StateID:      "CA",
				D:            "d_" + strconv.Itoa(i+1),
				Date:         d,
				WmYrWk:       calendar.WalmartFiscal.YearWeek(d),
				Sales:        float64(i),
				SellPrice:    2,
				EventName:    contracts.DefaultEvent,
				EventType:    contracts.DefaultEvent,
				SalesRevenue: math.NaN(),
			})
		}
	}
	return records
}

func TestBuildFeatures(t *testing.T) {
	spec := modelspec.Default().Features
	records := salesFrame([]string{"FOODS_1_001", "FOODS_1_002"}, 40)

	// shuffle the second group's rows to check per-group date ordering
	records[40], records[79] = records[79], records[40]

	BuildFeatures(records, spec, calendar.DefaultWeekend())

	byDate := map[string]contracts.SalesRecord{}
	for _, r := range records {
		if r.ItemID == "FOODS_1_002" {
			byDate[r.Date.Format(calendar.ISODateLayout)] = r
		}
	}

	first := byDate["2016-01-01"]
	assert.True(t, math.IsNaN(first.Features["sales_lag_7"]))
	assert.True(t, math.IsNaN(first.Features["sales_trend"]))

	r := byDate["2016-01-08"] // index 7
	assert.Equal(t, 0.0, r.Features["sales_lag_7"])
	assert.True(t, math.IsNaN(r.Features["rolling_mean_7_7"]), "needs 7 non-missing lag values")

	r = byDate["2016-01-14"] // index 13: lag7 values 0..6
	assert.Equal(t, 3.0, r.Features["rolling_mean_7_7"])

	r = byDate["2016-02-04"] // index 34: lag28 = 6, rolling_mean_28_7 over lag28 values 0..6
	assert.Equal(t, 27.0, r.Features["sales_lag_7"])
	assert.Equal(t, 6.0, r.Features["sales_lag_28"])
	assert.Equal(t, 3.0, r.Features["rolling_mean_28_7"])
	assert.Equal(t, 21.0, r.Features["sales_trend"])
	assert.True(t, math.IsNaN(r.Features["rolling_mean_28_28"]))

	// 2016-01-02 is a Saturday
	assert.True(t, byDate["2016-01-02"].IsWeekend)
	assert.True(t, byDate["2016-01-03"].IsWeekend)
	assert.False(t, byDate["2016-01-04"].IsWeekend)
}

func TestRollingMean(t *testing.T) {
	nan := math.NaN()
	got := rollingMean([]float64{nan, 1, 2, 3, nan, 5, 6}, 2)

	want := []float64{nan, nan, 1.5, 2.5, nan, nan, 5.5}
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.True(t, math.IsNaN(got[i]), i)
		} else {
			assert.Equal(t, want[i], got[i], i)
		}
	}
}

func TestExportSnapshot(t *testing.T) {
	records := salesFrame([]string{"FOODS_1_001", "FOODS_1_002"}, 10)
	BuildFeatures(records, modelspec.Default().Features, calendar.DefaultWeekend())

	rows := ExportSnapshot(records, 3, modelspec.Default().Features.HistoryColumns())
	require.Len(t, rows, 3)

	// stable: equal dates keep input order
	assert.Equal(t, "FOODS_1_001", rows[0].ItemID)
	assert.True(t, rows[0].Date.Equal(day("2016-01-10")))
	assert.Equal(t, "FOODS_1_002", rows[1].ItemID)
	assert.True(t, rows[1].Date.Equal(day("2016-01-10")))
	assert.True(t, rows[2].Date.Equal(day("2016-01-09")))

	assert.Equal(t, 2.0, rows[0].Features["sales_lag_7"])
	assert.Len(t, rows[0].Features, 7)
}

func TestBuildPrices(t *testing.T) {
	records := salesFrame([]string{"FOODS_1_001"}, 14)
	records[0].SellPrice = math.NaN()
	records[1].SellPrice = 1.5

	rows := BuildPrices(records, calendar.WalmartFiscal)

	// 2016-01-01 (unpriced) closes one fiscal week; 01-02..08 and 01-09..14 are the next two
	require.Len(t, rows, 2)
	assert.Equal(t, calendar.WalmartFiscal.YearWeek(day("2016-01-02")), rows[0].YearWeek)
	assert.Equal(t, 1.5, rows[0].SellPrice, "first priced row of the week wins")
	assert.Equal(t, rows[0].YearWeek+1, rows[1].YearWeek)
	assert.Equal(t, 2.0, rows[1].SellPrice)
}

func TestFitEncoders_DropsD(t *testing.T) {
	records := salesFrame([]string{"FOODS_1_001", "HOBBIES_1_001"}, 3)
	bank := FitEncoders(records, []string{"item_id", "cat_id", "d"})

	assert.Equal(t, []string{"cat_id", "item_id"}, bank.Columns())
	code, err := bank.Encode("cat_id", "HOBBIES")
	require.NoError(t, err)
	assert.Equal(t, 1, code)
}

func TestPrepareSeries(t *testing.T) {
	records := salesFrame([]string{"FOODS_1_001", "FOODS_1_002"}, 5)
	var filtered []contracts.SalesRecord
	for _, r := range records {
		if !r.Date.Equal(day("2016-01-03")) {
			filtered = append(filtered, r)
		}
	}
	filtered[0].EventName = "NewYear"
	filtered[len(filtered)-1].EventName = "SuperBowl"
	filtered[len(filtered)-1].SalesRevenue = 100

	series, holidays := PrepareSeries(filtered, contracts.DefaultEvent)

	require.Len(t, series, 5)
	assert.True(t, series[2].Date.Equal(day("2016-01-03")))
	assert.Equal(t, 0.0, series[2].Value, "missing day is zero-filled")
	assert.Equal(t, 0.0, series[0].Value) // sales 0 on the first day
	assert.Equal(t, 2*1.0+2*1.0, series[1].Value)
	assert.Equal(t, 4*2.0+100, series[4].Value, "explicit revenue wins over sales*price")

	require.Len(t, holidays, 2)
	assert.Equal(t, "NewYear", holidays[0].Name)
	assert.Equal(t, "SuperBowl", holidays[1].Name)
}

func TestFrameRoundTrip(t *testing.T) {
	records := salesFrame([]string{"FOODS_1_001"}, 30)
	BuildFeatures(records, modelspec.Default().Features, calendar.DefaultWeekend())
	cols := modelspec.Default().Features.HistoryColumns()

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, records, cols))

	got, err := ReadFrame(&buf, contracts.DefaultEvent)
	require.NoError(t, err)
	require.Len(t, got, 30)

	last := got[29]
	assert.Equal(t, 22.0, last.Features["sales_lag_7"])
	assert.Equal(t, 1.0, last.Features["sales_lag_28"])
	assert.True(t, math.IsNaN(last.Features["rolling_mean_28_7"]))
	assert.True(t, math.IsNaN(last.SalesRevenue))
	assert.Equal(t, records[29].IsWeekend, last.IsWeekend)
}

func TestReadFrame_Errors(t *testing.T) {
	_, err := ReadFrame(strings.NewReader("id,item_id\nx,y\n"), contracts.DefaultEvent)
	assert.Error(t, err)

	header := strings.Join(baseColumns, ",")
	_, err = ReadFrame(strings.NewReader(header+"\nFOODS_1_001_CA_1_evaluation,FOODS_1_001,FOODS_1,FOODS,CA_1,CA,d_1,29/01/2011,11101,3,,,\n"), contracts.DefaultEvent)
	assert.Error(t, err)

	got, err := ReadFrame(strings.NewReader(header+"\nFOODS_1_001_CA_1_evaluation,FOODS_1_001,FOODS_1,FOODS,CA_1,CA,d_1,2011-01-29,11101,3,,,\n"), contracts.DefaultEvent)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, contracts.DefaultEvent, got[0].EventName)
	assert.True(t, math.IsNaN(got[0].SellPrice))
}
