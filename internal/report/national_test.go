package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/wonny/salescast/internal/contracts"
)

func TestWriteNational(t *testing.T) {
	start := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]contracts.ForecastPoint, 8)
	for i := range points {
		points[i] = contracts.ForecastPoint{
			Date:  start.AddDate(0, 0, i),
			Yhat:  100.004,
			Lower: 90.126,
			Upper: 110,
		}
	}

	var buf bytes.Buffer
	require.NoError(t, WriteNational(&buf, points, Meta{ModelID: "m5_xgb", Target: "01/01/2099"}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ForecastSheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 9)
	assert.Equal(t, []string{"date", "yhat", "yhat_lower", "yhat_upper"}, rows[0])
	assert.Equal(t, "01/01/2099", rows[1][0])
	assert.Equal(t, "100", rows[1][1])
	assert.Equal(t, "90.13", rows[1][2])
	assert.Equal(t, "08/01/2099", rows[8][0])

	total, err := f.GetCellValue(SummarySheet, "B5", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "800", total)
}

func TestWriteNational_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNational(&buf, nil, Meta{}))
	assert.NotZero(t, buf.Len())
}
