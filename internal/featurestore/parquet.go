package featurestore

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/wonny/salescast/internal/contracts"
)

// priceRecord is the on-disk layout of weekly_sell_price.parquet
type priceRecord struct {
	ItemID    string  `parquet:"item_id"`
	StoreID   string  `parquet:"store_id"`
	YearWeek  int64   `parquet:"wm_yr_wk"`
	SellPrice float64 `parquet:"sell_price"`
}

// historyRecord is the on-disk layout of recent_data.parquet.
// The columns cover lags {7, 28} x windows {7, 28}; other layouts go through PostgreSQL.
type historyRecord struct {
	ItemID           string    `parquet:"item_id"`
	StoreID          string    `parquet:"store_id"`
	Sales            float64   `parquet:"sales"`
	Date             time.Time `parquet:"date,timestamp"`
	SalesTrend       float64   `parquet:"sales_trend"`
	SalesLag7        float64   `parquet:"sales_lag_7"`
	RollingMean7_7   float64   `parquet:"rolling_mean_7_7"`
	RollingMean7_28  float64   `parquet:"rolling_mean_7_28"`
	SalesLag28       float64   `parquet:"sales_lag_28"`
	RollingMean28_7  float64   `parquet:"rolling_mean_28_7"`
	RollingMean28_28 float64   `parquet:"rolling_mean_28_28"`
}

// ParquetHistoryColumns are the feature columns a parquet snapshot can carry
var ParquetHistoryColumns = []string{
	contracts.LagColumn(7), contracts.RollingColumn(7, 7), contracts.RollingColumn(7, 28),
	contracts.LagColumn(28), contracts.RollingColumn(28, 7), contracts.RollingColumn(28, 28),
	contracts.ColTrend,
}

func (r historyRecord) features() map[string]float64 {
	return map[string]float64{
		contracts.LagColumn(7):          r.SalesLag7,
		contracts.RollingColumn(7, 7):   r.RollingMean7_7,
		contracts.RollingColumn(7, 28):  r.RollingMean7_28,
		contracts.LagColumn(28):         r.SalesLag28,
		contracts.RollingColumn(28, 7):  r.RollingMean28_7,
		contracts.RollingColumn(28, 28): r.RollingMean28_28,
		contracts.ColTrend:              r.SalesTrend,
	}
}

func newHistoryRecord(row contracts.HistoryRow) (historyRecord, error) {
	for name := range row.Features {
		if !supportedParquetColumn(name) {
			return historyRecord{}, fmt.Errorf("column %s cannot be stored in a parquet snapshot", name)
		}
	}

	get := func(name string) float64 {
		if v, ok := row.Features[name]; ok {
			return v
		}
		return math.NaN()
	}

	return historyRecord{
		ItemID:           row.ItemID,
		StoreID:          row.StoreID,
		Sales:            row.Sales,
		Date:             row.Date,
		SalesTrend:       get(contracts.ColTrend),
		SalesLag7:        get(contracts.LagColumn(7)),
		RollingMean7_7:   get(contracts.RollingColumn(7, 7)),
		RollingMean7_28:  get(contracts.RollingColumn(7, 28)),
		SalesLag28:       get(contracts.LagColumn(28)),
		RollingMean28_7:  get(contracts.RollingColumn(28, 7)),
		RollingMean28_28: get(contracts.RollingColumn(28, 28)),
	}, nil
}

func supportedParquetColumn(name string) bool {
	for _, c := range ParquetHistoryColumns {
		if c == name {
			return true
		}
	}
	return false
}

// DecodePrices reads a weekly price table, preserving row order
func DecodePrices(data []byte) ([]contracts.PriceRow, error) {
	records, err := parquet.Read[priceRecord](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("decode price parquet: %w", err)
	}

	rows := make([]contracts.PriceRow, len(records))
	for i, r := range records {
		rows[i] = contracts.PriceRow{
			ItemID:    r.ItemID,
			StoreID:   r.StoreID,
			YearWeek:  int(r.YearWeek),
			SellPrice: r.SellPrice,
		}
	}
	return rows, nil
}

// EncodePrices writes a weekly price table
func EncodePrices(rows []contracts.PriceRow) ([]byte, error) {
	records := make([]priceRecord, len(rows))
	for i, r := range rows {
		records[i] = priceRecord{
			ItemID:    r.ItemID,
			StoreID:   r.StoreID,
			YearWeek:  int64(r.YearWeek),
			SellPrice: r.SellPrice,
		}
	}

	var buf bytes.Buffer
	if err := parquet.Write(&buf, records); err != nil {
		return nil, fmt.Errorf("encode price parquet: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeHistory reads a recent history snapshot
func DecodeHistory(data []byte) ([]contracts.HistoryRow, error) {
	records, err := parquet.Read[historyRecord](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("decode history parquet: %w", err)
	}

	rows := make([]contracts.HistoryRow, len(records))
	for i, r := range records {
		rows[i] = contracts.HistoryRow{
			ItemID:   r.ItemID,
			StoreID:  r.StoreID,
			Date:     r.Date.UTC(),
			Sales:    r.Sales,
			Features: r.features(),
		}
	}
	return rows, nil
}

// EncodeHistory writes a recent history snapshot
func EncodeHistory(rows []contracts.HistoryRow) ([]byte, error) {
	records := make([]historyRecord, len(rows))
	for i, row := range rows {
		rec, err := newHistoryRecord(row)
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}

	var buf bytes.Buffer
	if err := parquet.Write(&buf, records); err != nil {
		return nil, fmt.Errorf("encode history parquet: %w", err)
	}
	return buf.Bytes(), nil
}
