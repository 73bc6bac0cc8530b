package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/salescast/internal/calendar"
	"github.com/wonny/salescast/internal/contracts"
)

// baseColumns are required in every sales frame
var baseColumns = []string{
	contracts.ColID, contracts.ColItemID, contracts.ColDeptID, contracts.ColCatID,
	contracts.ColStoreID, contracts.ColStateID, contracts.ColD, contracts.ColDate,
	contracts.ColYearWeek, contracts.ColSales, contracts.ColSellPrice,
	contracts.ColEventName, contracts.ColEventType,
}

// ReadFrame reads a long-format sales frame.
// Unknown numeric columns (sales_lag_7, ...) land in Features; empty cells are NaN.
// Empty event cells take defaultEvent.
func ReadFrame(r io.Reader, defaultEvent string) ([]contracts.SalesRecord, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read sales frame header: %w", err)
	}
	header = append([]string(nil), header...)

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	for _, col := range baseColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("sales frame missing column %s", col)
		}
	}

	var extra []string
	for _, h := range header {
		h = strings.TrimSpace(h)
		if !isBaseColumn(h) && h != contracts.ColRevenue && h != contracts.ColIsWeekend {
			extra = append(extra, h)
		}
	}

	var records []contracts.SalesRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sales frame line %d: %w", line, err)
		}

		rec, err := parseRecord(row, index, extra, defaultEvent)
		if err != nil {
			return nil, fmt.Errorf("sales frame line %d: %w", line, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func parseRecord(row []string, index map[string]int, extra []string, defaultEvent string) (contracts.SalesRecord, error) {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	date, err := parseDate(get(contracts.ColDate))
	if err != nil {
		return contracts.SalesRecord{}, err
	}
	yearWeek := 0
	if s := get(contracts.ColYearWeek); s != "" {
		if yearWeek, err = strconv.Atoi(s); err != nil {
			return contracts.SalesRecord{}, fmt.Errorf("invalid wm_yr_wk %q", s)
		}
	}
	sales, err := parseFloat(get(contracts.ColSales))
	if err != nil {
		return contracts.SalesRecord{}, fmt.Errorf("invalid sales: %w", err)
	}
	price, err := parseFloat(get(contracts.ColSellPrice))
	if err != nil {
		return contracts.SalesRecord{}, fmt.Errorf("invalid sell_price: %w", err)
	}
	revenue, err := parseFloat(get(contracts.ColRevenue))
	if err != nil {
		return contracts.SalesRecord{}, fmt.Errorf("invalid sales_revenue: %w", err)
	}

	rec := contracts.SalesRecord{
		ID:           get(contracts.ColID),
		ItemID:       get(contracts.ColItemID),
		DeptID:       get(contracts.ColDeptID),
		CatID:        get(contracts.ColCatID),
		StoreID:      get(contracts.ColStoreID),
		StateID:      get(contracts.ColStateID),
		D:            get(contracts.ColD),
		Date:         date,
		WmYrWk:       yearWeek,
		Sales:        sales,
		SellPrice:    price,
		EventName:    orDefault(get(contracts.ColEventName), defaultEvent),
		EventType:    orDefault(get(contracts.ColEventType), defaultEvent),
		SalesRevenue: revenue,
		IsWeekend:    parseBool(get(contracts.ColIsWeekend)),
	}

	if len(extra) > 0 {
		rec.Features = make(map[string]float64, len(extra))
		for _, col := range extra {
			v, err := parseFloat(get(col))
			if err != nil {
				return contracts.SalesRecord{}, fmt.Errorf("invalid %s: %w", col, err)
			}
			rec.Features[col] = v
		}
	}

	return rec, nil
}

// WriteFrame writes records with the base columns followed by featureCols and is_weekend
func WriteFrame(w io.Writer, records []contracts.SalesRecord, featureCols []string) error {
	cw := csv.NewWriter(w)

	header := append(append([]string(nil), baseColumns...), featureCols...)
	header = append(header, contracts.ColIsWeekend)
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, 0, len(header))
	for _, r := range records {
		row = append(row[:0],
			r.ID, r.ItemID, r.DeptID, r.CatID, r.StoreID, r.StateID, r.D,
			r.Date.Format(calendar.ISODateLayout),
			strconv.Itoa(r.WmYrWk),
			formatFloat(r.Sales),
			formatFloat(r.SellPrice),
			r.EventName, r.EventType,
		)
		for _, col := range featureCols {
			v, ok := r.Features[col]
			if !ok {
				v = math.NaN()
			}
			row = append(row, formatFloat(v))
		}
		row = append(row, strconv.FormatBool(r.IsWeekend))
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func isBaseColumn(col string) bool {
	for _, c := range baseColumns {
		if c == col {
			return true
		}
	}
	return false
}

func parseDate(s string) (time.Time, error) {
	if len(s) > len(calendar.ISODateLayout) {
		s = s[:len(calendar.ISODateLayout)]
	}
	d, err := time.Parse(calendar.ISODateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return d, nil
}

// parseFloat maps empty and "nan" cells to NaN
func parseFloat(s string) (float64, error) {
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true":
		return true
	}
	return false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
