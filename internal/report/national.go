// Package report renders forecasts as Excel workbooks.
package report

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/wonny/salescast/internal/calendar"
	"github.com/wonny/salescast/internal/contracts"
)

const (
	ForecastSheet = "national"
	SummarySheet  = "summary"

	numFmtThousands = 4 // #,##0.00
)

var forecastHeader = []interface{}{"date", "yhat", "yhat_lower", "yhat_upper"}

// Meta is printed on the summary sheet
type Meta struct {
	ModelID  string
	SpecHash string
	Target   string // dd/mm/yyyy
}

// WriteNational writes the national forecast workbook to w
func WriteNational(w io.Writer, points []contracts.ForecastPoint, meta Meta) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ForecastSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(ForecastSheet, "A1", &forecastHeader); err != nil {
		return err
	}

	total := decimal.Zero
	for i, p := range points {
		yhat := round2(p.Yhat)
		total = total.Add(yhat)

		row := []interface{}{
			calendar.FormatNationalDate(p.Date),
			yhat.InexactFloat64(),
			round2(p.Lower).InexactFloat64(),
			round2(p.Upper).InexactFloat64(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ForecastSheet, cell, &row); err != nil {
			return err
		}
	}

	style, err := f.NewStyle(&excelize.Style{NumFmt: numFmtThousands})
	if err != nil {
		return err
	}
	if len(points) > 0 {
		last, _ := excelize.CoordinatesToCellName(4, len(points)+1)
		if err := f.SetCellStyle(ForecastSheet, "B2", last, style); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(ForecastSheet, "A", "D", 14); err != nil {
		return err
	}

	// 요약 시트
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return err
	}
	summary := [][]interface{}{
		{"model_id", meta.ModelID},
		{"spec_hash", meta.SpecHash},
		{"target", meta.Target},
		{"days", len(points)},
		{"total_yhat", total.InexactFloat64()},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func round2(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
