package forecast

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/salescast/internal/calendar"
	"github.com/wonny/salescast/internal/contracts"
)

// ReadSeries reads a ds,y CSV (prophet_ready_data.csv)
func ReadSeries(r io.Reader) ([]contracts.SeriesPoint, error) {
	records, err := readCSV(r, []string{"ds", "y"})
	if err != nil {
		return nil, fmt.Errorf("read series: %w", err)
	}

	points := make([]contracts.SeriesPoint, 0, len(records))
	for i, rec := range records {
		d, err := parseSeriesDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("series row %d: %w", i+2, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("series row %d: invalid y %q", i+2, rec[1])
		}
		points = append(points, contracts.SeriesPoint{Date: d, Value: y})
	}
	return points, nil
}

// WriteSeries writes a ds,y CSV
func WriteSeries(w io.Writer, points []contracts.SeriesPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ds", "y"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := cw.Write([]string{
			p.Date.Format(calendar.ISODateLayout),
			strconv.FormatFloat(p.Value, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadHolidays reads a ds,holiday CSV (holidays_data.csv)
func ReadHolidays(r io.Reader) ([]contracts.Holiday, error) {
	records, err := readCSV(r, []string{"ds", "holiday"})
	if err != nil {
		return nil, fmt.Errorf("read holidays: %w", err)
	}

	holidays := make([]contracts.Holiday, 0, len(records))
	for i, rec := range records {
		d, err := parseSeriesDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("holidays row %d: %w", i+2, err)
		}
		holidays = append(holidays, contracts.Holiday{Date: d, Name: strings.TrimSpace(rec[1])})
	}
	return holidays, nil
}

// WriteHolidays writes a ds,holiday CSV
func WriteHolidays(w io.Writer, holidays []contracts.Holiday) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ds", "holiday"}); err != nil {
		return err
	}
	for _, h := range holidays {
		if err := cw.Write([]string{h.Date.Format(calendar.ISODateLayout), h.Name}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// readCSV checks the leading header columns and returns the data rows
func readCSV(r io.Reader, header []string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	got := records[0]
	if len(got) < len(header) {
		return nil, fmt.Errorf("header mismatch. Expected: %v, Got: %v", header, got)
	}
	for i, h := range header {
		if strings.TrimSpace(got[i]) != h {
			return nil, fmt.Errorf("header mismatch. Expected: %v, Got: %v", header, got)
		}
	}

	rows := records[1:]
	for i, rec := range rows {
		if len(rec) < len(header) {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", i+2, len(header), len(rec))
		}
	}
	return rows, nil
}

// parseSeriesDate accepts YYYY-MM-DD with an optional time part (pandas writes both)
func parseSeriesDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(calendar.ISODateLayout) {
		s = s[:len(calendar.ISODateLayout)]
	}
	d, err := time.Parse(calendar.ISODateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return d, nil
}
