package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/salescast/internal/calendar"
	"github.com/wonny/salescast/internal/features"
	"github.com/wonny/salescast/internal/report"
	"github.com/wonny/salescast/internal/serving"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "시계열 예측",
}

var forecastNationalCmd = &cobra.Command{
	Use:   "national",
	Short: "전국 매출 8일 예측 (target ~ target+7)",
	Long: `GET /sales/national 과 같은 결과를 출력합니다. --xlsx 로 엑셀 보고서를 저장합니다.

Example:
  go run ./cmd/salescast forecast national --date 01/01/2099
  go run ./cmd/salescast forecast national --date 01/01/2099 --xlsx national.xlsx`,
	RunE: runForecastNational,
}

var (
	forecastDate string
	forecastXLSX string
)

func init() {
	rootCmd.AddCommand(forecastCmd)
	forecastCmd.AddCommand(forecastNationalCmd)

	forecastNationalCmd.Flags().StringVar(&forecastDate, "date", "", "target date (dd/mm/yyyy)")
	forecastNationalCmd.Flags().StringVar(&forecastXLSX, "xlsx", "", "엑셀 보고서 경로")
	_ = forecastNationalCmd.MarkFlagRequired("date")
}

func runForecastNational(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	target, err := calendar.ParseNationalDate("date", forecastDate)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	svc, err := a.service(ctx, features.NopObserver{})
	if err != nil {
		return fmt.Errorf("load artifacts: %w", err)
	}

	points, err := svc.ForecastNational(target)
	if err != nil {
		return err
	}

	if forecastXLSX == "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(serving.RoundRevenue(points))
	}

	f, err := os.Create(forecastXLSX)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	info := svc.Info()
	if err := report.WriteNational(f, points, report.Meta{
		ModelID:  info.ModelID,
		SpecHash: info.SpecHash,
		Target:   calendar.FormatNationalDate(target),
	}); err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("Report written to %s (%d days)", forecastXLSX, len(points)))
	return nil
}
