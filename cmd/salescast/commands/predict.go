package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/salescast/internal/calendar"
	"github.com/wonny/salescast/internal/contracts"
	"github.com/wonny/salescast/internal/features"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "단건 예측 (API와 동일한 경로)",
}

var predictItemCmd = &cobra.Command{
	Use:   "item",
	Short: "아이템/매장/날짜 판매량 예측",
	Long: `GET /sales/stores/items 와 같은 재구성 + 예측 경로를 CLI에서 실행합니다.

Example:
  go run ./cmd/salescast predict item --item FOODS_1_001 --store CA_1 --date 2016-05-23
  go run ./cmd/salescast predict item --item FOODS_1_001 --store CA_1 --date 2016-05-23 --explain`,
	RunE: runPredictItem,
}

var (
	predictItem      string
	predictStore     string
	predictDate      string
	predictEventName string
	predictEventType string
	predictExplain   bool
)

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.AddCommand(predictItemCmd)

	predictItemCmd.Flags().StringVar(&predictItem, "item", "", "item_id (e.g. FOODS_1_001)")
	predictItemCmd.Flags().StringVar(&predictStore, "store", "", "store_id (e.g. CA_1)")
	predictItemCmd.Flags().StringVar(&predictDate, "date", "", "date (YYYY-MM-DD)")
	predictItemCmd.Flags().StringVar(&predictEventName, "event-name", "", "event_name (default NoEvent)")
	predictItemCmd.Flags().StringVar(&predictEventType, "event-type", "", "event_type (default NoEvent)")
	predictItemCmd.Flags().BoolVar(&predictExplain, "explain", false, "피처 벡터와 재구성 정보 출력")
	_ = predictItemCmd.MarkFlagRequired("item")
	_ = predictItemCmd.MarkFlagRequired("store")
	_ = predictItemCmd.MarkFlagRequired("date")
}

func runPredictItem(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	date, err := calendar.ParseISODate("date", predictDate)
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

	result, err := svc.PredictItem(contracts.PredictionRequest{
		ItemID:    predictItem,
		StoreID:   predictStore,
		Date:      date,
		EventName: predictEventName,
		EventType: predictEventType,
	})
	if err != nil {
		PrintError(err.Error())
		return err
	}

	if !predictExplain {
		return json.NewEncoder(os.Stdout).Encode(map[string]float64{"prediction": result.Prediction})
	}

	rec := result.Reconstruction
	PrintJobHeader("Item Prediction", map[string]string{
		"item":   predictItem,
		"store":  predictStore,
		"date":   predictDate,
		"week":   fmt.Sprintf("%d", rec.YearWeek),
		"price":  fmt.Sprintf("%.2f (%s)", rec.SellPrice, rec.PriceSource),
		"cold":   fmt.Sprintf("%t", rec.ColdStart),
		"result": fmt.Sprintf("%.4f", result.Prediction),
	})

	widths := []int{22, 14}
	PrintTableHeader([]string{"feature", "value"}, widths)
	for i, name := range rec.Vector.Names {
		PrintTableRow([]string{name, fmt.Sprintf("%g", rec.Vector.Values[i])}, widths)
	}
	if len(rec.Unencoded) > 0 {
		fmt.Printf("\n⚠️  unknown categories: %v\n", rec.Unencoded)
	}
	return nil
}
