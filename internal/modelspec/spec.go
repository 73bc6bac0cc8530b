package modelspec

import (
	"github.com/wonny/salescast/internal/contracts"
)

// Spec is the model contract shared by the offline jobs and the serving layer
type Spec struct {
	Meta      Meta         `yaml:"meta" json:"meta"`
	Calendar  CalendarSpec `yaml:"calendar" json:"calendar"`
	Pricing   PricingSpec  `yaml:"pricing" json:"pricing"`
	Encoding  EncodingSpec `yaml:"encoding" json:"encoding"`
	Features  FeatureSpec  `yaml:"features" json:"features"`
	Export    ExportSpec   `yaml:"export" json:"export"`
	Horizon   HorizonSpec  `yaml:"horizon" json:"horizon"`
	Artifacts ArtifactKeys `yaml:"artifacts" json:"artifacts"`
}

// Meta 메타 정보
type Meta struct {
	ModelID string `yaml:"model_id" json:"model_id"`
	Version string `yaml:"version" json:"version"`
}

type CalendarSpec struct {
	YearWeek    string   `yaml:"year_week" json:"year_week"`       // walmart_fiscal, calendar_iso, iso
	WeekendDays []string `yaml:"weekend_days" json:"weekend_days"` // exactly two
}

type PricingSpec struct {
	Fallback string `yaml:"fallback" json:"fallback"` // last_row, latest_week, none
}

type EncodingSpec struct {
	UnknownPolicy string   `yaml:"unknown_policy" json:"unknown_policy"` // fail, zero_fill, skip
	Columns       []string `yaml:"columns" json:"columns"`               // columns fit by `encoders fit`
}

type FeatureSpec struct {
	Lags         []int  `yaml:"lags" json:"lags"`
	Windows      []int  `yaml:"windows" json:"windows"`
	TrendLags    []int  `yaml:"trend_lags" json:"trend_lags"` // sales_trend = lag[0] - lag[1]
	DefaultEvent string `yaml:"default_event" json:"default_event"`
}

type ExportSpec struct {
	Rows           int `yaml:"rows" json:"rows"`                       // recent history rows kept
	ValidationDays int `yaml:"validation_days" json:"validation_days"` // trailing days held out when training
}

type HorizonSpec struct {
	Days          int     `yaml:"days" json:"days"`                     // points after the target date
	IntervalWidth float64 `yaml:"interval_width" json:"interval_width"` // e.g. 0.8
}

// ArtifactKeys are the artifact store keys consumed at startup
type ArtifactKeys struct {
	TreeModel       string `yaml:"tree_model" json:"tree_model"`
	NationalModel   string `yaml:"national_model" json:"national_model"`
	Encoders        string `yaml:"encoders" json:"encoders"`
	RecentHistory   string `yaml:"recent_history" json:"recent_history"`
	Prices          string `yaml:"prices" json:"prices"`
	FeatureOrder    string `yaml:"feature_order" json:"feature_order"`
	NationalHistory string `yaml:"national_history" json:"national_history"`
	Holidays        string `yaml:"holidays" json:"holidays"`
	SalesFrame      string `yaml:"sales_frame" json:"sales_frame"`
	FeatureFrame    string `yaml:"feature_frame" json:"feature_frame"`
}

// Default returns the spec matching the original M5 training setup
func Default() *Spec {
	return &Spec{
		Meta: Meta{ModelID: "m5_xgb", Version: "1"},
		Calendar: CalendarSpec{
			YearWeek:    "walmart_fiscal",
			WeekendDays: []string{"saturday", "sunday"},
		},
		Pricing: PricingSpec{Fallback: "last_row"},
		Encoding: EncodingSpec{
			UnknownPolicy: "skip",
			Columns: []string{
				contracts.ColID, contracts.ColItemID, contracts.ColDeptID, contracts.ColCatID,
				contracts.ColStoreID, contracts.ColStateID, contracts.ColEventName, contracts.ColEventType,
			},
		},
		Features: FeatureSpec{
			Lags:         []int{7, 28},
			Windows:      []int{7, 28},
			TrendLags:    []int{7, 28},
			DefaultEvent: contracts.DefaultEvent,
		},
		Export:  ExportSpec{Rows: 90, ValidationDays: 28},
		Horizon: HorizonSpec{Days: 7, IntervalWidth: 0.8},
		Artifacts: ArtifactKeys{
			TreeModel:       "xgb_model.model",
			NationalModel:   "national_model.json",
			Encoders:        "encoders.json",
			RecentHistory:   "recent_data.parquet",
			Prices:          "weekly_sell_price.parquet",
			FeatureOrder:    "feature_order.json",
			NationalHistory: "prophet_ready_data.csv",
			Holidays:        "holidays_data.csv",
			SalesFrame:      "sales_frame.csv",
			FeatureFrame:    "feature_frame.csv",
		},
	}
}

// HistoryColumns lists the lag, rolling-mean and trend columns in training order
func (f FeatureSpec) HistoryColumns() []string {
	cols := make([]string, 0, len(f.Lags)*(len(f.Windows)+1)+1)
	for _, lag := range f.Lags {
		cols = append(cols, contracts.LagColumn(lag))
		for _, w := range f.Windows {
			cols = append(cols, contracts.RollingColumn(lag, w))
		}
	}
	return append(cols, contracts.ColTrend)
}

// FeatureOrder is the column order handed to the trainer by `features build`
func (s *Spec) FeatureOrder() []string {
	order := []string{
		contracts.ColID, contracts.ColItemID, contracts.ColDeptID, contracts.ColCatID,
		contracts.ColStoreID, contracts.ColStateID, contracts.ColYearWeek,
		contracts.ColEventName, contracts.ColEventType, contracts.ColSellPrice,
	}
	order = append(order, s.Features.HistoryColumns()...)
	return append(order, contracts.ColIsWeekend)
}
