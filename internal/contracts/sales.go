package contracts

import (
	"math"
	"time"
)

// DefaultEvent is the event name/type used when a request carries none
const DefaultEvent = "NoEvent"

// PredictionRequest is a single item/store/date point prediction request
type PredictionRequest struct {
	ItemID    string    `json:"item_id"`
	StoreID   string    `json:"store_id"`
	Date      time.Time `json:"date"`
	EventName string    `json:"event_name"`
	EventType string    `json:"event_type"`
}

// WithDefaults fills empty event fields with DefaultEvent
func (r PredictionRequest) WithDefaults() PredictionRequest {
	if r.EventName == "" {
		r.EventName = DefaultEvent
	}
	if r.EventType == "" {
		r.EventType = DefaultEvent
	}
	return r
}

// PriceRow is one row of the weekly price table
type PriceRow struct {
	ItemID    string  `json:"item_id"`
	StoreID   string  `json:"store_id"`
	YearWeek  int     `json:"year_week"`
	SellPrice float64 `json:"sell_price"`
}

// HistoryRow is one row of the recent history snapshot.
// Features holds sales_lag_*, rolling_mean_*_* and sales_trend by column name.
type HistoryRow struct {
	ItemID   string             `json:"item_id"`
	StoreID  string             `json:"store_id"`
	Date     time.Time          `json:"date"`
	Sales    float64            `json:"sales"`
	Features map[string]float64 `json:"features"`
}

// FeatureVector is the ordered model input.
// Names and Values are parallel and follow the training-time column order.
type FeatureVector struct {
	Names  []string  `json:"names"`
	Values []float64 `json:"values"`
}

// Value returns the value of a named feature
func (v FeatureVector) Value(name string) (float64, bool) {
	for i, n := range v.Names {
		if n == name {
			return v.Values[i], true
		}
	}
	return math.NaN(), false
}

// Len returns the vector width
func (v FeatureVector) Len() int {
	return len(v.Values)
}

// PriceSource tells where the sell price of a reconstruction came from
type PriceSource string

const (
	PriceExact    PriceSource = "exact"
	PriceFallback PriceSource = "fallback"
)

// Reconstruction is a feature vector plus the degraded paths taken to build it
type Reconstruction struct {
	Vector      FeatureVector     `json:"vector"`
	Categorical map[string]string `json:"categorical"` // raw string values before encoding
	YearWeek    int               `json:"year_week"`
	SellPrice   float64           `json:"sell_price"`
	PriceSource PriceSource       `json:"price_source"`
	ColdStart   bool              `json:"cold_start"`
	Unencoded   []string          `json:"unencoded,omitempty"` // columns hit by an unknown category
}

// ForecastPoint is one dated row of a horizon forecast
type ForecastPoint struct {
	Date  time.Time `json:"date"`
	Yhat  float64   `json:"yhat"`
	Lower float64   `json:"yhat_lower"`
	Upper float64   `json:"yhat_upper"`
}

// SalesRecord is one row of the long-format daily sales frame used offline
type SalesRecord struct {
	ID           string
	ItemID       string
	DeptID       string
	CatID        string
	StoreID      string
	StateID      string
	D            string
	Date         time.Time
	WmYrWk       int
	Sales        float64
	SellPrice    float64 // NaN when unpriced
	EventName    string
	EventType    string
	SalesRevenue float64 // NaN when the column is absent

	// Features is filled by the feature build job
	Features  map[string]float64
	IsWeekend bool
}

// Revenue returns sales_revenue, or sales*sell_price when it was not supplied
func (r SalesRecord) Revenue() float64 {
	if !math.IsNaN(r.SalesRevenue) {
		return r.SalesRevenue
	}
	if math.IsNaN(r.SellPrice) {
		return 0
	}
	return r.Sales * r.SellPrice
}

// SeriesPoint is one day of the national revenue series
type SeriesPoint struct {
	Date  time.Time `json:"ds"`
	Value float64   `json:"y"`
}

// Holiday is a dated named event used by the additive model
type Holiday struct {
	Date time.Time `json:"ds"`
	Name string    `json:"holiday"`
}
