package contracts

import "fmt"

// Column names shared by the offline pipeline and serving-time reconstruction
const (
	ColID        = "id"
	ColItemID    = "item_id"
	ColDeptID    = "dept_id"
	ColCatID     = "cat_id"
	ColStoreID   = "store_id"
	ColStateID   = "state_id"
	ColD         = "d"
	ColDate      = "date"
	ColYearWeek  = "wm_yr_wk"
	ColSales     = "sales"
	ColSellPrice = "sell_price"
	ColEventName = "event_name"
	ColEventType = "event_type"
	ColRevenue   = "sales_revenue"
	ColTrend     = "sales_trend"
	ColIsWeekend = "is_weekend"
)

// LagColumn is the name of a lag feature (sales_lag_7)
func LagColumn(lag int) string {
	return fmt.Sprintf("sales_lag_%d", lag)
}

// RollingColumn is the name of a rolling mean over a lag series (rolling_mean_7_28)
func RollingColumn(lag, window int) string {
	return fmt.Sprintf("rolling_mean_%d_%d", lag, window)
}
