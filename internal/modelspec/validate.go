package modelspec

import (
	"fmt"
	"math"

	"github.com/wonny/salescast/internal/calendar"
	"github.com/wonny/salescast/internal/contracts"
)

// Validate checks all required constraints.
// 실패 시 error 반환 (프로그램 중단)
func Validate(spec *Spec) error {
	// === Meta ===
	if spec.Meta.ModelID == "" {
		return contracts.NewValidationError("meta.model_id", "required")
	}

	// === Calendar ===
	if _, err := calendar.ParseYearWeekConvention(spec.Calendar.YearWeek); err != nil {
		return contracts.NewValidationError("calendar.year_week", "%v", err)
	}
	if _, err := calendar.ParseWeekend(spec.Calendar.WeekendDays); err != nil {
		return contracts.NewValidationError("calendar.weekend_days", "%v", err)
	}

	// === Policies ===
	if _, err := ParsePriceFallback(spec.Pricing.Fallback); err != nil {
		return contracts.NewValidationError("pricing.fallback", "%v", err)
	}
	if _, err := ParseUnknownPolicy(spec.Encoding.UnknownPolicy); err != nil {
		return contracts.NewValidationError("encoding.unknown_policy", "%v", err)
	}
	if len(spec.Encoding.Columns) == 0 {
		return contracts.NewValidationError("encoding.columns", "at least one column required")
	}

	// === Features ===
	if err := validatePositiveUnique("features.lags", spec.Features.Lags); err != nil {
		return err
	}
	if err := validatePositiveUnique("features.windows", spec.Features.Windows); err != nil {
		return err
	}
	if len(spec.Features.TrendLags) != 2 {
		return contracts.NewValidationError("features.trend_lags", "exactly two lags required, got %d", len(spec.Features.TrendLags))
	}
	for i, lag := range spec.Features.TrendLags {
		if !containsInt(spec.Features.Lags, lag) {
			return contracts.NewValidationError(fmt.Sprintf("features.trend_lags[%d]", i), "lag %d is not in features.lags", lag)
		}
	}
	if spec.Features.DefaultEvent == "" {
		return contracts.NewValidationError("features.default_event", "required")
	}

	// === Export / Horizon ===
	if spec.Export.Rows <= 0 {
		return contracts.NewValidationError("export.rows", "must be > 0")
	}
	if spec.Export.ValidationDays < 0 {
		return contracts.NewValidationError("export.validation_days", "must be >= 0")
	}
	if spec.Horizon.Days <= 0 {
		return contracts.NewValidationError("horizon.days", "must be > 0")
	}
	w := spec.Horizon.IntervalWidth
	if math.IsNaN(w) || w <= 0 || w >= 1 {
		return contracts.NewValidationError("horizon.interval_width", "must be in (0, 1)")
	}

	// === Artifacts ===
	keys := map[string]string{
		"artifacts.tree_model":       spec.Artifacts.TreeModel,
		"artifacts.national_model":   spec.Artifacts.NationalModel,
		"artifacts.encoders":         spec.Artifacts.Encoders,
		"artifacts.recent_history":   spec.Artifacts.RecentHistory,
		"artifacts.prices":           spec.Artifacts.Prices,
		"artifacts.feature_order":    spec.Artifacts.FeatureOrder,
		"artifacts.national_history": spec.Artifacts.NationalHistory,
	}
	for field, key := range keys {
		if key == "" {
			return contracts.NewValidationError(field, "required")
		}
	}

	return nil
}

func validatePositiveUnique(field string, values []int) error {
	if len(values) == 0 {
		return contracts.NewValidationError(field, "at least one value required")
	}
	seen := make(map[int]bool, len(values))
	for _, v := range values {
		if v <= 0 {
			return contracts.NewValidationError(field, "must be > 0, got %d", v)
		}
		if seen[v] {
			return contracts.NewValidationError(field, "duplicate value %d", v)
		}
		seen[v] = true
	}
	return nil
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
