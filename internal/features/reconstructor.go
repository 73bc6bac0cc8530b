// Package features rebuilds, at serving time, the feature vector the tree model was trained on.
package features

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/wonny/salescast/internal/calendar"
	"github.com/wonny/salescast/internal/contracts"
	"github.com/wonny/salescast/internal/encoding"
	"github.com/wonny/salescast/internal/featurestore"
	"github.com/wonny/salescast/internal/modelspec"
)

// Options fixes the conventions shared with the offline pipeline
type Options struct {
	Convention     calendar.YearWeekConvention
	Weekend        calendar.Weekend
	Policy         modelspec.UnknownPolicy
	Order          []string // training-time column order
	HistoryColumns []string // copied from the latest snapshot row
	DefaultEvent   string
}

// OptionsFromSpec derives Options from a validated model spec and the feature-order artifact
func OptionsFromSpec(spec *modelspec.Spec, order []string) (Options, error) {
	conv, err := calendar.ParseYearWeekConvention(spec.Calendar.YearWeek)
	if err != nil {
		return Options{}, err
	}
	weekend, err := calendar.ParseWeekend(spec.Calendar.WeekendDays)
	if err != nil {
		return Options{}, err
	}

	return Options{
		Convention:     conv,
		Weekend:        weekend,
		Policy:         spec.UnknownCategoryPolicy(),
		Order:          order,
		HistoryColumns: spec.Features.HistoryColumns(),
		DefaultEvent:   spec.Features.DefaultEvent,
	}, nil
}

// Reconstructor turns a PredictionRequest into the ordered model input.
// It only reads the snapshot and encoder bank, so one instance serves all requests.
type Reconstructor struct {
	snapshot *featurestore.Snapshot
	bank     *encoding.Bank
	opts     Options
	observer Observer
	logger   zerolog.Logger
}

// NewReconstructor checks up front that every column in the order can be produced
func NewReconstructor(snapshot *featurestore.Snapshot, bank *encoding.Bank, opts Options, observer Observer, logger zerolog.Logger) (*Reconstructor, error) {
	if len(opts.Order) == 0 {
		return nil, fmt.Errorf("empty feature order: %w", contracts.ErrFeatureMissing)
	}
	if opts.Weekend == nil {
		opts.Weekend = calendar.DefaultWeekend()
	}
	if opts.DefaultEvent == "" {
		opts.DefaultEvent = contracts.DefaultEvent
	}
	if observer == nil {
		observer = NopObserver{}
	}

	r := &Reconstructor{
		snapshot: snapshot,
		bank:     bank,
		opts:     opts,
		observer: observer,
		logger:   logger.With().Str("component", "features").Logger(),
	}

	produced := r.producible()
	for _, name := range opts.Order {
		if !produced[name] {
			return nil, fmt.Errorf("column %s: %w", name, contracts.ErrFeatureMissing)
		}
	}

	return r, nil
}

// Order returns the training-time column order
func (r *Reconstructor) Order() []string {
	return append([]string(nil), r.opts.Order...)
}

func (r *Reconstructor) producible() map[string]bool {
	produced := map[string]bool{
		contracts.ColYearWeek:  true,
		contracts.ColSellPrice: true,
		contracts.ColIsWeekend: true,
	}
	for _, c := range r.opts.HistoryColumns {
		produced[c] = true
	}
	for _, c := range categoricalColumns {
		if r.bank.Has(c) {
			produced[c] = true
		}
	}
	return produced
}

// categoricalColumns are the string columns derived from a request
var categoricalColumns = []string{
	contracts.ColID, contracts.ColItemID, contracts.ColDeptID, contracts.ColCatID,
	contracts.ColStoreID, contracts.ColStateID, contracts.ColEventName, contracts.ColEventType,
}

// Reconstruct builds the feature vector for one request
func (r *Reconstructor) Reconstruct(req contracts.PredictionRequest) (*contracts.Reconstruction, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.EventName == "" {
		req.EventName = r.opts.DefaultEvent
	}
	if req.EventType == "" {
		req.EventType = r.opts.DefaultEvent
	}

	date := calendar.Day(req.Date)
	yearWeek := r.opts.Convention.YearWeek(date)

	price, source, err := r.snapshot.Prices.Lookup(req.ItemID, req.StoreID, yearWeek)
	if err != nil {
		if contracts.IsDataUnavailable(err) {
			r.observer.DataUnavailable(req.ItemID, req.StoreID)
			r.logger.Warn().
				Str("item_id", req.ItemID).
				Str("store_id", req.StoreID).
				Int("year_week", yearWeek).
				Msg("no price history")
		}
		return nil, err
	}
	if source == contracts.PriceFallback {
		r.observer.PriceFallback(r.snapshot.Prices.Fallback())
		r.logger.Warn().
			Str("item_id", req.ItemID).
			Str("store_id", req.StoreID).
			Int("year_week", yearWeek).
			Str("policy", string(r.snapshot.Prices.Fallback())).
			Msg("price fallback")
	}

	values := map[string]float64{
		contracts.ColYearWeek:  float64(yearWeek),
		contracts.ColSellPrice: price,
		contracts.ColIsWeekend: boolToFloat(r.opts.Weekend.Contains(date)),
	}

	// history: cold start is all zeros, a present row copies its values (NaN when the column is absent)
	row, found := r.snapshot.History.Latest(req.ItemID, req.StoreID)
	if !found {
		r.observer.ColdStart(req.ItemID, req.StoreID)
		r.logger.Debug().Str("item_id", req.ItemID).Str("store_id", req.StoreID).Msg("cold start")
	}
	for _, col := range r.opts.HistoryColumns {
		if !found {
			values[col] = 0
			continue
		}
		v, ok := row.Features[col]
		if !ok {
			v = math.NaN()
		}
		values[col] = v
	}

	// categorical
	raw := Decompose(req)
	var unencoded []string
	for _, col := range categoricalColumns {
		if !r.bank.Has(col) {
			continue
		}
		code, err := r.bank.Encode(col, raw[col])
		if err == nil {
			values[col] = float64(code)
			continue
		}
		if !contracts.IsUnknownCategory(err) {
			return nil, err
		}

		r.observer.UnknownCategory(col, r.opts.Policy)
		r.logger.Warn().Str("column", col).Str("value", raw[col]).Str("policy", string(r.opts.Policy)).Msg("unknown category")

		switch r.opts.Policy {
		case modelspec.UnknownFail:
			return nil, fmt.Errorf("encode %s: %w", col, err)
		case modelspec.UnknownZeroFill:
			values[col] = 0
		default:
			values[col] = math.NaN()
		}
		unencoded = append(unencoded, col)
	}

	vector, err := assemble(r.opts.Order, values)
	if err != nil {
		return nil, err
	}

	return &contracts.Reconstruction{
		Vector:      vector,
		Categorical: raw,
		YearWeek:    yearWeek,
		SellPrice:   price,
		PriceSource: source,
		ColdStart:   !found,
		Unencoded:   unencoded,
	}, nil
}

// Decompose derives the categorical identifiers of a request.
// FOODS_1_001 / CA_1 -> dept FOODS_1, cat FOODS, state CA, id FOODS_1_001_CA_1_evaluation.
func Decompose(req contracts.PredictionRequest) map[string]string {
	itemParts := strings.Split(req.ItemID, "_")
	dept := itemParts[0]
	if len(itemParts) > 1 {
		dept = itemParts[0] + "_" + itemParts[1]
	}

	return map[string]string{
		contracts.ColID:        req.ItemID + "_" + req.StoreID + "_evaluation",
		contracts.ColItemID:    req.ItemID,
		contracts.ColDeptID:    dept,
		contracts.ColCatID:     itemParts[0],
		contracts.ColStoreID:   req.StoreID,
		contracts.ColStateID:   strings.Split(req.StoreID, "_")[0],
		contracts.ColEventName: req.EventName,
		contracts.ColEventType: req.EventType,
	}
}

func assemble(order []string, values map[string]float64) (contracts.FeatureVector, error) {
	vector := contracts.FeatureVector{
		Names:  make([]string, len(order)),
		Values: make([]float64, len(order)),
	}
	for i, name := range order {
		v, ok := values[name]
		if !ok {
			return contracts.FeatureVector{}, fmt.Errorf("column %s: %w", name, contracts.ErrFeatureMissing)
		}
		vector.Names[i] = name
		vector.Values[i] = v
	}
	return vector, nil
}

func validate(req contracts.PredictionRequest) error {
	if strings.TrimSpace(req.ItemID) == "" {
		return contracts.NewValidationError("item_id", "required")
	}
	if strings.TrimSpace(req.StoreID) == "" {
		return contracts.NewValidationError("store_id", "required")
	}
	if req.Date.IsZero() {
		return contracts.NewValidationError("date", "required (YYYY-MM-DD)")
	}
	return nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
