// Package serving loads every artifact once at startup into an immutable Service.
package serving

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/wonny/salescast/internal/artifacts"
	"github.com/wonny/salescast/internal/calendar"
	"github.com/wonny/salescast/internal/contracts"
	"github.com/wonny/salescast/internal/encoding"
	"github.com/wonny/salescast/internal/featurestore"
	"github.com/wonny/salescast/internal/features"
	"github.com/wonny/salescast/internal/forecast"
	"github.com/wonny/salescast/internal/modelspec"
)

// ItemPrediction is a point prediction with the reconstruction behind it
type ItemPrediction struct {
	Prediction     float64                   `json:"prediction"`
	Reconstruction *contracts.Reconstruction `json:"reconstruction"`
}

// Info describes what the service loaded
type Info struct {
	ModelID      string    `json:"model_id"`
	Version      string    `json:"version"`
	SpecHash     string    `json:"spec_hash"`
	Features     int       `json:"features"`
	HistoryPairs int       `json:"history_pairs"`
	PriceRows    int       `json:"price_rows"`
	SeriesDays   int       `json:"series_days"`
	LoadedAt     time.Time `json:"loaded_at"`
}

// PointModel evaluates a feature vector
type PointModel interface {
	Predict(v contracts.FeatureVector) (float64, error)
}

// Service answers item and national requests from artifacts loaded at startup.
// Nothing in it changes after construction; handlers share one instance.
type Service struct {
	reconstructor *features.Reconstructor
	predictor     PointModel
	horizon       *forecast.Horizon
	info          Info
}

// New assembles a Service from already-built parts
func New(reconstructor *features.Reconstructor, predictor PointModel, horizon *forecast.Horizon, info Info) *Service {
	if info.LoadedAt.IsZero() {
		info.LoadedAt = time.Now()
	}
	return &Service{reconstructor: reconstructor, predictor: predictor, horizon: horizon, info: info}
}

// Options configures Load
type Options struct {
	Spec        *modelspec.Spec
	Store       artifacts.Store
	Source      featurestore.Source // nil reads the parquet snapshot from Store
	ModelFormat string
	Ensemble    forecast.Ensemble // nil parses the tree model artifact
	Observer    features.Observer
	Logger      zerolog.Logger
}

// Load reads and validates every artifact
func Load(ctx context.Context, opts Options) (*Service, error) {
	spec := opts.Spec
	log := opts.Logger.With().Str("component", "serving").Logger()
	keys := spec.Artifacts

	var order []string
	if err := readJSON(ctx, opts.Store, keys.FeatureOrder, &order); err != nil {
		return nil, err
	}

	data, err := opts.Store.Read(ctx, keys.Encoders)
	if err != nil {
		return nil, fmt.Errorf("read encoders: %w", err)
	}
	bank, err := encoding.Parse(data)
	if err != nil {
		return nil, err
	}

	ensemble := opts.Ensemble
	if ensemble == nil {
		data, err = opts.Store.Read(ctx, keys.TreeModel)
		if err != nil {
			return nil, fmt.Errorf("read tree model: %w", err)
		}
		loaded, err := forecast.LoadEnsemble(data, opts.ModelFormat)
		if err != nil {
			return nil, err
		}
		ensemble = loaded
	}
	if ensemble.NFeatures() != len(order) {
		return nil, fmt.Errorf("feature order has %d columns, model expects %d: %w", len(order), ensemble.NFeatures(), contracts.ErrFeatureWidth)
	}

	src := opts.Source
	if src == nil {
		src = featurestore.NewArtifactSource(opts.Store, keys.Prices, keys.RecentHistory)
	}
	snapshot, err := featurestore.Load(ctx, src, spec.PriceFallbackPolicy())
	if err != nil {
		return nil, err
	}

	data, err = opts.Store.Read(ctx, keys.NationalModel)
	if err != nil {
		return nil, fmt.Errorf("read national model: %w", err)
	}
	national, err := forecast.ParseAdditiveModel(data)
	if err != nil {
		return nil, err
	}

	data, err = opts.Store.Read(ctx, keys.NationalHistory)
	if err != nil {
		return nil, fmt.Errorf("read national history: %w", err)
	}
	series, err := forecast.ReadSeries(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	featureOpts, err := features.OptionsFromSpec(spec, order)
	if err != nil {
		return nil, err
	}
	reconstructor, err := features.NewReconstructor(snapshot, bank, featureOpts, opts.Observer, opts.Logger)
	if err != nil {
		return nil, err
	}

	hash, err := modelspec.Hash(spec)
	if err != nil {
		return nil, err
	}

	info := Info{
		ModelID:      spec.Meta.ModelID,
		Version:      spec.Meta.Version,
		SpecHash:     hash,
		Features:     len(order),
		HistoryPairs: snapshot.History.Pairs(),
		PriceRows:    snapshot.Prices.Len(),
		SeriesDays:   len(series),
		LoadedAt:     time.Now(),
	}

	log.Info().
		Str("model_id", info.ModelID).
		Str("spec_hash", info.SpecHash).
		Int("features", info.Features).
		Int("history_pairs", info.HistoryPairs).
		Int("price_rows", info.PriceRows).
		Int("series_days", info.SeriesDays).
		Msg("artifacts loaded")

	return New(
		reconstructor,
		forecast.NewPredictor(ensemble, opts.Logger),
		forecast.NewHorizon(national, series, spec.Horizon.Days),
		info,
	), nil
}

// PredictItem reconstructs the request's feature vector and evaluates the tree model
func (s *Service) PredictItem(req contracts.PredictionRequest) (*ItemPrediction, error) {
	rec, err := s.reconstructor.Reconstruct(req)
	if err != nil {
		return nil, err
	}

	y, err := s.predictor.Predict(rec.Vector)
	if err != nil {
		return nil, err
	}

	return &ItemPrediction{Prediction: y, Reconstruction: rec}, nil
}

// ForecastNational returns the national revenue window starting at target
func (s *Service) ForecastNational(target time.Time) ([]contracts.ForecastPoint, error) {
	if target.IsZero() {
		return nil, contracts.NewValidationError("date", "required (dd/mm/yyyy)")
	}
	return s.horizon.Forecast(target), nil
}

// RoundRevenue keys a forecast by dd/mm/yyyy with yhat rounded to 2 decimals
func RoundRevenue(points []contracts.ForecastPoint) map[string]float64 {
	out := make(map[string]float64, len(points))
	for _, p := range points {
		out[calendar.FormatNationalDate(p.Date)] = decimal.NewFromFloat(p.Yhat).Round(2).InexactFloat64()
	}
	return out
}

// Info returns load-time metadata
func (s *Service) Info() Info {
	return s.info
}

func readJSON(ctx context.Context, store artifacts.Store, key string, v interface{}) error {
	data, err := store.Read(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
