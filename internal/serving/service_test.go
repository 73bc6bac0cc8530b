package serving

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/salescast/internal/artifacts"
	"github.com/wonny/salescast/internal/contracts"
	"github.com/wonny/salescast/internal/features"
	"github.com/wonny/salescast/internal/modelspec"
	"github.com/wonny/salescast/internal/serving/servingtest"
)

func loadService(t *testing.T, mutate func(*modelspec.Spec)) *Service {
	t.Helper()

	spec := modelspec.Default()
	if mutate != nil {
		mutate(spec)
	}
	store := artifacts.NewMemoryStore()
	servingtest.Seed(t, store, spec)

	svc, err := Load(context.Background(), Options{
		Spec:     spec,
		Store:    store,
		Ensemble: servingtest.Ensemble{Width: len(spec.FeatureOrder())},
		Observer: features.NopObserver{},
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	return svc
}

func TestLoad(t *testing.T) {
	svc := loadService(t, nil)

	info := svc.Info()
	assert.Equal(t, "m5_xgb", info.ModelID)
	assert.Equal(t, 18, info.Features)
	assert.Equal(t, 1, info.HistoryPairs)
	assert.Equal(t, 1, info.PriceRows)
	assert.Equal(t, 28, info.SeriesDays)
	assert.Len(t, info.SpecHash, 64)
}

func TestLoad_WidthMismatch(t *testing.T) {
	spec := modelspec.Default()
	store := artifacts.NewMemoryStore()
	servingtest.Seed(t, store, spec)

	_, err := Load(context.Background(), Options{
		Spec:     spec,
		Store:    store,
		Ensemble: servingtest.Ensemble{Width: 5},
		Logger:   zerolog.Nop(),
	})
	assert.ErrorIs(t, err, contracts.ErrFeatureWidth)
}

func TestLoad_MissingArtifact(t *testing.T) {
	spec := modelspec.Default()

	_, err := Load(context.Background(), Options{
		Spec:     spec,
		Store:    artifacts.NewMemoryStore(),
		Ensemble: servingtest.Ensemble{Width: 18},
		Logger:   zerolog.Nop(),
	})
	assert.ErrorIs(t, err, artifacts.ErrNotFound)
}

func TestPredictItem(t *testing.T) {
	svc := loadService(t, nil)

	got, err := svc.PredictItem(contracts.PredictionRequest{
		ItemID: "FOODS_1_001", StoreID: "CA_1", Date: servingtest.Day("2016-05-23"),
	})
	require.NoError(t, err)
	assert.False(t, got.Reconstruction.ColdStart)
	assert.Equal(t, 2.24, got.Reconstruction.SellPrice)

	var sum float64
	for _, v := range got.Reconstruction.Vector.Values {
		if !math.IsNaN(v) {
			sum += v
		}
	}
	assert.InDelta(t, sum, got.Prediction, 1e-9)
}

func TestPredictItem_DataUnavailable(t *testing.T) {
	svc := loadService(t, nil)

	_, err := svc.PredictItem(contracts.PredictionRequest{
		ItemID: "HOBBIES_1_001", StoreID: "CA_1", Date: servingtest.Day("2016-05-23"),
	})
	assert.True(t, contracts.IsDataUnavailable(err))
}

func TestPredictItem_FailPolicy(t *testing.T) {
	svc := loadService(t, func(s *modelspec.Spec) {
		s.Encoding.UnknownPolicy = string(modelspec.UnknownFail)
	})

	_, err := svc.PredictItem(contracts.PredictionRequest{
		ItemID: "FOODS_1_001", StoreID: "CA_1", Date: servingtest.Day("2016-05-23"),
		EventName: "Christmas", EventType: "Religious",
	})
	assert.True(t, contracts.IsUnknownCategory(err))
}

func TestForecastNational(t *testing.T) {
	svc := loadService(t, nil)

	points, err := svc.ForecastNational(servingtest.Day("2099-01-01"))
	require.NoError(t, err)
	require.Len(t, points, 8)
	assert.Equal(t, servingtest.Day("2099-01-01"), points[0].Date)
	assert.Equal(t, servingtest.Day("2099-01-08"), points[7].Date)

	revenue := RoundRevenue(points)
	assert.Len(t, revenue, 8)
	assert.Equal(t, 1234.57, revenue["01/01/2099"])
	assert.Equal(t, 1234.57, revenue["08/01/2099"])
}

func TestForecastNational_ZeroDate(t *testing.T) {
	svc := loadService(t, nil)

	_, err := svc.ForecastNational(servingtest.Day("0001-01-01"))
	assert.True(t, contracts.IsValidation(err))
}
