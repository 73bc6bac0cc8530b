package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/salescast/internal/artifacts"
	"github.com/wonny/salescast/internal/encoding"
	"github.com/wonny/salescast/internal/featurestore"
	"github.com/wonny/salescast/internal/forecast"
	"github.com/wonny/salescast/internal/modelspec"
)

func newTestPipeline(t *testing.T) (*Pipeline, *artifacts.MemoryStore, *modelspec.Spec) {
	t.Helper()

	spec := modelspec.Default()
	store := artifacts.NewMemoryStore()

	records := salesFrame([]string{"FOODS_1_001", "HOBBIES_1_004"}, 60)
	records[10].EventName = "SuperBowl"
	records[10].EventType = "Sporting"

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, records, nil))
	require.NoError(t, store.Write(context.Background(), spec.Artifacts.SalesFrame, buf.Bytes()))

	sink := featurestore.NewArtifactSource(store, spec.Artifacts.Prices, spec.Artifacts.RecentHistory)
	return New(store, sink, spec, zerolog.Nop()), store, spec
}

func TestPipeline_EndToEnd(t *testing.T) {
	ctx := context.Background()
	p, store, spec := newTestPipeline(t)

	res, err := p.BuildFeatures(ctx)
	require.NoError(t, err)
	assert.Equal(t, 120, res.Rows)

	data, err := store.Read(ctx, spec.Artifacts.FeatureOrder)
	require.NoError(t, err)
	var order []string
	require.NoError(t, json.Unmarshal(data, &order))
	assert.Equal(t, spec.FeatureOrder(), order)

	res, err = p.ExportSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, spec.Export.Rows, res.Rows)

	res, err = p.BuildPrices(ctx)
	require.NoError(t, err)
	assert.Greater(t, res.Rows, 0)

	snap, err := featurestore.Load(ctx, featurestore.NewArtifactSource(store, spec.Artifacts.Prices, spec.Artifacts.RecentHistory), spec.PriceFallbackPolicy())
	require.NoError(t, err)
	row, ok := snap.History.Latest("FOODS_1_001", "CA_1")
	require.True(t, ok)
	assert.Equal(t, 52.0, row.Features["sales_lag_7"]) // last day is index 59
	assert.Equal(t, 2, snap.History.Pairs())

	_, err = p.FitEncoders(ctx)
	require.NoError(t, err)
	data, err = store.Read(ctx, spec.Artifacts.Encoders)
	require.NoError(t, err)
	bank, err := encoding.Parse(data)
	require.NoError(t, err)
	code, err := bank.Encode("event_name", "SuperBowl")
	require.NoError(t, err)
	assert.Equal(t, 1, code)

	res, err = p.PrepareSeries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60, res.Rows)
	assert.Equal(t, 1.0, res.Metrics["holidays"])

	res, err = p.TrainSeries(ctx, forecast.DefaultTrainOptions())
	require.NoError(t, err)
	assert.Contains(t, res.Metrics, "validation_rmse")
	assert.Contains(t, res.Metrics, "train_rmse")

	data, err = store.Read(ctx, spec.Artifacts.NationalModel)
	require.NoError(t, err)
	model, err := forecast.ParseAdditiveModel(data)
	require.NoError(t, err)
	assert.Equal(t, spec.Horizon.IntervalWidth, model.IntervalWidth)
}

func TestPipeline_MissingSalesFrame(t *testing.T) {
	spec := modelspec.Default()
	store := artifacts.NewMemoryStore()
	p := New(store, featurestore.NewArtifactSource(store, spec.Artifacts.Prices, spec.Artifacts.RecentHistory), spec, zerolog.Nop())

	_, err := p.BuildFeatures(context.Background())
	assert.ErrorIs(t, err, artifacts.ErrNotFound)
}
