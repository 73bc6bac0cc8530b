// Package pipeline holds the offline jobs that produce the serving artifacts.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/salescast/internal/artifacts"
	"github.com/wonny/salescast/internal/calendar"
	"github.com/wonny/salescast/internal/contracts"
	"github.com/wonny/salescast/internal/featurestore"
	"github.com/wonny/salescast/internal/forecast"
	"github.com/wonny/salescast/internal/modelspec"
)

// Result summarizes one job run
type Result struct {
	Job      string             `json:"job"`
	Rows     int                `json:"rows"`
	Keys     []string           `json:"keys"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`
	Duration time.Duration      `json:"duration"`
}

// Pipeline runs the offline jobs against an artifact store.
// Snapshot and price tables go to sink (parquet artifacts or PostgreSQL).
type Pipeline struct {
	store artifacts.Store
	sink  featurestore.Sink
	spec  *modelspec.Spec
	log   zerolog.Logger
}

// New creates a pipeline
func New(store artifacts.Store, sink featurestore.Sink, spec *modelspec.Spec, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		store: store,
		sink:  sink,
		spec:  spec,
		log:   log.With().Str("component", "pipeline").Logger(),
	}
}

func (p *Pipeline) readFrame(ctx context.Context, key string) ([]contracts.SalesRecord, error) {
	data, err := p.store.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	records, err := ReadFrame(bytes.NewReader(data), p.spec.Features.DefaultEvent)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return records, nil
}

func (p *Pipeline) finish(res *Result, start time.Time) *Result {
	res.Duration = time.Since(start)
	p.log.Info().
		Str("job", res.Job).
		Int("rows", res.Rows).
		Strs("keys", res.Keys).
		Dur("duration", res.Duration).
		Msg("job completed")
	return res
}

// BuildFeatures adds lag/rolling/trend/is_weekend features to the sales frame
// and writes the feature frame plus the training column order.
func (p *Pipeline) BuildFeatures(ctx context.Context) (*Result, error) {
	start := time.Now()
	records, err := p.readFrame(ctx, p.spec.Artifacts.SalesFrame)
	if err != nil {
		return nil, err
	}

	weekend, err := calendar.ParseWeekend(p.spec.Calendar.WeekendDays)
	if err != nil {
		return nil, err
	}
	BuildFeatures(records, p.spec.Features, weekend)

	var buf bytes.Buffer
	if err := WriteFrame(&buf, records, p.spec.Features.HistoryColumns()); err != nil {
		return nil, fmt.Errorf("encode feature frame: %w", err)
	}
	if err := p.store.Write(ctx, p.spec.Artifacts.FeatureFrame, buf.Bytes()); err != nil {
		return nil, err
	}

	order, err := json.Marshal(p.spec.FeatureOrder())
	if err != nil {
		return nil, err
	}
	if err := p.store.Write(ctx, p.spec.Artifacts.FeatureOrder, order); err != nil {
		return nil, err
	}

	return p.finish(&Result{
		Job:  "features_build",
		Rows: len(records),
		Keys: []string{p.spec.Artifacts.FeatureFrame, p.spec.Artifacts.FeatureOrder},
	}, start), nil
}

// ExportSnapshot writes the recent history snapshot from the feature frame
func (p *Pipeline) ExportSnapshot(ctx context.Context) (*Result, error) {
	start := time.Now()
	records, err := p.readFrame(ctx, p.spec.Artifacts.FeatureFrame)
	if err != nil {
		return nil, err
	}

	rows := ExportSnapshot(records, p.spec.Export.Rows, p.spec.Features.HistoryColumns())
	if err := p.sink.WriteHistory(ctx, rows); err != nil {
		return nil, fmt.Errorf("write recent history: %w", err)
	}

	return p.finish(&Result{
		Job:  "features_export",
		Rows: len(rows),
		Keys: []string{p.spec.Artifacts.RecentHistory},
	}, start), nil
}

// BuildPrices writes the weekly price table
func (p *Pipeline) BuildPrices(ctx context.Context) (*Result, error) {
	start := time.Now()
	records, err := p.readFrame(ctx, p.spec.Artifacts.SalesFrame)
	if err != nil {
		return nil, err
	}

	conv, err := calendar.ParseYearWeekConvention(p.spec.Calendar.YearWeek)
	if err != nil {
		return nil, err
	}
	rows := BuildPrices(records, conv)
	if err := p.sink.WritePrices(ctx, rows); err != nil {
		return nil, fmt.Errorf("write price table: %w", err)
	}

	return p.finish(&Result{
		Job:  "prices_build",
		Rows: len(rows),
		Keys: []string{p.spec.Artifacts.Prices},
	}, start), nil
}

// FitEncoders writes the encoder table
func (p *Pipeline) FitEncoders(ctx context.Context) (*Result, error) {
	start := time.Now()
	records, err := p.readFrame(ctx, p.spec.Artifacts.SalesFrame)
	if err != nil {
		return nil, err
	}

	bank := FitEncoders(records, p.spec.Encoding.Columns)
	data, err := json.Marshal(bank)
	if err != nil {
		return nil, err
	}
	if err := p.store.Write(ctx, p.spec.Artifacts.Encoders, data); err != nil {
		return nil, err
	}

	return p.finish(&Result{
		Job:  "encoders_fit",
		Rows: len(records),
		Keys: []string{p.spec.Artifacts.Encoders},
	}, start), nil
}

// PrepareSeries writes the national revenue series and the holiday table
func (p *Pipeline) PrepareSeries(ctx context.Context) (*Result, error) {
	start := time.Now()
	records, err := p.readFrame(ctx, p.spec.Artifacts.SalesFrame)
	if err != nil {
		return nil, err
	}

	series, holidays := PrepareSeries(records, p.spec.Features.DefaultEvent)

	var buf bytes.Buffer
	if err := forecast.WriteSeries(&buf, series); err != nil {
		return nil, err
	}
	if err := p.store.Write(ctx, p.spec.Artifacts.NationalHistory, buf.Bytes()); err != nil {
		return nil, err
	}

	buf.Reset()
	if err := forecast.WriteHolidays(&buf, holidays); err != nil {
		return nil, err
	}
	if err := p.store.Write(ctx, p.spec.Artifacts.Holidays, buf.Bytes()); err != nil {
		return nil, err
	}

	return p.finish(&Result{
		Job:     "timeseries_prepare",
		Rows:    len(series),
		Keys:    []string{p.spec.Artifacts.NationalHistory, p.spec.Artifacts.Holidays},
		Metrics: map[string]float64{"holidays": float64(len(holidays))},
	}, start), nil
}

// TrainSeries fits the additive model. The trailing validation window is scored
// on a model fit without it; the written artifact is fit on the full series.
func (p *Pipeline) TrainSeries(ctx context.Context, opts forecast.TrainOptions) (*Result, error) {
	start := time.Now()

	data, err := p.store.Read(ctx, p.spec.Artifacts.NationalHistory)
	if err != nil {
		return nil, err
	}
	series, err := forecast.ReadSeries(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var holidays []contracts.Holiday
	if data, err = p.store.Read(ctx, p.spec.Artifacts.Holidays); err == nil {
		if holidays, err = forecast.ReadHolidays(bytes.NewReader(data)); err != nil {
			return nil, err
		}
	} else {
		p.log.Warn().Err(err).Str("key", p.spec.Artifacts.Holidays).Msg("training without holidays")
	}

	opts.IntervalWidth = p.spec.Horizon.IntervalWidth
	metrics := map[string]float64{}

	if days := p.spec.Export.ValidationDays; days > 0 {
		train, val := forecast.SplitSeries(series, days)
		if len(train) >= 2 && len(val) > 0 {
			model, err := forecast.Train(train, holidays, opts)
			if err != nil {
				return nil, fmt.Errorf("fit validation model: %w", err)
			}
			metrics["validation_rmse"] = forecast.RMSE(model, val)
			p.log.Info().Int("days", days).Float64("rmse", metrics["validation_rmse"]).Msg("validation")
		}
	}

	model, err := forecast.Train(series, holidays, opts)
	if err != nil {
		return nil, err
	}
	metrics["train_rmse"] = forecast.RMSE(model, series)

	out, err := json.Marshal(model)
	if err != nil {
		return nil, err
	}
	if err := p.store.Write(ctx, p.spec.Artifacts.NationalModel, out); err != nil {
		return nil, err
	}

	return p.finish(&Result{
		Job:     "timeseries_train",
		Rows:    len(series),
		Keys:    []string{p.spec.Artifacts.NationalModel},
		Metrics: metrics,
	}, start), nil
}
