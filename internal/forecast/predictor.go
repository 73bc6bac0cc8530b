package forecast

import (
	"bufio"
	"bytes"
	"fmt"
	"math"

	"github.com/dmitryikh/leaves"
	"github.com/rs/zerolog"

	"github.com/wonny/salescast/internal/contracts"
)

// Model formats accepted by LoadEnsemble
const (
	FormatXGBoost  = "xgboost"  // XGBoost binary model (save_model)
	FormatLightGBM = "lightgbm" // LightGBM text model
)

// Ensemble is the evaluated tree ensemble.
// Satisfied by *leaves.Ensemble.
type Ensemble interface {
	PredictSingle(fvals []float64, nEstimators int) float64
	NFeatures() int
}

// LoadEnsemble parses an exported tree ensemble
func LoadEnsemble(data []byte, format string) (*leaves.Ensemble, error) {
	reader := bufio.NewReader(bytes.NewReader(data))

	var (
		model *leaves.Ensemble
		err   error
	)
	switch format {
	case FormatXGBoost:
		model, err = leaves.XGEnsembleFromReader(reader, false)
	case FormatLightGBM:
		model, err = leaves.LGEnsembleFromReader(reader, false)
	default:
		return nil, fmt.Errorf("unknown model format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s ensemble: %w", format, err)
	}

	return model, nil
}

// Predictor 점 예측기 (stateless over a loaded ensemble)
type Predictor struct {
	ensemble Ensemble
	log      zerolog.Logger
}

// NewPredictor 새 예측기 생성
func NewPredictor(ensemble Ensemble, log zerolog.Logger) *Predictor {
	return &Predictor{
		ensemble: ensemble,
		log:      log.With().Str("component", "forecast.predictor").Logger(),
	}
}

// NFeatures returns the width the ensemble expects
func (p *Predictor) NFeatures() int {
	return p.ensemble.NFeatures()
}

// Predict evaluates all trees on the vector.
// The ensemble does not check widths itself, so a mismatch is rejected here.
func (p *Predictor) Predict(v contracts.FeatureVector) (float64, error) {
	if v.Len() != p.ensemble.NFeatures() {
		return 0, fmt.Errorf("got %d features, model expects %d: %w", v.Len(), p.ensemble.NFeatures(), contracts.ErrFeatureWidth)
	}

	y := p.ensemble.PredictSingle(v.Values, 0)
	if math.IsNaN(y) || math.IsInf(y, 0) {
		p.log.Error().Float64("prediction", y).Msg("non-finite prediction")
		return 0, fmt.Errorf("non-finite prediction %v", y)
	}

	return y, nil
}
