package featurestore

import (
	"context"
	"fmt"

	"github.com/wonny/salescast/internal/artifacts"
	"github.com/wonny/salescast/internal/contracts"
)

// ArtifactSource reads and writes the parquet snapshot through an artifact store
type ArtifactSource struct {
	store      artifacts.Store
	pricesKey  string
	historyKey string
}

// NewArtifactSource binds the price and history keys of the model spec
func NewArtifactSource(store artifacts.Store, pricesKey, historyKey string) *ArtifactSource {
	return &ArtifactSource{store: store, pricesKey: pricesKey, historyKey: historyKey}
}

func (s *ArtifactSource) LoadPrices(ctx context.Context) ([]contracts.PriceRow, error) {
	data, err := s.store.Read(ctx, s.pricesKey)
	if err != nil {
		return nil, err
	}
	return DecodePrices(data)
}

func (s *ArtifactSource) LoadHistory(ctx context.Context) ([]contracts.HistoryRow, error) {
	data, err := s.store.Read(ctx, s.historyKey)
	if err != nil {
		return nil, err
	}
	return DecodeHistory(data)
}

func (s *ArtifactSource) WritePrices(ctx context.Context, rows []contracts.PriceRow) error {
	data, err := EncodePrices(rows)
	if err != nil {
		return err
	}
	if err := s.store.Write(ctx, s.pricesKey, data); err != nil {
		return fmt.Errorf("write %s: %w", s.pricesKey, err)
	}
	return nil
}

func (s *ArtifactSource) WriteHistory(ctx context.Context, rows []contracts.HistoryRow) error {
	data, err := EncodeHistory(rows)
	if err != nil {
		return err
	}
	if err := s.store.Write(ctx, s.historyKey, data); err != nil {
		return fmt.Errorf("write %s: %w", s.historyKey, err)
	}
	return nil
}
