package featurestore

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/salescast/internal/contracts"
	"github.com/wonny/salescast/internal/modelspec"
)

// Source yields the raw feature store rows
type Source interface {
	LoadPrices(ctx context.Context) ([]contracts.PriceRow, error)
	LoadHistory(ctx context.Context) ([]contracts.HistoryRow, error)
}

// Sink persists feature store rows produced by the offline jobs
type Sink interface {
	WritePrices(ctx context.Context, rows []contracts.PriceRow) error
	WriteHistory(ctx context.Context, rows []contracts.HistoryRow) error
}

// Snapshot is the read-only feature store used by serving.
// It is built once and never mutated, so concurrent readers need no locking.
type Snapshot struct {
	Prices   *PriceTable
	History  *History
	LoadedAt time.Time
}

// NewSnapshot indexes prices and history
func NewSnapshot(prices []contracts.PriceRow, history []contracts.HistoryRow, fallback modelspec.PriceFallback) *Snapshot {
	return &Snapshot{
		Prices:   NewPriceTable(prices, fallback),
		History:  NewHistory(history),
		LoadedAt: time.Now(),
	}
}

// Load reads both tables from src and builds a Snapshot
func Load(ctx context.Context, src Source, fallback modelspec.PriceFallback) (*Snapshot, error) {
	prices, err := src.LoadPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("load price table: %w", err)
	}

	history, err := src.LoadHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load recent history: %w", err)
	}

	return NewSnapshot(prices, history, fallback), nil
}
