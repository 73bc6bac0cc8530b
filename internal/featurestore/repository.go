package featurestore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/salescast/internal/contracts"
)

// Repository is the PostgreSQL feature store (feature_store schema).
// seq keeps the natural row order the price fallback depends on.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository 새 저장소 생성
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) LoadPrices(ctx context.Context) ([]contracts.PriceRow, error) {
	query := `
		SELECT item_id, store_id, year_week, sell_price
		FROM feature_store.weekly_prices
		ORDER BY seq`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query weekly prices: %w", err)
	}
	defer rows.Close()

	var prices []contracts.PriceRow
	for rows.Next() {
		var p contracts.PriceRow
		if err := rows.Scan(&p.ItemID, &p.StoreID, &p.YearWeek, &p.SellPrice); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}

	return prices, rows.Err()
}

func (r *Repository) LoadHistory(ctx context.Context) ([]contracts.HistoryRow, error) {
	query := `
		SELECT item_id, store_id, date, sales, features
		FROM feature_store.recent_history
		ORDER BY seq`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query recent history: %w", err)
	}
	defer rows.Close()

	var history []contracts.HistoryRow
	for rows.Next() {
		var (
			h   contracts.HistoryRow
			raw []byte
		)
		if err := rows.Scan(&h.ItemID, &h.StoreID, &h.Date, &h.Sales, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &h.Features); err != nil {
			return nil, fmt.Errorf("decode features for %s/%s: %w", h.ItemID, h.StoreID, err)
		}
		history = append(history, h)
	}

	return history, rows.Err()
}

// WritePrices replaces the price table in one transaction
func (r *Repository) WritePrices(ctx context.Context, prices []contracts.PriceRow) error {
	return r.replace(ctx, "feature_store.weekly_prices", len(prices), func(batch *pgx.Batch) error {
		query := `
			INSERT INTO feature_store.weekly_prices (seq, item_id, store_id, year_week, sell_price)
			VALUES ($1, $2, $3, $4, $5)`
		for i, p := range prices {
			batch.Queue(query, i, p.ItemID, p.StoreID, p.YearWeek, p.SellPrice)
		}
		return nil
	})
}

// WriteHistory replaces the recent history snapshot in one transaction.
// NaN features are omitted from the JSONB document and read back as missing.
func (r *Repository) WriteHistory(ctx context.Context, history []contracts.HistoryRow) error {
	return r.replace(ctx, "feature_store.recent_history", len(history), func(batch *pgx.Batch) error {
		query := `
			INSERT INTO feature_store.recent_history (seq, item_id, store_id, date, sales, features)
			VALUES ($1, $2, $3, $4, $5, $6)`
		for i, h := range history {
			doc, err := json.Marshal(finiteFeatures(h.Features))
			if err != nil {
				return fmt.Errorf("encode features for %s/%s: %w", h.ItemID, h.StoreID, err)
			}
			batch.Queue(query, i, h.ItemID, h.StoreID, h.Date, h.Sales, string(doc))
		}
		return nil
	})
}

func (r *Repository) replace(ctx context.Context, table string, n int, fill func(*pgx.Batch) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	batch := &pgx.Batch{}
	if err := fill(batch); err != nil {
		return err
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	if err := br.Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func finiteFeatures(features map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(features))
	for k, v := range features {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}
