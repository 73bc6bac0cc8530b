package featurestore

import (
	"github.com/wonny/salescast/internal/contracts"
	"github.com/wonny/salescast/internal/modelspec"
)

type pairKey struct {
	itemID  string
	storeID string
}

type priceKey struct {
	pairKey
	yearWeek int
}

// PriceTable is the weekly price table indexed for lookup.
// Rows keep their natural order per pair; the first row for a key wins.
type PriceTable struct {
	exact    map[priceKey]float64
	byPair   map[pairKey][]contracts.PriceRow
	fallback modelspec.PriceFallback
	rows     int
}

// NewPriceTable indexes rows in their given order
func NewPriceTable(rows []contracts.PriceRow, fallback modelspec.PriceFallback) *PriceTable {
	t := &PriceTable{
		exact:    make(map[priceKey]float64, len(rows)),
		byPair:   make(map[pairKey][]contracts.PriceRow),
		fallback: fallback,
		rows:     len(rows),
	}

	for _, r := range rows {
		pk := pairKey{r.ItemID, r.StoreID}
		k := priceKey{pk, r.YearWeek}
		if _, ok := t.exact[k]; !ok {
			t.exact[k] = r.SellPrice
		}
		t.byPair[pk] = append(t.byPair[pk], r)
	}

	return t
}

// Lookup returns the sell price for (item, store, yearWeek).
// A miss applies the fallback policy; a pair with no rows at all is DataUnavailable.
func (t *PriceTable) Lookup(itemID, storeID string, yearWeek int) (float64, contracts.PriceSource, error) {
	pk := pairKey{itemID, storeID}
	if price, ok := t.exact[priceKey{pk, yearWeek}]; ok {
		return price, contracts.PriceExact, nil
	}

	rows := t.byPair[pk]
	if len(rows) == 0 {
		return 0, "", &contracts.DataUnavailableError{ItemID: itemID, StoreID: storeID, Reason: "no price history"}
	}

	switch t.fallback {
	case modelspec.FallbackLastRow:
		return rows[len(rows)-1].SellPrice, contracts.PriceFallback, nil
	case modelspec.FallbackLatestWeek:
		best := rows[0]
		for _, r := range rows[1:] {
			if r.YearWeek > best.YearWeek {
				best = r
			}
		}
		return best.SellPrice, contracts.PriceFallback, nil
	default:
		return 0, "", &contracts.DataUnavailableError{
			ItemID: itemID, StoreID: storeID,
			Reason: "no price for the requested week and fallback is disabled",
		}
	}
}

// Fallback returns the configured miss policy
func (t *PriceTable) Fallback() modelspec.PriceFallback {
	return t.fallback
}

// Len returns the number of rows indexed
func (t *PriceTable) Len() int {
	return t.rows
}
