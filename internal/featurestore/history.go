package featurestore

import (
	"github.com/wonny/salescast/internal/contracts"
)

// History holds the most recent snapshot row per (item, store).
// Equal dates keep the row that came first, matching a stable descending sort.
type History struct {
	latest map[pairKey]contracts.HistoryRow
	rows   int
}

// NewHistory precomputes the latest row for every pair
func NewHistory(rows []contracts.HistoryRow) *History {
	h := &History{latest: make(map[pairKey]contracts.HistoryRow), rows: len(rows)}
	for _, r := range rows {
		k := pairKey{r.ItemID, r.StoreID}
		if cur, ok := h.latest[k]; !ok || r.Date.After(cur.Date) {
			h.latest[k] = r
		}
	}
	return h
}

// Latest returns the most recent row for the pair; false means cold start
func (h *History) Latest(itemID, storeID string) (contracts.HistoryRow, bool) {
	r, ok := h.latest[pairKey{itemID, storeID}]
	return r, ok
}

// Pairs returns the number of distinct (item, store) pairs
func (h *History) Pairs() int {
	return len(h.latest)
}

// Len returns the number of rows the history was built from
func (h *History) Len() int {
	return h.rows
}
