package features

import "github.com/wonny/salescast/internal/modelspec"

// Observer is notified of every degraded path taken during reconstruction
type Observer interface {
	ColdStart(itemID, storeID string)
	PriceFallback(policy modelspec.PriceFallback)
	DataUnavailable(itemID, storeID string)
	UnknownCategory(column string, policy modelspec.UnknownPolicy)
}

// NopObserver ignores all events
type NopObserver struct{}

func (NopObserver) ColdStart(string, string)                        {}
func (NopObserver) PriceFallback(modelspec.PriceFallback)           {}
func (NopObserver) DataUnavailable(string, string)                  {}
func (NopObserver) UnknownCategory(string, modelspec.UnknownPolicy) {}
