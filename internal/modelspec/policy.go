package modelspec

import "fmt"

// PriceFallback decides what a price lookup returns when the exact year-week is missing
type PriceFallback string

const (
	FallbackLastRow    PriceFallback = "last_row"    // last row for the pair in natural order
	FallbackLatestWeek PriceFallback = "latest_week" // row with the greatest year_week
	FallbackNone       PriceFallback = "none"        // miss is DataUnavailable
)

// ParsePriceFallback validates a fallback policy name
func ParsePriceFallback(s string) (PriceFallback, error) {
	switch p := PriceFallback(s); p {
	case FallbackLastRow, FallbackLatestWeek, FallbackNone:
		return p, nil
	}
	return "", fmt.Errorf("unknown price fallback %q (want last_row, latest_week or none)", s)
}

// UnknownPolicy decides how an unseen categorical value is handled at serving time
type UnknownPolicy string

const (
	UnknownFail     UnknownPolicy = "fail"      // reject the request (422)
	UnknownZeroFill UnknownPolicy = "zero_fill" // encode as 0
	UnknownSkip     UnknownPolicy = "skip"      // leave the value missing (NaN)
)

// ParseUnknownPolicy validates an unknown-category policy name
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch p := UnknownPolicy(s); p {
	case UnknownFail, UnknownZeroFill, UnknownSkip:
		return p, nil
	}
	return "", fmt.Errorf("unknown category policy %q (want fail, zero_fill or skip)", s)
}

// PriceFallbackPolicy returns the validated pricing policy
func (s *Spec) PriceFallbackPolicy() PriceFallback {
	p, _ := ParsePriceFallback(s.Pricing.Fallback)
	return p
}

// UnknownCategoryPolicy returns the validated encoding policy
func (s *Spec) UnknownCategoryPolicy() UnknownPolicy {
	p, _ := ParseUnknownPolicy(s.Encoding.UnknownPolicy)
	return p
}
