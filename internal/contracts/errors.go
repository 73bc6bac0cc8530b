package contracts

import (
	"errors"
	"fmt"
)

// ValidationError is a malformed request input (400)
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError
func NewValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// DataUnavailableError means no pricing history exists at all for an item/store pair
type DataUnavailableError struct {
	ItemID  string
	StoreID string
	Reason  string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("data unavailable for item %s at store %s: %s", e.ItemID, e.StoreID, e.Reason)
}

// UnknownCategoryError is a categorical value never seen when the encoder was fit
type UnknownCategoryError struct {
	Column string
	Value  string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q for column %s", e.Value, e.Column)
}

var (
	// ErrFeatureMissing: a column in the training order could not be produced
	ErrFeatureMissing = errors.New("feature missing from reconstruction")

	// ErrFeatureWidth: vector width does not match the model
	ErrFeatureWidth = errors.New("feature vector width does not match model")
)

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsDataUnavailable reports whether err is (or wraps) a DataUnavailableError
func IsDataUnavailable(err error) bool {
	var d *DataUnavailableError
	return errors.As(err, &d)
}

// IsUnknownCategory reports whether err is (or wraps) an UnknownCategoryError
func IsUnknownCategory(err error) bool {
	var u *UnknownCategoryError
	return errors.As(err, &u)
}
