package engine

import (
	"errors"

	"github.com/Adam-Cosner/monitord/internal/subscription"
)

// Sentinel errors for the control surface. Code maps them onto the wire
// status names.
var (
	ErrInvalidType          = errors.New("unknown or disabled category")
	ErrInvalidInterval      = errors.New("invalid update interval")
	ErrInvalidFilter        = errors.New("filter does not fit the subscription")
	ErrResourceNotAvailable = errors.New("subscription limit reached")
	ErrNotFound             = errors.New("no such subscription")
	ErrInternal             = errors.New("internal error")
)

// Status codes of the subscription service surface.
const (
	StatusSuccess              = "SUCCESS"
	StatusInvalidType          = "INVALID_TYPE"
	StatusInvalidInterval      = "INVALID_INTERVAL"
	StatusInvalidFilter        = "INVALID_FILTER"
	StatusResourceNotAvailable = "RESOURCE_NOT_AVAILABLE"
	StatusInternalError        = "INTERNAL_ERROR"
)

// Code translates a control-surface error into its wire status.
func Code(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrInvalidInterval):
		return StatusInvalidInterval
	case errors.Is(err, ErrInvalidFilter), errors.Is(err, subscription.ErrFilterMismatch):
		return StatusInvalidFilter
	case errors.Is(err, ErrResourceNotAvailable), errors.Is(err, subscription.ErrCapacity):
		return StatusResourceNotAvailable
	case errors.Is(err, ErrInvalidType), errors.Is(err, ErrNotFound), errors.Is(err, subscription.ErrNotFound):
		return StatusInvalidType
	default:
		return StatusInternalError
	}
}
