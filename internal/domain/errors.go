package domain

import "errors"

// RejectReason classifies why a record, reading, or store operation was
// rejected. Values double as metrics label values.
type RejectReason string

const (
	ReasonMalformedDate       RejectReason = "malformed_date"
	ReasonNegativeVolume      RejectReason = "negative_volume"
	ReasonOutlier             RejectReason = "outlier"
	ReasonInvalidCoordinates  RejectReason = "invalid_coordinates"
	ReasonInvalidDimensionKey RejectReason = "invalid_dimension_key"
	ReasonIdentityConflict    RejectReason = "identity_conflict"
	ReasonUnitMismatch        RejectReason = "unit_mismatch"
	ReasonTransientStore      RejectReason = "transient_store_failure"
	ReasonIntegrityViolation  RejectReason = "integrity_violation"
)

// Soft reports whether the reason is an audit warning that never affects
// the pipeline's exit status.
func (r RejectReason) Soft() bool {
	return r == ReasonOutlier || r == ReasonUnitMismatch
}

// Sentinel errors for the store boundary. Wrapped with context by callers;
// classified back to a RejectReason via errors.Is.
var (
	// ErrInvalidDimensionKey means a natural key was malformed (e.g. empty
	// state code) and no row was touched.
	ErrInvalidDimensionKey = errors.New("invalid dimension key")

	// ErrIdentityConflict means a known well arrived under a different
	// state or operator. The stored identity is kept; the record is not
	// auto-merged.
	ErrIdentityConflict = errors.New("well identity conflict")

	// ErrTransientStore marks a retryable store failure (lock timeout,
	// deadlock, serialization failure).
	ErrTransientStore = errors.New("transient store failure")

	// ErrIntegrityViolation marks a constraint failure not otherwise
	// classified. Fatal for the affected record only.
	ErrIntegrityViolation = errors.New("integrity violation")
)

// ClassifyError maps a store error to its reject reason.
func ClassifyError(err error) RejectReason {
	switch {
	case errors.Is(err, ErrInvalidDimensionKey):
		return ReasonInvalidDimensionKey
	case errors.Is(err, ErrIdentityConflict):
		return ReasonIdentityConflict
	case errors.Is(err, ErrTransientStore):
		return ReasonTransientStore
	default:
		return ReasonIntegrityViolation
	}
}
