package model

import "errors"

// Business-rule violations. The store wraps these with identifying context
// (material, serial, allocation, quantities); callers match with errors.Is.
// They are never transient and are never retried.
var (
	ErrDuplicateSerialNumber   = errors.New("duplicate serial number")
	ErrWrongControlMode        = errors.New("wrong control mode")
	ErrSerialInUse             = errors.New("serial in use")
	ErrNegativeStockViolation  = errors.New("negative stock violation")
	ErrSerialUnavailable       = errors.New("serial unavailable")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrMissingModeMetadata     = errors.New("missing shipment mode metadata")
	ErrAllocationNotReversible = errors.New("allocation not reversible")
	ErrAlreadyReturned         = errors.New("allocation already returned")
	ErrMissingJustification    = errors.New("missing justification")
	ErrInvalidReturnedQuantity = errors.New("invalid returned quantity")
	ErrNotFound                = errors.New("not found")
)

// ErrStorageUnavailable is what callers see when the storage layer keeps
// failing after its bounded retries. Everything not recognized as a business
// error falls into this bucket at the API boundary.
var ErrStorageUnavailable = errors.New("storage unavailable")

var businessErrors = []error{
	ErrDuplicateSerialNumber,
	ErrWrongControlMode,
	ErrSerialInUse,
	ErrNegativeStockViolation,
	ErrSerialUnavailable,
	ErrInsufficientStock,
	ErrMissingModeMetadata,
	ErrAllocationNotReversible,
	ErrAlreadyReturned,
	ErrMissingJustification,
	ErrInvalidReturnedQuantity,
	ErrNotFound,
}

// IsBusinessError reports whether err is (or wraps) one of the typed
// business-rule violations above.
func IsBusinessError(err error) bool {
	for _, be := range businessErrors {
		if errors.Is(err, be) {
			return true
		}
	}
	return false
}
