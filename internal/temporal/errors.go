package temporal

import (
	"errors"
	"fmt"
)

// Sentinel errors for key and timestamp validation.
var (
	// ErrMalformedKey indicates a key that does not decode as a
	// temporal key (missing separator or non-numeric suffix).
	ErrMalformedKey = errors.New("malformed temporal key")

	// ErrInvalidIdentity indicates a stable identity that cannot be
	// used (empty, or contains the reserved separator).
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrInvalidEffectiveDate indicates a timestamp that is not an
	// unambiguous absolute instant (zero value).
	ErrInvalidEffectiveDate = errors.New("invalid effective date")
)

// VetoCode categorizes admission vetoes raised by the write pipeline.
type VetoCode string

const (
	// VetoImmutableRevision indicates a write addressed directly to an
	// existing temporal key. Revisions are immutable once persisted.
	VetoImmutableRevision VetoCode = "IMMUTABLE_REVISION"

	// VetoRevisionKeyReused indicates a write whose target revision
	// key is already occupied.
	VetoRevisionKeyReused VetoCode = "REVISION_KEY_REUSED"

	// VetoInvalidStatus indicates an incoming write whose status is
	// not New.
	VetoInvalidStatus VetoCode = "INVALID_STATUS_FOR_ADMISSION"

	// VetoMissingEffectiveStart indicates an incoming write without an
	// effective start timestamp.
	VetoMissingEffectiveStart VetoCode = "MISSING_EFFECTIVE_START"
)

// VetoError is an admission rejection from phase 1 of the write
// pipeline. Vetoes are returned before any persistence occurs and are
// side-effect-free.
type VetoError struct {
	// Code identifies the rejection reason.
	Code VetoCode

	// Identity is the stable identity (or raw key) of the rejected write.
	Identity string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *VetoError) Error() string {
	if e.Identity != "" {
		return fmt.Sprintf("%s: %s (identity=%s)", e.Code, e.Message, e.Identity)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsVeto returns true if err is an admission veto, optionally matching
// a specific code. Uses errors.As to handle wrapped errors.
func IsVeto(err error, code VetoCode) bool {
	var ve *VetoError
	if errors.As(err, &ve) {
		return code == "" || ve.Code == code
	}
	return false
}

// NewVeto creates a VetoError.
func NewVeto(code VetoCode, identity, message string) *VetoError {
	return &VetoError{Code: code, Identity: identity, Message: message}
}
