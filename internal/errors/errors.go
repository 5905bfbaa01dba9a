package errors

import (
	"github.com/cockroachdb/errors"
)

// Sentinel kinds. Every error leaving a repository or service is marked with
// exactly one of these so the API layer can map it to a stable status code.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrVersionConflict    = errors.New("version conflict")
	ErrValidation         = errors.New("validation error")
	ErrInvalidOperation   = errors.New("invalid operation")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrHTTPClient         = errors.New("http client error")
	ErrDatabase           = errors.New("database error")
	ErrSystem             = errors.New("system error")
	ErrInternal           = errors.New("internal error")
	ErrRateLimited        = errors.New("rate limited")
	ErrBoundaryViolation  = errors.New("tenant boundary violation")
	ErrTenantTamper       = errors.New("tenant reassignment rejected")
	ErrInvalidTenant      = errors.New("invalid tenant reference")
	ErrFeatureUnavailable = errors.New("feature unavailable")
	ErrProvisioningFailed = errors.New("provisioning failed")
	ErrWebhookProcessing  = errors.New("webhook processing failed")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

func IsBoundaryViolation(err error) bool {
	return errors.Is(err, ErrBoundaryViolation)
}

func IsTenantTamper(err error) bool {
	return errors.Is(err, ErrTenantTamper)
}

func IsInvalidTenant(err error) bool {
	return errors.Is(err, ErrInvalidTenant)
}

func IsFeatureUnavailable(err error) bool {
	return errors.Is(err, ErrFeatureUnavailable)
}

func IsProvisioningFailed(err error) bool {
	return errors.Is(err, ErrProvisioningFailed)
}

// Is re-exports errors.Is so callers don't need both errors packages.
func Is(err, reference error) bool {
	return errors.Is(err, reference)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
