package api

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidKeyEncoding indicates a malformed textual secret on import.
	// Never retryable.
	ErrInvalidKeyEncoding = errors.New("invalid key encoding")
	// ErrNoSigningKey indicates an authenticated operation was attempted on
	// a reference-only client. A local precondition failure, raised before
	// any network call.
	ErrNoSigningKey = errors.New("client holds no signing key")
	// ErrUnauthorized indicates the service rejected the signed envelope.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInternal indicates an unexpected response status. No partial state
	// is assumed.
	ErrInternal = errors.New("internal server error")
	// ErrServiceUnavailable indicates a balance or quote request the service
	// marked as an error.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrInsufficientFunds matches any *InsufficientFundsError via errors.Is.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// InsufficientFundsError is the namesake 402 outcome: an actionable business
// failure carrying the complete payment remedy, distinguishable from
// transport errors so callers can drive a top-up flow.
type InsufficientFundsError struct {
	PaymentRequired PaymentRequired
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: %d required", e.PaymentRequired.Total())
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}
