package shared

import (
	"errors"

	"github.com/odyssey-erp/storeledger/internal/ledger"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage converts an error into text that can be shown on a form.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ledger.ErrInsufficientStock):
		return "Insufficient stock for this sale"
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, ErrNotFound):
		return "The selected record no longer exists"
	case errors.Is(err, ledger.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, ErrIdempotencyConflict):
		return "This form was already submitted"
	default:
		return "Something went wrong, please try again"
	}
}
