package domain

import "errors"

// Error taxonomy shared by every layer. Handlers map these to HTTP status;
// everything else wraps them with %w and context.
var (
	ErrInvalidRequest            = errors.New("invalid request")
	ErrNotFound                  = errors.New("not found")
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	ErrStorageUnavailable        = errors.New("storage unavailable")
)
