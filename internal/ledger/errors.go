package ledger

import "errors"

// Error kinds returned by ledger operations. Narrower errors in the
// service packages wrap these so callers can match with errors.Is.
var (
	ErrNotFound              = errors.New("not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrAlreadyRegistered     = errors.New("already registered")
	ErrAlreadyVerified       = errors.New("already verified")
	ErrListingNotActive      = errors.New("listing not active")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInsufficientPayment   = errors.New("insufficient payment")
	ErrInvalidArgument       = errors.New("invalid argument")
)
