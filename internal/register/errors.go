package register

import "errors"

// Callers match these with errors.Is; returned errors wrap them with detail.
var (
	// ErrInvalidState means the register or transaction is in the wrong
	// lifecycle phase for the call.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidArgument means a required argument is missing or out of range.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInsufficientFunds means the tendered amount is below the total.
	// The transaction stays open and payment may be retried.
	ErrInsufficientFunds = errors.New("insufficient funds")
)
