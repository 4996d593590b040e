package exchange

import "errors"

// Every operation either completes in full or fails with one of these
// sentinel errors and zero state change. Callers match with errors.Is;
// wrapped messages carry the operation context.
var (
	// ErrInsufficientBalance is returned when a debit or a solvency check
	// finds less balance than the operation requires.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUnknownAsset is returned for symbols that are neither the native
	// currency nor present in the asset registry.
	ErrUnknownAsset = errors.New("unknown asset")

	// ErrUnauthorized is returned when a non-admin caller invokes an
	// admin-only operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidArgument is returned for non-positive amounts or prices.
	ErrInvalidArgument = errors.New("invalid argument")
)
