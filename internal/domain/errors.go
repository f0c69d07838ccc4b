package domain

import "errors"

var (
	// ErrUnauthorized is returned when the caller lacks the required role
	// or ownership for an operation
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned for references to assets that were never minted
	ErrNotFound = errors.New("asset not found")

	// ErrNotForSale is returned when a buy is attempted with no active listing
	ErrNotForSale = errors.New("asset not for sale")

	// ErrInsufficientPayment is returned when the submitted payment is below
	// the listed price
	ErrInsufficientPayment = errors.New("insufficient payment")

	// ErrNothingToWithdraw is returned when a withdrawal is attempted with a
	// zero escrow balance
	ErrNothingToWithdraw = errors.New("nothing to withdraw")

	// ErrInvariantViolation indicates an internal consistency check failed.
	// Unreachable under correct component composition; treated as fatal.
	ErrInvariantViolation = errors.New("invariant violation")
)
