package account

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when an operation is called with input
	// that would break the account invariants. State is left untouched.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientFunds is the ErrInvalidArgument raised when a withdrawal
	// exceeds the current balance.
	ErrInsufficientFunds = fmt.Errorf("%w: insufficient balance", ErrInvalidArgument)

	// ErrIllegalState signals a violated internal invariant, such as an empty
	// ledger on a constructed account. It is a programming error, not bad input.
	ErrIllegalState = errors.New("illegal state")
)
