package service

import (
	"errors"
	"fmt"
)

// Validation errors.
var (
	ErrInvalidSelectionCount = errors.New("invalid selection count")
	ErrInvalidNumber         = errors.New("invalid number")
	ErrDuplicateNumber       = errors.New("duplicate number")
	ErrInvalidWager          = errors.New("invalid wager amount")
)

// Business rule errors.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBettingClosed       = errors.New("betting closed")
	ErrUserNotFound        = errors.New("user not found")
)

// RejectionError is returned for a bet that was refused without any state
// change. Reason is safe to show to the player.
type RejectionError struct {
	Err    error
	Reason string
}

func (e *RejectionError) Error() string { return e.Reason }

func (e *RejectionError) Unwrap() error { return e.Err }

func reject(err error, format string, args ...any) error {
	return &RejectionError{Err: err, Reason: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is one of the malformed bet errors.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidSelectionCount) ||
		errors.Is(err, ErrInvalidNumber) ||
		errors.Is(err, ErrDuplicateNumber) ||
		errors.Is(err, ErrInvalidWager)
}
