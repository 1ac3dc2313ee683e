package models

import "errors"

var (
	// ErrNotFound is returned when a referenced item or participant id does
	// not exist in the bill.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when an extraction payload is not a
	// collection of records, or when a manual edit carries negative or
	// out-of-range values.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTotalMismatch is reported by CheckTotal when the declared grand total
	// and the sum of line totals differ by more than one minor unit.
	ErrTotalMismatch = errors.New("line items do not add up to the receipt total")
)
