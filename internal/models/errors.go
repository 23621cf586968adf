package models

import "errors"

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is returned when a record's status forbids the requested operation.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidInput is returned when a request fails validation before any write.
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden is returned when the caller may not act on the record.
	ErrForbidden = errors.New("forbidden")
)
