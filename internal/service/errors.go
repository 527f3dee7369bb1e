package service

import "errors"

var (
	// ErrInvalidInput covers missing identifiers and non-positive
	// quantities; nothing is mutated when it is returned.
	ErrInvalidInput = errors.New("invalid data provided")

	// ErrUserRequired is the fetch-path variant of invalid input.
	ErrUserRequired = errors.New("user id is required")
)
