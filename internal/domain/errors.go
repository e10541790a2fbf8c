package domain

import "errors"

var (
	// ErrInvalidConfig is returned when test creation parameters are rejected.
	ErrInvalidConfig = errors.New("invalid test configuration")
	// ErrNotFound is returned when a test id does not resolve.
	ErrNotFound = errors.New("test not found")
	// ErrAlreadyStopped is returned when stopping a test that is not active.
	ErrAlreadyStopped = errors.New("test is not active")
	// ErrInvalidOutcome is returned for malformed call outcomes. The ingestion
	// path logs and drops these; it never propagates them further.
	ErrInvalidOutcome = errors.New("invalid call outcome")
	// ErrVariantNotFound is returned when a prompt variant id does not resolve
	// in the variant store.
	ErrVariantNotFound = errors.New("prompt variant not found")
)
