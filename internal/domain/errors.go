package domain

import "errors"

var (
	// ErrNotFound is returned for unknown center/zone slugs and missing stored objects.
	ErrNotFound = errors.New("not found")

	// ErrCorruptData is returned when a stored payload cannot be decoded.
	ErrCorruptData = errors.New("corrupt data")

	// ErrBackendUnavailable wraps storage or network failures. Callers may retry.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrValidation is returned when an operation is asked about a center or zone
	// that is not configured.
	ErrValidation = errors.New("validation error")
)
