package errors

import "errors"

// Sentinel errors for the failure taxonomy shared across stages and backends.
var (
	// ErrBackendUnavailable indicates a vector store, embedding, or inference
	// call failed or timed out.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrNoEvidence indicates retrieval produced no usable passages.
	ErrNoEvidence = errors.New("no evidence found")

	// ErrClassificationAmbiguous indicates the intent classifier returned no
	// confident category.
	ErrClassificationAmbiguous = errors.New("classification ambiguous")

	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")
)
