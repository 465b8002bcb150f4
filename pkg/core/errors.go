package core

import "errors"

// Errors returned by the engine. Every public operation fails with one of
// these (possibly wrapped); use errors.Is to test for them.
var (
	// ErrNotFound is returned when a document identifier or index name is absent.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateID is returned when inserting a document whose _id is already stored.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrInvalidArgument is returned for malformed documents, patches or descriptors.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyAccumulator is returned when an average has no contributing values.
	ErrEmptyAccumulator = errors.New("empty accumulator")
)
