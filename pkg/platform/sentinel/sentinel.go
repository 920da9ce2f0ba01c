package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and persistence sinks return
// these (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: entity or source does not exist
//   - ErrAlreadyUsed: key is already taken
//   - ErrMalformed: a source exists but its content cannot be decoded
//   - ErrUnavailable: backing service or file cannot be reached
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrMalformed   = errors.New("malformed")
	ErrUnavailable = errors.New("unavailable")
)
