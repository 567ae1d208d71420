package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and adapters return these
// (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: the row or blob does not exist
//   - ErrConflict: a uniqueness rule rejected the write (active badge, verified document, pending NIN)
//   - ErrInvalidState: the row exists but is not in the state the conditional write required
//   - ErrUnavailable: a backing service could not be reached
//
// Validation failures never use these; they are built with pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
