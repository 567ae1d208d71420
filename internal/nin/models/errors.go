package models

import (
	"fmt"

	"vouch/pkg/platform/sentinel"
)

// Store conflicts. All wrap sentinel.ErrConflict.
var (
	ErrAlreadyVerified   = fmt.Errorf("nin already verified: %w", sentinel.ErrConflict)
	ErrAttemptInProgress = fmt.Errorf("nin verification in progress: %w", sentinel.ErrConflict)
	ErrNINInUse          = fmt.Errorf("nin verified for another user: %w", sentinel.ErrConflict)
	// ErrAttemptSuperseded means the attempt token no longer owns the record.
	ErrAttemptSuperseded = fmt.Errorf("attempt superseded: %w", sentinel.ErrInvalidState)
)
