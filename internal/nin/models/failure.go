package models

// FailureReason is the closed vocabulary stored on a failed record. Provider
// wording is mapped into it and never stored in this field verbatim.
type FailureReason string

const (
	FailureNINNotFound        FailureReason = "nin_not_found"
	FailureDataMismatch       FailureReason = "data_mismatch"
	FailureInvalidNIN         FailureReason = "invalid_nin"
	FailureServiceUnavailable FailureReason = "service_unavailable"
	FailureTimeout            FailureReason = "timeout"
	FailureRateLimited        FailureReason = "rate_limited"
	FailureProviderError      FailureReason = "provider_error"
)

func (f FailureReason) IsValid() bool {
	switch f {
	case FailureNINNotFound, FailureDataMismatch, FailureInvalidNIN,
		FailureServiceUnavailable, FailureTimeout, FailureRateLimited, FailureProviderError:
		return true
	}
	return false
}

// Retryable reports whether the same claim may succeed on a later attempt.
func (f FailureReason) Retryable() bool {
	switch f {
	case FailureServiceUnavailable, FailureTimeout, FailureRateLimited:
		return true
	}
	return false
}
