// Package oracle adapts external NIN verification providers. Providers are
// untrusted: their error wording is classified into the closed failure
// vocabulary before anything is stored.
package oracle

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"

	"vouch/internal/nin/models"
)

// Claim is what a provider is asked to confirm.
type Claim struct {
	NIN         string
	FirstName   string
	MiddleName  string
	LastName    string
	DateOfBirth string
	Gender      string
}

// Identity is the provider's record for a NIN.
type Identity struct {
	FirstName   string `json:"first_name"`
	MiddleName  string `json:"middle_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
}

// Result is a provider answer. A non-nil error from Verify means no answer
// was obtained; a Result with Success=false is an answer that says no.
type Result struct {
	Success   bool
	Data      *Identity
	Error     string
	Reference string
}

// Oracle verifies a claim with one call and no internal retry.
type Oracle interface {
	Verify(ctx context.Context, claim Claim) (*Result, error)
}

// ErrCircuitOpen is returned without calling the provider while it is failing.
var ErrCircuitOpen = errors.New("nin oracle circuit open")

// StatusError is a non-2xx provider response with no usable body.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return "provider returned status " + strconv.Itoa(e.StatusCode)
}

// Classify maps provider wording into the closed vocabulary. Unrecognised
// wording is provider_error.
func Classify(message string) models.FailureReason {
	m := strings.ToLower(message)
	switch {
	case containsAny(m, "not found", "no record", "wrong nin", "does not exist"):
		return models.FailureNINNotFound
	case containsAny(m, "mismatch", "does not match", "do not match"):
		return models.FailureDataMismatch
	case containsAny(m, "invalid nin", "invalid format", "malformed"):
		return models.FailureInvalidNIN
	case containsAny(m, "rate limit", "too many requests", "quota"):
		return models.FailureRateLimited
	case containsAny(m, "timeout", "timed out"):
		return models.FailureTimeout
	case containsAny(m, "unavailable", "maintenance", "try again"):
		return models.FailureServiceUnavailable
	default:
		return models.FailureProviderError
	}
}

// ClassifyErr maps a transport failure. Anything that is not clearly a
// timeout or throttling is treated as the provider being unavailable.
func ClassifyErr(err error) models.FailureReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.FailureTimeout
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == 429:
			return models.FailureRateLimited
		case se.StatusCode == 504:
			return models.FailureTimeout
		case se.StatusCode >= 500:
			return models.FailureServiceUnavailable
		default:
			return models.FailureProviderError
		}
	}
	return models.FailureServiceUnavailable
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
