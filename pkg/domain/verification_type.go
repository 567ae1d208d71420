package domain

import dErrors "vouch/pkg/domain-errors"

// VerificationType names a kind of verification signal.
// Invariant: the value must be one of the supported types.
//
// Usage: construct via ParseVerificationType at trust boundaries; direct
// casting bypasses validation.
type VerificationType string

const (
	VerificationNIN      VerificationType = "nin"
	VerificationDocument VerificationType = "document"
	VerificationBadge    VerificationType = "badge"
	VerificationPhone    VerificationType = "phone"
	VerificationAddress  VerificationType = "address"
)

var validVerificationTypes = map[VerificationType]bool{
	VerificationNIN:      true,
	VerificationDocument: true,
	VerificationBadge:    true,
	VerificationPhone:    true,
	VerificationAddress:  true,
}

// ParseVerificationType constructs a VerificationType from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseVerificationType(s string) (VerificationType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "verification type cannot be empty")
	}
	v := VerificationType(s)
	if !v.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid verification type")
	}
	return v, nil
}

func (v VerificationType) IsValid() bool {
	return validVerificationTypes[v]
}

func (v VerificationType) String() string {
	return string(v)
}
