package models

import (
	"time"

	"github.com/google/uuid"

	id "vouch/pkg/domain"
)

// Status is the position of a user's NIN record in the verification state machine.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusPending    Status = "pending"
	StatusVerified   Status = "verified"
	StatusFailed     Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusPending, StatusVerified, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no operation may move the record out of s.
func (s Status) IsTerminal() bool {
	return s == StatusVerified
}

// Method records how a verification outcome was reached.
type Method string

const (
	MethodAPI    Method = "api"
	MethodManual Method = "manual"
	MethodHybrid Method = "hybrid"
)

// Claim is the identity a user asserts for a NIN check. DateOfBirth is YYYY-MM-DD.
type Claim struct {
	NIN           string `json:"nin" validate:"required,nin"`
	FirstName     string `json:"firstName" validate:"required,min=2"`
	MiddleName    string `json:"middleName,omitempty" validate:"omitempty,min=2"`
	LastName      string `json:"lastName" validate:"required,min=2"`
	DateOfBirth   string `json:"dateOfBirth" validate:"required,datetime=2006-01-02,age_range"`
	Gender        string `json:"gender" validate:"required,oneof=male female other"`
	StateOfOrigin string `json:"stateOfOrigin" validate:"required,ng_state"`
}

// Record is the single NIN verification record a user holds. It is mutated in
// place across attempts and never deleted.
type Record struct {
	UserID            id.UserID
	EncryptedNIN      []byte
	NINHash           string
	FirstName         string
	MiddleName        string
	LastName          string
	DateOfBirth       time.Time
	Gender            string
	StateOfOrigin     string
	Status            Status
	Method            Method
	ProviderReference string
	FailureReason     FailureReason
	// RawFailureReason is the provider's own wording. It goes to the audit
	// trail only and is never returned to callers.
	RawFailureReason string
	VerifiedAt       *time.Time
	AttemptToken     uuid.UUID
	AttemptStartedAt *time.Time
	Attempts         int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LeaseExpired reports whether a Pending attempt started before now-ttl and
// may be taken over by a new attempt.
func (r *Record) LeaseExpired(now time.Time, ttl time.Duration) bool {
	if r.Status != StatusPending || r.AttemptStartedAt == nil {
		return false
	}
	return !r.AttemptStartedAt.Add(ttl).After(now)
}

// Attempt carries everything BeginAttempt needs to move a record into Pending.
type Attempt struct {
	UserID        id.UserID
	Token         uuid.UUID
	EncryptedNIN  []byte
	NINHash       string
	FirstName     string
	MiddleName    string
	LastName      string
	DateOfBirth   time.Time
	Gender        string
	StateOfOrigin string
	StartedAt     time.Time
	LeaseTTL      time.Duration
}

// Outcome is the result of one oracle call, persisted by Complete.
type Outcome struct {
	UserID            id.UserID
	Token             uuid.UUID
	Status            Status
	Method            Method
	ProviderReference string
	FailureReason     FailureReason
	RawFailureReason  string
	CompletedAt       time.Time
}

// StatusResult is the caller-facing view of a record.
type StatusResult struct {
	Status        Status        `json:"status"`
	VerifiedAt    *time.Time    `json:"verifiedAt,omitempty"`
	Method        Method        `json:"method,omitempty"`
	FailureReason FailureReason `json:"failureReason,omitempty"`
	Retryable     bool          `json:"retryable,omitempty"`
}

// Details is the privileged view. It carries no NIN digits or personal data.
type Details struct {
	StatusResult
	ProviderReference string     `json:"providerReference,omitempty"`
	Attempts          int        `json:"attempts"`
	LastAttemptAt     *time.Time `json:"lastAttemptAt,omitempty"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
}

// ToStatus projects r to the caller-facing view. A nil record is NotStarted.
func ToStatus(r *Record) *StatusResult {
	if r == nil {
		return &StatusResult{Status: StatusNotStarted}
	}
	res := &StatusResult{
		Status:        r.Status,
		VerifiedAt:    r.VerifiedAt,
		Method:        r.Method,
		FailureReason: r.FailureReason,
	}
	if r.Status == StatusFailed {
		res.Retryable = r.FailureReason.Retryable()
	}
	return res
}

func ToDetails(r *Record) *Details {
	if r == nil {
		return &Details{StatusResult: StatusResult{Status: StatusNotStarted}}
	}
	updated := r.UpdatedAt
	return &Details{
		StatusResult:      *ToStatus(r),
		ProviderReference: r.ProviderReference,
		Attempts:          r.Attempts,
		LastAttemptAt:     r.AttemptStartedAt,
		UpdatedAt:         &updated,
	}
}
