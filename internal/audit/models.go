package audit

import (
	"encoding/json"
	"time"

	id "vouch/pkg/domain"
)

// Action names a verification state change.
type Action string

const (
	ActionInitiated Action = "initiated"
	ActionVerified  Action = "verified"
	ActionFailed    Action = "failed"
	ActionUploaded  Action = "uploaded"
	ActionRejected  Action = "rejected"
	ActionDeleted   Action = "deleted"
	ActionAwarded   Action = "awarded"
	ActionRevoked   Action = "revoked"
)

// Status is the outcome recorded for an entry.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Entry is one immutable verification audit record.
type Entry struct {
	ID               id.EntryID          `json:"id"`
	UserID           id.UserID           `json:"userId"`
	VerificationType id.VerificationType `json:"verificationType"`
	Action           Action              `json:"action"`
	Status           Status              `json:"status"`
	PreviousValue    json.RawMessage     `json:"previousValue,omitempty"`
	NewValue         json.RawMessage     `json:"newValue,omitempty"`
	// PerformedBy is nil for system-initiated changes such as auto-awards.
	PerformedBy *id.UserID `json:"performedBy,omitempty"`
	IPAddress   string     `json:"ipAddress"`
	UserAgent   string     `json:"userAgent"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Snapshot marshals v for PreviousValue/NewValue. Values that cannot be
// marshalled are recorded as null rather than failing the audit write.
func Snapshot(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}

// Actor returns a pointer suitable for Entry.PerformedBy, or nil for the
// zero ID.
func Actor(userID id.UserID) *id.UserID {
	if userID.IsNil() {
		return nil
	}
	return &userID
}

// SortField is the allow-listed ordering for queries.
type SortField string

const (
	SortCreatedAt        SortField = "createdAt"
	SortVerificationType SortField = "verificationType"
	SortAction           SortField = "action"
)

// Criteria narrows the entries returned by a query or export. Zero values
// are ignored.
type Criteria struct {
	UserID           *id.UserID
	VerificationType id.VerificationType
	Action           Action
	Status           Status
	PerformedBy      *id.UserID
	IPAddress        string
	From             *time.Time
	To               *time.Time
}

// Matches reports whether e satisfies c. Used by the in-memory store.
func (c Criteria) Matches(e Entry) bool {
	if c.UserID != nil && e.UserID != *c.UserID {
		return false
	}
	if c.VerificationType != "" && e.VerificationType != c.VerificationType {
		return false
	}
	if c.Action != "" && e.Action != c.Action {
		return false
	}
	if c.Status != "" && e.Status != c.Status {
		return false
	}
	if c.PerformedBy != nil && (e.PerformedBy == nil || *e.PerformedBy != *c.PerformedBy) {
		return false
	}
	if c.IPAddress != "" && e.IPAddress != c.IPAddress {
		return false
	}
	if c.From != nil && e.CreatedAt.Before(*c.From) {
		return false
	}
	if c.To != nil && e.CreatedAt.After(*c.To) {
		return false
	}
	return true
}

// Query is the store-level read request: criteria plus a validated window.
type Query struct {
	Criteria
	SortBy SortField
	Desc   bool
	Offset int
	Limit  int
}

// ListRequest is the caller-facing paginated query.
type ListRequest struct {
	Criteria
	Page   int
	Limit  int
	SortBy string
	Order  string
}

// ListResult is one page of entries.
type ListResult struct {
	Entries    []Entry `json:"entries"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"totalPages"`
}

// ExportResult reports how many rows were rendered and whether the safety
// cap cut the export short.
type ExportResult struct {
	Rows         int
	TotalMatched int
	Truncated    bool
}
