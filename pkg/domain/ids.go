package domain

import (
	"github.com/google/uuid"

	dErrors "vouch/pkg/domain-errors"
)

// Typed identifiers. Each wraps a UUID so a DocumentID can never be passed
// where a BadgeID is expected.
type (
	UserID     uuid.UUID
	DocumentID uuid.UUID
	BadgeID    uuid.UUID
	EntryID    uuid.UUID
)

func parseID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	return u, nil
}

// ParseUserID parses a user id at a trust boundary. Empty, malformed and nil
// UUIDs are rejected with CodeInvalidInput.
func ParseUserID(s string) (UserID, error) {
	u, err := parseID(s, "user id")
	return UserID(u), err
}

func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseID(s, "document id")
	return DocumentID(u), err
}

func ParseBadgeID(s string) (BadgeID, error) {
	u, err := parseID(s, "badge id")
	return BadgeID(u), err
}

func ParseEntryID(s string) (EntryID, error) {
	u, err := parseID(s, "audit entry id")
	return EntryID(u), err
}

func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }
func NewBadgeID() BadgeID       { return BadgeID(uuid.New()) }
func NewEntryID() EntryID       { return EntryID(uuid.New()) }

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id BadgeID) String() string    { return uuid.UUID(id).String() }
func (id EntryID) String() string    { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id BadgeID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id EntryID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id DocumentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id BadgeID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id EntryID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = UserID(u)
	return err
}

func (id *DocumentID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = DocumentID(u)
	return err
}

func (id *BadgeID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = BadgeID(u)
	return err
}

func (id *EntryID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = EntryID(u)
	return err
}
