package models

import (
	"time"

	id "vouch/pkg/domain"
)

// MaxFileSize is the upload ceiling: 10 MiB.
const MaxFileSize int64 = 10 * 1024 * 1024

// Type is the kind of identity document.
type Type string

const (
	TypeNationalIDCard Type = "national_id_card"
	TypeDriversLicense Type = "drivers_license"
	TypePassport       Type = "international_passport"
	TypeVotersCard     Type = "voters_card"
	TypeUtilityBill    Type = "utility_bill"
)

var Types = []Type{TypeNationalIDCard, TypeDriversLicense, TypePassport, TypeVotersCard, TypeUtilityBill}

func (t Type) IsValid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// AllowedMimeTypes are the accepted upload content types.
var AllowedMimeTypes = []string{"image/jpeg", "image/png", "application/pdf"}

func IsAllowedMimeType(m string) bool {
	for _, a := range AllowedMimeTypes {
		if m == a {
			return true
		}
	}
	return false
}

// Document is an uploaded identity document and its review state.
type Document struct {
	ID              id.DocumentID `json:"id"`
	UserID          id.UserID     `json:"userId"`
	Type            Type          `json:"type"`
	Number          string        `json:"number,omitempty"`
	BlobKey         string        `json:"-"`
	URL             string        `json:"url"`
	FileSize        int64         `json:"fileSize"`
	MimeType        string        `json:"mimeType"`
	IsVerified      bool          `json:"isVerified"`
	VerifiedAt      *time.Time    `json:"verifiedAt,omitempty"`
	VerifiedBy      *id.UserID    `json:"verifiedBy,omitempty"`
	RejectionReason string        `json:"rejectionReason,omitempty"`
	ExpiresAt       *time.Time    `json:"expiresAt,omitempty"`
	UploadedAt      time.Time     `json:"uploadedAt"`
}

// IsPending reports whether no reviewer has approved or rejected d.
func (d *Document) IsPending() bool {
	return !d.IsVerified && d.RejectionReason == ""
}

func (d *Document) IsRejected() bool {
	return !d.IsVerified && d.RejectionReason != ""
}

// File is the uploaded payload. Size is always len(Data) once it reaches the
// service; the leading bytes must sniff as MimeType.
type File struct {
	Data     []byte `json:"-" validate:"omitempty,content_matches"`
	Size     int64  `json:"size" validate:"file_size"`
	MimeType string `json:"mimeType" validate:"required,mime_type"`
}

type UploadRequest struct {
	Type      Type       `json:"type" validate:"required,doc_type"`
	File      File       `json:"file"`
	Number    string     `json:"number,omitempty" validate:"omitempty,max=64"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Review is a reviewer's decision on a document.
type Review struct {
	IsVerified      bool
	ReviewerID      id.UserID
	RejectionReason string
	ReviewedAt      time.Time
}

// Stats are derived from the user's documents on every call.
type Stats struct {
	Total    int          `json:"totalDocuments"`
	Verified int          `json:"verifiedDocuments"`
	Pending  int          `json:"pendingDocuments"`
	Rejected int          `json:"rejectedDocuments"`
	ByType   map[Type]int `json:"byType"`
}

func ComputeStats(docs []*Document) Stats {
	st := Stats{ByType: make(map[Type]int)}
	for _, d := range docs {
		st.Total++
		st.ByType[d.Type]++
		switch {
		case d.IsVerified:
			st.Verified++
		case d.IsRejected():
			st.Rejected++
		default:
			st.Pending++
		}
	}
	return st
}
