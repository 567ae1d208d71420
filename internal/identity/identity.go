// Package identity reads the profile facts the verification core needs from
// the user directory. It never writes.
package identity

import (
	"context"
	"time"

	id "vouch/pkg/domain"
)

// User is the read-only projection of a platform user.
type User struct {
	ID             id.UserID
	PhoneVerified  bool
	CreatedAt      time.Time
	LastActivityAt *time.Time
	Neighborhoods  []string
	Endorsements   int
}

// Reader looks up users. A missing user is sentinel.ErrNotFound.
type Reader interface {
	Get(ctx context.Context, userID id.UserID) (*User, error)
}
