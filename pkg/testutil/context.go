package testutil

import (
	"net/http"

	id "vouch/pkg/domain"
	"vouch/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context, as the auth middleware
// would for an authenticated request. Invalid IDs are ignored.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsedUserID, err := id.ParseUserID(userID); err == nil {
		return req.WithContext(requestcontext.WithUserID(req.Context(), parsedUserID))
	}
	return req
}

// WithAuth adds user ID and role to the request context.
func WithAuth(req *http.Request, userID, role string) *http.Request {
	req = WithUserID(req, userID)
	return req.WithContext(requestcontext.WithRole(req.Context(), role))
}
