package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"vouch/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) { return s.claims, s.err }

func run(mw func(http.Handler) http.Handler, req *http.Request) (*httptest.ResponseRecorder, *http.Request) {
	var seen *http.Request
	rr := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)
	return rr, seen
}

func TestRequireAuth(t *testing.T) {
	userID := uuid.NewString()

	t.Run("missing header", func(t *testing.T) {
		rr, seen := run(RequireAuth(stubValidator{}, zap.NewNop()), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Nil(t, seen)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bad")
		rr, _ := run(RequireAuth(stubValidator{err: errors.New("bad")}, zap.NewNop()), req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("malformed subject", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer ok")
		rr, _ := run(RequireAuth(stubValidator{claims: &JWTClaims{UserID: "nope"}}, zap.NewNop()), req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("valid token populates context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer ok")
		rr, seen := run(RequireAuth(stubValidator{claims: &JWTClaims{UserID: userID, Role: "reviewer"}}, zap.NewNop()), req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, userID, requestcontext.UserID(seen.Context()).String())
		assert.Equal(t, "reviewer", requestcontext.Role(seen.Context()))
	})
}

func TestRequireRole(t *testing.T) {
	mw := RequireRole(zap.NewNop(), "reviewer", "admin")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr, _ := run(mw, req.WithContext(requestcontext.WithRole(req.Context(), "user")))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr, _ = run(mw, req.WithContext(requestcontext.WithRole(req.Context(), "admin")))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}
