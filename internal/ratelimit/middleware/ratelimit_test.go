package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"vouch/internal/ratelimit/metrics"
	"vouch/internal/ratelimit/models"
	"vouch/internal/ratelimit/store"
	vtestutil "vouch/pkg/testutil"
)

type brokenStore struct{}

func (brokenStore) Allow(context.Context, string, models.Limit) (models.Result, error) {
	return models.Result{}, errors.New("redis: connection refused")
}

func newRouter(s Store, m *metrics.Metrics) http.Handler {
	mw := New(s, map[models.Class]models.Limit{
		models.ClassWrite: {Requests: 2, Window: time.Minute},
	}, WithMetrics(m))
	r := chi.NewRouter()
	r.Use(mw.Limit)
	ok := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }
	r.Post("/verification/nin", ok)
	r.Get("/verification/nin/status", ok)
	return r
}

func TestLimit(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	router := newRouter(store.NewInMemoryStore(), m)
	alice, bob := uuid.NewString(), uuid.NewString()

	post := func(userID string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, vtestutil.WithUserID(httptest.NewRequest(http.MethodPost, "/verification/nin", nil), userID))
		return rec
	}

	assert.Equal(t, http.StatusNoContent, post(alice).Code)
	rec := post(alice)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = post(alice)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"error":"rate_limit_exceeded"`)

	assert.Equal(t, http.StatusNoContent, post(bob).Code)

	for range 5 {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, vtestutil.WithUserID(httptest.NewRequest(http.MethodGet, "/verification/nin/status", nil), alice))
		assert.Equal(t, http.StatusNoContent, rec.Code, "reads have no configured limit")
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("write", "limited")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Decisions.WithLabelValues("write", "allowed")))
}

func TestLimitFailsOpen(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	router := newRouter(brokenStore{}, m)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/verification/nin", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("write", "error")))
}
