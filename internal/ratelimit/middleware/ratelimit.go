package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"vouch/internal/ratelimit/metrics"
	"vouch/internal/ratelimit/models"
	"vouch/pkg/platform/httputil"
	"vouch/pkg/requestcontext"
)

type Store interface {
	Allow(ctx context.Context, key string, limit models.Limit) (models.Result, error)
}

// Middleware budgets requests per caller: the authenticated user when there
// is one, the client IP otherwise. Store failures let the request through.
type Middleware struct {
	store   Store
	limits  map[models.Class]models.Limit
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Middleware)

func WithLogger(log *zap.Logger) Option {
	return func(m *Middleware) {
		m.logger = log
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

func New(store Store, limits map[models.Class]models.Limit, opts ...Option) *Middleware {
	m := &Middleware{store: store, limits: limits, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Limit checks safe methods against ClassRead and everything else against
// ClassWrite. A class with no configured limit is unlimited.
func (m *Middleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		class := classOf(r.Method)
		limit, ok := m.limits[class]
		if !ok || limit.Requests <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		res, err := m.store.Allow(ctx, string(class)+":"+callerKey(ctx), limit)
		if err != nil {
			m.observe(class, "error")
			m.logger.Warn("rate limit check failed",
				zap.Error(err),
				zap.String("class", string(class)),
				zap.String("request_id", requestcontext.RequestID(ctx)))
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
		if !res.Allowed {
			m.observe(class, "limited")
			retryAfter := res.RetryAfter(m.now())
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":             "rate_limit_exceeded",
				"error_description": "too many requests, try again later",
				"retry_after":       retryAfter,
			})
			return
		}
		m.observe(class, "allowed")
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) observe(class models.Class, outcome string) {
	if m.metrics != nil {
		m.metrics.Observe(string(class), outcome)
	}
}

func classOf(method string) models.Class {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return models.ClassRead
	default:
		return models.ClassWrite
	}
}

func callerKey(ctx context.Context) string {
	if userID := requestcontext.UserID(ctx); !userID.IsNil() {
		return "user:" + userID.String()
	}
	return "ip:" + requestcontext.ClientIP(ctx)
}
