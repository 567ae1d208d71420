package httptransport

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	audithandler "vouch/internal/audit/handler"
	badgehandler "vouch/internal/badge/handler"
	documenthandler "vouch/internal/document/handler"
	jwttoken "vouch/internal/jwt_token"
	ninhandler "vouch/internal/nin/handler"
	"vouch/internal/platform/metrics"
	ratelimit "vouch/internal/ratelimit/middleware"
	trusthandler "vouch/internal/trust/handler"
	workflowhandler "vouch/internal/workflow/handler"
	dErrors "vouch/pkg/domain-errors"
	"vouch/pkg/platform/httputil"
	authmw "vouch/pkg/platform/middleware/auth"
	"vouch/pkg/platform/middleware/metadata"
	"vouch/pkg/platform/middleware/requesttime"
)

const requestTimeout = 30 * time.Second

// Handlers are the per-domain HTTP surfaces mounted by NewRouter.
type Handlers struct {
	NIN       *ninhandler.Handler
	Documents *documenthandler.Handler
	Badges    *badgehandler.Handler
	Trust     *trusthandler.Handler
	Workflow  *workflowhandler.Handler
	Audit     *audithandler.Handler
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Config struct {
	Validator authmw.JWTValidator
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Checks    map[string]HealthCheck
	// RateLimiter is optional.
	RateLimiter *ratelimit.Middleware
}

// NewRouter builds the service router. Everything under the authenticated
// group needs a bearer token; review and admin routes additionally check
// the caller's role.
func NewRouter(h Handlers, cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	if cfg.Metrics != nil {
		r.Use(observe(cfg.Metrics))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(cfg.Checks, cfg.Logger))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(authmw.RequireAuth(cfg.Validator, cfg.Logger))
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Limit)
		}

		h.NIN.Register(r)
		h.Documents.Register(r)
		h.Badges.Register(r)
		h.Trust.Register(r)
		h.Workflow.Register(r)
		h.Audit.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireRole(cfg.Logger, jwttoken.RoleReviewer, jwttoken.RoleAdmin))
			h.Documents.RegisterReview(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireRole(cfg.Logger, jwttoken.RoleAdmin))
			h.Badges.RegisterAdmin(r)
			h.Audit.RegisterAdmin(r)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	return r
}

// observe records latency and status per route pattern rather than raw path
// so IDs in URLs do not explode label cardinality.
func observe(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveRequest(route, r.Method, strconv.Itoa(status), time.Since(start).Seconds())
		})
	}
}

func readiness(checks map[string]HealthCheck, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				log.Warn("readiness check failed", zap.String("dependency", name), zap.Error(err))
				result[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			result[name] = "ok"
		}
		httputil.WriteJSON(w, status, result)
	}
}
