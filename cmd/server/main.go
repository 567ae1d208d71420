package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"vouch/internal/audit"
	audithandler "vouch/internal/audit/handler"
	auditmetrics "vouch/internal/audit/metrics"
	auditmemory "vouch/internal/audit/store/memory"
	auditpostgres "vouch/internal/audit/store/postgres"
	badgehandler "vouch/internal/badge/handler"
	badgemetrics "vouch/internal/badge/metrics"
	badgeservice "vouch/internal/badge/service"
	badgestore "vouch/internal/badge/store"
	"vouch/internal/document/blobstore"
	documenthandler "vouch/internal/document/handler"
	documentmetrics "vouch/internal/document/metrics"
	documentservice "vouch/internal/document/service"
	documentstore "vouch/internal/document/store"
	"vouch/internal/events"
	"vouch/internal/events/kafka"
	"vouch/internal/identity"
	identitystore "vouch/internal/identity/store"
	jwttoken "vouch/internal/jwt_token"
	ninhandler "vouch/internal/nin/handler"
	ninmetrics "vouch/internal/nin/metrics"
	"vouch/internal/nin/oracle"
	"vouch/internal/nin/secrets"
	ninservice "vouch/internal/nin/service"
	ninstore "vouch/internal/nin/store"
	"vouch/internal/platform/config"
	"vouch/internal/platform/httpserver"
	"vouch/internal/platform/logger"
	"vouch/internal/platform/metrics"
	"vouch/internal/platform/postgres"
	"vouch/internal/platform/redis"
	ratelimitmetrics "vouch/internal/ratelimit/metrics"
	ratelimit "vouch/internal/ratelimit/middleware"
	ratelimitmodels "vouch/internal/ratelimit/models"
	ratelimitstore "vouch/internal/ratelimit/store"
	httptransport "vouch/internal/transport/http"
	trustcache "vouch/internal/trust/cache"
	trusthandler "vouch/internal/trust/handler"
	trustmetrics "vouch/internal/trust/metrics"
	trustservice "vouch/internal/trust/service"
	workflowhandler "vouch/internal/workflow/handler"
	workflowservice "vouch/internal/workflow/service"
	"vouch/pkg/platform/circuit"
)

const (
	jwtIssuer   = "vouch-identity"
	jwtAudience = "vouch-api"
)

type stores struct {
	nin       ninservice.Store
	documents documentservice.Store
	badges    badgeservice.Store
	audit     audit.Store
	users     identity.Reader
}

// main wires infrastructure, services and the HTTP surface, then serves until
// SIGINT or SIGTERM.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		_, _ = os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checks := map[string]httptransport.HealthCheck{}

	db, st, err := buildStores(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		checks["postgres"] = db.PingContext
	}

	blobs, err := blobstore.FromConfig(ctx, cfg.Blob)
	if err != nil {
		return err
	}

	sealer, err := secrets.New([]byte(cfg.Security.NINEncryptionKey), []byte(cfg.Security.NINHashKey))
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		p, err := kafka.New(cfg.Kafka, log.Named("events"))
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := p.Close(flushCtx); err != nil {
				log.Warn("kafka flush failed", zap.Error(err))
			}
		}()
		publisher = p
	}

	var cache *trustcache.RedisCache
	var limitStore ratelimit.Store = ratelimitstore.NewInMemoryStore()
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		checks["redis"] = rdb.Health
		limitStore = ratelimitstore.NewRedis(rdb)
		cache = trustcache.NewRedis(rdb, cfg.Trust.CacheTTL)
		publisher = trustcache.NewInvalidator(cache, publisher, func(err error) {
			log.Warn("trust cache invalidation failed", zap.Error(err))
		})
	}

	auditSvc := audit.New(st.audit,
		audit.WithLogger(log.Named("audit")),
		audit.WithMetrics(auditmetrics.New(reg)),
		audit.WithExportCap(cfg.Audit.ExportCap))

	badges := badgeservice.New(st.badges,
		badgeservice.WithLogger(log.Named("badge")),
		badgeservice.WithMetrics(badgemetrics.New(reg)),
		badgeservice.WithAuditLogger(auditSvc),
		badgeservice.WithPublisher(publisher))

	docs := documentservice.New(st.documents, blobs,
		documentservice.WithLogger(log.Named("document")),
		documentservice.WithMetrics(documentmetrics.New(reg)),
		documentservice.WithAuditLogger(auditSvc),
		documentservice.WithBadgeAwarder(badges),
		documentservice.WithPublisher(publisher))

	nin := ninservice.New(st.nin, buildOracle(cfg.Oracle, log), sealer,
		ninservice.WithLogger(log.Named("nin")),
		ninservice.WithMetrics(ninmetrics.New(reg)),
		ninservice.WithAuditLogger(auditSvc),
		ninservice.WithBadgeAwarder(badges),
		ninservice.WithPublisher(publisher),
		ninservice.WithLeaseTTL(cfg.NIN.PendingLeaseTTL),
		ninservice.WithOracleTimeout(cfg.Oracle.Timeout))

	trustOpts := []trustservice.Option{
		trustservice.WithLogger(log.Named("trust")),
		trustservice.WithMetrics(trustmetrics.New(reg)),
	}
	if cache != nil {
		trustOpts = append(trustOpts, trustservice.WithCache(cache))
	}
	trust := trustservice.New(st.users, nin, docs, badges, trustOpts...)

	workflow := workflowservice.New(nin, docs, badges, st.users,
		workflowservice.WithLogger(log.Named("workflow")))

	limiter := ratelimit.New(limitStore, map[ratelimitmodels.Class]ratelimitmodels.Limit{
		ratelimitmodels.ClassWrite: {Requests: cfg.RateLimit.WritesPerMinute, Window: time.Minute},
		ratelimitmodels.ClassRead:  {Requests: cfg.RateLimit.ReadsPerMinute, Window: time.Minute},
	}, ratelimit.WithLogger(log.Named("ratelimit")), ratelimit.WithMetrics(ratelimitmetrics.New(reg)))

	jwt := jwttoken.NewJWTService(cfg.Security.JWTSigningKey, jwtIssuer, jwtAudience)
	router := httptransport.NewRouter(httptransport.Handlers{
		NIN:       ninhandler.New(nin, log),
		Documents: documenthandler.New(docs, log, jwttoken.RoleReviewer, jwttoken.RoleAdmin),
		Badges:    badgehandler.New(badges, log),
		Trust:     trusthandler.New(trust, log),
		Workflow:  workflowhandler.New(workflow, log),
		Audit:     audithandler.New(auditSvc, log),
	}, httptransport.Config{
		Validator:   jwttoken.NewJWTServiceAdapter(jwt),
		Logger:      log,
		Metrics:     metrics.New(reg),
		Gatherer:    reg,
		Checks:      checks,
		RateLimiter: limiter,
	})

	srv := httpserver.New(cfg.Server, router)
	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting vouch", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildStores returns Postgres stores when a database URL is configured and
// in-memory stores otherwise.
func buildStores(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*sql.DB, stores, error) {
	if cfg.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		return nil, stores{
			nin:       ninstore.NewInMemoryStore(),
			documents: documentstore.NewInMemoryStore(),
			badges:    badgestore.NewInMemoryStore(),
			audit:     auditmemory.NewInMemoryStore(),
			users:     identitystore.NewInMemoryStore(),
		}, nil
	}

	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, stores{}, err
	}
	if cfg.RunMigrations {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, stores{}, err
		}
	}
	return db, stores{
		nin:       ninstore.NewPostgres(db),
		documents: documentstore.NewPostgres(db),
		badges:    badgestore.NewPostgres(db),
		audit:     auditpostgres.New(db),
		users:     identitystore.NewPostgres(db),
	}, nil
}

func buildOracle(cfg config.OracleConfig, log *zap.Logger) oracle.Oracle {
	var provider oracle.Oracle
	switch cfg.Provider {
	case "dojah":
		provider = oracle.NewDojah(oracle.DojahConfig{
			BaseURL:   cfg.BaseURL,
			AppID:     cfg.AppID,
			SecretKey: cfg.SecretKey,
			Timeout:   cfg.Timeout,
		})
	default:
		provider = oracle.NewSandbox(cfg.SandboxNotFound)
	}
	return oracle.NewGuarded(provider, circuit.New("nin-oracle"), log.Named("oracle"))
}
