package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vouch/internal/identity"
	ninmodels "vouch/internal/nin/models"
	"vouch/internal/platform/logger"
	"vouch/internal/trust/metrics"
	"vouch/internal/trust/score"
	id "vouch/pkg/domain"
	dErrors "vouch/pkg/domain-errors"
	"vouch/pkg/platform/sentinel"
	"vouch/pkg/requestcontext"
)

const inputsTimeout = 3 * time.Second

type NINStatusReader interface {
	Status(ctx context.Context, userID id.UserID) (*ninmodels.StatusResult, error)
}

type DocumentCounter interface {
	VerifiedCount(ctx context.Context, userID id.UserID) (int, error)
}

type BadgeCounter interface {
	ActiveCount(ctx context.Context, userID id.UserID) (int, error)
}

// Cache is optional. Failures never fail a score request. Get returns the
// generation a miss was observed at; Set writes under that generation.
type Cache interface {
	Get(ctx context.Context, userID id.UserID) (*score.Breakdown, int64, bool, error)
	Set(ctx context.Context, userID id.UserID, gen int64, b *score.Breakdown) error
}

// Service gathers a user's verification state and scores it.
type Service struct {
	users   identity.Reader
	nin     NINStatusReader
	docs    DocumentCounter
	badges  BadgeCounter
	cache   Cache
	weights score.Weights
	logger  *zap.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		s.logger = log
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithWeights(w score.Weights) Option {
	return func(s *Service) {
		s.weights = w
	}
}

func New(users identity.Reader, nin NINStatusReader, docs DocumentCounter, badges BadgeCounter, opts ...Option) *Service {
	s := &Service{
		users:   users,
		nin:     nin,
		docs:    docs,
		badges:  badges,
		weights: score.DefaultWeights(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the table scores are computed with.
func (s *Service) Weights() score.Weights {
	w := s.weights
	w.ActivityTiers = append([]score.ActivityTier(nil), s.weights.ActivityTiers...)
	return w
}

func (s *Service) Get(ctx context.Context, userID id.UserID) (*score.Breakdown, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id required")
	}
	log := logger.ForRequest(ctx, s.logger).With(zap.String("user_id", userID.String()))

	var (
		gen       int64
		cacheable bool
	)
	if s.cache != nil {
		b, g, ok, err := s.cache.Get(ctx, userID)
		switch {
		case err != nil:
			s.countCache("error")
			log.Warn("trust cache read failed", zap.Error(err))
		case ok:
			s.countCache("hit")
			return b, nil
		default:
			s.countCache("miss")
			gen, cacheable = g, true
		}
	}

	in, err := s.gatherInputs(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to gather trust score inputs")
	}

	b := score.Calculate(s.weights, *in)
	if s.metrics != nil {
		s.metrics.Scores.Observe(float64(b.Percentage))
	}
	if cacheable {
		if err := s.cache.Set(ctx, userID, gen, &b); err != nil {
			log.Warn("trust cache write failed", zap.Error(err))
		}
	}
	return &b, nil
}

// gatherInputs reads every input concurrently; the first failure cancels
// the rest.
func (s *Service) gatherInputs(ctx context.Context, userID id.UserID) (*score.Inputs, error) {
	now := requestcontext.Now(ctx)
	ctx, cancel := context.WithTimeout(ctx, inputsTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	in := &score.Inputs{Now: now}

	g.Go(func() error {
		defer s.observe("identity", time.Now())
		u, err := s.users.Get(ctx, userID)
		if err != nil {
			return err
		}
		in.PhoneVerified = u.PhoneVerified
		in.Neighborhoods = len(u.Neighborhoods)
		in.Endorsements = u.Endorsements
		in.AccountCreatedAt = u.CreatedAt
		in.LastActivityAt = u.LastActivityAt
		return nil
	})

	g.Go(func() error {
		defer s.observe("nin", time.Now())
		st, err := s.nin.Status(ctx, userID)
		if err != nil {
			return err
		}
		in.NINVerified = st.Status == ninmodels.StatusVerified
		return nil
	})

	g.Go(func() error {
		defer s.observe("documents", time.Now())
		n, err := s.docs.VerifiedCount(ctx, userID)
		if err != nil {
			return err
		}
		in.VerifiedDocuments = n
		return nil
	})

	g.Go(func() error {
		defer s.observe("badges", time.Now())
		n, err := s.badges.ActiveCount(ctx, userID)
		if err != nil {
			return err
		}
		in.ActiveBadges = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

func (s *Service) observe(source string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveInputLatency(source, time.Since(start))
	}
}

func (s *Service) countCache(result string) {
	if s.metrics != nil {
		s.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}
