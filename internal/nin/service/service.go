package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"vouch/internal/audit"
	"vouch/internal/events"
	"vouch/internal/nin/metrics"
	"vouch/internal/nin/models"
	"vouch/internal/nin/oracle"
	"vouch/internal/platform/logger"
	id "vouch/pkg/domain"
	dErrors "vouch/pkg/domain-errors"
	"vouch/pkg/platform/sentinel"
	"vouch/pkg/platform/validation"
	"vouch/pkg/requestcontext"
)

const (
	defaultLeaseTTL      = 2 * time.Minute
	defaultOracleTimeout = 15 * time.Second
	tracerName           = "vouch/internal/nin"
)

// Store persists the per-user NIN record.
type Store interface {
	FindByUser(ctx context.Context, userID id.UserID) (*models.Record, error)
	BeginAttempt(ctx context.Context, a models.Attempt) (*models.Record, error)
	Complete(ctx context.Context, o models.Outcome) (*models.Record, error)
}

// Sealer encrypts NIN digits and derives their lookup hash.
type Sealer interface {
	Seal(plaintext string) ([]byte, error)
	Hash(value string) string
}

type AuditLogger interface {
	Append(ctx context.Context, entry audit.Entry)
}

// BadgeAwarder is notified after a successful verification.
type BadgeAwarder interface {
	AutoAwardOnVerification(ctx context.Context, userID id.UserID, verificationType id.VerificationType, verified bool) error
}

// Service drives a user's NIN record through NotStarted, Pending and
// Verified or Failed. Verified is terminal.
type Service struct {
	store         Store
	oracle        oracle.Oracle
	sealer        Sealer
	validator     *validation.Validator
	audit         AuditLogger
	badges        BadgeAwarder
	publisher     events.Publisher
	logger        *zap.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	leaseTTL      time.Duration
	oracleTimeout time.Duration
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

func WithAuditLogger(a AuditLogger) Option {
	return func(s *Service) {
		s.audit = a
	}
}

func WithBadgeAwarder(b BadgeAwarder) Option {
	return func(s *Service) {
		s.badges = b
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithLeaseTTL sets how long a Pending attempt blocks a new one. After the
// lease a retry takes the record over.
func WithLeaseTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.leaseTTL = d
		}
	}
}

func WithOracleTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.oracleTimeout = d
		}
	}
}

func New(store Store, o oracle.Oracle, sealer Sealer, opts ...Option) *Service {
	s := &Service{
		store:         store,
		oracle:        o,
		sealer:        sealer,
		validator:     models.NewClaimValidator(),
		publisher:     events.Noop{},
		logger:        zap.NewNop(),
		tracer:        otel.Tracer(tracerName),
		leaseTTL:      defaultLeaseTTL,
		oracleTimeout: defaultOracleTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initiate validates claim, claims the user's record for a new attempt, asks
// the oracle once and persists the outcome. A failed check is returned as an
// upstream error carrying the failure reason and whether a retry may help.
func (s *Service) Initiate(ctx context.Context, userID id.UserID, claim models.Claim) (*models.StatusResult, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user id required")
	}
	log := logger.ForRequest(ctx, s.logger).With(zap.String("user_id", userID.String()))

	claim = normalizeClaim(claim)
	if violations := s.validator.Struct(ctx, claim); len(violations) > 0 {
		s.countOutcome("rejected", "validation")
		return nil, dErrors.Validation("invalid nin claim", violations...)
	}

	now := requestcontext.Now(ctx)
	previous, err := s.store.FindByUser(ctx, userID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load nin record")
	}
	if previous != nil {
		if previous.Status == models.StatusVerified {
			s.countOutcome("rejected", "already_verified")
			return nil, dErrors.New(dErrors.CodeConflict, "nin already verified")
		}
		if previous.Status == models.StatusPending && !previous.LeaseExpired(now, s.leaseTTL) {
			s.countOutcome("rejected", "in_progress")
			return nil, dErrors.New(dErrors.CodeConflict, "nin verification already in progress")
		}
	}

	attempt, err := s.newAttempt(userID, claim, now)
	if err != nil {
		return nil, err
	}
	pending, err := s.store.BeginAttempt(ctx, attempt)
	if err != nil {
		s.countOutcome("rejected", "conflict")
		return nil, translateConflict(err)
	}
	s.appendAudit(ctx, userID, audit.ActionInitiated, audit.StatusSuccess, auditView(previous), auditView(pending))

	outcome := s.verifyWithOracle(ctx, attempt, claim)

	// The oracle has answered; persisting it must survive a cancelled caller.
	persistCtx := context.WithoutCancel(ctx)
	record, err := s.store.Complete(persistCtx, outcome)
	if errors.Is(err, models.ErrNINInUse) {
		outcome.Status = models.StatusFailed
		outcome.FailureReason = models.FailureDataMismatch
		outcome.RawFailureReason = "nin verified for another account during this attempt"
		if record, err = s.store.Complete(persistCtx, outcome); err == nil {
			s.appendAudit(ctx, userID, audit.ActionFailed, audit.StatusFailed, auditView(pending), auditView(record))
			s.countOutcome("failed", string(outcome.FailureReason))
			return nil, dErrors.New(dErrors.CodeConflict, "nin is already verified for another account")
		}
	}
	if err != nil {
		if errors.Is(err, models.ErrAttemptSuperseded) {
			log.Warn("nin attempt superseded before completion", zap.String("attempt", attempt.Token.String()))
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "verification attempt was superseded by a newer attempt")
		}
		log.Error("failed to persist nin outcome", zap.Error(err), zap.String("status", string(outcome.Status)))
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist nin verification outcome")
	}

	if record.Status == models.StatusVerified {
		s.appendAudit(ctx, userID, audit.ActionVerified, audit.StatusSuccess, auditView(pending), auditView(record))
		s.countOutcome("verified", "")
		s.afterVerified(ctx, log, userID)
		return models.ToStatus(record), nil
	}

	s.appendAudit(ctx, userID, audit.ActionFailed, audit.StatusFailed, auditView(pending), auditView(record))
	s.countOutcome("failed", string(record.FailureReason))
	log.Info("nin verification failed",
		zap.String("reason", string(record.FailureReason)),
		zap.Bool("retryable", record.FailureReason.Retryable()))
	return nil, dErrors.Upstream(nil, string(record.FailureReason), record.FailureReason.Retryable(),
		"nin verification failed: "+string(record.FailureReason))
}

// Status returns the caller-facing state. No record means NotStarted.
func (s *Service) Status(ctx context.Context, userID id.UserID) (*models.StatusResult, error) {
	rec, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	return models.ToStatus(rec), nil
}

// Details adds provider reference and attempt bookkeeping for privileged
// callers. It never includes NIN digits or personal data.
func (s *Service) Details(ctx context.Context, userID id.UserID) (*models.Details, error) {
	rec, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	return models.ToDetails(rec), nil
}

func (s *Service) find(ctx context.Context, userID id.UserID) (*models.Record, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id required")
	}
	rec, err := s.store.FindByUser(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load nin record")
	}
	return rec, nil
}

func (s *Service) newAttempt(userID id.UserID, claim models.Claim, now time.Time) (models.Attempt, error) {
	dob, err := models.ParseDateOfBirth(claim.DateOfBirth)
	if err != nil {
		return models.Attempt{}, dErrors.Validation("invalid nin claim", "dateOfBirth must be a date in 2006-01-02 format")
	}
	sealed, err := s.sealer.Seal(claim.NIN)
	if err != nil {
		return models.Attempt{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to protect nin")
	}
	return models.Attempt{
		UserID:        userID,
		Token:         uuid.New(),
		EncryptedNIN:  sealed,
		NINHash:       s.sealer.Hash(claim.NIN),
		FirstName:     claim.FirstName,
		MiddleName:    claim.MiddleName,
		LastName:      claim.LastName,
		DateOfBirth:   dob,
		Gender:        claim.Gender,
		StateOfOrigin: claim.StateOfOrigin,
		StartedAt:     now,
		LeaseTTL:      s.leaseTTL,
	}, nil
}

// verifyWithOracle makes exactly one provider call bounded by the oracle
// timeout and classifies the answer.
func (s *Service) verifyWithOracle(ctx context.Context, a models.Attempt, claim models.Claim) models.Outcome {
	ctx, span := s.tracer.Start(ctx, "nin.oracle.verify")
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, s.oracleTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.oracle.Verify(callCtx, oracle.Claim{
		NIN:         claim.NIN,
		FirstName:   claim.FirstName,
		MiddleName:  claim.MiddleName,
		LastName:    claim.LastName,
		DateOfBirth: claim.DateOfBirth,
		Gender:      claim.Gender,
	})
	elapsed := time.Since(start).Seconds()

	out := models.Outcome{
		UserID:      a.UserID,
		Token:       a.Token,
		Method:      models.MethodAPI,
		CompletedAt: requestcontext.Now(ctx),
	}
	switch {
	case err != nil:
		out.Status = models.StatusFailed
		out.FailureReason = oracle.ClassifyErr(err)
		out.RawFailureReason = err.Error()
		span.RecordError(err)
	case res == nil:
		out.Status = models.StatusFailed
		out.FailureReason = models.FailureProviderError
		out.RawFailureReason = "empty provider response"
	case res.Success:
		out.Status = models.StatusVerified
		out.ProviderReference = res.Reference
	default:
		out.Status = models.StatusFailed
		out.FailureReason = oracle.Classify(res.Error)
		out.RawFailureReason = res.Error
		out.ProviderReference = res.Reference
	}

	span.SetAttributes(
		attribute.String("nin.outcome", string(out.Status)),
		attribute.String("nin.failure_reason", string(out.FailureReason)),
	)
	if out.Status == models.StatusFailed {
		span.SetStatus(codes.Error, string(out.FailureReason))
	}
	if s.metrics != nil {
		s.metrics.ObserveOracle(string(out.Status), elapsed)
	}
	return out
}

func (s *Service) afterVerified(ctx context.Context, log *zap.Logger, userID id.UserID) {
	if s.badges != nil {
		if err := s.badges.AutoAwardOnVerification(ctx, userID, id.VerificationNIN, true); err != nil {
			log.Warn("nin badge auto-award failed", zap.Error(err))
		}
	}
	s.publisher.Publish(ctx, events.Event{
		Type:       events.TypeVerificationCompleted,
		UserID:     userID,
		OccurredAt: requestcontext.Now(ctx),
		Data: map[string]string{
			"verification_type": string(id.VerificationNIN),
			"status":            string(models.StatusVerified),
		},
	})
}

func (s *Service) appendAudit(ctx context.Context, userID id.UserID, action audit.Action, status audit.Status, prev, next any) {
	if s.audit == nil {
		return
	}
	s.audit.Append(ctx, audit.Entry{
		UserID:           userID,
		VerificationType: id.VerificationNIN,
		Action:           action,
		Status:           status,
		PreviousValue:    audit.Snapshot(prev),
		NewValue:         audit.Snapshot(next),
		PerformedBy:      audit.Actor(requestcontext.UserID(ctx)),
	})
}

func (s *Service) countOutcome(outcome, reason string) {
	if s.metrics != nil {
		s.metrics.IncrementOutcome(outcome, reason)
	}
}

func translateConflict(err error) error {
	switch {
	case errors.Is(err, models.ErrAlreadyVerified):
		return dErrors.Wrap(err, dErrors.CodeConflict, "nin already verified")
	case errors.Is(err, models.ErrAttemptInProgress):
		return dErrors.Wrap(err, dErrors.CodeConflict, "nin verification already in progress")
	case errors.Is(err, models.ErrNINInUse):
		return dErrors.Wrap(err, dErrors.CodeConflict, "nin is already verified for another account")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to start nin verification")
	}
}
