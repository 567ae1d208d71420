package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"vouch/internal/audit"
	"vouch/internal/badge/metrics"
	"vouch/internal/badge/models"
	"vouch/internal/events"
	"vouch/internal/platform/logger"
	id "vouch/pkg/domain"
	dErrors "vouch/pkg/domain-errors"
	"vouch/pkg/platform/sentinel"
	"vouch/pkg/requestcontext"
)

type Store interface {
	CreateIfNoActive(ctx context.Context, b *models.Badge) error
	FindByID(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Badge, error)
	CountActive(ctx context.Context, userID id.UserID) (int, error)
	Revoke(ctx context.Context, badgeID id.BadgeID, r models.Revocation) (*models.Badge, error)
}

type AuditLogger interface {
	Append(ctx context.Context, entry audit.Entry)
}

// Service awards and revokes badges. At most one active badge exists per
// user and type; the store enforces it at write.
type Service struct {
	store     Store
	audit     AuditLogger
	publisher events.Publisher
	logger    *zap.Logger
	metrics   *metrics.Metrics
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

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		publisher: events.Noop{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Award(ctx context.Context, req models.AwardRequest) (*models.Badge, error) {
	if violations := validateAward(req); len(violations) > 0 {
		return nil, dErrors.Validation("invalid badge award", violations...)
	}

	b := &models.Badge{
		ID:        id.NewBadgeID(),
		UserID:    req.UserID,
		Type:      req.Type,
		Category:  req.Category,
		AwardedBy: req.AwardedBy,
		AwardedAt: requestcontext.Now(ctx),
		Active:    true,
		Metadata:  req.Metadata,
	}
	if err := s.store.CreateIfNoActive(ctx, b); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.countAward(req.Category, "duplicate")
			return nil, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("user already holds an active %s badge", req.Type))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to award badge")
	}

	s.appendAudit(ctx, b.UserID, audit.ActionAwarded, nil, b, b.AwardedBy)
	s.countAward(b.Category, "awarded")
	s.publisher.Publish(ctx, events.Event{
		Type:       events.TypeBadgeAwarded,
		UserID:     b.UserID,
		OccurredAt: b.AwardedAt,
		Data: map[string]string{
			"badge_id":   b.ID.String(),
			"badge_type": string(b.Type),
			"category":   string(b.Category),
		},
	})
	return b, nil
}

// Revoke soft-deletes an active badge. Revoking twice is a conflict.
func (s *Service) Revoke(ctx context.Context, badgeID id.BadgeID, revokedBy id.UserID, reason string) (*models.Badge, error) {
	reason = strings.TrimSpace(reason)
	var violations []string
	if badgeID.IsNil() {
		violations = append(violations, "badgeId is required")
	}
	if revokedBy.IsNil() {
		violations = append(violations, "revokedBy is required")
	}
	if reason == "" {
		violations = append(violations, "reason is required")
	}
	if len(violations) > 0 {
		return nil, dErrors.Validation("invalid badge revocation", violations...)
	}

	before, err := s.store.FindByID(ctx, badgeID)
	if err != nil {
		return nil, translate(err)
	}
	after, err := s.store.Revoke(ctx, badgeID, models.Revocation{
		RevokedBy: revokedBy,
		Reason:    reason,
		RevokedAt: requestcontext.Now(ctx),
	})
	if err != nil {
		return nil, translate(err)
	}

	s.appendAudit(ctx, after.UserID, audit.ActionRevoked, before, after, audit.Actor(revokedBy))
	if s.metrics != nil {
		s.metrics.Revocations.WithLabelValues(string(after.Category)).Inc()
	}
	s.publisher.Publish(ctx, events.Event{
		Type:       events.TypeBadgeRevoked,
		UserID:     after.UserID,
		OccurredAt: requestcontext.Now(ctx),
		Data: map[string]string{
			"badge_id":   after.ID.String(),
			"badge_type": string(after.Type),
			"category":   string(after.Category),
		},
	})
	return after, nil
}

// AutoAwardOnVerification grants the *_verified badge for a completed
// verification. An existing active badge is not an error.
func (s *Service) AutoAwardOnVerification(ctx context.Context, userID id.UserID, verificationType id.VerificationType, verified bool) error {
	if !verified {
		return nil
	}
	badgeType, ok := models.ForVerification(verificationType)
	if !ok {
		return dErrors.Validation("invalid verification type",
			fmt.Sprintf("verificationType %q has no badge", verificationType))
	}

	_, err := s.Award(ctx, models.AwardRequest{
		UserID:   userID,
		Type:     badgeType,
		Category: models.CategoryVerification,
		Metadata: map[string]string{"source": string(verificationType)},
	})
	if dErrors.HasCode(err, dErrors.CodeConflict) {
		logger.ForRequest(ctx, s.logger).Info("verification badge already active",
			zap.String("user_id", userID.String()),
			zap.String("badge_type", string(badgeType)))
		return nil
	}
	return err
}

// GetUserBadges splits the user's badges into active and revoked.
func (s *Service) GetUserBadges(ctx context.Context, userID id.UserID) (*models.UserBadges, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id required")
	}
	all, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list badges")
	}
	out := &models.UserBadges{
		Active:  make([]*models.Badge, 0),
		Revoked: make([]*models.Badge, 0),
	}
	for _, b := range all {
		if b.Active {
			out.Active = append(out.Active, b)
		} else {
			out.Revoked = append(out.Revoked, b)
		}
	}
	return out, nil
}

func (s *Service) ActiveCount(ctx context.Context, userID id.UserID) (int, error) {
	n, err := s.store.CountActive(ctx, userID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count badges")
	}
	return n, nil
}

func validateAward(req models.AwardRequest) []string {
	var violations []string
	if req.UserID.IsNil() {
		violations = append(violations, "userId is required")
	}
	switch {
	case !req.Category.IsValid():
		violations = append(violations, fmt.Sprintf("category %q is not a badge category", req.Category))
	case !req.Category.Allows(req.Type):
		violations = append(violations, fmt.Sprintf("badgeType %q is not valid for category %s", req.Type, req.Category))
	}
	if req.Category.RequiresAwarder() && (req.AwardedBy == nil || req.AwardedBy.IsNil()) {
		violations = append(violations, fmt.Sprintf("awardedBy is required for %s badges", req.Category))
	}
	return violations
}

func (s *Service) appendAudit(ctx context.Context, userID id.UserID, action audit.Action, prev, next *models.Badge, actor *id.UserID) {
	if s.audit == nil {
		return
	}
	entry := audit.Entry{
		UserID:           userID,
		VerificationType: id.VerificationBadge,
		Action:           action,
		Status:           audit.StatusSuccess,
		PerformedBy:      actor,
	}
	if prev != nil {
		entry.PreviousValue = audit.Snapshot(prev)
	}
	if next != nil {
		entry.NewValue = audit.Snapshot(next)
	}
	s.audit.Append(ctx, entry)
}

func (s *Service) countAward(c models.Category, outcome string) {
	if s.metrics != nil {
		s.metrics.Awards.WithLabelValues(string(c), outcome).Inc()
	}
}

func translate(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "badge not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "badge already revoked")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "badge store error")
	}
}
