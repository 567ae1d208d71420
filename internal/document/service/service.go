package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"vouch/internal/audit"
	"vouch/internal/document/blobstore"
	"vouch/internal/document/metrics"
	"vouch/internal/document/models"
	"vouch/internal/events"
	"vouch/internal/platform/logger"
	id "vouch/pkg/domain"
	dErrors "vouch/pkg/domain-errors"
	"vouch/pkg/platform/sentinel"
	"vouch/pkg/platform/validation"
	"vouch/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, docID id.DocumentID) (*models.Document, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Document, error)
	HasVerified(ctx context.Context, userID id.UserID, docType models.Type) (bool, error)
	SetVerification(ctx context.Context, docID id.DocumentID, review models.Review) (*models.Document, error)
	Delete(ctx context.Context, docID id.DocumentID) error
}

type AuditLogger interface {
	Append(ctx context.Context, entry audit.Entry)
}

type BadgeAwarder interface {
	AutoAwardOnVerification(ctx context.Context, userID id.UserID, verificationType id.VerificationType, verified bool) error
}

// Service handles identity document upload, review and removal.
type Service struct {
	store     Store
	blobs     blobstore.Store
	validator *validation.Validator
	audit     AuditLogger
	badges    BadgeAwarder
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

func New(store Store, blobs blobstore.Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		blobs:     blobs,
		validator: models.NewUploadValidator(),
		publisher: events.Noop{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload validates the file before touching the blob store, refuses a type
// the user already holds verified, then stores the blob and the record.
func (s *Service) Upload(ctx context.Context, userID id.UserID, req models.UploadRequest) (*models.Document, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user id required")
	}
	if declared := req.File.Size; declared != 0 && declared != int64(len(req.File.Data)) {
		s.countUpload("rejected")
		return nil, dErrors.Validation("invalid document upload",
			fmt.Sprintf("file size %d does not match the %d bytes received", declared, len(req.File.Data)))
	}
	req.File.Size = int64(len(req.File.Data))
	req.Number = strings.TrimSpace(req.Number)
	if violations := s.validator.Struct(ctx, req); len(violations) > 0 {
		s.countUpload("rejected")
		return nil, dErrors.Validation("invalid document upload", violations...)
	}

	has, err := s.store.HasVerified(ctx, userID, req.Type)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing documents")
	}
	if has {
		s.countUpload("conflict")
		return nil, dErrors.New(dErrors.CodeConflict, "a verified document of this type already exists")
	}

	log := logger.ForRequest(ctx, s.logger).With(zap.String("user_id", userID.String()))
	obj, err := s.blobs.Upload(ctx, req.File.Data, userID, false, req.File.MimeType)
	if err != nil {
		s.countUpload("blob_error")
		log.Error("document blob upload failed", zap.Error(err))
		return nil, dErrors.Upstream(err, "blob_store_unavailable", true, "failed to store document")
	}

	doc := &models.Document{
		ID:         id.NewDocumentID(),
		UserID:     userID,
		Type:       req.Type,
		Number:     req.Number,
		BlobKey:    obj.Key,
		URL:        obj.URL,
		FileSize:   req.File.Size,
		MimeType:   req.File.MimeType,
		ExpiresAt:  req.ExpiresAt,
		UploadedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, doc); err != nil {
		s.removeOrphan(ctx, log, obj.Key)
		s.countUpload("store_error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save document")
	}

	s.appendAudit(ctx, doc.UserID, audit.ActionUploaded, audit.StatusSuccess, nil, docView(doc), audit.Actor(userID))
	s.countUpload("success")
	return doc, nil
}

// Verify records a reviewer decision. Rejection needs a reason; approval
// triggers the document badge.
func (s *Service) Verify(ctx context.Context, docID id.DocumentID, isVerified bool, reviewerID id.UserID, rejectionReason string) (*models.Document, error) {
	rejectionReason = strings.TrimSpace(rejectionReason)
	var violations []string
	if docID.IsNil() {
		violations = append(violations, "documentId is required")
	}
	if reviewerID.IsNil() {
		violations = append(violations, "reviewerId is required")
	}
	if !isVerified && rejectionReason == "" {
		violations = append(violations, "rejectionReason is required when rejecting a document")
	}
	if len(violations) > 0 {
		return nil, dErrors.Validation("invalid document review", violations...)
	}

	current, err := s.store.FindByID(ctx, docID)
	if err != nil {
		return nil, translate(err, "document not found")
	}
	if isVerified && current.IsVerified {
		return nil, dErrors.New(dErrors.CodeConflict, "document already verified")
	}

	updated, err := s.store.SetVerification(ctx, docID, models.Review{
		IsVerified:      isVerified,
		ReviewerID:      reviewerID,
		RejectionReason: rejectionReason,
		ReviewedAt:      requestcontext.Now(ctx),
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "user already has a verified document of this type")
		}
		return nil, translate(err, "document not found")
	}

	action, result := audit.ActionVerified, "verified"
	if !isVerified {
		action, result = audit.ActionRejected, "rejected"
	}
	s.appendAudit(ctx, updated.UserID, action, audit.StatusSuccess, docView(current), docView(updated), audit.Actor(reviewerID))
	if s.metrics != nil {
		s.metrics.Reviews.WithLabelValues(result).Inc()
	}

	if !isVerified {
		s.publishChange(ctx, events.TypeVerificationChanged, updated, result)
		return updated, nil
	}
	if s.badges != nil {
		if err := s.badges.AutoAwardOnVerification(ctx, updated.UserID, id.VerificationDocument, true); err != nil {
			logger.ForRequest(ctx, s.logger).Warn("document badge auto-award failed",
				zap.Error(err), zap.String("user_id", updated.UserID.String()))
		}
	}
	s.publishChange(ctx, events.TypeVerificationCompleted, updated, result)
	return updated, nil
}

// Delete removes the owner's document record, then its blob. A blob delete
// failure is logged and counted; the record stays deleted. Badges already
// awarded are not revoked.
func (s *Service) Delete(ctx context.Context, docID id.DocumentID, userID id.UserID) error {
	if docID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "document id required")
	}
	doc, err := s.store.FindByID(ctx, docID)
	if err != nil {
		return translate(err, "document not found")
	}
	if doc.UserID != userID {
		return dErrors.New(dErrors.CodeForbidden, "only the owner may delete this document")
	}
	if err := s.store.Delete(ctx, docID); err != nil {
		return translate(err, "document not found")
	}

	log := logger.ForRequest(ctx, s.logger).With(zap.String("document_id", docID.String()))
	if err := s.blobs.Delete(context.WithoutCancel(ctx), doc.BlobKey); err != nil {
		log.Warn("document blob delete failed", zap.Error(err), zap.String("blob_key", doc.BlobKey))
		if s.metrics != nil {
			s.metrics.BlobDeleteFail.Inc()
		}
	}
	s.appendAudit(ctx, doc.UserID, audit.ActionDeleted, audit.StatusSuccess, docView(doc), nil, audit.Actor(userID))
	s.publishChange(ctx, events.TypeVerificationChanged, doc, "deleted")
	return nil
}

func (s *Service) Stats(ctx context.Context, userID id.UserID) (*models.Stats, error) {
	docs, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	st := models.ComputeStats(docs)
	return &st, nil
}

// List returns the user's documents, newest first.
func (s *Service) List(ctx context.Context, userID id.UserID) ([]*models.Document, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id required")
	}
	docs, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}
	return docs, nil
}

func (s *Service) Get(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	doc, err := s.store.FindByID(ctx, docID)
	if err != nil {
		return nil, translate(err, "document not found")
	}
	return doc, nil
}

// VerifiedCount is the number of the user's verified documents.
func (s *Service) VerifiedCount(ctx context.Context, userID id.UserID) (int, error) {
	docs, err := s.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, d := range docs {
		if d.IsVerified {
			n++
		}
	}
	return n, nil
}

func (s *Service) publishChange(ctx context.Context, eventType string, doc *models.Document, status string) {
	s.publisher.Publish(ctx, events.Event{
		Type:       eventType,
		UserID:     doc.UserID,
		OccurredAt: requestcontext.Now(ctx),
		Data: map[string]string{
			"verification_type": string(id.VerificationDocument),
			"document_id":       doc.ID.String(),
			"document_type":     string(doc.Type),
			"status":            status,
		},
	})
}

func (s *Service) removeOrphan(ctx context.Context, log *zap.Logger, key string) {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		log.Error("orphaned document blob", zap.Error(err), zap.String("blob_key", key))
		if s.metrics != nil {
			s.metrics.OrphanedBlobs.Inc()
		}
	}
}

func (s *Service) appendAudit(ctx context.Context, userID id.UserID, action audit.Action, status audit.Status, prev, next any, actor *id.UserID) {
	if s.audit == nil {
		return
	}
	s.audit.Append(ctx, audit.Entry{
		UserID:           userID,
		VerificationType: id.VerificationDocument,
		Action:           action,
		Status:           status,
		PreviousValue:    audit.Snapshot(prev),
		NewValue:         audit.Snapshot(next),
		PerformedBy:      actor,
	})
}

func (s *Service) countUpload(outcome string) {
	if s.metrics != nil {
		s.metrics.Uploads.WithLabelValues(outcome).Inc()
	}
}

type documentView struct {
	ID              id.DocumentID `json:"id"`
	Type            models.Type   `json:"type"`
	IsVerified      bool          `json:"isVerified"`
	RejectionReason string        `json:"rejectionReason,omitempty"`
	MimeType        string        `json:"mimeType"`
	FileSize        int64         `json:"fileSize"`
}

func docView(d *models.Document) any {
	if d == nil {
		return nil
	}
	return documentView{
		ID:              d.ID,
		Type:            d.Type,
		IsVerified:      d.IsVerified,
		RejectionReason: d.RejectionReason,
		MimeType:        d.MimeType,
		FileSize:        d.FileSize,
	}
}

func translate(err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "document state conflict")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "document store error")
	}
}
