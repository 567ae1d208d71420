package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	badgemodels "vouch/internal/badge/models"
	docmodels "vouch/internal/document/models"
	"vouch/internal/identity"
	ninmodels "vouch/internal/nin/models"
	"vouch/internal/platform/logger"
	"vouch/internal/workflow/models"
	id "vouch/pkg/domain"
	dErrors "vouch/pkg/domain-errors"
	"vouch/pkg/platform/sentinel"
)

const tracerName = "vouch/internal/workflow"

type NINService interface {
	Status(ctx context.Context, userID id.UserID) (*ninmodels.StatusResult, error)
	Initiate(ctx context.Context, userID id.UserID, claim ninmodels.Claim) (*ninmodels.StatusResult, error)
}

type DocumentService interface {
	List(ctx context.Context, userID id.UserID) ([]*docmodels.Document, error)
	Upload(ctx context.Context, userID id.UserID, req docmodels.UploadRequest) (*docmodels.Document, error)
}

type BadgeService interface {
	GetUserBadges(ctx context.Context, userID id.UserID) (*badgemodels.UserBadges, error)
}

// Service derives the verification checklist from the subsystems' current
// state. It persists nothing of its own.
type Service struct {
	nin    NINService
	docs   DocumentService
	badges BadgeService
	users  identity.Reader
	logger *zap.Logger
	tracer trace.Tracer
}

type Option func(*Service)

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		s.logger = log
	}
}

func New(nin NINService, docs DocumentService, badges BadgeService, users identity.Reader, opts ...Option) *Service {
	s := &Service{
		nin:    nin,
		docs:   docs,
		badges: badges,
		users:  users,
		logger: zap.NewNop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type snapshot struct {
	nin    *ninmodels.StatusResult
	docs   []*docmodels.Document
	badges *badgemodels.UserBadges
	user   *identity.User
}

func (s *Service) GetStatus(ctx context.Context, userID id.UserID) (*models.Status, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id required")
	}
	ctx, span := s.tracer.Start(ctx, "workflow.status", trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()

	snap, err := s.read(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "subsystem read failed")
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		if _, ok := dErrors.As(err); ok {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read verification status")
	}

	st := models.NewStatus(snap.steps())
	span.SetAttributes(attribute.Int("workflow.progress", st.Progress))
	return st, nil
}

// read fans out to every subsystem; any failure fails the whole read.
func (s *Service) read(ctx context.Context, userID id.UserID) (*snapshot, error) {
	g, ctx := errgroup.WithContext(ctx)
	snap := &snapshot{}

	g.Go(func() error {
		st, err := s.nin.Status(ctx, userID)
		snap.nin = st
		return err
	})
	g.Go(func() error {
		docs, err := s.docs.List(ctx, userID)
		snap.docs = docs
		return err
	})
	g.Go(func() error {
		b, err := s.badges.GetUserBadges(ctx, userID)
		snap.badges = b
		return err
	})
	g.Go(func() error {
		u, err := s.users.Get(ctx, userID)
		snap.user = u
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (snap *snapshot) steps() []models.Step {
	out := make([]models.Step, 0, len(models.Steps))
	for _, d := range models.Steps {
		out = append(out, models.Step{
			ID:          d.ID,
			Title:       d.Title,
			Description: d.Description,
			Required:    d.Required,
			Status:      snap.status(d.ID),
		})
	}
	return out
}

func (snap *snapshot) status(stepID models.StepID) models.StepStatus {
	switch stepID {
	case models.StepProfileCompletion:
		if snap.hasActivity() {
			return models.StepCompleted
		}
	case models.StepNINVerification:
		switch snap.nin.Status {
		case ninmodels.StatusVerified:
			return models.StepCompleted
		case ninmodels.StatusPending:
			return models.StepInProgress
		case ninmodels.StatusFailed:
			return models.StepFailed
		}
	case models.StepDocumentUpload:
		return documentStatus(snap.docs)
	case models.StepPhoneVerification:
		if snap.user.PhoneVerified {
			return models.StepCompleted
		}
	case models.StepAddressVerification:
		if len(snap.user.Neighborhoods) > 0 {
			return models.StepCompleted
		}
	}
	return models.StepPending
}

// hasActivity is the profile-completion proxy: any verification signal at all.
func (snap *snapshot) hasActivity() bool {
	return snap.nin.Status != ninmodels.StatusNotStarted ||
		len(snap.docs) > 0 ||
		len(snap.badges.Active)+len(snap.badges.Revoked) > 0 ||
		snap.user.PhoneVerified
}

func documentStatus(docs []*docmodels.Document) models.StepStatus {
	if len(docs) == 0 {
		return models.StepPending
	}
	pending := false
	for _, d := range docs {
		if d.IsVerified {
			return models.StepCompleted
		}
		if d.IsPending() {
			pending = true
		}
	}
	if pending {
		return models.StepInProgress
	}
	return models.StepFailed
}

// CompleteStep dispatches a completable step to its subsystem and returns the
// recomputed checklist. Subsystem errors are returned unchanged.
func (s *Service) CompleteStep(ctx context.Context, userID id.UserID, stepID models.StepID, data map[string]string) (*models.Status, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id required")
	}
	def, ok := models.Lookup(stepID)
	if !ok {
		return nil, dErrors.Validation("invalid workflow step", fmt.Sprintf("step %q does not exist", stepID))
	}
	if !def.Completable {
		return nil, dErrors.Validation("invalid workflow step", fmt.Sprintf("step %q cannot be completed here", stepID))
	}

	log := logger.ForRequest(ctx, s.logger).With(zap.String("user_id", userID.String()), zap.String("step", string(stepID)))
	switch stepID {
	case models.StepNINVerification:
		claim, err := ninClaim(data)
		if err != nil {
			return nil, err
		}
		if _, err := s.nin.Initiate(ctx, userID, claim); err != nil {
			log.Info("workflow step failed", zap.Error(err))
			return nil, err
		}
	case models.StepDocumentUpload:
		req, err := uploadRequest(data)
		if err != nil {
			return nil, err
		}
		if _, err := s.docs.Upload(ctx, userID, req); err != nil {
			log.Info("workflow step failed", zap.Error(err))
			return nil, err
		}
	}
	return s.GetStatus(ctx, userID)
}

var (
	ninFields      = []string{"nin", "firstName", "lastName", "dateOfBirth", "gender", "stateOfOrigin"}
	documentFields = []string{"type", "mimeType", "file"}
)

func missing(data map[string]string, fields []string) []string {
	var out []string
	for _, f := range fields {
		if strings.TrimSpace(data[f]) == "" {
			out = append(out, f+" is required")
		}
	}
	return out
}

func ninClaim(data map[string]string) (ninmodels.Claim, error) {
	if m := missing(data, ninFields); len(m) > 0 {
		return ninmodels.Claim{}, dErrors.Validation("missing step data", m...)
	}
	return ninmodels.Claim{
		NIN:           data["nin"],
		FirstName:     data["firstName"],
		MiddleName:    data["middleName"],
		LastName:      data["lastName"],
		DateOfBirth:   data["dateOfBirth"],
		Gender:        data["gender"],
		StateOfOrigin: data["stateOfOrigin"],
	}, nil
}

// uploadRequest decodes the document step data. file is standard base64.
func uploadRequest(data map[string]string) (docmodels.UploadRequest, error) {
	if m := missing(data, documentFields); len(m) > 0 {
		return docmodels.UploadRequest{}, dErrors.Validation("missing step data", m...)
	}
	raw, err := base64.StdEncoding.DecodeString(data["file"])
	if err != nil {
		return docmodels.UploadRequest{}, dErrors.Validation("invalid step data", "file must be base64 encoded")
	}
	req := docmodels.UploadRequest{
		Type:   docmodels.Type(data["type"]),
		Number: data["number"],
		File:   docmodels.File{Data: raw, Size: int64(len(raw)), MimeType: data["mimeType"]},
	}
	if v := data["expiresAt"]; v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return docmodels.UploadRequest{}, dErrors.Validation("invalid step data", "expiresAt must be a date in 2006-01-02 format")
		}
		req.ExpiresAt = &t
	}
	return req, nil
}
