package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"vouch/internal/badge/models"
	"vouch/internal/platform/logger"
	id "vouch/pkg/domain"
	dErrors "vouch/pkg/domain-errors"
	"vouch/pkg/platform/httputil"
)

type Service interface {
	Award(ctx context.Context, req models.AwardRequest) (*models.Badge, error)
	Revoke(ctx context.Context, badgeID id.BadgeID, revokedBy id.UserID, reason string) (*models.Badge, error)
	GetUserBadges(ctx context.Context, userID id.UserID) (*models.UserBadges, error)
}

type Handler struct {
	service Service
	logger  *zap.Logger
}

func New(service Service, log *zap.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/badges/me", h.handleMine)
	r.Get("/users/{userID}/badges", h.handleForUser)
}

// RegisterAdmin mounts award and revoke. r must restrict roles.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/badges", h.handleAward)
	r.Post("/admin/badges/{badgeID}/revoke", h.handleRevoke)
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.CallerID(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.writeBadges(w, r, userID)
}

func (h *Handler) handleForUser(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}
	h.writeBadges(w, r, userID)
}

func (h *Handler) writeBadges(w http.ResponseWriter, r *http.Request, userID id.UserID) {
	badges, err := h.service.GetUserBadges(r.Context(), userID)
	if err != nil {
		h.logFailure(r.Context(), "list badges failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, badges)
}

type awardRequest struct {
	UserID   id.UserID         `json:"userId"`
	Type     models.Type       `json:"badgeType"`
	Category models.Category   `json:"category"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (h *Handler) handleAward(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adminID, err := httputil.CallerID(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req awardRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	badge, err := h.service.Award(ctx, models.AwardRequest{
		UserID:    req.UserID,
		Type:      req.Type,
		Category:  req.Category,
		AwardedBy: &adminID,
		Metadata:  req.Metadata,
	})
	if err != nil {
		h.logFailure(ctx, "award badge failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, badge)
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adminID, err := httputil.CallerID(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	badgeID, err := id.ParseBadgeID(chi.URLParam(r, "badgeID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid badge id"))
		return
	}
	var req revokeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	badge, err := h.service.Revoke(ctx, badgeID, adminID, req.Reason)
	if err != nil {
		h.logFailure(ctx, "revoke badge failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, badge)
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	log := logger.ForRequest(ctx, h.logger)
	if httputil.StatusFor(err) >= http.StatusInternalServerError {
		log.Error(msg, zap.Error(err))
		return
	}
	log.Debug(msg, zap.Error(err))
}
