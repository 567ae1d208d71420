package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"vouch/internal/nin/models"
	"vouch/internal/platform/logger"
	id "vouch/pkg/domain"
	dErrors "vouch/pkg/domain-errors"
	"vouch/pkg/platform/httputil"
)

type Service interface {
	Initiate(ctx context.Context, userID id.UserID, claim models.Claim) (*models.StatusResult, error)
	Status(ctx context.Context, userID id.UserID) (*models.StatusResult, error)
	Details(ctx context.Context, userID id.UserID) (*models.Details, error)
}

// Handler serves the caller's own NIN verification.
type Handler struct {
	service Service
	logger  *zap.Logger
}

func New(service Service, log *zap.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// Register mounts the routes on r, which must already authenticate callers.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verification/nin", h.handleInitiate)
	r.Get("/verification/nin/status", h.handleStatus)
	r.Get("/verification/nin", h.handleDetails)
}

func (h *Handler) handleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.CallerID(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var claim models.Claim
	if err := httputil.DecodeJSON(r, &claim); err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.Initiate(ctx, userID, claim)
	if err != nil {
		h.logFailure(ctx, "nin initiate failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.CallerID(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.Status(r.Context(), userID)
	if err != nil {
		h.logFailure(r.Context(), "nin status failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleDetails(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.CallerID(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.Details(r.Context(), userID)
	if err != nil {
		h.logFailure(r.Context(), "nin details failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// logFailure logs server-side faults at error level and client faults at
// debug so rejected input does not flood the logs.
func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	log := logger.ForRequest(ctx, h.logger)
	if httputil.StatusFor(err) >= http.StatusInternalServerError {
		log.Error(msg, zap.Error(err), zap.String("code", string(dErrors.CodeOf(err))))
		return
	}
	log.Debug(msg, zap.Error(err), zap.String("code", string(dErrors.CodeOf(err))))
}
