package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	docmodels "vouch/internal/document/models"
	"vouch/internal/platform/logger"
	"vouch/internal/workflow/models"
	id "vouch/pkg/domain"
	"vouch/pkg/platform/httputil"
)

// maxCompleteBody fits a base64 encoded document at the upload ceiling plus
// the other step fields.
const maxCompleteBody = (docmodels.MaxFileSize+2)/3*4 + 64<<10

type Service interface {
	GetStatus(ctx context.Context, userID id.UserID) (*models.Status, error)
	CompleteStep(ctx context.Context, userID id.UserID, stepID models.StepID, data map[string]string) (*models.Status, error)
}

type Handler struct {
	service Service
	logger  *zap.Logger
}

func New(service Service, log *zap.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/verification/workflow", h.handleStatus)
	r.With(middleware.RequestSize(maxCompleteBody)).
		Post("/verification/workflow/steps/{stepID}/complete", h.handleComplete)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.CallerID(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	st, err := h.service.GetStatus(r.Context(), userID)
	if err != nil {
		h.logFailure(r.Context(), "workflow status failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

type completeRequest struct {
	Data map[string]string `json:"data"`
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.CallerID(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req completeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	st, err := h.service.CompleteStep(ctx, userID, models.StepID(chi.URLParam(r, "stepID")), req.Data)
	if err != nil {
		h.logFailure(ctx, "workflow step failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	log := logger.ForRequest(ctx, h.logger)
	if httputil.StatusFor(err) >= http.StatusInternalServerError {
		log.Error(msg, zap.Error(err))
		return
	}
	log.Debug(msg, zap.Error(err))
}
