package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"vouch/internal/platform/logger"
	"vouch/internal/trust/score"
	id "vouch/pkg/domain"
	dErrors "vouch/pkg/domain-errors"
	"vouch/pkg/platform/httputil"
)

type Service interface {
	Get(ctx context.Context, userID id.UserID) (*score.Breakdown, error)
	Weights() score.Weights
}

type Handler struct {
	service Service
	logger  *zap.Logger
}

func New(service Service, log *zap.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/trust-score/me", h.handleMine)
	r.Get("/trust-score/weights", h.handleWeights)
	r.Get("/users/{userID}/trust-score", h.handleForUser)
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.CallerID(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.writeScore(w, r, userID)
}

func (h *Handler) handleForUser(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}
	h.writeScore(w, r, userID)
}

func (h *Handler) writeScore(w http.ResponseWriter, r *http.Request, userID id.UserID) {
	b, err := h.service.Get(r.Context(), userID)
	if err != nil {
		if httputil.StatusFor(err) >= http.StatusInternalServerError {
			logger.ForRequest(r.Context(), h.logger).Error("trust score failed", zap.Error(err))
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) handleWeights(w http.ResponseWriter, _ *http.Request) {
	weights := h.service.Weights()
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"weights":  weights,
		"maxScore": weights.MaxScore(),
	})
}
