package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"vouch/internal/document/models"
	"vouch/internal/platform/logger"
	id "vouch/pkg/domain"
	dErrors "vouch/pkg/domain-errors"
	"vouch/pkg/platform/httputil"
	"vouch/pkg/requestcontext"
)

// multipartOverhead is headroom for form fields and boundaries on top of
// the file itself.
const multipartOverhead = 1 << 20

type Service interface {
	Upload(ctx context.Context, userID id.UserID, req models.UploadRequest) (*models.Document, error)
	Verify(ctx context.Context, docID id.DocumentID, isVerified bool, reviewerID id.UserID, rejectionReason string) (*models.Document, error)
	Delete(ctx context.Context, docID id.DocumentID, userID id.UserID) error
	Stats(ctx context.Context, userID id.UserID) (*models.Stats, error)
	List(ctx context.Context, userID id.UserID) ([]*models.Document, error)
	Get(ctx context.Context, docID id.DocumentID) (*models.Document, error)
}

type Handler struct {
	service       Service
	logger        *zap.Logger
	reviewerRoles []string
}

func New(service Service, log *zap.Logger, reviewerRoles ...string) *Handler {
	return &Handler{service: service, logger: log, reviewerRoles: reviewerRoles}
}

// Register mounts the owner-facing routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verification/documents", h.handleUpload)
	r.Get("/verification/documents", h.handleList)
	r.Get("/verification/documents/stats", h.handleStats)
	r.Get("/verification/documents/{documentID}", h.handleGet)
	r.Delete("/verification/documents/{documentID}", h.handleDelete)
}

// RegisterReview mounts the reviewer routes. r must restrict roles.
func (h *Handler) RegisterReview(r chi.Router) {
	r.Post("/admin/documents/{documentID}/review", h.handleReview)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.CallerID(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, err := readUpload(w, r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	doc, err := h.service.Upload(ctx, userID, req)
	if err != nil {
		h.logFailure(ctx, "document upload failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, doc)
}

func readUpload(w http.ResponseWriter, r *http.Request) (models.UploadRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, models.MaxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return models.UploadRequest{}, dErrors.Validation("invalid document upload",
				fmt.Sprintf("size must be between 1 and %d bytes", models.MaxFileSize))
		}
		return models.UploadRequest{}, dErrors.New(dErrors.CodeBadRequest, "expected multipart/form-data body")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return models.UploadRequest{}, dErrors.Validation("invalid document upload", "file is required")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return models.UploadRequest{}, dErrors.New(dErrors.CodeBadRequest, "failed to read uploaded file")
	}

	req := models.UploadRequest{
		Type:   models.Type(r.FormValue("type")),
		Number: r.FormValue("number"),
		File: models.File{
			Data:     data,
			Size:     header.Size,
			MimeType: header.Header.Get("Content-Type"),
		},
	}
	if v := strings.TrimSpace(r.FormValue("expiresAt")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return models.UploadRequest{}, dErrors.Validation("invalid document upload", "expiresAt must be a date in 2006-01-02 format")
		}
		req.ExpiresAt = &t
	}
	return req, nil
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.CallerID(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	docs, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.logFailure(r.Context(), "document list failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.CallerID(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		h.logFailure(r.Context(), "document stats failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// handleGet serves the document to its owner or to a reviewer. Anyone else
// sees not found.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.CallerID(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	docID, err := documentID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.service.Get(ctx, docID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if doc.UserID != userID && !h.isReviewer(ctx) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "document not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.CallerID(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	docID, err := documentID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Delete(ctx, docID, userID); err != nil {
		h.logFailure(ctx, "document delete failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reviewRequest struct {
	IsVerified      *bool  `json:"isVerified"`
	RejectionReason string `json:"rejectionReason,omitempty"`
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reviewerID, err := httputil.CallerID(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	docID, err := documentID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req reviewRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.IsVerified == nil {
		httputil.WriteError(w, dErrors.Validation("invalid document review", "isVerified is required"))
		return
	}

	doc, err := h.service.Verify(ctx, docID, *req.IsVerified, reviewerID, req.RejectionReason)
	if err != nil {
		h.logFailure(ctx, "document review failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) isReviewer(ctx context.Context) bool {
	role := requestcontext.Role(ctx)
	for _, allowed := range h.reviewerRoles {
		if role == allowed {
			return true
		}
	}
	return false
}

func documentID(r *http.Request) (id.DocumentID, error) {
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		return id.DocumentID{}, dErrors.New(dErrors.CodeBadRequest, "invalid document id")
	}
	return docID, nil
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	log := logger.ForRequest(ctx, h.logger)
	if httputil.StatusFor(err) >= http.StatusInternalServerError {
		log.Error(msg, zap.Error(err))
		return
	}
	log.Debug(msg, zap.Error(err))
}
