package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"vouch/internal/audit"
	"vouch/internal/platform/logger"
	id "vouch/pkg/domain"
	dErrors "vouch/pkg/domain-errors"
	"vouch/pkg/platform/httputil"
)

type Service interface {
	Query(ctx context.Context, req audit.ListRequest) (*audit.ListResult, error)
	ForUser(ctx context.Context, userID id.UserID, req audit.ListRequest) (*audit.ListResult, error)
	Export(ctx context.Context, c audit.Criteria, w io.Writer) (*audit.ExportResult, error)
}

// entryView adds the parsed device to a stored entry. The raw user agent is
// kept alongside it.
type entryView struct {
	audit.Entry
	Device string `json:"device"`
}

type listResponse struct {
	Entries    []entryView `json:"entries"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"totalPages"`
}

func toListResponse(res *audit.ListResult) listResponse {
	out := listResponse{
		Entries:    make([]entryView, 0, len(res.Entries)),
		Total:      res.Total,
		Page:       res.Page,
		Limit:      res.Limit,
		TotalPages: res.TotalPages,
	}
	for _, e := range res.Entries {
		out.Entries = append(out.Entries, entryView{Entry: e, Device: audit.DeviceSummary(e.UserAgent)})
	}
	return out
}

type Handler struct {
	service Service
	logger  *zap.Logger
}

func New(service Service, log *zap.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// Register mounts the caller's own history.
func (h *Handler) Register(r chi.Router) {
	r.Get("/verification/audit/me", h.handleMine)
}

// RegisterAdmin mounts the cross-user query and CSV export.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/audit", h.handleQuery)
	r.Get("/admin/audit/export", h.handleExport)
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.CallerID(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := parseList(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.ForUser(r.Context(), userID, req)
	if err != nil {
		h.logFailure(r.Context(), "audit history failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(res))
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, err := parseList(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.Query(r.Context(), req)
	if err != nil {
		h.logFailure(r.Context(), "audit query failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(res))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	c, err := parseCriteria(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Buffered so a failure midway still produces a JSON error response.
	var buf bytes.Buffer
	res, err := h.service.Export(r.Context(), c, &buf)
	if err != nil {
		h.logFailure(r.Context(), "audit export failed", err)
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="audit-%s.csv"`, time.Now().UTC().Format("20060102T150405Z")))
	w.Header().Set("X-Export-Rows", strconv.Itoa(res.Rows))
	w.Header().Set("X-Export-Truncated", strconv.FormatBool(res.Truncated))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	log := logger.ForRequest(ctx, h.logger)
	if httputil.StatusFor(err) >= http.StatusInternalServerError {
		log.Error(msg, zap.Error(err))
		return
	}
	log.Debug(msg, zap.Error(err))
}

func parseList(q url.Values) (audit.ListRequest, error) {
	var violations []string
	c, err := parseCriteria(q)
	if err != nil {
		violations = append(violations, dErrors.Violations(err)...)
	}
	req := audit.ListRequest{Criteria: c, SortBy: q.Get("sortBy"), Order: q.Get("order")}
	if v := q.Get("page"); v != "" {
		if req.Page, err = strconv.Atoi(v); err != nil {
			violations = append(violations, "page must be an integer")
		}
	}
	if v := q.Get("limit"); v != "" {
		if req.Limit, err = strconv.Atoi(v); err != nil {
			violations = append(violations, "limit must be an integer")
		}
	}
	if len(violations) > 0 {
		return audit.ListRequest{}, dErrors.Validation("invalid audit query", violations...)
	}
	return req, nil
}

func parseCriteria(q url.Values) (audit.Criteria, error) {
	var violations []string
	c := audit.Criteria{
		VerificationType: id.VerificationType(q.Get("verificationType")),
		Action:           audit.Action(q.Get("action")),
		Status:           audit.Status(q.Get("status")),
		IPAddress:        q.Get("ipAddress"),
	}
	if v := q.Get("userId"); v != "" {
		userID, err := id.ParseUserID(v)
		if err != nil {
			violations = append(violations, "userId must be a UUID")
		} else {
			c.UserID = &userID
		}
	}
	if v := q.Get("performedBy"); v != "" {
		actor, err := id.ParseUserID(v)
		if err != nil {
			violations = append(violations, "performedBy must be a UUID")
		} else {
			c.PerformedBy = &actor
		}
	}
	for _, f := range []struct {
		name string
		dst  **time.Time
	}{{"from", &c.From}, {"to", &c.To}} {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			violations = append(violations, f.name+" must be an RFC 3339 timestamp")
			continue
		}
		*f.dst = &t
	}
	if len(violations) > 0 {
		return audit.Criteria{}, dErrors.Validation("invalid audit criteria", violations...)
	}
	return c, nil
}
