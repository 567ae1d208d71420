package audit

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"vouch/internal/audit/metrics"
	"vouch/internal/platform/logger"
	id "vouch/pkg/domain"
	dErrors "vouch/pkg/domain-errors"
	"vouch/pkg/requestcontext"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	defaultExportCap = 10000
	appendTimeout    = 3 * time.Second
)

// Store persists entries. Implementations expose no update or delete.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	Find(ctx context.Context, q Query) ([]Entry, error)
	Count(ctx context.Context, c Criteria) (int, error)
}

// Service is the verification audit trail.
type Service struct {
	store     Store
	logger    *zap.Logger
	metrics   *metrics.Metrics
	exportCap int
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

// WithExportCap bounds the number of rows a single export renders.
func WithExportCap(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.exportCap = n
		}
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: zap.NewNop(), exportCap: defaultExportCap}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append records entry. It never fails the caller: a write error is logged
// and counted, and the primary action proceeds. The write is detached from
// the caller's cancellation so a client disconnect does not lose the entry.
func (s *Service) Append(ctx context.Context, entry Entry) {
	if entry.ID.IsNil() {
		entry.ID = id.NewEntryID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = requestcontext.Now(ctx).UTC()
	}
	if entry.IPAddress == "" {
		entry.IPAddress = requestcontext.ClientIP(ctx)
	}
	if entry.UserAgent == "" {
		entry.UserAgent = requestcontext.UserAgent(ctx)
	}
	if entry.Status == "" {
		entry.Status = StatusSuccess
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), appendTimeout)
	defer cancel()

	if err := s.store.Append(writeCtx, entry); err != nil {
		logger.ForRequest(ctx, s.logger).Error("audit append failed",
			zap.Error(err),
			zap.String("entry_id", entry.ID.String()),
			zap.String("user_id", entry.UserID.String()),
			zap.String("verification_type", string(entry.VerificationType)),
			zap.String("action", string(entry.Action)),
		)
		if s.metrics != nil {
			s.metrics.IncrementAppendFailure(string(entry.VerificationType))
		}
		return
	}
	if s.metrics != nil {
		s.metrics.IncrementAppended(string(entry.VerificationType))
	}
}

// Query returns one page of entries matching req.
func (s *Service) Query(ctx context.Context, req ListRequest) (*ListResult, error) {
	q, page, err := normalizeList(req)
	if err != nil {
		return nil, err
	}

	total, err := s.store.Count(ctx, q.Criteria)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count audit entries")
	}
	entries, err := s.store.Find(ctx, q)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query audit entries")
	}

	totalPages := (total + q.Limit - 1) / q.Limit
	return &ListResult{
		Entries:    entries,
		Total:      total,
		Page:       page,
		Limit:      q.Limit,
		TotalPages: totalPages,
	}, nil
}

// ForUser is Query scoped to a single user's trail. Any user filter on req
// is replaced.
func (s *Service) ForUser(ctx context.Context, userID id.UserID, req ListRequest) (*ListResult, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id required")
	}
	req.Criteria.UserID = &userID
	return s.Query(ctx, req)
}

// Export renders every entry matching c, newest first, up to the safety
// cap. Truncated is set when more rows matched than were written.
func (s *Service) Export(ctx context.Context, c Criteria, w io.Writer) (*ExportResult, error) {
	if err := validateCriteria(c); err != nil {
		return nil, err
	}
	entries, err := s.store.Find(ctx, Query{Criteria: c, SortBy: SortCreatedAt, Desc: true, Limit: s.exportCap + 1})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit entries for export")
	}

	result := &ExportResult{TotalMatched: len(entries)}
	if len(entries) > s.exportCap {
		entries = entries[:s.exportCap]
		result.Truncated = true
		total, err := s.store.Count(ctx, c)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count audit entries")
		}
		result.TotalMatched = total
		if s.metrics != nil {
			s.metrics.IncrementExportTruncated()
		}
		logger.ForRequest(ctx, s.logger).Warn("audit export truncated",
			zap.Int("cap", s.exportCap),
			zap.Int("matched", total))
	}

	if err := WriteCSV(w, entries); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write audit export")
	}
	result.Rows = len(entries)
	return result, nil
}

func normalizeList(req ListRequest) (Query, int, error) {
	var violations []string
	if err := validateCriteria(req.Criteria); err != nil {
		violations = append(violations, dErrors.Violations(err)...)
	}

	page := req.Page
	if page == 0 {
		page = 1
	}
	if page < 1 {
		violations = append(violations, "page must be at least 1")
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultPageLimit
	}
	if limit < 1 || limit > maxPageLimit {
		violations = append(violations, fmt.Sprintf("limit must be between 1 and %d", maxPageLimit))
	}

	sortBy := SortCreatedAt
	switch SortField(req.SortBy) {
	case "":
	case SortCreatedAt, SortVerificationType, SortAction:
		sortBy = SortField(req.SortBy)
	default:
		violations = append(violations, "sortBy must be one of createdAt, verificationType, action")
	}

	desc := true
	switch req.Order {
	case "", "desc", "DESC":
	case "asc", "ASC":
		desc = false
	default:
		violations = append(violations, "order must be asc or desc")
	}

	if len(violations) > 0 {
		return Query{}, 0, dErrors.Validation("invalid audit query", violations...)
	}
	return Query{
		Criteria: req.Criteria,
		SortBy:   sortBy,
		Desc:     desc,
		Offset:   (page - 1) * limit,
		Limit:    limit,
	}, page, nil
}

func validateCriteria(c Criteria) error {
	var violations []string
	if c.VerificationType != "" {
		switch c.VerificationType {
		case id.VerificationNIN, id.VerificationDocument, id.VerificationBadge:
		default:
			violations = append(violations, "verificationType must be one of nin, document, badge")
		}
	}
	if c.Status != "" && c.Status != StatusSuccess && c.Status != StatusFailed {
		violations = append(violations, "status must be success or failed")
	}
	if c.From != nil && c.To != nil && c.From.After(*c.To) {
		violations = append(violations, "from must not be after to")
	}
	if len(violations) > 0 {
		return dErrors.Validation("invalid audit criteria", violations...)
	}
	return nil
}
