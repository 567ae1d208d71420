package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"vouch/internal/audit"
	id "vouch/pkg/domain"
	txcontext "vouch/pkg/platform/tx"
)

// Store is the append-only Postgres audit store. The table also carries a
// trigger rejecting UPDATE and DELETE.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) execer(ctx context.Context) txcontext.Executor {
	return txcontext.Conn(ctx, s.db)
}

var sortColumns = map[audit.SortField]string{
	audit.SortCreatedAt:        "created_at",
	audit.SortVerificationType: "verification_type",
	audit.SortAction:           "action",
}

func (s *Store) Append(ctx context.Context, e audit.Entry) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO verification_audit_entries
			(id, user_id, verification_type, action, status, previous_value, new_value,
			 performed_by, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.UUID(e.ID), uuid.UUID(e.UserID), string(e.VerificationType), string(e.Action), string(e.Status),
		nullJSON(e.PreviousValue), nullJSON(e.NewValue), nullUUID(e.PerformedBy),
		e.IPAddress, e.UserAgent, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *Store) Find(ctx context.Context, q audit.Query) ([]audit.Entry, error) {
	where, args := buildWhere(q.Criteria)
	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if q.Desc {
		direction = "DESC"
	}

	query := `SELECT id, user_id, verification_type, action, status, previous_value, new_value,
		performed_by, ip_address, user_agent, created_at
		FROM verification_audit_entries` + where +
		fmt.Sprintf(" ORDER BY %s %s, id %s", column, direction, direction)
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *Store) Count(ctx context.Context, c audit.Criteria) (int, error) {
	where, args := buildWhere(c)
	var n int
	if err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM verification_audit_entries`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return n, nil
}

func buildWhere(c audit.Criteria) (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if c.UserID != nil {
		add("user_id = $%d", uuid.UUID(*c.UserID))
	}
	if c.VerificationType != "" {
		add("verification_type = $%d", string(c.VerificationType))
	}
	if c.Action != "" {
		add("action = $%d", string(c.Action))
	}
	if c.Status != "" {
		add("status = $%d", string(c.Status))
	}
	if c.PerformedBy != nil {
		add("performed_by = $%d", uuid.UUID(*c.PerformedBy))
	}
	if c.IPAddress != "" {
		add("ip_address = $%d", c.IPAddress)
	}
	if c.From != nil {
		add("created_at >= $%d", *c.From)
	}
	if c.To != nil {
		add("created_at <= $%d", *c.To)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	entries := make([]audit.Entry, 0)
	for rows.Next() {
		var (
			e                 audit.Entry
			entryID, userID   uuid.UUID
			verificationType  string
			action, status    string
			previous, current []byte
			performedBy       uuid.NullUUID
		)
		if err := rows.Scan(&entryID, &userID, &verificationType, &action, &status, &previous, &current,
			&performedBy, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.ID = id.EntryID(entryID)
		e.UserID = id.UserID(userID)
		e.VerificationType = id.VerificationType(verificationType)
		e.Action = audit.Action(action)
		e.Status = audit.Status(status)
		e.PreviousValue = previous
		e.NewValue = current
		if performedBy.Valid {
			actor := id.UserID(performedBy.UUID)
			e.PerformedBy = &actor
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func nullUUID(u *id.UserID) any {
	if u == nil {
		return nil
	}
	return uuid.UUID(*u)
}
