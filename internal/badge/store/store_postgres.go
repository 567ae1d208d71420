package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vouch/internal/badge/models"
	"vouch/internal/platform/postgres"
	id "vouch/pkg/domain"
	"vouch/pkg/platform/sentinel"
	txcontext "vouch/pkg/platform/tx"
)

const oneActivePerTypeIndex = "badges_one_active_per_type"

const badgeColumns = `id, user_id, badge_type, category, awarded_by, awarded_at, is_active,
	revoked_at, revoked_by, revocation_reason, metadata`

// PostgresStore persists badges. A partial unique index on
// (user_id, badge_type) WHERE is_active makes award idempotent under races.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) txcontext.Executor {
	return txcontext.Conn(ctx, s.db)
}

func (s *PostgresStore) CreateIfNoActive(ctx context.Context, b *models.Badge) error {
	meta, err := encodeMetadata(b.Metadata)
	if err != nil {
		return err
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO badges (id, user_id, badge_type, category, awarded_by, awarded_at, is_active, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)`,
		uuid.UUID(b.ID), uuid.UUID(b.UserID), string(b.Type), string(b.Category),
		nullUserID(b.AwardedBy), b.AwardedAt, meta)
	if err != nil {
		if postgres.IsUniqueViolation(err, oneActivePerTypeIndex) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert badge: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+badgeColumns+` FROM badges WHERE id = $1`, uuid.UUID(badgeID))
	b, err := scanBadge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find badge: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Badge, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+badgeColumns+` FROM badges WHERE user_id = $1 ORDER BY awarded_at DESC`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Badge, 0)
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate badges: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CountActive(ctx context.Context, userID id.UserID) (int, error) {
	var n int
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM badges WHERE user_id = $1 AND is_active`, uuid.UUID(userID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active badges: %w", err)
	}
	return n, nil
}

// Revoke applies a conditional update. When no active row matches, a second
// read tells a missing badge apart from one already revoked.
func (s *PostgresStore) Revoke(ctx context.Context, badgeID id.BadgeID, r models.Revocation) (*models.Badge, error) {
	exec := s.execer(ctx)
	row := exec.QueryRowContext(ctx, `
		UPDATE badges
		SET is_active = FALSE, revoked_at = $2, revoked_by = $3, revocation_reason = $4
		WHERE id = $1 AND is_active
		RETURNING `+badgeColumns,
		uuid.UUID(badgeID), r.RevokedAt, uuid.UUID(r.RevokedBy), r.Reason)
	b, err := scanBadge(row)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("revoke badge: %w", err)
	}

	var exists bool
	if err := exec.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM badges WHERE id = $1)`, uuid.UUID(badgeID)).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check badge: %w", err)
	}
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return nil, sentinel.ErrInvalidState
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBadge(row rowScanner) (*models.Badge, error) {
	var (
		b         models.Badge
		badgeID   uuid.UUID
		userID    uuid.UUID
		badgeType string
		category  string
		awardedBy uuid.NullUUID
		revokedAt sql.NullTime
		revokedBy uuid.NullUUID
		meta      []byte
	)
	if err := row.Scan(&badgeID, &userID, &badgeType, &category, &awardedBy, &b.AwardedAt, &b.Active,
		&revokedAt, &revokedBy, &b.RevocationReason, &meta); err != nil {
		return nil, err
	}
	b.ID = id.BadgeID(badgeID)
	b.UserID = id.UserID(userID)
	b.Type = models.Type(badgeType)
	b.Category = models.Category(category)
	if awardedBy.Valid {
		u := id.UserID(awardedBy.UUID)
		b.AwardedBy = &u
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		b.RevokedAt = &t
	}
	if revokedBy.Valid {
		u := id.UserID(revokedBy.UUID)
		b.RevokedBy = &u
	}
	if len(meta) > 0 && string(meta) != "{}" {
		if err := json.Unmarshal(meta, &b.Metadata); err != nil {
			return nil, fmt.Errorf("decode badge metadata: %w", err)
		}
	}
	return &b, nil
}

func encodeMetadata(m map[string]string) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode badge metadata: %w", err)
	}
	return raw, nil
}

func nullUserID(u *id.UserID) uuid.NullUUID {
	if u == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*u), Valid: true}
}
