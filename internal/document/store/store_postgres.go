package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vouch/internal/document/models"
	"vouch/internal/platform/postgres"
	id "vouch/pkg/domain"
	"vouch/pkg/platform/sentinel"
	txcontext "vouch/pkg/platform/tx"
)

const oneVerifiedPerTypeIndex = "identity_documents_one_verified_per_type"

const documentColumns = `id, user_id, doc_type, doc_number, blob_key, url, file_size, mime_type,
	is_verified, verified_at, verified_by, rejection_reason, expires_at, uploaded_at`

// PostgresStore persists documents. A partial unique index on
// (user_id, doc_type) WHERE is_verified enforces type exclusivity at write.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) txcontext.Executor {
	return txcontext.Conn(ctx, s.db)
}

func (s *PostgresStore) Create(ctx context.Context, d *models.Document) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO identity_documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		uuid.UUID(d.ID), uuid.UUID(d.UserID), string(d.Type), d.Number, d.BlobKey, d.URL, d.FileSize,
		d.MimeType, d.IsVerified, d.VerifiedAt, nullUserID(d.VerifiedBy), d.RejectionReason, d.ExpiresAt, d.UploadedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM identity_documents WHERE id = $1`, uuid.UUID(docID))
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Document, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+documentColumns+` FROM identity_documents WHERE user_id = $1 ORDER BY uploaded_at DESC, id`,
		uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) HasVerified(ctx context.Context, userID id.UserID, docType models.Type) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM identity_documents WHERE user_id = $1 AND doc_type = $2 AND is_verified)`,
		uuid.UUID(userID), string(docType)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check verified document: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) SetVerification(ctx context.Context, docID id.DocumentID, r models.Review) (*models.Document, error) {
	reason := r.RejectionReason
	if r.IsVerified {
		reason = ""
	}
	row := s.execer(ctx).QueryRowContext(ctx, `
		UPDATE identity_documents
		SET is_verified = $2, verified_at = $3, verified_by = $4, rejection_reason = $5
		WHERE id = $1
		RETURNING `+documentColumns,
		uuid.UUID(docID), r.IsVerified, r.ReviewedAt, uuid.UUID(r.ReviewerID), reason)
	d, err := scanDocument(row)
	switch {
	case err == nil:
		return d, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, sentinel.ErrNotFound
	case postgres.IsUniqueViolation(err, oneVerifiedPerTypeIndex):
		return nil, sentinel.ErrConflict
	default:
		return nil, fmt.Errorf("update document verification: %w", err)
	}
}

func (s *PostgresStore) Delete(ctx context.Context, docID id.DocumentID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM identity_documents WHERE id = $1`, uuid.UUID(docID))
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		d          models.Document
		docID      uuid.UUID
		userID     uuid.UUID
		docType    string
		verifiedAt sql.NullTime
		verifiedBy uuid.NullUUID
		expiresAt  sql.NullTime
	)
	if err := row.Scan(&docID, &userID, &docType, &d.Number, &d.BlobKey, &d.URL, &d.FileSize, &d.MimeType,
		&d.IsVerified, &verifiedAt, &verifiedBy, &d.RejectionReason, &expiresAt, &d.UploadedAt); err != nil {
		return nil, err
	}
	d.ID = id.DocumentID(docID)
	d.UserID = id.UserID(userID)
	d.Type = models.Type(docType)
	if verifiedAt.Valid {
		t := verifiedAt.Time
		d.VerifiedAt = &t
	}
	if verifiedBy.Valid {
		by := id.UserID(verifiedBy.UUID)
		d.VerifiedBy = &by
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		d.ExpiresAt = &t
	}
	return &d, nil
}

func nullUserID(u *id.UserID) uuid.NullUUID {
	if u == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*u), Valid: true}
}
