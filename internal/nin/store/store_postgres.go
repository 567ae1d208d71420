package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vouch/internal/nin/models"
	"vouch/internal/platform/postgres"
	id "vouch/pkg/domain"
	"vouch/pkg/platform/sentinel"
	txcontext "vouch/pkg/platform/tx"
)

const verifiedHashIndex = "nin_verifications_verified_hash"

const recordColumns = `user_id, encrypted_nin, nin_hash, first_name, middle_name, last_name,
	date_of_birth, gender, state_of_origin, status, method, provider_reference,
	failure_reason, raw_failure_reason, verified_at, attempt_token, attempt_started_at,
	attempts, created_at, updated_at`

// PostgresStore persists NIN records. Attempt ownership is enforced by
// conditional upserts; cross-user NIN uniqueness by a partial unique index.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) txcontext.Executor {
	return txcontext.Conn(ctx, s.db)
}

func (s *PostgresStore) FindByUser(ctx context.Context, userID id.UserID) (*models.Record, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM nin_verifications WHERE user_id = $1`, uuid.UUID(userID))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find nin record: %w", err)
	}
	return rec, nil
}

// BeginAttempt inserts a Pending record or takes over a Failed one, or a
// Pending one whose lease has expired. Anything else is a conflict.
func (s *PostgresStore) BeginAttempt(ctx context.Context, a models.Attempt) (*models.Record, error) {
	exec := s.execer(ctx)

	var taken bool
	if err := exec.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM nin_verifications WHERE nin_hash = $1 AND status = 'verified' AND user_id <> $2)`,
		a.NINHash, uuid.UUID(a.UserID),
	).Scan(&taken); err != nil {
		return nil, fmt.Errorf("check nin hash: %w", err)
	}
	if taken {
		return nil, models.ErrNINInUse
	}

	row := exec.QueryRowContext(ctx, `
		INSERT INTO nin_verifications
			(user_id, encrypted_nin, nin_hash, first_name, middle_name, last_name,
			 date_of_birth, gender, state_of_origin, status, method,
			 attempt_token, attempt_started_at, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending', 'api', $10, $11, 1, $11, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			encrypted_nin = EXCLUDED.encrypted_nin,
			nin_hash = EXCLUDED.nin_hash,
			first_name = EXCLUDED.first_name,
			middle_name = EXCLUDED.middle_name,
			last_name = EXCLUDED.last_name,
			date_of_birth = EXCLUDED.date_of_birth,
			gender = EXCLUDED.gender,
			state_of_origin = EXCLUDED.state_of_origin,
			status = 'pending',
			method = 'api',
			provider_reference = '',
			failure_reason = '',
			raw_failure_reason = '',
			attempt_token = EXCLUDED.attempt_token,
			attempt_started_at = EXCLUDED.attempt_started_at,
			attempts = nin_verifications.attempts + 1,
			updated_at = EXCLUDED.updated_at
		WHERE nin_verifications.status = 'failed'
		   OR (nin_verifications.status = 'pending' AND nin_verifications.attempt_started_at <= $12)
		RETURNING `+recordColumns,
		uuid.UUID(a.UserID), a.EncryptedNIN, a.NINHash, a.FirstName, a.MiddleName, a.LastName,
		a.DateOfBirth, a.Gender, a.StateOfOrigin, a.Token, a.StartedAt, a.StartedAt.Add(-a.LeaseTTL))
	rec, err := scanRecord(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("begin nin attempt: %w", err)
	}

	// The upsert matched an existing row it was not allowed to take over.
	var status string
	if err := exec.QueryRowContext(ctx,
		`SELECT status FROM nin_verifications WHERE user_id = $1`, uuid.UUID(a.UserID),
	).Scan(&status); err != nil {
		return nil, fmt.Errorf("read conflicting nin record: %w", err)
	}
	if models.Status(status) == models.StatusVerified {
		return nil, models.ErrAlreadyVerified
	}
	return nil, models.ErrAttemptInProgress
}

// Complete records the outcome only if the attempt token still owns the
// Pending record.
func (s *PostgresStore) Complete(ctx context.Context, o models.Outcome) (*models.Record, error) {
	var verifiedAt any
	if o.Status == models.StatusVerified {
		verifiedAt = o.CompletedAt
	}
	row := s.execer(ctx).QueryRowContext(ctx, `
		UPDATE nin_verifications SET
			status = $3,
			method = $4,
			provider_reference = $5,
			failure_reason = $6,
			raw_failure_reason = $7,
			verified_at = COALESCE($8, verified_at),
			updated_at = $9
		WHERE user_id = $1 AND attempt_token = $2 AND status = 'pending'
		RETURNING `+recordColumns,
		uuid.UUID(o.UserID), o.Token, string(o.Status), string(o.Method), o.ProviderReference,
		string(o.FailureReason), o.RawFailureReason, verifiedAt, o.CompletedAt)
	rec, err := scanRecord(row)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, models.ErrAttemptSuperseded
	case postgres.IsUniqueViolation(err, verifiedHashIndex):
		return nil, models.ErrNINInUse
	default:
		return nil, fmt.Errorf("complete nin attempt: %w", err)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		rec        models.Record
		userID     uuid.UUID
		status     string
		method     string
		failure    string
		verifiedAt sql.NullTime
		token      uuid.NullUUID
		startedAt  sql.NullTime
	)
	if err := row.Scan(&userID, &rec.EncryptedNIN, &rec.NINHash, &rec.FirstName, &rec.MiddleName,
		&rec.LastName, &rec.DateOfBirth, &rec.Gender, &rec.StateOfOrigin, &status, &method,
		&rec.ProviderReference, &failure, &rec.RawFailureReason, &verifiedAt, &token, &startedAt,
		&rec.Attempts, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.UserID = id.UserID(userID)
	rec.Status = models.Status(status)
	rec.Method = models.Method(method)
	rec.FailureReason = models.FailureReason(failure)
	if verifiedAt.Valid {
		t := verifiedAt.Time
		rec.VerifiedAt = &t
	}
	if token.Valid {
		rec.AttemptToken = token.UUID
	}
	if startedAt.Valid {
		t := startedAt.Time
		rec.AttemptStartedAt = &t
	}
	return &rec, nil
}
