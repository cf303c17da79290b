package verification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// StageUpdate is the persisted outcome of one stage verification.
type StageUpdate struct {
	Status          StageStatus
	Reference       string
	SessionID       string
	MatchScore      *float64
	RejectionReason string
	FullyCertified  bool
	Evidence        Evidence
}

// Repository defines the interface for verification state access
type Repository interface {
	GetOrCreate(ctx context.Context, subjectID uuid.UUID) (*VerificationRecord, error)
	ApplyStageUpdate(ctx context.Context, subjectID uuid.UUID, stage Stage, update StageUpdate) error
	ResetStage(ctx context.Context, subjectID uuid.UUID, stage Stage) error
	AppendEvent(ctx context.Context, event *StageEvent) error
	ListEvents(ctx context.Context, subjectID uuid.UUID) ([]*StageEvent, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const recordColumns = `
	subject_id, identity_status, health_status, biometric_status,
	document_front_url, document_back_url, selfie_url,
	identity_reference, health_member_number, biometric_session_id,
	match_score, rejection_reason, fully_certified, created_at, updated_at
`

func (r *PostgresRepository) GetOrCreate(ctx context.Context, subjectID uuid.UUID) (*VerificationRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM verification_records WHERE subject_id = $1`, recordColumns)

	var record VerificationRecord
	err := r.db.GetContext(ctx, &record, query, subjectID)
	if err == nil {
		return &record, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to load verification record: %w", err)
	}

	now := time.Now()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO verification_records (
			subject_id, identity_status, health_status, biometric_status,
			fully_certified, created_at, updated_at
		) VALUES ($1, $2, $2, $2, false, $3, $3)
		ON CONFLICT (subject_id) DO NOTHING
	`, subjectID, StatusPending, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create verification record: %w", err)
	}

	if err := r.db.GetContext(ctx, &record, query, subjectID); err != nil {
		return nil, fmt.Errorf("failed to reload verification record: %w", err)
	}
	return &record, nil
}

func (r *PostgresRepository) ApplyStageUpdate(ctx context.Context, subjectID uuid.UUID, stage Stage, update StageUpdate) error {
	var query string
	args := []interface{}{subjectID, update.Status, nullable(update.RejectionReason), update.FullyCertified, time.Now()}

	switch stage {
	case StageIdentity:
		query = `
			UPDATE verification_records SET
				identity_status = $2, rejection_reason = $3, fully_certified = $4, updated_at = $5,
				identity_reference = $6, document_front_url = $7, document_back_url = $8
			WHERE subject_id = $1
		`
		args = append(args, update.Reference, update.Evidence.DocumentFrontURL, update.Evidence.DocumentBackURL)
	case StageHealth:
		query = `
			UPDATE verification_records SET
				health_status = $2, rejection_reason = $3, fully_certified = $4, updated_at = $5,
				health_member_number = $6
			WHERE subject_id = $1
		`
		args = append(args, update.Reference)
	case StageBiometric:
		query = `
			UPDATE verification_records SET
				biometric_status = $2, rejection_reason = $3, fully_certified = $4, updated_at = $5,
				biometric_session_id = $6, match_score = $7, selfie_url = $8
			WHERE subject_id = $1
		`
		args = append(args, update.SessionID, update.MatchScore, update.Evidence.SelfieURL)
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to apply stage update: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("verification record for subject %s not found", subjectID)
	}
	return nil
}

func (r *PostgresRepository) ResetStage(ctx context.Context, subjectID uuid.UUID, stage Stage) error {
	var query string
	switch stage {
	case StageIdentity:
		query = `
			UPDATE verification_records SET
				identity_status = 'pending', identity_reference = '', rejection_reason = NULL,
				fully_certified = false, updated_at = $2
			WHERE subject_id = $1
		`
	case StageHealth:
		query = `
			UPDATE verification_records SET
				health_status = 'pending', health_member_number = '', rejection_reason = NULL, updated_at = $2
			WHERE subject_id = $1
		`
	case StageBiometric:
		query = `
			UPDATE verification_records SET
				biometric_status = 'pending', biometric_session_id = '', match_score = NULL,
				rejection_reason = NULL, updated_at = $2
			WHERE subject_id = $1
		`
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}

	if _, err := r.db.ExecContext(ctx, query, subjectID, time.Now()); err != nil {
		return fmt.Errorf("failed to reset stage: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AppendEvent(ctx context.Context, event *StageEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_events (id, subject_id, stage, from_status, to_status, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, event.ID, event.SubjectID, event.Stage, event.FromStatus, event.ToStatus, event.Reason, event.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to append verification event: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListEvents(ctx context.Context, subjectID uuid.UUID) ([]*StageEvent, error) {
	var evts []*StageEvent
	err := r.db.SelectContext(ctx, &evts, `
		SELECT id, subject_id, stage, from_status, to_status, reason, occurred_at
		FROM verification_events
		WHERE subject_id = $1
		ORDER BY occurred_at ASC
	`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list verification events: %w", err)
	}
	return evts, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
