package trustscore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository persists current scores and their append-only history.
type Repository interface {
	GetScore(ctx context.Context, subjectID uuid.UUID) (*Score, error)
	SaveScore(ctx context.Context, score *Score, entry *HistoryEntry) error
	ListHistory(ctx context.Context, subjectID uuid.UUID, limit int) ([]HistoryEntry, error)
}

// SignalSource gathers the raw scoring signals for a subject.
type SignalSource interface {
	Collect(ctx context.Context, subjectID uuid.UUID) (Inputs, error)
}

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scoreRow struct {
	SubjectID        uuid.UUID `db:"subject_id"`
	Total            int       `db:"total"`
	Tier             string    `db:"tier"`
	IdentityPoints   int       `db:"identity_points"`
	PaymentPoints    int       `db:"payment_points"`
	ProfilePoints    int       `db:"profile_points"`
	EngagementPoints int       `db:"engagement_points"`
	ReputationPoints int       `db:"reputation_points"`
	TenurePoints     int       `db:"tenure_points"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r *PostgresRepository) GetScore(ctx context.Context, subjectID uuid.UUID) (*Score, error) {
	query := `
		SELECT subject_id, total, tier,
		       identity_points, payment_points, profile_points,
		       engagement_points, reputation_points, tenure_points,
		       updated_at
		FROM trust_scores
		WHERE subject_id = $1`

	var row scoreRow
	if err := r.db.GetContext(ctx, &row, query, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trust score: %w", err)
	}

	return &Score{
		SubjectID: row.SubjectID,
		Total:     row.Total,
		Tier:      Tier(row.Tier),
		Breakdown: Breakdown{
			Identity:   row.IdentityPoints,
			Payments:   row.PaymentPoints,
			Profile:    row.ProfilePoints,
			Engagement: row.EngagementPoints,
			Reputation: row.ReputationPoints,
			Tenure:     row.TenurePoints,
		},
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// SaveScore writes the new current score and its history entry in one
// transaction so the history can never disagree with the current value.
func (r *PostgresRepository) SaveScore(ctx context.Context, score *Score, entry *HistoryEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO trust_scores (
			subject_id, total, tier,
			identity_points, payment_points, profile_points,
			engagement_points, reputation_points, tenure_points,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (subject_id) DO UPDATE SET
			total = EXCLUDED.total,
			tier = EXCLUDED.tier,
			identity_points = EXCLUDED.identity_points,
			payment_points = EXCLUDED.payment_points,
			profile_points = EXCLUDED.profile_points,
			engagement_points = EXCLUDED.engagement_points,
			reputation_points = EXCLUDED.reputation_points,
			tenure_points = EXCLUDED.tenure_points,
			updated_at = EXCLUDED.updated_at`

	_, err = tx.ExecContext(ctx, upsert,
		score.SubjectID, score.Total, score.Tier,
		score.Breakdown.Identity, score.Breakdown.Payments, score.Breakdown.Profile,
		score.Breakdown.Engagement, score.Breakdown.Reputation, score.Breakdown.Tenure,
		score.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save trust score: %w", err)
	}

	appendEntry := `
		INSERT INTO trust_score_history (id, subject_id, old_total, new_total, reason, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = tx.ExecContext(ctx, appendEntry,
		entry.ID, entry.SubjectID, entry.OldTotal, entry.NewTotal, entry.Reason, entry.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append trust score history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trust score: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListHistory(ctx context.Context, subjectID uuid.UUID, limit int) ([]HistoryEntry, error) {
	query := `
		SELECT id, subject_id, old_total, new_total, reason, recorded_at
		FROM trust_score_history
		WHERE subject_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2`

	entries := []HistoryEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, subjectID, limit); err != nil {
		return nil, fmt.Errorf("failed to list trust score history: %w", err)
	}
	return entries, nil
}

// PostgresSignalSource aggregates scoring signals from the platform tables.
type PostgresSignalSource struct {
	db *sqlx.DB
}

func NewPostgresSignalSource(db *sqlx.DB) *PostgresSignalSource {
	return &PostgresSignalSource{db: db}
}

func (s *PostgresSignalSource) Collect(ctx context.Context, subjectID uuid.UUID) (Inputs, error) {
	var in Inputs

	var identity struct {
		Verified  bool      `db:"verified"`
		CreatedAt time.Time `db:"created_at"`
	}
	err := s.db.GetContext(ctx, &identity, `
		SELECT v.identity_status = 'verified' AS verified, u.created_at
		FROM users u
		LEFT JOIN verification_records v ON v.subject_id = u.id
		WHERE u.id = $1`, subjectID)
	if err != nil {
		return in, fmt.Errorf("failed to collect identity signals: %w", err)
	}
	in.IdentityVerified = identity.Verified
	in.AccountCreatedAt = identity.CreatedAt

	var payments struct {
		OnTime int `db:"on_time"`
		Total  int `db:"total"`
	}
	err = s.db.GetContext(ctx, &payments, `
		SELECT COUNT(*) FILTER (WHERE paid_at <= due_at) AS on_time, COUNT(*) AS total
		FROM rent_payments
		WHERE payer_id = $1 AND paid_at IS NOT NULL`, subjectID)
	if err != nil {
		return in, fmt.Errorf("failed to collect payment signals: %w", err)
	}
	in.PaymentsOnTime = payments.OnTime
	in.PaymentsTotal = payments.Total

	err = s.db.GetContext(ctx, &in.ProfileCompletion, `
		SELECT COALESCE(profile_completion, 0) FROM users WHERE id = $1`, subjectID)
	if err != nil {
		return in, fmt.Errorf("failed to collect profile signals: %w", err)
	}

	var engagement struct {
		ResponseRate    float64 `db:"response_rate"`
		VisitsCompleted int     `db:"visits_completed"`
		VisitsScheduled int     `db:"visits_scheduled"`
	}
	err = s.db.GetContext(ctx, &engagement, `
		SELECT COALESCE(m.response_rate, 0) AS response_rate,
		       COUNT(*) FILTER (WHERE pv.status = 'completed') AS visits_completed,
		       COUNT(pv.id) AS visits_scheduled
		FROM users u
		LEFT JOIN messaging_stats m ON m.user_id = u.id
		LEFT JOIN property_visits pv ON pv.visitor_id = u.id
		WHERE u.id = $1
		GROUP BY m.response_rate`, subjectID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return in, fmt.Errorf("failed to collect engagement signals: %w", err)
	}
	in.MessageResponse = engagement.ResponseRate
	in.VisitsCompleted = engagement.VisitsCompleted
	in.VisitsScheduled = engagement.VisitsScheduled

	var reputation struct {
		Average float64 `db:"average"`
		Count   int     `db:"count"`
	}
	err = s.db.GetContext(ctx, &reputation, `
		SELECT COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count
		FROM reviews
		WHERE subject_id = $1`, subjectID)
	if err != nil {
		return in, fmt.Errorf("failed to collect reputation signals: %w", err)
	}
	in.ReputationAverage = reputation.Average
	in.ReputationCount = reputation.Count

	return in, nil
}
