package providers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines the interface for provider configuration access
type Repository interface {
	ListByCapability(ctx context.Context, capability Capability) ([]*ProviderConfig, error)
	ListAll(ctx context.Context) ([]*ProviderConfig, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ProviderConfig, error)
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
	SetPriority(ctx context.Context, id uuid.UUID, priority int) error
	SetHealth(ctx context.Context, id uuid.UUID, health HealthStatus) error
	RecordAttempt(ctx context.Context, attempt *DispatchAttempt) error
	ListAttempts(ctx context.Context, since time.Time, limit int) ([]*DispatchAttempt, error)
	UpdateRollingMetrics(ctx context.Context, id uuid.UUID, succeeded bool, latencyMs float64) error
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const providerColumns = `
	id, capability, name, priority, enabled, health,
	success_rate, avg_latency_ms, unit_cost, endpoint, updated_at
`

func (r *PostgresRepository) ListByCapability(ctx context.Context, capability Capability) ([]*ProviderConfig, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM provider_configs
		WHERE capability = $1
		ORDER BY priority ASC
	`, providerColumns)

	var configs []*ProviderConfig
	if err := r.db.SelectContext(ctx, &configs, query, capability); err != nil {
		return nil, fmt.Errorf("failed to list providers for %s: %w", capability, err)
	}
	return configs, nil
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*ProviderConfig, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM provider_configs
		ORDER BY capability ASC, priority ASC
	`, providerColumns)

	var configs []*ProviderConfig
	if err := r.db.SelectContext(ctx, &configs, query); err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	return configs, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*ProviderConfig, error) {
	query := fmt.Sprintf(`SELECT %s FROM provider_configs WHERE id = $1`, providerColumns)

	var cfg ProviderConfig
	if err := r.db.GetContext(ctx, &cfg, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("provider %s not found", id)
		}
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return &cfg, nil
}

func (r *PostgresRepository) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE provider_configs SET enabled = $2, updated_at = $3 WHERE id = $1
	`, id, enabled, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update provider enabled flag: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetPriority(ctx context.Context, id uuid.UUID, priority int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE provider_configs SET priority = $2, updated_at = $3 WHERE id = $1
	`, id, priority, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update provider priority: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetHealth(ctx context.Context, id uuid.UUID, health HealthStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE provider_configs SET health = $2, updated_at = $3 WHERE id = $1
	`, id, health, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update provider health: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RecordAttempt(ctx context.Context, attempt *DispatchAttempt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dispatch_attempts (
			id, dispatch_id, provider_id, capability, succeeded, latency_ms, error_text, attempt_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, attempt.ID, attempt.DispatchID, attempt.ProviderID, attempt.Capability,
		attempt.Succeeded, attempt.LatencyMs, attempt.ErrorText, attempt.AttemptAt)
	if err != nil {
		return fmt.Errorf("failed to record dispatch attempt: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListAttempts(ctx context.Context, since time.Time, limit int) ([]*DispatchAttempt, error) {
	var attempts []*DispatchAttempt
	err := r.db.SelectContext(ctx, &attempts, `
		SELECT id, dispatch_id, provider_id, capability, succeeded, latency_ms, error_text, attempt_at
		FROM dispatch_attempts
		WHERE attempt_at >= $1
		ORDER BY attempt_at DESC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispatch attempts: %w", err)
	}
	return attempts, nil
}

// UpdateRollingMetrics folds one attempt outcome into the provider's rolling
// success rate and latency using an exponential moving average.
func (r *PostgresRepository) UpdateRollingMetrics(ctx context.Context, id uuid.UUID, succeeded bool, latencyMs float64) error {
	outcome := 0.0
	if succeeded {
		outcome = 1.0
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE provider_configs SET
			success_rate = success_rate * 0.9 + $2 * 0.1,
			avg_latency_ms = avg_latency_ms * 0.9 + $3 * 0.1,
			updated_at = $4
		WHERE id = $1
	`, id, outcome, latencyMs, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update rolling metrics: %w", err)
	}
	return nil
}
