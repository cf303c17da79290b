package leases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a lease does not exist.
var ErrNotFound = errors.New("lease not found")

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Lease, error)
	MarkSigned(ctx context.Context, id uuid.UUID) error
}

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Lease, error) {
	query := `
		SELECT id, property_id, landlord_id, tenant_id, status,
		       monthly_rent, document_url, signed_at, created_at, updated_at
		FROM leases
		WHERE id = $1`

	var lease Lease
	if err := r.db.GetContext(ctx, &lease, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lease: %w", err)
	}
	return &lease, nil
}

func (r *PostgresRepository) MarkSigned(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE leases
		SET status = $2, signed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3`

	result, err := r.db.ExecContext(ctx, query, id, StatusSigned, StatusPendingSignature)
	if err != nil {
		return fmt.Errorf("failed to mark lease signed: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
