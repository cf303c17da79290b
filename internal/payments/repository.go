package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("payment not found")

type Repository interface {
	Create(ctx context.Context, payment *RentPayment) error
	GetByID(ctx context.Context, id uuid.UUID) (*RentPayment, error)
	ListByLease(ctx context.Context, leaseID uuid.UUID) ([]RentPayment, error)
	ListByPayer(ctx context.Context, payerID uuid.UUID, limit int) ([]RentPayment, error)
	MarkPaid(ctx context.Context, id uuid.UUID, method Method, reference string, paidAt time.Time) error
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, payment *RentPayment) error {
	query := `
		INSERT INTO rent_payments (id, lease_id, payer_id, amount, status, due_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID, payment.LeaseID, payment.PayerID, payment.Amount,
		payment.Status, payment.DueAt, payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rent payment: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*RentPayment, error) {
	var payment RentPayment
	err := r.db.GetContext(ctx, &payment, `SELECT * FROM rent_payments WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get rent payment: %w", err)
	}
	return &payment, nil
}

func (r *PostgresRepository) ListByLease(ctx context.Context, leaseID uuid.UUID) ([]RentPayment, error) {
	payments := []RentPayment{}
	err := r.db.SelectContext(ctx, &payments,
		`SELECT * FROM rent_payments WHERE lease_id = $1 ORDER BY due_at`, leaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lease payments: %w", err)
	}
	return payments, nil
}

func (r *PostgresRepository) ListByPayer(ctx context.Context, payerID uuid.UUID, limit int) ([]RentPayment, error) {
	payments := []RentPayment{}
	err := r.db.SelectContext(ctx, &payments,
		`SELECT * FROM rent_payments WHERE payer_id = $1 ORDER BY due_at DESC LIMIT $2`, payerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list payer payments: %w", err)
	}
	return payments, nil
}

// MarkPaid records the settlement details. Only due or late payments can be
// settled, so a repeated call is a no-op surfaced as ErrNotFound.
func (r *PostgresRepository) MarkPaid(ctx context.Context, id uuid.UUID, method Method, reference string, paidAt time.Time) error {
	query := `
		UPDATE rent_payments
		SET status = $1, method = $2, reference = $3, paid_at = $4, updated_at = $4
		WHERE id = $5 AND status IN ($6, $7)`

	result, err := r.db.ExecContext(ctx, query,
		StatusPaid, method, reference, paidAt, id, StatusDue, StatusLate)
	if err != nil {
		return fmt.Errorf("failed to mark payment paid: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check payment update: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkOverdue flips every unpaid installment past its due date to late.
func (r *PostgresRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE rent_payments SET status = $1, updated_at = $2 WHERE status = $3 AND due_at < $2`,
		StatusLate, asOf, StatusDue)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue payments: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count overdue payments: %w", err)
	}
	return rows, nil
}
