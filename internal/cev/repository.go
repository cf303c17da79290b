package cev

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/SOMET1010/montoitv6-sub000/pkg/errs"
)

// ErrNotFound is returned when a certification request does not exist.
var ErrNotFound = errors.New("certification request not found")

// Repository persists certification requests. Status changes are
// compare-and-set on the row version so concurrent writers surface as
// ConflictError instead of lost updates.
type Repository interface {
	Create(ctx context.Context, req *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	GetActiveByLease(ctx context.Context, leaseID uuid.UUID) (*Request, error)
	SetDocument(ctx context.Context, id uuid.UUID, slot DocumentSlot, url string) error
	Transition(ctx context.Context, req *Request, from Status) error
}

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type requestRow struct {
	ID                 uuid.UUID       `db:"id"`
	LeaseID            uuid.UUID       `db:"lease_id"`
	LandlordID         uuid.UUID       `db:"landlord_id"`
	TenantID           uuid.UUID       `db:"tenant_id"`
	Status             string          `db:"status"`
	Documents          json.RawMessage `db:"documents"`
	Fee                string          `db:"fee"`
	AuthorityReference *string         `db:"authority_reference"`
	CertificateNumber  *string         `db:"certificate_number"`
	IssuedAt           *time.Time      `db:"issued_at"`
	ExpiresAt          *time.Time      `db:"expires_at"`
	VerificationURL    *string         `db:"verification_url"`
	QRPayload          *string         `db:"qr_payload"`
	RequestedDocuments json.RawMessage `db:"requested_documents"`
	DocumentsDeadline  *time.Time      `db:"documents_deadline"`
	RejectionReason    *string         `db:"rejection_reason"`
	RejectionDetail    json.RawMessage `db:"rejection_detail"`
	Version            int             `db:"version"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

const requestColumns = `
	id, lease_id, landlord_id, tenant_id, status, documents, fee,
	authority_reference, certificate_number, issued_at, expires_at,
	verification_url, qr_payload, requested_documents, documents_deadline,
	rejection_reason, rejection_detail, version, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, req *Request) error {
	documents, err := json.Marshal(req.Documents)
	if err != nil {
		return fmt.Errorf("failed to encode documents: %w", err)
	}

	query := `
		INSERT INTO certification_requests (
			id, lease_id, landlord_id, tenant_id, status, documents, fee,
			version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 1, NOW(), NOW())`

	_, err = r.db.ExecContext(ctx, query,
		req.ID, req.LeaseID, req.LandlordID, req.TenantID,
		req.Status, documents, req.Fee.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to create certification request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	query := `SELECT ` + requestColumns + ` FROM certification_requests WHERE id = $1`

	var row requestRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get certification request: %w", err)
	}
	return rowToRequest(&row)
}

// GetActiveByLease returns the lease's non-terminal request, or nil when the
// lease has none in flight.
func (r *PostgresRepository) GetActiveByLease(ctx context.Context, leaseID uuid.UUID) (*Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM certification_requests
		WHERE lease_id = $1 AND status NOT IN ($2, $3)
		ORDER BY created_at DESC
		LIMIT 1`

	var row requestRow
	err := r.db.GetContext(ctx, &row, query, leaseID, StatusIssued, StatusRejected)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get certification request for lease: %w", err)
	}
	return rowToRequest(&row)
}

func (r *PostgresRepository) SetDocument(ctx context.Context, id uuid.UUID, slot DocumentSlot, url string) error {
	query := `
		UPDATE certification_requests
		SET documents = jsonb_set(COALESCE(documents, '{}'::jsonb), ARRAY[$2], to_jsonb($3::text)),
		    updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, string(slot), url)
	if err != nil {
		return fmt.Errorf("failed to attach document: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Transition writes the full mutable state of req, guarded on the status and
// version the caller read. Zero rows updated means another writer got there
// first.
func (r *PostgresRepository) Transition(ctx context.Context, req *Request, from Status) error {
	documents, err := json.Marshal(req.Documents)
	if err != nil {
		return fmt.Errorf("failed to encode documents: %w", err)
	}
	requested, err := json.Marshal(req.RequestedDocuments)
	if err != nil {
		return fmt.Errorf("failed to encode requested documents: %w", err)
	}
	detail, err := json.Marshal(req.RejectionDetail)
	if err != nil {
		return fmt.Errorf("failed to encode rejection detail: %w", err)
	}

	query := `
		UPDATE certification_requests
		SET status = $3,
		    documents = $4,
		    authority_reference = $5,
		    certificate_number = $6,
		    issued_at = $7,
		    expires_at = $8,
		    verification_url = $9,
		    qr_payload = $10,
		    requested_documents = $11,
		    documents_deadline = $12,
		    rejection_reason = $13,
		    rejection_detail = $14,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2 AND version = $15`

	result, err := r.db.ExecContext(ctx, query,
		req.ID, from, req.Status, documents,
		req.AuthorityReference, req.CertificateNumber,
		req.IssuedAt, req.ExpiresAt, req.VerificationURL, req.QRPayload,
		requested, req.DocumentsDeadline,
		req.RejectionReason, detail,
		req.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to transition certification request: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errs.NewConflict("certification request", "request was modified concurrently, reload and retry")
	}
	req.Version++
	return nil
}

func parseFee(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	fee, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode fee: %w", err)
	}
	return fee, nil
}

func rowToRequest(row *requestRow) (*Request, error) {
	req := &Request{
		ID:                 row.ID,
		LeaseID:            row.LeaseID,
		LandlordID:         row.LandlordID,
		TenantID:           row.TenantID,
		Status:             Status(row.Status),
		Documents:          map[DocumentSlot]string{},
		AuthorityReference: row.AuthorityReference,
		CertificateNumber:  row.CertificateNumber,
		IssuedAt:           row.IssuedAt,
		ExpiresAt:          row.ExpiresAt,
		VerificationURL:    row.VerificationURL,
		QRPayload:          row.QRPayload,
		DocumentsDeadline:  row.DocumentsDeadline,
		RejectionReason:    row.RejectionReason,
		Version:            row.Version,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}

	fee, err := parseFee(row.Fee)
	if err != nil {
		return nil, err
	}
	req.Fee = fee

	if len(row.Documents) > 0 {
		if err := json.Unmarshal(row.Documents, &req.Documents); err != nil {
			return nil, fmt.Errorf("failed to decode documents: %w", err)
		}
	}
	if len(row.RequestedDocuments) > 0 {
		if err := json.Unmarshal(row.RequestedDocuments, &req.RequestedDocuments); err != nil {
			return nil, fmt.Errorf("failed to decode requested documents: %w", err)
		}
	}
	if len(row.RejectionDetail) > 0 {
		if err := json.Unmarshal(row.RejectionDetail, &req.RejectionDetail); err != nil {
			return nil, fmt.Errorf("failed to decode rejection detail: %w", err)
		}
	}
	return req, nil
}
