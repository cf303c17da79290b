package leases

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft            Status = "draft"
	StatusPendingSignature Status = "pending_signature"
	StatusSigned           Status = "signed"
	StatusActive           Status = "active"
	StatusTerminated       Status = "terminated"
)

// Lease is the rental contract between a landlord and a tenant. Certification
// requests hang off a lease and require it to be electronically signed.
type Lease struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	PropertyID  uuid.UUID       `json:"property_id" db:"property_id"`
	LandlordID  uuid.UUID       `json:"landlord_id" db:"landlord_id"`
	TenantID    uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	Status      Status          `json:"status" db:"status"`
	MonthlyRent decimal.Decimal `json:"monthly_rent" db:"monthly_rent"`
	DocumentURL string          `json:"document_url" db:"document_url"`
	SignedAt    *time.Time      `json:"signed_at,omitempty" db:"signed_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Signed reports whether both parties have completed electronic signature.
func (l *Lease) Signed() bool {
	return l.Status == StatusSigned || l.Status == StatusActive
}
