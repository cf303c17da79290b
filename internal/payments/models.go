package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDue      Status = "due"
	StatusPaid     Status = "paid"
	StatusLate     Status = "late"
	StatusCanceled Status = "canceled"
)

// Method is how the rent was settled.
type Method string

const (
	MethodMobileMoney  Method = "mobile_money"
	MethodBankTransfer Method = "bank_transfer"
	MethodCash         Method = "cash"
)

// RentPayment is one rent installment on a lease. Payment timeliness feeds
// the payer's trust score.
type RentPayment struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	LeaseID   uuid.UUID       `json:"lease_id" db:"lease_id"`
	PayerID   uuid.UUID       `json:"payer_id" db:"payer_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Status    Status          `json:"status" db:"status"`
	Method    *Method         `json:"method,omitempty" db:"method"`
	Reference *string         `json:"reference,omitempty" db:"reference"`
	DueAt     time.Time       `json:"due_at" db:"due_at"`
	PaidAt    *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}
