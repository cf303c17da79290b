package cev

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SOMET1010/montoitv6-sub000/pkg/workflows"
)

// Status values of a certification request, in forward order. Rejection is
// terminal; documents_requested loops back to under_review once satisfied.
type Status string

const (
	StatusPendingDocuments   Status = "pending_documents"
	StatusSubmitted          Status = "submitted"
	StatusUnderReview        Status = "under_review"
	StatusDocumentsRequested Status = "documents_requested"
	StatusApproved           Status = "approved"
	StatusIssued             Status = "issued"
	StatusRejected           Status = "rejected"
)

// NewStateMachine builds the request lifecycle. Issued and rejected are
// terminal.
func NewStateMachine() *workflows.StateMachine {
	return workflows.NewStateMachine(map[string][]string{
		string(StatusPendingDocuments):   {string(StatusSubmitted)},
		string(StatusSubmitted):          {string(StatusUnderReview), string(StatusRejected)},
		string(StatusUnderReview):        {string(StatusDocumentsRequested), string(StatusApproved), string(StatusRejected)},
		string(StatusDocumentsRequested): {string(StatusUnderReview)},
		string(StatusApproved):           {string(StatusIssued)},
		string(StatusIssued):             {},
		string(StatusRejected):           {},
	})
}

// DocumentSlot names one attachment position in the bundle sent to the
// certification authority.
type DocumentSlot string

const (
	SlotLandlordIDFront DocumentSlot = "landlord_id_front"
	SlotLandlordIDBack  DocumentSlot = "landlord_id_back"
	SlotTenantIDFront   DocumentSlot = "tenant_id_front"
	SlotTenantIDBack    DocumentSlot = "tenant_id_back"
	SlotPropertyTitle   DocumentSlot = "property_title"
	SlotPropertyPhoto   DocumentSlot = "property_photo"
	SlotSignedLease     DocumentSlot = "signed_lease"
	SlotFeeProof        DocumentSlot = "fee_proof"
)

// RequiredSlots must all be populated before submission. Fee proof is
// accepted but never required.
var RequiredSlots = []DocumentSlot{
	SlotLandlordIDFront,
	SlotLandlordIDBack,
	SlotTenantIDFront,
	SlotTenantIDBack,
	SlotPropertyTitle,
	SlotPropertyPhoto,
	SlotSignedLease,
}

// ValidSlot reports whether slot is one of the enumerated positions.
func ValidSlot(slot DocumentSlot) bool {
	switch slot {
	case SlotLandlordIDFront, SlotLandlordIDBack, SlotTenantIDFront, SlotTenantIDBack,
		SlotPropertyTitle, SlotPropertyPhoto, SlotSignedLease, SlotFeeProof:
		return true
	}
	return false
}

// Request is one certification request attached to a lease.
type Request struct {
	ID                 uuid.UUID               `json:"id" db:"id"`
	LeaseID            uuid.UUID               `json:"lease_id" db:"lease_id"`
	LandlordID         uuid.UUID               `json:"landlord_id" db:"landlord_id"`
	TenantID           uuid.UUID               `json:"tenant_id" db:"tenant_id"`
	Status             Status                  `json:"status" db:"status"`
	Documents          map[DocumentSlot]string `json:"documents"`
	Fee                decimal.Decimal         `json:"fee" db:"fee"`
	AuthorityReference *string                 `json:"authority_reference,omitempty" db:"authority_reference"`
	CertificateNumber  *string                 `json:"certificate_number,omitempty" db:"certificate_number"`
	IssuedAt           *time.Time              `json:"issued_at,omitempty" db:"issued_at"`
	ExpiresAt          *time.Time              `json:"expires_at,omitempty" db:"expires_at"`
	VerificationURL    *string                 `json:"verification_url,omitempty" db:"verification_url"`
	QRPayload          *string                 `json:"qr_payload,omitempty" db:"qr_payload"`
	RequestedDocuments []string                `json:"requested_documents,omitempty"`
	DocumentsDeadline  *time.Time              `json:"documents_deadline,omitempty" db:"documents_deadline"`
	RejectionReason    *string                 `json:"rejection_reason,omitempty" db:"rejection_reason"`
	RejectionDetail    map[string]string       `json:"rejection_detail,omitempty"`
	Version            int                     `json:"version" db:"version"`
	CreatedAt          time.Time               `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at" db:"updated_at"`
}

// MissingRequiredSlots lists the required slots not yet attached, in the
// canonical slot order.
func (r *Request) MissingRequiredSlots() []string {
	missing := []string{}
	for _, slot := range RequiredSlots {
		if r.Documents[slot] == "" {
			missing = append(missing, string(slot))
		}
	}
	return missing
}

// DecisionOutcome is what the authority's callback carries.
type DecisionOutcome string

const (
	OutcomeUnderReview        DecisionOutcome = "under_review"
	OutcomeDocumentsRequested DecisionOutcome = "documents_requested"
	OutcomeApproved           DecisionOutcome = "approved"
	OutcomeIssued             DecisionOutcome = "issued"
	OutcomeRejected           DecisionOutcome = "rejected"
)

// Decision is one authority decision to apply to a request.
type Decision struct {
	Outcome            DecisionOutcome   `json:"outcome"`
	RequestedDocuments []string          `json:"requested_documents,omitempty"`
	DocumentsDeadline  *time.Time        `json:"documents_deadline,omitempty"`
	CertificateNumber  string            `json:"certificate_number,omitempty"`
	IssuedAt           *time.Time        `json:"issued_at,omitempty"`
	ExpiresAt          *time.Time        `json:"expires_at,omitempty"`
	VerificationURL    string            `json:"verification_url,omitempty"`
	QRPayload          string            `json:"qr_payload,omitempty"`
	Reason             string            `json:"reason,omitempty"`
	Detail             map[string]string `json:"detail,omitempty"`
}

// PrerequisiteReport is the structured pass/fail returned by the
// prerequisite check.
type PrerequisiteReport struct {
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing"`
}
