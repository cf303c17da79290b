package documents

import (
	"time"

	"github.com/google/uuid"
)

// DocumentType classifies an uploaded evidence document.
type DocumentType string

const (
	TypeIdentityCardFront DocumentType = "identity_card_front"
	TypeIdentityCardBack  DocumentType = "identity_card_back"
	TypeSelfie            DocumentType = "selfie"
	TypePropertyTitle     DocumentType = "property_title"
	TypePropertyPhoto     DocumentType = "property_photo"
	TypeSignedLease       DocumentType = "signed_lease"
	TypeFeeProof          DocumentType = "fee_proof"
	TypeCertificate       DocumentType = "certificate"
)

// ValidType reports whether t is a known document type.
func ValidType(t DocumentType) bool {
	switch t {
	case TypeIdentityCardFront, TypeIdentityCardBack, TypeSelfie,
		TypePropertyTitle, TypePropertyPhoto, TypeSignedLease,
		TypeFeeProof, TypeCertificate:
		return true
	}
	return false
}

// Document is the metadata row for one stored file. The file body lives in
// object storage, addressed by URL.
type Document struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	OwnerID     uuid.UUID    `json:"owner_id" db:"owner_id"`
	Type        DocumentType `json:"type" db:"type"`
	FileName    string       `json:"file_name" db:"file_name"`
	ContentType string       `json:"content_type" db:"content_type"`
	SizeBytes   int64        `json:"size_bytes" db:"size_bytes"`
	URL         string       `json:"url" db:"url"`
	UploadedAt  time.Time    `json:"uploaded_at" db:"uploaded_at"`
}
