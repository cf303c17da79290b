package verification

import (
	"time"

	"github.com/google/uuid"
)

// Stage is one of the three independent verification checks.
type Stage string

const (
	StageIdentity  Stage = "identity"
	StageHealth    Stage = "health"
	StageBiometric Stage = "biometric"
)

// StageStatus is the tri-state outcome of a stage.
type StageStatus string

const (
	StatusPending  StageStatus = "pending"
	StatusVerified StageStatus = "verified"
	StatusRejected StageStatus = "rejected"
)

// ValidStage reports whether s names a known stage.
func ValidStage(s Stage) bool {
	return s == StageIdentity || s == StageHealth || s == StageBiometric
}

// VerificationRecord is the per-subject verification state. Stage statuses are
// mutated only by the stage-completion handlers and never regress from
// verified except through an explicit reset.
type VerificationRecord struct {
	SubjectID         uuid.UUID   `json:"subject_id" db:"subject_id"`
	IdentityStatus    StageStatus `json:"identity_status" db:"identity_status"`
	HealthStatus      StageStatus `json:"health_status" db:"health_status"`
	BiometricStatus   StageStatus `json:"biometric_status" db:"biometric_status"`
	DocumentFrontURL  string      `json:"document_front_url,omitempty" db:"document_front_url"`
	DocumentBackURL   string      `json:"document_back_url,omitempty" db:"document_back_url"`
	SelfieURL         string      `json:"selfie_url,omitempty" db:"selfie_url"`
	IdentityReference string      `json:"identity_reference,omitempty" db:"identity_reference"`
	HealthMemberNum   string      `json:"health_member_number,omitempty" db:"health_member_number"`
	BiometricSession  string      `json:"biometric_session_id,omitempty" db:"biometric_session_id"`
	MatchScore        *float64    `json:"match_score,omitempty" db:"match_score"`
	RejectionReason   *string     `json:"rejection_reason,omitempty" db:"rejection_reason"`
	FullyCertified    bool        `json:"fully_certified" db:"fully_certified"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}

// StageOf returns the current status of the named stage.
func (r *VerificationRecord) StageOf(stage Stage) StageStatus {
	switch stage {
	case StageIdentity:
		return r.IdentityStatus
	case StageHealth:
		return r.HealthStatus
	case StageBiometric:
		return r.BiometricStatus
	}
	return ""
}

// CertificationStatus is the read snapshot exposed to the rest of the
// application. Fully certified requires only the identity stage; health and
// biometric are supplementary.
type CertificationStatus struct {
	SubjectID       uuid.UUID   `json:"subject_id"`
	IdentityStatus  StageStatus `json:"identity_status"`
	HealthStatus    StageStatus `json:"health_status"`
	BiometricStatus StageStatus `json:"biometric_status"`
	FullyCertified  bool        `json:"fully_certified"`
	RejectionReason *string     `json:"rejection_reason,omitempty"`
}

// Evidence is the caller-supplied input for a stage verification request.
// Which fields are required depends on the stage.
type Evidence struct {
	FullName         string `json:"full_name"`
	DocumentNumber   string `json:"document_number"`
	DateOfBirth      string `json:"date_of_birth"`
	MemberNumber     string `json:"member_number"`
	DocumentFrontURL string `json:"document_front_url"`
	DocumentBackURL  string `json:"document_back_url"`
	SelfieURL        string `json:"selfie_url"`
}

// StageEvent is one append-only audit row per stage transition or reset.
type StageEvent struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	SubjectID  uuid.UUID   `json:"subject_id" db:"subject_id"`
	Stage      Stage       `json:"stage" db:"stage"`
	FromStatus StageStatus `json:"from_status" db:"from_status"`
	ToStatus   StageStatus `json:"to_status" db:"to_status"`
	Reason     string      `json:"reason,omitempty" db:"reason"`
	OccurredAt time.Time   `json:"occurred_at" db:"occurred_at"`
}

// RegistryResult is what the identity registry answers.
type RegistryResult struct {
	Verified        bool
	ReferenceNumber string
}

// FaceMatchResult is the terminal outcome of a biometric check.
type FaceMatchResult struct {
	SessionID  string
	Verified   bool
	MatchScore float64
	Reason     string
}
