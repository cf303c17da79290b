package trustscore

import (
	"time"

	"github.com/google/uuid"
)

// Tier is the named bucket a subject's total score falls into.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
	TierDiamond  Tier = "diamond"
)

// Component weights. Maxima sum to 100.
const (
	WeightIdentity    = 20
	WeightPayments    = 25
	WeightProfile     = 15
	WeightEngagement  = 15
	WeightReputation  = 15
	WeightTenure      = 10
)

// Inputs are the raw signals the engine scores. All ratios are in [0,1];
// out-of-range values are clamped before weighting.
type Inputs struct {
	IdentityVerified   bool
	PaymentsOnTime     int
	PaymentsTotal      int
	ProfileCompletion  float64
	MessageResponse    float64
	VisitsCompleted    int
	VisitsScheduled    int
	ReputationAverage  float64 // peer rating in [0,5]
	ReputationCount    int
	AccountCreatedAt   time.Time
}

// Breakdown is the per-component contribution to the total.
type Breakdown struct {
	Identity   int `json:"identity" db:"identity_points"`
	Payments   int `json:"payments" db:"payment_points"`
	Profile    int `json:"profile" db:"profile_points"`
	Engagement int `json:"engagement" db:"engagement_points"`
	Reputation int `json:"reputation" db:"reputation_points"`
	Tenure     int `json:"tenure" db:"tenure_points"`
}

// Score is the current trust score row for a subject.
type Score struct {
	SubjectID uuid.UUID `json:"subject_id" db:"subject_id"`
	Total     int       `json:"total" db:"total"`
	Tier      Tier      `json:"tier" db:"tier"`
	Breakdown Breakdown `json:"breakdown"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HistoryEntry records one recompute. Entries are append-only and ordered by
// time.
type HistoryEntry struct {
	ID         uuid.UUID `json:"id" db:"id"`
	SubjectID  uuid.UUID `json:"subject_id" db:"subject_id"`
	OldTotal   int       `json:"old_total" db:"old_total"`
	NewTotal   int       `json:"new_total" db:"new_total"`
	Reason     string    `json:"reason" db:"reason"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
}
