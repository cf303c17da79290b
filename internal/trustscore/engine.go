package trustscore

import (
	"math"
	"time"
)

// tenureFullPoints is reached after three years on the platform.
const tenureFullPoints = 3 * 365 * 24 * time.Hour

// Compute scores the subject's signals into a total in [0,100] and its
// component breakdown. It is a pure function: identical inputs always produce
// identical output.
func Compute(in Inputs, now time.Time) (int, Breakdown) {
	b := Breakdown{
		Identity:   identityPoints(in),
		Payments:   ratioPoints(safeRatio(in.PaymentsOnTime, in.PaymentsTotal), WeightPayments),
		Profile:    ratioPoints(in.ProfileCompletion, WeightProfile),
		Engagement: engagementPoints(in),
		Reputation: reputationPoints(in),
		Tenure:     tenurePoints(in.AccountCreatedAt, now),
	}
	total := b.Identity + b.Payments + b.Profile + b.Engagement + b.Reputation + b.Tenure
	return total, b
}

// TierFor buckets a total by threshold. Thresholds are on the total only, the
// breakdown never influences the tier.
func TierFor(total int) Tier {
	switch {
	case total >= 90:
		return TierDiamond
	case total >= 75:
		return TierPlatinum
	case total >= 60:
		return TierGold
	case total >= 40:
		return TierSilver
	default:
		return TierBronze
	}
}

func identityPoints(in Inputs) int {
	if in.IdentityVerified {
		return WeightIdentity
	}
	return 0
}

func engagementPoints(in Inputs) int {
	// Half from message responsiveness, half from completed visits.
	visits := safeRatio(in.VisitsCompleted, in.VisitsScheduled)
	return ratioPoints(in.MessageResponse, WeightEngagement/2) +
		ratioPoints(visits, WeightEngagement-WeightEngagement/2)
}

func reputationPoints(in Inputs) int {
	if in.ReputationCount == 0 {
		return 0
	}
	return ratioPoints(in.ReputationAverage/5, WeightReputation)
}

func tenurePoints(createdAt time.Time, now time.Time) int {
	if createdAt.IsZero() || !createdAt.Before(now) {
		return 0
	}
	ratio := float64(now.Sub(createdAt)) / float64(tenureFullPoints)
	return ratioPoints(ratio, WeightTenure)
}

func ratioPoints(ratio float64, weight int) int {
	return int(math.Round(clamp01(ratio) * float64(weight)))
}

func safeRatio(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
