package trustscore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fullInputs(now time.Time) Inputs {
	return Inputs{
		IdentityVerified:  true,
		PaymentsOnTime:    12,
		PaymentsTotal:     12,
		ProfileCompletion: 1.0,
		MessageResponse:   1.0,
		VisitsCompleted:   4,
		VisitsScheduled:   4,
		ReputationAverage: 5.0,
		ReputationCount:   8,
		AccountCreatedAt:  now.Add(-4 * 365 * 24 * time.Hour),
	}
}

func TestCompute_PerfectSignalsReachFullTotal(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	total, breakdown := Compute(fullInputs(now), now)

	assert.Equal(t, 100, total)
	assert.Equal(t, WeightIdentity, breakdown.Identity)
	assert.Equal(t, WeightPayments, breakdown.Payments)
	assert.Equal(t, WeightProfile, breakdown.Profile)
	assert.Equal(t, WeightEngagement, breakdown.Engagement)
	assert.Equal(t, WeightReputation, breakdown.Reputation)
	assert.Equal(t, WeightTenure, breakdown.Tenure)
}

func TestCompute_IsDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	in := Inputs{
		IdentityVerified:  true,
		PaymentsOnTime:    7,
		PaymentsTotal:     9,
		ProfileCompletion: 0.6,
		MessageResponse:   0.8,
		VisitsCompleted:   2,
		VisitsScheduled:   5,
		ReputationAverage: 3.7,
		ReputationCount:   3,
		AccountCreatedAt:  now.Add(-400 * 24 * time.Hour),
	}

	total1, breakdown1 := Compute(in, now)
	total2, breakdown2 := Compute(in, now)

	assert.Equal(t, total1, total2)
	assert.Equal(t, breakdown1, breakdown2)
}

func TestCompute_EmptySignalsScoreZero(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	total, breakdown := Compute(Inputs{AccountCreatedAt: now}, now)

	assert.Equal(t, 0, total)
	assert.Equal(t, Breakdown{}, breakdown)
}

func TestCompute_ClampsOutOfRangeRatios(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	in := fullInputs(now)
	in.ProfileCompletion = 1.8
	in.MessageResponse = -0.4

	total, breakdown := Compute(in, now)
	assert.Equal(t, WeightProfile, breakdown.Profile)
	assert.LessOrEqual(t, total, 100)
}

func TestCompute_NoReputationSignalsScoreNothing(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	in := fullInputs(now)
	in.ReputationCount = 0

	_, breakdown := Compute(in, now)
	assert.Equal(t, 0, breakdown.Reputation)
}

func TestTierFor_ThresholdBuckets(t *testing.T) {
	cases := []struct {
		total int
		tier  Tier
	}{
		{0, TierBronze},
		{39, TierBronze},
		{40, TierSilver},
		{59, TierSilver},
		{60, TierGold},
		{74, TierGold},
		{75, TierPlatinum},
		{89, TierPlatinum},
		{90, TierDiamond},
		{100, TierDiamond},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.tier, TierFor(tc.total), "total %d", tc.total)
	}
}
