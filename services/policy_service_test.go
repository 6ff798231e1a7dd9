package services

import (
	"testing"
	"time"

	"research-incentive-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveActivePolicyInclusiveBoundaries(t *testing.T) {
	db := newTestDB(t)

	to := date(2024, time.December, 31)
	policy := seedPolicy(t, db, models.ScopeJournalPaper, date(2024, time.January, 1), &to)

	resolved, err := ResolveActivePolicy(db, models.ScopeJournalPaper, date(2024, time.January, 1))
	require.NoError(t, err)
	assert.Equal(t, policy.PolicyID, resolved.PolicyID)

	resolved, err = ResolveActivePolicy(db, models.ScopeJournalPaper, date(2024, time.December, 31))
	require.NoError(t, err)
	assert.Equal(t, policy.PolicyID, resolved.PolicyID)

	_, err = ResolveActivePolicy(db, models.ScopeJournalPaper, date(2023, time.December, 31))
	assert.ErrorIs(t, err, ErrNoApplicablePolicy)

	_, err = ResolveActivePolicy(db, models.ScopeJournalPaper, date(2025, time.January, 1))
	assert.ErrorIs(t, err, ErrNoApplicablePolicy)
}

func TestResolveActivePolicyOpenEnded(t *testing.T) {
	db := newTestDB(t)

	policy := seedPolicy(t, db, models.ScopePatent, date(2024, time.January, 1), nil)

	resolved, err := ResolveActivePolicy(db, models.ScopePatent, date(2030, time.June, 15))
	require.NoError(t, err)
	assert.Equal(t, policy.PolicyID, resolved.PolicyID)
}

func TestResolveActivePolicyIgnoresInactiveAndOtherScopes(t *testing.T) {
	db := newTestDB(t)

	inactive := seedPolicy(t, db, models.ScopeJournalPaper, date(2024, time.January, 1), nil)
	db.Model(inactive).Update("is_active", false)
	seedPolicy(t, db, models.ScopePatent, date(2024, time.January, 1), nil)

	_, err := ResolveActivePolicy(db, models.ScopeJournalPaper, date(2024, time.June, 1))
	assert.ErrorIs(t, err, ErrNoApplicablePolicy)
}

func TestValidatePolicyRejectsOverlappingWindows(t *testing.T) {
	db := newTestDB(t)

	to := date(2024, time.December, 31)
	seedPolicy(t, db, models.ScopeJournalPaper, date(2024, time.January, 1), &to)

	overlapping := &models.IncentivePolicy{
		Scope:              models.ScopeJournalPaper,
		IsActive:           true,
		EffectiveFrom:      date(2024, time.June, 1),
		DistributionMethod: models.DistributionPositionBased,
	}
	err := ValidatePolicy(db, overlapping)
	assert.ErrorIs(t, err, ErrPolicyOverlap)

	// A window starting the day after the sibling ends does not overlap.
	adjacent := &models.IncentivePolicy{
		Scope:              models.ScopeJournalPaper,
		IsActive:           true,
		EffectiveFrom:      date(2025, time.January, 1),
		DistributionMethod: models.DistributionPositionBased,
	}
	assert.NoError(t, ValidatePolicy(db, adjacent))

	// Overlap in a different scope is fine.
	otherScope := &models.IncentivePolicy{
		Scope:              models.ScopePatent,
		IsActive:           true,
		EffectiveFrom:      date(2024, time.June, 1),
		DistributionMethod: models.DistributionPositionBased,
	}
	assert.NoError(t, ValidatePolicy(db, otherScope))

	// Inactive policies may overlap; only active windows are exclusive.
	inactive := &models.IncentivePolicy{
		Scope:              models.ScopeJournalPaper,
		IsActive:           false,
		EffectiveFrom:      date(2024, time.June, 1),
		DistributionMethod: models.DistributionPositionBased,
	}
	assert.NoError(t, ValidatePolicy(db, inactive))
}

func TestValidatePolicyRejectsBadDefinitions(t *testing.T) {
	db := newTestDB(t)

	unknownMethod := &models.IncentivePolicy{
		Scope:              models.ScopeJournalPaper,
		EffectiveFrom:      date(2024, time.January, 1),
		DistributionMethod: "lottery",
	}
	assert.Error(t, ValidatePolicy(db, unknownMethod))

	to := date(2023, time.December, 31)
	invertedWindow := &models.IncentivePolicy{
		Scope:              models.ScopeJournalPaper,
		EffectiveFrom:      date(2024, time.January, 1),
		EffectiveTo:        &to,
		DistributionMethod: models.DistributionPositionBased,
	}
	assert.Error(t, ValidatePolicy(db, invertedWindow))

	overlappingSJR := &models.IncentivePolicy{
		Scope:              models.ScopeJournalPaper,
		EffectiveFrom:      date(2024, time.January, 1),
		DistributionMethod: models.DistributionPositionBased,
		Bonuses: models.IndexingBonuses{
			SJRRanges: []models.SJRRange{
				{Min: 0, Max: 1, Amount: 1000},
				{Min: 0.5, Max: 2, Amount: 2000},
			},
		},
	}
	assert.Error(t, ValidatePolicy(db, overlappingSJR))
}

func TestPolicyInUse(t *testing.T) {
	db := newTestDB(t)

	policy := seedPolicy(t, db, models.ScopeJournalPaper, date(2024, time.January, 1), nil)

	inUse, err := PolicyInUse(db, policy.PolicyID)
	require.NoError(t, err)
	assert.False(t, inUse)

	result := models.IncentiveResult{
		SubmissionID: 1,
		PolicyID:     &policy.PolicyID,
		CalculatedBy: 1,
		CalculatedAt: time.Now(),
	}
	require.NoError(t, db.Create(&result).Error)

	inUse, err = PolicyInUse(db, policy.PolicyID)
	require.NoError(t, err)
	assert.True(t, inUse)
}
