package services

import (
	"testing"

	"research-incentive-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func quartilePolicy(method string) *models.IncentivePolicy {
	return &models.IncentivePolicy{
		PolicyID:           1,
		Scope:              models.ScopeJournalPaper,
		IsActive:           true,
		DistributionMethod: method,
		PositionShares: models.PercentMap{
			"1": 40, "2": 30, "3": 15, "4": 10, "5": 5, "6+": 2,
		},
		RolePercentages: models.PercentMap{
			models.AuthorRoleFirst:         35,
			models.AuthorRoleCorresponding: 30,
		},
		Bonuses: models.IndexingBonuses{
			QuartileBonuses: map[string]models.Bonus{
				"Q1": {Amount: 100000, Points: 10},
				"Q2": {Amount: 50000, Points: 5},
			},
		},
	}
}

func authorsAtPositions(positions ...int) []models.SubmissionAuthor {
	authors := make([]models.SubmissionAuthor, 0, len(positions))
	for i, pos := range positions {
		authors = append(authors, models.SubmissionAuthor{
			AuthorID:   i + 1,
			Position:   pos,
			AuthorRole: models.AuthorRoleCo,
		})
	}
	return authors
}

func TestComputeIncentivePositionBasedForfeitsUnallocated(t *testing.T) {
	policy := quartilePolicy(models.DistributionPositionBased)
	authors := authorsAtPositions(1, 2, 3)
	indexing := &models.IndexingDetail{Quartile: "Q1"}

	outcome, err := ComputeIncentive(authors, indexing, policy)
	require.NoError(t, err)

	assert.Equal(t, float64(100000), outcome.PoolAmount)
	assert.False(t, outcome.NoBonusMatch)

	require.Len(t, outcome.Shares, 3)
	assert.Equal(t, int64(40000), outcome.Shares[0].Amount)
	assert.Equal(t, int64(30000), outcome.Shares[1].Amount)
	assert.Equal(t, int64(15000), outcome.Shares[2].Amount)

	// Positions 4, 5 and 6+ have nobody; their percentages are forfeited,
	// not redistributed.
	assert.Equal(t, int64(85000), outcome.TotalAmount)
}

func TestComputeIncentiveSoleAuthorTakesFullPool(t *testing.T) {
	policy := quartilePolicy(models.DistributionPositionBased)
	authors := authorsAtPositions(1)
	indexing := &models.IndexingDetail{Quartile: "Q1"}

	outcome, err := ComputeIncentive(authors, indexing, policy)
	require.NoError(t, err)

	// Bucket "1" is configured at 40%, but a sole author is not subject to
	// the position split: the whole pool is theirs.
	require.Len(t, outcome.Shares, 1)
	assert.Equal(t, int64(100000), outcome.Shares[0].Amount)
	assert.Equal(t, int64(100000), outcome.TotalAmount)
	assert.Equal(t, float64(10), outcome.TotalPoints)
}

func TestComputeIncentiveRoleBasedSplitsRemainder(t *testing.T) {
	policy := quartilePolicy(models.DistributionRoleBased)
	policy.Bonuses.QuartileBonuses["Q1"] = models.Bonus{Amount: 200000, Points: 20}

	authors := []models.SubmissionAuthor{
		{AuthorID: 1, Position: 1, AuthorRole: models.AuthorRoleFirst},
		{AuthorID: 2, Position: 2, AuthorRole: models.AuthorRoleCorresponding},
		{AuthorID: 3, Position: 3, AuthorRole: models.AuthorRoleCo},
		{AuthorID: 4, Position: 4, AuthorRole: models.AuthorRoleCo},
	}
	indexing := &models.IndexingDetail{Quartile: "Q1"}

	outcome, err := ComputeIncentive(authors, indexing, policy)
	require.NoError(t, err)

	require.Len(t, outcome.Shares, 4)
	assert.Equal(t, int64(70000), outcome.Shares[0].Amount) // 35%
	assert.Equal(t, int64(60000), outcome.Shares[1].Amount) // 30%
	assert.Equal(t, int64(35000), outcome.Shares[2].Amount) // half the remainder
	assert.Equal(t, int64(35000), outcome.Shares[3].Amount)

	// With unmatched authors present the full pool is allocated.
	assert.Equal(t, int64(200000), outcome.TotalAmount)
}

func TestComputeIncentiveSumLawUnderRounding(t *testing.T) {
	policy := quartilePolicy(models.DistributionRoleBased)
	policy.RolePercentages = models.PercentMap{}
	policy.Bonuses.QuartileBonuses["Q1"] = models.Bonus{Amount: 100, Points: 1}

	authors := authorsAtPositions(1, 2, 3)
	indexing := &models.IndexingDetail{Quartile: "Q1"}

	outcome, err := ComputeIncentive(authors, indexing, policy)
	require.NoError(t, err)

	var sum int64
	for _, share := range outcome.Shares {
		sum += share.Amount
	}
	assert.Equal(t, outcome.TotalAmount, sum)
	assert.Equal(t, int64(100), outcome.TotalAmount)

	// The rounding remainder lands on the position-1 author.
	assert.Equal(t, int64(34), outcome.Shares[0].Amount)
	assert.Equal(t, int64(33), outcome.Shares[1].Amount)
	assert.Equal(t, int64(33), outcome.Shares[2].Amount)
}

func TestComputeIncentiveBonusesStackAcrossKinds(t *testing.T) {
	policy := quartilePolicy(models.DistributionPositionBased)
	policy.PositionShares = models.PercentMap{"1": 100}
	policy.Bonuses.CategoryBonuses = map[string]models.Bonus{
		"scopus": {Amount: 20000, Points: 2},
	}
	policy.Bonuses.SJRRanges = []models.SJRRange{
		{Min: 0, Max: 1, Amount: 1000, Points: 0.5},
		{Min: 1.001, Max: 5, Amount: 2000, Points: 1},
	}

	indexing := &models.IndexingDetail{
		Quartile:         "Q1",
		IndexingCategory: "scopus",
		SJRScore:         floatPtr(1.0), // inclusive upper bound of the first range
	}

	outcome, err := ComputeIncentive(authorsAtPositions(1), indexing, policy)
	require.NoError(t, err)

	// 100000 (Q1) + 20000 (scopus) + 1000 (first SJR range)
	assert.Equal(t, float64(121000), outcome.PoolAmount)
	assert.Equal(t, int64(121000), outcome.TotalAmount)
}

func TestComputeIncentiveNoBonusMatchYieldsZero(t *testing.T) {
	policy := quartilePolicy(models.DistributionPositionBased)
	indexing := &models.IndexingDetail{Quartile: "Q4"}

	outcome, err := ComputeIncentive(authorsAtPositions(1, 2), indexing, policy)
	require.NoError(t, err)

	assert.True(t, outcome.NoBonusMatch)
	assert.Equal(t, int64(0), outcome.TotalAmount)
	assert.Equal(t, float64(0), outcome.TotalPoints)
	for _, share := range outcome.Shares {
		assert.Equal(t, int64(0), share.Amount)
	}
}

func TestComputeIncentiveDeterministic(t *testing.T) {
	policy := quartilePolicy(models.DistributionRoleBased)
	authors := []models.SubmissionAuthor{
		{AuthorID: 7, Position: 2, AuthorRole: models.AuthorRoleCorresponding},
		{AuthorID: 5, Position: 1, AuthorRole: models.AuthorRoleFirst},
		{AuthorID: 9, Position: 3, AuthorRole: models.AuthorRoleCo},
	}
	indexing := &models.IndexingDetail{Quartile: "Q1"}

	first, err := ComputeIncentive(authors, indexing, policy)
	require.NoError(t, err)
	second, err := ComputeIncentive(authors, indexing, policy)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	// Shares come back ordered by position regardless of input order.
	assert.Equal(t, 1, first.Shares[0].Position)
	assert.Equal(t, 5, first.Shares[0].AuthorID)
}

func TestValidateAuthorList(t *testing.T) {
	err := ValidateAuthorList(nil)
	assert.ErrorIs(t, err, ErrInvalidAuthorList)

	err = ValidateAuthorList(authorsAtPositions(2, 3))
	assert.ErrorIs(t, err, ErrInvalidAuthorList)

	err = ValidateAuthorList(authorsAtPositions(1, 2, 2))
	assert.ErrorIs(t, err, ErrInvalidAuthorList)

	err = ValidateAuthorList(authorsAtPositions(1, 0))
	assert.ErrorIs(t, err, ErrInvalidAuthorList)

	assert.NoError(t, ValidateAuthorList(authorsAtPositions(1, 2, 3)))
}

func TestComputeIncentiveRejectsInvalidAuthors(t *testing.T) {
	policy := quartilePolicy(models.DistributionPositionBased)
	indexing := &models.IndexingDetail{Quartile: "Q1"}

	_, err := ComputeIncentive(authorsAtPositions(2, 3), indexing, policy)
	assert.ErrorIs(t, err, ErrInvalidAuthorList)
}
