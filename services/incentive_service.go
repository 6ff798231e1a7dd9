package services

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"research-incentive-api/models"
)

// AuthorShare is one author's slice of a computed incentive.
type AuthorShare struct {
	AuthorID int     `json:"author_id"`
	Position int     `json:"position"`
	Amount   int64   `json:"amount"`
	Points   float64 `json:"points"`
}

// IncentiveOutcome is the result of one calculation. TotalAmount is the sum
// of the per-author amounts; for position-based distribution this can be
// less than the resolved pool because unallocated percentages are forfeited,
// not redistributed.
type IncentiveOutcome struct {
	PoolAmount   float64       `json:"pool_amount"`
	PoolPoints   float64       `json:"pool_points"`
	TotalAmount  int64         `json:"total_amount"`
	TotalPoints  float64       `json:"total_points"`
	NoBonusMatch bool          `json:"no_bonus_match"`
	Shares       []AuthorShare `json:"shares"`
}

// ValidateAuthorList enforces the author-list invariants: at least one
// author, exactly one at position 1, and no duplicate positions.
func ValidateAuthorList(authors []models.SubmissionAuthor) error {
	if len(authors) == 0 {
		return fmt.Errorf("%w: empty author list", ErrInvalidAuthorList)
	}
	seen := make(map[int]bool, len(authors))
	firstCount := 0
	for _, author := range authors {
		if author.Position < 1 {
			return fmt.Errorf("%w: author position %d below 1", ErrInvalidAuthorList, author.Position)
		}
		if seen[author.Position] {
			return fmt.Errorf("%w: duplicate position %d", ErrInvalidAuthorList, author.Position)
		}
		seen[author.Position] = true
		if author.Position == 1 {
			firstCount++
		}
	}
	if firstCount != 1 {
		return fmt.Errorf("%w: no author at position 1", ErrInvalidAuthorList)
	}
	return nil
}

// ComputeIncentive is a pure function over the author list, the indexing
// metadata and one applicable policy. Same inputs always produce the same
// output; callers may rerun it after a policy audit and reproduce the
// number exactly.
func ComputeIncentive(authors []models.SubmissionAuthor, indexing *models.IndexingDetail, policy *models.IncentivePolicy) (*IncentiveOutcome, error) {
	if err := ValidateAuthorList(authors); err != nil {
		return nil, err
	}

	ordered := make([]models.SubmissionAuthor, len(authors))
	copy(ordered, authors)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	poolAmount, poolPoints, matched := resolveBonusPool(indexing, policy.Bonuses)

	outcome := &IncentiveOutcome{
		PoolAmount:   poolAmount,
		PoolPoints:   poolPoints,
		NoBonusMatch: !matched,
	}

	switch policy.DistributionMethod {
	case models.DistributionRoleBased:
		distributeByRole(outcome, ordered, policy.RolePercentages, poolAmount, poolPoints)
	default:
		distributeByPosition(outcome, ordered, policy.PositionShares, poolAmount, poolPoints)
	}

	return outcome, nil
}

// resolveBonusPool sums every bonus table the metadata qualifies for.
// Tables stack additively; within one table a single tier applies: exact
// key match for category, quartile and rating, first matching range for
// SJR.
func resolveBonusPool(indexing *models.IndexingDetail, bonuses models.IndexingBonuses) (amount, points float64, matched bool) {
	if indexing == nil {
		return 0, 0, false
	}

	if indexing.IndexingCategory != "" {
		if bonus, ok := bonuses.CategoryBonuses[indexing.IndexingCategory]; ok {
			amount += bonus.Amount
			points += bonus.Points
			matched = true
		}
	}

	if indexing.Quartile != "" {
		if bonus, ok := bonuses.QuartileBonuses[indexing.Quartile]; ok {
			amount += bonus.Amount
			points += bonus.Points
			matched = true
		}
	}

	if indexing.SJRScore != nil {
		sjr := *indexing.SJRScore
		for _, tier := range bonuses.SJRRanges {
			if sjr >= tier.Min && sjr <= tier.Max {
				amount += tier.Amount
				points += tier.Points
				matched = true
				break
			}
		}
	}

	if indexing.NAASRating != "" {
		if bonus, ok := bonuses.RatingBonuses[indexing.NAASRating]; ok {
			amount += bonus.Amount
			points += bonus.Points
			matched = true
		}
	}

	return amount, points, matched
}

// positionBucket clamps an author position to the distribution buckets
// "1".."5" and "6+".
func positionBucket(position int) string {
	if position >= 6 {
		return "6+"
	}
	return strconv.Itoa(position)
}

// distributeByPosition applies each author's bucket percentage directly to
// the pool. Percentages for absent positions are forfeited: the unallocated
// remainder is NOT redistributed. A sole author is the exception and takes
// the full pool regardless of the configured bucket percentages.
func distributeByPosition(outcome *IncentiveOutcome, authors []models.SubmissionAuthor, shares models.PercentMap, poolAmount, poolPoints float64) {
	if len(authors) == 1 {
		outcome.Shares = append(outcome.Shares, AuthorShare{
			AuthorID: authors[0].AuthorID,
			Position: authors[0].Position,
			Points:   poolPoints,
		})
		outcome.TotalPoints = poolPoints
		settleAmounts(outcome, []float64{poolAmount}, poolAmount)
		return
	}

	exact := make([]float64, len(authors))
	var allocatedExact float64
	for i, author := range authors {
		pct := shares[positionBucket(author.Position)]
		exact[i] = poolAmount * pct / 100
		allocatedExact += exact[i]
		outcome.Shares = append(outcome.Shares, AuthorShare{
			AuthorID: author.AuthorID,
			Position: author.Position,
			Points:   poolPoints * pct / 100,
		})
		outcome.TotalPoints += outcome.Shares[i].Points
	}
	settleAmounts(outcome, exact, allocatedExact)
}

// distributeByRole gives matched roles their configured percentages and
// splits the remaining pool equally across authors whose role has no
// configured percentage (the co-author pool). With unmatched authors
// present the full pool is allocated.
func distributeByRole(outcome *IncentiveOutcome, authors []models.SubmissionAuthor, percentages models.PercentMap, poolAmount, poolPoints float64) {
	exact := make([]float64, len(authors))
	exactPoints := make([]float64, len(authors))
	var matchedAmount, matchedPoints float64
	var unmatched []int

	for i, author := range authors {
		pct, ok := percentages[author.AuthorRole]
		if !ok {
			unmatched = append(unmatched, i)
			continue
		}
		exact[i] = poolAmount * pct / 100
		exactPoints[i] = poolPoints * pct / 100
		matchedAmount += exact[i]
		matchedPoints += exactPoints[i]
	}

	allocatedExact := matchedAmount
	if len(unmatched) > 0 {
		remainderAmount := poolAmount - matchedAmount
		remainderPoints := poolPoints - matchedPoints
		if remainderAmount < 0 {
			remainderAmount = 0
		}
		if remainderPoints < 0 {
			remainderPoints = 0
		}
		perAuthorAmount := remainderAmount / float64(len(unmatched))
		perAuthorPoints := remainderPoints / float64(len(unmatched))
		for _, i := range unmatched {
			exact[i] = perAuthorAmount
			exactPoints[i] = perAuthorPoints
		}
		allocatedExact = matchedAmount + remainderAmount
	}

	for i, author := range authors {
		outcome.Shares = append(outcome.Shares, AuthorShare{
			AuthorID: author.AuthorID,
			Position: author.Position,
			Points:   exactPoints[i],
		})
		outcome.TotalPoints += exactPoints[i]
	}
	settleAmounts(outcome, exact, allocatedExact)
}

// settleAmounts rounds the exact amounts to whole currency units and
// assigns the rounding remainder to the position-1 author so the shares
// sum to TotalAmount exactly.
func settleAmounts(outcome *IncentiveOutcome, exact []float64, allocatedExact float64) {
	total := int64(math.Round(allocatedExact))
	firstIdx := 0
	var othersSum int64
	for i := range outcome.Shares {
		if outcome.Shares[i].Position == 1 {
			firstIdx = i
			continue
		}
		outcome.Shares[i].Amount = int64(math.Round(exact[i]))
		othersSum += outcome.Shares[i].Amount
	}
	outcome.Shares[firstIdx].Amount = total - othersSum
	outcome.TotalAmount = total
}
