package services

import (
	"errors"
	"fmt"
	"time"

	"research-incentive-api/models"

	"gorm.io/gorm"
)

// ResolveActivePolicy returns the active policy for the scope whose
// effective window contains the reference date. Both window boundaries are
// inclusive. Among legacy overlapping rows the most recently effective one
// wins, so resolution stays deterministic.
func ResolveActivePolicy(db *gorm.DB, scope string, referenceDate time.Time) (*models.IncentivePolicy, error) {
	var policy models.IncentivePolicy
	err := db.
		Where("scope = ? AND is_active = ? AND delete_at IS NULL", scope, true).
		Where("effective_from <= ?", referenceDate).
		Where("(effective_to IS NULL OR effective_to >= ?)", referenceDate).
		Order("effective_from DESC").
		First(&policy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoApplicablePolicy
		}
		return nil, fmt.Errorf("failed to resolve policy for scope %s: %w", scope, err)
	}
	return &policy, nil
}

// ValidatePolicy checks a policy before create/update: the distribution
// method must be known, SJR ranges must not overlap, and the effective
// window must not intersect another active policy of the same scope.
func ValidatePolicy(db *gorm.DB, policy *models.IncentivePolicy) error {
	switch policy.DistributionMethod {
	case models.DistributionPositionBased, models.DistributionRoleBased:
	default:
		return fmt.Errorf("unknown distribution method %q", policy.DistributionMethod)
	}

	if policy.EffectiveTo != nil && policy.EffectiveTo.Before(policy.EffectiveFrom) {
		return fmt.Errorf("effective_to precedes effective_from")
	}

	if err := validateSJRRanges(policy.Bonuses.SJRRanges); err != nil {
		return err
	}

	if !policy.IsActive {
		return nil
	}

	var siblings []models.IncentivePolicy
	query := db.Where("scope = ? AND is_active = ? AND delete_at IS NULL", policy.Scope, true)
	if policy.PolicyID != 0 {
		query = query.Where("policy_id <> ?", policy.PolicyID)
	}
	if err := query.Find(&siblings).Error; err != nil {
		return fmt.Errorf("failed to load sibling policies: %w", err)
	}

	for i := range siblings {
		if siblings[i].OverlapsWindow(policy.EffectiveFrom, policy.EffectiveTo) {
			return fmt.Errorf("%w: policy %d (%s)", ErrPolicyOverlap,
				siblings[i].PolicyID, siblings[i].PolicyName)
		}
	}
	return nil
}

func validateSJRRanges(ranges []models.SJRRange) error {
	for i, r := range ranges {
		if r.Max < r.Min {
			return fmt.Errorf("sjr range %d: max %.2f below min %.2f", i, r.Max, r.Min)
		}
		for j := 0; j < i; j++ {
			prev := ranges[j]
			if r.Min <= prev.Max && prev.Min <= r.Max {
				return fmt.Errorf("sjr range %d overlaps range %d", i, j)
			}
		}
	}
	return nil
}

// PolicyInUse reports whether any incentive result references the policy.
// Referenced policies must be deactivated instead of deleted.
func PolicyInUse(db *gorm.DB, policyID int) (bool, error) {
	var count int64
	if err := db.Model(&models.IncentiveResult{}).
		Where("policy_id = ?", policyID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check policy references: %w", err)
	}
	return count > 0, nil
}
