// controllers/policy.go
package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"research-incentive-api/config"
	"research-incentive-api/models"
	"research-incentive-api/services"

	"github.com/gin-gonic/gin"
)

// GetPolicies returns active policies visible to any authenticated user.
func GetPolicies(c *gin.Context) {
	var policies []models.IncentivePolicy

	query := config.DB.Where("is_active = ? AND delete_at IS NULL", true)

	if scope := c.Query("scope"); scope != "" {
		query = query.Where("scope = ?", scope)
	}

	if err := query.Order("scope, effective_from DESC").Find(&policies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch policies"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    policies,
		"total":   len(policies),
	})
}

// GetPoliciesAdmin returns all policies including inactive ones.
func GetPoliciesAdmin(c *gin.Context) {
	var policies []models.IncentivePolicy

	query := config.DB.Where("delete_at IS NULL")

	if scope := c.Query("scope"); scope != "" {
		query = query.Where("scope = ?", scope)
	}

	if err := query.Order("scope, effective_from DESC").Find(&policies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch policies"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    policies,
		"total":   len(policies),
	})
}

// GetPolicyLookup resolves the policy that would price a submission of the
// given scope on the given date. Returns 200 with found=false when no
// active policy covers the date, so callers can preview the gap.
func GetPolicyLookup(c *gin.Context) {
	scope := strings.TrimSpace(c.Query("scope"))
	dateStr := strings.TrimSpace(c.Query("date"))

	if scope == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameter: scope"})
		return
	}

	referenceDate := time.Now()
	if dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
			return
		}
		referenceDate = parsed
	}

	policy, err := services.ResolveActivePolicy(config.DB, scope, referenceDate)
	if err != nil {
		if errors.Is(err, services.ErrNoApplicablePolicy) {
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"found":   false,
				"policy":  nil,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve policy"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"found":   true,
		"policy":  policy,
	})
}

// CreatePolicy creates a new incentive policy (admin only). Overlapping
// active windows within a scope are rejected.
func CreatePolicy(c *gin.Context) {
	var newPolicy models.IncentivePolicy
	if err := c.ShouldBindJSON(&newPolicy); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := services.ValidatePolicy(config.DB, &newPolicy); err != nil {
		if errors.Is(err, services.ErrPolicyOverlap) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")
	now := time.Now()
	newPolicy.CreatedBy = userID.(int)
	newPolicy.CreateAt = &now
	newPolicy.UpdateAt = &now

	if err := config.DB.Create(&newPolicy).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create policy"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Policy created successfully",
		"data":    newPolicy,
	})
}

// UpdatePolicy updates an existing policy (admin only). Policies already
// referenced by an incentive result cannot change their pricing tables.
func UpdatePolicy(c *gin.Context) {
	id := c.Param("id")

	var existing models.IncentivePolicy
	if err := config.DB.Where("policy_id = ? AND delete_at IS NULL", id).First(&existing).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Policy not found"})
		return
	}

	inUse, err := services.PolicyInUse(config.DB, existing.PolicyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check policy usage"})
		return
	}
	if inUse {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Policy is referenced by incentive results; deactivate it and create a new version instead",
		})
		return
	}

	var updated models.IncentivePolicy
	if err := c.ShouldBindJSON(&updated); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated.PolicyID = existing.PolicyID
	if err := services.ValidatePolicy(config.DB, &updated); err != nil {
		if errors.Is(err, services.ErrPolicyOverlap) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	updated.UpdateAt = &now
	updated.CreatedBy = existing.CreatedBy
	updated.CreateAt = existing.CreateAt

	if err := config.DB.Model(&existing).Updates(&updated).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update policy"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Policy updated successfully",
		"data":    existing,
	})
}

// DeletePolicy soft deletes a policy (admin only). Policies referenced by
// incentive results are deactivated instead, preserving reproducibility.
func DeletePolicy(c *gin.Context) {
	id := c.Param("id")

	var policy models.IncentivePolicy
	if err := config.DB.Where("policy_id = ? AND delete_at IS NULL", id).First(&policy).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Policy not found"})
		return
	}

	inUse, err := services.PolicyInUse(config.DB, policy.PolicyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check policy usage"})
		return
	}

	now := time.Now()
	if inUse {
		policy.IsActive = false
		policy.UpdateAt = &now
		if err := config.DB.Save(&policy).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate policy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Policy is referenced by incentive results and was deactivated instead of deleted",
		})
		return
	}

	policy.DeleteAt = &now
	if err := config.DB.Save(&policy).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete policy"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Policy deleted successfully",
	})
}

// TogglePolicyStatus toggles active status (admin only). Activation runs
// the overlap check as if the policy were being created.
func TogglePolicyStatus(c *gin.Context) {
	id := c.Param("id")

	var policy models.IncentivePolicy
	if err := config.DB.Where("policy_id = ? AND delete_at IS NULL", id).First(&policy).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Policy not found"})
		return
	}

	policy.IsActive = !policy.IsActive
	if policy.IsActive {
		if err := services.ValidatePolicy(config.DB, &policy); err != nil {
			if errors.Is(err, services.ErrPolicyOverlap) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	now := time.Now()
	policy.UpdateAt = &now

	if err := config.DB.Save(&policy).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle policy status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Policy status updated successfully",
		"is_active": policy.IsActive,
	})
}
