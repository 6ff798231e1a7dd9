// controllers/dashboard.go
package controllers

import (
	"net/http"
	"time"

	"research-incentive-api/config"
	"research-incentive-api/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetDashboardStats returns dashboard statistics. Admins and reviewers see
// system-wide figures; everyone else sees their own.
func GetDashboardStats(c *gin.Context) {
	userIDVal, userExists := c.Get("userID")
	if !userExists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "authentication context missing",
		})
		return
	}
	userID := userIDVal.(int)

	var stats map[string]interface{}
	if isAdminRequest(c) || canReview(c) {
		stats = getReviewerDashboard()
	} else {
		stats = getUserDashboard(userID)
	}

	stats["current_date"] = time.Now().Format("2006-01-02")

	c.JSON(http.StatusOK, gin.H{
		"stats": stats,
	})
}

// getUserDashboard returns dashboard for filers.
func getUserDashboard(userID int) map[string]interface{} {
	stats := make(map[string]interface{})

	var submissionStats struct {
		Total     int64 `json:"total"`
		Draft     int64 `json:"draft"`
		InReview  int64 `json:"in_review"`
		Approved  int64 `json:"approved"`
		Rejected  int64 `json:"rejected"`
		Completed int64 `json:"completed"`
	}

	base := func() *gorm.DB {
		return config.DB.Table("submissions").
			Where("user_id = ? AND delete_at IS NULL", userID)
	}

	base().Count(&submissionStats.Total)
	base().Where("status IN ?", []string{models.StatusDraft, models.StatusChangesRequired}).
		Count(&submissionStats.Draft)
	base().Where("status IN ?", []string{
		models.StatusPendingMentorApproval, models.StatusSubmitted,
		models.StatusUnderDRDReview, models.StatusResubmitted,
		models.StatusRecommendedToHead,
	}).Count(&submissionStats.InReview)
	base().Where("status IN ?", []string{
		models.StatusDRDHeadApproved, models.StatusApproved,
		models.StatusSubmittedToGovt, models.StatusGovtApplicationFiled,
		models.StatusPublished,
	}).Count(&submissionStats.Approved)
	base().Where("status IN ?", []string{models.StatusRejected, models.StatusDRDRejected}).
		Count(&submissionStats.Rejected)
	base().Where("status = ?", models.StatusCompleted).
		Count(&submissionStats.Completed)

	stats["submissions"] = submissionStats

	var incentive struct {
		TotalAmount int64   `json:"total_amount"`
		TotalPoints float64 `json:"total_points"`
	}
	config.DB.Table("submissions").
		Select("COALESCE(SUM(incentive_amount), 0) AS total_amount, COALESCE(SUM(incentive_points), 0) AS total_points").
		Where("user_id = ? AND incentive_status = ? AND delete_at IS NULL", userID, models.IncentiveStatusCalculated).
		Scan(&incentive)
	stats["incentive"] = incentive

	return stats
}

// getReviewerDashboard returns system-wide figures for admins and DRD staff.
func getReviewerDashboard() map[string]interface{} {
	stats := make(map[string]interface{})

	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var byStatus []statusCount
	config.DB.Table("submissions").
		Select("status, COUNT(*) AS count").
		Where("delete_at IS NULL").
		Group("status").
		Scan(&byStatus)
	stats["by_status"] = byStatus

	type typeCount struct {
		SubmissionType string `json:"submission_type"`
		Count          int64  `json:"count"`
	}
	var byType []typeCount
	config.DB.Table("submissions").
		Select("submission_type, COUNT(*) AS count").
		Where("delete_at IS NULL").
		Group("submission_type").
		Scan(&byType)
	stats["by_type"] = byType

	var queue struct {
		AwaitingReview   int64 `json:"awaiting_review"`
		AwaitingApproval int64 `json:"awaiting_approval"`
	}
	config.DB.Table("submissions").
		Where("status IN ? AND delete_at IS NULL",
			[]string{models.StatusSubmitted, models.StatusResubmitted, models.StatusUnderDRDReview}).
		Count(&queue.AwaitingReview)
	config.DB.Table("submissions").
		Where("status = ? AND delete_at IS NULL", models.StatusRecommendedToHead).
		Count(&queue.AwaitingApproval)
	stats["queue"] = queue

	var incentive struct {
		TotalAmount   int64   `json:"total_amount"`
		TotalPoints   float64 `json:"total_points"`
		PolicyMissing int64   `json:"policy_missing"`
	}
	config.DB.Table("submissions").
		Select("COALESCE(SUM(incentive_amount), 0) AS total_amount, COALESCE(SUM(incentive_points), 0) AS total_points").
		Where("incentive_status = ? AND delete_at IS NULL", models.IncentiveStatusCalculated).
		Scan(&incentive)
	config.DB.Table("submissions").
		Where("incentive_status = ? AND delete_at IS NULL", models.IncentiveStatusPolicyMissing).
		Count(&incentive.PolicyMissing)
	stats["incentive"] = incentive

	return stats
}
